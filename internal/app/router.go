package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/posts-project/posts/internal/auth"
	"github.com/posts-project/posts/internal/observability"
	"github.com/posts-project/posts/internal/posts"
	"github.com/posts-project/posts/internal/view"
	"github.com/posts-project/posts/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	Templates      *view.Engine
	AuthHandler    *auth.Handler
	AuthMiddleware func(http.Handler) http.Handler
	PostsHandler   *posts.Handler
	JobHandler     *jobs.Handler
	Metrics        *observability.Metrics
}

// landingEndpoints lists the API routes advertised on the landing page.
var landingEndpoints = []view.Endpoint{
	{Method: http.MethodPost, Path: "/api/v1/users/register"},
	{Method: http.MethodPost, Path: "/api/v1/users/token"},
	{Method: http.MethodGet, Path: "/api/v1/users/logout", Protected: true},
	{Method: http.MethodGet, Path: "/api/v1/posts/list", Protected: true},
	{Method: http.MethodPost, Path: "/api/v1/posts/add", Protected: true},
	{Method: http.MethodGet, Path: "/api/v1/posts/remove/{post_id}", Protected: true},
	{Method: http.MethodDelete, Path: "/api/v1/posts/{post_id}", Protected: true},
}

// NewRouter constructs the chi.Router with the API defaults.
func NewRouter(params RouterParams) http.Handler {
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if params.Templates != nil {
		env := ""
		if params.Config != nil {
			env = params.Config.AppEnv
		}
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			data := view.TemplateData{Title: "Posts Project", Env: env, Data: landingEndpoints}
			if err := params.Templates.Render(w, "base", data); err != nil {
				logger.Error("render landing", slog.Any("error", err))
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}
		})
	}

	protect := params.AuthMiddleware
	if protect == nil {
		protect = denyAll
	}

	r.Route("/api/v1", func(r chi.Router) {
		if params.AuthHandler != nil {
			r.Route("/users", func(r chi.Router) {
				params.AuthHandler.MountRoutes(r, protect)
			})
		}
		if params.PostsHandler != nil {
			r.Route("/posts", func(r chi.Router) {
				r.Use(protect)
				params.PostsHandler.MountRoutes(r)
			})
		}
	})

	if params.JobHandler != nil {
		r.Route("/jobs", params.JobHandler.MountRoutes)
	}
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}

	return r
}

// denyAll guards protected routes when no authenticator is wired.
func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("WWW-Authenticate", "Bearer")
		http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
	})
}
