package posts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/posts-project/posts/internal/auth"
	"github.com/posts-project/posts/internal/platform/httpx"
)

// Handler exposes post endpoints. Every route expects an authenticated
// caller; mount it behind auth.Middleware.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler builds a Handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers post routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/list", h.handleList)
	r.Post("/add", h.handleAdd)
	r.Get("/remove/{post_id}", h.handleRemove)
	r.Delete("/{post_id}", h.handleRemove)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	views, err := h.service.List(r.Context())
	if err != nil {
		h.logger.ErrorContext(r.Context(), "list posts", slog.Any("error", err))
		httpx.RespondError(w, err, "")
		return
	}
	if len(views) == 0 {
		httpx.Respond(w, http.StatusOK, "No data found", []PostView{})
		return
	}
	httpx.Respond(w, http.StatusOK, "results found", views)
}

func (h *Handler) handleAdd(w http.ResponseWriter, r *http.Request) {
	identity := auth.IdentityFromContext(r.Context())
	if identity == nil {
		httpx.Fail(w, http.StatusUnauthorized, "Unauthorized", "missing identity")
		return
	}
	var req AddPostRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Error occurred while creating new post", "invalid request body")
		return
	}
	id, err := h.service.Add(r.Context(), req, identity.UserID)
	if err != nil {
		if errors.Is(err, ErrValidation) {
			httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{
				Error:      ErrValidation.Error(),
				Message:    "Error occurred while creating new post",
				Data:       fieldErrors(err),
				StatusCode: http.StatusBadRequest,
			})
			return
		}
		h.logger.ErrorContext(r.Context(), "add post", slog.Int64("user_id", identity.UserID), slog.Any("error", err))
		httpx.RespondError(w, err, "Error occurred while creating new post")
		return
	}
	httpx.Respond(w, http.StatusCreated, "Post created successfully", id)
}

func (h *Handler) handleRemove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "post_id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Fail(w, http.StatusBadRequest, "Sorry, the post could not be removed", "invalid post id")
		return
	}
	if err := h.service.Remove(r.Context(), id); err != nil {
		if !errors.Is(err, ErrNotFound) {
			h.logger.ErrorContext(r.Context(), "remove post", slog.Int64("post_id", id), slog.Any("error", err))
			httpx.Fail(w, http.StatusBadRequest, "Sorry, the post could not be removed", "")
			return
		}
		httpx.Fail(w, http.StatusBadRequest, "Sorry, the post could not be removed", err.Error())
		return
	}
	httpx.Respond(w, http.StatusAccepted, "The post has been removed", nil)
}

func fieldErrors(err error) map[string]string {
	errs := make(map[string]string)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fieldErr := range fieldErrs {
			errs[fieldErr.Field()] = fieldErr.Error()
		}
	}
	return errs
}
