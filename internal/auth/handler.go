package auth

import (
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/posts-project/posts/internal/platform/httpx"
)

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:    logger,
		service:   service,
		validator: validator.New(),
	}
}

// MountRoutes registers auth routes on provided router. protect guards the
// routes that need an authenticated caller.
func (h *Handler) MountRoutes(r chi.Router, protect func(http.Handler) http.Handler) {
	r.Post("/register", h.handleRegister)
	r.Post("/token", h.handleToken)
	r.With(protect).Get("/logout", h.handleLogout)
}

type registerForm struct {
	Username string `json:"username" validate:"required,email"`
	Password string `json:"password" validate:"required,min=5,max=15"`
}

type tokenForm struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var form registerForm
	if err := decodeCredentials(r, &form.Username, &form.Password); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Error occurred", "invalid request body")
		return
	}
	if errs := validationErrors(h.validator.Struct(form)); len(errs) > 0 {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{
			Error:      httpx.ErrValidation.Error(),
			Message:    "Error occurred",
			Data:       errs,
			StatusCode: http.StatusBadRequest,
		})
		return
	}

	if _, err := h.service.Register(r.Context(), form.Username, form.Password); err != nil {
		if errors.Is(err, ErrUserExists) {
			httpx.Fail(w, http.StatusBadRequest, "Error occurred", err.Error())
			return
		}
		h.logger.ErrorContext(r.Context(), "register user", slog.Any("error", err))
		httpx.RespondError(w, err, "Error occurred")
		return
	}
	httpx.Respond(w, http.StatusCreated, "Registered successfully", nil)
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	var form tokenForm
	if err := decodeCredentials(r, &form.Username, &form.Password); err != nil {
		httpx.Fail(w, http.StatusBadRequest, "Token could not be generated", "invalid request body")
		return
	}
	if errs := validationErrors(h.validator.Struct(form)); len(errs) > 0 {
		httpx.JSON(w, http.StatusBadRequest, httpx.Envelope{
			Error:      httpx.ErrValidation.Error(),
			Message:    "Token could not be generated",
			Data:       errs,
			StatusCode: http.StatusBadRequest,
		})
		return
	}

	token, err := h.service.Login(r.Context(), form.Username, form.Password)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "login", slog.Any("error", err))
		httpx.RespondError(w, err, "Token could not be generated")
		return
	}
	if !token.Issued() {
		w.Header().Set("WWW-Authenticate", "Bearer")
		httpx.Fail(w, http.StatusUnauthorized, "Token could not be generated", ErrInvalidCredentials.Error())
		return
	}
	httpx.Respond(w, http.StatusOK, "Token found", token)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	identity := IdentityFromContext(r.Context())
	if identity == nil {
		unauthorized(w, "missing identity")
		return
	}
	ok, err := h.service.Logout(r.Context(), identity.Token)
	if err != nil || !ok {
		h.logger.ErrorContext(r.Context(), "logout", slog.Int64("user_id", identity.UserID), slog.Any("error", err))
		httpx.Fail(w, http.StatusBadRequest, "Could not logout", "")
		return
	}
	httpx.Respond(w, http.StatusOK, "Logout successful", nil)
}

// decodeCredentials reads username and password from a JSON body, or from
// form values (body or query string) for any other content type.
func decodeCredentials(r *http.Request, username, password *string) error {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		var body struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := httpx.DecodeJSON(r, &body); err != nil {
			return err
		}
		*username, *password = body.Username, body.Password
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return err
	}
	*username, *password = r.FormValue("username"), r.FormValue("password")
	return nil
}

func validationErrors(err error) map[string]string {
	if err == nil {
		return nil
	}
	errs := make(map[string]string)
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) {
		for _, fieldErr := range fieldErrs {
			errs[fieldErr.Field()] = fieldErr.Error()
		}
		return errs
	}
	errs["general"] = err.Error()
	return errs
}
