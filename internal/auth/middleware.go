package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/posts-project/posts/internal/platform/httpx"
)

// Authenticator resolves bearer tokens to identities.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*Identity, error)
}

// BearerToken extracts the token from an "Authorization: Bearer <token>"
// header. The scheme is matched case-sensitively.
func BearerToken(header string) (string, bool) {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || scheme != "Bearer" {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

// Middleware rejects requests without a valid bearer token and stores the
// resolved Identity in the request context.
func Middleware(authn Authenticator, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := BearerToken(r.Header.Get("Authorization"))
			if !ok {
				unauthorized(w, "missing bearer token")
				return
			}
			identity, err := authn.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, ErrSessionExpired):
					unauthorized(w, "login failed or expired")
				case errors.Is(err, ErrUnauthorized):
					unauthorized(w, "authentication failed, try again")
				case errors.Is(err, ErrSessionNotFound):
					httpx.Fail(w, http.StatusForbidden, "Forbidden", "user session not found or expired")
				default:
					logger.ErrorContext(r.Context(), "authenticate request", slog.Any("error", err))
					httpx.Fail(w, http.StatusInternalServerError, http.StatusText(http.StatusInternalServerError), "")
				}
				return
			}
			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), identity)))
		})
	}
}

func unauthorized(w http.ResponseWriter, detail string) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	httpx.Fail(w, http.StatusUnauthorized, "Unauthorized", detail)
}
