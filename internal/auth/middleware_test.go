package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posts-project/posts/internal/platform/httpx"
)

type stubAuthenticator struct {
	identity *Identity
	err      error
	gotToken string
}

func (s *stubAuthenticator) Authenticate(ctx context.Context, token string) (*Identity, error) {
	s.gotToken = token
	return s.identity, s.err
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		header string
		want   string
		ok     bool
	}{
		{header: "Bearer abc", want: "abc", ok: true},
		{header: "Bearer   abc  ", want: "abc", ok: true},
		{header: "bearer abc"},
		{header: "Basic abc"},
		{header: "Bearer"},
		{header: "Bearer "},
		{header: ""},
	}
	for _, tt := range tests {
		t.Run(tt.header, func(t *testing.T) {
			got, ok := BearerToken(tt.header)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestMiddleware(t *testing.T) {
	identity := &Identity{UserID: 7, Username: "a@b.com", Token: "tok"}

	tests := []struct {
		name       string
		header     string
		authn      *stubAuthenticator
		wantStatus int
		wantBearer bool
	}{
		{name: "missing header", header: "", authn: &stubAuthenticator{}, wantStatus: http.StatusUnauthorized, wantBearer: true},
		{name: "wrong scheme", header: "Token tok", authn: &stubAuthenticator{}, wantStatus: http.StatusUnauthorized, wantBearer: true},
		{name: "invalid token", header: "Bearer tok", authn: &stubAuthenticator{err: ErrUnauthorized}, wantStatus: http.StatusUnauthorized, wantBearer: true},
		{name: "expired", header: "Bearer tok", authn: &stubAuthenticator{err: ErrSessionExpired}, wantStatus: http.StatusUnauthorized, wantBearer: true},
		{name: "no session", header: "Bearer tok", authn: &stubAuthenticator{err: ErrSessionNotFound}, wantStatus: http.StatusForbidden},
		{name: "storage failure", header: "Bearer tok", authn: &stubAuthenticator{err: errors.New("db down")}, wantStatus: http.StatusInternalServerError},
		{name: "authenticated", header: "Bearer tok", authn: &stubAuthenticator{identity: identity}, wantStatus: http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var seen *Identity
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				seen = IdentityFromContext(r.Context())
				w.WriteHeader(http.StatusNoContent)
			})

			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			Middleware(tt.authn, nil)(next).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.wantBearer {
				assert.Equal(t, "Bearer", rec.Header().Get("WWW-Authenticate"))
			}
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, identity, seen)
				assert.Equal(t, "tok", tt.authn.gotToken)
				return
			}
			assert.Nil(t, seen)

			var body httpx.Envelope
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.wantStatus, body.StatusCode)
			if tt.wantStatus == http.StatusInternalServerError {
				assert.Empty(t, body.Error, "internal errors must not leak")
			}
		})
	}
}
