package posts

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posts-project/posts/internal/auth"
)

type envelope struct {
	Error      string          `json:"error"`
	Message    string          `json:"message"`
	Data       json.RawMessage `json:"data"`
	StatusCode int             `json:"status_code"`
}

func newTestRouter(t *testing.T) (chi.Router, *memRepository) {
	t.Helper()
	repo := newMemRepository()
	svc := NewService(repo, NewMemoryCache(time.Minute, 8), discardLogger())
	handler := NewHandler(discardLogger(), svc)

	r := chi.NewRouter()
	r.Route("/api/v1/posts", func(r chi.Router) {
		r.Use(func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
				identity := &auth.Identity{UserID: 1, Username: "a@b.com", Token: "tok"}
				next.ServeHTTP(w, req.WithContext(auth.ContextWithIdentity(req.Context(), identity)))
			})
		})
		handler.MountRoutes(r)
	})
	return r, repo
}

func serve(t *testing.T, r http.Handler, req *http.Request) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	var body envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return rec, body
}

func addRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/posts/add", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestHandler_ListEmpty(t *testing.T) {
	r, _ := newTestRouter(t)
	rec, body := serve(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/posts/list", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "No data found", body.Message)
	assert.JSONEq(t, `[]`, string(body.Data))
}

func TestHandler_AddListRemove(t *testing.T) {
	r, _ := newTestRouter(t)

	rec, body := serve(t, r, addRequest(`{"title":"Hello world","description":"first"}`))
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Post created successfully", body.Message)
	assert.JSONEq(t, `1`, string(body.Data))

	rec, body = serve(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/posts/list", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "results found", body.Message)
	assert.JSONEq(t, `[{"id":1,"title":"Hello world","description":"first","user":"a@b.com"}]`, string(body.Data))

	rec, body = serve(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/posts/remove/1", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
	assert.Equal(t, "The post has been removed", body.Message)

	rec, _ = serve(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/posts/remove/1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandler_DeleteRoute(t *testing.T) {
	r, _ := newTestRouter(t)
	rec, _ := serve(t, r, addRequest(`{"title":"Hello world"}`))
	require.Equal(t, http.StatusCreated, rec.Code)

	rec, _ = serve(t, r, httptest.NewRequest(http.MethodDelete, "/api/v1/posts/1", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestHandler_AddRejectsInvalidPayloads(t *testing.T) {
	r, repo := newTestRouter(t)

	for name, payload := range map[string]string{
		"short title":   `{"title":"abc"}`,
		"unknown field": `{"title":"Hello world","user_id":9}`,
		"malformed":     `{"title":`,
	} {
		t.Run(name, func(t *testing.T) {
			rec, body := serve(t, r, addRequest(payload))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "Error occurred while creating new post", body.Message)
		})
	}
	assert.Empty(t, repo.posts)
}

func TestHandler_RemoveRejectsBadID(t *testing.T) {
	r, _ := newTestRouter(t)
	rec, _ := serve(t, r, httptest.NewRequest(http.MethodGet, "/api/v1/posts/remove/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
