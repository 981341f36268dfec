package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"innovate-ink/internal/article"
	"innovate-ink/internal/model"
	"innovate-ink/internal/store"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type caller struct {
	id   string
	role string
}

var (
	anonymous = caller{}
	ada       = caller{id: "writer-ada", role: "writer"}
	grace     = caller{id: "writer-grace", role: "writer"}
	reader    = caller{id: "reader-1", role: "reader"}
)

func newTestServer(t *testing.T, opts Options) (*Server, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	st, err := store.NewHybridStore(mr.Addr(), t.TempDir())
	require.NoError(t, err)
	t.Cleanup(st.Close)

	svc := article.NewService(st, zap.NewNop(), article.WithAuthorDirectory(st, 0, 0))
	return NewServer(svc, st, zap.NewNop(), opts), mr
}

func do(t *testing.T, s *Server, c caller, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.id != "" {
		req.Header.Set(HeaderUserID, c.id)
		req.Header.Set(HeaderUserRole, c.role)
	}

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func articleBody(title string) map[string]interface{} {
	return map[string]interface{}{
		"title":    title,
		"content":  strings.Repeat("A long enough body of text. ", 5),
		"summary":  "Summary",
		"tags":     []string{"go"},
		"readTime": 4,
	}
}

func createArticle(t *testing.T, s *Server, c caller, title string) string {
	t.Helper()
	rec, out := do(t, s, c, http.MethodPost, "/api/articles", articleBody(title))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	return out["article"].(map[string]interface{})["id"].(string)
}

func TestWelcomeAndUnknownRoutes(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec, out := do(t, s, anonymous, http.MethodGet, "/", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Welcome to InnovateInk API", out["message"])

	rec, out = do(t, s, anonymous, http.MethodGet, "/api/nothing-here", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", out["message"])
}

func TestCreate(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	body := articleBody("Hello from Ada")
	body["authorId"] = "someone-else"
	body["likes"] = 99

	rec, out := do(t, s, ada, http.MethodPost, "/api/articles", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	assert.Equal(t, "Article created successfully", out["message"])

	created := out["article"].(map[string]interface{})
	assert.Equal(t, ada.id, created["authorId"])
	assert.EqualValues(t, 0, created["likes"])

	rec, _ = do(t, s, anonymous, http.MethodPost, "/api/articles", articleBody("Hello again"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out = do(t, s, reader, http.MethodPost, "/api/articles", articleBody("Hello again"))
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "forbidden", out["error"])

	rec, out = do(t, s, ada, http.MethodPost, "/api/articles", articleBody("Hey"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "title", out["field"])
	assert.Equal(t, "validation_failure", out["error"])
}

func TestCreate_MalformedBody(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	req := httptest.NewRequest(http.MethodPost, "/api/articles", strings.NewReader("{not json"))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderUserID, ada.id)
	req.Header.Set(HeaderUserRole, ada.role)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid request body")
}

func TestWrites_AnonymousMalformedBodyIsUnauthorized(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	id := createArticle(t, s, ada, "Guarded article")

	for _, tc := range []struct{ method, path string }{
		{http.MethodPost, "/api/articles"},
		{http.MethodPut, "/api/articles/" + id},
	} {
		req := httptest.NewRequest(tc.method, tc.path, strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code, tc.method)
		assert.Contains(t, rec.Body.String(), "unauthenticated", tc.method)
	}
}

func TestGet(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	id := createArticle(t, s, ada, "Readable article")

	rec, out := do(t, s, anonymous, http.MethodGet, "/api/articles/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Readable article", out["title"])
	assert.EqualValues(t, 1, out["views"])
	assert.NotEmpty(t, out["content"])

	rec, out = do(t, s, anonymous, http.MethodGet, "/api/articles/not-a-uuid", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Article not found", out["message"])

	rec, _ = do(t, s, anonymous, http.MethodGet, "/api/articles/3f1c2b4e-5d6a-4b7c-8d9e-0f1a2b3c4d5e", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestUpdate(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	id := createArticle(t, s, ada, "Original title")

	patch := map[string]interface{}{"title": "Changed title", "likes": 1000, "authorId": grace.id}

	rec, out := do(t, s, grace, http.MethodPut, "/api/articles/"+id, patch)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Article not found or you are not authorized to edit it", out["message"])

	rec, _ = do(t, s, anonymous, http.MethodPut, "/api/articles/"+id, patch)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, out = do(t, s, ada, http.MethodPut, "/api/articles/"+id, patch)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "Article updated successfully", out["message"])

	updated := out["article"].(map[string]interface{})
	assert.Equal(t, "Changed title", updated["title"])
	assert.Equal(t, ada.id, updated["authorId"])
	assert.EqualValues(t, 0, updated["likes"])

	rec, out = do(t, s, ada, http.MethodPut, "/api/articles/"+id, map[string]interface{}{"readTime": 0})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "readTime", out["field"])

	rec, _ = do(t, s, ada, http.MethodPut, "/api/articles/not-a-uuid", patch)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestDelete(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	id := createArticle(t, s, ada, "Doomed article")

	rec, out := do(t, s, reader, http.MethodDelete, "/api/articles/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Article not found or you are not authorized to delete it", out["message"])

	rec, out = do(t, s, ada, http.MethodDelete, "/api/articles/"+id, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Article deleted successfully", out["message"])

	rec, _ = do(t, s, anonymous, http.MethodGet, "/api/articles/"+id, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestList(t *testing.T) {
	s, _ := newTestServer(t, Options{})

	rec, out := do(t, s, anonymous, http.MethodGet, "/api/articles", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []interface{}{}, out["articles"])
	assert.EqualValues(t, 0, out["total"])
	assert.EqualValues(t, 1, out["currentPage"])

	for _, title := range []string{"First article", "Second article", "Third article"} {
		createArticle(t, s, ada, title)
	}

	rec, out = do(t, s, anonymous, http.MethodGet, "/api/articles?page=2&limit=2", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 3, out["total"])
	assert.EqualValues(t, 2, out["currentPage"])
	assert.EqualValues(t, 2, out["totalPages"])
	items := out["articles"].([]interface{})
	require.Len(t, items, 1)
	assert.Equal(t, "First article", items[0].(map[string]interface{})["title"])

	rec, out = do(t, s, anonymous, http.MethodGet, "/api/articles?search=second&tag=go&page=abc", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, out["total"])
	assert.EqualValues(t, 1, out["currentPage"])
}

func TestLike(t *testing.T) {
	s, _ := newTestServer(t, Options{})
	id := createArticle(t, s, ada, "Likeable article")

	rec, out := do(t, s, anonymous, http.MethodPost, "/api/articles/"+id+"/like", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Article liked successfully", out["message"])
	assert.EqualValues(t, 1, out["likes"])

	rec, _ = do(t, s, anonymous, http.MethodPost, "/api/articles/3f1c2b4e-5d6a-4b7c-8d9e-0f1a2b3c4d5e/like", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestLike_RateLimited(t *testing.T) {
	s, _ := newTestServer(t, Options{LikeRate: 0.01, LikeBurst: 2})
	id := createArticle(t, s, ada, "Very likeable")

	for i := 0; i < 2; i++ {
		rec, _ := do(t, s, anonymous, http.MethodPost, "/api/articles/"+id+"/like", nil)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, out := do(t, s, anonymous, http.MethodPost, "/api/articles/"+id+"/like", nil)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.NotEmpty(t, out["message"])

	// other routes are not limited
	rec, _ = do(t, s, anonymous, http.MethodGet, "/api/articles/"+id, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestStorageOutage(t *testing.T) {
	s, mr := newTestServer(t, Options{})

	rec, _ := do(t, s, anonymous, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	addr := mr.Addr()
	mr.Close()

	rec, _ = do(t, s, anonymous, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, out := do(t, s, anonymous, http.MethodGet, "/api/articles", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Error fetching articles", out["message"])
	assert.NotContains(t, rec.Body.String(), addr)
}

func TestPrincipalFromHeaders(t *testing.T) {
	var got *model.Principal
	h := withPrincipal(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = PrincipalFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Nil(t, got)

	req.Header.Set(HeaderUserID, "u1")
	req.Header.Set(HeaderUserRole, "admin")
	h.ServeHTTP(httptest.NewRecorder(), req)
	require.NotNil(t, got)
	assert.Equal(t, "u1", got.ID)
	assert.Equal(t, model.RoleReader, got.Role)

	req.Header.Set(HeaderUserRole, "Writer")
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, model.RoleWriter, got.Role)
}
