package routes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"postboard/app/events"
	"postboard/app/metrics"
	"postboard/app/middleware"
	"postboard/app/models"
	"postboard/app/repositories"
)

type testEnv struct {
	router  *mux.Router
	store   *repositories.FileStore
	dataDir string
	hub     *events.Hub
	metrics *metrics.Metrics
}

func setupTestRouter(t *testing.T, limiter *middleware.RateLimiter) *testEnv {
	t.Helper()
	dataDir := t.TempDir()
	staticDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "index.html"), []byte("<html>postboard</html>"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(staticDir, "app.js"), []byte("// app"), 0644))

	m := metrics.New()
	store := repositories.NewFileStore(dataDir, nil, m)
	hub := events.NewHub(nil)
	t.Cleanup(hub.Close)

	router := SetupRoutes(Dependencies{
		Store:       store,
		Metrics:     m,
		Hub:         hub,
		RateLimiter: limiter,
		StaticDir:   staticDir,
	})
	return &testEnv{router: router, store: store, dataDir: dataDir, hub: hub, metrics: m}
}

func (e *testEnv) do(method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestPostAndCommentScenario(t *testing.T) {
	env := setupTestRouter(t, nil)

	w := env.do("POST", "/api/posts", `{"title":"Hi","body":"World"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.NotEmpty(t, w.Header().Get(middleware.RequestIDHeader))

	var created models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Hi", created.Title)
	assert.Equal(t, "World", created.Body)
	assert.Empty(t, created.Comments)

	w = env.do("POST", "/api/posts/"+created.ID.String()+"/comments", `{"text":"Nice!"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var commented models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &commented))
	require.Len(t, commented.Comments, 1)
	assert.Equal(t, "Anonymous", commented.Comments[0].Name)
	assert.Equal(t, "Nice!", commented.Comments[0].Text)

	w = env.do("GET", "/api/posts", "")
	require.Equal(t, http.StatusOK, w.Code)

	var posts []*models.Post
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &posts))
	require.Len(t, posts, 1)
	assert.Equal(t, created.ID, posts[0].ID)
	require.Len(t, posts[0].Comments, 1)
	assert.Equal(t, "Nice!", posts[0].Comments[0].Text)

	// The data survives on disk in the documented layout.
	data, err := os.ReadFile(filepath.Join(env.dataDir, repositories.PostsFileName))
	require.NoError(t, err)
	var onDisk []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &onDisk))
	require.Len(t, onDisk, 1)
	assert.Equal(t, created.ID.String(), onDisk[0]["id"])
}

func TestAPIErrors(t *testing.T) {
	env := setupTestRouter(t, nil)

	tests := []struct {
		name           string
		method         string
		path           string
		body           string
		expectedStatus int
		expectedBody   string
	}{
		{"missing title", "POST", "/api/posts", `{"body":"x"}`, http.StatusBadRequest, `{"error":"title and body required"}`},
		{"malformed post", "POST", "/api/posts", `{`, http.StatusBadRequest, `{"error":"title and body required"}`},
		{"empty comment", "POST", "/api/posts/1/comments", `{"text":""}`, http.StatusBadRequest, `{"error":"comment text required"}`},
		{"unknown post", "POST", "/api/posts/999/comments", `{"text":"hello"}`, http.StatusNotFound, `{"error":"post not found"}`},
		{"unknown api path", "GET", "/api/nothing", "", http.StatusNotFound, `{"error":"not found"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(tt.method, tt.path, tt.body)
			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.JSONEq(t, tt.expectedBody, w.Body.String())
		})
	}

	posts, err := env.store.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestHealthRoutes(t *testing.T) {
	env := setupTestRouter(t, nil)

	w := env.do("GET", "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = env.do("GET", "/health/detailed", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true,"store":{"backend":"file","degraded":false}}`, w.Body.String())
}

func TestHealthReportsDegradedStore(t *testing.T) {
	env := setupTestRouter(t, nil)
	require.NoError(t, os.WriteFile(filepath.Join(env.dataDir, repositories.PostsFileName), []byte("{not json"), 0644))

	w := env.do("GET", "/api/posts", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "[]\n", w.Body.String())

	w = env.do("GET", "/health", "")
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())

	w = env.do("GET", "/health/detailed", "")
	assert.JSONEq(t, `{"ok":true,"store":{"backend":"file","degraded":true}}`, w.Body.String())
}

func TestStaticRoutes(t *testing.T) {
	env := setupTestRouter(t, nil)

	tests := []struct {
		path         string
		expectedBody string
	}{
		{"/", "<html>postboard</html>"},
		{"/app.js", "// app"},
		{"/some/client/route", "<html>postboard</html>"},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := env.do("GET", tt.path, "")
			assert.Equal(t, http.StatusOK, w.Code)
			assert.Equal(t, tt.expectedBody, w.Body.String())
			assert.NotEqual(t, "application/json", w.Header().Get("Content-Type"))
		})
	}
}

func TestMethodNotAllowed(t *testing.T) {
	env := setupTestRouter(t, nil)

	w := env.do("DELETE", "/api/posts", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestMetricsRoute(t *testing.T) {
	env := setupTestRouter(t, nil)

	env.do("POST", "/api/posts", `{"title":"Hi","body":"World"}`)
	w := env.do("GET", "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "postboard_posts_created_total 1")
	assert.Contains(t, w.Body.String(), `postboard_http_requests_total{method="POST",route="/api/posts",status="201"} 1`)
}

func TestMetricsRouteDisabled(t *testing.T) {
	router := SetupRoutes(Dependencies{Store: repositories.NewFileStore(t.TempDir(), nil, nil), StaticDir: t.TempDir()})

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRateLimitedWrites(t *testing.T) {
	env := setupTestRouter(t, middleware.NewRateLimiter(0.001, 1))

	w := env.do("POST", "/api/posts", `{"title":"a","body":"b"}`)
	assert.Equal(t, http.StatusCreated, w.Code)

	w = env.do("POST", "/api/posts", `{"title":"a","body":"b"}`)
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, w.Body.String())

	// Reads are never limited.
	for i := 0; i < 5; i++ {
		assert.Equal(t, http.StatusOK, env.do("GET", "/api/posts", "").Code)
	}
}

func TestStreamRoute(t *testing.T) {
	env := setupTestRouter(t, nil)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/api/stream", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return env.hub.Clients() == 1 }, 2*time.Second, 10*time.Millisecond)

	resp, err := http.Post(srv.URL+"/api/posts", "application/json", strings.NewReader(`{"title":"Live","body":"update"}`))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var ev events.Event
	require.NoError(t, conn.ReadJSON(&ev))
	assert.Equal(t, events.TypePostCreated, ev.Type)
	assert.Equal(t, "Live", ev.Post.Title)
}
