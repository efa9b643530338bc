package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nao1215/careerlens/internal/config"
	"github.com/nao1215/careerlens/internal/eventlog"
	"github.com/nao1215/careerlens/pkg/event"
	"github.com/nao1215/careerlens/pkg/githubapi"
	"github.com/nao1215/careerlens/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeGitHub はGitHub APIの代わりに応答するテスト用サーバー。
// ユーザー名ごとにステータスとボディを切り替えられる。
type fakeGitHub struct {
	mu sync.Mutex
	// users はユーザー名ごとのGET /users/{u}の応答。未登録なら404。
	users map[string]fakeResponse
	// repos はユーザー名ごとのGET /users/{u}/reposの応答。未登録なら空配列。
	repos map[string]fakeResponse
	// auth は受信したAuthorizationヘッダー。
	auth []string
	// queries は受信したクエリ文字列（パスごと）。
	queries map[string]string
	// paths は受信したエスケープ済みのパス。
	paths []string
}

type fakeResponse struct {
	status int
	body   string
}

func newFakeGitHub(t *testing.T) (*fakeGitHub, *httptest.Server) {
	t.Helper()

	f := &fakeGitHub{
		users:   map[string]fakeResponse{},
		repos:   map[string]fakeResponse{},
		queries: map[string]string{},
	}
	ts := httptest.NewServer(http.HandlerFunc(f.serveHTTP))
	t.Cleanup(ts.Close)
	return f, ts
}

func (f *fakeGitHub) serveHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	f.queries[r.URL.Path] = r.URL.RawQuery
	f.paths = append(f.paths, r.URL.EscapedPath())
	f.mu.Unlock()

	if r.URL.Path == "/user" || r.URL.Path == "/user/repos" {
		// トークン所有者のエンドポイント。ここに届いてはならない
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"login":"token-owner","email":"secret@example.com"}`))
		return
	}

	rest := strings.TrimPrefix(r.URL.Path, "/users/")
	name, sub, _ := strings.Cut(rest, "/")

	f.mu.Lock()
	var resp fakeResponse
	var ok bool
	switch sub {
	case "":
		resp, ok = f.users[name]
		if !ok {
			resp = fakeResponse{status: http.StatusNotFound, body: `{"message":"Not Found","documentation_url":"https://docs.github.com"}`}
		}
	case "repos":
		resp, ok = f.repos[name]
		if !ok {
			resp = fakeResponse{status: http.StatusOK, body: `[]`}
		}
	default:
		resp = fakeResponse{status: http.StatusNotFound, body: `{"message":"Not Found"}`}
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(resp.status)
	_, _ = w.Write([]byte(resp.body))
}

func (f *fakeGitHub) setUser(name, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[name] = fakeResponse{status: http.StatusOK, body: body}
}

func (f *fakeGitHub) setRepos(name string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.repos[name] = fakeResponse{status: status, body: body}
}

func (f *fakeGitHub) setUserError(name string, status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.users[name] = fakeResponse{status: status, body: body}
}

func (f *fakeGitHub) authHeaders() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.auth...)
}

func (f *fakeGitHub) receivedPaths() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.paths...)
}

func (f *fakeGitHub) query(path string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.queries[path]
}

// testServerOptions はテスト用サーバーの構成。
type testServerOptions struct {
	githubURL string
	token     string
	jobs      JobSearcher
	events    EventStore
}

// newTestServer はテスト用のGatewayサーバーを生成する。
// イベントログはインメモリSQLiteを使用する。
func newTestServer(t *testing.T, opts testServerOptions) (*Server, *logtest.Hook) {
	t.Helper()

	logger, hook := logtest.NewNullLogger()

	profiles, err := githubapi.New(opts.token, githubapi.WithBaseURL(opts.githubURL))
	require.NoError(t, err)

	events := opts.events
	if events == nil {
		store, err := eventlog.Open(context.Background(), ":memory:", logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })
		events = store
	}

	s := &Server{
		router:   newRouter(logger, []string{"http://localhost:5173"}),
		port:     "0",
		logger:   logger,
		profiles: profiles,
		jobs:     opts.jobs,
		events:   events,
	}
	s.setupRoutes()

	return s, hook
}

// doJSON はJSONボディ付きのリクエストをサーバーに送る。
func doJSON(t *testing.T, s *Server, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

// decodeBody はレスポンスボディをmapにデコードする。
func decodeBody(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), "body=%s", w.Body.String())
	return body
}

// recentEvents はイベントログから直近のイベントを取得する。
func recentEvents(t *testing.T, s *Server) []*event.Event {
	t.Helper()

	events, err := s.events.Recent(context.Background(), eventlog.MaxLimit)
	require.NoError(t, err)
	return events
}

// failingStore は常にエラーを返すEventStore。
type failingStore struct{}

func (failingStore) Append(context.Context, *event.Event) error {
	return errors.New("disk I/O error")
}

func (failingStore) Recent(context.Context, int) ([]*event.Event, error) {
	return nil, errors.New("disk I/O error")
}

// TestGatewayHealthCheck はヘルスチェックエンドポイントを検証する。
func TestGatewayHealthCheck(t *testing.T) {
	t.Parallel()

	_, gh := newFakeGitHub(t)
	s, _ := newTestServer(t, testServerOptions{githubURL: gh.URL})

	w := doJSON(t, s, http.MethodGet, "/health", "")

	if w.Code != http.StatusOK {
		t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusOK)
	}
	body := decodeBody(t, w)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "gateway", body["service"])
}

// TestNoRoute は存在しないルートへのリクエストを検証する。
func TestNoRoute(t *testing.T) {
	t.Parallel()

	_, gh := newFakeGitHub(t)
	s, _ := newTestServer(t, testServerOptions{githubURL: gh.URL})

	t.Run("存在しないAPIルートはメソッドとURLを含む404が返ること", func(t *testing.T) {
		t.Parallel()

		w := doJSON(t, s, http.MethodGet, "/api/unknown?x=1", "")

		if w.Code != http.StatusNotFound {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
		assert.Equal(t, "API route not found: GET /api/unknown?x=1", decodeBody(t, w)["error"])
	})

	t.Run("定義と異なるメソッドも404になること", func(t *testing.T) {
		t.Parallel()

		w := doJSON(t, s, http.MethodGet, "/api/github/analyze", "")

		if w.Code != http.StatusNotFound {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
		assert.Equal(t, "API route not found: GET /api/github/analyze", decodeBody(t, w)["error"])
	})

	t.Run("API以外のパスは汎用の404が返ること", func(t *testing.T) {
		t.Parallel()

		w := doJSON(t, s, http.MethodGet, "/index.html", "")

		if w.Code != http.StatusNotFound {
			t.Fatalf("ステータスコード: got %d, want %d", w.Code, http.StatusNotFound)
		}
		assert.Equal(t, "not found", decodeBody(t, w)["error"])
	})
}

// TestMiddlewareWiring はルーターに共通ミドルウェアが適用されていることを検証する。
func TestMiddlewareWiring(t *testing.T) {
	t.Parallel()

	_, gh := newFakeGitHub(t)
	s, hook := newTestServer(t, testServerOptions{githubURL: gh.URL})

	t.Run("レスポンスにリクエストIDが付与されアクセスログが出力されること", func(t *testing.T) {
		w := doJSON(t, s, http.MethodGet, "/health", "")

		assert.NotEmpty(t, w.Header().Get(middleware.HeaderRequestID))

		var found bool
		for _, e := range hook.AllEntries() {
			if e.Data["path"] == "/health" && e.Level == logrus.InfoLevel {
				found = true
			}
		}
		assert.True(t, found, "アクセスログが出力されていない")
	})

	t.Run("許可されたオリジンからのプリフライトが成功すること", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/github/analyze", nil)
		req.Header.Set("Origin", "http://localhost:5173")
		req.Header.Set("Access-Control-Request-Method", http.MethodPost)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)

		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "http://localhost:5173", w.Header().Get("Access-Control-Allow-Origin"))
	})
}

// TestNewServer は設定からサーバーを組み立てられることを検証する。
func TestNewServer(t *testing.T) {
	t.Parallel()

	t.Run("Adzunaが未設定の場合は求人検索が固定レスポンスになること", func(t *testing.T) {
		t.Parallel()

		logger, _ := logtest.NewNullLogger()
		cfg := &config.Config{
			Port:               "0",
			GitHubAPIURL:       "https://api.github.com/",
			UpstreamTimeout:    githubapi.DefaultTimeout,
			CORSAllowedOrigins: []string{"http://localhost:5173"},
			DatabasePath:       ":memory:",
		}

		s, err := NewServer(context.Background(), cfg, logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		assert.Nil(t, s.jobs)
		assert.False(t, s.profiles.Authenticated())

		w := doJSON(t, s, http.MethodPost, "/api/jobs/search", `{"company":"acme","role":"dev"}`)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"jobs":[],"keywords":["React","Node.js","AWS"]}`, w.Body.String())
	})

	t.Run("認証情報が設定されている場合はクライアントに反映されること", func(t *testing.T) {
		t.Parallel()

		logger, _ := logtest.NewNullLogger()
		cfg := &config.Config{
			Port:            "0",
			GitHubToken:     "ghp_test",
			GitHubAPIURL:    "https://api.github.com/",
			UpstreamTimeout: githubapi.DefaultTimeout,
			AdzunaAppID:     "app",
			AdzunaAPIKey:    "key",
			AdzunaAPIURL:    "https://api.adzuna.com",
			AdzunaCountry:   "us",
			DatabasePath:    ":memory:",
		}

		s, err := NewServer(context.Background(), cfg, logger)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		assert.NotNil(t, s.jobs)
		assert.True(t, s.profiles.Authenticated())
	})
}

// TestRun はRunがコンテキストのキャンセルで停止することを検証する。
func TestRun(t *testing.T) {
	t.Parallel()

	_, gh := newFakeGitHub(t)
	s, _ := newTestServer(t, testServerOptions{githubURL: gh.URL})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, s.Run(ctx))
}
