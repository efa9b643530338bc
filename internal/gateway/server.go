package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/nao1215/careerlens/internal/config"
	"github.com/nao1215/careerlens/internal/eventlog"
	"github.com/nao1215/careerlens/pkg/adzuna"
	"github.com/nao1215/careerlens/pkg/event"
	"github.com/nao1215/careerlens/pkg/githubapi"
	"github.com/nao1215/careerlens/pkg/middleware"
	"github.com/nao1215/careerlens/pkg/resume"
)

// shutdownTimeout はRunのコンテキストがキャンセルされた後、処理中のリクエストを待つ時間。
const shutdownTimeout = 10 * time.Second

// ProfileFetcher はGitHubプロフィールを取得するインターフェース。
type ProfileFetcher interface {
	FetchProfile(ctx context.Context, username string) (*githubapi.Profile, error)
	Authenticated() bool
}

// JobSearcher は求人を検索するインターフェース。
type JobSearcher interface {
	Search(ctx context.Context, company, role string) ([]json.RawMessage, error)
}

// EventStore はイベントログの追記と参照を行うインターフェース。
type EventStore interface {
	Append(ctx context.Context, e *event.Event) error
	Recent(ctx context.Context, limit int) ([]*event.Event, error)
}

// Server はAPI GatewayサービスのHTTPサーバー。
type Server struct {
	// router はGinのHTTPルーター。
	router *gin.Engine
	// port はサーバーのリッスンポート。
	port string
	// logger はハンドラ内で使うロガー。
	logger logrus.FieldLogger
	// profiles はGitHubプロフィールの取得先。
	profiles ProfileFetcher
	// jobs は求人検索の呼び出し先。nilの場合は固定レスポンスを返す。
	jobs JobSearcher
	// events はイベントログ。
	events EventStore
	// renderResume は履歴書を.docxに変換する。nilの場合はresume.Renderを使う。
	renderResume func(*resume.Resume) ([]byte, error)
	// closeFn はサーバー終了時に解放するリソースのクローズ処理。
	closeFn func() error
}

// NewServer は設定から外部APIクライアントとイベントログを組み立ててサーバーを生成する。
func NewServer(ctx context.Context, cfg *config.Config, logger *logrus.Logger) (*Server, error) {
	profiles, err := githubapi.New(cfg.GitHubToken,
		githubapi.WithBaseURL(cfg.GitHubAPIURL),
		githubapi.WithTimeout(cfg.UpstreamTimeout),
	)
	if err != nil {
		return nil, fmt.Errorf("GitHubクライアントの生成に失敗: %w", err)
	}

	// 型付きnilをインターフェースに入れないよう、有効な場合のみ代入する
	var jobs JobSearcher
	if cfg.AdzunaEnabled() {
		client, err := adzuna.New(adzuna.Config{
			AppID:   cfg.AdzunaAppID,
			AppKey:  cfg.AdzunaAPIKey,
			BaseURL: cfg.AdzunaAPIURL,
			Country: cfg.AdzunaCountry,
			Timeout: cfg.UpstreamTimeout,
		})
		if err != nil {
			return nil, fmt.Errorf("Adzunaクライアントの生成に失敗: %w", err)
		}
		jobs = client
	}

	store, err := eventlog.Open(ctx, cfg.DatabasePath, logger)
	if err != nil {
		return nil, fmt.Errorf("イベントログの初期化に失敗: %w", err)
	}

	s := &Server{
		router:   newRouter(logger, cfg.CORSAllowedOrigins),
		port:     cfg.Port,
		logger:   logger,
		profiles: profiles,
		jobs:     jobs,
		events:   store,
		closeFn:  store.Close,
	}
	s.setupRoutes()

	return s, nil
}

// newRouter は共通ミドルウェアを適用したGinルーターを生成する。
func newRouter(logger logrus.FieldLogger, allowedOrigins []string) *gin.Engine {
	router := gin.New()
	router.Use(middleware.Recovery(logger))
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.CORS(allowedOrigins))
	return router
}

// Run はHTTPサーバーを起動し、ctxがキャンセルされるとグレースフルに停止する。
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + s.port,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("サーバーの停止に失敗: %w", err)
	}
	return nil
}

// Close はサーバーが保持するリソースを解放する。
func (s *Server) Close() error {
	if s.closeFn == nil {
		return nil
	}
	return s.closeFn()
}

// setupRoutes はAPIルーティングを設定する。
func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		github := api.Group("/github")
		{
			// 固定のインサイトを返す分析
			github.POST("/analyze", s.handleAnalyzeProfile())
			// プロフィールとリポジトリの集計
			github.POST("/fetch", s.handleFetchProfile())
		}

		api.POST("/jobs/search", s.handleSearchJobs())
		api.POST("/resume/docx", s.handleResumeDocx())
		api.GET("/events", s.handleListEvents())
	}

	// ヘルスチェック
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "service": "gateway"})
	})

	s.router.NoRoute(func(c *gin.Context) {
		if !strings.HasPrefix(c.Request.URL.Path, "/api/") {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.JSON(http.StatusNotFound, gin.H{
			"error": fmt.Sprintf("API route not found: %s %s", c.Request.Method, c.Request.URL.RequestURI()),
		})
	})
}

// record はイベントを生成してイベントログに追記する。
// 失敗してもリクエストの処理は継続し、ログに警告を出力するだけにする。
func (s *Server) record(c *gin.Context, subject string, subjectType event.SubjectType, eventType event.Type, data any) {
	if s.events == nil {
		return
	}

	requestID := middleware.GetRequestID(c)
	entry := s.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"event_type": eventType,
		"subject":    subject,
	})

	e, err := event.New(subject, subjectType, eventType, requestID, data)
	if err != nil {
		entry.WithError(err).Warn("イベントの生成に失敗しました")
		return
	}
	if err := s.events.Append(c.Request.Context(), e); err != nil {
		entry.WithError(err).Warn("イベントの記録に失敗しました")
	}
}
