// Package handler はHTTP APIのルーティングとハンドラーを提供する。
package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/middleware"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/section"
)

// RouterDeps はNewRouterに必要な依存関係をまとめた構造体。
type RouterDeps struct {
	Articles ArticleFetcher
	Registry *section.Registry

	// HealthChecker がnilの場合、/health は常にokを返す。
	HealthChecker HealthChecker
	// Gatherer がnilの場合、/metrics は公開しない。
	Gatherer prometheus.Gatherer
	// RateLimiter がnilの場合、レート制限は行わない。
	RateLimiter *middleware.RateLimiter

	CORSAllowedOrigin string
	Logger            *slog.Logger
}

// NewRouter は全エンドポイントのルーティングとミドルウェアチェーンを構成したchi.Routerを返す。
//
// ミドルウェアスタックの実行順序:
//
//	Recovery → Logging → CORS → SecurityHeaders → RateLimit（/api/* のみ）
func NewRouter(deps *RouterDeps) http.Handler {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	registry := deps.Registry
	if registry == nil {
		registry = section.NewRegistry(nil)
	}

	r := chi.NewRouter()

	r.Use(middleware.NewRecoveryMiddleware(logger))
	r.Use(middleware.NewLoggingMiddleware(logger))
	r.Use(middleware.NewCORSMiddleware(deps.CORSAllowedOrigin))
	r.Use(middleware.NewSecurityHeadersMiddleware())

	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		middleware.WriteErrorResponse(w, http.StatusNotFound, model.NewNotFoundError(req.URL.Path))
	})

	r.Get("/health", NewHealthHandler(deps.HealthChecker, logger))
	if deps.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(deps.Gatherer))
	}

	articleHandler := NewArticleHandler(deps.Articles, registry)

	r.Route("/api", func(r chi.Router) {
		if deps.RateLimiter != nil {
			r.Use(deps.RateLimiter.Middleware())
		}
		r.Get("/articles", articleHandler.ListArticles)
		r.Get("/sections", articleHandler.ListSections)
	})

	return r
}
