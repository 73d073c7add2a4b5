package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hitoshi/newsdesk/internal/middleware"
)

// HealthChecker は依存先（共有キャッシュなど）の疎通確認インターフェース。
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// healthCheckTimeout はヘルスチェック1回あたりの待ち時間の上限。
const healthCheckTimeout = 2 * time.Second

// NewHealthHandler はGET /health のハンドラーを返す。
// checkerがnilの場合は常にokを返す。
func NewHealthHandler(checker HealthChecker, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker != nil {
			ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
			defer cancel()
			if err := checker.Ping(ctx); err != nil {
				logger.Warn("health check failed", slog.String("error", err.Error()))
				middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}
