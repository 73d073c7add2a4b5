package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/newsdesk/internal/cache"
	"github.com/hitoshi/newsdesk/internal/config"
	"github.com/hitoshi/newsdesk/internal/engine"
	"github.com/hitoshi/newsdesk/internal/handler"
	"github.com/hitoshi/newsdesk/internal/logger"
	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/middleware"
	"github.com/hitoshi/newsdesk/internal/normalize"
	"github.com/hitoshi/newsdesk/internal/section"
	"github.com/hitoshi/newsdesk/internal/security"
	"github.com/hitoshi/newsdesk/internal/source"
	"github.com/hitoshi/newsdesk/internal/worker/refresh"
)

// Init はアプリケーションの初期化を行う。
// JSON構造化ログをセットアップしてから、環境変数からConfigを読み込む。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, logger.ParseLevel(os.Getenv("LOG_LEVEL")))

	// 2. 環境変数から設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	return cfg, nil
}

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。ログはwに、fetchの結果は標準出力に書き出す。
func Run(w io.Writer, args []string) error {
	cmd := ParseCommand(args)

	// healthcheck は軽量サブコマンドのため、フル初期化をスキップする
	if cmd == CommandHealthcheck {
		port := os.Getenv("SERVER_PORT")
		if port == "" {
			port = "8080"
		}
		return runHealthcheck(port)
	}

	cfg, err := Init(w)
	if err != nil {
		return fmt.Errorf("initialization failed: %w", err)
	}

	slog.Info("starting application",
		slog.String("command", string(cmd)),
		slog.String("port", cfg.ServerPort),
		slog.Bool("gnews_enabled", cfg.GNewsAPIKey != ""),
		slog.Bool("mediastack_enabled", cfg.MediastackAPIKey != ""),
		slog.Bool("redis_enabled", cfg.RedisURL != ""),
	)

	switch cmd {
	case CommandWorker:
		return runWorker(cfg)
	case CommandFetch:
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return runFetch(ctx, cfg, os.Stdout, fetchSection(args))
	default:
		return runServe(cfg)
	}
}

// components は全モード共通の依存関係。
type components struct {
	engine   *engine.Engine
	registry *section.Registry
	gatherer prometheus.Gatherer
	// redis はREDIS_URL未設定の場合nil。
	redis *cache.RedisStore
}

// close はcomponentsが保持する外部接続を閉じる。
func (c *components) close() {
	if c.redis == nil {
		return
	}
	if err := c.redis.Close(); err != nil {
		slog.Warn("failed to close redis client", slog.String("error", err.Error()))
	}
}

// buildComponents は設定から取得パイプラインを構築する。
// APIキーが未設定のプロバイダは無効化し、RSSのみで動作させる。
func buildComponents(ctx context.Context, cfg *config.Config) (*components, error) {
	log := slog.Default()

	// 1. メトリクス
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(reg)

	// 2. セキュリティ
	guard := security.NewGuard()
	httpClient := guard.NewSafeClient(cfg.FetchTimeout)

	sourceOpts := func() source.Options {
		return source.Options{
			HTTPClient:  httpClient,
			Limiter:     source.NewProviderLimiter(cfg.ProviderRatePerMin),
			Metrics:     collector,
			Logger:      log,
			MaxBodySize: cfg.FetchMaxSize,
		}
	}

	// 3. アダプタ（宣言順がマージ順になる）
	var apiAdapters []source.Adapter
	if cfg.GNewsAPIKey != "" {
		apiAdapters = append(apiAdapters, source.NewGNews(cfg.GNewsAPIKey, sourceOpts()))
	} else {
		log.Info("gnews adapter disabled: GNEWS_API_KEY is not set")
	}
	if cfg.MediastackAPIKey != "" {
		apiAdapters = append(apiAdapters, source.NewMediastack(cfg.MediastackAPIKey, sourceOpts()))
	} else {
		log.Info("mediastack adapter disabled: MEDIASTACK_API_KEY is not set")
	}

	// RSSはフィード単位で取得し、プロバイダ単位のレート制限は掛けない
	rssOpts := source.Options{
		HTTPClient:  httpClient,
		Metrics:     collector,
		Logger:      log,
		MaxBodySize: cfg.FetchMaxSize,
	}
	rssFactory := func(feedURL string) source.Adapter {
		return source.NewRSS(feedURL, guard, rssOpts)
	}

	// 4. キャッシュ
	c := &components{
		registry: section.NewRegistry(cfg.Feeds),
		gatherer: reg,
	}
	var store cache.Store
	if cfg.RedisURL != "" {
		client, err := cache.OpenRedis(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		c.redis = cache.NewRedisStore(client, cfg.CacheTTL)
		store = c.redis
		log.Info("redis cache connection established")
	} else {
		store = cache.NewMemoryStore(cfg.CacheTTL, cfg.CacheMaxEntries, nil)
	}

	// 5. 取得パイプライン
	c.engine = engine.New(engine.Options{
		Registry:       c.registry,
		APIAdapters:    apiAdapters,
		RSS:            rssFactory,
		Normalizer:     normalize.New(security.NewTextSanitizer()),
		Store:          store,
		Metrics:        collector,
		Logger:         log,
		AdapterTimeout: cfg.AdapterTimeout,
		MaxConcurrent:  cfg.FetchMaxConcurrent,
		MaxResults:     cfg.MaxResults,
	})

	return c, nil
}

// runServe はAPIサーバーモードで起動する。
// 全依存関係をワイヤリングし、HTTPサーバーを起動する。
// SIGINTまたはSIGTERMシグナルを受信するとグレースフルシャットダウンを行う。
func runServe(cfg *config.Config) error {
	c, err := buildComponents(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer c.close()

	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral),
		slog.Default(),
	)
	defer rateLimiter.Stop()

	deps := &handler.RouterDeps{
		Articles:          c.engine,
		Registry:          c.registry,
		Gatherer:          c.gatherer,
		RateLimiter:       rateLimiter,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		Logger:            slog.Default(),
	}
	// インターフェースにnilポインタを入れないよう、Redis利用時のみ設定する
	if c.redis != nil {
		deps.HealthChecker = c.redis
	}

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      handler.NewRouter(deps),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.AdapterTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
		)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server listen error", slog.String("error", err.Error()))
		}
	}()

	<-stop
	slog.Info("shutting down API server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// cronスケジュールで全セクションを取得し、キャッシュを温め続ける。
// メトリクスはSERVER_PORTの/metricsで公開する。
func runWorker(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close()

	if cfg.RedisURL == "" {
		slog.Warn("worker is using an in-memory cache; warmed results are not shared with the API server")
	}

	scheduler, err := refresh.NewScheduler(cfg.RefreshSchedule, c.engine, slog.Default())
	if err != nil {
		return err
	}

	metricsServer := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      metrics.SetupMetricsRoute(c.gatherer),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server listen error", slog.String("error", err.Error()))
		}
	}()

	// グレースフルシャットダウンのためのシグナルハンドリング
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-stop
		slog.Info("shutting down worker...")
		cancel()
	}()

	slog.Info("worker starting",
		slog.String("schedule", cfg.RefreshSchedule),
		slog.Int("max_concurrent", cfg.FetchMaxConcurrent),
	)

	// スケジューラをメインgoroutineで実行（ブロッキング）
	scheduler.Start(ctx)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := metricsServer.Shutdown(shutdownCtx); err != nil {
		slog.Warn("metrics server shutdown failed", slog.String("error", err.Error()))
	}

	slog.Info("worker stopped gracefully")
	return nil
}

// runFetch は取得パイプラインを1回実行し、結果をJSONでoutに書き出す。
// sectionが空の場合は全セクションを取得する。
func runFetch(ctx context.Context, cfg *config.Config, out io.Writer, sectionInput string) error {
	c, err := buildComponents(ctx, cfg)
	if err != nil {
		return err
	}
	defer c.close()

	result := c.engine.Fetch(ctx, sectionInput)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(port string) error {
	url := fmt.Sprintf("http://localhost:%s/health", port)
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}
