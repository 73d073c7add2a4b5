// Package engine はセクション単位の記事取得パイプラインを提供する。
// アダプタの並列実行、正規化、重複排除、キャッシュ、並び替えを1回の呼び出しで行う。
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/hitoshi/newsdesk/internal/cache"
	"github.com/hitoshi/newsdesk/internal/dedup"
	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/normalize"
	"github.com/hitoshi/newsdesk/internal/section"
	"github.com/hitoshi/newsdesk/internal/source"
)

// ScopeAll は全セクション取得時のスコープ名。
const ScopeAll = "all"

const (
	defaultAdapterTimeout = 30 * time.Second
	defaultMaxConcurrent  = 4
)

// 失敗理由のラベル値。
const (
	reasonTimeout = "timeout"
	reasonPanic   = "panic"
	reasonStatus  = "status"
	reasonDecode  = "decode"
	reasonError   = "error"
)

// RSSFactory はフィードURLからRSSアダプタを生成する。
type RSSFactory func(feedURL string) source.Adapter

// Options はEngineの依存関係と設定。
type Options struct {
	Registry    *section.Registry
	APIAdapters []source.Adapter
	// RSS がnilの場合、RSSフィードは取得しない。
	RSS        RSSFactory
	Normalizer *normalize.Normalizer
	// Store がnilの場合、キャッシュを使わない。
	Store   cache.Store
	Metrics metrics.MetricsCollector
	Logger  *slog.Logger
	Clock   func() time.Time

	AdapterTimeout time.Duration
	MaxConcurrent  int
	MaxResults     int
}

// Result は1回の取得結果。
// FailedAdaptersが空でない場合、結果は一部のアダプタを欠いた部分結果である。
type Result struct {
	Scope          string          `json:"section"`
	Articles       []model.Article `json:"articles"`
	FailedAdapters []string        `json:"failed_adapters"`
	Dropped        int             `json:"dropped"`
	RunID          string          `json:"run_id"`
}

// Engine は記事取得パイプラインを実行する。
type Engine struct {
	registry       *section.Registry
	apiAdapters    []source.Adapter
	rss            RSSFactory
	normalizer     *normalize.Normalizer
	store          cache.Store
	metrics        metrics.MetricsCollector
	logger         *slog.Logger
	clock          func() time.Time
	adapterTimeout time.Duration
	maxConcurrent  int
	maxResults     int

	group singleflight.Group
}

// New はEngineを生成する。ゼロ値の設定には既定値を使う。
func New(opts Options) *Engine {
	e := &Engine{
		registry:       opts.Registry,
		apiAdapters:    append([]source.Adapter(nil), opts.APIAdapters...),
		rss:            opts.RSS,
		normalizer:     opts.Normalizer,
		store:          opts.Store,
		metrics:        opts.Metrics,
		logger:         opts.Logger,
		clock:          opts.Clock,
		adapterTimeout: opts.AdapterTimeout,
		maxConcurrent:  opts.MaxConcurrent,
		maxResults:     opts.MaxResults,
	}
	if e.registry == nil {
		e.registry = section.NewRegistry(nil)
	}
	if e.normalizer == nil {
		e.normalizer = normalize.New(nil)
	}
	if e.metrics == nil {
		e.metrics = metrics.Nop{}
	}
	if e.logger == nil {
		e.logger = slog.Default()
	}
	if e.clock == nil {
		e.clock = time.Now
	}
	if e.adapterTimeout <= 0 {
		e.adapterTimeout = defaultAdapterTimeout
	}
	if e.maxConcurrent <= 0 {
		e.maxConcurrent = defaultMaxConcurrent
	}
	if e.maxResults <= 0 || e.maxResults > dedup.DefaultLimit {
		e.maxResults = dedup.DefaultLimit
	}
	return e
}

// FetchArticles はセクションの記事を公開日時の新しい順で返す。
// 空文字列の場合は全セクションを取得する。エラーは返さず、失敗時は空リストになる。
func (e *Engine) FetchArticles(ctx context.Context, sectionInput string) []model.Article {
	return e.Fetch(ctx, sectionInput).Articles
}

// Fetch はFetchArticlesと同じ処理を行い、失敗したアダプタなどの付帯情報も返す。
func (e *Engine) Fetch(ctx context.Context, sectionInput string) (res Result) {
	runID := uuid.NewString()
	logger := e.logger.With(slog.String("run_id", runID))
	start := time.Now()

	res = emptyResult(ScopeAll, runID)
	defer func() {
		if r := recover(); r != nil {
			logger.Error("記事取得中に予期しないエラーが発生しました",
				slog.String("section", res.Scope),
				slog.String("error", fmt.Sprint(r)),
				slog.String("stack", string(debug.Stack())),
			)
			res = emptyResult(res.Scope, runID)
		}
	}()

	if name, ok := section.Resolve(sectionInput); ok {
		res.Scope = string(name)
		out := e.runSection(ctx, e.registry.Get(name), logger)
		res.Articles = out.Articles
		res.FailedAdapters = out.FailedAdapters
		res.Dropped = out.Dropped
	} else {
		// 各セクションを単独取得と同じく仕上げ（articles:<section> の保存と上限切り詰めを含む）、
		// その結合に対してもう一度仕上げる。二段階の処理は意図したもの
		var combined []model.Article
		for _, sec := range e.registry.All() {
			out := e.runSection(ctx, sec, logger)
			combined = append(combined, out.Articles...)
			res.FailedAdapters = append(res.FailedAdapters, out.FailedAdapters...)
			res.Dropped += out.Dropped
		}
		res.Articles = e.finish(ctx, ScopeAll, combined, logger)
	}

	e.metrics.RecordArticlesReturned(res.Scope, len(res.Articles))
	logger.Info("記事取得が完了しました",
		slog.String("section", res.Scope),
		slog.Int("article_count", len(res.Articles)),
		slog.Int("failed_adapters", len(res.FailedAdapters)),
		slog.Int("dropped", res.Dropped),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return res
}

func emptyResult(scope, runID string) Result {
	return Result{
		Scope:          scope,
		Articles:       []model.Article{},
		FailedAdapters: []string{},
		RunID:          runID,
	}
}

// runSection は1セクション分のアダプタを並列実行し、宣言順にマージして仕上げる。
// アダプタ順はAPIアダプタ（登録順）の後にフィードごとのRSSアダプタ（フィード順）。
func (e *Engine) runSection(ctx context.Context, sec section.Section, logger *slog.Logger) Result {
	adapters := e.adaptersFor(sec)
	results := make([]adapterResult, len(adapters))

	// semaphoreパターンで並列数を制御
	sem := make(chan struct{}, e.maxConcurrent)
	var wg sync.WaitGroup

	for i, a := range adapters {
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, a source.Adapter) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					logger.Error("アダプタ処理中に予期しないエラーが発生しました",
						slog.String("adapter", adapterLabel(a)),
						slog.String("section", string(sec.Name)),
						slog.String("error", fmt.Sprint(r)),
					)
					results[i] = adapterResult{articles: []model.Article{}, failed: true}
				}
			}()
			results[i] = e.runAdapter(ctx, a, sec, logger)
		}(i, a)
	}
	wg.Wait()

	out := Result{Scope: string(sec.Name), FailedAdapters: []string{}}
	var merged []model.Article
	for i, r := range results {
		merged = append(merged, r.articles...)
		out.Dropped += r.dropped
		if r.failed {
			out.FailedAdapters = append(out.FailedAdapters, adapterLabel(adapters[i]))
		}
	}
	out.Articles = e.finish(ctx, string(sec.Name), merged, logger)
	return out
}

// finish は重複排除した記事セットをキャッシュに保存し、並び替えて上限件数に切り詰める。
// キャッシュ保存の失敗は結果に影響しない。
func (e *Engine) finish(ctx context.Context, scope string, articles []model.Article, logger *slog.Logger) []model.Article {
	unique := dedup.Deduplicate(articles)

	if e.store != nil {
		if err := e.store.Set(ctx, cache.ArticlesKey(scope), unique); err != nil {
			e.metrics.RecordCacheResult(metrics.CacheError)
			logger.Warn("記事セットのキャッシュ保存に失敗しました",
				slog.String("section", scope),
				slog.String("error", err.Error()),
			)
		}
	}

	return dedup.SortAndLimit(unique, e.maxResults)
}

func (e *Engine) adaptersFor(sec section.Section) []source.Adapter {
	adapters := make([]source.Adapter, 0, len(e.apiAdapters)+len(sec.Feeds))
	adapters = append(adapters, e.apiAdapters...)
	if e.rss != nil {
		for _, feedURL := range sec.Feeds {
			adapters = append(adapters, e.rss(feedURL))
		}
	}
	return adapters
}

// adapterLabel はログや部分結果で使うアダプタの識別名を返す。
// RSSアダプタはフィードURLで区別する。
func adapterLabel(a source.Adapter) string {
	if f, ok := a.(interface{ FeedURL() string }); ok {
		return a.Name() + ":" + f.FeedURL()
	}
	return a.Name()
}

// failureReason はエラーをメトリクス用の失敗理由に分類する。
func failureReason(err error) string {
	var pe *panicError
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return reasonTimeout
	case errors.As(err, &pe):
		return reasonPanic
	case errors.Is(err, model.ErrUnexpectedStatus):
		return reasonStatus
	case errors.Is(err, model.ErrDecode):
		return reasonDecode
	default:
		return reasonError
	}
}
