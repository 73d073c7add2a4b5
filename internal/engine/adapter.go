package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/hitoshi/newsdesk/internal/cache"
	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/section"
	"github.com/hitoshi/newsdesk/internal/source"
)

// adapterResult は1アダプタ分の正規化済み記事。
type adapterResult struct {
	articles []model.Article
	dropped  int
	failed   bool
}

// panicError はアダプタ内で発生したpanicを表す。
type panicError struct {
	value any
}

func (e *panicError) Error() string {
	return fmt.Sprintf("adapter panic: %v", e.value)
}

// runAdapter はアダプタを1回実行する。
// APIアダプタの結果は (アダプタ, セクション) 単位でキャッシュし、
// 同じキーへの同時ミスはsingleflightで1回の取得にまとめる。失敗した結果はキャッシュしない。
// 各呼び出し元は自身のコンテキストが終了した時点で待機をやめ、失敗として扱う。
func (e *Engine) runAdapter(ctx context.Context, a source.Adapter, sec section.Section, logger *slog.Logger) adapterResult {
	if e.store == nil || a.Origin() != model.OriginAPI {
		return e.fetchAndNormalize(ctx, a, sec, logger)
	}

	key := cache.SourceKey(a.Name(), string(sec.Name))
	articles, found, err := e.store.Get(ctx, key)
	switch {
	case err != nil:
		e.metrics.RecordCacheResult(metrics.CacheError)
		logger.Warn("キャッシュの読み取りに失敗しました",
			slog.String("adapter", a.Name()),
			slog.String("section", string(sec.Name)),
			slog.String("error", err.Error()),
		)
	case found:
		e.metrics.RecordCacheResult(metrics.CacheHit)
		return adapterResult{articles: articles}
	default:
		e.metrics.RecordCacheResult(metrics.CacheMiss)
	}

	// 共有取得は最初の呼び出し元のキャンセルに影響されない。上限はアダプタのタイムアウト
	shared := context.WithoutCancel(ctx)
	ch := e.group.DoChan(key, func() (v any, err error) {
		// DoChanは関数内のpanicを別goroutineで再送出するため、ここで回収する
		defer func() {
			if rec := recover(); rec != nil {
				logger.Error("アダプタ結果の共有取得中に予期しないエラーが発生しました",
					slog.String("adapter", a.Name()),
					slog.String("section", string(sec.Name)),
					slog.String("error", fmt.Sprint(rec)),
				)
				v, err = adapterResult{articles: []model.Article{}, failed: true}, nil
			}
		}()
		r := e.fetchAndNormalize(shared, a, sec, logger)
		if r.failed {
			return r, nil
		}
		if err := e.store.Set(shared, key, r.articles); err != nil {
			e.metrics.RecordCacheResult(metrics.CacheError)
			logger.Warn("アダプタ結果のキャッシュ保存に失敗しました",
				slog.String("adapter", a.Name()),
				slog.String("section", string(sec.Name)),
				slog.String("error", err.Error()),
			)
		}
		return r, nil
	})
	select {
	case res := <-ch:
		return res.Val.(adapterResult)
	case <-ctx.Done():
		return adapterResult{articles: []model.Article{}, failed: true}
	}
}

// fetchAndNormalize はハードタイムアウト付きでアダプタを実行し、結果を正規化する。
// タイムアウト、エラー、panicはいずれも0件として扱う。
func (e *Engine) fetchAndNormalize(ctx context.Context, a source.Adapter, sec section.Section, logger *slog.Logger) adapterResult {
	label := adapterLabel(a)
	start := time.Now()

	records, err := e.fetchWithTimeout(ctx, a, sec)
	duration := time.Since(start)
	e.metrics.RecordAdapterLatency(a.Name(), duration)

	if err != nil {
		reason := failureReason(err)
		e.metrics.RecordAdapterFailure(a.Name(), reason)
		logger.Warn("アダプタからの取得に失敗しました",
			slog.String("adapter", label),
			slog.String("section", string(sec.Name)),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
			slog.Float64("duration_ms", float64(duration.Milliseconds())),
		)
		return adapterResult{articles: []model.Article{}, failed: true}
	}
	e.metrics.RecordAdapterSuccess(a.Name(), len(records))

	articles, dropped := e.normalizer.NormalizeAll(records, a.Name(), a.Origin(), e.clock())
	if dropped > 0 {
		e.metrics.RecordNormalizeDropped(a.Name(), dropped)
		logger.Warn("正規化できないレコードを除外しました",
			slog.String("adapter", label),
			slog.String("section", string(sec.Name)),
			slog.Int("dropped", dropped),
		)
	}

	logger.Debug("アダプタからの取得が完了しました",
		slog.String("adapter", label),
		slog.String("section", string(sec.Name)),
		slog.Int("record_count", len(records)),
		slog.Int("article_count", len(articles)),
		slog.Float64("duration_ms", float64(duration.Milliseconds())),
	)
	return adapterResult{articles: articles, dropped: dropped}
}

type fetchOutcome struct {
	records []model.RawRecord
	err     error
}

// fetchWithTimeout はアダプタがコンテキストを無視した場合でもタイムアウトで打ち切る。
func (e *Engine) fetchWithTimeout(ctx context.Context, a source.Adapter, sec section.Section) ([]model.RawRecord, error) {
	ctx, cancel := context.WithTimeout(ctx, e.adapterTimeout)
	defer cancel()

	done := make(chan fetchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchOutcome{err: &panicError{value: r}}
			}
		}()
		records, err := a.Fetch(ctx, sec)
		done <- fetchOutcome{records: records, err: err}
	}()

	select {
	case out := <-done:
		return out.records, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", adapterLabel(a), ctx.Err())
	}
}
