// Package refresh はキャッシュを事前に温めるバックグラウンドジョブを提供する。
// cron式のスケジュールで全セクションの取得パイプラインを実行する。
package refresh

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hitoshi/newsdesk/internal/engine"
	"github.com/hitoshi/newsdesk/internal/section"
)

// DefaultSchedule は既定の実行間隔。キャッシュTTL（30分）より短くする。
const DefaultSchedule = "@every 15m"

// SectionFetcher は取得パイプラインの実行インターフェース。
type SectionFetcher interface {
	Fetch(ctx context.Context, section string) engine.Result
}

// Summary は1回の実行結果。
type Summary struct {
	Scopes         int
	Articles       int
	FailedAdapters int
}

// Scheduler はcronスケジュールでキャッシュの事前取得を行う。
// 前回の実行が終わっていない場合、その回はスキップする。
type Scheduler struct {
	cron     *cron.Cron
	schedule cron.Schedule
	chain    cron.Chain
	fetcher  SectionFetcher
	logger   *slog.Logger
	scopes   []string
}

// NewScheduler はSchedulerを生成する。
// specは標準のcron式または "@every 15m" 形式の記述子。空の場合はDefaultScheduleを使う。
func NewScheduler(spec string, fetcher SectionFetcher, logger *slog.Logger) (*Scheduler, error) {
	if spec == "" {
		spec = DefaultSchedule
	}
	schedule, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}

	cl := cronLogger{logger: logger}

	// 各セクションを温めた後、全セクションの結合結果を温める
	scopes := make([]string, 0, len(section.Names)+1)
	for _, name := range section.Names {
		scopes = append(scopes, string(name))
	}
	scopes = append(scopes, "")

	return &Scheduler{
		cron:     cron.New(cron.WithLogger(cl)),
		schedule: schedule,
		chain:    cron.NewChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		fetcher:  fetcher,
		logger:   logger,
		scopes:   scopes,
	}, nil
}

// Start はスケジューラを起動し、コンテキストがキャンセルされるまでブロックする。
// 起動直後に1回実行する。停止時は実行中のジョブの完了を待つ。
func (s *Scheduler) Start(ctx context.Context) {
	s.cron.Schedule(s.schedule, s.chain.Then(cron.FuncJob(func() {
		s.RunOnce(ctx)
	})))
	s.cron.Start()

	s.logger.Info("リフレッシュスケジューラを開始しました",
		slog.Int("scope_count", len(s.scopes)),
	)

	s.RunOnce(ctx)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("リフレッシュスケジューラを停止しました")
}

// RunOnce は全スコープを1回ずつ取得してキャッシュを更新する。
func (s *Scheduler) RunOnce(ctx context.Context) Summary {
	start := time.Now()
	var sum Summary

	for _, scope := range s.scopes {
		if ctx.Err() != nil {
			break
		}
		res := s.fetcher.Fetch(ctx, scope)
		sum.Scopes++
		sum.Articles += len(res.Articles)
		sum.FailedAdapters += len(res.FailedAdapters)
	}

	s.logger.Info("リフレッシュサイクルが完了しました",
		slog.Int("scope_count", sum.Scopes),
		slog.Int("article_count", sum.Articles),
		slog.Int("failed_adapters", sum.FailedAdapters),
		slog.Float64("duration_ms", float64(time.Since(start).Milliseconds())),
	)
	return sum
}

// cronLogger はcron.Loggerをslogに接続する。
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	args := append([]interface{}{slog.String("error", err.Error())}, keysAndValues...)
	l.logger.Error(msg, args...)
}
