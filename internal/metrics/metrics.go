// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// キャッシュ参照結果のラベル値。
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

// MetricsCollector はメトリクス収集のインターフェース。
// エンジンやソースアダプタから利用する。
type MetricsCollector interface {
	RecordAdapterSuccess(adapter string, records int)
	RecordAdapterFailure(adapter string, reason string)
	RecordHTTPStatus(adapter string, statusCode int)
	RecordAdapterLatency(adapter string, duration time.Duration)
	RecordNormalizeDropped(adapter string, count int)
	RecordCacheResult(result string)
	RecordArticlesReturned(scope string, count int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	adapterSuccess   *prometheus.CounterVec
	adapterFail      *prometheus.CounterVec
	recordsFetched   *prometheus.CounterVec
	httpStatus       *prometheus.CounterVec
	adapterLatency   *prometheus.HistogramVec
	normalizeDropped *prometheus.CounterVec
	cacheResults     *prometheus.CounterVec
	articlesReturned *prometheus.GaugeVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		adapterSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_adapter_fetch_success_total",
			Help: "アダプタ取得成功の合計数",
		}, []string{"adapter"}),
		adapterFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_adapter_fetch_fail_total",
			Help: "アダプタ取得失敗の合計数",
		}, []string{"adapter", "reason"}),
		recordsFetched: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_records_fetched_total",
			Help: "アダプタが返した未正規化レコードの合計数",
		}, []string{"adapter"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_http_status_total",
			Help: "プロバイダのHTTPステータスコード別のレスポンス数",
		}, []string{"adapter", "status_code"}),
		adapterLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "newsdesk_adapter_latency_seconds",
			Help:    "アダプタ取得のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"adapter"}),
		normalizeDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_normalize_dropped_total",
			Help: "正規化できず除外したレコードの合計数",
		}, []string{"adapter"}),
		cacheResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "newsdesk_cache_results_total",
			Help: "キャッシュ参照結果（hit/miss/error）の合計数",
		}, []string{"result"}),
		articlesReturned: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "newsdesk_articles_returned",
			Help: "直近の取得で返した記事数",
		}, []string{"scope"}),
	}

	reg.MustRegister(
		c.adapterSuccess,
		c.adapterFail,
		c.recordsFetched,
		c.httpStatus,
		c.adapterLatency,
		c.normalizeDropped,
		c.cacheResults,
		c.articlesReturned,
	)

	return c
}

// RecordAdapterSuccess はアダプタ取得成功と取得レコード数を記録する。
func (c *Collector) RecordAdapterSuccess(adapter string, records int) {
	c.adapterSuccess.WithLabelValues(adapter).Inc()
	c.recordsFetched.WithLabelValues(adapter).Add(float64(records))
}

// RecordAdapterFailure はアダプタ取得失敗を記録する。
func (c *Collector) RecordAdapterFailure(adapter string, reason string) {
	c.adapterFail.WithLabelValues(adapter, reason).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(adapter string, statusCode int) {
	c.httpStatus.WithLabelValues(adapter, strconv.Itoa(statusCode)).Inc()
}

// RecordAdapterLatency はアダプタ取得のレイテンシを記録する。
func (c *Collector) RecordAdapterLatency(adapter string, duration time.Duration) {
	c.adapterLatency.WithLabelValues(adapter).Observe(duration.Seconds())
}

// RecordNormalizeDropped は正規化で除外したレコード数を記録する。
func (c *Collector) RecordNormalizeDropped(adapter string, count int) {
	if count <= 0 {
		return
	}
	c.normalizeDropped.WithLabelValues(adapter).Add(float64(count))
}

// RecordCacheResult はキャッシュ参照結果を記録する。
func (c *Collector) RecordCacheResult(result string) {
	c.cacheResults.WithLabelValues(result).Inc()
}

// RecordArticlesReturned は返却した記事数を記録する。
func (c *Collector) RecordArticlesReturned(scope string, count int) {
	c.articlesReturned.WithLabelValues(scope).Set(float64(count))
}

// Nop は何も記録しないMetricsCollector。テストやメトリクス無効時に使う。
type Nop struct{}

func (Nop) RecordAdapterSuccess(string, int)           {}
func (Nop) RecordAdapterFailure(string, string)        {}
func (Nop) RecordHTTPStatus(string, int)               {}
func (Nop) RecordAdapterLatency(string, time.Duration) {}
func (Nop) RecordNormalizeDropped(string, int)         {}
func (Nop) RecordCacheResult(string)                   {}
func (Nop) RecordArticlesReturned(string, int)         {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsのみを提供するHTTPハンドラーを返す。
// APIサーバーを持たないworkerプロセスのスクレイプ用。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
