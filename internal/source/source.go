// Package source はニュースプロバイダとRSSフィードから未正規化レコードを取得するアダプタを提供する。
// アダプタは正規化を行わず、プロバイダのレスポンスをそのままRawRecordとして返す。
package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"github.com/hitoshi/newsdesk/internal/metrics"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/section"
)

const (
	// MaxRecords は1アダプタ1回あたりの最大取得件数。
	MaxRecords = 20
	// DefaultMaxBodySize はレスポンスボディの既定上限（5MB）。
	DefaultMaxBodySize int64 = 5 * 1024 * 1024

	userAgent = "Newsdesk/1.0 Financial News Aggregator"
)

// Adapter は1つの取得元からセクションに対応するレコードを取得する。
// エラーを返した場合、呼び出し元は0件として扱う。
type Adapter interface {
	Name() string
	Origin() model.OriginType
	Fetch(ctx context.Context, sec section.Section) ([]model.RawRecord, error)
}

// Options はアダプタ共通の依存関係。
// ゼロ値のフィールドには既定値が使われる。
type Options struct {
	HTTPClient  *http.Client
	Limiter     *rate.Limiter
	Metrics     metrics.MetricsCollector
	Logger      *slog.Logger
	MaxBodySize int64
	// Endpoint はテスト用にAPIエンドポイントを差し替える。
	Endpoint string
}

func (o Options) withDefaults(endpoint string) Options {
	if o.HTTPClient == nil {
		o.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if o.Metrics == nil {
		o.Metrics = metrics.Nop{}
	}
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.MaxBodySize <= 0 {
		o.MaxBodySize = DefaultMaxBodySize
	}
	if o.Endpoint == "" {
		o.Endpoint = endpoint
	}
	return o
}

// NewProviderLimiter はプロバイダ単位の外向きレート制限を生成する。
// perMinuteが0以下の場合はnil（制限なし）を返す。
func NewProviderLimiter(perMinute int) *rate.Limiter {
	if perMinute <= 0 {
		return nil
	}
	burst := len(section.Names)
	if perMinute < burst {
		burst = perMinute
	}
	return rate.NewLimiter(rate.Limit(float64(perMinute)/60), burst)
}

// apiClient はキーワード検索型JSON APIの共通処理。
type apiClient struct {
	name string
	opts Options
}

// getRecords はエンドポイントを呼び出し、JSONオブジェクトのfieldに含まれる配列をレコードとして返す。
// fieldが存在しない場合は空リストを返す。
func (c *apiClient) getRecords(ctx context.Context, params url.Values, field string) ([]model.RawRecord, error) {
	if c.opts.Limiter != nil {
		if err := c.opts.Limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%s: レート制限の待機に失敗: %w", c.name, err)
		}
	}

	reqURL, err := url.Parse(c.opts.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("%s: エンドポイントURLのパースに失敗: %w", c.name, err)
	}
	reqURL.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("%s: リクエスト作成に失敗: %w", c.name, err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s: HTTPリクエスト失敗: %w", c.name, err)
	}
	defer resp.Body.Close()

	c.opts.Metrics.RecordHTTPStatus(c.name, resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		return nil, model.StatusError(c.name, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.opts.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%s: レスポンス読み取り失敗: %w", c.name, err)
	}

	var envelope map[string]json.RawMessage
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", c.name, model.ErrDecode, err)
	}

	rawList, ok := envelope[field]
	if !ok || string(rawList) == "null" {
		return []model.RawRecord{}, nil
	}

	var items []any
	if err := json.Unmarshal(rawList, &items); err != nil {
		return nil, fmt.Errorf("%s: %w: %s is not an array: %v", c.name, model.ErrDecode, field, err)
	}

	return toRecords(items), nil
}

// toRecords は配列要素をRawRecordに変換する。
// オブジェクト以外の要素はnilレコードとして残し、正規化で除外させる。
func toRecords(items []any) []model.RawRecord {
	if len(items) > MaxRecords {
		items = items[:MaxRecords]
	}
	records := make([]model.RawRecord, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			records = append(records, nil)
			continue
		}
		records = append(records, model.RawRecord(m))
	}
	return records
}
