package source

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/section"
)

// URLValidator はフェッチ前のURL検証のインターフェース。
type URLValidator interface {
	ValidateURL(rawURL string) error
}

// RSS は1つのRSS/Atomフィードのアダプタ。
// フィードはセクションに関係なく同じ内容を返す。
type RSS struct {
	feedURL   string
	validator URLValidator
	opts      Options
}

// NewRSS はフィードURLに対するRSSアダプタを生成する。
// validatorがnilの場合はURL検証を行わない。
func NewRSS(feedURL string, validator URLValidator, opts Options) *RSS {
	return &RSS{
		feedURL:   feedURL,
		validator: validator,
		opts:      opts.withDefaults(feedURL),
	}
}

func (r *RSS) Name() string { return "rss" }

func (r *RSS) Origin() model.OriginType { return model.OriginRSS }

// FeedURL は取得対象のフィードURLを返す。
func (r *RSS) FeedURL() string { return r.feedURL }

// Fetch はフィードを取得し、先頭MaxRecords件をレコードとして返す。
// 200以外のステータスはエラーにせず空リストを返す。
func (r *RSS) Fetch(ctx context.Context, _ section.Section) ([]model.RawRecord, error) {
	if r.validator != nil {
		if err := r.validator.ValidateURL(r.feedURL); err != nil {
			return nil, fmt.Errorf("rss: SSRF検証に失敗: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.feedURL, nil)
	if err != nil {
		return nil, fmt.Errorf("rss: リクエスト作成に失敗: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml, */*")

	resp, err := r.opts.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("rss: HTTPリクエスト失敗: %w", err)
	}
	defer resp.Body.Close()

	r.opts.Metrics.RecordHTTPStatus(r.Name(), resp.StatusCode)
	if resp.StatusCode != http.StatusOK {
		r.opts.Logger.Warn("RSSフィードが200以外のステータスを返しました",
			slog.String("feed_url", r.feedURL),
			slog.Int("http_status", resp.StatusCode),
		)
		return []model.RawRecord{}, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, r.opts.MaxBodySize))
	if err != nil {
		return nil, fmt.Errorf("rss: レスポンス読み取り失敗: %w", err)
	}

	parsed, err := gofeed.NewParser().ParseString(string(body))
	if err != nil {
		return nil, fmt.Errorf("rss: %w: %v", model.ErrDecode, err)
	}

	return feedRecords(parsed), nil
}

// feedRecords はgofeedのフィードをRawRecordに変換する。
func feedRecords(feed *gofeed.Feed) []model.RawRecord {
	sourceName := strings.TrimSpace(feed.Title)
	if sourceName == "" {
		sourceName = "RSS"
	}

	items := feed.Items
	if len(items) > MaxRecords {
		items = items[:MaxRecords]
	}

	records := make([]model.RawRecord, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		rec := model.RawRecord{
			"title":   item.Title,
			"summary": item.Description,
			"url":     item.Link,
			"source":  map[string]any{"name": sourceName},
			"type":    string(model.OriginRSS),
		}
		if date := itemDate(item); date != "" {
			rec["date"] = date
		}
		if item.Author != nil && item.Author.Name != "" {
			rec["author"] = item.Author.Name
		}
		records = append(records, rec)
	}
	return records
}

// itemDate は記事の公開日時を返す。パース済みの値があればRFC3339で返す。
func itemDate(item *gofeed.Item) string {
	switch {
	case item.PublishedParsed != nil:
		return item.PublishedParsed.UTC().Format(time.RFC3339)
	case item.Published != "":
		return item.Published
	case item.UpdatedParsed != nil:
		return item.UpdatedParsed.UTC().Format(time.RFC3339)
	default:
		return item.Updated
	}
}
