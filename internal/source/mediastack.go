package source

import (
	"context"
	"net/url"
	"strconv"

	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/section"
)

const mediastackEndpoint = "http://api.mediastack.com/v1/news"

// Mediastack はMediastack APIのアダプタ。キーワードはカンマで連結する。
type Mediastack struct {
	apiKey string
	client apiClient
}

// NewMediastack はMediastackアダプタを生成する。
func NewMediastack(apiKey string, opts Options) *Mediastack {
	return &Mediastack{
		apiKey: apiKey,
		client: apiClient{name: "mediastack", opts: opts.withDefaults(mediastackEndpoint)},
	}
}

func (m *Mediastack) Name() string { return m.client.name }

func (m *Mediastack) Origin() model.OriginType { return model.OriginAPI }

// Fetch はセクションのキーワードで検索し、レスポンスのdata配列を返す。
func (m *Mediastack) Fetch(ctx context.Context, sec section.Section) ([]model.RawRecord, error) {
	params := url.Values{}
	params.Set("access_key", m.apiKey)
	params.Set("keywords", sec.QueryComma())
	params.Set("languages", "en")
	params.Set("limit", strconv.Itoa(MaxRecords))
	return m.client.getRecords(ctx, params, "data")
}
