package source

import (
	"context"
	"net/url"
	"strconv"

	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/section"
)

const gnewsEndpoint = "https://gnews.io/api/v4/search"

// GNews はGNews検索APIのアダプタ。キーワードはORで連結する。
type GNews struct {
	apiKey string
	client apiClient
}

// NewGNews はGNewsアダプタを生成する。
func NewGNews(apiKey string, opts Options) *GNews {
	return &GNews{
		apiKey: apiKey,
		client: apiClient{name: "gnews", opts: opts.withDefaults(gnewsEndpoint)},
	}
}

func (g *GNews) Name() string { return g.client.name }

func (g *GNews) Origin() model.OriginType { return model.OriginAPI }

// Fetch はセクションのキーワードで検索し、レスポンスのarticles配列を返す。
func (g *GNews) Fetch(ctx context.Context, sec section.Section) ([]model.RawRecord, error) {
	params := url.Values{}
	params.Set("token", g.apiKey)
	params.Set("q", sec.QueryOR())
	params.Set("lang", "en")
	params.Set("max", strconv.Itoa(MaxRecords))
	return g.client.getRecords(ctx, params, "articles")
}
