package handler

import (
	"context"
	"net/http"

	"github.com/hitoshi/newsdesk/internal/engine"
	"github.com/hitoshi/newsdesk/internal/middleware"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/section"
)

// ArticleFetcher は記事ハンドラーが必要とする取得インターフェース。
type ArticleFetcher interface {
	// Fetch はセクションの記事を取得する。空文字列は全セクション。
	Fetch(ctx context.Context, section string) engine.Result
}

// ArticleHandler は記事取得のHTTPハンドラー。
type ArticleHandler struct {
	fetcher  ArticleFetcher
	registry *section.Registry
}

// NewArticleHandler はArticleHandlerを生成する。
func NewArticleHandler(fetcher ArticleFetcher, registry *section.Registry) *ArticleHandler {
	return &ArticleHandler{fetcher: fetcher, registry: registry}
}

// --- レスポンス型 ---

// articlesResponse は記事一覧のレスポンス。
// 一部のアダプタが失敗した場合もfailed_adaptersに列挙して200で返す。
type articlesResponse struct {
	Section        string          `json:"section"`
	Articles       []model.Article `json:"articles"`
	Count          int             `json:"count"`
	FailedAdapters []string        `json:"failed_adapters"`
	RunID          string          `json:"run_id"`
}

// sectionsResponse はセクション一覧のレスポンス。
type sectionsResponse struct {
	Sections []section.Section `json:"sections"`
}

// ListArticles はGET /api/articles を処理する。
// sectionクエリが未指定の場合は全セクションを返す。取得失敗時も空リストで200を返す。
func (h *ArticleHandler) ListArticles(w http.ResponseWriter, r *http.Request) {
	res := h.fetcher.Fetch(r.Context(), r.URL.Query().Get("section"))

	articles := res.Articles
	if articles == nil {
		articles = []model.Article{}
	}
	failed := res.FailedAdapters
	if failed == nil {
		failed = []string{}
	}

	middleware.WriteJSON(w, http.StatusOK, articlesResponse{
		Section:        res.Scope,
		Articles:       articles,
		Count:          len(articles),
		FailedAdapters: failed,
		RunID:          res.RunID,
	})
}

// ListSections はGET /api/sections を処理する。
func (h *ArticleHandler) ListSections(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, sectionsResponse{Sections: h.registry.All()})
}
