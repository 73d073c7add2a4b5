// Package dedup は複数ソースから集めた記事の重複排除と並び替えを提供する。
package dedup

import (
	"sort"

	"github.com/hitoshi/newsdesk/internal/model"
)

// DefaultLimit は1回の結果セットの最大件数。
const DefaultLimit = 50

// Key は重複判定に使うキーを返す。URLが空の場合はタイトルを使う。
// Article.IDはアダプタごとに異なるため、重複判定には使わない。
func Key(a model.Article) string {
	if a.URL != "" {
		return a.URL
	}
	return a.Title
}

// Deduplicate は入力順に走査し、同じキーを持つ記事のうち最初の1件だけを残す。
// フィールド単位のマージは行わない。入力スライスは変更しない。
func Deduplicate(articles []model.Article) []model.Article {
	seen := make(map[string]struct{}, len(articles))
	unique := make([]model.Article, 0, len(articles))
	for _, a := range articles {
		k := Key(a)
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, a)
	}
	return unique
}

// SortAndLimit は公開日時の降順に安定ソートし、先頭limit件を返す。
// 同時刻の記事は入力順を保つ。limitが0以下の場合はDefaultLimitを使う。
func SortAndLimit(articles []model.Article, limit int) []model.Article {
	if limit <= 0 {
		limit = DefaultLimit
	}
	sorted := make([]model.Article, len(articles))
	copy(sorted, articles)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})
	if len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}
