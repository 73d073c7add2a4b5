// Package cache は記事リストの有効期限付きキャッシュを提供する。
// 単一プロセスではMemoryStore、複数プロセスで共有する場合はRedisStoreを使う。
package cache

import (
	"context"
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
)

// DefaultTTL はキャッシュエントリの既定の有効期間。
const DefaultTTL = 30 * time.Minute

// Store はキー単位で記事リストを保持するキャッシュのインターフェース。
type Store interface {
	// Get はキーに対応する有効な記事リストを返す。期限切れまたは未登録の場合は found=false。
	Get(ctx context.Context, key string) (articles []model.Article, found bool, err error)
	// Set は記事リストを有効期限付きで保存する。
	Set(ctx context.Context, key string, articles []model.Article) error
}

// SourceKey はAPIアダプタの取得結果を保存するキーを返す。
func SourceKey(adapter, section string) string {
	return "source:" + adapter + ":" + section
}

// ArticlesKey は重複排除後の記事セットを保存するキーを返す。
// scopeはセクション名、または全セクション取得時の "all"。
func ArticlesKey(scope string) string {
	return "articles:" + scope
}
