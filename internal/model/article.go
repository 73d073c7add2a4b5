// Package model はドメインモデルを定義する。
package model

import "time"

// CategoryFinancial は全記事に付与されるカテゴリ。
const CategoryFinancial = "financial"

// OriginType は記事の取得経路を表す。
type OriginType string

const (
	// OriginAPI はキーワード検索APIから取得した記事。
	OriginAPI OriginType = "api"
	// OriginRSS はRSSフィードから取得した記事。
	OriginRSS OriginType = "rss"
)

// Article は正規化済みの記事を表す。
// 正規化後は変更しない。
type Article struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	URL         string     `json:"url"`
	Author      string     `json:"author"`
	Source      string     `json:"source"`
	PublishedAt time.Time  `json:"published_at"`
	Summary     string     `json:"summary"`
	OriginType  OriginType `json:"origin_type"`
	Category    string     `json:"category"`
}

// RawRecord はプロバイダ固有のフィールド名を持つ未正規化の記事データ。
// JSON APIのレスポンス要素、またはRSSエントリから組み立てたマップ。
type RawRecord map[string]any
