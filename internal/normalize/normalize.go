// Package normalize はプロバイダ固有の記事データを正規化済みのArticleに変換する。
package normalize

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/araddon/dateparse"

	"github.com/hitoshi/newsdesk/internal/model"
)

// maxContentSummaryRunes はcontentから要約を作る際の最大文字数。
const maxContentSummaryRunes = 200

// publishedFields は公開日時を探すフィールド名の優先順。
var publishedFields = []string{"publishedAt", "published_at", "date", "published"}

// stringFields は文字列であることを要求するフィールド。
// 存在して文字列以外の型の場合、そのレコードは正規化できないものとして除外する。
var stringFields = []string{"title", "url", "author", "description", "summary", "content"}

// TextCleaner は要約文字列からHTMLを除去するインターフェース。
type TextCleaner interface {
	Text(raw string) string
}

// Normalizer はRawRecordをArticleに変換する。
type Normalizer struct {
	cleaner TextCleaner
}

// New はNormalizerを生成する。cleanerがnilの場合は要約をそのまま使う。
func New(cleaner TextCleaner) *Normalizer {
	return &Normalizer{cleaner: cleaner}
}

// Normalize は1件のRawRecordをArticleに変換する。
// 最低限の構造を満たさないレコードは ok=false を返す。panicはしない。
// nowは公開日時が存在しない場合の取り込み時刻として使う。
func (n *Normalizer) Normalize(raw model.RawRecord, adapterName string, origin model.OriginType, now time.Time) (article model.Article, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			article, ok = model.Article{}, false
		}
	}()

	if raw == nil {
		return model.Article{}, false
	}
	for _, key := range stringFields {
		if _, valid := stringField(raw, key); !valid {
			return model.Article{}, false
		}
	}

	title, _ := stringField(raw, "title")
	url, _ := stringField(raw, "url")
	author, _ := stringField(raw, "author")

	summary := n.summary(raw)

	return model.Article{
		ID:          ArticleID(adapterName, url, title),
		Title:       title,
		URL:         url,
		Author:      author,
		Source:      sourceName(raw, adapterName),
		PublishedAt: publishedAt(raw, now),
		Summary:     summary,
		OriginType:  origin,
		Category:    model.CategoryFinancial,
	}, true
}

// NormalizeAll はレコード群を正規化し、変換できたArticleと除外件数を返す。
// 1件の失敗は他のレコードに影響しない。
func (n *Normalizer) NormalizeAll(records []model.RawRecord, adapterName string, origin model.OriginType, now time.Time) ([]model.Article, int) {
	articles := make([]model.Article, 0, len(records))
	dropped := 0
	for _, raw := range records {
		a, ok := n.Normalize(raw, adapterName, origin, now)
		if !ok {
			dropped++
			continue
		}
		articles = append(articles, a)
	}
	return articles, dropped
}

// ArticleID は "{adapter}_{sha256(url+title)の先頭16桁}" 形式のIDを返す。
// プロセス再起動をまたいでも同じ値になる。
func ArticleID(adapterName, url, title string) string {
	sum := sha256.Sum256([]byte(url + title))
	return adapterName + "_" + hex.EncodeToString(sum[:])[:16]
}

// summary は description → summary → content先頭200文字 の順で最初の非空値を返す。
// 空判定はタグ除去後の値で行うため、マークアップだけの候補は飛ばす。
func (n *Normalizer) summary(raw model.RawRecord) string {
	for _, key := range []string{"description", "summary", "content"} {
		v, _ := stringField(raw, key)
		if n.cleaner != nil {
			v = n.cleaner.Text(v)
		}
		if v == "" {
			continue
		}
		if key == "content" {
			v = truncateRunes(v, maxContentSummaryRunes)
		}
		return v
	}
	return ""
}

// sourceName は構造化されたsourceオブジェクトのnameを返す。
// sourceがオブジェクトでない、またはnameが空の場合はアダプタ名を返す。
func sourceName(raw model.RawRecord, adapterName string) string {
	var name string
	switch src := raw["source"].(type) {
	case map[string]any:
		name, _ = src["name"].(string)
	case model.RawRecord:
		name, _ = src["name"].(string)
	default:
		return adapterName
	}
	if name == "" {
		return adapterName
	}
	return name
}

// publishedAt は公開日時フィールドを優先順に探して解釈する。
// どのフィールドも存在しない場合はnowを返す。
// 値が存在するが解釈できない場合はゼロ値（最も古い扱い）を返す。
func publishedAt(raw model.RawRecord, now time.Time) time.Time {
	for _, key := range publishedFields {
		v, _ := raw[key].(string)
		if v == "" {
			continue
		}
		t, err := dateparse.ParseAny(v)
		if err != nil {
			return time.Time{}
		}
		return t.UTC()
	}
	return now.UTC()
}

// stringField はフィールドを文字列として取り出す。
// 未設定またはnullは ("", true)、文字列以外の型は ("", false) を返す。
func stringField(raw model.RawRecord, key string) (string, bool) {
	v, exists := raw[key]
	if !exists || v == nil {
		return "", true
	}
	s, ok := v.(string)
	return s, ok
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
