package security

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer はプロバイダ由来のHTML断片をプレーンテキストに変換する。
// RSSのsummaryやAPIのdescriptionにはHTMLタグが含まれることがあるため、
// 表示層に渡す前にタグを全て除去する。
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer はbluemondayのStrictPolicyを使うTextSanitizerを生成する。
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Text はタグを除去し、HTMLエンティティを復元し、連続する空白を1つにまとめる。
// 同一入力に対して常に同一出力を返す。
func (s *TextSanitizer) Text(raw string) string {
	if raw == "" {
		return ""
	}
	stripped := html.UnescapeString(s.policy.Sanitize(raw))
	return strings.Join(strings.Fields(stripped), " ")
}
