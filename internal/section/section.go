// Package section は記事取得の対象となるトピック区分（セクション）を提供する。
// セクションは起動時に1回だけ構築し、以降はイミュータブルとして扱う。
package section

import "strings"

// Name はセクションの正規名。
type Name string

const (
	// Macro はマクロ経済ニュース。
	Macro Name = "macro"
	// Corporate は企業ニュース。
	Corporate Name = "corporate"
	// Market は市場ニュース。未知の入力はすべてこのセクションに振り分ける。
	Market Name = "market"
)

// Names は全セクションの宣言順。全セクション取得時もこの順で処理する。
var Names = []Name{Macro, Corporate, Market}

// DefaultFeeds はセクション共通のRSSフィード一覧。
var DefaultFeeds = []string{
	"https://feeds.reuters.com/reuters/businessNews",
	"https://www.cnbc.com/id/100003114/device/rss/rss.html",
}

// defaultKeywords はセクションごとのクエリ生成用キーワード。
var defaultKeywords = map[Name][]string{
	Macro:     {"economy", "federal reserve", "inflation", "GDP", "central bank", "monetary policy"},
	Corporate: {"earnings", "quarterly results", "merger", "acquisition", "CEO", "stock market"},
	Market:    {"stock market", "trading", "dow jones", "SP 500", "nasdaq", "market analysis"},
}

// Section はトピック区分とそのクエリ記述子。
type Section struct {
	Name     Name     `json:"name"`
	Keywords []string `json:"keywords"`
	Feeds    []string `json:"feeds"`
}

// QueryOR はキーワードを " OR " で連結したクエリを返す。
func (s Section) QueryOR() string {
	return strings.Join(s.Keywords, " OR ")
}

// QueryComma はキーワードをカンマで連結したクエリを返す。
func (s Section) QueryComma() string {
	return strings.Join(s.Keywords, ",")
}

// Resolve は自由入力のセクション名を正規名に変換する。
// 空入力の場合は ok=false を返し、呼び出し元は全セクション取得として扱う。
// 入力は小文字化・トリム後に "news" を除去し、前方一致で判定する。
// macro/corporate のいずれにも一致しない入力は market になる（エラーにはしない）。
func Resolve(input string) (name Name, ok bool) {
	cleaned := strings.TrimSpace(strings.ToLower(input))
	if cleaned == "" {
		return "", false
	}
	cleaned = strings.ReplaceAll(cleaned, "news", "")

	switch {
	case strings.HasPrefix(cleaned, string(Macro)):
		return Macro, true
	case strings.HasPrefix(cleaned, string(Corporate)):
		return Corporate, true
	default:
		return Market, true
	}
}
