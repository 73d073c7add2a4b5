package section

// Registry は全セクションの静的設定を保持する。
// 生成後は変更しないため、複数のgoroutineから安全に参照できる。
type Registry struct {
	sections map[Name]Section
}

// NewRegistry はセクションごとのRSSフィード一覧からRegistryを生成する。
// feedsに含まれないセクション、または空スライスのセクションにはDefaultFeedsを割り当てる。
func NewRegistry(feeds map[Name][]string) *Registry {
	r := &Registry{sections: make(map[Name]Section, len(Names))}
	for _, name := range Names {
		f := feeds[name]
		if len(f) == 0 {
			f = DefaultFeeds
		}
		r.sections[name] = Section{
			Name:     name,
			Keywords: append([]string(nil), defaultKeywords[name]...),
			Feeds:    append([]string(nil), f...),
		}
	}
	return r
}

// Get は指定セクションの設定を返す。
// 未登録の名前はmarketとして扱う。
func (r *Registry) Get(name Name) Section {
	if s, ok := r.sections[name]; ok {
		return s
	}
	return r.sections[Market]
}

// All は全セクションを宣言順で返す。
func (r *Registry) All() []Section {
	out := make([]Section, 0, len(Names))
	for _, name := range Names {
		out = append(out, r.sections[name])
	}
	return out
}
