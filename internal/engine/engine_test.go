package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hitoshi/newsdesk/internal/cache"
	"github.com/hitoshi/newsdesk/internal/model"
	"github.com/hitoshi/newsdesk/internal/normalize"
	"github.com/hitoshi/newsdesk/internal/section"
	"github.com/hitoshi/newsdesk/internal/source"
)

// --- テスト用モック ---

// mockAdapter はテスト用のsource.Adapter。
// recordsFnが設定されていればセクションごとにレコードを生成する。
type mockAdapter struct {
	name      string
	origin    model.OriginType
	feedURL   string
	records   []model.RawRecord
	recordsFn func(sec section.Section) []model.RawRecord
	err       error
	delay     time.Duration
	panicVal  any
	ignoreCtx bool

	calls    atomic.Int32
	mu       sync.Mutex
	sections []section.Name
}

func (m *mockAdapter) Name() string { return m.name }

func (m *mockAdapter) Origin() model.OriginType {
	if m.origin == "" {
		return model.OriginAPI
	}
	return m.origin
}

func (m *mockAdapter) FeedURL() string { return m.feedURL }

func (m *mockAdapter) Fetch(ctx context.Context, sec section.Section) ([]model.RawRecord, error) {
	m.calls.Add(1)
	m.mu.Lock()
	m.sections = append(m.sections, sec.Name)
	m.mu.Unlock()

	if m.panicVal != nil {
		panic(m.panicVal)
	}
	if m.delay > 0 {
		if m.ignoreCtx {
			time.Sleep(m.delay)
		} else {
			select {
			case <-time.After(m.delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}
	}
	if m.err != nil {
		return nil, m.err
	}
	if m.recordsFn != nil {
		return m.recordsFn(sec), nil
	}
	return m.records, nil
}

// api はmockAdapterをFeedURLを持たないAPIアダプタとして包む。
func api(m *mockAdapter) source.Adapter {
	return apiAdapter{m}
}

type apiAdapter struct {
	m *mockAdapter
}

func (a apiAdapter) Name() string             { return a.m.Name() }
func (a apiAdapter) Origin() model.OriginType { return a.m.Origin() }
func (a apiAdapter) Fetch(ctx context.Context, sec section.Section) ([]model.RawRecord, error) {
	return a.m.Fetch(ctx, sec)
}

// failingStore は常にエラーを返すcache.Store。
type failingStore struct {
	setCalls atomic.Int32
}

func (s *failingStore) Get(context.Context, string) ([]model.Article, bool, error) {
	return nil, false, errors.New("store unavailable")
}

func (s *failingStore) Set(context.Context, string, []model.Article) error {
	s.setCalls.Add(1)
	return errors.New("store unavailable")
}

// panickingStore はSetでpanicするcache.Store。
type panickingStore struct{}

func (panickingStore) Get(context.Context, string) ([]model.Article, bool, error) {
	return nil, false, nil
}

func (panickingStore) Set(context.Context, string, []model.Article) error {
	panic("boom")
}

// fakeClock はテスト用の可変時計。
type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var baseTime = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func record(title, url string, published time.Time) model.RawRecord {
	return model.RawRecord{
		"title":       title,
		"url":         url,
		"publishedAt": published.Format(time.RFC3339),
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func newTestEngine(apis []source.Adapter, opts Options) *Engine {
	opts.APIAdapters = apis
	if opts.Logger == nil {
		opts.Logger = testLogger()
	}
	if opts.Normalizer == nil {
		opts.Normalizer = normalize.New(nil)
	}
	return New(opts)
}

func urls(articles []model.Article) []string {
	out := make([]string, len(articles))
	for i, a := range articles {
		out[i] = a.URL
	}
	return out
}

// --- テスト ---

func TestFetchArticles_MacroTwoProviders_DedupAndSort(t *testing.T) {
	gnews := &mockAdapter{name: "gnews", records: []model.RawRecord{
		record("Fed holds", "https://example.com/fed", baseTime.Add(-1*time.Hour)),
		record("CPI rises", "https://example.com/cpi", baseTime.Add(-3*time.Hour)),
	}}
	mediastack := &mockAdapter{name: "mediastack", records: []model.RawRecord{
		record("Fed holds (dup)", "https://example.com/fed", baseTime),
		record("GDP beats", "https://example.com/gdp", baseTime.Add(-2*time.Hour)),
	}}

	e := newTestEngine([]source.Adapter{api(gnews), api(mediastack)}, Options{})
	articles := e.FetchArticles(context.Background(), "macro")

	want := []string{"https://example.com/fed", "https://example.com/gdp", "https://example.com/cpi"}
	got := urls(articles)
	if fmt.Sprint(got) != fmt.Sprint(want) {
		t.Fatalf("urls = %v, want %v", got, want)
	}
	// 先に宣言されたgnewsのレコードが残る
	if articles[0].Title != "Fed holds" || articles[0].Source != "gnews" {
		t.Errorf("first article = %+v, want gnews record", articles[0])
	}
	if gnews.sections[0] != section.Macro || mediastack.sections[0] != section.Macro {
		t.Errorf("adapters should receive macro section, got %v / %v", gnews.sections, mediastack.sections)
	}
}

func TestFetch_MacronewsEquivalentToMacro(t *testing.T) {
	newAdapter := func() *mockAdapter {
		return &mockAdapter{name: "gnews", records: []model.RawRecord{
			record("A", "https://example.com/a", baseTime),
		}}
	}

	r1 := newTestEngine([]source.Adapter{api(newAdapter())}, Options{}).Fetch(context.Background(), "macro")
	r2 := newTestEngine([]source.Adapter{api(newAdapter())}, Options{}).Fetch(context.Background(), "  MacroNews ")

	if r1.Scope != "macro" || r2.Scope != "macro" {
		t.Errorf("scopes = %q / %q, want macro", r1.Scope, r2.Scope)
	}
	if fmt.Sprint(urls(r1.Articles)) != fmt.Sprint(urls(r2.Articles)) {
		t.Errorf("results differ: %v vs %v", urls(r1.Articles), urls(r2.Articles))
	}
}

func TestFetch_UnknownSectionFallsBackToMarket(t *testing.T) {
	a := &mockAdapter{name: "gnews", records: []model.RawRecord{record("A", "https://example.com/a", baseTime)}}
	e := newTestEngine([]source.Adapter{api(a)}, Options{})

	res := e.Fetch(context.Background(), "sports")
	if res.Scope != string(section.Market) {
		t.Errorf("scope = %q, want market", res.Scope)
	}
	if len(a.sections) != 1 || a.sections[0] != section.Market {
		t.Errorf("adapter sections = %v, want [market]", a.sections)
	}
}

func TestFetch_AllSectionsMergedWithoutDuplicates(t *testing.T) {
	a := &mockAdapter{name: "gnews", recordsFn: func(sec section.Section) []model.RawRecord {
		return []model.RawRecord{
			record("shared", "https://example.com/shared", baseTime),
			record(string(sec.Name), "https://example.com/"+string(sec.Name), baseTime.Add(-time.Hour)),
		}
	}}
	e := newTestEngine([]source.Adapter{api(a)}, Options{})

	res := e.Fetch(context.Background(), "")
	if res.Scope != ScopeAll {
		t.Errorf("scope = %q, want %q", res.Scope, ScopeAll)
	}

	seen := map[string]bool{}
	for _, art := range res.Articles {
		if seen[art.URL] {
			t.Errorf("duplicate url in result: %s", art.URL)
		}
		seen[art.URL] = true
	}
	for _, u := range []string{"https://example.com/shared", "https://example.com/macro", "https://example.com/corporate", "https://example.com/market"} {
		if !seen[u] {
			t.Errorf("missing %s in merged result", u)
		}
	}
	if a.calls.Load() != 3 {
		t.Errorf("adapter calls = %d, want 3 (one per section)", a.calls.Load())
	}
	want := []section.Name{section.Macro, section.Corporate, section.Market}
	if fmt.Sprint(a.sections) != fmt.Sprint(want) {
		t.Errorf("section order = %v, want %v", a.sections, want)
	}
}

func TestFetch_FaultIsolation(t *testing.T) {
	broken := &mockAdapter{name: "gnews", err: model.StatusError("gnews", 500)}
	healthy := &mockAdapter{name: "mediastack", records: []model.RawRecord{record("A", "https://example.com/a", baseTime)}}

	e := newTestEngine([]source.Adapter{api(broken), api(healthy)}, Options{})
	res := e.Fetch(context.Background(), "corporate")

	if fmt.Sprint(urls(res.Articles)) != "[https://example.com/a]" {
		t.Errorf("articles = %v, want only healthy adapter's article", urls(res.Articles))
	}
	if fmt.Sprint(res.FailedAdapters) != "[gnews]" {
		t.Errorf("failed adapters = %v, want [gnews]", res.FailedAdapters)
	}
}

func TestFetch_PanickingAdapterIsIsolated(t *testing.T) {
	bad := &mockAdapter{name: "gnews", panicVal: "nil map write"}
	good := &mockAdapter{name: "mediastack", records: []model.RawRecord{record("A", "https://example.com/a", baseTime)}}

	e := newTestEngine([]source.Adapter{api(bad), api(good)}, Options{})
	res := e.Fetch(context.Background(), "macro")

	if len(res.Articles) != 1 {
		t.Errorf("len(articles) = %d, want 1", len(res.Articles))
	}
	if fmt.Sprint(res.FailedAdapters) != "[gnews]" {
		t.Errorf("failed adapters = %v, want [gnews]", res.FailedAdapters)
	}
}

func TestFetchArticles_AllAdaptersFailReturnsEmpty(t *testing.T) {
	e := newTestEngine([]source.Adapter{
		api(&mockAdapter{name: "gnews", err: errors.New("down")}),
		api(&mockAdapter{name: "mediastack", err: model.ErrDecode}),
	}, Options{})

	articles := e.FetchArticles(context.Background(), "market")
	if articles == nil {
		t.Fatal("articles should be an empty slice, not nil")
	}
	if len(articles) != 0 {
		t.Errorf("len(articles) = %d, want 0", len(articles))
	}
}

func TestFetch_NoAdaptersReturnsEmpty(t *testing.T) {
	res := newTestEngine(nil, Options{}).Fetch(context.Background(), "macro")
	if res.Articles == nil || len(res.Articles) != 0 {
		t.Errorf("articles = %v, want empty slice", res.Articles)
	}
	if res.RunID == "" {
		t.Error("run id should be set")
	}
}

func TestFetch_AdapterTimeoutTreatedAsEmpty(t *testing.T) {
	slow := &mockAdapter{name: "gnews", delay: time.Second, ignoreCtx: true,
		records: []model.RawRecord{record("late", "https://example.com/late", baseTime)}}
	fast := &mockAdapter{name: "mediastack", records: []model.RawRecord{record("A", "https://example.com/a", baseTime)}}

	e := newTestEngine([]source.Adapter{api(slow), api(fast)}, Options{AdapterTimeout: 30 * time.Millisecond})

	start := time.Now()
	res := e.Fetch(context.Background(), "macro")
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Errorf("fetch took %v, hard timeout not applied", elapsed)
	}
	if fmt.Sprint(urls(res.Articles)) != "[https://example.com/a]" {
		t.Errorf("articles = %v", urls(res.Articles))
	}
	if fmt.Sprint(res.FailedAdapters) != "[gnews]" {
		t.Errorf("failed adapters = %v, want [gnews]", res.FailedAdapters)
	}
}

func TestFetch_MergeOrderFollowsDeclarationNotCompletion(t *testing.T) {
	first := &mockAdapter{name: "gnews", delay: 40 * time.Millisecond,
		records: []model.RawRecord{record("from first", "https://example.com/x", baseTime)}}
	second := &mockAdapter{name: "mediastack",
		records: []model.RawRecord{record("from second", "https://example.com/x", baseTime)}}

	e := newTestEngine([]source.Adapter{api(first), api(second)}, Options{})
	articles := e.FetchArticles(context.Background(), "macro")

	if len(articles) != 1 || articles[0].Title != "from first" {
		t.Errorf("articles = %+v, want the earlier-declared adapter's record", articles)
	}
}

func TestFetch_BoundedConcurrency(t *testing.T) {
	var current, peak atomic.Int32
	track := func(sec section.Section) []model.RawRecord {
		n := current.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		current.Add(-1)
		return nil
	}

	var adapters []source.Adapter
	for i := 0; i < 6; i++ {
		adapters = append(adapters, api(&mockAdapter{name: fmt.Sprintf("a%d", i), recordsFn: track}))
	}
	e := newTestEngine(adapters, Options{MaxConcurrent: 2})
	e.Fetch(context.Background(), "macro")

	if p := peak.Load(); p > 2 {
		t.Errorf("peak concurrency = %d, want <= 2", p)
	}
}

func TestFetch_OutputBoundedAndSorted(t *testing.T) {
	var adapters []source.Adapter
	for i := 0; i < 4; i++ {
		i := i
		adapters = append(adapters, api(&mockAdapter{name: fmt.Sprintf("p%d", i), recordsFn: func(sec section.Section) []model.RawRecord {
			var recs []model.RawRecord
			for j := 0; j < source.MaxRecords; j++ {
				u := fmt.Sprintf("https://example.com/%s/%d/%d", sec.Name, i, j)
				recs = append(recs, record(u, u, baseTime.Add(-time.Duration(i*100+j)*time.Minute)))
			}
			return recs
		}}))
	}
	e := newTestEngine(adapters, Options{})

	for _, input := range []string{"macro", ""} {
		articles := e.FetchArticles(context.Background(), input)
		if len(articles) != 50 {
			t.Errorf("%q: len(articles) = %d, want 50", input, len(articles))
		}
		for i := 1; i < len(articles); i++ {
			if articles[i].PublishedAt.After(articles[i-1].PublishedAt) {
				t.Fatalf("%q: articles not sorted descending at %d", input, i)
			}
		}
	}
}

func TestFetch_MaxResultsOption(t *testing.T) {
	a := &mockAdapter{name: "gnews", records: []model.RawRecord{
		record("A", "https://example.com/a", baseTime),
		record("B", "https://example.com/b", baseTime.Add(-time.Minute)),
		record("C", "https://example.com/c", baseTime.Add(-2*time.Minute)),
	}}
	e := newTestEngine([]source.Adapter{api(a)}, Options{MaxResults: 2})
	if got := e.FetchArticles(context.Background(), "macro"); len(got) != 2 {
		t.Errorf("len(articles) = %d, want 2", len(got))
	}
}

func TestFetch_DroppedRecordsCounted(t *testing.T) {
	a := &mockAdapter{name: "gnews", records: []model.RawRecord{
		record("A", "https://example.com/a", baseTime),
		{"title": 42},
		nil,
	}}
	res := newTestEngine([]source.Adapter{api(a)}, Options{}).Fetch(context.Background(), "macro")
	if len(res.Articles) != 1 || res.Dropped != 2 {
		t.Errorf("articles=%d dropped=%d, want 1 and 2", len(res.Articles), res.Dropped)
	}
}

func TestFetch_RSSAdaptersPerFeedInOrder(t *testing.T) {
	registry := section.NewRegistry(map[section.Name][]string{
		section.Macro: {"https://feeds.example.com/one", "https://feeds.example.com/two"},
	})

	var mu sync.Mutex
	var created []string
	factory := func(feedURL string) source.Adapter {
		mu.Lock()
		created = append(created, feedURL)
		mu.Unlock()
		m := &mockAdapter{name: "rss", origin: model.OriginRSS, feedURL: feedURL}
		if feedURL == "https://feeds.example.com/two" {
			m.err = errors.New("parse error")
		} else {
			m.records = []model.RawRecord{{
				"title":  "feed item",
				"url":    "https://example.com/feed-item",
				"date":   baseTime.Format(time.RFC1123Z),
				"source": map[string]any{"name": "Feed One"},
			}}
		}
		return m
	}

	e := newTestEngine(nil, Options{Registry: registry, RSS: factory})
	res := e.Fetch(context.Background(), "macro")

	if fmt.Sprint(created) != "[https://feeds.example.com/one https://feeds.example.com/two]" {
		t.Errorf("created adapters = %v", created)
	}
	if len(res.Articles) != 1 {
		t.Fatalf("len(articles) = %d, want 1", len(res.Articles))
	}
	a := res.Articles[0]
	if a.OriginType != model.OriginRSS || a.Source != "Feed One" {
		t.Errorf("article = %+v, want rss origin from Feed One", a)
	}
	if fmt.Sprint(res.FailedAdapters) != "[rss:https://feeds.example.com/two]" {
		t.Errorf("failed adapters = %v", res.FailedAdapters)
	}
}

func TestFetch_APIResultsCachedUntilTTL(t *testing.T) {
	clock := &fakeClock{now: baseTime}
	store := cache.NewMemoryStore(30*time.Minute, 0, clock.Now)
	a := &mockAdapter{name: "gnews", records: []model.RawRecord{record("A", "https://example.com/a", baseTime)}}

	e := newTestEngine([]source.Adapter{api(a)}, Options{Store: store, Clock: clock.Now})

	e.FetchArticles(context.Background(), "macro")
	e.FetchArticles(context.Background(), "macronews")
	if got := a.calls.Load(); got != 1 {
		t.Fatalf("calls within TTL = %d, want 1", got)
	}

	clock.Advance(29 * time.Minute)
	e.FetchArticles(context.Background(), "macro")
	if got := a.calls.Load(); got != 1 {
		t.Fatalf("calls before expiry = %d, want 1", got)
	}

	clock.Advance(2 * time.Minute)
	articles := e.FetchArticles(context.Background(), "macro")
	if got := a.calls.Load(); got != 2 {
		t.Fatalf("calls after expiry = %d, want 2", got)
	}
	if len(articles) != 1 {
		t.Errorf("len(articles) = %d, want 1", len(articles))
	}
}

func TestFetch_CacheIsPerSection(t *testing.T) {
	store := cache.NewMemoryStore(time.Hour, 0, nil)
	a := &mockAdapter{name: "gnews", records: []model.RawRecord{record("A", "https://example.com/a", baseTime)}}
	e := newTestEngine([]source.Adapter{api(a)}, Options{Store: store})

	e.FetchArticles(context.Background(), "macro")
	e.FetchArticles(context.Background(), "corporate")
	if got := a.calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2 (one per section)", got)
	}
}

// 同じキャッシュミスを待つ呼び出し元のうち、最初の呼び出し元がキャンセルされても
// 他の呼び出し元は共有取得の結果を受け取れることを検証する。
func TestFetch_SharedFetchSurvivesFirstCallerCancel(t *testing.T) {
	store := cache.NewMemoryStore(time.Hour, 0, nil)
	a := &mockAdapter{
		name:    "gnews",
		delay:   300 * time.Millisecond,
		records: []model.RawRecord{record("A", "https://example.com/a", baseTime)},
	}
	e := newTestEngine([]source.Adapter{api(a)}, Options{Store: store})

	ctxA, cancelA := context.WithCancel(context.Background())
	defer cancelA()

	resA := make(chan Result, 1)
	go func() { resA <- e.Fetch(ctxA, "macro") }()

	// 最初の呼び出し元の取得が始まるまで待つ
	deadline := time.Now().Add(time.Second)
	for a.calls.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("adapter was not called")
		}
		time.Sleep(time.Millisecond)
	}

	resB := make(chan Result, 1)
	go func() { resB <- e.Fetch(context.Background(), "macro") }()
	time.Sleep(20 * time.Millisecond)
	cancelA()

	a1 := <-resA
	if len(a1.Articles) != 0 || fmt.Sprint(a1.FailedAdapters) != "[gnews]" {
		t.Errorf("cancelled caller: articles=%v failed=%v, want none and [gnews]", urls(a1.Articles), a1.FailedAdapters)
	}

	b := <-resB
	if fmt.Sprint(urls(b.Articles)) != "[https://example.com/a]" {
		t.Errorf("healthy caller articles = %v, want [https://example.com/a]", urls(b.Articles))
	}
	if len(b.FailedAdapters) != 0 {
		t.Errorf("healthy caller failed adapters = %v, want none", b.FailedAdapters)
	}
	if got := a.calls.Load(); got != 1 {
		t.Errorf("adapter calls = %d, want 1 (shared fetch)", got)
	}

	// 共有取得の結果はキャッシュされている
	if _, found, _ := store.Get(context.Background(), cache.SourceKey("gnews", "macro")); !found {
		t.Error("expected shared fetch result to be cached")
	}
}

func TestFetch_FailedFetchNotCached(t *testing.T) {
	store := cache.NewMemoryStore(time.Hour, 0, nil)
	a := &mockAdapter{name: "gnews", err: errors.New("temporary")}
	e := newTestEngine([]source.Adapter{api(a)}, Options{Store: store})

	e.FetchArticles(context.Background(), "macro")
	a.err = nil
	a.records = []model.RawRecord{record("A", "https://example.com/a", baseTime)}

	articles := e.FetchArticles(context.Background(), "macro")
	if got := a.calls.Load(); got != 2 {
		t.Errorf("calls = %d, want 2", got)
	}
	if len(articles) != 1 {
		t.Errorf("len(articles) = %d, want 1", len(articles))
	}
}

func TestFetch_RSSResultsNotCached(t *testing.T) {
	store := cache.NewMemoryStore(time.Hour, 0, nil)
	registry := section.NewRegistry(map[section.Name][]string{section.Macro: {"https://feeds.example.com/one"}})
	feed := &mockAdapter{name: "rss", origin: model.OriginRSS, feedURL: "https://feeds.example.com/one"}

	e := newTestEngine(nil, Options{Store: store, Registry: registry, RSS: func(string) source.Adapter { return feed }})
	e.FetchArticles(context.Background(), "macro")
	e.FetchArticles(context.Background(), "macro")

	if got := feed.calls.Load(); got != 2 {
		t.Errorf("rss calls = %d, want 2", got)
	}
}

func TestFetch_DeduplicatedSetWrittenToCache(t *testing.T) {
	store := cache.NewMemoryStore(time.Hour, 0, nil)
	a := &mockAdapter{name: "gnews", records: []model.RawRecord{
		record("A", "https://example.com/a", baseTime),
		record("A again", "https://example.com/a", baseTime),
		record("B", "https://example.com/b", baseTime),
	}}
	e := newTestEngine([]source.Adapter{api(a)}, Options{Store: store})
	e.FetchArticles(context.Background(), "")

	for _, scope := range []string{"macro", "corporate", "market", ScopeAll} {
		cached, found, err := store.Get(context.Background(), cache.ArticlesKey(scope))
		if err != nil || !found {
			t.Fatalf("%s: found=%v err=%v", scope, found, err)
		}
		if len(cached) != 2 {
			t.Errorf("%s: cached %d articles, want 2", scope, len(cached))
		}
	}
}

func TestFetch_CacheFailureDoesNotAffectResult(t *testing.T) {
	store := &failingStore{}
	a := &mockAdapter{name: "gnews", records: []model.RawRecord{record("A", "https://example.com/a", baseTime)}}

	e := newTestEngine([]source.Adapter{api(a)}, Options{Store: store})
	articles := e.FetchArticles(context.Background(), "macro")

	if len(articles) != 1 {
		t.Errorf("len(articles) = %d, want 1", len(articles))
	}
	if store.setCalls.Load() == 0 {
		t.Error("store Set should have been attempted")
	}
}

func TestFetch_UnexpectedPanicReturnsEmpty(t *testing.T) {
	a := &mockAdapter{name: "gnews", records: []model.RawRecord{record("A", "https://example.com/a", baseTime)}}
	e := newTestEngine([]source.Adapter{api(a)}, Options{Store: panickingStore{}})

	res := e.Fetch(context.Background(), "macro")
	if res.Articles == nil || len(res.Articles) != 0 {
		t.Errorf("articles = %v, want empty slice", res.Articles)
	}
	if res.Scope != "macro" {
		t.Errorf("scope = %q, want macro", res.Scope)
	}
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{fmt.Errorf("x: %w", context.DeadlineExceeded), reasonTimeout},
		{&panicError{value: "boom"}, reasonPanic},
		{model.StatusError("gnews", 429), reasonStatus},
		{fmt.Errorf("rss: %w: bad xml", model.ErrDecode), reasonDecode},
		{errors.New("connection refused"), reasonError},
	}
	for _, tt := range tests {
		if got := failureReason(tt.err); got != tt.want {
			t.Errorf("failureReason(%v) = %q, want %q", tt.err, got, tt.want)
		}
	}
}
