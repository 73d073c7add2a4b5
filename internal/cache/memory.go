package cache

import (
	"context"
	"sync"
	"time"

	"github.com/hitoshi/newsdesk/internal/model"
)

// defaultMaxEntries はMemoryStoreが保持する最大エントリ数の既定値。
const defaultMaxEntries = 256

type memoryEntry struct {
	articles  []model.Article
	expiresAt time.Time
}

// MemoryStore はプロセス内のStore実装。
// 時刻は注入されたclockから取得するため、有効期限の判定をテストで制御できる。
type MemoryStore struct {
	mu         sync.Mutex
	entries    map[string]memoryEntry
	ttl        time.Duration
	maxEntries int
	clock      func() time.Time
}

// NewMemoryStore はMemoryStoreを生成する。
// ttlが0以下の場合はDefaultTTL、maxEntriesが0以下の場合は256を使う。
// clockがnilの場合はtime.Nowを使う。
func NewMemoryStore(ttl time.Duration, maxEntries int, clock func() time.Time) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if maxEntries <= 0 {
		maxEntries = defaultMaxEntries
	}
	if clock == nil {
		clock = time.Now
	}
	return &MemoryStore{
		entries:    make(map[string]memoryEntry),
		ttl:        ttl,
		maxEntries: maxEntries,
		clock:      clock,
	}
}

// Get は有効期限内のエントリを返す。期限切れのエントリは削除する。
func (s *MemoryStore) Get(_ context.Context, key string) ([]model.Article, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !s.clock().Before(e.expiresAt) {
		delete(s.entries, key)
		return nil, false, nil
	}
	return cloneArticles(e.articles), true, nil
}

// Set はエントリを保存する。
// 上限に達している場合は期限切れのエントリを掃除し、
// それでも足りなければ最も早く期限切れになるエントリを追い出す。
func (s *MemoryStore) Set(_ context.Context, key string, articles []model.Article) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock()
	if _, exists := s.entries[key]; !exists && len(s.entries) >= s.maxEntries {
		s.evictLocked(now)
	}
	s.entries[key] = memoryEntry{
		articles:  cloneArticles(articles),
		expiresAt: now.Add(s.ttl),
	}
	return nil
}

// Len は保持しているエントリ数を返す（期限切れを含む）。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *MemoryStore) evictLocked(now time.Time) {
	var oldestKey string
	var oldest time.Time
	for k, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, k)
			continue
		}
		if oldestKey == "" || e.expiresAt.Before(oldest) {
			oldestKey, oldest = k, e.expiresAt
		}
	}
	if len(s.entries) >= s.maxEntries && oldestKey != "" {
		delete(s.entries, oldestKey)
	}
}

// cloneArticles は呼び出し元とキャッシュでスライスを共有しないようにコピーする。
func cloneArticles(in []model.Article) []model.Article {
	if in == nil {
		return []model.Article{}
	}
	out := make([]model.Article, len(in))
	copy(out, in)
	return out
}
