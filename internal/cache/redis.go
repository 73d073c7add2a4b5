package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/hitoshi/newsdesk/internal/model"
)

// keyPrefix はRedis上のキー名前空間。
const keyPrefix = "newsdesk:"

// RedisStore はRedisを使うStore実装。
// 値はJSONで保存し、有効期限はRedisのTTL（SET EX）に任せる。
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore はRedisStoreを生成する。ttlが0以下の場合はDefaultTTLを使う。
func NewRedisStore(client *redis.Client, ttl time.Duration) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{client: client, ttl: ttl}
}

// OpenRedis はREDIS_URL形式の接続文字列からクライアントを生成し、疎通を確認する。
func OpenRedis(ctx context.Context, redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	client := redis.NewClient(opt)

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return client, nil
}

// Get はキーに対応する記事リストを返す。
func (s *RedisStore) Get(ctx context.Context, key string) ([]model.Article, bool, error) {
	bs, err := s.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}

	var articles []model.Article
	if err := json.Unmarshal(bs, &articles); err != nil {
		return nil, false, fmt.Errorf("redis decode %s: %w", key, err)
	}
	if articles == nil {
		articles = []model.Article{}
	}
	return articles, true, nil
}

// Set は記事リストをJSONにして有効期限付きで保存する。
func (s *RedisStore) Set(ctx context.Context, key string, articles []model.Article) error {
	if articles == nil {
		articles = []model.Article{}
	}
	bs, err := json.Marshal(articles)
	if err != nil {
		return fmt.Errorf("redis encode %s: %w", key, err)
	}
	if err := s.client.Set(ctx, keyPrefix+key, bs, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Ping はRedisへの疎通を確認する。ヘルスチェックで使う。
func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Close はクライアントの接続を閉じる。
func (s *RedisStore) Close() error {
	return s.client.Close()
}
