package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/hitoshi/newsdesk/internal/section"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Providers（APIキー未設定のプロバイダは無効化される）
	GNewsAPIKey      string
	MediastackAPIKey string

	// Fetch
	FetchTimeout       time.Duration
	AdapterTimeout     time.Duration
	FetchMaxSize       int64
	FetchMaxConcurrent int
	ProviderRatePerMin int

	// RSS（セクションごとのフィード一覧）
	Feeds map[section.Name][]string

	// Cache
	CacheTTL        time.Duration
	CacheMaxEntries int
	RedisURL        string

	// Result
	MaxResults int

	// Worker
	RefreshSchedule string

	// Server
	ServerPort        string
	CORSAllowedOrigin string
	RateLimitGeneral  int

	// Logging
	LogLevel string
}

// Load は環境変数からConfigを読み込む。
// 必須の環境変数はない。RSSフィードURLが不正な場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.GNewsAPIKey = os.Getenv("GNEWS_API_KEY")
	cfg.MediastackAPIKey = os.Getenv("MEDIASTACK_API_KEY")

	cfg.FetchTimeout = getEnvDuration("FETCH_TIMEOUT", 30*time.Second)
	cfg.AdapterTimeout = getEnvDuration("ADAPTER_TIMEOUT", 30*time.Second)
	cfg.FetchMaxSize = getEnvInt64("FETCH_MAX_SIZE", 5242880)
	cfg.FetchMaxConcurrent = getEnvInt("FETCH_MAX_CONCURRENT", 4)
	cfg.ProviderRatePerMin = getEnvInt("PROVIDER_RATE_PER_MIN", 30)
	cfg.CacheTTL = getEnvDuration("CACHE_TTL", 30*time.Minute)
	cfg.CacheMaxEntries = getEnvInt("CACHE_MAX_ENTRIES", 256)
	cfg.RedisURL = os.Getenv("REDIS_URL")
	cfg.MaxResults = getEnvInt("MAX_RESULTS", 50)
	cfg.RefreshSchedule = getEnvString("REFRESH_SCHEDULE", "@every 15m")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "*")
	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	// 結果件数は1〜50に制限する
	if cfg.MaxResults <= 0 || cfg.MaxResults > 50 {
		cfg.MaxResults = 50
	}

	// セクション共通のフィード一覧。セクション個別の指定があればそちらを優先する
	shared := getEnvList("RSS_FEEDS", section.DefaultFeeds)
	cfg.Feeds = make(map[section.Name][]string, len(section.Names))
	var invalid []string
	for _, name := range section.Names {
		key := "RSS_FEEDS_" + strings.ToUpper(string(name))
		feeds := getEnvList(key, shared)
		for _, f := range feeds {
			if err := validateFeedURL(f); err != nil {
				invalid = append(invalid, fmt.Sprintf("%s=%s", key, f))
			}
		}
		cfg.Feeds[name] = feeds
	}
	if len(invalid) > 0 {
		return nil, fmt.Errorf("invalid RSS feed URLs: %v", invalid)
	}

	return cfg, nil
}

// validateFeedURL はフィードURLがhttp/httpsの絶対URLであることを検証する。
func validateFeedURL(raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("disallowed scheme: %s", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("empty host")
	}
	return nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// getEnvList はカンマ区切りの環境変数をスライスとして返す。
// 空要素は除外し、結果が空の場合はデフォルト値のコピーを返す。
func getEnvList(key string, defaultVal []string) []string {
	var out []string
	for _, part := range strings.Split(os.Getenv(key), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return append([]string(nil), defaultVal...)
	}
	return out
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
