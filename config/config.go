package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration. Everything here is immutable
// after boot; the mutable part lives in RuntimeStore.
type Config struct {
	Server    ServerConfig
	Paths     PathsConfig
	Pool      PoolConfig
	Fetch     FetchConfig
	Auth      AuthConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Log       LogConfig
	Runtime   Runtime // seed values; overlaid by settings.json
}

// ServerConfig controls the two HTTP listeners.
type ServerConfig struct {
	Host string // default: "0.0.0.0"

	// AdminPort serves config, status, logs and profile administration.
	AdminPort int // default: 3000

	// CrawlerPort serves the fetch API used by crawler clients.
	CrawlerPort int // default: 3001

	Mode string // "debug", "release", "test"; default: "release"
}

// PathsConfig locates persisted state.
type PathsConfig struct {
	DataDir string // default: "./data"
	LogsDir string // default: "./logs"
}

// PoolConfig controls the remote browser pool.
type PoolConfig struct {
	// Slots is the number of persistent connections to the remote browser.
	Slots int // default: 4

	// MaxTabsBeforeRecycle marks a slot stale once this many tabs have been
	// opened on one connection.
	MaxTabsBeforeRecycle int // default: 200

	// NavigationTimeout bounds one tab navigation.
	NavigationTimeout time.Duration // default: 30s
}

// FetchConfig controls the fast HTTP engine and the escalation ladder.
type FetchConfig struct {
	// HTTPTimeout is the deadline for one fast-engine request.
	HTTPTimeout time.Duration // default: 30s

	// MaxRedirects is the redirect budget for the fast engine.
	MaxRedirects int // default: 5

	// MaxBodyBytes caps a fast-engine response body.
	MaxBodyBytes int64 // default: 10MB

	// NetworkIdleTimeout bounds the stealth engine's networkidle wait before
	// it falls back to domcontentloaded.
	NetworkIdleTimeout time.Duration // default: 10s

	// StealthNoSandbox disables the Chromium sandbox for local launches
	// (needed in containers).
	StealthNoSandbox bool // default: false

	// StealthBin overrides the local Chromium binary path.
	StealthBin string
}

// AuthConfig controls API key authentication on both listeners.
type AuthConfig struct {
	// APIKey enables auth when non-empty.
	APIKey string
}

// RateLimitConfig controls per-client rate limiting on the crawler API.
type RateLimitConfig struct {
	RequestsPerSecond float64 // default: 10
	Burst             int     // default: 20
}

// CacheConfig controls the optional fetch result cache.
type CacheConfig struct {
	// TTL enables the cache when positive.
	TTL time.Duration // default: 0 (disabled)

	// MaxEntries is the maximum number of cached results.
	MaxEntries int // default: 1000
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level string // default: "info"
}

// Load reads configuration from environment variables with sane defaults.
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        envOr("HOST", "0.0.0.0"),
			AdminPort:   envIntOr("PORT", 3000),
			CrawlerPort: envIntOr("CRAWLER_API_PORT", 3001),
			Mode:        envOr("GIN_MODE", "release"),
		},
		Paths: PathsConfig{
			DataDir: envOr("DATA_DIR", "./data"),
			LogsDir: envOr("LOGS_DIR", "./logs"),
		},
		Pool: PoolConfig{
			Slots:                envIntOr("BROWSER_POOL_SIZE", 4),
			MaxTabsBeforeRecycle: envIntOr("MAX_TABS_BEFORE_RECYCLE", 200),
			NavigationTimeout:    envDurationOr("NAVIGATION_TIMEOUT", 30*time.Second),
		},
		Fetch: FetchConfig{
			HTTPTimeout:        envDurationOr("HTTP_TIMEOUT", 30*time.Second),
			MaxRedirects:       envIntOr("MAX_REDIRECTS", 5),
			MaxBodyBytes:       int64(envIntOr("MAX_BODY_BYTES", 10*1024*1024)),
			NetworkIdleTimeout: envDurationOr("NETWORK_IDLE_TIMEOUT", 10*time.Second),
			StealthNoSandbox:   envBoolOr("STEALTH_NO_SANDBOX", false),
			StealthBin:         os.Getenv("STEALTH_BROWSER_BIN"),
		},
		Auth: AuthConfig{
			APIKey: os.Getenv("API_KEY"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: envFloatOr("RATE_LIMIT_RPS", 10.0),
			Burst:             envIntOr("RATE_LIMIT_BURST", 20),
		},
		Cache: CacheConfig{
			TTL:        envDurationOr("CACHE_TTL", 0),
			MaxEntries: envIntOr("CACHE_MAX_ENTRIES", 1000),
		},
		Log: LogConfig{
			Level: envOr("LOG_LEVEL", "info"),
		},
		Runtime: Runtime{
			BrowserlessURL:  os.Getenv("BROWSERLESS_URL"),
			ProxyURL:        os.Getenv("PROXY_URL"),
			DefaultEngine:   envOr("DEFAULT_ENGINE", "auto"),
			BrowserStealth:  envBoolOr("BROWSER_STEALTH", true),
			BrowserHeadless: envBoolOr("BROWSER_HEADLESS", true),
		},
	}
}

// --- helper functions ---

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		// bare integers are seconds, matching the other numeric env vars
		if i, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return time.Duration(i) * time.Second
		}
	}
	return fallback
}
