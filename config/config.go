package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Browser   BrowserConfig   `yaml:"browser"`
	Clipper   ClipperConfig   `yaml:"clipper"`
	Fetch     FetchConfig     `yaml:"fetch"`
	Auth      AuthConfig      `yaml:"auth"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
	Cache     CacheConfig     `yaml:"cache"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Log       LogConfig       `yaml:"log"`
}

// ClipperConfig controls one clip run: where records go and how auxiliary
// translation windows are polled.
type ClipperConfig struct {
	// BaseEndpoint receives the base article record.
	BaseEndpoint string `yaml:"base_endpoint"`

	// TranslationEndpoint receives one payload per harvested translation.
	TranslationEndpoint string `yaml:"translation_endpoint"`

	// AuthToken is the shared secret attached to every outbound payload.
	AuthToken string `yaml:"auth_token"`

	// SigningSecret, when set, signs every request body with HMAC-SHA256.
	SigningSecret string `yaml:"signing_secret"`

	// PollTimeout bounds how long one auxiliary window is polled.
	PollTimeout time.Duration `yaml:"poll_timeout"` // default: 20s

	// PollInterval is the delay between two readiness checks.
	PollInterval time.Duration `yaml:"poll_interval"` // default: 350ms

	// InterTargetDelayMin/Max bound the random pause between two window
	// openings. A zero range disables the pause.
	InterTargetDelayMin time.Duration `yaml:"inter_target_delay_min"` // default: 400ms
	InterTargetDelayMax time.Duration `yaml:"inter_target_delay_max"` // default: 2.5s

	// MarkerSelector identifies the translated content on auxiliary pages.
	MarkerSelector string `yaml:"marker_selector"` // default: "#engDiffBox"

	// SourceWait is the DOM-stable window used when loading the source page.
	SourceWait time.Duration `yaml:"source_wait"` // default: 300ms

	// Templates maps a language tag to an auxiliary URL template. The
	// literal "{id}" is replaced by the article identifier token.
	Templates map[string]string `yaml:"templates"`

	// CheckLanguage enables language detection on harvested content.
	CheckLanguage bool `yaml:"check_language"` // default: true
}

// FetchConfig controls how the source article is loaded.
type FetchConfig struct {
	// Mode is "browser" (render in Chromium) or "http" (plain GET).
	Mode string `yaml:"mode"` // default: "browser"

	// Timeout bounds loading the source article.
	Timeout time.Duration `yaml:"timeout"` // default: 30s
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Host string `yaml:"host"` // default: "0.0.0.0"
	Port int    `yaml:"port"` // default: 8080
	Mode string `yaml:"mode"` // "debug", "release", "test"; default: "release"
}

// BrowserConfig controls the Rod browser instance.
type BrowserConfig struct {
	// Headless controls whether the browser runs headless.
	Headless bool `yaml:"headless"` // default: true

	// MaxPages caps the number of windows open at the same time.
	MaxPages int `yaml:"max_pages"` // default: 6

	// Proxy is the proxy URL the browser is launched with.
	Proxy string `yaml:"proxy"`

	// NoSandbox disables Chrome's sandbox (needed in Docker).
	NoSandbox bool `yaml:"no_sandbox"`

	// BrowserBin overrides the Chromium binary path.
	BrowserBin string `yaml:"browser_bin"`

	// CDPURL attaches to an already running browser instead of launching one.
	CDPURL string `yaml:"cdp_url"`

	// Stealth injects anti-automation evasions into every window.
	Stealth bool `yaml:"stealth"` // default: true

	// BlockedResourceTypes lists resource types to block in every window.
	// default: ["Image", "Font", "Media"]
	BlockedResourceTypes []string `yaml:"blocked_resource_types"`
}

// AuthConfig controls API key authentication.
type AuthConfig struct {
	Enabled bool     `yaml:"enabled"` // default: true
	APIKeys []string `yaml:"api_keys"`
}

// RateLimitConfig controls per-key rate limiting.
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second"` // default: 1
	Burst             int     `yaml:"burst"`               // default: 3
}

// CacheConfig controls the clip report cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries"` // default: 500
}

// WebhookConfig controls run-completion notifications. An empty URL
// disables them.
type WebhookConfig struct {
	URL    string `yaml:"url"`
	Secret string `yaml:"secret"`
}

// LogConfig controls structured logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // default: "info"
	Format string `yaml:"format"` // "json" or "text"; default: "json"
}

// DefaultTemplates are the auxiliary translation pages, keyed by language.
func DefaultTemplates() map[string]string {
	return map[string]string{
		"en": "https://www.nikkei.com/news/article-translation/?ng={id}",
		"zh": "https://www.nikkei.com/news/article-translation/?bf=0&ng={id}&mta=c",
	}
}

// Default returns the configuration used when nothing is overridden.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host: "0.0.0.0",
			Port: 8080,
			Mode: "release",
		},
		Browser: BrowserConfig{
			Headless:             true,
			MaxPages:             6,
			Stealth:              true,
			BlockedResourceTypes: []string{"Image", "Font", "Media"},
		},
		Clipper: ClipperConfig{
			PollTimeout:         20 * time.Second,
			PollInterval:        350 * time.Millisecond,
			InterTargetDelayMin: 400 * time.Millisecond,
			InterTargetDelayMax: 2500 * time.Millisecond,
			MarkerSelector:      "#engDiffBox",
			SourceWait:          300 * time.Millisecond,
			Templates:           DefaultTemplates(),
			CheckLanguage:       true,
		},
		Fetch: FetchConfig{
			Mode:    "browser",
			Timeout: 30 * time.Second,
		},
		Auth: AuthConfig{
			Enabled: true,
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 1,
			Burst:             3,
		},
		Cache: CacheConfig{
			MaxEntries: 500,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// Load builds the configuration from defaults, then the optional YAML file
// at path (or $CLIPPER_CONFIG), then environment variables.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CLIPPER_CONFIG")
	}
	if path != "" {
		if err := LoadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	s := &cfg.Server
	s.Host = envOr("CLIPPER_HOST", s.Host)
	s.Port = envIntOr("CLIPPER_PORT", s.Port)
	s.Mode = envOr("CLIPPER_MODE", s.Mode)

	b := &cfg.Browser
	b.Headless = envBoolOr("CLIPPER_HEADLESS", b.Headless)
	b.MaxPages = envIntOr("CLIPPER_MAX_PAGES", b.MaxPages)
	b.Proxy = envOr("CLIPPER_PROXY", b.Proxy)
	b.NoSandbox = envBoolOr("CLIPPER_NO_SANDBOX", b.NoSandbox)
	b.BrowserBin = envOr("CLIPPER_BROWSER_BIN", b.BrowserBin)
	b.CDPURL = envOr("CLIPPER_CDP_URL", b.CDPURL)
	b.Stealth = envBoolOr("CLIPPER_STEALTH", b.Stealth)
	b.BlockedResourceTypes = envSliceOr("CLIPPER_BLOCKED_RESOURCES", b.BlockedResourceTypes)

	c := &cfg.Clipper
	c.BaseEndpoint = envOr("CLIPPER_BASE_ENDPOINT", c.BaseEndpoint)
	c.TranslationEndpoint = envOr("CLIPPER_TRANSLATION_ENDPOINT", c.TranslationEndpoint)
	c.AuthToken = envOr("CLIPPER_AUTH_TOKEN", c.AuthToken)
	c.SigningSecret = envOr("CLIPPER_SIGNING_SECRET", c.SigningSecret)
	c.PollTimeout = envDurationOr("CLIPPER_POLL_TIMEOUT", c.PollTimeout)
	c.PollInterval = envDurationOr("CLIPPER_POLL_INTERVAL", c.PollInterval)
	c.InterTargetDelayMin = envDurationOr("CLIPPER_DELAY_MIN", c.InterTargetDelayMin)
	c.InterTargetDelayMax = envDurationOr("CLIPPER_DELAY_MAX", c.InterTargetDelayMax)
	c.MarkerSelector = envOr("CLIPPER_MARKER_SELECTOR", c.MarkerSelector)
	c.SourceWait = envDurationOr("CLIPPER_SOURCE_WAIT", c.SourceWait)
	c.CheckLanguage = envBoolOr("CLIPPER_CHECK_LANGUAGE", c.CheckLanguage)
	if len(c.Templates) == 0 {
		c.Templates = DefaultTemplates()
	}

	f := &cfg.Fetch
	f.Mode = envOr("CLIPPER_FETCH_MODE", f.Mode)
	f.Timeout = envDurationOr("CLIPPER_FETCH_TIMEOUT", f.Timeout)

	cfg.Auth.Enabled = envBoolOr("CLIPPER_AUTH_ENABLED", cfg.Auth.Enabled)
	cfg.Auth.APIKeys = envSliceOr("CLIPPER_API_KEYS", cfg.Auth.APIKeys)

	cfg.RateLimit.RequestsPerSecond = envFloatOr("CLIPPER_RATE_RPS", cfg.RateLimit.RequestsPerSecond)
	cfg.RateLimit.Burst = envIntOr("CLIPPER_RATE_BURST", cfg.RateLimit.Burst)

	cfg.Cache.MaxEntries = envIntOr("CLIPPER_CACHE_MAX_ENTRIES", cfg.Cache.MaxEntries)

	cfg.Webhook.URL = envOr("CLIPPER_WEBHOOK_URL", cfg.Webhook.URL)
	cfg.Webhook.Secret = envOr("CLIPPER_WEBHOOK_SECRET", cfg.Webhook.Secret)

	cfg.Log.Level = envOr("CLIPPER_LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Format = envOr("CLIPPER_LOG_FORMAT", cfg.Log.Format)
}

// Validate reports the first setting that would make a clip run impossible.
func (c *ClipperConfig) Validate() error {
	switch {
	case c.BaseEndpoint == "":
		return errors.New("config: base endpoint is required")
	case c.TranslationEndpoint == "":
		return errors.New("config: translation endpoint is required")
	case c.AuthToken == "":
		return errors.New("config: auth token is required")
	case c.PollInterval <= 0:
		return fmt.Errorf("config: poll interval must be positive, got %s", c.PollInterval)
	case c.PollTimeout < c.PollInterval:
		return fmt.Errorf("config: poll timeout %s is shorter than poll interval %s", c.PollTimeout, c.PollInterval)
	case c.InterTargetDelayMin < 0 || c.InterTargetDelayMin > c.InterTargetDelayMax:
		return fmt.Errorf("config: invalid inter-target delay range [%s, %s]", c.InterTargetDelayMin, c.InterTargetDelayMax)
	case c.MarkerSelector == "":
		return errors.New("config: marker selector is required")
	case len(c.Templates) == 0:
		return errors.New("config: at least one auxiliary template is required")
	}
	return nil
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
	}
	return fallback
}

func envSliceOr(key string, fallback []string) []string {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		result := make([]string, 0, len(parts))
		for _, p := range parts {
			if trimmed := strings.TrimSpace(p); trimmed != "" {
				result = append(result, trimmed)
			}
		}
		return result
	}
	return fallback
}
