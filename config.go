package pilotsite

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/eringen/pilotsite/views"
)

// SiteConfig holds all configuration for a pilotsite server.
type SiteConfig struct {
	Name        string // Site name (default "Diversity Pilots")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string

	Addr string // Listen address (default ":3000")

	StoreDriver   string // "sqlite" (default) or "mongo"
	StoreDSN      string // SQLite path or Mongo URI (default "data/site.db")
	StoreDatabase string // Mongo database name (default "pilotsite")

	MediaDir string // Upload root served at /media (default "data/media")

	SessionSecret string // Required: session encryption secret
	CookieSecure  bool   // Set true for HTTPS

	FeedCacheTTL   time.Duration // Public feed cache TTL (default 5min)
	PageSize       int           // Cards per feed page (default 12)
	EditorPageSize int           // Rows per editor table page (default 20)

	NewsAPIURL   string        // External blog endpoint; /news/ is disabled when empty
	NewsPostBase string        // Prefix for external post links
	NewsTimeout  time.Duration // default 15s
	NewsCacheTTL time.Duration // default 10min; negative disables caching
	RedisURL     string        // External feed cache; in-memory when empty

	AuthJWKSURL  string // Enables ID-token sign-in
	AuthIssuer   string
	AuthAudience string

	CORSOrigins []string // Origins allowed to read /api/blogs (default "*")

	LoginAttempts int           // Failed sign-ins allowed per window (default 5)
	LoginWindow   time.Duration // default 1min

	LogLevel slog.Level
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Diversity Pilots"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.StoreDriver == "" {
		c.StoreDriver = "sqlite"
	}
	if c.StoreDSN == "" && c.StoreDriver == "sqlite" {
		c.StoreDSN = "data/site.db"
	}
	if c.StoreDatabase == "" {
		c.StoreDatabase = "pilotsite"
	}
	if c.MediaDir == "" {
		c.MediaDir = "data/media"
	}
	if c.FeedCacheTTL == 0 {
		c.FeedCacheTTL = 5 * time.Minute
	}
	if c.PageSize <= 0 {
		c.PageSize = 12
	}
	if c.EditorPageSize <= 0 {
		c.EditorPageSize = 20
	}
	if c.NewsTimeout == 0 {
		c.NewsTimeout = 15 * time.Second
	}
	if c.NewsCacheTTL == 0 {
		c.NewsCacheTTL = 10 * time.Minute
	}
	if len(c.CORSOrigins) == 0 {
		c.CORSOrigins = []string{"*"}
	}
	if c.LoginAttempts <= 0 {
		c.LoginAttempts = 5
	}
	if c.LoginWindow == 0 {
		c.LoginWindow = time.Minute
	}
}

func (c *SiteConfig) validate() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("pilotsite: SessionSecret is required")
	}
	if len(c.SessionSecret) < 16 {
		return fmt.Errorf("pilotsite: SessionSecret must be at least 16 bytes")
	}
	switch c.StoreDriver {
	case "sqlite", "mongo", "mongodb":
	default:
		return fmt.Errorf("pilotsite: unknown store driver %q", c.StoreDriver)
	}
	if c.StoreDSN == "" {
		return fmt.Errorf("pilotsite: StoreDSN is required for driver %s", c.StoreDriver)
	}
	if c.NewsAPIURL != "" && c.NewsPostBase == "" {
		return fmt.Errorf("pilotsite: NewsPostBase is required when NewsAPIURL is set")
	}
	return nil
}

func (c SiteConfig) views() views.SiteConfig {
	return views.SiteConfig{
		Name:        c.Name,
		URL:         c.URL,
		Description: c.Description,
		Author:      c.Author,
	}
}

// LoadConfig builds a SiteConfig from environment variables.
func LoadConfig() SiteConfig {
	cfg := SiteConfig{
		Name:           getEnv("SITE_NAME", ""),
		URL:            getEnv("SITE_URL", ""),
		Description:    getEnv("SITE_DESCRIPTION", ""),
		Author:         getEnv("SITE_AUTHOR", ""),
		Addr:           getEnv("ADDR", ""),
		StoreDriver:    getEnv("STORE_DRIVER", ""),
		StoreDSN:       getEnv("STORE_DSN", ""),
		StoreDatabase:  getEnv("STORE_DATABASE", ""),
		MediaDir:       getEnv("MEDIA_DIR", ""),
		SessionSecret:  getEnv("SESSION_SECRET", ""),
		CookieSecure:   getEnvBool("COOKIE_SECURE", false),
		FeedCacheTTL:   getEnvDuration("FEED_CACHE_TTL", 0),
		PageSize:       getEnvInt("PAGE_SIZE", 0),
		EditorPageSize: getEnvInt("EDITOR_PAGE_SIZE", 0),
		NewsAPIURL:     getEnv("NEWS_API_URL", ""),
		NewsPostBase:   getEnv("NEWS_POST_BASE", ""),
		NewsTimeout:    getEnvDuration("NEWS_TIMEOUT", 0),
		NewsCacheTTL:   getEnvDuration("NEWS_CACHE_TTL", 0),
		RedisURL:       getEnv("REDIS_URL", ""),
		AuthJWKSURL:    getEnv("AUTH_JWKS_URL", ""),
		AuthIssuer:     getEnv("AUTH_ISSUER", ""),
		AuthAudience:   getEnv("AUTH_AUDIENCE", ""),
		LoginAttempts:  getEnvInt("LOGIN_ATTEMPTS", 0),
		LoginWindow:    getEnvDuration("LOGIN_WINDOW", 0),
	}
	if origins := getEnv("CORS_ORIGINS", ""); origins != "" {
		for _, o := range strings.Split(origins, ",") {
			if o = strings.TrimSpace(o); o != "" {
				cfg.CORSOrigins = append(cfg.CORSOrigins, o)
			}
		}
	}
	_ = cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info")))
	return cfg
}

func getEnv(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v, err := strconv.Atoi(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v, err := strconv.ParseBool(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v, err := time.ParseDuration(getEnv(key, "")); err == nil {
		return v
	}
	return fallback
}

// Option configures additional App behavior.
type Option func(*App)

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App before the server starts.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for site static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// WithLogger replaces the default JSON logger.
func WithLogger(log *slog.Logger) Option {
	return func(a *App) {
		a.Log = log
	}
}
