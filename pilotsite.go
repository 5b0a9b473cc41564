// Package pilotsite is the Diversity Pilots marketing site: a public blog
// feed backed by a document store, a feed from an external blog API, a feed
// editor and an org dashboard for drafts, both behind the Auth Gate.
package pilotsite

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/eringen/pilotsite/docstore"
	"github.com/eringen/pilotsite/editor"
	"github.com/eringen/pilotsite/extfeed"
	"github.com/eringen/pilotsite/live"
	"github.com/eringen/pilotsite/objstore"
)

// App is the central pilotsite application. It wires together the stores,
// caches, binders, middleware and handlers.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Log    *slog.Logger

	Store  docstore.Store
	Bucket objstore.Bucket
	Feed   *FeedCache
	News   extfeed.Source
	Blogs  *editor.Binder
	Drafts *editor.Binder
	Hub    *live.Hub

	loginLimiter *LoginLimiter
	tokens       *TokenVerifier
	closers      []io.Closer
	cancel       context.CancelFunc
	customRoutes []func(*App)
	staticDir    string
}

// New creates a new App with the given configuration.
func New(cfg SiteConfig, opts ...Option) *App {
	cfg.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		staticDir: "public",
	}
	a.Echo.HideBanner = true

	for _, opt := range opts {
		opt(a)
	}
	if a.Log == nil {
		a.Log = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: a.Config.LogLevel}))
	}
	return a
}

// WithStore uses s instead of opening the configured store. The App does
// not close it.
func WithStore(s docstore.Store) Option {
	return func(a *App) { a.Store = s }
}

// WithBucket uses b for uploads instead of the media directory.
func WithBucket(b objstore.Bucket) Option {
	return func(a *App) { a.Bucket = b }
}

// WithNewsSource replaces the external blog client.
func WithNewsSource(src extfeed.Source) Option {
	return func(a *App) { a.News = src }
}

// WithTokenVerifier enables ID-token sign-in with v.
func WithTokenVerifier(v *TokenVerifier) Option {
	return func(a *App) { a.tokens = v }
}

// Setup opens the backends and registers middleware and routes. Start calls
// it; tests call it directly and drive a.Echo.
func (a *App) Setup(ctx context.Context) error {
	if err := a.Config.validate(); err != nil {
		return err
	}
	ctx, a.cancel = context.WithCancel(ctx)

	if a.Store == nil {
		if a.Config.StoreDriver == "sqlite" {
			if err := os.MkdirAll(filepath.Dir(a.Config.StoreDSN), 0o755); err != nil {
				return fmt.Errorf("pilotsite: create data dir: %w", err)
			}
		}
		store, err := docstore.Open(ctx, a.Config.StoreDriver, a.Config.StoreDSN, a.Config.StoreDatabase)
		if err != nil {
			return fmt.Errorf("pilotsite: open store: %w", err)
		}
		a.Store = store
		a.closers = append(a.closers, store)
	}

	if a.Bucket == nil {
		bucket, err := objstore.NewFS(a.Config.MediaDir, "/media")
		if err != nil {
			return fmt.Errorf("pilotsite: %w", err)
		}
		a.Bucket = bucket
	}

	if a.News == nil && a.Config.NewsAPIURL != "" {
		src, err := a.newsSource(ctx)
		if err != nil {
			return err
		}
		a.News = src
	}

	if a.tokens == nil && a.Config.AuthJWKSURL != "" {
		v, err := NewTokenVerifier(ctx, a.Config.AuthJWKSURL, a.Config.AuthIssuer, a.Config.AuthAudience)
		if err != nil {
			return fmt.Errorf("pilotsite: %w", err)
		}
		a.tokens = v
	}

	a.Feed = NewFeedCache(a.Store, a.Config.FeedCacheTTL, a.Log)
	a.Hub = live.NewHub(a.Log)
	notify := editor.NotifyFunc(a.changed)
	a.Blogs = editor.New(editor.Blog, a.Store, a.Bucket, editor.WithNotifier(notify))
	a.Drafts = editor.New(editor.Draft, a.Store, a.Bucket, editor.WithNotifier(notify))
	a.loginLimiter = NewLoginLimiter(a.Config.LoginAttempts, a.Config.LoginWindow)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}
	return nil
}

// newsSource builds the external blog client behind a Redis or in-memory cache.
func (a *App) newsSource(ctx context.Context) (extfeed.Source, error) {
	client := extfeed.NewClient(a.Config.NewsAPIURL, a.Config.NewsPostBase)
	client.Timeout = a.Config.NewsTimeout
	if a.Config.NewsCacheTTL < 0 {
		return client, nil
	}
	var cache extfeed.Cache = extfeed.NewMemoryCache()
	if a.Config.RedisURL != "" {
		rc, err := extfeed.NewRedisCache(ctx, a.Config.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("pilotsite: %w", err)
		}
		a.closers = append(a.closers, rc)
		cache = rc
	}
	return &extfeed.Cached{
		Src:   client,
		Cache: cache,
		TTL:   a.Config.NewsCacheTTL,
		OnCacheError: func(err error) {
			a.Log.Warn("external feed cache unavailable", "error", err)
		},
	}, nil
}

// changed reacts to a successful editor write.
func (a *App) changed(coll, authorID string) {
	switch coll {
	case docstore.Blogs:
		a.Feed.Invalidate()
	case docstore.Posts:
		a.Hub.Broadcast(authorID)
	}
}

// Start sets the app up and serves until the server is shut down.
func (a *App) Start(ctx context.Context) error {
	if err := a.Setup(ctx); err != nil {
		return err
	}
	a.Log.Info("listening", "addr", a.Config.Addr, "store", a.Config.StoreDriver)
	if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops the server gracefully.
func (a *App) Shutdown(ctx context.Context) error {
	return a.Echo.Shutdown(ctx)
}

func (a *App) setupRoutes() {
	e := a.Echo

	embeddedFS, _ := fs.Sub(EmbeddedAssets, "embedded")
	embeddedHandler := http.FileServer(http.FS(embeddedFS))
	e.GET("/public/live.js", echo.WrapHandler(http.StripPrefix("/public/", embeddedHandler)))

	e.Static("/public", a.staticDir)
	e.Static("/media", a.Config.MediaDir)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/healthz", a.handleHealth)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	// Public routes
	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/", a.handleHome)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/news/", a.handleNews)
	e.GET("/api/blogs", a.handleAPIBlogs, a.corsMiddleware())

	// Auth Gate
	e.GET("/login/", a.handleLoginPage)
	e.POST("/login/", a.handleLogin)
	e.POST("/login/token/", a.handleTokenLogin)
	e.POST("/logout/", a.handleLogout)

	// Feed editor
	admin := e.Group("/admin", a.requireOrg)
	admin.GET("/", a.handleEditor)
	admin.GET("/blogs/:id/", a.handleEditorEdit)
	admin.POST("/blogs/", a.handleEditorSubmit)
	admin.GET("/blogs/:id/delete/", a.handleEditorConfirmDelete)
	admin.POST("/blogs/:id/delete/", a.handleEditorDelete)

	// Drafts dashboard
	dash := e.Group("/dashboard", a.requireOrg)
	dash.GET("/", a.handleDashboard)
	dash.GET("/posts/list/", a.handleDashboardList)
	dash.GET("/posts/:id/edit/", a.handleDashboardEdit)
	dash.POST("/posts/", a.handleDashboardSave)
	dash.POST("/posts/:id/publish/", a.handleDashboardPublish)
	dash.GET("/posts/:id/delete/", a.handleDashboardConfirmDelete)
	dash.POST("/posts/:id/delete/", a.handleDashboardDelete)
	dash.GET("/live/", a.handleDashboardLive)
}

// Close cleans up resources. Call this when the app is shutting down.
func (a *App) Close() error {
	if a.cancel != nil {
		a.cancel()
	}
	if a.loginLimiter != nil {
		a.loginLimiter.Stop()
	}
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
