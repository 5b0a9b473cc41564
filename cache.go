package pilotsite

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/eringen/pilotsite/apperr"
	"github.com/eringen/pilotsite/docstore"
	"github.com/eringen/pilotsite/metrics"
)

// FeedCache is an in-memory cache of the public feed with a TTL. Blog writes
// invalidate it.
type FeedCache struct {
	mu      sync.RWMutex
	posts   []docstore.Post
	fetched time.Time
	ttl     time.Duration
	store   docstore.Store
	log     *slog.Logger
}

// NewFeedCache creates a FeedCache backed by the given Store.
func NewFeedCache(s docstore.Store, ttl time.Duration, log *slog.Logger) *FeedCache {
	return &FeedCache{store: s, ttl: ttl, log: log}
}

func (c *FeedCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *FeedCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
}

// Posts returns the feed newest first. Load failures are not cached.
func (c *FeedCache) Posts(ctx context.Context) ([]docstore.Post, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.posts, nil
	}
	posts, err := loadFeed(ctx, c.store, c.log)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []docstore.Post{}
	}
	c.posts = posts
	c.fetched = time.Now()
	return posts, nil
}

// Post returns the feed post with slug.
func (c *FeedCache) Post(ctx context.Context, slug string) (docstore.Post, error) {
	posts, err := c.Posts(ctx)
	if err != nil {
		return docstore.Post{}, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			return p, nil
		}
	}
	return docstore.Post{}, apperr.E(apperr.NotFound, "get blog", fmt.Errorf("no post with slug %q", slug))
}

// loadFeed reads the blogs collection newest first. When the ordered query
// fails it logs a warning and falls back to an unordered read.
func loadFeed(ctx context.Context, s docstore.Store, log *slog.Logger) ([]docstore.Post, error) {
	posts, err := s.List(ctx, docstore.Blogs, docstore.Query{OrderBy: docstore.ByCreated, Desc: true})
	metrics.RecordOp("list blogs ordered", err)
	if err == nil {
		return posts, nil
	}
	if log != nil {
		log.Warn("ordered feed query failed, falling back to unordered read", "error", err)
	}
	posts, err = s.List(ctx, docstore.Blogs, docstore.Query{})
	metrics.RecordOp("list blogs", err)
	return posts, err
}
