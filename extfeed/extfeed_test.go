package extfeed

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pilotsite/apperr"
)

func serve(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestFetchBareArray(t *testing.T) {
	srv := serve(t, 200, `[
		{"title": "One", "slug": "one", "publishedDate": "2025-02-01T10:00:00Z", "mainImage": "https://img/one.png"},
		{"slug": "two", "image": "wix:image://v1/abc_123~mv2.jpg/two.jpg#originWidth=10&originHeight=10"},
		{"title": "Three <b>", "coverImage": "  ", "featuredImage": "https://img/three.png"}
	]`)
	c := NewClient(srv.URL, "https://blog.example.com/post/")

	items, err := c.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 3)

	assert.Equal(t, "One", items[0].Title)
	assert.Equal(t, "https://blog.example.com/post/one", items[0].URL)
	assert.Equal(t, "https://img/one.png", items[0].Image)
	assert.Equal(t, time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC), items[0].PublishedDate)

	assert.Equal(t, "Untitled", items[1].Title)
	assert.Equal(t, "https://static.wixstatic.com/media/abc_123~mv2.jpg", items[1].Image)

	assert.Equal(t, "https://img/three.png", items[2].Image)
	assert.True(t, items[2].PublishedDate.IsZero())
}

func TestFetchDateOnlyAndObjectImage(t *testing.T) {
	srv := serve(t, 200, `[
		{"title": "A", "slug": "a", "publishedDate": "2025-01-05", "coverImage": {"url": "x"}, "image": "https://img/a.png"},
		{"title": "B", "slug": "b", "publishedDate": "January 5", "coverImage": null, "mainImage": "https://img/b.png"}
	]`)
	items, err := NewClient(srv.URL, "https://x").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 2)

	assert.Equal(t, time.Date(2025, 1, 5, 0, 0, 0, 0, time.UTC), items[0].PublishedDate)
	assert.Equal(t, "", items[0].Image, "an object cover stops the lookup")

	assert.True(t, items[1].PublishedDate.IsZero())
	assert.Equal(t, "https://img/b.png", items[1].Image)
}

func TestFetchWrappedItems(t *testing.T) {
	srv := serve(t, 200, `{"items": [{"title": "Wrapped", "slug": "w"}]}`)
	items, err := NewClient(srv.URL, "https://x").Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "Wrapped", items[0].Title)
	assert.Equal(t, "", items[0].Image)
}

func TestFetchUnexpectedShapeIsEmpty(t *testing.T) {
	for _, body := range []string{`{"posts": []}`, `{"items": "nope"}`, `"hello"`, ``} {
		srv := serve(t, 200, body)
		items, err := NewClient(srv.URL, "https://x").Fetch(context.Background())
		require.NoError(t, err, "body=%q", body)
		assert.Empty(t, items)
	}
}

func TestFetchNon2xx(t *testing.T) {
	srv := serve(t, 503, `{}`)
	_, err := NewClient(srv.URL, "https://x").Fetch(context.Background())
	require.Error(t, err)
	var e *apperr.Error
	require.True(t, errors.As(err, &e))
	assert.Equal(t, apperr.Network, e.Kind)
	assert.Equal(t, 503, e.StatusCode)
}

func TestFetchTimeout(t *testing.T) {
	block := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-block:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(block)

	c := NewClient(srv.URL, "https://x")
	c.Timeout = 50 * time.Millisecond
	_, err := c.Fetch(context.Background())
	assert.True(t, apperr.Is(err, apperr.Timeout), "got %v", err)
}

func TestFetchConnectionRefused(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := NewClient(url, "https://x").Fetch(context.Background())
	assert.True(t, apperr.Is(err, apperr.Network), "got %v", err)
}

func TestWixMediaPassThrough(t *testing.T) {
	w := WixMedia{}
	assert.Equal(t, "https://cdn/x.png", w.Resolve("https://cdn/x.png"))
	assert.Equal(t, "", w.Resolve("wix:image://v1/"))
	assert.Equal(t, "https://media.test/id1", WixMedia{Host: "https://media.test/"}.Resolve("wix:image://v1/id1/n.png"))
}

type countingSource struct {
	calls int
	err   error
}

func (s *countingSource) Fetch(context.Context) ([]Item, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return []Item{{Title: "cached", Slug: "c"}}, nil
}

func TestCachedServesFromCache(t *testing.T) {
	src := &countingSource{}
	c := &Cached{Src: src, Cache: NewMemoryCache(), TTL: time.Minute}

	for i := 0; i < 3; i++ {
		items, err := c.Fetch(context.Background())
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, "cached", items[0].Title)
	}
	assert.Equal(t, 1, src.calls)
}

func TestCachedDoesNotCacheErrors(t *testing.T) {
	src := &countingSource{err: errors.New("down")}
	c := &Cached{Src: src, Cache: NewMemoryCache(), TTL: time.Minute}

	_, err := c.Fetch(context.Background())
	require.Error(t, err)
	_, err = c.Fetch(context.Background())
	require.Error(t, err)
	assert.Equal(t, 2, src.calls)
}

func TestMemoryCacheExpiry(t *testing.T) {
	m := NewMemoryCache()
	base := time.Now()
	m.now = func() time.Time { return base }
	require.NoError(t, m.Set(context.Background(), "k", []byte("v"), time.Second))

	_, ok, _ := m.Get(context.Background(), "k")
	assert.True(t, ok)

	m.now = func() time.Time { return base.Add(2 * time.Second) }
	_, ok, _ = m.Get(context.Background(), "k")
	assert.False(t, ok)
}
