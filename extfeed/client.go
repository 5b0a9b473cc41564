// Package extfeed reads posts from the external blog API. The API returns
// either a bare JSON array or an object with an "items" array.
package extfeed

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/eringen/pilotsite/apperr"
)

// DefaultTimeout bounds a single fetch.
const DefaultTimeout = 15 * time.Second

const maxBody = 4 << 20

// imageFields are tried in order. The first field holding a value wins even
// when that value is not a usable string, which leaves the item without an
// image.
var imageFields = []string{"coverImage", "mainImage", "featuredImage", "image"}

// Item is a read-only post from the external API.
type Item struct {
	Title         string    `json:"title"`
	Slug          string    `json:"slug"`
	URL           string    `json:"url"`
	PublishedDate time.Time `json:"publishedDate"`
	Image         string    `json:"image"`
}

// Source yields the current external posts.
type Source interface {
	Fetch(ctx context.Context) ([]Item, error)
}

// Client fetches from the external blog API.
type Client struct {
	Endpoint string        // GET endpoint returning the post list
	PostBase string        // item links are PostBase + "/" + slug
	Timeout  time.Duration // DefaultTimeout when zero
	HTTP     *http.Client
	Media    MediaResolver
}

// NewClient returns a Client with the default timeout and Wix media resolver.
func NewClient(endpoint, postBase string) *Client {
	return &Client{
		Endpoint: endpoint,
		PostBase: strings.TrimRight(postBase, "/"),
		Timeout:  DefaultTimeout,
		HTTP:     &http.Client{},
		Media:    WixMedia{},
	}
}

// Fetch performs one GET and decodes the items. Failures are classified as
// apperr.Timeout, or apperr.Network with StatusCode set for non-2xx replies.
func (c *Client) Fetch(ctx context.Context) ([]Item, error) {
	const op = "fetch external feed"
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.Endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")

	hc := c.HTTP
	if hc == nil {
		hc = http.DefaultClient
	}
	resp, err := hc.Do(req)
	if err != nil {
		return nil, classify(op, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apperr.Status(op, resp.StatusCode)
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, classify(op, err)
	}
	raw, err := decodeItems(body)
	if err != nil {
		return nil, apperr.E(apperr.Network, op, err)
	}
	items := make([]Item, 0, len(raw))
	for _, r := range raw {
		items = append(items, c.item(r))
	}
	return items, nil
}

func (c *Client) item(r map[string]any) Item {
	it := Item{
		Title: stringField(r, "title"),
		Slug:  stringField(r, "slug"),
	}
	if it.Title == "" {
		it.Title = "Untitled"
	}
	it.URL = c.PostBase + "/" + it.Slug
	it.PublishedDate = parseDate(stringField(r, "publishedDate"))
	for _, f := range imageFields {
		if !present(r[f]) {
			continue
		}
		it.Image = stringField(r, f)
		break
	}
	if it.Image != "" && c.Media != nil {
		it.Image = c.Media.Resolve(it.Image)
	}
	return it
}

// decodeItems accepts `[...]` or `{"items": [...]}`. Any other JSON value
// yields no items.
func decodeItems(body []byte) ([]map[string]any, error) {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		return nil, nil
	}
	switch body[0] {
	case '[':
		var items []map[string]any
		if err := json.Unmarshal(body, &items); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		return items, nil
	case '{':
		var wrapped struct {
			Items json.RawMessage `json:"items"`
		}
		if err := json.Unmarshal(body, &wrapped); err != nil {
			return nil, fmt.Errorf("decode items: %w", err)
		}
		var items []map[string]any
		if err := json.Unmarshal(wrapped.Items, &items); err != nil {
			// "items" missing or not an array.
			return nil, nil
		}
		return items, nil
	default:
		if !json.Valid(body) {
			return nil, errors.New("decode items: invalid JSON")
		}
		return nil, nil
	}
}

// dateLayouts are the publishedDate forms the feed is known to send.
var dateLayouts = []string{time.RFC3339, "2006-01-02"}

func parseDate(s string) time.Time {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

// present reports whether a decoded JSON value counts as set.
func present(v any) bool {
	switch v := v.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != ""
	case bool:
		return v
	case float64:
		return v != 0
	default:
		return true
	}
}

func stringField(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return strings.TrimSpace(s)
}

func classify(op string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return apperr.E(apperr.Timeout, op, err)
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return apperr.E(apperr.Timeout, op, err)
	}
	return apperr.E(apperr.Network, op, err)
}
