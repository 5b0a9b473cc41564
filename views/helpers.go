package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strings"

	"github.com/eringen/pilotsite/docstore"
)

// PlaceholderImage is shown when a post has no image.
const PlaceholderImage = "data:image/svg+xml,%3Csvg%20xmlns%3D%22http%3A%2F%2Fwww.w3.org%2F2000%2Fsvg%22%20width%3D%22400%22%20height%3D%22260%22%20viewBox%3D%220%200%20400%20260%22%3E%3Crect%20fill%3D%22%23e5e7eb%22%20width%3D%22400%22%20height%3D%22260%22%2F%3E%3Ctext%20fill%3D%22%239ca3af%22%20font-family%3D%22sans-serif%22%20font-size%3D%2214%22%20x%3D%2250%25%22%20y%3D%2250%25%22%20text-anchor%3D%22middle%22%20dy%3D%22.3em%22%3ENo%20image%3C%2Ftext%3E%3C%2Fsvg%3E"

// socialLabels maps social keys to link text, in display order.
var socialLabels = []struct{ Key, Label string }{
	{"facebook", "Facebook"},
	{"twitter", "Twitter"},
	{"linkedin", "LinkedIn"},
	{"other", "Link"},
}

// buildURL joins path segments onto a base URL, ensuring a trailing slash.
func buildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// PostHref is the detail link for a feed post, or "#" when it has no slug.
func PostHref(p docstore.Post) string {
	if strings.TrimSpace(p.Slug) == "" {
		return "#"
	}
	return "/blog/" + url.PathEscape(p.Slug) + "/"
}

// DateLine is the byline under a feed card title.
func DateLine(date string) string {
	if date = strings.TrimSpace(date); date != "" {
		return date + " – No Comments"
	}
	return "No Comments"
}

func imageOr(src string) string {
	if s := strings.TrimSpace(src); s != "" {
		return s
	}
	return PlaceholderImage
}

func titleOr(t string) string {
	if strings.TrimSpace(t) == "" {
		return "Untitled"
	}
	return t
}

// paragraphs splits text on blank lines.
func paragraphs(s string) []string {
	var out []string
	for _, block := range strings.Split(strings.ReplaceAll(s, "\r\n", "\n"), "\n\n") {
		if b := strings.TrimSpace(block); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block using cfg values.
func WebsiteJsonLD(cfg SiteConfig) string {
	data := map[string]interface{}{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     cfg.Name,
		"url":      buildURL(cfg.URL),
	}
	if cfg.Description != "" {
		data["description"] = cfg.Description
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block for a feed post.
func BlogPostingJsonLD(cfg SiteConfig, post docstore.Post) string {
	postURL := buildURL(cfg.URL, "blog", post.Slug)
	data := map[string]interface{}{
		"@context":    "https://schema.org",
		"@type":       "BlogPosting",
		"headline":    post.Title,
		"description": post.Summary,
		"url":         postURL,
		"publisher": map[string]string{
			"@type": "Organization",
			"name":  cfg.Name,
		},
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if !post.CreatedAt.IsZero() {
		data["datePublished"] = post.CreatedAt.Format("2006-01-02")
	}
	if post.Image != "" {
		data["image"] = post.Image
	}
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}
