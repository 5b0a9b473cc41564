package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// Layout wraps body in the site chrome: head metadata, header navigation and
// footer.
func Layout(cfg SiteConfig, meta PageMeta, nav Nav, body templ.Component) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		title := cfg.Name
		if meta.Title != "" {
			title = meta.Title + " | " + cfg.Name
		}
		desc := meta.Description
		if desc == "" {
			desc = cfg.Description
		}
		ogType := meta.OGType
		if ogType == "" {
			ogType = "website"
		}

		h.raw(`<!doctype html><html lang="en"><head><meta charset="utf-8">`,
			`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		h.raw(`<title>`)
		h.text(title)
		h.raw(`</title>`)
		if desc != "" {
			h.raw(`<meta name="description" content="`)
			h.text(desc)
			h.raw(`">`)
		}
		if meta.URL != "" {
			h.raw(`<link rel="canonical" href="`)
			h.url(meta.URL)
			h.raw(`"><meta property="og:url" content="`)
			h.url(meta.URL)
			h.raw(`">`)
		}
		h.raw(`<meta property="og:title" content="`)
		h.text(title)
		h.raw(`"><meta property="og:type" content="`)
		h.text(ogType)
		h.raw(`">`)
		h.raw(`<link rel="alternate" type="application/rss+xml" href="/feed.xml" title="`)
		h.text(cfg.Name)
		h.raw(`">`)
		if meta.JSONLD != "" {
			h.raw(`<script type="application/ld+json">`, meta.JSONLD, `</script>`)
		}
		h.raw(`<link rel="stylesheet" href="/public/styles.css"></head><body class="bg-gray-50 text-gray-900">`)

		header(h, cfg, nav)
		h.raw(`<main class="max-w-6xl mx-auto px-4 py-10">`)
		h.render(body)
		h.raw(`</main><footer class="border-t border-gray-200 py-6 text-center text-sm text-gray-500">`)
		h.text(cfg.Name)
		h.raw(` · <a href="/feed.xml" class="hover:underline">RSS</a></footer></body></html>`)
		return h.err
	})
}

func header(h *writer, cfg SiteConfig, nav Nav) {
	h.raw(`<header class="bg-white shadow-sm"><nav class="max-w-6xl mx-auto px-4 py-4 flex items-center gap-6">`,
		`<a href="/" class="text-lg font-bold text-[#8C1D40]">`)
	h.text(cfg.Name)
	h.raw(`</a><a href="/" class="hover:underline">Blog</a><a href="/news/" class="hover:underline">News</a>`)
	h.raw(`<span class="ml-auto flex items-center gap-4">`)
	if nav.Authorized {
		h.raw(`<a href="/dashboard/" class="hover:underline">Dashboard</a><a href="/admin/" class="hover:underline">Editor</a>`)
	}
	if nav.SignedIn {
		h.raw(`<span class="text-sm text-gray-500">`)
		h.text(nav.Email)
		h.raw(`</span><form method="post" action="/logout/" class="inline">`)
		h.csrf(nav.CSRF)
		h.raw(`<button type="submit" class="text-sm hover:underline">Sign out</button></form>`)
	} else {
		h.raw(`<a href="/login/" class="text-sm hover:underline">Sign in</a>`)
	}
	h.raw(`</span></nav></header>`)
}

// NotFound renders the 404 page.
func NotFound(cfg SiteConfig) templ.Component {
	return Layout(cfg, PageMeta{Title: "Not found"}, Nav{}, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		h.raw(`<section class="text-center py-20"><h1 class="text-3xl font-bold mb-4">Page not found</h1>`,
			`<p class="text-gray-600">The page you are looking for does not exist.</p>`,
			`<p class="mt-6"><a href="/" class="text-[#8C1D40] hover:underline">Back to the blog</a></p></section>`)
		return h.err
	}))
}

// ServerError renders the 500 page.
func ServerError(cfg SiteConfig) templ.Component {
	return Layout(cfg, PageMeta{Title: "Error"}, Nav{}, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		h.raw(`<section class="text-center py-20"><h1 class="text-3xl font-bold mb-4">Something went wrong</h1>`,
			`<p class="text-gray-600">Please try again in a moment.</p></section>`)
		return h.err
	}))
}
