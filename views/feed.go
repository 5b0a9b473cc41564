package views

import (
	"context"
	"io"
	"strconv"

	"github.com/a-h/templ"

	"github.com/eringen/pilotsite/docstore"
	"github.com/eringen/pilotsite/extfeed"
	"github.com/eringen/pilotsite/paginate"
)

const (
	gridOpen   = `<div class="grid gap-8 sm:grid-cols-2 lg:grid-cols-3">`
	cardOpen   = `<article class="bg-white rounded-lg overflow-hidden shadow-md hover:shadow-lg transition-shadow border border-gray-100 flex flex-col h-full">`
	cardAccent = `<div class="h-0.5 w-full bg-[#8C1D40]" aria-hidden="true"></div></article>`
)

func cardImage(h *writer, href, src, alt string) {
	h.raw(`<a href="`)
	h.url(href)
	h.raw(`" class="block flex-shrink-0" aria-label="Read blog"><div class="w-full aspect-[4/3] bg-gray-100 overflow-hidden"><img src="`)
	if s := imageOr(src); s == PlaceholderImage {
		h.text(s)
	} else {
		h.url(s)
	}
	h.raw(`" alt="`)
	h.text(alt)
	h.raw(`" class="w-full h-full object-cover" loading="lazy" decoding="async"></div></a>`)
}

func feedCard(h *writer, p docstore.Post) {
	href := PostHref(p)
	title := titleOr(p.Title)
	h.raw(cardOpen)
	cardImage(h, href, p.Image, title)
	h.raw(`<div class="p-6 flex-1 flex flex-col min-h-0"><h3 class="text-xl font-bold text-gray-900 mb-2 line-clamp-2 leading-snug"><a href="`)
	h.url(href)
	h.raw(`" class="hover:text-[#8C1D40] transition">`)
	h.text(title)
	h.raw(`</a></h3><p class="text-gray-500 text-sm mt-auto">`)
	h.text(DateLine(p.Date))
	h.raw(`</p>`)
	if p.Summary != "" {
		h.raw(`<p class="text-gray-700 text-sm leading-relaxed mt-2">`)
		h.text(p.Summary)
		h.raw(`</p>`)
	}
	socialLinks(h, p.Social)
	h.raw(`</div>`, cardAccent)
}

func socialLinks(h *writer, social map[string]string) {
	h.raw(`<div class="flex gap-3 text-sm mt-3">`)
	for _, s := range socialLabels {
		link := social[s.Key]
		if link == "" {
			continue
		}
		h.raw(`<a class="text-[#8C1D40] hover:underline" href="`)
		h.url(link)
		h.raw(`" target="_blank" rel="noopener noreferrer">`, s.Label, `</a>`)
	}
	h.raw(`</div>`)
}

// FeedSection renders the feed container for one page: the cards, the empty
// message, or the troubleshooting block when loading failed.
func FeedSection(d FeedData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		h.raw(`<section id="blog-feed">`)
		switch {
		case d.Err != "":
			feedError(h, d.Err)
		case len(d.Posts) == 0:
			h.raw(`<div class="col-span-full text-center text-gray-500">No blog posts found.</div>`)
		default:
			h.raw(gridOpen)
			for _, p := range d.Posts {
				feedCard(h, p)
			}
			h.raw(`</div>`)
			pagination(h, d.Page, "/?page=")
		}
		h.raw(`</section>`)
		return h.err
	})
}

func feedError(h *writer, debug string) {
	if debug == "" {
		debug = "Unknown error"
	}
	h.raw(`<div class="col-span-full p-4 bg-red-50 text-red-700 rounded">`,
		`We couldn't load blog posts. This is usually due to:`,
		`<ul class="list-disc ml-6 mt-2">`,
		`<li>The document store being unreachable from this server (check STORE_DRIVER and STORE_DSN).</li>`,
		`<li>Store permissions preventing reads for the configured account.</li>`,
		`<li>A malformed query or missing field (createdAt).</li>`,
		`</ul><div class="mt-3 text-sm"><div class="font-semibold">Debug:</div><div class="font-mono text-xs whitespace-pre-wrap">`)
	h.text(debug)
	h.raw(`</div></div></div>`)
}

func pagination(h *writer, p paginate.Page, href string) {
	if p.Total <= 1 {
		return
	}
	h.raw(`<nav class="flex items-center justify-center gap-2 mt-10" aria-label="Pagination">`)
	if p.HasPrev() {
		h.raw(`<a href="`)
		h.url(href + strconv.Itoa(p.Prev()))
		h.raw(`" class="px-3 py-1 border rounded" rel="prev">Prev</a>`)
	}
	for _, n := range p.Numbers() {
		num := strconv.Itoa(n)
		if n == p.Number {
			h.raw(`<span class="px-3 py-1 rounded bg-[#8C1D40] text-white" aria-current="page">`, num, `</span>`)
			continue
		}
		h.raw(`<a href="`)
		h.url(href + num)
		h.raw(`" class="px-3 py-1 border rounded">`, num, `</a>`)
	}
	if p.HasNext() {
		h.raw(`<a href="`)
		h.url(href + strconv.Itoa(p.Next()))
		h.raw(`" class="px-3 py-1 border rounded" rel="next">Next</a>`)
	}
	h.raw(`<span class="ml-4 text-sm text-gray-500">`)
	h.text(p.Label())
	h.raw(`</span></nav>`)
}

func externalCard(h *writer, it extfeed.Item) {
	title := titleOr(it.Title)
	date := ""
	if !it.PublishedDate.IsZero() {
		date = it.PublishedDate.Format("January 2, 2006")
	}
	h.raw(cardOpen)
	cardImage(h, it.URL, it.Image, title)
	h.raw(`<div class="p-6 flex-1 flex flex-col min-h-0"><h3 class="text-xl font-bold text-gray-900 mb-2 line-clamp-2 leading-snug"><a href="`)
	h.url(it.URL)
	h.raw(`" class="hover:text-[#8C1D40] transition">`)
	h.text(title)
	h.raw(`</a></h3><p class="text-gray-500 text-sm mt-auto">`)
	h.text(DateLine(date))
	h.raw(`</p></div>`, cardAccent)
}

// ExternalSection renders the external blog container for one page.
func ExternalSection(d ExternalData) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		h.raw(`<section id="news-feed">`)
		switch {
		case d.Err != "":
			h.raw(`<p class="col-span-full text-center text-red-500">`)
			h.text(d.Err)
			h.raw(`</p>`)
		case len(d.Items) == 0:
			h.raw(`<p class="col-span-full text-center text-gray-500">No posts yet.</p>`)
		default:
			h.raw(gridOpen)
			for _, it := range d.Items {
				externalCard(h, it)
			}
			h.raw(`</div>`)
			pagination(h, d.Page, "/news/?page=")
		}
		h.raw(`</section>`)
		return h.err
	})
}

// HomePage is the public feed page.
func HomePage(cfg SiteConfig, nav Nav, d FeedData) templ.Component {
	meta := PageMeta{URL: buildURL(cfg.URL), JSONLD: WebsiteJsonLD(cfg)}
	return Layout(cfg, meta, nav, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		h.raw(`<h1 class="text-3xl font-bold mb-8">Blog</h1>`)
		h.render(FeedSection(d))
		return h.err
	}))
}

// NewsPage is the external blog page.
func NewsPage(cfg SiteConfig, nav Nav, d ExternalData) templ.Component {
	meta := PageMeta{Title: "News", URL: buildURL(cfg.URL, "news")}
	return Layout(cfg, meta, nav, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		h.raw(`<h1 class="text-3xl font-bold mb-8">News</h1>`)
		h.render(ExternalSection(d))
		return h.err
	}))
}

// PostPage shows a single feed post.
func PostPage(cfg SiteConfig, nav Nav, p docstore.Post) templ.Component {
	meta := PageMeta{
		Title:       p.Title,
		Description: p.Summary,
		URL:         buildURL(cfg.URL, "blog", p.Slug),
		OGType:      "article",
		JSONLD:      BlogPostingJsonLD(cfg, p),
	}
	return Layout(cfg, meta, nav, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		h.raw(`<article class="max-w-3xl mx-auto bg-white rounded-lg shadow-md overflow-hidden">`)
		h.raw(`<img src="`)
		if s := imageOr(p.Image); s == PlaceholderImage {
			h.text(s)
		} else {
			h.url(s)
		}
		h.raw(`" alt="`)
		h.text(titleOr(p.Title))
		h.raw(`" class="w-full aspect-[16/9] object-cover"><div class="p-8"><h1 class="text-3xl font-bold mb-2">`)
		h.text(titleOr(p.Title))
		h.raw(`</h1><p class="text-gray-500 text-sm">`)
		h.text(DateLine(p.Date))
		h.raw(`</p>`)
		for _, para := range paragraphs(p.Summary) {
			h.raw(`<p class="text-gray-700 leading-relaxed mt-4">`)
			h.text(para)
			h.raw(`</p>`)
		}
		socialLinks(h, p.Social)
		h.raw(`<p class="mt-8"><a href="/" class="text-[#8C1D40] hover:underline">Back to the blog</a></p></div></article>`)
		return h.err
	}))
}
