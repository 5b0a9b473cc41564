package views

import (
	"context"
	"io"
	"net/url"

	"github.com/a-h/templ"

	"github.com/eringen/pilotsite/docstore"
)

// DashboardPage is the author's drafts dashboard. The list below the form
// reloads itself when the live connection reports a change.
func DashboardPage(cfg SiteConfig, nav Nav, d DashboardData) templ.Component {
	return Layout(cfg, PageMeta{Title: "Dashboard"}, nav, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		f := d.Form
		h.raw(`<h1 class="text-3xl font-bold mb-6">Dashboard</h1>`)
		statusLine(h, d.Status)
		h.raw(`<form method="post" action="/dashboard/posts/" enctype="multipart/form-data" class="bg-white rounded-lg shadow p-6 mb-10">`)
		h.csrf(d.CSRF)
		h.raw(`<input type="hidden" name="id" value="`)
		h.text(f.ID)
		h.raw(`">`)
		textInput(h, "Title", "title", f.Title, "text")
		textInput(h, "Slug", "slug", f.Slug, "text")
		textArea(h, "Content", "content", f.Content, 10)
		textInput(h, "Tags (comma separated)", "tags", f.Tags, "text")
		h.raw(`<input type="hidden" name="image" value="`)
		h.text(f.Image)
		h.raw(`"><label class="block mb-4"><span class="block text-sm font-medium mb-1">Cover image</span><input type="file" name="cover" accept="image/*"></label>`)
		h.raw(`<div class="flex gap-3"><button type="submit" class="`, buttonClass, `">`)
		if f.Editing() {
			h.raw(`Update Draft`)
		} else {
			h.raw(`Save Draft`)
		}
		h.raw(`</button><a href="/dashboard/" class="px-4 py-2 border rounded">Clear</a></div></form>`)

		h.raw(`<h2 class="text-xl font-semibold mb-4">My posts</h2>`,
			`<div id="posts-list" class="space-y-4" data-src="/dashboard/posts/list/" data-live="/dashboard/live/">`)
		h.render(DashboardList(d.Posts, d.CSRF))
		h.raw(`</div><script src="/public/live.js" defer></script>`)
		return h.err
	}))
}

// DashboardList renders the author's posts as cards.
func DashboardList(posts []docstore.Post, csrf string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		if len(posts) == 0 {
			h.raw(`<p class="text-gray-600">No drafts yet.</p>`)
			return h.err
		}
		for _, p := range posts {
			dashboardCard(h, p, csrf)
		}
		return h.err
	})
}

func dashboardCard(h *writer, p docstore.Post, csrf string) {
	base := "/dashboard/posts/" + url.PathEscape(p.ID) + "/"
	h.raw(`<div class="border border-gray-200 rounded-lg p-4 bg-white"><div class="flex justify-between items-start"><div><h3 class="text-lg font-semibold">`)
	h.text(p.Title)
	h.raw(`</h3><p class="text-xs text-gray-500">`)
	h.text(p.Slug + " · " + string(p.Status))
	h.raw(`</p></div><div class="flex gap-2"><a href="`)
	h.url(base + "edit/")
	h.raw(`" class="text-[#8C1D40] hover:underline">Edit</a><form method="post" action="`)
	h.url(base + "publish/")
	h.raw(`">`)
	h.csrf(csrf)
	h.raw(`<button type="submit" class="text-green-700 hover:underline">Publish</button></form><a href="`)
	h.url(base + "delete/")
	h.raw(`" class="text-red-600 hover:underline">Delete</a></div></div>`)
	if p.Image != "" {
		h.raw(`<img src="`)
		h.url(p.Image)
		h.raw(`" alt="cover" class="w-full h-48 object-cover rounded my-3">`)
	}
	h.raw(`<div class="mt-3">`)
	for _, para := range paragraphs(p.Content) {
		h.raw(`<p class="mb-2">`)
		h.text(para)
		h.raw(`</p>`)
	}
	h.raw(`</div><div class="mt-3">`)
	for _, t := range p.Tags {
		h.raw(`<span class="inline-block bg-gray-200 text-gray-700 text-xs px-2 py-1 rounded mr-2">`)
		h.text(t)
		h.raw(`</span>`)
	}
	h.raw(`</div></div>`)
}

// LoginPage is the sign-in form. A signed-in user without org access sees
// the denial notice instead.
func LoginPage(cfg SiteConfig, nav Nav, d LoginData) templ.Component {
	return Layout(cfg, PageMeta{Title: "Sign in"}, nav, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		h.raw(`<section class="max-w-md mx-auto bg-white rounded-lg shadow p-6"><h1 class="text-2xl font-bold mb-4">Sign in</h1>`)
		if d.Denied {
			denial(h, nav)
			h.raw(`</section>`)
			return h.err
		}
		if d.Error != "" {
			h.raw(`<p class="mb-4 text-sm text-red-600" role="alert">`)
			h.text(d.Error)
			h.raw(`</p>`)
		}
		h.raw(`<form method="post" action="/login/">`)
		h.csrf(d.CSRF)
		h.raw(`<input type="hidden" name="next" value="`)
		h.text(d.Next)
		h.raw(`">`)
		textInput(h, "Email", "email", "", "email")
		textInput(h, "Password", "password", "", "password")
		h.raw(`<button type="submit" class="`, buttonClass, ` w-full">Sign in</button></form>`)
		if d.TokenLogin {
			h.raw(`<form method="post" action="/login/token/" class="mt-6 border-t pt-4">`)
			h.csrf(d.CSRF)
			h.raw(`<input type="hidden" name="next" value="`)
			h.text(d.Next)
			h.raw(`">`)
			textInput(h, "Identity token", "id_token", "", "password")
			h.raw(`<button type="submit" class="border px-4 py-2 rounded w-full">Continue with your identity provider</button></form>`)
		}
		h.raw(`</section>`)
		return h.err
	}))
}

// DeniedPage is shown on protected pages to users without org access.
func DeniedPage(cfg SiteConfig, nav Nav) templ.Component {
	return Layout(cfg, PageMeta{Title: "Access denied"}, nav, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		h.raw(`<section class="max-w-md mx-auto bg-white rounded-lg shadow p-6">`)
		denial(h, nav)
		h.raw(`</section>`)
		return h.err
	}))
}

func denial(h *writer, nav Nav) {
	h.raw(`<p class="text-red-600 mb-4">Your account does not have org access.</p>`)
	if nav.Email != "" {
		h.raw(`<p class="text-sm text-gray-500 mb-4">Signed in as `)
		h.text(nav.Email)
		h.raw(`</p>`)
	}
	h.raw(`<form method="post" action="/logout/">`)
	h.csrf(nav.CSRF)
	h.raw(`<button type="submit" class="border px-4 py-2 rounded">Sign out</button></form>`)
}
