package views

import (
	"context"
	"io"
	"net/url"
	"strconv"

	"github.com/a-h/templ"
)

const (
	inputClass  = `w-full border border-gray-300 rounded px-3 py-2`
	buttonClass = `bg-[#8C1D40] text-white px-4 py-2 rounded hover:bg-[#6d1632]`
)

func statusLine(h *writer, s Status) {
	h.raw(`<p id="status" role="status" class="min-h-[1.5rem] text-sm `)
	if s.Error {
		h.raw(`text-red-600`)
	} else {
		h.raw(`text-green-700`)
	}
	h.raw(`">`)
	h.text(s.Text)
	h.raw(`</p>`)
}

func textInput(h *writer, label, name, value, kind string) {
	h.raw(`<label class="block mb-4"><span class="block text-sm font-medium mb-1">`, label, `</span><input type="`, kind, `" name="`, name, `" value="`)
	h.text(value)
	h.raw(`" class="`, inputClass, `"></label>`)
}

func textArea(h *writer, label, name, value string, rows int) {
	h.raw(`<label class="block mb-4"><span class="block text-sm font-medium mb-1">`, label, `</span><textarea name="`, name, `" rows="`, strconv.Itoa(rows), `" class="`, inputClass, `">`)
	h.text(value)
	h.raw(`</textarea></label>`)
}

// EditorPage is the feed editor: one form bound to the selected record and
// the table of all feed posts.
func EditorPage(cfg SiteConfig, nav Nav, d EditorData) templ.Component {
	return Layout(cfg, PageMeta{Title: "Blog editor"}, nav, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		f := d.Form
		h.raw(`<h1 class="text-3xl font-bold mb-6">Blog editor</h1>`)
		statusLine(h, d.Status)
		h.raw(`<form method="post" action="/admin/blogs/" enctype="multipart/form-data" class="bg-white rounded-lg shadow p-6 mb-10">`)
		h.csrf(d.CSRF)
		h.raw(`<input type="hidden" name="id" value="`)
		h.text(f.ID)
		h.raw(`">`)
		textInput(h, "Title", "title", f.Title, "text")
		textArea(h, "Summary", "summary", f.Summary, 4)
		textInput(h, "Image URL", "image", f.Image, "text")
		h.raw(`<div class="flex items-center gap-3 mb-4"><input type="file" name="imageFile" accept="image/*">`,
			`<button type="submit" name="action" value="upload" class="border px-3 py-1 rounded">Upload</button></div>`)
		h.raw(`<fieldset class="grid sm:grid-cols-2 gap-x-4"><legend class="text-sm font-medium mb-2">Social links</legend>`)
		for _, s := range socialLabels {
			textInput(h, s.Label, "social_"+s.Key, f.Social[s.Key], "url")
		}
		h.raw(`</fieldset><div class="flex gap-3 mt-2"><button type="submit" name="action" value="save" class="`, buttonClass, `">`)
		if f.Editing() {
			h.raw(`Update post`)
		} else {
			h.raw(`Save post`)
		}
		h.raw(`</button><a href="/admin/" class="px-4 py-2 border rounded">Clear</a></div></form>`)

		h.raw(`<h2 class="text-xl font-semibold mb-4">Posts</h2>`)
		editorTable(h, d)
		return h.err
	}))
}

func editorTable(h *writer, d EditorData) {
	if len(d.Posts) == 0 {
		h.raw(`<p class="text-gray-500">No posts.</p>`)
		return
	}
	h.raw(`<table class="w-full bg-white rounded-lg shadow text-sm"><thead><tr class="text-left border-b">`,
		`<th class="p-3">Title</th><th class="p-3">Created</th><th class="p-3">Actions</th></tr></thead><tbody>`)
	for _, p := range d.Posts {
		id := url.PathEscape(p.ID)
		h.raw(`<tr class="border-b"><td class="p-3">`)
		h.text(titleOr(p.Title))
		h.raw(`</td><td class="p-3 text-gray-500">`)
		if !p.CreatedAt.IsZero() {
			h.text(p.CreatedAt.Format("2006-01-02 15:04"))
		}
		h.raw(`</td><td class="p-3 space-x-3"><a href="`)
		h.url("/admin/blogs/" + id + "/")
		h.raw(`" class="text-[#8C1D40] hover:underline">Edit</a><a href="`)
		h.url("/admin/blogs/" + id + "/delete/")
		h.raw(`" class="text-red-600 hover:underline">Delete</a></td></tr>`)
	}
	h.raw(`</tbody></table>`)
	pagination(h, d.Page, "/admin/?page=")
}

// ConfirmDelete asks the user to confirm deleting a record.
func ConfirmDelete(cfg SiteConfig, nav Nav, d ConfirmData) templ.Component {
	return Layout(cfg, PageMeta{Title: "Delete post"}, nav, templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		h := &writer{ctx: ctx, w: w}
		h.raw(`<section class="max-w-lg mx-auto bg-white rounded-lg shadow p-6"><h1 class="text-xl font-bold mb-4">Delete this post?</h1><p class="mb-6">`)
		h.text(titleOr(d.Title))
		h.raw(`</p><form method="post" action="`)
		h.url(d.Action)
		h.raw(`" class="flex gap-3">`)
		h.csrf(d.CSRF)
		h.raw(`<input type="hidden" name="confirm" value="yes"><button type="submit" class="bg-red-600 text-white px-4 py-2 rounded">Delete</button><a href="`)
		h.url(d.Cancel)
		h.raw(`" class="px-4 py-2 border rounded">Cancel</a></form></section>`)
		return h.err
	}))
}
