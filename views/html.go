package views

import (
	"context"
	"io"

	"github.com/a-h/templ"
)

// writer accumulates the first write error so components can emit markup
// without checking every call.
type writer struct {
	ctx context.Context
	w   io.Writer
	err error
}

func (h *writer) raw(parts ...string) {
	for _, s := range parts {
		if h.err != nil {
			return
		}
		_, h.err = io.WriteString(h.w, s)
	}
}

// text writes s HTML-escaped.
func (h *writer) text(s string) {
	h.raw(templ.EscapeString(s))
}

// url writes u as an attribute value, replacing unsafe schemes.
func (h *writer) url(u string) {
	h.raw(templ.EscapeString(string(templ.URL(u))))
}

func (h *writer) render(c templ.Component) {
	if h.err != nil || c == nil {
		return
	}
	h.err = c.Render(h.ctx, h.w)
}

func (h *writer) csrf(token string) {
	h.raw(`<input type="hidden" name="_csrf" value="`)
	h.text(token)
	h.raw(`">`)
}

