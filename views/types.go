package views

import (
	"github.com/eringen/pilotsite/docstore"
	"github.com/eringen/pilotsite/editor"
	"github.com/eringen/pilotsite/extfeed"
	"github.com/eringen/pilotsite/paginate"
)

// SiteConfig holds the site-wide values every page needs.
type SiteConfig struct {
	Name        string
	URL         string
	Description string
	Author      string
}

// PageMeta carries per-page OpenGraph and SEO metadata into the <head> template.
type PageMeta struct {
	Title       string
	Description string
	URL         string // canonical + og:url
	OGType      string // "website" or "article"
	JSONLD      string
}

// Nav is the header state: who is signed in and what they may open.
type Nav struct {
	Email      string
	SignedIn   bool
	Authorized bool
	CSRF       string
}

// FeedData is one page of the public feed. Err holds the debug text when
// the store could not be read.
type FeedData struct {
	Posts []docstore.Post
	Page  paginate.Page
	Err   string
}

// ExternalData is one page of the external blog. Err is the user-facing
// failure message.
type ExternalData struct {
	Items    []extfeed.Item
	Page     paginate.Page
	Err      string
	PostBase string
}

// Status is the short line shown above an edit form.
type Status struct {
	Text  string
	Error bool
}

// EditorData backs the feed editor page.
type EditorData struct {
	Form   editor.Form
	Posts  []docstore.Post
	Page   paginate.Page
	Status Status
	CSRF   string
}

// DashboardData backs the drafts dashboard.
type DashboardData struct {
	Form   editor.Form
	Posts  []docstore.Post
	Status Status
	CSRF   string
}

// LoginData backs the sign-in page.
type LoginData struct {
	Next       string
	Error      string
	Denied     bool
	TokenLogin bool
	CSRF       string
}

// ConfirmData asks before a delete.
type ConfirmData struct {
	Title  string
	Action string
	Cancel string
	CSRF   string
}
