package editor

import (
	"strings"

	"github.com/eringen/pilotsite/docstore"
)

// SocialPlatforms lists the social link keys the editor offers, in display order.
var SocialPlatforms = []string{"facebook", "twitter", "linkedin", "other"}

// Form is the editor's field state. ID is the record being edited; an empty
// ID means the next save creates a record.
type Form struct {
	ID      string
	Title   string
	Summary string
	Content string
	Image   string
	Slug    string
	Tags    string // comma-separated
	Social  map[string]string
}

// Editing reports whether the form is bound to an existing record.
func (f Form) Editing() bool {
	return strings.TrimSpace(f.ID) != ""
}

// Trimmed returns a copy with surrounding whitespace removed from every field.
func (f Form) Trimmed() Form {
	out := Form{
		ID:      strings.TrimSpace(f.ID),
		Title:   strings.TrimSpace(f.Title),
		Summary: strings.TrimSpace(f.Summary),
		Content: strings.TrimSpace(f.Content),
		Image:   strings.TrimSpace(f.Image),
		Slug:    strings.TrimSpace(f.Slug),
		Tags:    strings.TrimSpace(f.Tags),
	}
	if len(f.Social) > 0 {
		out.Social = make(map[string]string, len(f.Social))
		for k, v := range f.Social {
			out.Social[k] = strings.TrimSpace(v)
		}
	}
	return out
}

// TagList splits the comma-separated tags, dropping blanks.
func (f Form) TagList() []string {
	var tags []string
	for _, t := range strings.Split(f.Tags, ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	return tags
}

// FormFrom loads a stored post into the editor.
func FormFrom(p docstore.Post) Form {
	f := Form{
		ID:      p.ID,
		Title:   p.Title,
		Summary: p.Summary,
		Content: p.Content,
		Image:   p.Image,
		Slug:    p.Slug,
		Tags:    strings.Join(p.Tags, ", "),
	}
	if len(p.Social) > 0 {
		f.Social = make(map[string]string, len(p.Social))
		for k, v := range p.Social {
			f.Social[k] = v
		}
	}
	return f
}

// Slugify converts a title to a URL-safe slug: lowercase, runs of anything
// outside [a-z0-9] become "-", no leading or trailing dashes.
func Slugify(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	var b strings.Builder
	prev := false
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			prev = false
		default:
			if !prev && b.Len() > 0 {
				b.WriteByte('-')
				prev = true
			}
		}
	}
	return strings.TrimRight(b.String(), "-")
}
