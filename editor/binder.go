// Package editor binds one edit form to the create, update, upload, delete
// and publish operations on a post collection.
package editor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"time"

	"github.com/eringen/pilotsite/apperr"
	"github.com/eringen/pilotsite/docstore"
	"github.com/eringen/pilotsite/metrics"
	"github.com/eringen/pilotsite/objstore"
)

// Kind selects the collection and payload a Binder edits.
type Kind int

const (
	// Blog edits the public feed: title, summary, image, social links.
	Blog Kind = iota
	// Draft edits an author's own dashboard posts: title, slug, content,
	// tags, cover image and status.
	Draft
)

var (
	// ErrUnconfirmed is returned by Delete when the user has not confirmed.
	ErrUnconfirmed = errors.New("editor: delete not confirmed")
	// ErrUnsupported is returned for operations the Kind does not offer.
	ErrUnsupported = errors.New("editor: operation not available here")
)

// Notifier is told about every successful write.
type Notifier interface {
	Changed(coll, authorID string)
}

// NotifyFunc adapts a function to Notifier.
type NotifyFunc func(coll, authorID string)

// Changed implements Notifier.
func (f NotifyFunc) Changed(coll, authorID string) { f(coll, authorID) }

// Upload is one file chosen in the form.
type Upload struct {
	Name string
	Body io.Reader
}

// Binder performs the form's operations against the document store and the
// object bucket. It holds no per-user state; the editing id travels in Form.
type Binder struct {
	kind   Kind
	coll   string
	store  docstore.Store
	bucket objstore.Bucket
	notify Notifier
	now    func() time.Time
}

// Option configures a Binder.
type Option func(*Binder)

// WithNotifier registers a change observer.
func WithNotifier(n Notifier) Option {
	return func(b *Binder) { b.notify = n }
}

// WithClock overrides the clock used for upload paths.
func WithClock(now func() time.Time) Option {
	return func(b *Binder) { b.now = now }
}

// New returns a Binder for kind.
func New(kind Kind, store docstore.Store, bucket objstore.Bucket, opts ...Option) *Binder {
	b := &Binder{
		kind:   kind,
		coll:   docstore.Blogs,
		store:  store,
		bucket: bucket,
		now:    time.Now,
	}
	if kind == Draft {
		b.coll = docstore.Posts
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// List returns the records shown beside the form: the whole feed newest
// first, or the actor's drafts most recently updated first.
func (b *Binder) List(ctx context.Context, actor string) ([]docstore.Post, error) {
	q := docstore.Query{OrderBy: docstore.ByCreated, Desc: true}
	if b.kind == Draft {
		q = docstore.Query{AuthorID: actor, OrderBy: docstore.ByUpdated, Desc: true}
	}
	posts, err := b.store.List(ctx, b.coll, q)
	metrics.RecordOp("list "+b.coll, err)
	return posts, err
}

// Get loads record id into a Form for editing.
func (b *Binder) Get(ctx context.Context, actor, id string) (Form, error) {
	p, err := b.load(ctx, actor, id, "get")
	if err != nil {
		return Form{}, err
	}
	return FormFrom(p), nil
}

// Save validates f and then updates record f.ID, or inserts a new record
// when f.ID is empty. A validation failure performs no write. cover, when
// non-nil, is uploaded first and becomes the record's image (drafts only).
func (b *Binder) Save(ctx context.Context, actor string, f Form, cover *Upload) (docstore.Post, error) {
	f = f.Trimmed()
	if err := b.validate(f); err != nil {
		return docstore.Post{}, err
	}
	if cover != nil && b.kind != Draft {
		return docstore.Post{}, ErrUnsupported
	}

	if f.Editing() {
		return b.update(ctx, actor, f, cover)
	}
	return b.insert(ctx, actor, f, cover)
}

func (b *Binder) insert(ctx context.Context, actor string, f Form, cover *Upload) (docstore.Post, error) {
	p := docstore.Post{Title: f.Title}
	switch b.kind {
	case Blog:
		p.Summary = f.Summary
		p.Image = f.Image
		p.Social = socialOf(f)
		slug, err := b.uniqueSlug(ctx, Slugify(f.Title))
		if err != nil {
			return docstore.Post{}, err
		}
		p.Slug = slug
	case Draft:
		p.ID = docstore.NewID()
		p.Content = f.Content
		p.Tags = f.TagList()
		p.Slug = slugOrTitle(f)
		p.Status = docstore.Draft
		p.AuthorID = actor
		p.Image = f.Image
		if cover != nil {
			url, err := b.put(ctx, objstore.PostCoverPath(actor, p.ID, b.now(), cover.Name), cover.Body)
			if err != nil {
				return docstore.Post{}, err
			}
			p.Image = url
		}
	}
	saved, err := b.store.Insert(ctx, b.coll, p)
	metrics.RecordOp("insert "+b.coll, err)
	if err != nil {
		return docstore.Post{}, err
	}
	b.changed(saved.AuthorID)
	return saved, nil
}

func (b *Binder) update(ctx context.Context, actor string, f Form, cover *Upload) (docstore.Post, error) {
	var patch docstore.Patch
	author, replaced := "", ""
	switch b.kind {
	case Blog:
		patch = docstore.Patch{
			Title:   docstore.Str(f.Title),
			Summary: docstore.Str(f.Summary),
			Image:   docstore.Str(f.Image),
			Social:  socialOf(f),
		}
	case Draft:
		existing, err := b.load(ctx, actor, f.ID, "update")
		if err != nil {
			return docstore.Post{}, err
		}
		author = existing.AuthorID
		tags := f.TagList()
		if tags == nil {
			tags = []string{}
		}
		image := f.Image
		if image == "" {
			image = existing.Image
		}
		if cover != nil {
			url, err := b.put(ctx, objstore.PostCoverPath(existing.AuthorID, existing.ID, b.now(), cover.Name), cover.Body)
			if err != nil {
				return docstore.Post{}, err
			}
			image = url
		}
		if image != existing.Image {
			replaced = existing.Image
		}
		patch = docstore.Patch{
			Title:   docstore.Str(f.Title),
			Slug:    docstore.Str(slugOrTitle(f)),
			Content: docstore.Str(f.Content),
			Tags:    &tags,
			Image:   docstore.Str(image),
		}
	}
	err := b.store.Update(ctx, b.coll, f.ID, patch)
	metrics.RecordOp("update "+b.coll, err)
	if err != nil {
		return docstore.Post{}, err
	}
	saved, err := b.store.Get(ctx, b.coll, f.ID)
	if err != nil {
		return docstore.Post{}, err
	}
	if author == "" {
		author = saved.AuthorID
	}
	b.discard(ctx, replaced)
	b.changed(author)
	return saved, nil
}

// UploadImage stores a feed image and returns its URL. The record is not
// saved; the caller puts the URL into the form's image field.
func (b *Binder) UploadImage(ctx context.Context, up Upload) (string, error) {
	if b.kind != Blog {
		return "", ErrUnsupported
	}
	if up.Body == nil {
		return "", apperr.Invalid("imageFile", "choose an image file first")
	}
	return b.put(ctx, objstore.BlogImagePath(b.now(), up.Name), up.Body)
}

// Delete removes record id. Without confirmation nothing is touched.
func (b *Binder) Delete(ctx context.Context, actor, id string, confirmed bool) error {
	if !confirmed {
		return ErrUnconfirmed
	}
	p, err := b.load(ctx, actor, id, "delete")
	if err != nil {
		return err
	}
	err = b.store.Delete(ctx, b.coll, id)
	metrics.RecordOp("delete "+b.coll, err)
	if err != nil {
		return err
	}
	if b.kind == Draft {
		b.discard(ctx, p.Image)
	}
	b.changed(p.AuthorID)
	return nil
}

// Publish sets a draft's status to published, leaving other fields alone.
func (b *Binder) Publish(ctx context.Context, actor, id string) error {
	if b.kind != Draft {
		return ErrUnsupported
	}
	p, err := b.load(ctx, actor, id, "publish")
	if err != nil {
		return err
	}
	status := docstore.Published
	err = b.store.Update(ctx, b.coll, id, docstore.Patch{Status: &status})
	metrics.RecordOp("publish "+b.coll, err)
	if err != nil {
		return err
	}
	b.changed(p.AuthorID)
	return nil
}

// load fetches id and enforces draft ownership.
func (b *Binder) load(ctx context.Context, actor, id, op string) (docstore.Post, error) {
	if id == "" {
		return docstore.Post{}, apperr.E(apperr.NotFound, op, errors.New("no record selected"))
	}
	p, err := b.store.Get(ctx, b.coll, id)
	if err != nil {
		return docstore.Post{}, err
	}
	if b.kind == Draft && p.AuthorID != actor {
		return docstore.Post{}, apperr.E(apperr.Permission, op,
			fmt.Errorf("post %s belongs to another author", id))
	}
	return p, nil
}

// maxPutAttempts bounds the "-2", "-3"... retries when an upload path is
// already taken.
const maxPutAttempts = 5

// put downscales body and stores it at objectPath, or at a suffixed variant
// when an object already sits there.
func (b *Binder) put(ctx context.Context, objectPath string, body io.Reader) (string, error) {
	data, contentType, err := objstore.Downscale(body)
	if err != nil {
		return "", apperr.Invalid("image", err.Error())
	}
	for n := 1; ; n++ {
		url, err := b.bucket.Put(ctx, objstore.Suffixed(objectPath, n), bytes.NewReader(data), contentType)
		if errors.Is(err, fs.ErrExist) && n < maxPutAttempts {
			continue
		}
		metrics.RecordOp("upload", err)
		if err != nil {
			return "", storageErr(err)
		}
		return url, nil
	}
}

// storageErr classifies a bucket failure by its likely cause.
func storageErr(err error) error {
	switch {
	case errors.Is(err, fs.ErrPermission):
		return apperr.Explain(apperr.Permission, "upload", "media storage denied the write", err)
	case errors.Is(err, objstore.ErrBadPath):
		return apperr.Invalid("imageFile", "the file name cannot be stored")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return apperr.E(apperr.Timeout, "upload", err)
	case errors.Is(err, fs.ErrExist):
		return apperr.Explain(apperr.Unknown, "upload", "an image with this name was just uploaded, try again", err)
	default:
		return apperr.Explain(apperr.Unknown, "upload", "could not write the image to media storage", err)
	}
}

// discard removes an image this bucket served once the record no longer
// points at it. Failures leave an orphaned file and are only counted.
func (b *Binder) discard(ctx context.Context, imageURL string) {
	if imageURL == "" {
		return
	}
	objectPath, ok := b.bucket.Locate(imageURL)
	if !ok {
		return
	}
	metrics.RecordOp("delete object", b.bucket.Delete(ctx, objectPath))
}

// uniqueSlug returns base, or base-2, base-3... when a post in the
// collection already carries it. Detail pages resolve by slug.
func (b *Binder) uniqueSlug(ctx context.Context, base string) (string, error) {
	if base == "" {
		return "", nil
	}
	slug := base
	for n := 2; ; n++ {
		_, err := b.store.GetBySlug(ctx, b.coll, slug)
		if apperr.Is(err, apperr.NotFound) {
			return slug, nil
		}
		if err != nil {
			return "", err
		}
		slug = fmt.Sprintf("%s-%d", base, n)
	}
}

func (b *Binder) changed(authorID string) {
	if b.notify != nil {
		b.notify.Changed(b.coll, authorID)
	}
}

func socialOf(f Form) map[string]string {
	out := make(map[string]string, len(SocialPlatforms))
	for _, k := range SocialPlatforms {
		out[k] = f.Social[k]
	}
	return out
}

func slugOrTitle(f Form) string {
	if f.Slug != "" {
		return Slugify(f.Slug)
	}
	return Slugify(f.Title)
}
