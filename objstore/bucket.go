// Package objstore stores uploaded images by path and hands back the URL the
// site serves them from.
package objstore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrBadPath is returned for paths that escape the bucket root.
var ErrBadPath = errors.New("objstore: invalid object path")

// Bucket is blob storage addressed by slash-separated paths.
type Bucket interface {
	Put(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, objectPath string) error
	// Locate maps a URL returned by Put back to its object path. ok is false
	// for URLs the bucket does not serve.
	Locate(publicURL string) (objectPath string, ok bool)
}

// FS is a Bucket on the local filesystem. Objects written under Root are
// served by the app at PublicURL.
type FS struct {
	Root      string
	PublicURL string
}

// NewFS creates the root directory if needed.
func NewFS(root, publicURL string) (*FS, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	return &FS{Root: root, PublicURL: strings.TrimRight(publicURL, "/")}, nil
}

func (b *FS) resolve(objectPath string) (string, error) {
	clean := path.Clean("/" + objectPath)
	if clean == "/" || strings.Contains(objectPath, "..") {
		return "", ErrBadPath
	}
	return filepath.Join(b.Root, filepath.FromSlash(strings.TrimPrefix(clean, "/"))), nil
}

// Put writes r to objectPath and returns its public URL. An existing object
// is never replaced; the error then matches fs.ErrExist.
func (b *FS) Put(ctx context.Context, objectPath string, r io.Reader, contentType string) (string, error) {
	dst, err := b.resolve(objectPath)
	if err != nil {
		return "", err
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create object: %w", err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(dst)
		return "", fmt.Errorf("write object: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", err
	}
	return b.PublicURL + "/" + strings.TrimPrefix(path.Clean("/"+objectPath), "/"), nil
}

// Delete removes objectPath. A missing object is not an error.
func (b *FS) Delete(ctx context.Context, objectPath string) error {
	dst, err := b.resolve(objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(dst); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Locate implements Bucket.
func (b *FS) Locate(publicURL string) (string, bool) {
	rest, ok := strings.CutPrefix(publicURL, b.PublicURL+"/")
	if !ok || rest == "" {
		return "", false
	}
	if _, err := b.resolve(rest); err != nil {
		return "", false
	}
	return rest, true
}
