package objstore

import (
	"fmt"
	"path"
	"strings"
	"time"
	"unicode"
)

const maxNameLen = 80

// SanitizeFilename lowercases name, turns whitespace runs into "-", drops
// characters outside [a-z0-9._-] and truncates to 80 bytes.
func SanitizeFilename(name string) string {
	name = strings.ToLower(name)
	var b strings.Builder
	inSpace := false
	for _, r := range name {
		if unicode.IsSpace(r) {
			if !inSpace {
				b.WriteByte('-')
				inSpace = true
			}
			continue
		}
		inSpace = false
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	out := b.String()
	if len(out) > maxNameLen {
		out = out[:maxNameLen]
	}
	return out
}

// splitExt separates the extension (without dot) from a file name.
func splitExt(name string) (base, ext string) {
	ext = path.Ext(name)
	base = strings.TrimSuffix(name, ext)
	return base, strings.TrimPrefix(ext, ".")
}

// BlogImagePath is the storage path of a feed image:
// blog-images/<unixMillis>-<name>.<ext>.
func BlogImagePath(now time.Time, filename string) string {
	base, ext := splitExt(filename)
	base = SanitizeFilename(base)
	if base == "" {
		base = "image"
	}
	ext = SanitizeFilename(ext)
	if ext == "" {
		ext = "png"
	}
	return fmt.Sprintf("blog-images/%d-%s.%s", now.UnixMilli(), base, ext)
}

// PostCoverPath is the storage path of a draft cover:
// posts/<authorId>/<postId>/<unixMillis>_<filename>.
func PostCoverPath(authorID, postID string, now time.Time, filename string) string {
	if authorID == "" {
		authorID = "unknown"
	}
	name := SanitizeFilename(filename)
	if name == "" {
		name = "upload"
	}
	return fmt.Sprintf("posts/%s/%s/%d_%s", SanitizeFilename(authorID), SanitizeFilename(postID), now.UnixMilli(), name)
}

// Suffixed returns objectPath with "-n" added before the extension of its
// last segment. n <= 1 returns objectPath unchanged.
func Suffixed(objectPath string, n int) string {
	if n <= 1 {
		return objectPath
	}
	dir, name := path.Split(objectPath)
	ext := path.Ext(name)
	return fmt.Sprintf("%s%s-%d%s", dir, strings.TrimSuffix(name, ext), n, ext)
}
