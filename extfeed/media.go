package extfeed

import "strings"

// MediaResolver turns a raw image reference from the external API into a URL
// a browser can load.
type MediaResolver interface {
	Resolve(ref string) string
}

// WixMedia resolves "wix:image://v1/<mediaId>/<name>#<params>" references to
// the public static media host. Other references pass through unchanged.
type WixMedia struct {
	Host string // default https://static.wixstatic.com/media
}

const wixScheme = "wix:image://"

// Resolve implements MediaResolver.
func (w WixMedia) Resolve(ref string) string {
	if !strings.HasPrefix(ref, wixScheme) {
		return ref
	}
	host := w.Host
	if host == "" {
		host = "https://static.wixstatic.com/media"
	}
	rest := strings.TrimPrefix(ref, wixScheme)
	if i := strings.IndexByte(rest, '#'); i >= 0 {
		rest = rest[:i]
	}
	// rest is "v1/<mediaId>/<name>"
	parts := strings.Split(rest, "/")
	if len(parts) < 2 || parts[1] == "" {
		return ""
	}
	return strings.TrimRight(host, "/") + "/" + parts[1]
}
