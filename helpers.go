package pilotsite

import (
	"errors"
	"mime/multipart"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"

	"github.com/eringen/pilotsite/editor"
	"github.com/eringen/pilotsite/objstore"
)

// Render writes a templ component as an HTTP 200 HTML response.
func Render(c echo.Context, cmp templ.Component) error {
	return RenderStatus(c, http.StatusOK, cmp)
}

// RenderStatus writes a templ component with a specific HTTP status code.
func RenderStatus(c echo.Context, code int, cmp templ.Component) error {
	c.Response().Header().Set(echo.HeaderContentType, echo.MIMETextHTMLCharsetUTF8)
	c.Response().WriteHeader(code)
	return cmp.Render(c.Request().Context(), c.Response().Writer)
}

// BuildURL joins a base URL with path segments, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// bindForm reads the editor fields from a submitted form.
func bindForm(c echo.Context) editor.Form {
	f := editor.Form{
		ID:      c.FormValue("id"),
		Title:   c.FormValue("title"),
		Summary: c.FormValue("summary"),
		Content: c.FormValue("content"),
		Image:   c.FormValue("image"),
		Slug:    c.FormValue("slug"),
		Tags:    c.FormValue("tags"),
	}
	for _, k := range editor.SocialPlatforms {
		if v := c.FormValue("social_" + k); v != "" {
			if f.Social == nil {
				f.Social = make(map[string]string, len(editor.SocialPlatforms))
			}
			f.Social[k] = v
		}
	}
	return f
}

// formFile opens the optional upload field. It returns nil when no file was
// chosen; the caller closes the returned file.
func formFile(c echo.Context, field string) (*editor.Upload, multipart.File, error) {
	fh, err := c.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, err
	}
	if fh.Size == 0 {
		return nil, nil, nil
	}
	if fh.Size > objstore.MaxUploadSize {
		return nil, nil, echo.NewHTTPError(http.StatusRequestEntityTooLarge, "image exceeds 10MB")
	}
	f, err := fh.Open()
	if err != nil {
		return nil, nil, err
	}
	return &editor.Upload{Name: fh.Filename, Body: f}, f, nil
}
