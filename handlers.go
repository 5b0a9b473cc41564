package pilotsite

import (
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pilotsite/apperr"
	"github.com/eringen/pilotsite/metrics"
	"github.com/eringen/pilotsite/paginate"
	"github.com/eringen/pilotsite/views"
)

func (a *App) handleHome(c echo.Context) error {
	var d views.FeedData
	posts, err := a.Feed.Posts(c.Request().Context())
	if err != nil {
		// The page still renders; the feed container explains the failure.
		a.Log.Error("load blog feed", "error", err)
		d.Err = err.Error()
	}
	d.Page = paginate.New(len(posts), a.Config.PageSize, paginate.Parse(c.QueryParam("page")))
	d.Posts = paginate.Slice(posts, d.Page)
	return Render(c, views.HomePage(a.Config.views(), a.nav(c), d))
}

func (a *App) handlePost(c echo.Context) error {
	post, err := a.Feed.Post(c.Request().Context(), c.Param("slug"))
	if apperr.Is(err, apperr.NotFound) {
		return RenderStatus(c, http.StatusNotFound, views.NotFound(a.Config.views()))
	}
	if err != nil {
		return err
	}
	return Render(c, views.PostPage(a.Config.views(), a.nav(c), post))
}

func (a *App) handleNews(c echo.Context) error {
	if a.News == nil {
		return echo.ErrNotFound
	}
	d := views.ExternalData{PostBase: a.Config.NewsPostBase}
	start := time.Now()
	items, err := a.News.Fetch(c.Request().Context())
	metrics.ObserveFetch(start, err)
	if err != nil {
		a.Log.Error("load external feed", "error", err, "kind", apperr.KindOf(err).String())
		d.Err = apperr.Message("Loading blog posts", err)
	}
	d.Page = paginate.New(len(items), a.Config.PageSize, paginate.Parse(c.QueryParam("page")))
	d.Items = paginate.Slice(items, d.Page)
	return Render(c, views.NewsPage(a.Config.views(), a.nav(c), d))
}

// apiPost is the public JSON shape of a feed post.
type apiPost struct {
	ID        string            `json:"id"`
	Title     string            `json:"title"`
	Summary   string            `json:"summary,omitempty"`
	Image     string            `json:"image,omitempty"`
	Slug      string            `json:"slug,omitempty"`
	Date      string            `json:"date,omitempty"`
	Social    map[string]string `json:"social,omitempty"`
	URL       string            `json:"url"`
	CreatedAt time.Time         `json:"createdAt"`
}

func (a *App) handleAPIBlogs(c echo.Context) error {
	posts, err := a.Feed.Posts(c.Request().Context())
	if err != nil {
		a.Log.Error("api blogs", "error", err)
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "feed unavailable"})
	}
	out := make([]apiPost, 0, len(posts))
	for _, p := range posts {
		out = append(out, apiPost{
			ID:        p.ID,
			Title:     p.Title,
			Summary:   p.Summary,
			Image:     p.Image,
			Slug:      p.Slug,
			Date:      p.Date,
			Social:    nonEmpty(p.Social),
			URL:       BuildURL(a.Config.URL, "blog", p.Slug),
			CreatedAt: p.CreatedAt,
		})
	}
	return c.JSON(http.StatusOK, out)
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Feed.Posts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Feed.Posts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func (a *App) handleRobots(c echo.Context) error {
	path := filepath.Join(a.staticDir, "robots.txt")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	var b strings.Builder
	b.WriteString("User-agent: *\nAllow: /\nDisallow: /admin/\nDisallow: /dashboard/\nDisallow: /login/\n")
	b.WriteString("Sitemap: " + strings.TrimRight(a.Config.URL, "/") + "/sitemap.xml\n")
	return c.String(http.StatusOK, b.String())
}

func (a *App) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	var he *echo.HTTPError
	ok := errors.As(err, &he)
	if ok && he.Code == http.StatusNotFound {
		_ = RenderStatus(c, http.StatusNotFound, views.NotFound(a.Config.views()))
		return
	}
	code := http.StatusInternalServerError
	if ok {
		code = he.Code
	}
	if code >= 500 {
		a.Log.Error("server error", "error", err, "path", c.Request().URL.Path)
		_ = RenderStatus(c, code, views.ServerError(a.Config.views()))
		return
	}
	a.Echo.DefaultHTTPErrorHandler(err, c)
}

func nonEmpty(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if v != "" {
			out[k] = v
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
