package pilotsite

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pilotsite/docstore"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

func (a *App) renderSitemap(c echo.Context, posts []docstore.Post) error {
	base := a.Config.URL
	urls := []sitemapURL{{Loc: BuildURL(base)}}
	if a.News != nil {
		urls = append(urls, sitemapURL{Loc: BuildURL(base, "news")})
	}
	for _, p := range posts {
		if p.Slug == "" {
			continue
		}
		u := sitemapURL{Loc: BuildURL(base, "blog", p.Slug)}
		switch {
		case !p.UpdatedAt.IsZero():
			u.LastMod = p.UpdatedAt.Format("2006-01-02")
		case !p.CreatedAt.IsZero():
			u.LastMod = p.CreatedAt.Format("2006-01-02")
		}
		urls = append(urls, u)
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	c.Response().Write([]byte(xml.Header))
	return xml.NewEncoder(c.Response()).Encode(sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	})
}
