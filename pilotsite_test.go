package pilotsite

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pilotsite/apperr"
	"github.com/eringen/pilotsite/docstore"
	"github.com/eringen/pilotsite/extfeed"
	"github.com/eringen/pilotsite/objstore"
)

const testCSRF = "test-csrf-token"

func testConfig(t *testing.T) SiteConfig {
	dir := t.TempDir()
	return SiteConfig{
		Name:          "Diversity Pilots",
		URL:           "https://example.com",
		Description:   "Pilot programs",
		SessionSecret: "0123456789abcdef0123456789abcdef",
		StoreDSN:      filepath.Join(dir, "site.db"),
		MediaDir:      filepath.Join(dir, "media"),
		LoginAttempts: 5,
		LoginWindow:   time.Minute,
	}
}

func newTestApp(t *testing.T, cfg SiteConfig, store docstore.Store, opts ...Option) *App {
	t.Helper()
	if store == nil {
		s, err := docstore.OpenSQLite(filepath.Join(t.TempDir(), "docs.db"))
		require.NoError(t, err)
		t.Cleanup(func() { s.Close() })
		store = s
	}
	bucket, err := objstore.NewFS(cfg.MediaDir, "/media")
	require.NoError(t, err)

	opts = append([]Option{WithStore(store), WithBucket(bucket), WithStaticDir(t.TempDir())}, opts...)
	a := New(cfg, opts...)
	require.NoError(t, a.Setup(context.Background()))
	t.Cleanup(func() { a.Close() })
	return a
}

// browser keeps cookies between requests and always presents the CSRF
// cookie, as a page load would have set it.
type browser struct {
	t       *testing.T
	app     *App
	cookies map[string]*http.Cookie
}

func newBrowser(t *testing.T, a *App) *browser {
	return &browser{t: t, app: a, cookies: map[string]*http.Cookie{}}
}

func (b *browser) do(req *http.Request) *httptest.ResponseRecorder {
	req.AddCookie(&http.Cookie{Name: "_csrf", Value: testCSRF})
	for _, c := range b.cookies {
		if c.Name != "_csrf" {
			req.AddCookie(c)
		}
	}
	rec := httptest.NewRecorder()
	b.app.Echo.ServeHTTP(rec, req)
	for _, c := range rec.Result().Cookies() {
		if c.MaxAge < 0 {
			delete(b.cookies, c.Name)
			continue
		}
		b.cookies[c.Name] = c
	}
	return rec
}

func (b *browser) get(path string, hdr ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for i := 0; i+1 < len(hdr); i += 2 {
		req.Header.Set(hdr[i], hdr[i+1])
	}
	return b.do(req)
}

func (b *browser) post(path string, form url.Values) *httptest.ResponseRecorder {
	if form == nil {
		form = url.Values{}
	}
	form.Set("_csrf", testCSRF)
	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return b.do(req)
}

func (b *browser) signIn(email, password string) *httptest.ResponseRecorder {
	return b.post("/login/", url.Values{"email": {email}, "password": {password}})
}

func addUser(t *testing.T, a *App, uid, email string, role docstore.Role) {
	t.Helper()
	ctx := context.Background()
	_, err := CreateAccount(ctx, a.Store, email, "correct horse", uid)
	require.NoError(t, err)
	if role != docstore.RoleNone {
		require.NoError(t, a.Store.SetOrgRole(ctx, uid, role))
	}
}

func TestGateSignedOut(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	b := newBrowser(t, a)

	rec := b.get("/dashboard/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/login/?next=%2Fdashboard%2F", rec.Header().Get("Location"))

	rec = b.post("/admin/blogs/", url.Values{"title": {"x"}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = b.get("/login/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `action="/login/"`)
}

func TestGateSignedInWithoutRole(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	addUser(t, a, "uid-guest", "guest@example.com", docstore.RoleNone)
	b := newBrowser(t, a)

	rec := b.signIn("guest@example.com", "correct horse")
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/dashboard/", rec.Header().Get("Location"))

	rec = b.get("/dashboard/")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your account does not have org access.")

	rec = b.post("/admin/blogs/", url.Values{"title": {"x"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = b.get("/login/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Your account does not have org access.")
}

func TestGateRoleGrantedAndSignOut(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	addUser(t, a, "uid-ada", "Ada@Example.com", docstore.RoleBlogAdmin)
	b := newBrowser(t, a)

	rec := b.signIn("ada@example.com", "correct horse")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = b.get("/admin/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	// Revoking the role takes effect on the next request.
	require.NoError(t, a.Store.SetOrgRole(context.Background(), "uid-ada", docstore.RoleNone))
	rec = b.get("/admin/")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = b.post("/logout/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	rec = b.get("/admin/")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
}

func TestLoginRedirectStaysOnSite(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	addUser(t, a, "uid-ada", "ada@example.com", docstore.RoleOrgMember)
	b := newBrowser(t, a)

	rec := b.post("/login/", url.Values{
		"email":    {"ada@example.com"},
		"password": {"correct horse"},
		"next":     {"//evil.example/"},
	})
	assert.Equal(t, "/dashboard/", rec.Header().Get("Location"))

	b = newBrowser(t, a)
	rec = b.post("/login/", url.Values{
		"email":    {"ada@example.com"},
		"password": {"correct horse"},
		"next":     {"/admin/"},
	})
	assert.Equal(t, "/admin/", rec.Header().Get("Location"))
}

func TestLoginRejectsBadPassword(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	addUser(t, a, "uid-ada", "ada@example.com", docstore.RoleOrgMember)
	b := newBrowser(t, a)

	rec := b.signIn("ada@example.com", "wrong password")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid email or password.")

	rec = b.signIn("nobody@example.com", "correct horse")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLoginRateLimited(t *testing.T) {
	cfg := testConfig(t)
	cfg.LoginAttempts = 2
	a := newTestApp(t, cfg, nil)
	addUser(t, a, "uid-ada", "ada@example.com", docstore.RoleOrgMember)
	b := newBrowser(t, a)

	for i := 0; i < 2; i++ {
		rec := b.signIn("ada@example.com", "wrong password")
		require.Equal(t, http.StatusUnauthorized, rec.Code)
	}
	rec := b.signIn("ada@example.com", "correct horse")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "Too many sign-in attempts.")
}

func TestCSRFRequiredOnForms(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)

	form := url.Values{"email": {"ada@example.com"}, "password": {"correct horse"}}
	req := httptest.NewRequest(http.MethodPost, "/login/", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rec := httptest.NewRecorder()
	a.Echo.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestEditorSaveAndDelete(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	addUser(t, a, "uid-ada", "ada@example.com", docstore.RoleBlogAdmin)
	b := newBrowser(t, a)
	require.Equal(t, http.StatusSeeOther, b.signIn("ada@example.com", "correct horse").Code)

	// Warm the feed cache so the save has something to invalidate.
	rec := b.get("/")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "No blog posts found.")

	rec = b.post("/admin/blogs/", url.Values{
		"action":          {"save"},
		"title":           {"  Pilot Launch  "},
		"summary":         {"First cohort announced"},
		"image":           {"https://example.com/launch.jpg"},
		"social_linkedin": {"https://linkedin.com/posts/1"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/?msg=saved", rec.Header().Get("Location"))

	rec = b.get("/admin/?msg=saved")
	assert.Contains(t, rec.Body.String(), "Saved.")
	assert.Contains(t, rec.Body.String(), "Pilot Launch")

	rec = b.get("/")
	assert.Contains(t, rec.Body.String(), "Pilot Launch")
	assert.Contains(t, rec.Body.String(), `/blog/pilot-launch/`)

	rec = b.get("/blog/pilot-launch/")
	assert.Equal(t, http.StatusOK, rec.Code)

	posts, err := a.Store.List(context.Background(), docstore.Blogs, docstore.Query{})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	id := posts[0].ID

	rec = b.post("/admin/blogs/"+id+"/delete/", nil)
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/admin/blogs/"+id+"/delete/", rec.Header().Get("Location"))

	rec = b.get("/admin/blogs/" + id + "/delete/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `name="confirm" value="yes"`)

	rec = b.post("/admin/blogs/"+id+"/delete/", url.Values{"confirm": {"yes"}})
	assert.Equal(t, "/admin/?msg=deleted", rec.Header().Get("Location"))

	posts, err = a.Store.List(context.Background(), docstore.Blogs, docstore.Query{})
	require.NoError(t, err)
	assert.Empty(t, posts)

	rec = b.get("/blog/pilot-launch/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestEditorRejectsMissingTitle(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	addUser(t, a, "uid-ada", "ada@example.com", docstore.RoleBlogAdmin)
	b := newBrowser(t, a)
	require.Equal(t, http.StatusSeeOther, b.signIn("ada@example.com", "correct horse").Code)

	rec := b.post("/admin/blogs/", url.Values{"action": {"save"}, "summary": {"no title"}})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, rec.Body.String(), "Title is required.")
	assert.Contains(t, rec.Body.String(), "no title")
}

func TestDashboardDraftOwnership(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	addUser(t, a, "uid-ada", "ada@example.com", docstore.RoleOrgMember)
	addUser(t, a, "uid-bob", "bob@example.com", docstore.RoleOrgMember)

	ada := newBrowser(t, a)
	require.Equal(t, http.StatusSeeOther, ada.signIn("ada@example.com", "correct horse").Code)
	rec := ada.post("/dashboard/posts/", url.Values{
		"title":   {"Mentor Notes"},
		"content": {"Week one went well."},
		"tags":    {"mentoring, week1"},
	})
	require.Equal(t, http.StatusSeeOther, rec.Code)

	posts, err := a.Store.List(context.Background(), docstore.Posts, docstore.Query{AuthorID: "uid-ada"})
	require.NoError(t, err)
	require.Len(t, posts, 1)
	id := posts[0].ID
	assert.Equal(t, docstore.Draft, posts[0].Status)

	rec = ada.get("/dashboard/posts/list/")
	assert.Contains(t, rec.Body.String(), "Mentor Notes")

	bob := newBrowser(t, a)
	require.Equal(t, http.StatusSeeOther, bob.signIn("bob@example.com", "correct horse").Code)
	rec = bob.get("/dashboard/")
	assert.NotContains(t, rec.Body.String(), "Mentor Notes")

	rec = bob.get("/dashboard/posts/" + id + "/edit/")
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = bob.post("/dashboard/posts/"+id+"/publish/", nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = bob.post("/dashboard/posts/"+id+"/delete/", url.Values{"confirm": {"yes"}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = ada.post("/dashboard/posts/"+id+"/publish/", nil)
	assert.Equal(t, "/dashboard/?msg=published", rec.Header().Get("Location"))
	p, err := a.Store.Get(context.Background(), docstore.Posts, id)
	require.NoError(t, err)
	assert.Equal(t, docstore.Published, p.Status)
}

// orderlessStore fails every ordered query, as a backend without the
// needed index would.
type orderlessStore struct {
	docstore.Store
	fail bool
}

func (s *orderlessStore) List(ctx context.Context, coll string, q docstore.Query) ([]docstore.Post, error) {
	if s.fail || q.OrderBy != "" {
		return nil, apperr.E(apperr.Unknown, "list", errors.New("index missing"))
	}
	return s.Store.List(ctx, coll, q)
}

func TestFeedFallsBackToUnorderedRead(t *testing.T) {
	base, err := docstore.OpenSQLite(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { base.Close() })
	_, err = base.Insert(context.Background(), docstore.Blogs, docstore.Post{Title: "Fallback Post", Slug: "fallback-post"})
	require.NoError(t, err)

	a := newTestApp(t, testConfig(t), &orderlessStore{Store: base})
	rec := newBrowser(t, a).get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Fallback Post")
}

func TestFeedErrorShowsTroubleshooting(t *testing.T) {
	base, err := docstore.OpenSQLite(filepath.Join(t.TempDir(), "docs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { base.Close() })

	a := newTestApp(t, testConfig(t), &orderlessStore{Store: base, fail: true})
	b := newBrowser(t, a)
	rec := b.get("/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "We couldn't load blog posts.")
	assert.Contains(t, rec.Body.String(), "index missing")

	rec = b.get("/api/blogs")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

type stubSource struct {
	items []extfeed.Item
	err   error
}

func (s stubSource) Fetch(context.Context) ([]extfeed.Item, error) { return s.items, s.err }

func TestNewsPage(t *testing.T) {
	cfg := testConfig(t)
	cfg.NewsPostBase = "https://blog.example.com/post/"
	src := stubSource{items: []extfeed.Item{{
		Title:         "Partner Spotlight",
		Slug:          "partner-spotlight",
		URL:           "https://blog.example.com/post/partner-spotlight",
		PublishedDate: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
	}}}
	a := newTestApp(t, cfg, nil, WithNewsSource(src))

	rec := newBrowser(t, a).get("/news/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Partner Spotlight")
	assert.Contains(t, rec.Body.String(), "March 5, 2024")
	assert.Contains(t, rec.Body.String(), "https://blog.example.com/post/partner-spotlight")
}

func TestNewsPageTimeout(t *testing.T) {
	src := stubSource{err: apperr.E(apperr.Timeout, "fetch blog posts", context.DeadlineExceeded)}
	a := newTestApp(t, testConfig(t), nil, WithNewsSource(src))

	rec := newBrowser(t, a).get("/news/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Request timed out. The blog server may be slow or unreachable.")
}

func TestNewsPageDisabled(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	rec := newBrowser(t, a).get("/news/")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAPIBlogsCORS(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	_, err := a.Store.Insert(context.Background(), docstore.Blogs, docstore.Post{
		Title:  "Open Data",
		Slug:   "open-data",
		Social: map[string]string{"twitter": "https://twitter.com/x/1", "facebook": ""},
	})
	require.NoError(t, err)

	rec := newBrowser(t, a).get("/api/blogs", "Origin", "https://partner.example.org")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	var out []apiPost
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out, 1)
	assert.Equal(t, "Open Data", out[0].Title)
	assert.Equal(t, "https://example.com/blog/open-data/", out[0].URL)
	assert.Equal(t, map[string]string{"twitter": "https://twitter.com/x/1"}, out[0].Social)
}

func TestTokenLogin(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	verifier := NewTokenVerifierFunc(func(*jwt.Token) (any, error) { return key, nil },
		"https://id.example.com", "pilotsite", "HS256")
	a := newTestApp(t, testConfig(t), nil, WithTokenVerifier(verifier))
	require.NoError(t, a.Store.SetOrgRole(context.Background(), "uid-sso", docstore.RoleOrgMember))

	sign := func(exp time.Time) string {
		tok := jwt.NewWithClaims(jwt.SigningMethodHS256, IDClaims{
			Email: "sso@example.com",
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "uid-sso",
				Issuer:    "https://id.example.com",
				Audience:  jwt.ClaimStrings{"pilotsite"},
				ExpiresAt: jwt.NewNumericDate(exp),
			},
		})
		s, err := tok.SignedString(key)
		require.NoError(t, err)
		return s
	}

	b := newBrowser(t, a)
	rec := b.post("/login/token/", url.Values{"id_token": {sign(time.Now().Add(-time.Minute))}})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = b.post("/login/token/", url.Values{"id_token": {sign(time.Now().Add(time.Hour))}})
	require.Equal(t, http.StatusSeeOther, rec.Code)
	rec = b.get("/dashboard/")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "sso@example.com")
}

func TestTokenLoginDisabled(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	rec := newBrowser(t, a).post("/login/token/", url.Values{"id_token": {"x"}})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSitemapAndFeed(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil, WithNewsSource(stubSource{}))
	_, err := a.Store.Insert(context.Background(), docstore.Blogs, docstore.Post{
		Title: "Cohort Two", Slug: "cohort-two", Summary: "Applications open",
	})
	require.NoError(t, err)
	_, err = a.Store.Insert(context.Background(), docstore.Blogs, docstore.Post{Title: "No Slug"})
	require.NoError(t, err)
	b := newBrowser(t, a)

	rec := b.get("/sitemap.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "<loc>https://example.com/blog/cohort-two/</loc>")
	assert.Contains(t, body, "<loc>https://example.com/news/</loc>")
	assert.NotContains(t, body, "No Slug")

	rec = b.get("/feed.xml")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "application/rss+xml")
	assert.Contains(t, rec.Body.String(), "<title>Cohort Two</title>")
	assert.NotContains(t, rec.Body.String(), "No Slug")
}

func TestHealthAndRobots(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	b := newBrowser(t, a)

	rec := b.get("/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = b.get("/robots.txt")
	assert.Contains(t, rec.Body.String(), "Disallow: /dashboard/")
	assert.Contains(t, rec.Body.String(), "Sitemap: https://example.com/sitemap.xml")
}

func TestLiveScriptEmbedded(t *testing.T) {
	a := newTestApp(t, testConfig(t), nil)
	rec := newBrowser(t, a).get("/public/live.js")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "WebSocket")
}

func TestSetupValidatesConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.SessionSecret = "short"
	a := New(cfg)
	assert.Error(t, a.Setup(context.Background()))
}
