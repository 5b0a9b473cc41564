package pilotsite

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo-contrib/session"
	"github.com/labstack/echo/v4"

	"github.com/eringen/pilotsite/docstore"
	"github.com/eringen/pilotsite/views"
)

const (
	sessionName = "pilot_session"
	viewerKey   = "viewer"
)

// GateState is where the current visitor stands with the Auth Gate.
type GateState int

const (
	SignedOut GateState = iota
	SignedInUnauthorized
	SignedInAuthorized
)

func (s GateState) String() string {
	switch s {
	case SignedInUnauthorized:
		return "signed-in-unauthorized"
	case SignedInAuthorized:
		return "signed-in-authorized"
	default:
		return "signed-out"
	}
}

// Viewer is the visitor as resolved for one request.
type Viewer struct {
	UID   string
	Email string
	Role  docstore.Role
	State GateState
}

// viewer resolves the gate state from the session and the org role. The
// role is looked up on every request; a failed lookup denies.
func (a *App) viewer(c echo.Context) Viewer {
	if v, ok := c.Get(viewerKey).(Viewer); ok {
		return v
	}
	v := Viewer{}
	sess, err := session.Get(sessionName, c)
	if err == nil {
		v.UID, _ = sess.Values["uid"].(string)
		v.Email, _ = sess.Values["email"].(string)
	}
	if v.UID != "" {
		v.State = SignedInUnauthorized
		role, err := a.Store.OrgRole(c.Request().Context(), v.UID)
		if err != nil {
			a.Log.Warn("org role lookup failed", "uid", v.UID, "error", err)
		} else if role.CanWrite() {
			v.Role = role
			v.State = SignedInAuthorized
		}
	}
	c.Set(viewerKey, v)
	return v
}

func (a *App) nav(c echo.Context) views.Nav {
	v := a.viewer(c)
	return views.Nav{
		Email:      v.Email,
		SignedIn:   v.State != SignedOut,
		Authorized: v.State == SignedInAuthorized,
		CSRF:       CsrfToken(c),
	}
}

// requireOrg guards the editor and dashboard. Signed-out visitors are sent to
// sign in; signed-in users without a role get the denial page, or 403 on
// anything but GET.
func (a *App) requireOrg(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		v := a.viewer(c)
		switch v.State {
		case SignedInAuthorized:
			return next(c)
		case SignedInUnauthorized:
			if c.Request().Method != http.MethodGet {
				return echo.NewHTTPError(http.StatusForbidden, "Your account does not have org access.")
			}
			return RenderStatus(c, http.StatusForbidden, views.DeniedPage(a.Config.views(), a.nav(c)))
		default:
			if c.Request().Method != http.MethodGet {
				return echo.NewHTTPError(http.StatusUnauthorized, "Sign in required.")
			}
			return c.Redirect(http.StatusSeeOther, "/login/?next="+url.QueryEscape(c.Request().URL.RequestURI()))
		}
	}
}

func setUserSession(c echo.Context, uid, email string) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	sess.Values["uid"] = uid
	sess.Values["email"] = email
	return sess.Save(c.Request(), c.Response())
}

func clearUserSession(c echo.Context) error {
	sess, err := session.Get(sessionName, c)
	if err != nil {
		return err
	}
	delete(sess.Values, "uid")
	delete(sess.Values, "email")
	sess.Options.MaxAge = -1
	return sess.Save(c.Request(), c.Response())
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/dashboard/"
	}
	return next
}
