package pilotsite

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pilotsite/views"
)

func (a *App) loginData(c echo.Context) views.LoginData {
	next := c.FormValue("next")
	if next == "" {
		next = c.QueryParam("next")
	}
	return views.LoginData{
		Next:       next,
		TokenLogin: a.tokens != nil,
		CSRF:       CsrfToken(c),
	}
}

func (a *App) handleLoginPage(c echo.Context) error {
	v := a.viewer(c)
	d := a.loginData(c)
	switch v.State {
	case SignedInAuthorized:
		return c.Redirect(http.StatusSeeOther, safeNext(d.Next))
	case SignedInUnauthorized:
		d.Denied = true
	}
	return Render(c, views.LoginPage(a.Config.views(), a.nav(c), d))
}

func (a *App) handleLogin(c echo.Context) error {
	ip := c.RealIP()
	d := a.loginData(c)
	if !a.loginLimiter.Check(ip) {
		d.Error = "Too many sign-in attempts. Try again later."
		return RenderStatus(c, http.StatusTooManyRequests, views.LoginPage(a.Config.views(), a.nav(c), d))
	}

	acc, err := Authenticate(c.Request().Context(), a.Store, c.FormValue("email"), c.FormValue("password"))
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			a.loginLimiter.Record(ip)
			a.Log.Info("sign-in rejected", "ip", ip)
			d.Error = "Invalid email or password."
			return RenderStatus(c, http.StatusUnauthorized, views.LoginPage(a.Config.views(), a.nav(c), d))
		}
		a.Log.Error("sign-in lookup failed", "error", err)
		d.Error = "Sign-in failed. Check the server logs for details."
		return RenderStatus(c, http.StatusInternalServerError, views.LoginPage(a.Config.views(), a.nav(c), d))
	}
	return a.startSession(c, acc.UID, acc.Email, d.Next)
}

// handleTokenLogin accepts an ID token from the hosted identity provider.
func (a *App) handleTokenLogin(c echo.Context) error {
	if a.tokens == nil {
		return echo.ErrNotFound
	}
	ip := c.RealIP()
	d := a.loginData(c)
	if !a.loginLimiter.Check(ip) {
		d.Error = "Too many sign-in attempts. Try again later."
		return RenderStatus(c, http.StatusTooManyRequests, views.LoginPage(a.Config.views(), a.nav(c), d))
	}
	claims, err := a.tokens.Verify(c.FormValue("id_token"))
	if err != nil {
		a.loginLimiter.Record(ip)
		a.Log.Info("id token rejected", "ip", ip, "error", err)
		d.Error = "Sign-in failed. The identity token was not accepted."
		return RenderStatus(c, http.StatusUnauthorized, views.LoginPage(a.Config.views(), a.nav(c), d))
	}
	return a.startSession(c, claims.Subject, claims.Email, d.Next)
}

// startSession signs the user in, then sends them on according to their
// gate state.
func (a *App) startSession(c echo.Context, uid, email, next string) error {
	if err := setUserSession(c, uid, email); err != nil {
		return err
	}
	a.Log.Info("signed in", "uid", uid)
	return c.Redirect(http.StatusSeeOther, safeNext(next))
}

func (a *App) handleLogout(c echo.Context) error {
	if err := clearUserSession(c); err != nil {
		return err
	}
	return c.Redirect(http.StatusSeeOther, "/")
}
