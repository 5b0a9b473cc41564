package pilotsite

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pilotsite/editor"
	"github.com/eringen/pilotsite/views"
)

func (a *App) renderDashboard(c echo.Context, code int, form editor.Form, status views.Status) error {
	d := views.DashboardData{Form: form, Status: status, CSRF: CsrfToken(c)}
	posts, err := a.Drafts.List(c.Request().Context(), a.viewer(c).UID)
	if err != nil {
		a.Log.Error("list drafts", "error", err)
		if status.Text == "" {
			d.Status = failure("Refresh", err)
		}
	}
	d.Posts = posts
	return RenderStatus(c, code, views.DashboardPage(a.Config.views(), a.nav(c), d))
}

func (a *App) handleDashboard(c echo.Context) error {
	return a.renderDashboard(c, http.StatusOK, editor.Form{}, flashStatus(c))
}

// handleDashboardList renders only the card list; the live script swaps it in
// after a change notification.
func (a *App) handleDashboardList(c echo.Context) error {
	posts, err := a.Drafts.List(c.Request().Context(), a.viewer(c).UID)
	if err != nil {
		a.Log.Error("list drafts", "error", err)
		return c.String(statusFor(err), failure("Refresh", err).Text)
	}
	return Render(c, views.DashboardList(posts, CsrfToken(c)))
}

func (a *App) handleDashboardEdit(c echo.Context) error {
	form, err := a.Drafts.Get(c.Request().Context(), a.viewer(c).UID, c.Param("id"))
	if err != nil {
		a.Log.Warn("load draft for editing", "id", c.Param("id"), "error", err)
		return a.renderDashboard(c, statusFor(err), editor.Form{}, failure("Load", err))
	}
	return a.renderDashboard(c, http.StatusOK, form, views.Status{})
}

func (a *App) handleDashboardSave(c echo.Context) error {
	v := a.viewer(c)
	form := bindForm(c)
	cover, file, err := formFile(c, "cover")
	if err != nil {
		return err
	}
	if file != nil {
		defer file.Close()
	}
	post, err := a.Drafts.Save(c.Request().Context(), v.UID, form, cover)
	if err != nil {
		a.Log.Error("save draft", "uid", v.UID, "id", form.ID, "error", err)
		return a.renderDashboard(c, statusFor(err), form, failure("Save", err))
	}
	a.Log.Info("draft saved", "uid", v.UID, "id", post.ID)
	return c.Redirect(http.StatusSeeOther, "/dashboard/?msg=saved")
}

func (a *App) handleDashboardPublish(c echo.Context) error {
	v := a.viewer(c)
	id := c.Param("id")
	if err := a.Drafts.Publish(c.Request().Context(), v.UID, id); err != nil {
		a.Log.Error("publish draft", "uid", v.UID, "id", id, "error", err)
		return a.renderDashboard(c, statusFor(err), editor.Form{}, failure("Publish", err))
	}
	a.Log.Info("draft published", "uid", v.UID, "id", id)
	return c.Redirect(http.StatusSeeOther, "/dashboard/?msg=published")
}

func (a *App) handleDashboardConfirmDelete(c echo.Context) error {
	form, err := a.Drafts.Get(c.Request().Context(), a.viewer(c).UID, c.Param("id"))
	if err != nil {
		return a.renderDashboard(c, statusFor(err), editor.Form{}, failure("Delete", err))
	}
	return Render(c, views.ConfirmDelete(a.Config.views(), a.nav(c), views.ConfirmData{
		Title:  form.Title,
		Action: "/dashboard/posts/" + url.PathEscape(form.ID) + "/delete/",
		Cancel: "/dashboard/",
		CSRF:   CsrfToken(c),
	}))
}

func (a *App) handleDashboardDelete(c echo.Context) error {
	v := a.viewer(c)
	id := c.Param("id")
	err := a.Drafts.Delete(c.Request().Context(), v.UID, id, c.FormValue("confirm") == "yes")
	if errors.Is(err, editor.ErrUnconfirmed) {
		return c.Redirect(http.StatusSeeOther, "/dashboard/posts/"+url.PathEscape(id)+"/delete/")
	}
	if err != nil {
		a.Log.Error("delete draft", "uid", v.UID, "id", id, "error", err)
		return a.renderDashboard(c, statusFor(err), editor.Form{}, failure("Delete", err))
	}
	a.Log.Info("draft deleted", "uid", v.UID, "id", id)
	return c.Redirect(http.StatusSeeOther, "/dashboard/?msg=deleted")
}

// handleDashboardLive holds a WebSocket open and notifies it whenever one of
// the viewer's posts changes.
func (a *App) handleDashboardLive(c echo.Context) error {
	uid := a.viewer(c).UID
	if err := a.Hub.Serve(c.Response(), c.Request(), uid); err != nil {
		a.Log.Debug("live upgrade failed", "uid", uid, "error", err)
	}
	return nil
}
