package pilotsite

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pilotsite/apperr"
	"github.com/eringen/pilotsite/editor"
	"github.com/eringen/pilotsite/paginate"
	"github.com/eringen/pilotsite/views"
)

// flash maps the ?msg= values set by post-redirect-get to status lines.
var flash = map[string]string{
	"saved":     "Saved.",
	"deleted":   "Deleted.",
	"published": "Published.",
}

func flashStatus(c echo.Context) views.Status {
	return views.Status{Text: flash[c.QueryParam("msg")]}
}

func failure(action string, err error) views.Status {
	return views.Status{Text: apperr.Message(action, err), Error: true}
}

// statusFor picks the response code for a failed editor operation.
func statusFor(err error) int {
	switch apperr.KindOf(err) {
	case apperr.Validation:
		return http.StatusUnprocessableEntity
	case apperr.Permission:
		return http.StatusForbidden
	case apperr.NotFound:
		return http.StatusNotFound
	case apperr.Timeout, apperr.Network:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (a *App) renderEditor(c echo.Context, code int, form editor.Form, status views.Status) error {
	d := views.EditorData{Form: form, Status: status, CSRF: CsrfToken(c)}
	posts, err := a.Blogs.List(c.Request().Context(), a.viewer(c).UID)
	if err != nil {
		a.Log.Error("list blogs for editor", "error", err)
		if status.Text == "" {
			d.Status = failure("Refresh", err)
		}
	}
	d.Page = paginate.New(len(posts), a.Config.EditorPageSize, paginate.Parse(c.QueryParam("page")))
	d.Posts = paginate.Slice(posts, d.Page)
	return RenderStatus(c, code, views.EditorPage(a.Config.views(), a.nav(c), d))
}

func (a *App) handleEditor(c echo.Context) error {
	return a.renderEditor(c, http.StatusOK, editor.Form{}, flashStatus(c))
}

func (a *App) handleEditorEdit(c echo.Context) error {
	form, err := a.Blogs.Get(c.Request().Context(), a.viewer(c).UID, c.Param("id"))
	if err != nil {
		a.Log.Warn("load blog for editing", "id", c.Param("id"), "error", err)
		return a.renderEditor(c, statusFor(err), editor.Form{}, failure("Load", err))
	}
	return a.renderEditor(c, http.StatusOK, form, views.Status{})
}

// handleEditorSubmit serves both buttons of the editor form. Upload stores
// the image and returns the form with its URL filled in; save writes the
// record.
func (a *App) handleEditorSubmit(c echo.Context) error {
	ctx := c.Request().Context()
	v := a.viewer(c)
	form := bindForm(c)

	if c.FormValue("action") == "upload" {
		up, file, err := formFile(c, "imageFile")
		if err != nil {
			return err
		}
		if up == nil {
			return a.renderEditor(c, http.StatusUnprocessableEntity, form,
				views.Status{Text: "Choose an image file first.", Error: true})
		}
		defer file.Close()
		imageURL, err := a.Blogs.UploadImage(ctx, *up)
		if err != nil {
			a.Log.Error("upload blog image", "uid", v.UID, "error", err)
			return a.renderEditor(c, statusFor(err), form, failure("Upload", err))
		}
		form.Image = imageURL
		a.Log.Info("blog image uploaded", "uid", v.UID, "url", imageURL)
		return a.renderEditor(c, http.StatusOK, form, views.Status{Text: "Image uploaded. Save the post to keep it."})
	}

	post, err := a.Blogs.Save(ctx, v.UID, form, nil)
	if err != nil {
		a.Log.Error("save blog", "uid", v.UID, "id", form.ID, "error", err)
		return a.renderEditor(c, statusFor(err), form, failure("Save", err))
	}
	a.Log.Info("blog saved", "uid", v.UID, "id", post.ID)
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=saved")
}

func (a *App) handleEditorConfirmDelete(c echo.Context) error {
	form, err := a.Blogs.Get(c.Request().Context(), a.viewer(c).UID, c.Param("id"))
	if err != nil {
		return a.renderEditor(c, statusFor(err), editor.Form{}, failure("Delete", err))
	}
	id := url.PathEscape(form.ID)
	return Render(c, views.ConfirmDelete(a.Config.views(), a.nav(c), views.ConfirmData{
		Title:  form.Title,
		Action: "/admin/blogs/" + id + "/delete/",
		Cancel: "/admin/",
		CSRF:   CsrfToken(c),
	}))
}

func (a *App) handleEditorDelete(c echo.Context) error {
	v := a.viewer(c)
	id := c.Param("id")
	err := a.Blogs.Delete(c.Request().Context(), v.UID, id, c.FormValue("confirm") == "yes")
	if errors.Is(err, editor.ErrUnconfirmed) {
		return c.Redirect(http.StatusSeeOther, "/admin/blogs/"+url.PathEscape(id)+"/delete/")
	}
	if err != nil {
		a.Log.Error("delete blog", "uid", v.UID, "id", id, "error", err)
		return a.renderEditor(c, statusFor(err), editor.Form{}, failure("Delete", err))
	}
	a.Log.Info("blog deleted", "uid", v.UID, "id", id)
	return c.Redirect(http.StatusSeeOther, "/admin/?msg=deleted")
}
