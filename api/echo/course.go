package echoapi

import (
	"io/ioutil"
	"net/http"
	"path/filepath"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kozihq/kozi/core/access"
	"github.com/kozihq/kozi/core/eventlog"
	"github.com/kozihq/kozi/core/student"
)

// courseApi is the collaborator surface the page-rendering side talks to:
// access login/logout, identity confirm/reset, submissions and activity
// events. Page code never reaches into roster or log files directly.
type courseApi struct {
	deps ServerDeps
}

func registerCourseAPI(g *echo.Group, deps ServerDeps) {
	api := courseApi{deps: deps}

	ag := g.Group("/access")
	ag.POST("/login", api.login)
	ag.POST("/logout", api.logout)

	g.GET("/session", api.sessionState)

	// everything past the access gate
	cg := g.Group("", authorizedMiddleware())
	ig := cg.Group("/identity")
	ig.POST("/confirm", api.confirmIdentity)
	ig.POST("/reset", api.resetIdentity)

	sg := cg.Group("/submissions")
	sg.POST("/text", api.saveText)
	sg.POST("/file", api.saveFile)

	cg.POST("/events", api.logEvent)
}

// Handlers

func (api *courseApi) login(ctx echo.Context) error {
	var data LoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to LoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	d, err := api.deps.Gate.Login(sess, data.Email)
	if err != nil {
		return errors.Wrap(err, "authorizing course access")
	}
	if !d.Authorized {
		return &access.DeniedError{Reason: d.Reason}
	}
	return ctx.JSON(http.StatusOK, echo.Map{"email": d.Email})
}

func (api *courseApi) logout(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	api.deps.Gate.Logout(sess)
	return ctx.NoContent(http.StatusNoContent)
}

// sessionState reports the session as-is for page rendering; it has no
// side effects.
func (api *courseApi) sessionState(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	return ctx.JSON(http.StatusOK, sess)
}

func (api *courseApi) confirmIdentity(ctx echo.Context) error {
	var data student.ConfirmIdentity
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to ConfirmIdentity")
	}

	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	ident, err := api.deps.Registry.Confirm(sess, data)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusOK, ident)
}

func (api *courseApi) resetIdentity(ctx echo.Context) error {
	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}
	api.deps.Registry.Reset(sess)
	return ctx.NoContent(http.StatusNoContent)
}

func (api *courseApi) saveText(ctx echo.Context) error {
	var data TextSubmissionRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to TextSubmissionRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	path, err := api.deps.Submissions.SaveText(sess.Identity, data.AssignmentKey, data.Text, data.Filename)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, SubmissionResponse{
		Handle:        sess.Identity.Handle,
		AssignmentKey: data.AssignmentKey,
		Filename:      filepath.Base(path),
		SavedAt:       time.Now().Format(time.RFC3339),
	})
}

func (api *courseApi) saveFile(ctx echo.Context) error {
	assignmentKey := ctx.FormValue("assignment_key")
	if assignmentKey == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "assignment_key is required")
	}

	fileHdr, err := ctx.FormFile("file")
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "file is required")
	}
	f, err := fileHdr.Open()
	if err != nil {
		return errors.Wrap(err, "opening uploaded file")
	}
	defer f.Close()
	data, err := ioutil.ReadAll(f)
	if err != nil {
		return errors.Wrap(err, "reading uploaded file")
	}

	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	path, err := api.deps.Submissions.SaveFile(sess.Identity, assignmentKey, data, fileHdr.Filename)
	if err != nil {
		return err
	}
	return ctx.JSON(http.StatusCreated, SubmissionResponse{
		Handle:        sess.Identity.Handle,
		AssignmentKey: assignmentKey,
		Filename:      filepath.Base(path),
		SavedAt:       time.Now().Format(time.RFC3339),
	})
}

func (api *courseApi) logEvent(ctx echo.Context) error {
	var data EventRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to EventRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	sess, err := getContextSession(ctx)
	if err != nil {
		return errors.Wrap(err, "getting context session")
	}

	rec := eventlog.NewRecord(data.Event, sess.Identity, data.Payload)
	dir := student.StorageDir(api.deps.Conf.DataDir, sess.Identity)
	if err := api.deps.Events.Append(rec, dir); err != nil {
		return err
	}
	return ctx.NoContent(http.StatusNoContent)
}
