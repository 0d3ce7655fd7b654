package echoapi

import (
	"net/http"
	"net/mail"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"

	"github.com/kozihq/kozi/core"
	"github.com/kozihq/kozi/core/access"
	"github.com/kozihq/kozi/core/eventlog"
	"github.com/kozihq/kozi/core/roster"
	"github.com/kozihq/kozi/core/submission"
)

var (
	errNotAuthenticated     = echo.NewHTTPError(http.StatusUnauthorized, "identity not confirmed")
	errCourseAccessRequired = echo.NewHTTPError(http.StatusForbidden, "course access required; please log in")
	errPINRequired          = echo.NewHTTPError(http.StatusBadRequest, "instructor access failed")
	errHttpForbidden        = echo.NewHTTPError(http.StatusForbidden, "permission denied")
	errHttpNotFound         = echo.NewHTTPError(http.StatusNotFound, "not found")

	rosterUnavailableMsg = "the course is temporarily unavailable; please contact your instructor"
	tryAgainMsg          = "something went wrong saving your work; please try again"
)

// newAppHTTPErrorHandler returns a custom echo.HTTPErrorHandler that knows how to handle our errors.
// signalShutdown is called in order to gracefully shutdown the Server whenever a core.shutdown error is caught.
func newAppHTTPErrorHandler(deps ServerDeps, signalShutdown func()) echo.HTTPErrorHandler {
	return func(err error, ctx echo.Context) {
		var code int
		var message interface{}

		cause := errors.Cause(err)
		if cause == submission.ErrNotAuthenticated {
			cause = errNotAuthenticated
		}

		switch origErr := cause.(type) {
		case *echo.HTTPError:
			if origErr == middleware.ErrJWTMissing {
				code = http.StatusUnauthorized
				message = origErr.Message
				break
			}
			if origErr.Internal != nil {
				if herr, ok := origErr.Internal.(*echo.HTTPError); ok {
					origErr = herr
				}
			}
			code = origErr.Code
			message = origErr.Message
		case validator.ValidationErrors:
			fldErrs := make(map[string]string, len(origErr))
			for _, vErr := range origErr {
				fldErrs[vErr.Field()] = vErr.Translate(deps.Translator)
			}
			code = http.StatusBadRequest
			message = fldErrs
		case *core.ValidationError:
			if origErr.Fields != nil {
				fldErrs := make(map[string]string, len(origErr.Fields))
				for _, fErr := range origErr.Fields {
					fldErrs[fErr.Field] = fErr.Error
				}
				message = fldErrs
			} else {
				message = origErr.Error()
			}
			code = http.StatusBadRequest
		case *access.DeniedError:
			code = http.StatusForbidden
			message = echo.Map{"error": origErr.Error(), "reason": string(origErr.Reason)}
		case *roster.LoadError:
			// fatal to the session; the details are for the instructor, not the student
			code = http.StatusServiceUnavailable
			message = rosterUnavailableMsg
			deps.Logger.Error(origErr.Error(), origErr)
			alertInstructor(deps, origErr)
		case *submission.WriteError:
			code = http.StatusInternalServerError
			message = tryAgainMsg
			deps.Logger.Error(origErr.Error(), origErr)
		case *eventlog.WriteError:
			code = http.StatusInternalServerError
			message = tryAgainMsg
			deps.Logger.Error(origErr.Error(), origErr)
		default: // any other error is a server error
			code = http.StatusInternalServerError
			msg := http.StatusText(http.StatusInternalServerError)
			message = msg

			args := []interface{}{errors.Wrap(err, msg)}
			if sess, sErr := getContextSession(ctx); sErr == nil {
				args = append(args, sess.Identity)
			}
			deps.Logger.Error(msg, args...)

			// shutting down...
			if core.IsShutdown(err) {
				signalShutdown()
			}
		}

		if ctx.Echo().Debug {
			message = err.Error()
		}
		if m, ok := message.(string); ok {
			message = echo.Map{"error": m}
		}

		// Send response
		if !ctx.Response().Committed {
			if ctx.Request().Method == http.MethodHead { // Issue #608
				err = ctx.NoContent(code)
			} else {
				err = ctx.JSON(code, message)
			}
			if err != nil {
				ctx.Echo().Logger.Error(err)
			}
		}
	}
}

func alertInstructor(deps ServerDeps, err *roster.LoadError) {
	if deps.MailSvc == nil || deps.Conf.InstructorEmail == "" {
		return
	}
	deps.MailSvc.SendMessages(&core.EmailMessage{
		To:      []mail.Address{{Address: deps.Conf.InstructorEmail}},
		Subject: "course roster could not be loaded",
		BodyStr: "Students are currently locked out of the course app.\n\n" + err.Error(),
	})
}
