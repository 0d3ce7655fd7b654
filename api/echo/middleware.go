package echoapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"

	"github.com/kozihq/kozi/core/session"
)

const (
	sessionCookieName = "kozi_session"
	contextSessionKey = "session"
)

var errSessNotFoundInCtx = errors.New("session context not found in echo.Context")

// sessionMiddleware attaches the browser session's Context to each request,
// creating one on first contact. It also refreshes the identity's LastSeen
// and re-runs the semester-expiry check for authorized sessions; expiry is
// enforced on every request, not cached in session state.
func sessionMiddleware(deps ServerDeps) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			var sess *session.Context
			if cookie, err := ctx.Cookie(sessionCookieName); err == nil {
				sess, _ = deps.Sessions.Get(cookie.Value)
			}
			if sess == nil {
				sess = deps.Sessions.New()
				ctx.SetCookie(&http.Cookie{
					Name:     sessionCookieName,
					Value:    sess.ID,
					Path:     "/",
					HttpOnly: true,
					SameSite: http.SameSiteLaxMode,
				})
			}

			deps.Registry.Touch(sess)
			deps.Gate.Recheck(sess)

			ctx.Set(contextSessionKey, sess)
			err := next(ctx)
			deps.Sessions.Save(sess)
			return err
		}
	}
}

func getContextSession(ctx echo.Context) (*session.Context, error) {
	if sess, ok := ctx.Get(contextSessionKey).(*session.Context); ok {
		return sess, nil
	}
	return nil, errSessNotFoundInCtx
}

// authorizedMiddleware blocks requests whose session has not passed the
// access gate.
func authorizedMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			sess, err := getContextSession(ctx)
			if err != nil {
				return errors.Wrap(err, "getting context session")
			}
			if !sess.Authorized {
				return errCourseAccessRequired
			}
			return next(ctx)
		}
	}
}
