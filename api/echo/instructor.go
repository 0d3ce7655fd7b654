package echoapi

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/pkg/errors"
)

// instructorApi is the small instructor-only surface: PIN login and roster
// cache control. It is disabled entirely when no PIN is configured.
type instructorApi struct {
	deps ServerDeps
}

func registerInstructorAPI(g *echo.Group, deps ServerDeps) {
	api := instructorApi{deps: deps}

	ig := g.Group("/instructor")
	ig.POST("/login", api.login)

	jwt := middleware.JWTWithConfig(instructorJWTConfig(deps.Conf))
	ag := ig.Group("", jwt)
	ag.GET("/roster", api.rosterStatus)
	ag.POST("/roster/refresh", api.refreshRoster)
}

func (api *instructorApi) login(ctx echo.Context) error {
	if api.deps.Conf.InstructorPIN == "" { // not configured: treat as disabled
		return errHttpNotFound
	}

	var data InstructorLoginRequest
	if err := ctx.Bind(&data); err != nil {
		return errors.Wrap(err, "binding to InstructorLoginRequest")
	}
	if err := data.Validate(api.deps.Validate); err != nil {
		return err
	}

	if !verifyPIN(api.deps.Conf.InstructorPIN, data.PIN) {
		return errPINRequired
	}

	token, err := generateToken(api.deps.Conf, newInstructorClaims(api.deps.Conf))
	if err != nil {
		return errors.Wrap(err, "signing instructor token")
	}
	return ctx.JSON(http.StatusOK, echo.Map{"token": token})
}

// rosterStatus reports cache size and age only; raw roster emails never
// leave the server.
func (api *instructorApi) rosterStatus(ctx echo.Context) error {
	if _, err := api.deps.Rosters.Roster(); err != nil {
		return errors.Wrap(err, "loading roster")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"size":      api.deps.Rosters.Size(),
		"loaded_at": api.deps.Rosters.LoadedAt().Format(time.RFC3339),
	})
}

func (api *instructorApi) refreshRoster(ctx echo.Context) error {
	r, err := api.deps.Rosters.Refresh()
	if err != nil {
		return errors.Wrap(err, "refreshing roster")
	}
	return ctx.JSON(http.StatusOK, echo.Map{
		"size":      r.Len(),
		"loaded_at": api.deps.Rosters.LoadedAt().Format(time.RFC3339),
	})
}
