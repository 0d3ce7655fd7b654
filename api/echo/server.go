package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/kozihq/kozi/core"
	"github.com/kozihq/kozi/core/access"
	"github.com/kozihq/kozi/core/eventlog"
	"github.com/kozihq/kozi/core/roster"
	"github.com/kozihq/kozi/core/session"
	"github.com/kozihq/kozi/core/student"
	"github.com/kozihq/kozi/core/submission"
)

type ServerDeps struct {
	Conf        *core.Config
	Logger      core.Logger
	MailSvc     core.EmailService
	Sessions    session.Store
	Rosters     *roster.Store
	Gate        *access.Gate
	Registry    *student.Registry
	Submissions *submission.Store
	Events      *eventlog.Log
	Validate    *validator.Validate
	Translator  ut.Translator
}

type Server struct {
	deps ServerDeps
	app  *echo.Echo

	errCh      chan error
	shutdownCh chan os.Signal
}

func NewServer(deps ServerDeps) *Server {
	s := &Server{
		deps:       deps,
		app:        echo.New(),
		errCh:      make(chan error, 1),
		shutdownCh: make(chan os.Signal, 1),
	}
	signal.Notify(s.shutdownCh, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.TestMode {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps, s.signalShutdownNow)
	s.app.Debug = conf.Debug

	s.app.GET("/", home)

	v1 := s.app.Group("/v1", sessionMiddleware(s.deps))

	registerCourseAPI(v1, s.deps)
	registerInstructorAPI(v1, s.deps)
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Host); err != nil && err != http.ErrServerClosed {
		s.errCh <- err
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) Errors() <-chan error {
	return s.errCh
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdownCh
}

// signalShutdownNow is handed to the error handler so a caught
// core.shutdown error starts a graceful stop.
func (s *Server) signalShutdownNow() {
	s.shutdownCh <- syscall.SIGTERM
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to Kozi!")
}
