package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/trezcool/gradeledger/core"
	"github.com/trezcool/gradeledger/core/extraction"
	"github.com/trezcool/gradeledger/core/ledger"
)

type (
	ServerDeps struct {
		Conf       *core.Config
		Logger     core.Logger
		LedgerSvc  *ledger.Service
		Recognizer extraction.Recognizer // optional: uploads fail with a bad-credentials failure without one
		Validate   *validator.Validate
		Translator ut.Translator
		Registry   *prometheus.Registry // optional: a fresh registry is used without one
	}

	Server struct {
		app      *echo.Echo
		address  string
		errors   chan error
		shutdown chan os.Signal
		metrics  *metrics
	}
)

func NewServer(deps ServerDeps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.LedgerSvc, "LedgerSvc"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
	).CheckAndPanic()

	if deps.Registry == nil {
		deps.Registry = prometheus.NewRegistry()
	}

	s := &Server{
		app:      echo.New(),
		address:  deps.Conf.Server.Host,
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
		metrics:  newMetrics(deps.Registry),
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup(deps)
	return s
}

func (s *Server) setup(deps ServerDeps) {
	conf := deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.metrics.middleware)

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(deps.Logger, deps.Translator, s.metrics, s.signalShutdown)
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", home(conf.AppName))
	s.app.GET("/metrics", echo.WrapHandler(s.metrics.handler()))

	v1 := s.app.Group("/v1")
	auth := newAuthenticator(conf)
	registerLedgerAPI(v1, auth, deps, s.metrics)
}

// Start listens until the server is shut down. Listening errors are sent to Errors.
func (s *Server) Start() {
	if err := s.app.Start(s.address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	signal.Stop(s.shutdown)
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func home(appName string) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		return ctx.String(http.StatusOK, "Welcome to "+appName+" API!")
	}
}
