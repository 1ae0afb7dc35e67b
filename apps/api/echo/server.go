package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/websocket"
	"github.com/kat-co/vala"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/matricula/core"
	"github.com/trezcool/matricula/core/document"
	"github.com/trezcool/matricula/core/notification"
	"github.com/trezcool/matricula/core/payment"
	"github.com/trezcool/matricula/core/profile"
	"github.com/trezcool/matricula/core/request"
	"github.com/trezcool/matricula/core/university"
	"github.com/trezcool/matricula/core/user"
	pushsvc "github.com/trezcool/matricula/services/push"
)

type (
	Deps struct {
		Conf            *core.Config
		Logger          core.Logger
		Validate        *validator.Validate
		Translator      ut.Translator
		UserSvc         *user.Service
		ProfileSvc      *profile.Service
		DocumentSvc     *document.Service
		PaymentSvc      *payment.Service
		RequestSvc      *request.Service
		NotificationSvc *notification.Service
		UniversitySvc   *university.Service
		Hub             *pushsvc.Hub
	}

	Server struct {
		deps     *Deps
		app      *echo.Echo
		auth     *authenticator
		upgrader websocket.Upgrader
		errors   chan error
		shutdown chan os.Signal
	}
)

func NewServer(deps *Deps) *Server {
	vala.BeginValidation().Validate(
		vala.IsNotNil(deps.Conf, "Conf"),
		vala.IsNotNil(deps.Logger, "Logger"),
		vala.IsNotNil(deps.Validate, "Validate"),
		vala.IsNotNil(deps.Translator, "Translator"),
		vala.IsNotNil(deps.UserSvc, "UserSvc"),
		vala.IsNotNil(deps.ProfileSvc, "ProfileSvc"),
		vala.IsNotNil(deps.DocumentSvc, "DocumentSvc"),
		vala.IsNotNil(deps.PaymentSvc, "PaymentSvc"),
		vala.IsNotNil(deps.RequestSvc, "RequestSvc"),
		vala.IsNotNil(deps.NotificationSvc, "NotificationSvc"),
		vala.IsNotNil(deps.UniversitySvc, "UniversitySvc"),
		vala.IsNotNil(deps.Hub, "Hub"),
	).CheckAndPanic()

	s := &Server{
		deps:     deps,
		app:      echo.New(),
		auth:     newAuthenticator(deps.Conf, deps.UserSvc),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.upgrader = websocket.Upgrader{
		// the browser app is served from another origin
		CheckOrigin: func(*http.Request) bool { return true },
	}
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !conf.Server.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORS())
	s.app.Use(middleware.BodyLimit(bodyLimit(conf.Storage.MaxUploadSize)))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.SignalShutdown)
	s.app.Debug = conf.Debug

	api := s.app.Group("/api")
	api.GET("", s.home)

	authed := api.Group("", s.auth.middleware)
	admin := authed.Group("/admin", adminMiddleware)

	registerAuthAPI(api, authed, s.auth, s.deps)
	registerUserAPI(admin, s.deps)
	registerProfileAPI(authed, admin, s.deps)
	registerDocumentAPI(authed, admin, s.deps)
	registerPaymentAPI(authed, admin, s.deps)
	registerRequestAPI(authed, admin, s.deps)
	registerNotificationAPI(authed, s.deps)
	registerUniversityAPI(authed, s.deps)
	registerReportAPI(admin, s.deps)

	// browsers cannot set headers on WebSocket handshakes
	api.GET("/ws", s.serveWS, s.auth.queryTokenMiddleware)
}

// bodyLimit leaves room for the multipart envelope around an upload.
func bodyLimit(maxUpload int64) string {
	if maxUpload <= 0 {
		return "10M"
	}
	mb := maxUpload>>20 + 1
	return strconv.FormatInt(mb, 10) + "M"
}

func (s *Server) Start() {
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

// Errors receives the error that made the server stop listening.
func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) SignalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, echo.Map{"message": "Bienvenido a " + s.deps.Conf.AppName + " API"})
}
