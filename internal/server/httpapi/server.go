// Package httpapi exposes the web and mobile HTTP endpoints.
package httpapi

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/bizdesk/internal/logging"
	"github.com/dmitrijs2005/bizdesk/internal/server/authz"
	"github.com/dmitrijs2005/bizdesk/internal/server/config"
	"github.com/dmitrijs2005/bizdesk/internal/server/ratelimit"
	"github.com/dmitrijs2005/bizdesk/internal/server/services"
	"github.com/dmitrijs2005/bizdesk/internal/server/session"
	"github.com/gorilla/mux"
)

// Rate limit channels.
const (
	ChannelLogin         = "login"
	ChannelRefresh       = "refresh"
	ChannelOTPSend       = "otp-send"
	ChannelOTPVerify     = "otp-verify"
	ChannelDownload      = "download"
	ChannelPasswordReset = "password-reset"
)

const shutdownTimeout = 10 * time.Second

// Deps are the collaborators the handlers call.
type Deps struct {
	Auth      *services.AuthService
	OTP       *services.OTPService
	Downloads *services.DownloadService
	Reset     *services.PasswordResetService
	Cookies   *session.CookieStore
	Gate      *authz.Gate
	Limiter   ratelimit.Limiter
	Limits    map[string]config.Limit
	Logger    logging.Logger
}

// LimitsFromConfig maps the configured limits onto the route channels.
func LimitsFromConfig(c *config.Config) map[string]config.Limit {
	return map[string]config.Limit{
		ChannelLogin:         c.LoginLimit,
		ChannelRefresh:       c.RefreshLimit,
		ChannelOTPSend:       c.OTPSendLimit,
		ChannelOTPVerify:     c.OTPVerifyLimit,
		ChannelDownload:      c.DownloadLimit,
		ChannelPasswordReset: c.PasswordResetLimit,
	}
}

type handler struct {
	Deps
	log logging.Logger
	now func() time.Time
}

// NewRouter registers every route on a fresh mux router.
func NewRouter(d Deps) *mux.Router {
	h := &handler{Deps: d, log: d.Logger.With("module", "http"), now: time.Now}

	r := mux.NewRouter()
	r.Use(h.logRequests)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
	})

	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()

	api.Handle("/mobile/login", h.limit(ChannelLogin, h.mobileLogin)).Methods(http.MethodPost)
	api.Handle("/mobile/refresh", h.limit(ChannelRefresh, h.mobileRefresh)).Methods(http.MethodPost)
	api.Handle("/session/login", h.limit(ChannelLogin, h.sessionLogin)).Methods(http.MethodPost)
	api.HandleFunc("/session/logout", h.sessionLogout).Methods(http.MethodPost)

	api.Handle("/otp/send", h.limit(ChannelOTPSend, h.otpSend)).Methods(http.MethodPost)
	api.Handle("/otp/verify", h.limit(ChannelOTPVerify, h.otpVerify)).Methods(http.MethodPost)

	api.Handle("/downloads/{id}/request", h.limit(ChannelDownload, h.downloadRequest)).Methods(http.MethodPost)
	api.Handle("/downloads/{id}/complete", h.limit(ChannelOTPVerify, h.downloadComplete)).Methods(http.MethodPost)

	api.Handle("/password-reset/request", h.limit(ChannelPasswordReset, h.resetRequest)).Methods(http.MethodPost)
	api.Handle("/password-reset/confirm", h.limit(ChannelOTPVerify, h.resetConfirm)).Methods(http.MethodPost)

	authed := api.PathPrefix("").Subrouter()
	authed.Use(d.Gate.Middleware(authz.Authenticated, false, h.writeError))
	authed.HandleFunc("/me", h.me).Methods(http.MethodGet)
	authed.HandleFunc("/mobile/logout", h.mobileLogout).Methods(http.MethodPost)

	admin := api.PathPrefix("/admin").Subrouter()
	admin.Use(d.Gate.Middleware(authz.Admin, true, h.writeError))
	admin.HandleFunc("/users/{id}", h.adminUser).Methods(http.MethodGet)

	return r
}

type Server struct {
	address string
	handler http.Handler
	logger  logging.Logger
}

func NewServer(address string, h http.Handler, l logging.Logger) *Server {
	return &Server{address: address, handler: h, logger: l.With("module", "http_server")}
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.serve(ctx, listen)
}

func (s *Server) serve(ctx context.Context, listen net.Listener) error {
	srv := &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Error(ctx, "http shutdown", "error", err)
		}
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", listen.Addr().String())

	if err := srv.Serve(listen); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	<-done
	return nil
}
