package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/mirkobrombin/dnsforge/internal/config"
	"github.com/mirkobrombin/dnsforge/internal/dnsmasq"
	"github.com/mirkobrombin/dnsforge/internal/logger"
	"github.com/mirkobrombin/dnsforge/internal/middleware"
	"github.com/mirkobrombin/dnsforge/internal/tools"
)

// Server exposes the render/test/install pipeline over HTTP.
type Server struct {
	Installer  *dnsmasq.Installer
	ConfigFile string // persisted model
	Test       bool   // default for ?test= on install
	Logger     *logger.Logger

	startTime time.Time
}

// NewServer returns a Server backed by installer.
func NewServer(installer *dnsmasq.Installer, configFile string, test bool, log *logger.Logger) *Server {
	if log == nil {
		log = logger.Nop()
	}
	return &Server{
		Installer:  installer,
		ConfigFile: configFile,
		Test:       test,
		Logger:     log,
		startTime:  time.Now(),
	}
}

// SetupRoutes builds the API router. Requests that write the model or the
// resolver config are served one at a time.
func (s *Server) SetupRoutes() *mux.Router {
	router := mux.NewRouter()
	router.Use(middleware.LoggingMiddleware(s.Logger))
	api := router.PathPrefix("/api").Subrouter()
	api.Use(middleware.AuthMiddleware)

	api.HandleFunc("/config", s.getConfigHandler).Methods(http.MethodGet)
	api.HandleFunc("/config/{key}", s.getConfigKeyHandler).Methods(http.MethodGet)
	api.HandleFunc("/dnsmasq/render", s.renderHandler).Methods(http.MethodGet)
	api.HandleFunc("/dnsmasq/line/{n:[0-9]+}", s.lineHandler).Methods(http.MethodGet)
	api.HandleFunc("/status", s.statusHandler).Methods(http.MethodGet)

	exclusive := middleware.ConcurrencyMiddleware(1)
	api.Handle("/config/{key}", exclusive(http.HandlerFunc(s.setConfigKeyHandler))).Methods(http.MethodPut)
	api.Handle("/config/{key}", exclusive(http.HandlerFunc(s.appendConfigKeyHandler))).Methods(http.MethodPost)
	api.Handle("/dnsmasq/test", exclusive(http.HandlerFunc(s.testHandler))).Methods(http.MethodPost)
	api.Handle("/dnsmasq/install", exclusive(http.HandlerFunc(s.installHandler))).Methods(http.MethodPost)
	api.Handle("/dnsmasq/import-legacy", exclusive(http.HandlerFunc(s.importLegacyHandler))).Methods(http.MethodPost)
	return router
}

// ListenAddr returns the address the API listens on. Without a configured
// account or token only loopback is served.
func ListenAddr(acc *config.AccountConfig, port int) string {
	if acc == nil || (acc.APIToken == "" && (acc.Username == "" || acc.PasswordHash == "")) {
		return fmt.Sprintf("127.0.0.1:%d", port)
	}
	return fmt.Sprintf(":%d", port)
}

// ListenAndServe serves the API on port until the listener fails.
func (s *Server) ListenAndServe(port int) error {
	var acc *config.AccountConfig
	if config.GlobalConf != nil {
		acc = &config.GlobalConf.Account
	}
	addr := ListenAddr(acc, port)
	if strings.HasPrefix(addr, "127.0.0.1:") {
		s.Logger.Warnf("[API] No account or token configured, listening on loopback only")
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.SetupRoutes(),
		ReadHeaderTimeout: tools.TimeDurationOrDefault(10),
		IdleTimeout:       tools.TimeDurationOrDefault(0),
	}
	s.Logger.Infof("[API] Listening on %s", addr)
	return srv.ListenAndServe()
}
