// Package web serves the dashboard: portfolio and trade-log tables, manual
// trade forms, config and scheduler pages, and a JSON API. Mutating pages
// sit behind a single-user session login.
package web

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"

	"github.com/rustyeddy/folio/broker"
	"github.com/rustyeddy/folio/ledger"
	"github.com/rustyeddy/folio/portfolio"
	"github.com/rustyeddy/folio/sched"
)

// Config wires the server to the rest of the system.
type Config struct {
	Host string
	Port int

	Engine    *portfolio.Engine
	Snapshots *ledger.SnapshotStore
	Trades    *ledger.TradeLog
	Audit     *ledger.Audit
	Broker    broker.Broker
	Scheduler *sched.Scheduler

	ConfigPath string
	EnvPath    string
	StatusPath string

	// Credentials for the single dashboard user. Empty means the
	// mutating pages are unreachable.
	Username string
	Password string

	Log zerolog.Logger
}

// Server is the dashboard HTTP server.
type Server struct {
	router   *chi.Mux
	server   *http.Server
	log      zerolog.Logger
	sessions *sessionStore

	engine    *portfolio.Engine
	snapshots *ledger.SnapshotStore
	trades    *ledger.TradeLog
	audit     *ledger.Audit
	broker    broker.Broker
	scheduler *sched.Scheduler

	configPath string
	envPath    string
	statusPath string
	username   string
	password   string
}

// New builds the server and its routes.
func New(cfg Config) *Server {
	s := &Server{
		router:     chi.NewRouter(),
		log:        cfg.Log.With().Str("component", "web").Logger(),
		sessions:   newSessionStore(),
		engine:     cfg.Engine,
		snapshots:  cfg.Snapshots,
		trades:     cfg.Trades,
		audit:      cfg.Audit,
		broker:     cfg.Broker,
		scheduler:  cfg.Scheduler,
		configPath: cfg.ConfigPath,
		envPath:    cfg.EnvPath,
		statusPath: cfg.StatusPath,
		username:   cfg.Username,
		password:   cfg.Password,
	}

	s.setupMiddleware()
	s.setupRoutes()

	s.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recoverer)
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.loggingMiddleware)
	s.router.Use(middleware.Timeout(60 * time.Second))
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))
}

func (s *Server) setupRoutes() {
	s.router.Get("/health", s.handleHealth)

	s.router.Get("/", s.handlePortfolio)
	s.router.Get("/log", s.handleLog)
	s.router.Get("/summary", s.handleSummary)
	s.router.Get("/overview", s.handleOverview)
	s.router.Get("/status", s.handleStatus)

	s.router.Get("/login", s.handleLoginForm)
	s.router.Post("/login", s.handleLogin)
	s.router.Get("/logout", s.handleLogout)

	// Mutating pages require login.
	s.router.Group(func(r chi.Router) {
		r.Use(s.requireAuth)
		r.Get("/portfolio/edit", s.handleEditForm)
		r.Post("/portfolio/edit", s.handleEdit)
		r.Get("/config", s.handleConfigForm)
		r.Post("/config", s.handleConfigSave)
		r.Get("/scheduler", s.handleSchedulerForm)
		r.Post("/scheduler", s.handleSchedulerSave)
		r.Get("/manual/buy", s.handleBuyForm)
		r.Post("/manual/buy", s.handleBuy)
		r.Get("/manual/sell", s.handleSellForm)
		r.Post("/manual/sell", s.handleSell)
		r.Get("/paper", s.handlePaperForm)
		r.Post("/paper", s.handlePaperTrade)
	})

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/portfolio", s.handleAPIPortfolio)
		r.Get("/log", s.handleAPILog)
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Start serves until the listener fails or Shutdown is called.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.server.Addr).Msg("starting dashboard")
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("shutting down dashboard")
	return s.server.Shutdown(ctx)
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration_ms", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("http request")
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
