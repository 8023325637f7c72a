// Package server provides the HTTP server and routing for VoltSurf.
package server

import (
	"context"
	"fmt"
	"net/http"
	"runtime"
	"time"

	"github.com/aristath/voltsurf/internal/config"
	"github.com/aristath/voltsurf/internal/database"
	"github.com/aristath/voltsurf/internal/modules/calculations"
	"github.com/aristath/voltsurf/internal/modules/factors"
	"github.com/aristath/voltsurf/internal/modules/history"
	historyhandlers "github.com/aristath/voltsurf/internal/modules/history/handlers"
	"github.com/aristath/voltsurf/internal/modules/optimization"
	optimizationhandlers "github.com/aristath/voltsurf/internal/modules/optimization/handlers"
	"github.com/aristath/voltsurf/internal/modules/simulation"
	simulationhandlers "github.com/aristath/voltsurf/internal/modules/simulation/handlers"
	"github.com/aristath/voltsurf/internal/modules/strategy"
	strategyhandlers "github.com/aristath/voltsurf/internal/modules/strategy/handlers"
	"github.com/aristath/voltsurf/internal/modules/surface"
	surfacehandlers "github.com/aristath/voltsurf/internal/modules/surface/handlers"
	"github.com/aristath/voltsurf/internal/modules/universe"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
)

// surfaceSeed is the PCG seed used for synthetic surface generation in
// the HTTP service. A fixed seed keeps synthetic surfaces stable across
// restarts so repeated requests for the same symbol agree.
const surfaceSeed uint64 = 20240115

// Config holds the dependencies the server needs.
type Config struct {
	Cfg       *config.Config
	HistoryDB *database.DB
	CacheDB   *database.DB
	Log       zerolog.Logger
}

// Server wraps the HTTP server and router.
type Server struct {
	router *chi.Mux
	server *http.Server
	cfg    *config.Config
	log    zerolog.Logger

	systemHandlers *SystemHandlers
}

// New creates a new HTTP server, wires the module services, and
// registers all routes.
func New(cfg Config) (*Server, error) {
	log := cfg.Log.With().Str("component", "server").Logger()

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg.Cfg,
		log:    log,
	}

	// Core analytics services
	builder := surface.NewBuilder(surface.DefaultBuilderConfig(cfg.Cfg.RiskFreeRate), surfaceSeed, cfg.Log)
	engine := factors.NewEngine(factors.DefaultEngineConfig(cfg.Cfg.RiskFreeRate), cfg.Log)
	selector := universe.NewSelector(cfg.Log)
	optimizer := optimization.NewOptimizer(cfg.Log)

	numWorkers := runtime.NumCPU()
	if numWorkers < 2 {
		numWorkers = 2
	}
	simulator := simulation.NewEngine(numWorkers, cfg.Log)

	// Supporting infrastructure
	histDB, err := history.New(cfg.HistoryDB.Conn(), cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize history store: %w", err)
	}
	cache, err := calculations.NewCache(cfg.CacheDB.Conn())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize calculation cache: %w", err)
	}

	svc := strategy.NewService(builder, engine, selector, optimizer, simulator, histDB, cache, cfg.Log)

	s.systemHandlers = NewSystemHandlers(cfg.Log, cfg.Cfg.DataDir, cfg.HistoryDB, cfg.CacheDB)

	s.setupMiddleware(cfg.Cfg.DevMode)
	s.setupRoutes(builder, engine, optimizer, simulator, svc, histDB)

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Cfg.Port),
		Handler:      s.router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 300 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s, nil
}

func (s *Server) setupMiddleware(devMode bool) {
	// Recovery from panics
	s.router.Use(middleware.Recoverer)

	// Request ID
	s.router.Use(middleware.RequestID)

	// Real IP
	s.router.Use(middleware.RealIP)

	// Logging
	s.router.Use(s.loggingMiddleware)

	// CORS
	s.router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Compress responses
	if !devMode {
		s.router.Use(middleware.Compress(5))
	}
}

func (s *Server) setupRoutes(
	builder *surface.Builder,
	engine *factors.Engine,
	optimizer *optimization.Optimizer,
	simulator *simulation.Engine,
	svc *strategy.Service,
	histDB *history.DB,
) {
	// Health check
	s.router.Get("/health", s.systemHandlers.HandleHealth)
	s.router.Get("/api/v1/system/status", s.systemHandlers.HandleSystemStatus)

	// Module routes. Each module registers its own subtree under /api/v1.
	surfacehandlers.NewHandler(builder, engine, s.log).RegisterRoutes(s.router)
	optimizationhandlers.NewHandler(optimizer, s.log).RegisterRoutes(s.router)
	simulationhandlers.NewHandler(simulator, s.log).RegisterRoutes(s.router)
	strategyhandlers.NewHandler(svc, s.log).RegisterRoutes(s.router)
	historyhandlers.NewHandler(histDB, s.log).RegisterRoutes(s.router)
}

// Start begins listening for HTTP requests. It blocks until the server
// stops.
func (s *Server) Start() error {
	s.log.Info().Int("port", s.cfg.Port).Msg("Starting HTTP server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.log.Info().Msg("Shutting down HTTP server")
	return s.server.Shutdown(ctx)
}

// loggingMiddleware logs HTTP requests
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
			Msg("HTTP request")
	})
}
