package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"precipwatch/internal/checker"
	"precipwatch/internal/config"
	"precipwatch/internal/types"
)

// CityStore is the server's view of the city repository.
type CityStore interface {
	Create(ctx context.Context, city *types.City) error
	GetByID(ctx context.Context, id string) (*types.City, error)
	List(ctx context.Context) ([]*types.City, error)
	Update(ctx context.Context, city *types.City) error
	Delete(ctx context.Context, id string) error
}

// AlertStore is the server's view of the alert repository.
type AlertStore interface {
	Create(ctx context.Context, alert *types.AlertConfig) error
	GetByID(ctx context.Context, id string) (*types.AlertConfig, error)
	List(ctx context.Context) ([]*types.AlertConfig, error)
	ListByCity(ctx context.Context, cityID string) ([]*types.AlertConfig, error)
	Update(ctx context.Context, alert *types.AlertConfig) error
	UpdateSnoozedUntil(ctx context.Context, id string, until *time.Time) error
	Delete(ctx context.Context, id string) error
}

// HistoryReader exposes the surfaced-notification log.
type HistoryReader interface {
	List(ctx context.Context, limit int) ([]*types.AlertHistory, error)
}

// SnapshotReader exposes the latest persisted forecast per coordinate.
type SnapshotReader interface {
	GetLatest(ctx context.Context, lat, lon float64) (*types.ForecastSnapshot, error)
}

// CycleRunner triggers a check cycle on demand.
type CycleRunner interface {
	Run(ctx context.Context) checker.Stats
}

// Server is the HTTP management API.
type Server struct {
	cfg       config.ServerConfig
	build     config.BuildInfo
	cities    CityStore
	alerts    AlertStore
	history   HistoryReader
	snapshots SnapshotReader
	cycle     CycleRunner
	zone      *time.Location
	clock     types.Clock
	logger    types.Logger

	httpServer *http.Server
}

// NewServer creates the management API server.
func NewServer(
	cfg config.ServerConfig,
	build config.BuildInfo,
	cities CityStore,
	alerts AlertStore,
	history HistoryReader,
	snapshots SnapshotReader,
	cycle CycleRunner,
	zone *time.Location,
	clock types.Clock,
	logger types.Logger,
) *Server {
	if zone == nil {
		zone = time.UTC
	}
	return &Server{
		cfg:       cfg,
		build:     build,
		cities:    cities,
		alerts:    alerts,
		history:   history,
		snapshots: snapshots,
		cycle:     cycle,
		zone:      zone,
		clock:     clock,
		logger:    logger,
	}
}

// Routes assembles the router with the standard middleware chain.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(Recoverer(s.logger))
	r.Use(RequestID)
	r.Use(RequestLogger(s.logger))

	r.Get("/healthz", s.handleHealth)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/cities", func(r chi.Router) {
			r.Get("/", s.handleListCities)
			r.Post("/", s.handleCreateCity)
			r.Route("/{cityID}", func(r chi.Router) {
				r.Get("/", s.handleGetCity)
				r.Put("/", s.handleUpdateCity)
				r.Delete("/", s.handleDeleteCity)
				r.Get("/alerts", s.handleListCityAlerts)
				r.Get("/forecast", s.handleGetCityForecast)
			})
		})

		r.Route("/alerts", func(r chi.Router) {
			r.Get("/", s.handleListAlerts)
			r.Post("/", s.handleCreateAlert)
			r.Route("/{alertID}", func(r chi.Router) {
				r.Get("/", s.handleGetAlert)
				r.Put("/", s.handleUpdateAlert)
				r.Delete("/", s.handleDeleteAlert)
				r.Post("/snooze", s.handleSnoozeAlert)
				r.Delete("/snooze", s.handleClearSnooze)
			})
		})

		r.Get("/history", s.handleListHistory)
		r.Post("/checks/run", s.handleRunCheck)
	})

	return r
}

// Start begins serving on the configured port. Blocks until the listener
// fails or Shutdown is called.
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Routes(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	s.logger.Info("management api listening", "port", s.cfg.Port)
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests until the context expires.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
