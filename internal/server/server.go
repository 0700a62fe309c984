// FilePath: internal/server/server.go
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/ateliersud/iothub/api"
	"github.com/ateliersud/iothub/internal/cache"
	"github.com/ateliersud/iothub/internal/config"
	"github.com/ateliersud/iothub/internal/database"
	"github.com/ateliersud/iothub/internal/hubservice"
	"github.com/ateliersud/iothub/internal/monitoring"
	"github.com/ateliersud/iothub/internal/repository/postgres"
	"github.com/ateliersud/iothub/internal/repository/timescale"
	"github.com/gorilla/handlers"
	nuts "github.com/vaudience/go-nuts"
)

// Server represents our HTTP server
type Server struct {
	config     *config.Config
	srv        *http.Server
	hubservice *hubservice.HubService
	monitoring *monitoring.Service
	appDB      database.DB
	tsdb       database.DB
	status     *cache.StatusCache
}

// New creates a new server instance
func New(cfg *config.Config) *Server {
	return &Server{
		config: cfg,
	}
}

// Start wires the service graph and begins listening for requests. It
// blocks until an interrupt signal arrives, then shuts down gracefully.
func (s *Server) Start() error {
	if err := s.initialize(); err != nil {
		return err
	}

	s.monitoring = monitoring.NewService(monitoring.Config{
		PrometheusEndpoint: s.config.Monitoring.PrometheusEndpoint,
	})
	s.setupEventHandlers()

	router := api.NewRouter(s.hubservice)
	router.Resources().SetHealthCheck(s.handleHealth())
	router.Resources().SetMetrics(s.handleMetrics())

	handler := handlers.RecoveryHandler(
		handlers.RecoveryLogger(recoveryLogger{}),
	)(handlers.CORS(
		handlers.AllowedOrigins(s.config.Server.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete}),
		handlers.AllowedHeaders([]string{"Content-Type", "X-Request-ID", "X-User-Roles"}),
	)(router))

	s.srv = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port),
		Handler:      handler,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
	}

	go func() {
		nuts.L.Infof("[Server] Starting server on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			nuts.L.Errorf("[Server] Error starting server: %v", err)
			os.Exit(1)
		}
	}()

	return s.waitForShutdown()
}

// initialize connects the databases and the cache and builds the hub
// service on top of them.
func (s *Server) initialize() error {
	appDB, err := database.NewPostgresDB(s.config.Database.AppDB)
	if err != nil {
		return fmt.Errorf("failed to connect to app database: %w", err)
	}
	s.appDB = appDB

	tsdb, err := database.NewTimescaleDB(s.config.Database.TimescaleDB)
	if err != nil {
		return fmt.Errorf("failed to connect to timescale database: %w", err)
	}
	s.tsdb = tsdb

	// The status cache is optional: a hub without redis keeps working,
	// it just answers status queries from the databases.
	status, err := cache.New(s.config.Redis)
	if err != nil {
		nuts.L.Warnf("[Server] Redis unavailable, status caching disabled: %v", err)
		status = nil
	}
	s.status = status

	devices := postgres.NewDeviceRepository(appDB)
	thresholds := postgres.NewThresholdRepository(appDB)
	alerts := postgres.NewAlertRepository(appDB)
	readings, err := timescale.NewReadingRepository(tsdb)
	if err != nil {
		return fmt.Errorf("failed to initialize reading repository: %w", err)
	}

	s.hubservice = hubservice.New(devices, thresholds, alerts, readings, status)
	return s.hubservice.Validate()
}

// waitForShutdown waits for interrupt signal and gracefully shuts down the server
func (s *Server) waitForShutdown() error {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	nuts.L.Infof("[Server] Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), s.config.Server.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("error shutting down server: %w", err)
	}

	s.closeConnections()

	nuts.L.Infof("[Server] Server shut down successfully")
	return nil
}

func (s *Server) closeConnections() {
	if s.status != nil {
		if err := s.status.Close(); err != nil {
			nuts.L.Warnf("[Server] Error closing redis connection: %v", err)
		}
	}
	if err := s.appDB.Close(); err != nil {
		nuts.L.Warnf("[Server] Error closing app database: %v", err)
	}
	if err := s.tsdb.Close(); err != nil {
		nuts.L.Warnf("[Server] Error closing timescale database: %v", err)
	}
}

// handleHealth pings both databases and reports the service version
func (s *Server) handleHealth() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status := "ok"
		code := http.StatusOK
		if err := s.appDB.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}
		if err := s.tsdb.Ping(r.Context()); err != nil {
			status = "degraded"
			code = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		w.Write([]byte(`{"status":"` + status + `","version":"` + nuts.GetVersion() + `"}`))
	}
}

// handleMetrics exposes the in-process event counters
func (s *Server) handleMetrics() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(s.monitoring.Counters())
	}
}

func (s *Server) setupEventHandlers() {
	// Alert lifecycle events
	s.hubservice.OnAlertEvent("alert.opened", func(id string) {
		nuts.L.Infof("[Alerting] Alert %s opened", id)
		s.monitoring.RecordEvent("alert_opened", map[string]string{
			"alert_id": id,
		})
	})
	s.hubservice.OnAlertEvent("alert.acknowledged", func(id string) {
		nuts.L.Infof("[Alerting] Alert %s acknowledged", id)
		s.monitoring.RecordEvent("alert_acknowledged", map[string]string{
			"alert_id": id,
		})
	})
	s.hubservice.OnAlertEvent("alert.resolved", func(id string) {
		nuts.L.Infof("[Alerting] Alert %s resolved", id)
		s.monitoring.RecordEvent("alert_resolved", map[string]string{
			"alert_id": id,
		})
	})
	s.hubservice.OnAlertEvent("threshold.displaced", func(id string) {
		nuts.L.Infof("[Alerting] Threshold %s deactivated by a newer activation", id)
		s.monitoring.RecordEvent("threshold_displaced", map[string]string{
			"threshold_id": id,
		})
	})

	// Cleanup events
	s.hubservice.Cleanup.OnCleanup("device.deleted", func(id string) {
		nuts.L.Infof("[Cleanup] Device %s and all associated data deleted", id)
		s.monitoring.RecordEvent("device_deletion", map[string]string{
			"device_id": id,
		})
	})
}

// recoveryLogger adapts the structured logger to the recovery handler
type recoveryLogger struct{}

func (recoveryLogger) Println(args ...interface{}) {
	nuts.L.Errorf("[Server] Panic recovered: %v", args)
}
