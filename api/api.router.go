// FilePath: api/api.router.go
package api

import (
	"net/http"

	"github.com/ateliersud/iothub/api/middleware"
	"github.com/ateliersud/iothub/api/resources"
	"github.com/ateliersud/iothub/internal/hubservice"
	"github.com/gorilla/mux"
)

type Router struct {
	router    *mux.Router
	resources *resources.Resources
}

func NewRouter(svc *hubservice.HubService) *Router {
	r := &Router{
		router:    mux.NewRouter(),
		resources: resources.NewResources(svc),
	}

	r.setupRoutes()
	return r
}

// Resources exposes the handler set so the server can attach the
// health and metrics endpoints after wiring.
func (r *Router) Resources() *resources.Resources {
	return r.resources
}

func (r *Router) setupRoutes() {
	r.router.Use(middleware.RequestID)
	r.router.Use(middleware.UserRoles)

	// API version prefix
	api := r.router.PathPrefix("/api/v1").Subrouter()

	// Operational endpoints
	api.HandleFunc("/health", func(w http.ResponseWriter, req *http.Request) {
		if r.resources.HealthCheck != nil {
			r.resources.HealthCheck(w, req)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)
	api.HandleFunc("/metrics", func(w http.ResponseWriter, req *http.Request) {
		if r.resources.Metrics != nil {
			r.resources.Metrics(w, req)
			return
		}
		w.WriteHeader(http.StatusOK)
	}).Methods(http.MethodGet)

	// Devices
	devices := api.PathPrefix("/devices").Subrouter()
	devices.HandleFunc("", r.resources.Devices.ListDevices).Methods(http.MethodGet)
	devices.HandleFunc("", r.resources.Devices.CreateDevice).Methods(http.MethodPost)
	devices.HandleFunc("/{id}", r.resources.Devices.GetDevice).Methods(http.MethodGet)
	devices.HandleFunc("/{id}", r.resources.Devices.UpdateDevice).Methods(http.MethodPut)
	devices.HandleFunc("/{id}", r.resources.Devices.DeleteDevice).Methods(http.MethodDelete)
	devices.HandleFunc("/{id}/status", r.resources.Devices.GetDeviceStatus).Methods(http.MethodGet)
	devices.HandleFunc("/{id}/state", r.resources.Devices.SetActuatorState).Methods(http.MethodPost)

	// Sensors: thresholds and readings hang off the owning sensor
	sensors := api.PathPrefix("/sensors").Subrouter()
	sensors.HandleFunc("/{sensorId}/thresholds", r.resources.Thresholds.ListThresholds).Methods(http.MethodGet)
	sensors.HandleFunc("/{sensorId}/thresholds", r.resources.Thresholds.CreateThreshold).Methods(http.MethodPost)
	sensors.HandleFunc("/{sensorId}/readings", r.resources.Readings.GetReadings).Methods(http.MethodGet)
	sensors.HandleFunc("/{sensorId}/readings", r.resources.Readings.IngestReading).Methods(http.MethodPost)
	sensors.HandleFunc("/{sensorId}/readings/aggregates", r.resources.Readings.GetReadingAggregates).Methods(http.MethodGet)

	// Thresholds
	thresholds := api.PathPrefix("/thresholds").Subrouter()
	thresholds.HandleFunc("/{id}", r.resources.Thresholds.GetThreshold).Methods(http.MethodGet)
	thresholds.HandleFunc("/{id}", r.resources.Thresholds.UpdateThreshold).Methods(http.MethodPut)
	thresholds.HandleFunc("/{id}/toggle", r.resources.Thresholds.ToggleThreshold).Methods(http.MethodPost)

	// Alerts
	alerts := api.PathPrefix("/alerts").Subrouter()
	alerts.HandleFunc("", r.resources.Alerts.ListAlerts).Methods(http.MethodGet)
	alerts.HandleFunc("/{id}", r.resources.Alerts.GetAlert).Methods(http.MethodGet)
	alerts.HandleFunc("/{id}/acknowledge", r.resources.Alerts.AcknowledgeAlert).Methods(http.MethodPost)
	alerts.HandleFunc("/{id}/resolve", r.resources.Alerts.ResolveAlert).Methods(http.MethodPost)

	// Edge ingestion
	api.HandleFunc("/edge/readings", r.resources.Readings.RecordReadings).Methods(http.MethodPost)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.router.ServeHTTP(w, req)
}
