// FilePath: api/resources/api.resource.readings.go
package resources

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/hubservice"
	"github.com/ateliersud/iothub/internal/models"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// ReadingHandlers encapsulates the reading-related HTTP handlers
type ReadingHandlers struct {
	hubservice *hubservice.HubService
}

type ingestReadingRequest struct {
	Value     float64            `json:"value"`
	Timestamp time.Time          `json:"timestamp,omitempty"`
	Kind      models.ReadingKind `json:"kind,omitempty"`
}

type edgeReading struct {
	SensorID  string    `json:"sensor_id"`
	Value     float64   `json:"value"`
	Timestamp time.Time `json:"timestamp,omitempty"`
}

// @Summary Ingest a reading for a sensor
// @Description Records the reading and evaluates active thresholds; returns the alerts opened and resolved by it
// @Tags readings
// @Accept json
// @Produce json
// @Param sensorId path string true "Sensor ID"
// @Param reading body ingestReadingRequest true "Reading"
// @Success 201 {object} alerting.EvaluationResult
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /sensors/{sensorId}/readings [post]
func (h *ReadingHandlers) IngestReading(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	var req ingestReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	result, err := h.hubservice.IngestReading(r.Context(), vars["sensorId"], req.Value, req.Timestamp, req.Kind)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusCreated, result)
}

// @Summary Record readings from edge devices
// @Description Batch ingestion endpoint; readings that fail evaluation are skipped, not the whole batch
// @Tags readings
// @Accept json
// @Produce json
// @Param readings body []edgeReading true "Array of readings"
// @Success 201 {object} map[string]int
// @Failure 400 {object} errors.APIError
// @Router /edge/readings [post]
func (h *ReadingHandlers) RecordReadings(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var readings []edgeReading
	if err := json.NewDecoder(r.Body).Decode(&readings); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	accepted := 0
	for _, reading := range readings {
		_, err := h.hubservice.IngestReading(r.Context(), reading.SensorID, reading.Value, reading.Timestamp, models.ReadingAutomatic)
		if err != nil {
			nuts.L.Warnf("[ReadingHandler] Failed to ingest reading for sensor %s: %v", reading.SensorID, err)
			// Continue with other readings even if one fails
			continue
		}
		accepted++
	}

	respondWithJSON(w, http.StatusCreated, map[string]int{
		"accepted": accepted,
		"rejected": len(readings) - accepted,
	})
}

// @Summary Get raw readings for a sensor
// @Tags readings
// @Produce json
// @Param sensorId path string true "Sensor ID"
// @Param start query string false "Start time (RFC3339)"
// @Param end query string false "End time (RFC3339)"
// @Success 200 {array} models.Reading
// @Router /sensors/{sensorId}/readings [get]
func (h *ReadingHandlers) GetReadings(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	timeRange := parseTimeRange(r)
	readings, err := h.hubservice.GetReadings(r.Context(), vars["sensorId"], timeRange.start, timeRange.end)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, readings)
}

// @Summary Get aggregated readings for a sensor
// @Description Returns min/max/avg/count buckets for the requested interval
// @Tags readings
// @Produce json
// @Param sensorId path string true "Sensor ID"
// @Param start query string false "Start time (RFC3339)"
// @Param end query string false "End time (RFC3339)"
// @Param interval query string false "Aggregation interval (hour, day)"
// @Success 200 {array} models.ReadingAggregate
// @Router /sensors/{sensorId}/readings/aggregates [get]
func (h *ReadingHandlers) GetReadingAggregates(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	timeRange := parseTimeRange(r)
	interval := r.URL.Query().Get("interval")
	if interval == "" {
		interval = determineDefaultInterval(timeRange.start, timeRange.end)
	}

	aggregates, err := h.hubservice.GetReadingAggregates(r.Context(), vars["sensorId"], timeRange.start, timeRange.end, interval)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, aggregates)
}

// Helper functions and types

type timeRange struct {
	start time.Time
	end   time.Time
}

func parseTimeRange(r *http.Request) timeRange {
	query := r.URL.Query()
	now := time.Now()

	start := now.Add(-24 * time.Hour) // Default to last 24 hours
	if startStr := query.Get("start"); startStr != "" {
		if parsed, err := time.Parse(time.RFC3339, startStr); err == nil {
			start = parsed
		}
	}

	end := now
	if endStr := query.Get("end"); endStr != "" {
		if parsed, err := time.Parse(time.RFC3339, endStr); err == nil {
			end = parsed
		}
	}

	return timeRange{start: start, end: end}
}

func determineDefaultInterval(start, end time.Time) string {
	if end.Sub(start) <= 48*time.Hour {
		return "hour"
	}
	return "day"
}
