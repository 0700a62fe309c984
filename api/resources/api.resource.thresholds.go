// FilePath: api/resources/api.resource.thresholds.go
package resources

import (
	"encoding/json"
	"net/http"

	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/hubservice"
	"github.com/ateliersud/iothub/internal/models"
	"github.com/gorilla/mux"
	nuts "github.com/vaudience/go-nuts"
)

// ThresholdHandlers encapsulates the threshold-related HTTP handlers
type ThresholdHandlers struct {
	hubservice *hubservice.HubService
}

type createThresholdRequest struct {
	Bound    models.BoundKind `json:"bound"`
	Severity models.Severity  `json:"severity"`
	Value    float64          `json:"value"`
	Active   bool             `json:"active"`
}

type updateThresholdRequest struct {
	Value  float64 `json:"value"`
	Active bool    `json:"active"`
}

// @Summary Create a threshold
// @Description Configure an alert threshold for a sensor. Activating it displaces any active threshold holding the same bound and severity.
// @Tags thresholds
// @Accept json
// @Produce json
// @Param sensorId path string true "Sensor ID"
// @Param threshold body createThresholdRequest true "Threshold details"
// @Success 201 {object} models.Threshold
// @Failure 400 {object} errors.APIError
// @Router /sensors/{sensorId}/thresholds [post]
func (h *ThresholdHandlers) CreateThreshold(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	var req createThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	threshold, err := h.hubservice.CreateThreshold(r.Context(), vars["sensorId"], req.Bound, req.Severity, req.Value, req.Active)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusCreated, threshold)
}

// @Summary List a sensor's thresholds
// @Tags thresholds
// @Produce json
// @Param sensorId path string true "Sensor ID"
// @Param active query bool false "Active thresholds only"
// @Param bound query string false "Filter by bound kind (minimum|maximum), implies active"
// @Success 200 {array} models.Threshold
// @Router /sensors/{sensorId}/thresholds [get]
func (h *ThresholdHandlers) ListThresholds(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)
	query := r.URL.Query()

	var thresholds []*models.Threshold
	var err error
	if bound := query.Get("bound"); bound != "" {
		thresholds, err = h.hubservice.ListActiveThresholdsByBound(r.Context(), vars["sensorId"], models.BoundKind(bound))
	} else {
		thresholds, err = h.hubservice.ListThresholds(r.Context(), vars["sensorId"], query.Get("active") == "true")
	}
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, thresholds)
}

// @Summary Get a threshold
// @Tags thresholds
// @Produce json
// @Param id path string true "Threshold ID"
// @Success 200 {object} models.Threshold
// @Failure 404 {object} errors.APIError
// @Router /thresholds/{id} [get]
func (h *ThresholdHandlers) GetThreshold(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	threshold, err := h.hubservice.GetThreshold(r.Context(), vars["id"])
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, threshold)
}

// @Summary Update a threshold
// @Description Change value and active flag. Activation is validated against the sensor's other active thresholds.
// @Tags thresholds
// @Accept json
// @Produce json
// @Param id path string true "Threshold ID"
// @Param threshold body updateThresholdRequest true "New value and active flag"
// @Success 200 {object} models.Threshold
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /thresholds/{id} [put]
func (h *ThresholdHandlers) UpdateThreshold(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	var req updateThresholdRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondWithError(w, errors.NewValidationError("invalid request body", err).WithRequestID(requestID))
		return
	}

	threshold, err := h.hubservice.UpdateThreshold(r.Context(), vars["id"], req.Value, req.Active)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, threshold)
}

// @Summary Toggle a threshold
// @Tags thresholds
// @Produce json
// @Param id path string true "Threshold ID"
// @Success 200 {object} models.Threshold
// @Failure 400 {object} errors.APIError
// @Failure 404 {object} errors.APIError
// @Router /thresholds/{id}/toggle [post]
func (h *ThresholdHandlers) ToggleThreshold(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	threshold, err := h.hubservice.ToggleThreshold(r.Context(), vars["id"])
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, threshold)
}
