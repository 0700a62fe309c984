// FilePath: api/resources/api.resource.alerts.go
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

// AlertHandlers encapsulates the alert-related HTTP handlers
type AlertHandlers struct {
	hubservice *hubservice.HubService
}

type alertCommentRequest struct {
	Comment string `json:"comment"`
}

// @Summary List alerts
// @Tags alerts
// @Produce json
// @Param sensor_id query string false "Sensor ID"
// @Param status query string false "Alert status (active|acknowledged|resolved)"
// @Param severity query string false "Severity (warning|alert)"
// @Param bound query string false "Bound kind (minimum|maximum)"
// @Success 200 {array} models.Alert
// @Router /alerts [get]
func (h *AlertHandlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	requestID := nuts.NID("req", 12)

	var filters models.AlertFilters
	if err := queryDecoder.Decode(&filters, r.URL.Query()); err != nil {
		respondWithError(w, errors.NewValidationError("invalid filter parameters", err).WithRequestID(requestID))
		return
	}

	page, limit := parsePagination(r)
	count, alerts, err := h.hubservice.ListAlerts(r.Context(), filters, page, limit)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"total":  count,
		"alerts": alerts,
	})
}

// @Summary Get an alert with its context
// @Description Returns the alert together with its sensor and originating threshold
// @Tags alerts
// @Produce json
// @Param id path string true "Alert ID"
// @Success 200 {object} models.AlertWithContext
// @Failure 404 {object} errors.APIError
// @Router /alerts/{id} [get]
func (h *AlertHandlers) GetAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	alert, err := h.hubservice.GetAlertWithContext(r.Context(), vars["id"])
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, alert)
}

// @Summary Acknowledge an alert
// @Description Idempotent: acknowledging a non-active alert is a no-op
// @Tags alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param body body alertCommentRequest false "Optional operator comment"
// @Success 200 {object} models.Alert
// @Failure 404 {object} errors.APIError
// @Router /alerts/{id}/acknowledge [post]
func (h *AlertHandlers) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	var req alertCommentRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	alert, err := h.hubservice.AcknowledgeAlert(r.Context(), vars["id"], req.Comment)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, alert)
}

// @Summary Resolve an alert
// @Description Idempotent: resolving an already-resolved alert is a no-op
// @Tags alerts
// @Accept json
// @Produce json
// @Param id path string true "Alert ID"
// @Param body body alertCommentRequest false "Optional operator comment"
// @Success 200 {object} models.Alert
// @Failure 404 {object} errors.APIError
// @Router /alerts/{id}/resolve [post]
func (h *AlertHandlers) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	requestID := nuts.NID("req", 12)

	var req alertCommentRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&req)
	}

	alert, err := h.hubservice.ResolveAlert(r.Context(), vars["id"], req.Comment)
	if err != nil {
		respondWithServiceError(w, err, requestID)
		return
	}

	respondWithJSON(w, http.StatusOK, alert)
}
