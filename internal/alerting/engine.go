// FilePath: internal/alerting/engine.go
package alerting

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/models"
	"github.com/ateliersud/iothub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// Engine evaluates incoming readings against a sensor's active
// thresholds: it opens alerts for new breaches, leaves already-open
// alerts untouched, and auto-resolves alerts whose own threshold has
// recovered. The engine holds no state of its own beyond its
// repository handles; callers serialize invocations per sensor.
type Engine struct {
	devices    repository.DeviceRepository
	thresholds repository.ThresholdRepository
	alerts     repository.AlertRepository
}

// EvaluationResult lists the alerts a single reading opened and resolved
type EvaluationResult struct {
	Opened   []*models.Alert `json:"opened"`
	Resolved []*models.Alert `json:"resolved"`
}

// NewEngine creates a new evaluation engine
func NewEngine(
	devices repository.DeviceRepository,
	thresholds repository.ThresholdRepository,
	alerts repository.AlertRepository,
) *Engine {
	return &Engine{
		devices:    devices,
		thresholds: thresholds,
		alerts:     alerts,
	}
}

// Evaluate runs one reading through the sensor's active thresholds and
// its currently open alerts. Breach detection and recovery detection
// run independently: each alert is compared against its *own*
// threshold's current value, which lets a warning and an alert on the
// same bound resolve at different readings.
func (e *Engine) Evaluate(ctx context.Context, sensorID string, reading *models.Reading) (*EvaluationResult, error) {
	if err := e.validateReading(ctx, sensorID, reading); err != nil {
		return nil, err
	}

	result := &EvaluationResult{
		Opened:   []*models.Alert{},
		Resolved: []*models.Alert{},
	}

	active, err := e.thresholds.ListActiveBySensor(ctx, sensorID)
	if err != nil {
		return nil, err
	}

	// Snapshot of open alerts before this reading creates new ones;
	// a reading that breaches a threshold can never also recover it.
	// Acknowledged alerts stay in the snapshot so recovery closes them
	// like any other open alert.
	openAlerts, err := e.alerts.ListOpenBySensor(ctx, sensorID)
	if err != nil {
		return nil, err
	}

	for _, threshold := range active {
		if !threshold.Breached(reading.Value) {
			continue
		}

		existing, err := e.alerts.GetOpenBySensorThresholdSeverity(ctx, sensorID, threshold.ID, threshold.Severity)
		if err != nil && !errors.IsNotFound(err) {
			return nil, err
		}
		if existing != nil {
			// Repeated breaching readings stay idempotent.
			continue
		}

		alert := newAlert(threshold, reading)
		if err := e.alerts.Create(ctx, alert); err != nil {
			return nil, err
		}
		nuts.L.Infof("[AlertEngine] Opened %s/%s alert %s for sensor %s (value %g vs threshold %g)",
			alert.Bound, alert.Severity, alert.ID, sensorID, reading.Value, threshold.Value)
		result.Opened = append(result.Opened, alert)
	}

	for _, alert := range openAlerts {
		threshold, err := e.thresholds.Get(ctx, alert.ThresholdID)
		if err != nil {
			// A dangling threshold reference must not block the
			// sensor's other alerts.
			nuts.L.Warnf("[AlertEngine] Skipping alert %s: threshold %s lookup failed: %v",
				alert.ID, alert.ThresholdID, err)
			continue
		}

		if !recovered(alert.Bound, threshold.Value, reading.Value) {
			continue
		}

		note := fmt.Sprintf("automatically resolved by reading %g at %s",
			reading.Value, reading.Timestamp.Format(time.RFC3339))
		if !Resolve(alert, note, time.Now()) {
			continue
		}
		if err := e.alerts.Update(ctx, alert); err != nil {
			return nil, err
		}
		nuts.L.Infof("[AlertEngine] Resolved %s/%s alert %s for sensor %s (value %g vs threshold %g)",
			alert.Bound, alert.Severity, alert.ID, sensorID, reading.Value, threshold.Value)
		result.Resolved = append(result.Resolved, alert)
	}

	return result, nil
}

// validateReading rejects readings for unknown sensors and non-finite
// values before any evaluation starts.
func (e *Engine) validateReading(ctx context.Context, sensorID string, reading *models.Reading) error {
	if math.IsNaN(reading.Value) || math.IsInf(reading.Value, 0) {
		return errors.NewValidationError("reading value must be a finite number", nil)
	}

	exists, err := e.devices.SensorExists(ctx, sensorID)
	if err != nil {
		return err
	}
	if !exists {
		return errors.NewNotFoundError("sensor not found", nil)
	}
	return nil
}

func recovered(bound models.BoundKind, thresholdValue, readingValue float64) bool {
	if bound == models.BoundMinimum {
		return readingValue >= thresholdValue
	}
	return readingValue <= thresholdValue
}

// newAlert builds the alert record for a fresh breach. Bound and
// severity are copied from the threshold so later edits don't rewrite
// the alert's history.
func newAlert(threshold *models.Threshold, reading *models.Reading) *models.Alert {
	direction := "below"
	if threshold.Bound == models.BoundMaximum {
		direction = "above"
	}

	now := time.Now()
	return &models.Alert{
		ID:          nuts.NID("al", 12),
		SensorID:    threshold.SensorID,
		ThresholdID: threshold.ID,
		Bound:       threshold.Bound,
		Severity:    threshold.Severity,
		Status:      models.AlertActive,
		Message: fmt.Sprintf("reading %g at %s is %s the %s %s threshold %g",
			reading.Value, reading.Timestamp.Format(time.RFC3339),
			direction, threshold.Bound, threshold.Severity, threshold.Value),
		CreatedAt: now,
		UpdatedAt: now,
	}
}
