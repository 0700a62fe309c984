// FilePath: internal/hubservice/hubservice.threshold.go
package hubservice

import (
	"context"
	"math"
	"time"

	"github.com/ateliersud/iothub/internal/alerting"
	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// ThresholdService handles alert threshold configuration
type ThresholdService interface {
	CreateThreshold(ctx context.Context, sensorID string, bound models.BoundKind, severity models.Severity, value float64, active bool) (*models.Threshold, error)
	UpdateThreshold(ctx context.Context, thresholdID string, value float64, active bool) (*models.Threshold, error)
	ToggleThreshold(ctx context.Context, thresholdID string) (*models.Threshold, error)
	GetThreshold(ctx context.Context, thresholdID string) (*models.Threshold, error)
	ListThresholds(ctx context.Context, sensorID string, activeOnly bool) ([]*models.Threshold, error)
}

// CreateThreshold creates a threshold for a sensor. When the new
// threshold is active it must pass the coherence rules, and it takes
// over the (bound, severity) slot from any current active holder.
func (s *HubService) CreateThreshold(ctx context.Context, sensorID string, bound models.BoundKind, severity models.Severity, value float64, active bool) (*models.Threshold, error) {
	if !bound.Valid() {
		return nil, errors.NewValidationError("unknown bound kind", nil)
	}
	if !severity.Valid() {
		return nil, errors.NewValidationError("unknown severity", nil)
	}
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, errors.NewValidationError("threshold value must be a finite number", nil)
	}

	exists, err := s.Devices.SensorExists(ctx, sensorID)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, errors.NewNotFoundError("sensor not found", nil)
	}

	s.locks.Lock(sensorID)
	defer s.locks.Unlock(sensorID)

	now := time.Now()
	threshold := &models.Threshold{
		ID:        nuts.NID("th", 12),
		SensorID:  sensorID,
		Bound:     bound,
		Severity:  severity,
		Value:     value,
		Active:    active,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.applyActivation(ctx, threshold); err != nil {
		return nil, err
	}

	if err := s.Thresholds.Create(ctx, threshold); err != nil {
		return nil, err
	}

	nuts.L.Infof("[ThresholdService] Created %s/%s threshold %s at %g for sensor %s (active=%t)",
		bound, severity, threshold.ID, value, sensorID, active)
	return threshold, nil
}

// UpdateThreshold changes a threshold's value and active flag. The same
// validation entry point covers updating an inactive threshold into an
// active one.
func (s *HubService) UpdateThreshold(ctx context.Context, thresholdID string, value float64, active bool) (*models.Threshold, error) {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return nil, errors.NewValidationError("threshold value must be a finite number", nil)
	}

	threshold, err := s.Thresholds.Get(ctx, thresholdID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(threshold.SensorID)
	defer s.locks.Unlock(threshold.SensorID)

	// Re-read inside the lock; another activation may have landed.
	threshold, err = s.Thresholds.Get(ctx, thresholdID)
	if err != nil {
		return nil, err
	}

	threshold.Value = value
	threshold.Active = active
	threshold.UpdatedAt = time.Now()

	if err := s.applyActivation(ctx, threshold); err != nil {
		return nil, err
	}

	if err := s.Thresholds.Update(ctx, threshold); err != nil {
		return nil, err
	}

	nuts.L.Infof("[ThresholdService] Updated threshold %s to %g (active=%t)", thresholdID, value, active)
	return threshold, nil
}

// ToggleThreshold flips a threshold's active flag
func (s *HubService) ToggleThreshold(ctx context.Context, thresholdID string) (*models.Threshold, error) {
	threshold, err := s.Thresholds.Get(ctx, thresholdID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(threshold.SensorID)
	defer s.locks.Unlock(threshold.SensorID)

	threshold, err = s.Thresholds.Get(ctx, thresholdID)
	if err != nil {
		return nil, err
	}

	threshold.Active = !threshold.Active
	threshold.UpdatedAt = time.Now()

	if err := s.applyActivation(ctx, threshold); err != nil {
		return nil, err
	}

	if err := s.Thresholds.Update(ctx, threshold); err != nil {
		return nil, err
	}

	nuts.L.Infof("[ThresholdService] Toggled threshold %s (active=%t)", thresholdID, threshold.Active)
	return threshold, nil
}

// GetThreshold returns a single threshold
func (s *HubService) GetThreshold(ctx context.Context, thresholdID string) (*models.Threshold, error) {
	return s.Thresholds.Get(ctx, thresholdID)
}

// ListThresholds returns a sensor's thresholds, optionally active only
func (s *HubService) ListThresholds(ctx context.Context, sensorID string, activeOnly bool) ([]*models.Threshold, error) {
	if activeOnly {
		return s.Thresholds.ListActiveBySensor(ctx, sensorID)
	}
	return s.Thresholds.ListBySensor(ctx, sensorID)
}

// ListActiveThresholdsByBound returns a sensor's active thresholds for
// one bound kind
func (s *HubService) ListActiveThresholdsByBound(ctx context.Context, sensorID string, bound models.BoundKind) ([]*models.Threshold, error) {
	if !bound.Valid() {
		return nil, errors.NewValidationError("unknown bound kind", nil)
	}
	return s.Thresholds.GetActiveBySensorAndBound(ctx, sensorID, bound)
}

// applyActivation runs the coherence rules for an active candidate and
// deactivates whatever threshold it displaces, inside the caller's
// sensor lock so validation cannot race a concurrent evaluation.
func (s *HubService) applyActivation(ctx context.Context, candidate *models.Threshold) error {
	active, err := s.Thresholds.ListActiveBySensor(ctx, candidate.SensorID)
	if err != nil {
		return err
	}

	check, err := alerting.CheckActivation(candidate, active)
	if err != nil {
		return err
	}

	now := time.Now()
	for _, displaced := range check.Displaced {
		displaced.Active = false
		displaced.UpdatedAt = now
		if err := s.Thresholds.Update(ctx, displaced); err != nil {
			return err
		}
		nuts.L.Infof("[ThresholdService] Deactivated threshold %s, displaced by %s", displaced.ID, candidate.ID)
		s.emit("threshold.displaced", displaced.ID)
	}
	return nil
}
