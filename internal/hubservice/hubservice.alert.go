// FilePath: internal/hubservice/hubservice.alert.go
package hubservice

import (
	"context"
	"time"

	"github.com/ateliersud/iothub/internal/alerting"
	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// AlertService handles alert lifecycle commands and queries
type AlertService interface {
	AcknowledgeAlert(ctx context.Context, alertID, comment string) (*models.Alert, error)
	ResolveAlert(ctx context.Context, alertID, comment string) (*models.Alert, error)
	GetAlert(ctx context.Context, alertID string) (*models.Alert, error)
	GetAlertWithContext(ctx context.Context, alertID string) (*models.AlertWithContext, error)
	ListAlerts(ctx context.Context, filters models.AlertFilters, page, limit int) (int64, []*models.Alert, error)
}

// AcknowledgeAlert marks an active alert as seen by an operator.
// Acknowledging an alert that is no longer active is a safe no-op, so
// operator retries never error.
func (s *HubService) AcknowledgeAlert(ctx context.Context, alertID, comment string) (*models.Alert, error) {
	alert, err := s.Alerts.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(alert.SensorID)
	defer s.locks.Unlock(alert.SensorID)

	alert, err = s.Alerts.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if !alerting.Acknowledge(alert, comment, time.Now()) {
		nuts.L.Infof("[AlertService] Acknowledge on alert %s ignored (status %s)", alertID, alert.Status)
		return alert, nil
	}

	if err := s.Alerts.Update(ctx, alert); err != nil {
		return nil, err
	}

	nuts.L.Infof("[AlertService] Alert %s acknowledged", alertID)
	s.emit("alert.acknowledged", alertID)
	return alert, nil
}

// ResolveAlert closes an alert manually. Resolving an already-resolved
// alert is a safe no-op.
func (s *HubService) ResolveAlert(ctx context.Context, alertID, comment string) (*models.Alert, error) {
	alert, err := s.Alerts.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}

	s.locks.Lock(alert.SensorID)
	defer s.locks.Unlock(alert.SensorID)

	alert, err = s.Alerts.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}

	if !alerting.Resolve(alert, comment, time.Now()) {
		nuts.L.Infof("[AlertService] Resolve on alert %s ignored (status %s)", alertID, alert.Status)
		return alert, nil
	}

	if err := s.Alerts.Update(ctx, alert); err != nil {
		return nil, err
	}

	nuts.L.Infof("[AlertService] Alert %s resolved", alertID)
	s.emit("alert.resolved", alertID)
	return alert, nil
}

// GetAlert returns a single alert
func (s *HubService) GetAlert(ctx context.Context, alertID string) (*models.Alert, error) {
	return s.Alerts.Get(ctx, alertID)
}

// GetAlertWithContext returns an alert together with its sensor and
// originating threshold, fully populated. A vanished threshold is
// reported as nil rather than an error so alert history stays readable.
func (s *HubService) GetAlertWithContext(ctx context.Context, alertID string) (*models.AlertWithContext, error) {
	alert, err := s.Alerts.Get(ctx, alertID)
	if err != nil {
		return nil, err
	}

	sensor, err := s.Devices.Get(ctx, alert.SensorID)
	if err != nil {
		return nil, err
	}

	threshold, err := s.Thresholds.Get(ctx, alert.ThresholdID)
	if err != nil {
		if !errors.IsNotFound(err) {
			return nil, err
		}
		nuts.L.Warnf("[AlertService] Threshold %s for alert %s no longer exists", alert.ThresholdID, alertID)
		threshold = nil
	}

	return &models.AlertWithContext{
		Alert:     alert,
		Sensor:    sensor,
		Threshold: threshold,
	}, nil
}

// ListAlerts returns alerts matching the filters
func (s *HubService) ListAlerts(ctx context.Context, filters models.AlertFilters, page, limit int) (int64, []*models.Alert, error) {
	return s.Alerts.List(ctx, filters, page, limit)
}
