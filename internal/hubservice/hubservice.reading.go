// FilePath: internal/hubservice/hubservice.reading.go
package hubservice

import (
	"context"
	"time"

	"github.com/ateliersud/iothub/internal/alerting"
	"github.com/ateliersud/iothub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

// ReadingService handles reading ingestion and history
type ReadingService interface {
	IngestReading(ctx context.Context, sensorID string, value float64, timestamp time.Time, kind models.ReadingKind) (*alerting.EvaluationResult, error)
	GetReadings(ctx context.Context, sensorID string, start, end time.Time) ([]models.Reading, error)
	GetReadingAggregates(ctx context.Context, sensorID string, start, end time.Time, interval string) ([]models.ReadingAggregate, error)
}

// IngestReading records one reading and runs it through the alerting
// engine. Evaluation for a sensor is serialized: two readings for the
// same sensor never evaluate concurrently, which is what keeps the
// one-active-alert-per-threshold guarantee intact.
func (s *HubService) IngestReading(ctx context.Context, sensorID string, value float64, timestamp time.Time, kind models.ReadingKind) (*alerting.EvaluationResult, error) {
	if timestamp.IsZero() {
		timestamp = time.Now()
	}
	if kind == "" {
		kind = models.ReadingAutomatic
	}

	reading := &models.Reading{
		ID:        nuts.NID("rd", 12),
		SensorID:  sensorID,
		Value:     value,
		Timestamp: timestamp,
		Kind:      kind,
	}

	s.locks.Lock(sensorID)
	defer s.locks.Unlock(sensorID)

	// The engine validates the sensor and the value before touching
	// any alert, so a rejected reading leaves no trace.
	result, err := s.engine.Evaluate(ctx, sensorID, reading)
	if err != nil {
		return nil, err
	}

	if err := s.Readings.Insert(ctx, reading); err != nil {
		return nil, err
	}

	// Bookkeeping failures must not fail the ingest.
	if err := s.Devices.UpdateLastReading(ctx, sensorID, value, timestamp); err != nil {
		nuts.L.Warnf("[ReadingService] Failed to update sensor last reading: %v", err)
	}
	s.refreshStatusCache(ctx, sensorID, reading)

	for _, alert := range result.Opened {
		s.emit("alert.opened", alert.ID)
	}
	for _, alert := range result.Resolved {
		s.emit("alert.resolved", alert.ID)
	}

	return result, nil
}

// GetReadings returns raw readings for a sensor in a time range
func (s *HubService) GetReadings(ctx context.Context, sensorID string, start, end time.Time) ([]models.Reading, error) {
	return s.Readings.GetRange(ctx, sensorID, start, end)
}

// GetReadingAggregates returns bucketed statistics for a sensor
func (s *HubService) GetReadingAggregates(ctx context.Context, sensorID string, start, end time.Time, interval string) ([]models.ReadingAggregate, error) {
	return s.Readings.GetAggregates(ctx, sensorID, start, end, interval)
}

func (s *HubService) refreshStatusCache(ctx context.Context, sensorID string, reading *models.Reading) {
	if s.Status == nil {
		return
	}

	if err := s.Status.SetLatestReading(ctx, reading); err != nil {
		nuts.L.Warnf("[ReadingService] Failed to cache latest reading for sensor %s: %v", sensorID, err)
	}

	count, err := s.Alerts.CountOpenBySensor(ctx, sensorID)
	if err != nil {
		nuts.L.Warnf("[ReadingService] Failed to count open alerts for sensor %s: %v", sensorID, err)
		return
	}
	if err := s.Status.SetOpenAlertCount(ctx, sensorID, count); err != nil {
		nuts.L.Warnf("[ReadingService] Failed to cache alert count for sensor %s: %v", sensorID, err)
	}
}
