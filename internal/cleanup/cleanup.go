package cleanup

import (
	"context"
	"fmt"
	"time"

	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// CleanupService coordinates deletion of a device and its dependent data
type CleanupService struct {
	devices    repository.DeviceRepository
	thresholds repository.ThresholdRepository
	alerts     repository.AlertRepository
	readings   repository.ReadingRepository
	events     *nuts.EventEmitter
}

// New creates a new CleanupService
func New(
	devices repository.DeviceRepository,
	thresholds repository.ThresholdRepository,
	alerts repository.AlertRepository,
	readings repository.ReadingRepository,
) *CleanupService {
	return &CleanupService{
		devices:    devices,
		thresholds: thresholds,
		alerts:     alerts,
		readings:   readings,
		events:     nuts.NewEventEmitter(),
	}
}

// DeleteDevice deletes a device and all its associated data. Sensors
// with open alerts are refused: thresholds referenced by an unresolved
// alert must not disappear underneath it.
func (s *CleanupService) DeleteDevice(ctx context.Context, deviceID string) error {
	device, err := s.devices.Get(ctx, deviceID)
	if err != nil {
		return err
	}

	if device.IsSensor() {
		openCount, err := s.alerts.CountOpenBySensor(ctx, deviceID)
		if err != nil {
			return err
		}
		if openCount > 0 {
			return errors.NewConflictError(
				fmt.Sprintf("sensor has %d unresolved alerts; resolve them before deletion", openCount), nil)
		}
	}

	// Start transaction on the app database
	tx, err := s.devices.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() // Will be ignored if transaction is committed

	if device.IsSensor() {
		if err := s.alerts.DeleteBySensor(ctx, deviceID, tx); err != nil {
			return fmt.Errorf("failed to delete alerts: %w", err)
		}
		s.emit("alerts.deleted", deviceID)

		if err := s.thresholds.DeleteBySensor(ctx, deviceID, tx); err != nil {
			return fmt.Errorf("failed to delete thresholds: %w", err)
		}
		s.emit("thresholds.deleted", deviceID)
	}

	if err := s.devices.DeleteWithData(ctx, deviceID, tx); err != nil {
		return fmt.Errorf("failed to delete device: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	// Readings live in the time-series database, outside the app
	// transaction; a failure here leaves orphaned rows that the
	// retention policy eventually drops.
	if device.IsSensor() {
		if err := s.readings.DeleteBySensor(ctx, deviceID); err != nil {
			nuts.L.Warnf("[Cleanup] Failed to delete readings for sensor %s: %v", deviceID, err)
		}
	}

	// Emit event after successful deletion
	s.emit("device.deleted", deviceID)
	return nil
}

// DeactivateDeviceThresholds turns off every active threshold of a
// sensor, used when a sensor is taken out of service without deletion.
func (s *CleanupService) DeactivateDeviceThresholds(ctx context.Context, sensorID string) error {
	active, err := s.thresholds.ListActiveBySensor(ctx, sensorID)
	if err != nil {
		return err
	}

	for _, threshold := range active {
		threshold.Active = false
		if err := s.thresholds.Update(ctx, threshold); err != nil {
			return fmt.Errorf("failed to deactivate threshold %s: %w", threshold.ID, err)
		}
	}

	if len(active) > 0 {
		nuts.L.Infof("[Cleanup] Deactivated %d thresholds for sensor %s", len(active), sensorID)
		s.emit("thresholds.deactivated", sensorID)
	}
	return nil
}

// PurgeOldReadings removes readings older than the cutoff
func (s *CleanupService) PurgeOldReadings(ctx context.Context, before time.Time) error {
	return s.readings.DeleteOld(ctx, before)
}

// OnCleanup registers a callback for cleanup events. The handler
// signature must stay in step with emit: the emitter matches listener
// parameters against the emitted arguments by type.
func (s *CleanupService) OnCleanup(event string, handler func(id string)) {
	if _, err := s.events.On(event, "cleanup_handler", handler); err != nil {
		nuts.L.Warnf("[Cleanup] Failed to register handler for %s: %v", event, err)
	}
}

// emit publishes a cleanup event carrying the affected entity's ID.
// Emission failures are logged, never propagated.
func (s *CleanupService) emit(event, id string) {
	if err := s.events.Emit(event, id); err != nil {
		nuts.L.Warnf("[Cleanup] Failed to emit %s for %s: %v", event, id, err)
	}
}
