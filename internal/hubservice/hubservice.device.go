// FilePath: internal/hubservice/hubservice.device.go
package hubservice

import (
	"context"
	"time"

	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/models"
	"github.com/itsatony/struccy"
	nuts "github.com/vaudience/go-nuts"
)

// onlineWindow is how long after the last activity a device still
// counts as online.
const onlineWindow = 15 * time.Minute

// DeviceService handles device-related business logic
type DeviceService interface {
	CreateDevice(ctx context.Context, device *models.Device) error
	GetDevice(ctx context.Context, id string) (*models.Device, error)
	UpdateDevice(ctx context.Context, device *models.Device) error
	DeleteDevice(ctx context.Context, id string) error
	ListDevices(ctx context.Context, filters models.DeviceFilters, page, limit int) (int64, []*models.Device, error)
	GetDeviceStatus(ctx context.Context, id string) (*models.DeviceStatus, error)
	SetActuatorState(ctx context.Context, id, state string) error
}

// CreateDevice creates a new device with proper validation and initialization
func (s *HubService) CreateDevice(ctx context.Context, device *models.Device) error {
	if device.Name == "" {
		return errors.NewValidationError("device name is required", nil)
	}
	if !device.Kind.Valid() {
		return errors.NewValidationError("device kind must be sensor or actuator", nil)
	}
	if device.Kind == models.KindSensor && device.Sensor == nil {
		return errors.NewValidationError("sensor payload is required for sensor devices", nil)
	}
	if device.Kind == models.KindActuator && device.Actuator == nil {
		return errors.NewValidationError("actuator payload is required for actuator devices", nil)
	}

	if device.ID == "" {
		device.ID = nuts.NID("dv", 12)
	}

	now := time.Now()
	device.CreatedAt = now
	device.UpdatedAt = now
	device.LastSeen = now

	nuts.L.Infof("[DeviceService] Creating new %s: %s (%s)", device.Kind, device.Name, device.ID)
	return s.Devices.Create(ctx, device)
}

// GetDevice returns a single device
func (s *HubService) GetDevice(ctx context.Context, id string) (*models.Device, error) {
	return s.Devices.Get(ctx, id)
}

// UpdateDevice updates an existing device with role-based field access
func (s *HubService) UpdateDevice(ctx context.Context, device *models.Device) error {
	existing, err := s.Devices.Get(ctx, device.ID)
	if err != nil {
		return err
	}

	roles := GetUserRoles(ctx)
	updatedFields, _, err := struccy.UpdateStructFields(existing, device, roles, true, true)
	if err != nil {
		return errors.NewValidationError("unauthorized field update", err)
	}

	existing.UpdatedAt = time.Now()
	if err := s.Devices.Update(ctx, existing); err != nil {
		return err
	}

	nuts.L.Infof("[DeviceService] Updated device %s, fields: %v", device.ID, updatedFields)
	return nil
}

// DeleteDevice deletes a device and its dependent data via the cleanup
// service. Sensors with unresolved alerts are refused.
func (s *HubService) DeleteDevice(ctx context.Context, id string) error {
	return s.Cleanup.DeleteDevice(ctx, id)
}

// ListDevices returns devices matching the filters
func (s *HubService) ListDevices(ctx context.Context, filters models.DeviceFilters, page, limit int) (int64, []*models.Device, error) {
	return s.Devices.List(ctx, filters, page, limit)
}

// GetDeviceStatus builds the monitoring snapshot for a device. The
// status cache is consulted first; the time-series store is the
// fallback for sensors with a cold cache.
func (s *HubService) GetDeviceStatus(ctx context.Context, id string) (*models.DeviceStatus, error) {
	device, err := s.Devices.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	status := &models.DeviceStatus{
		Device:       device,
		LastActivity: lastActivity(device),
	}
	status.OnlineStatus = "offline"
	if time.Since(status.LastActivity) < onlineWindow {
		status.OnlineStatus = "online"
	}

	if !device.IsSensor() {
		return status, nil
	}

	status.LatestReading = s.latestReading(ctx, id)

	if s.Status != nil {
		if count, err := s.Status.GetOpenAlertCount(ctx, id); err == nil {
			status.OpenAlerts = count
			return status, nil
		}
	}
	count, err := s.Alerts.CountOpenBySensor(ctx, id)
	if err != nil {
		return nil, err
	}
	status.OpenAlerts = count

	return status, nil
}

// SetActuatorState records a state change for an actuator
func (s *HubService) SetActuatorState(ctx context.Context, id, state string) error {
	if state == "" {
		return errors.NewValidationError("actuator state is required", nil)
	}

	device, err := s.Devices.Get(ctx, id)
	if err != nil {
		return err
	}
	if device.Kind != models.KindActuator {
		return errors.NewValidationError("device is not an actuator", nil)
	}

	actuator := device.Actuator
	if actuator == nil {
		actuator = &models.ActuatorData{}
	}
	actuator.LastCommand = actuator.State
	actuator.State = state
	actuator.StateSince = time.Now()

	return s.Devices.UpdateActuatorState(ctx, id, actuator)
}

func (s *HubService) latestReading(ctx context.Context, sensorID string) *models.Reading {
	if s.Status != nil {
		if reading, err := s.Status.GetLatestReading(ctx, sensorID); err == nil {
			return reading
		}
	}
	reading, err := s.Readings.GetLatest(ctx, sensorID)
	if err != nil {
		if !errors.IsNotFound(err) {
			nuts.L.Warnf("[DeviceService] Failed to load latest reading for sensor %s: %v", sensorID, err)
		}
		return nil
	}
	return reading
}

func lastActivity(device *models.Device) time.Time {
	last := device.LastSeen
	if device.LastReadingAt.After(last) {
		last = device.LastReadingAt
	}
	return last
}

type contextKey string

const userRolesKey contextKey = "user_roles"

// WithUserRoles returns a context carrying the caller's roles for
// role-based field access checks.
func WithUserRoles(ctx context.Context, roles []string) context.Context {
	return context.WithValue(ctx, userRolesKey, roles)
}

// GetUserRoles retrieves user roles from context; authentication is
// handled upstream of this service.
func GetUserRoles(ctx context.Context) []string {
	if roles, ok := ctx.Value(userRolesKey).([]string); ok {
		return roles
	}
	return []string{"guest"}
}
