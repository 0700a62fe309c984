// FilePath: internal/hubservice/fakes_test.go
package hubservice

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/ateliersud/iothub/internal/database"
	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/models"
)

// In-memory repository fakes for the service tests.

type memTx struct{}

func (memTx) Commit() error   { return nil }
func (memTx) Rollback() error { return nil }
func (memTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

type memBase struct{}

func (memBase) BeginTx(ctx context.Context) (database.Transaction, error) {
	return memTx{}, nil
}

type memDeviceRepo struct {
	memBase
	devices map[string]*models.Device
}

func newMemDeviceRepo(devices ...*models.Device) *memDeviceRepo {
	m := make(map[string]*models.Device, len(devices))
	for _, d := range devices {
		m[d.ID] = d
	}
	return &memDeviceRepo{devices: m}
}

func sensorDevice(id string) *models.Device {
	return &models.Device{
		ID:     id,
		Name:   "test sensor " + id,
		Kind:   models.KindSensor,
		Sensor: &models.SensorData{Unit: "°C"},
	}
}

func (f *memDeviceRepo) Create(ctx context.Context, device *models.Device) error {
	f.devices[device.ID] = device
	return nil
}
func (f *memDeviceRepo) Get(ctx context.Context, id string) (*models.Device, error) {
	d, ok := f.devices[id]
	if !ok {
		return nil, errors.NewNotFoundError("device not found", nil)
	}
	return d, nil
}
func (f *memDeviceRepo) Update(ctx context.Context, device *models.Device) error {
	if _, ok := f.devices[device.ID]; !ok {
		return errors.NewNotFoundError("device not found", nil)
	}
	f.devices[device.ID] = device
	return nil
}
func (f *memDeviceRepo) Delete(ctx context.Context, id string) error {
	delete(f.devices, id)
	return nil
}
func (f *memDeviceRepo) DeleteWithData(ctx context.Context, id string, tx database.Transaction) error {
	delete(f.devices, id)
	return nil
}
func (f *memDeviceRepo) List(ctx context.Context, filters models.DeviceFilters, page, limit int) (int64, []*models.Device, error) {
	var out []*models.Device
	for _, d := range f.devices {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return int64(len(out)), out, nil
}
func (f *memDeviceRepo) SensorExists(ctx context.Context, id string) (bool, error) {
	d, ok := f.devices[id]
	return ok && d.IsSensor(), nil
}
func (f *memDeviceRepo) UpdateLastReading(ctx context.Context, id string, value float64, timestamp time.Time) error {
	return nil
}
func (f *memDeviceRepo) UpdateActuatorState(ctx context.Context, id string, actuator *models.ActuatorData) error {
	d, ok := f.devices[id]
	if !ok {
		return errors.NewNotFoundError("device not found", nil)
	}
	d.Actuator = actuator
	return nil
}

type memThresholdRepo struct {
	memBase
	items map[string]*models.Threshold
}

func newMemThresholdRepo(thresholds ...*models.Threshold) *memThresholdRepo {
	m := make(map[string]*models.Threshold, len(thresholds))
	for _, t := range thresholds {
		m[t.ID] = t
	}
	return &memThresholdRepo{items: m}
}

func (f *memThresholdRepo) Create(ctx context.Context, threshold *models.Threshold) error {
	f.items[threshold.ID] = threshold
	return nil
}
func (f *memThresholdRepo) Get(ctx context.Context, id string) (*models.Threshold, error) {
	t, ok := f.items[id]
	if !ok {
		return nil, errors.NewNotFoundError("threshold not found", nil)
	}
	return t, nil
}
func (f *memThresholdRepo) Update(ctx context.Context, threshold *models.Threshold) error {
	if _, ok := f.items[threshold.ID]; !ok {
		return errors.NewNotFoundError("threshold not found", nil)
	}
	f.items[threshold.ID] = threshold
	return nil
}
func (f *memThresholdRepo) ListBySensor(ctx context.Context, sensorID string) ([]*models.Threshold, error) {
	return f.filter(func(t *models.Threshold) bool { return t.SensorID == sensorID }), nil
}
func (f *memThresholdRepo) ListActiveBySensor(ctx context.Context, sensorID string) ([]*models.Threshold, error) {
	return f.filter(func(t *models.Threshold) bool { return t.SensorID == sensorID && t.Active }), nil
}
func (f *memThresholdRepo) GetActiveBySensorAndBound(ctx context.Context, sensorID string, bound models.BoundKind) ([]*models.Threshold, error) {
	return f.filter(func(t *models.Threshold) bool {
		return t.SensorID == sensorID && t.Active && t.Bound == bound
	}), nil
}
func (f *memThresholdRepo) DeleteBySensor(ctx context.Context, sensorID string, tx database.Transaction) error {
	for id, t := range f.items {
		if t.SensorID == sensorID {
			delete(f.items, id)
		}
	}
	return nil
}
func (f *memThresholdRepo) filter(keep func(*models.Threshold) bool) []*models.Threshold {
	var out []*models.Threshold
	for _, t := range f.items {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memAlertRepo struct {
	memBase
	items map[string]*models.Alert
}

func newMemAlertRepo(alerts ...*models.Alert) *memAlertRepo {
	m := make(map[string]*models.Alert, len(alerts))
	for _, a := range alerts {
		m[a.ID] = a
	}
	return &memAlertRepo{items: m}
}

func (f *memAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	f.items[alert.ID] = alert
	return nil
}
func (f *memAlertRepo) Get(ctx context.Context, id string) (*models.Alert, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, errors.NewNotFoundError("alert not found", nil)
	}
	return a, nil
}
func (f *memAlertRepo) Update(ctx context.Context, alert *models.Alert) error {
	if _, ok := f.items[alert.ID]; !ok {
		return errors.NewNotFoundError("alert not found", nil)
	}
	f.items[alert.ID] = alert
	return nil
}
func (f *memAlertRepo) GetOpenBySensorThresholdSeverity(ctx context.Context, sensorID, thresholdID string, severity models.Severity) (*models.Alert, error) {
	for _, a := range f.items {
		if a.SensorID == sensorID && a.ThresholdID == thresholdID &&
			a.Severity == severity && a.Status.Open() {
			return a, nil
		}
	}
	return nil, errors.NewNotFoundError("no open alert for threshold", nil)
}
func (f *memAlertRepo) ListOpenBySensor(ctx context.Context, sensorID string) ([]*models.Alert, error) {
	return f.filter(func(a *models.Alert) bool {
		return a.SensorID == sensorID && a.Status.Open()
	}), nil
}
func (f *memAlertRepo) List(ctx context.Context, filters models.AlertFilters, page, limit int) (int64, []*models.Alert, error) {
	out := f.filter(func(a *models.Alert) bool {
		if filters.SensorID != "" && a.SensorID != filters.SensorID {
			return false
		}
		if filters.Status != "" && a.Status != filters.Status {
			return false
		}
		return true
	})
	return int64(len(out)), out, nil
}
func (f *memAlertRepo) CountOpenBySensor(ctx context.Context, sensorID string) (int64, error) {
	open := f.filter(func(a *models.Alert) bool {
		return a.SensorID == sensorID && a.Status.Open()
	})
	return int64(len(open)), nil
}
func (f *memAlertRepo) DeleteBySensor(ctx context.Context, sensorID string, tx database.Transaction) error {
	for id, a := range f.items {
		if a.SensorID == sensorID {
			delete(f.items, id)
		}
	}
	return nil
}
func (f *memAlertRepo) filter(keep func(*models.Alert) bool) []*models.Alert {
	var out []*models.Alert
	for _, a := range f.items {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type memReadingRepo struct {
	memBase
	readings []*models.Reading
}

func newMemReadingRepo() *memReadingRepo {
	return &memReadingRepo{}
}

func (f *memReadingRepo) Insert(ctx context.Context, reading *models.Reading) error {
	f.readings = append(f.readings, reading)
	return nil
}
func (f *memReadingRepo) GetRange(ctx context.Context, sensorID string, start, end time.Time) ([]models.Reading, error) {
	var out []models.Reading
	for _, r := range f.readings {
		if r.SensorID == sensorID && !r.Timestamp.Before(start) && !r.Timestamp.After(end) {
			out = append(out, *r)
		}
	}
	return out, nil
}
func (f *memReadingRepo) GetAggregates(ctx context.Context, sensorID string, start, end time.Time, interval string) ([]models.ReadingAggregate, error) {
	return nil, nil
}
func (f *memReadingRepo) GetLatest(ctx context.Context, sensorID string) (*models.Reading, error) {
	var latest *models.Reading
	for _, r := range f.readings {
		if r.SensorID != sensorID {
			continue
		}
		if latest == nil || r.Timestamp.After(latest.Timestamp) {
			latest = r
		}
	}
	if latest == nil {
		return nil, errors.NewNotFoundError("no readings for sensor", nil)
	}
	return latest, nil
}
func (f *memReadingRepo) DeleteBySensor(ctx context.Context, sensorID string) error {
	kept := f.readings[:0]
	for _, r := range f.readings {
		if r.SensorID != sensorID {
			kept = append(kept, r)
		}
	}
	f.readings = kept
	return nil
}
func (f *memReadingRepo) DeleteOld(ctx context.Context, before time.Time) error {
	kept := f.readings[:0]
	for _, r := range f.readings {
		if !r.Timestamp.Before(before) {
			kept = append(kept, r)
		}
	}
	f.readings = kept
	return nil
}
