// FilePath: internal/alerting/fakes_test.go
package alerting

import (
	"context"
	"database/sql"
	"sort"
	"time"

	"github.com/ateliersud/iothub/internal/database"
	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/models"
)

// In-memory repository fakes shared by the engine tests.

type fakeTx struct{}

func (fakeTx) Commit() error   { return nil }
func (fakeTx) Rollback() error { return nil }
func (fakeTx) ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error) {
	return nil, nil
}

type fakeBase struct{}

func (fakeBase) BeginTx(ctx context.Context) (database.Transaction, error) {
	return fakeTx{}, nil
}

type fakeDeviceRepo struct {
	fakeBase
	sensors map[string]bool
}

func newFakeDeviceRepo(sensorIDs ...string) *fakeDeviceRepo {
	sensors := make(map[string]bool, len(sensorIDs))
	for _, id := range sensorIDs {
		sensors[id] = true
	}
	return &fakeDeviceRepo{sensors: sensors}
}

func (f *fakeDeviceRepo) Create(ctx context.Context, device *models.Device) error { return nil }
func (f *fakeDeviceRepo) Get(ctx context.Context, id string) (*models.Device, error) {
	if !f.sensors[id] {
		return nil, errors.NewNotFoundError("device not found", nil)
	}
	return &models.Device{ID: id, Kind: models.KindSensor}, nil
}
func (f *fakeDeviceRepo) Update(ctx context.Context, device *models.Device) error { return nil }
func (f *fakeDeviceRepo) Delete(ctx context.Context, id string) error             { return nil }
func (f *fakeDeviceRepo) DeleteWithData(ctx context.Context, id string, tx database.Transaction) error {
	return nil
}
func (f *fakeDeviceRepo) List(ctx context.Context, filters models.DeviceFilters, page, limit int) (int64, []*models.Device, error) {
	return 0, nil, nil
}
func (f *fakeDeviceRepo) SensorExists(ctx context.Context, id string) (bool, error) {
	return f.sensors[id], nil
}
func (f *fakeDeviceRepo) UpdateLastReading(ctx context.Context, id string, value float64, timestamp time.Time) error {
	return nil
}
func (f *fakeDeviceRepo) UpdateActuatorState(ctx context.Context, id string, actuator *models.ActuatorData) error {
	return nil
}

type fakeThresholdRepo struct {
	fakeBase
	items map[string]*models.Threshold
}

func newFakeThresholdRepo(thresholds ...*models.Threshold) *fakeThresholdRepo {
	items := make(map[string]*models.Threshold, len(thresholds))
	for _, t := range thresholds {
		items[t.ID] = t
	}
	return &fakeThresholdRepo{items: items}
}

func (f *fakeThresholdRepo) Create(ctx context.Context, threshold *models.Threshold) error {
	f.items[threshold.ID] = threshold
	return nil
}

func (f *fakeThresholdRepo) Get(ctx context.Context, id string) (*models.Threshold, error) {
	t, ok := f.items[id]
	if !ok {
		return nil, errors.NewNotFoundError("threshold not found", nil)
	}
	return t, nil
}

func (f *fakeThresholdRepo) Update(ctx context.Context, threshold *models.Threshold) error {
	if _, ok := f.items[threshold.ID]; !ok {
		return errors.NewNotFoundError("threshold not found", nil)
	}
	f.items[threshold.ID] = threshold
	return nil
}

func (f *fakeThresholdRepo) ListBySensor(ctx context.Context, sensorID string) ([]*models.Threshold, error) {
	return f.filter(func(t *models.Threshold) bool { return t.SensorID == sensorID }), nil
}

func (f *fakeThresholdRepo) ListActiveBySensor(ctx context.Context, sensorID string) ([]*models.Threshold, error) {
	return f.filter(func(t *models.Threshold) bool { return t.SensorID == sensorID && t.Active }), nil
}

func (f *fakeThresholdRepo) GetActiveBySensorAndBound(ctx context.Context, sensorID string, bound models.BoundKind) ([]*models.Threshold, error) {
	return f.filter(func(t *models.Threshold) bool {
		return t.SensorID == sensorID && t.Active && t.Bound == bound
	}), nil
}

func (f *fakeThresholdRepo) DeleteBySensor(ctx context.Context, sensorID string, tx database.Transaction) error {
	for id, t := range f.items {
		if t.SensorID == sensorID {
			delete(f.items, id)
		}
	}
	return nil
}

func (f *fakeThresholdRepo) filter(keep func(*models.Threshold) bool) []*models.Threshold {
	var out []*models.Threshold
	for _, t := range f.items {
		if keep(t) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

type fakeAlertRepo struct {
	fakeBase
	items map[string]*models.Alert
}

func newFakeAlertRepo(alerts ...*models.Alert) *fakeAlertRepo {
	items := make(map[string]*models.Alert, len(alerts))
	for _, a := range alerts {
		items[a.ID] = a
	}
	return &fakeAlertRepo{items: items}
}

func (f *fakeAlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	f.items[alert.ID] = alert
	return nil
}

func (f *fakeAlertRepo) Get(ctx context.Context, id string) (*models.Alert, error) {
	a, ok := f.items[id]
	if !ok {
		return nil, errors.NewNotFoundError("alert not found", nil)
	}
	return a, nil
}

func (f *fakeAlertRepo) Update(ctx context.Context, alert *models.Alert) error {
	if _, ok := f.items[alert.ID]; !ok {
		return errors.NewNotFoundError("alert not found", nil)
	}
	f.items[alert.ID] = alert
	return nil
}

func (f *fakeAlertRepo) GetOpenBySensorThresholdSeverity(ctx context.Context, sensorID, thresholdID string, severity models.Severity) (*models.Alert, error) {
	for _, a := range f.items {
		if a.SensorID == sensorID && a.ThresholdID == thresholdID &&
			a.Severity == severity && a.Status.Open() {
			return a, nil
		}
	}
	return nil, errors.NewNotFoundError("no open alert for threshold", nil)
}

func (f *fakeAlertRepo) ListOpenBySensor(ctx context.Context, sensorID string) ([]*models.Alert, error) {
	return f.filter(func(a *models.Alert) bool {
		return a.SensorID == sensorID && a.Status.Open()
	}), nil
}

func (f *fakeAlertRepo) List(ctx context.Context, filters models.AlertFilters, page, limit int) (int64, []*models.Alert, error) {
	all := f.filter(func(a *models.Alert) bool { return true })
	return int64(len(all)), all, nil
}

func (f *fakeAlertRepo) CountOpenBySensor(ctx context.Context, sensorID string) (int64, error) {
	open := f.filter(func(a *models.Alert) bool {
		return a.SensorID == sensorID && a.Status.Open()
	})
	return int64(len(open)), nil
}

func (f *fakeAlertRepo) DeleteBySensor(ctx context.Context, sensorID string, tx database.Transaction) error {
	for id, a := range f.items {
		if a.SensorID == sensorID {
			delete(f.items, id)
		}
	}
	return nil
}

func (f *fakeAlertRepo) filter(keep func(*models.Alert) bool) []*models.Alert {
	var out []*models.Alert
	for _, a := range f.items {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
