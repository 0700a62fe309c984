// FilePath: internal/repository/repository.go
package repository

import (
	"context"
	"time"

	"github.com/ateliersud/iothub/internal/database"
	"github.com/ateliersud/iothub/internal/models"
)

// DeviceRepository defines the interface for device data operations
type DeviceRepository interface {
	database.Repository
	Create(ctx context.Context, device *models.Device) error
	Get(ctx context.Context, id string) (*models.Device, error)
	Update(ctx context.Context, device *models.Device) error
	Delete(ctx context.Context, id string) error
	DeleteWithData(ctx context.Context, id string, tx database.Transaction) error
	List(ctx context.Context, filters models.DeviceFilters, page, limit int) (int64, []*models.Device, error)
	SensorExists(ctx context.Context, id string) (bool, error)
	UpdateLastReading(ctx context.Context, id string, value float64, timestamp time.Time) error
	UpdateActuatorState(ctx context.Context, id string, actuator *models.ActuatorData) error
}

// ThresholdRepository defines the interface for alert threshold operations
type ThresholdRepository interface {
	database.Repository
	Create(ctx context.Context, threshold *models.Threshold) error
	Get(ctx context.Context, id string) (*models.Threshold, error)
	Update(ctx context.Context, threshold *models.Threshold) error
	ListBySensor(ctx context.Context, sensorID string) ([]*models.Threshold, error)
	ListActiveBySensor(ctx context.Context, sensorID string) ([]*models.Threshold, error)
	GetActiveBySensorAndBound(ctx context.Context, sensorID string, bound models.BoundKind) ([]*models.Threshold, error)
	DeleteBySensor(ctx context.Context, sensorID string, tx database.Transaction) error
}

// AlertRepository defines the interface for alert records
type AlertRepository interface {
	database.Repository
	Create(ctx context.Context, alert *models.Alert) error
	Get(ctx context.Context, id string) (*models.Alert, error)
	Update(ctx context.Context, alert *models.Alert) error
	GetOpenBySensorThresholdSeverity(ctx context.Context, sensorID, thresholdID string, severity models.Severity) (*models.Alert, error)
	ListOpenBySensor(ctx context.Context, sensorID string) ([]*models.Alert, error)
	List(ctx context.Context, filters models.AlertFilters, page, limit int) (int64, []*models.Alert, error)
	CountOpenBySensor(ctx context.Context, sensorID string) (int64, error)
	DeleteBySensor(ctx context.Context, sensorID string, tx database.Transaction) error
}

// ReadingRepository defines the interface for sensor measurements
type ReadingRepository interface {
	database.Repository
	Insert(ctx context.Context, reading *models.Reading) error
	GetRange(ctx context.Context, sensorID string, start, end time.Time) ([]models.Reading, error)
	GetAggregates(ctx context.Context, sensorID string, start, end time.Time, interval string) ([]models.ReadingAggregate, error)
	GetLatest(ctx context.Context, sensorID string) (*models.Reading, error)
	DeleteBySensor(ctx context.Context, sensorID string) error
	DeleteOld(ctx context.Context, before time.Time) error
}
