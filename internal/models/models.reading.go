// FilePath: internal/models/models.reading.go
package models

import "time"

// ReadingKind distinguishes operator-entered readings from device ones
type ReadingKind string

const (
	ReadingManual    ReadingKind = "manual"
	ReadingAutomatic ReadingKind = "automatic"
)

// Reading represents a single sensor measurement. Readings are immutable
// once recorded; the alerting engine only consumes them.
type Reading struct {
	ID        string      `json:"id" db:"id"`
	SensorID  string      `json:"sensor_id" db:"sensor_id"`
	Value     float64     `json:"value" db:"value"`
	Timestamp time.Time   `json:"timestamp" db:"timestamp"`
	Kind      ReadingKind `json:"kind" db:"kind"`
}

// ReadingAggregate represents bucketed reading statistics
type ReadingAggregate struct {
	SensorID  string    `json:"sensor_id" db:"sensor_id"`
	Min       float64   `json:"min" db:"min"`
	Max       float64   `json:"max" db:"max"`
	Avg       float64   `json:"avg" db:"avg"`
	Count     int       `json:"count" db:"count"`
	StartTime time.Time `json:"start_time" db:"start_time"`
	EndTime   time.Time `json:"end_time" db:"end_time"`
}
