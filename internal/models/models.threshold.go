// FilePath: internal/models/models.threshold.go
package models

import "time"

// BoundKind says which side of the acceptable range a threshold guards
type BoundKind string

const (
	BoundMinimum BoundKind = "minimum"
	BoundMaximum BoundKind = "maximum"
)

// Valid reports whether the bound kind is known
func (b BoundKind) Valid() bool {
	return b == BoundMinimum || b == BoundMaximum
}

// Opposite returns the other bound kind
func (b BoundKind) Opposite() BoundKind {
	if b == BoundMinimum {
		return BoundMaximum
	}
	return BoundMinimum
}

// Severity is the urgency axis of a threshold, independent of its bound
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityAlert   Severity = "alert"
)

// Valid reports whether the severity is known
func (s Severity) Valid() bool {
	return s == SeverityWarning || s == SeverityAlert
}

// Threshold is a configured boundary a sensor's readings are checked
// against. Per sensor, at most one active threshold may exist for a
// given (bound, severity) pair.
type Threshold struct {
	ID        string    `json:"id" db:"id"`
	SensorID  string    `json:"sensor_id" db:"sensor_id"`
	Bound     BoundKind `json:"bound" db:"bound"`
	Severity  Severity  `json:"severity" db:"severity"`
	Value     float64   `json:"value" db:"value"`
	Active    bool      `json:"active" db:"active"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// Breached reports whether a reading value violates the threshold
func (t *Threshold) Breached(value float64) bool {
	if t.Bound == BoundMinimum {
		return value < t.Value
	}
	return value > t.Value
}
