// FilePath: internal/models/models.alert.go
package models

import "time"

// AlertStatus tracks an alert through its lifecycle
type AlertStatus string

const (
	AlertActive       AlertStatus = "active"
	AlertAcknowledged AlertStatus = "acknowledged"
	AlertResolved     AlertStatus = "resolved"
)

// Valid reports whether the status is known
func (s AlertStatus) Valid() bool {
	return s == AlertActive || s == AlertAcknowledged || s == AlertResolved
}

// Open reports whether the alert still demands attention
func (s AlertStatus) Open() bool {
	return s == AlertActive || s == AlertAcknowledged
}

// Alert is a stateful record of a detected threshold breach. Bound and
// Severity are copied from the triggering threshold at creation time so
// that later threshold edits do not rewrite alert history.
type Alert struct {
	ID             string      `json:"id" db:"id"`
	SensorID       string      `json:"sensor_id" db:"sensor_id"`
	ThresholdID    string      `json:"threshold_id" db:"threshold_id"`
	Bound          BoundKind   `json:"bound" db:"bound"`
	Severity       Severity    `json:"severity" db:"severity"`
	Status         AlertStatus `json:"status" db:"status"`
	Message        string      `json:"message" db:"message"`
	CreatedAt      time.Time   `json:"created_at" db:"created_at"`
	AcknowledgedAt *time.Time  `json:"acknowledged_at,omitempty" db:"acknowledged_at"`
	ResolvedAt     *time.Time  `json:"resolved_at,omitempty" db:"resolved_at"`
	UpdatedAt      time.Time   `json:"updated_at" db:"updated_at"`
}
