// FilePath: internal/models/models.device.go
package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"
)

// JSON is a wrapper around map[string]interface{} for database storage
type JSON map[string]interface{}

// Value implements the driver.Valuer interface
func (j JSON) Value() (driver.Value, error) {
	return json.Marshal(j)
}

// Scan implements the sql.Scanner interface
func (j *JSON) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, &j)
}

// DeviceKind discriminates the two device flavors handled by the hub.
type DeviceKind string

const (
	KindSensor   DeviceKind = "sensor"
	KindActuator DeviceKind = "actuator"
)

// Valid reports whether the kind is one of the known device kinds
func (k DeviceKind) Valid() bool {
	return k == KindSensor || k == KindActuator
}

// Device is the common record for sensors and actuators. Kind selects
// which of the two payloads is populated; the other stays nil.
type Device struct {
	ID            string        `json:"id" db:"id"`
	Name          string        `json:"name" db:"name"`
	Description   string        `json:"description" db:"description"`
	Kind          DeviceKind    `json:"kind" db:"kind"`
	LocationID    string        `json:"location_id" db:"location_id"`
	Active        bool          `json:"active" db:"active"`
	Sensor        *SensorData   `json:"sensor,omitempty" db:"sensor"`
	Actuator      *ActuatorData `json:"actuator,omitempty" db:"actuator"`
	Metadata      JSON          `json:"metadata" db:"metadata" readxs:"*" writexs:"admin,system"`
	LastSeen      time.Time     `json:"last_seen" db:"last_seen"`
	LastReadingAt time.Time     `json:"last_reading_at" db:"last_reading_at"`
	CreatedAt     time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at" db:"updated_at"`
}

// IsSensor reports whether the device is a sensor
func (d *Device) IsSensor() bool {
	return d.Kind == KindSensor
}

// SensorData carries the sensor-specific half of the device union
type SensorData struct {
	Unit          string  `json:"unit" db:"unit"`
	Precision     int     `json:"precision" db:"precision"`
	LastValue     float64 `json:"last_value" db:"last_value"`
	PollInterval  string  `json:"poll_interval,omitempty" db:"poll_interval"`
	TransportMode string  `json:"transport_mode,omitempty" db:"transport_mode"`
}

// Value implements the driver.Valuer interface
func (s *SensorData) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	return json.Marshal(s)
}

// Scan implements the sql.Scanner interface
func (s *SensorData) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, s)
}

// ActuatorData carries the actuator-specific half of the device union
type ActuatorData struct {
	State       string    `json:"state" db:"state"`
	Commands    []string  `json:"commands,omitempty" db:"commands"`
	LastCommand string    `json:"last_command,omitempty" db:"last_command"`
	StateSince  time.Time `json:"state_since" db:"state_since"`
}

// Value implements the driver.Valuer interface
func (a *ActuatorData) Value() (driver.Value, error) {
	if a == nil {
		return nil, nil
	}
	return json.Marshal(a)
}

// Scan implements the sql.Scanner interface
func (a *ActuatorData) Scan(value interface{}) error {
	bytes, ok := value.([]byte)
	if !ok {
		return nil
	}
	return json.Unmarshal(bytes, a)
}
