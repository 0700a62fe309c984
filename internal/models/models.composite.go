// FilePath: internal/models/models.composite.go
package models

import "time"

// AlertWithContext bundles an alert with its sensor and originating
// threshold as fully-populated values, so callers never chase lazy
// references. Threshold may be nil when the record has since vanished.
type AlertWithContext struct {
	Alert     *Alert     `json:"alert"`
	Sensor    *Device    `json:"sensor"`
	Threshold *Threshold `json:"threshold,omitempty"`
}

// DeviceStatus is the monitoring snapshot for a single device
type DeviceStatus struct {
	Device        *Device   `json:"device"`
	LatestReading *Reading  `json:"latest_reading,omitempty"`
	OpenAlerts    int64     `json:"open_alerts"`
	OnlineStatus  string    `json:"online_status"`
	LastActivity  time.Time `json:"last_activity"`
}
