// FilePath: internal/models/api.models.filters.go
package models

// DeviceFilters defines the available filter options for devices
type DeviceFilters struct {
	Kind       DeviceKind `json:"kind" schema:"kind"`
	LocationID string     `json:"location_id" schema:"location_id"`
	Active     *bool      `json:"active" schema:"active"`
}

// AlertFilters defines the available filter options for alerts
type AlertFilters struct {
	SensorID string      `json:"sensor_id" schema:"sensor_id"`
	Status   AlertStatus `json:"status" schema:"status"`
	Severity Severity    `json:"severity" schema:"severity"`
	Bound    BoundKind   `json:"bound" schema:"bound"`
}
