// FilePath: api/resources/resources.go
package resources

import (
	"net/http"

	"github.com/ateliersud/iothub/internal/hubservice"
	"github.com/gorilla/schema"
)

// queryDecoder decodes URL query strings into filter structs
var queryDecoder = newQueryDecoder()

func newQueryDecoder() *schema.Decoder {
	d := schema.NewDecoder()
	d.IgnoreUnknownKeys(true)
	return d
}

// Resources holds all HTTP resource handlers
type Resources struct {
	Devices     *DeviceHandlers
	Thresholds  *ThresholdHandlers
	Alerts      *AlertHandlers
	Readings    *ReadingHandlers
	HealthCheck func(w http.ResponseWriter, r *http.Request)
	Metrics     func(w http.ResponseWriter, r *http.Request)
}

// NewResources creates a new Resources instance
func NewResources(svc *hubservice.HubService) *Resources {
	return &Resources{
		Devices:    &DeviceHandlers{hubservice: svc},
		Thresholds: &ThresholdHandlers{hubservice: svc},
		Alerts:     &AlertHandlers{hubservice: svc},
		Readings:   &ReadingHandlers{hubservice: svc},
	}
}

// SetHealthCheck sets the health check handler
func (r *Resources) SetHealthCheck(h func(w http.ResponseWriter, r *http.Request)) {
	r.HealthCheck = h
}

// SetMetrics sets the metrics handler
func (r *Resources) SetMetrics(h func(w http.ResponseWriter, r *http.Request)) {
	r.Metrics = h
}
