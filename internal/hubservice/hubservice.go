package hubservice

import (
	"github.com/ateliersud/iothub/internal/alerting"
	"github.com/ateliersud/iothub/internal/cache"
	"github.com/ateliersud/iothub/internal/cleanup"
	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/repository"
	nuts "github.com/vaudience/go-nuts"
)

// HubService contains all repositories and service-wide dependencies.
// The sensor locks serialize reading evaluation and threshold mutation
// per sensor; all entry points touching a sensor's thresholds or alerts
// go through them.
type HubService struct {
	Devices    repository.DeviceRepository
	Thresholds repository.ThresholdRepository
	Alerts     repository.AlertRepository
	Readings   repository.ReadingRepository
	Status     *cache.StatusCache
	Cleanup    *cleanup.CleanupService
	Events     *nuts.EventEmitter

	engine *alerting.Engine
	locks  *alerting.SensorLocks
}

// New creates a new HubService instance. The status cache is optional;
// a nil cache disables status caching without touching any other path.
func New(
	devices repository.DeviceRepository,
	thresholds repository.ThresholdRepository,
	alerts repository.AlertRepository,
	readings repository.ReadingRepository,
	status *cache.StatusCache,
) *HubService {
	svc := &HubService{
		Devices:    devices,
		Thresholds: thresholds,
		Alerts:     alerts,
		Readings:   readings,
		Status:     status,
		Events:     nuts.NewEventEmitter(),
		engine:     alerting.NewEngine(devices, thresholds, alerts),
		locks:      alerting.NewSensorLocks(),
	}
	svc.Cleanup = cleanup.New(devices, thresholds, alerts, readings)
	return svc
}

// Validate checks if all required repositories are initialized
func (s *HubService) Validate() error {
	if s.Devices == nil {
		return ErrMissingRepository("devices")
	}
	if s.Thresholds == nil {
		return ErrMissingRepository("thresholds")
	}
	if s.Alerts == nil {
		return ErrMissingRepository("alerts")
	}
	if s.Readings == nil {
		return ErrMissingRepository("readings")
	}
	return nil
}

// OnAlertEvent registers a callback for alert lifecycle events. The
// handler signature must stay in step with emit: the emitter matches
// listener parameters against the emitted arguments by type.
func (s *HubService) OnAlertEvent(event string, handler func(id string)) {
	if _, err := s.Events.On(event, "hubservice_handler", handler); err != nil {
		nuts.L.Warnf("[HubService] Failed to register handler for %s: %v", event, err)
	}
}

// emit publishes an event carrying the affected entity's ID. Emission
// failures are logged, never propagated: event delivery must not fail
// the operation that triggered it.
func (s *HubService) emit(event, id string) {
	if err := s.Events.Emit(event, id); err != nil {
		nuts.L.Warnf("[HubService] Failed to emit %s for %s: %v", event, id, err)
	}
}

func ErrMissingRepository(name string) error {
	return errors.NewInternalError("missing repository: "+name, nil)
}
