// FilePath: internal/alerting/locks.go
package alerting

import "sync"

// SensorLocks serializes mutations per sensor. Evaluating two readings
// for the same sensor concurrently could both observe "no active alert
// yet" and open duplicates, and threshold activation races against
// evaluation the same way, so both paths take the sensor's lock.
// Readings for different sensors proceed in parallel.
type SensorLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewSensorLocks creates an empty lock registry
func NewSensorLocks() *SensorLocks {
	return &SensorLocks{
		locks: make(map[string]*sync.Mutex),
	}
}

// Lock acquires the lock for a sensor, creating it on first use
func (l *SensorLocks) Lock(sensorID string) {
	l.get(sensorID).Lock()
}

// Unlock releases the lock for a sensor
func (l *SensorLocks) Unlock(sensorID string) {
	l.get(sensorID).Unlock()
}

func (l *SensorLocks) get(sensorID string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	lock, ok := l.locks[sensorID]
	if !ok {
		lock = &sync.Mutex{}
		l.locks[sensorID] = lock
	}
	return lock
}
