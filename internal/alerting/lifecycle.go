// FilePath: internal/alerting/lifecycle.go
package alerting

import (
	"fmt"
	"time"

	"github.com/ateliersud/iothub/internal/models"
)

// Alert lifecycle: active -> acknowledged -> resolved, with a direct
// active -> resolved shortcut. Resolved is terminal. Transitions on a
// non-eligible status are idempotent no-ops so operator retries and
// concurrent auto-resolution never surface as errors.

// Acknowledge moves an active alert to acknowledged. It reports whether
// the alert changed; a false return means the alert was already past
// the active state and was left untouched.
func Acknowledge(alert *models.Alert, comment string, now time.Time) bool {
	if alert.Status != models.AlertActive {
		return false
	}

	alert.Status = models.AlertAcknowledged
	ackAt := now
	alert.AcknowledgedAt = &ackAt
	alert.UpdatedAt = now
	if comment != "" {
		alert.Message += fmt.Sprintf("\nacknowledged: %s", comment)
	}
	return true
}

// Resolve moves an active or acknowledged alert to resolved, keeping an
// earlier acknowledgement timestamp intact. It reports whether the
// alert changed; resolving an already-resolved alert is a no-op.
func Resolve(alert *models.Alert, note string, now time.Time) bool {
	if !alert.Status.Open() {
		return false
	}

	alert.Status = models.AlertResolved
	resolvedAt := now
	alert.ResolvedAt = &resolvedAt
	alert.UpdatedAt = now
	if note != "" {
		alert.Message += fmt.Sprintf("\nresolved: %s", note)
	}
	return true
}
