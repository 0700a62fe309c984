// FilePath: internal/alerting/validator.go
package alerting

import (
	"fmt"

	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/models"
)

// ActivationCheck is the outcome of a successful activation validation.
// Displaced lists the active thresholds holding the candidate's
// (bound, severity) pair; the caller must deactivate them in the same
// operation that persists the candidate.
type ActivationCheck struct {
	Displaced []*models.Threshold
}

// CheckActivation validates a threshold that is being created, updated
// or toggled against the sensor's currently active thresholds. The one
// entry point covers all three paths. The candidate's own prior state
// is ignored when present in the active set.
//
// Rules, applied only when the candidate is (or is being made) active:
//   - an active threshold with the same (bound, severity) is displaced;
//   - every active opposite-bound threshold must keep a strict
//     minimum < maximum ordering against the candidate, equality
//     included as a violation.
func CheckActivation(candidate *models.Threshold, active []*models.Threshold) (*ActivationCheck, error) {
	check := &ActivationCheck{}
	if !candidate.Active {
		// Deactivation never narrows the coherent range.
		return check, nil
	}

	for _, t := range active {
		if t.ID == candidate.ID {
			continue
		}
		if t.Bound == candidate.Bound {
			if t.Severity == candidate.Severity {
				check.Displaced = append(check.Displaced, t)
			}
			continue
		}

		minValue, maxValue := candidate.Value, t.Value
		if candidate.Bound == models.BoundMaximum {
			minValue, maxValue = t.Value, candidate.Value
		}
		if minValue >= maxValue {
			return nil, NewIncoherenceError(minValue, maxValue)
		}
	}

	return check, nil
}

// NewIncoherenceError builds the validation error for a min/max ordering
// violation, naming both conflicting values so the caller can correct them.
func NewIncoherenceError(minValue, maxValue float64) *errors.APIError {
	return errors.NewValidationError(
		fmt.Sprintf("incoherent thresholds: minimum %g must stay strictly below maximum %g", minValue, maxValue),
		nil,
	).WithDetails(map[string]float64{
		"minimum": minValue,
		"maximum": maxValue,
	})
}
