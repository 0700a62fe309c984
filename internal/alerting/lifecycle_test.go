// FilePath: internal/alerting/lifecycle_test.go
package alerting

import (
	"testing"
	"time"

	"github.com/ateliersud/iothub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func activeAlert() *models.Alert {
	return &models.Alert{
		ID:       "al_test1",
		SensorID: testSensorID,
		Status:   models.AlertActive,
		Message:  "reading 35 is above the maximum alert threshold 30",
	}
}

func TestAcknowledge_MovesActiveToAcknowledged(t *testing.T) {
	alert := activeAlert()
	now := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)

	changed := Acknowledge(alert, "on site, checking the sensor", now)
	require.True(t, changed)
	assert.Equal(t, models.AlertAcknowledged, alert.Status)
	require.NotNil(t, alert.AcknowledgedAt)
	assert.Equal(t, now, *alert.AcknowledgedAt)
	assert.Equal(t, now, alert.UpdatedAt)
	assert.Contains(t, alert.Message, "\nacknowledged: on site, checking the sensor")
}

func TestAcknowledge_WithoutCommentLeavesMessageAlone(t *testing.T) {
	alert := activeAlert()
	before := alert.Message

	require.True(t, Acknowledge(alert, "", time.Now()))
	assert.Equal(t, before, alert.Message)
}

func TestAcknowledge_IsIdempotentPastActive(t *testing.T) {
	alert := activeAlert()
	now := time.Now()
	require.True(t, Acknowledge(alert, "first", now))
	firstAck := *alert.AcknowledgedAt

	assert.False(t, Acknowledge(alert, "second", now.Add(time.Minute)))
	assert.Equal(t, firstAck, *alert.AcknowledgedAt)
	assert.NotContains(t, alert.Message, "second")

	require.True(t, Resolve(alert, "", now.Add(2*time.Minute)))
	assert.False(t, Acknowledge(alert, "too late", now.Add(3*time.Minute)))
	assert.Equal(t, models.AlertResolved, alert.Status)
}

func TestResolve_MovesActiveDirectlyToResolved(t *testing.T) {
	alert := activeAlert()
	now := time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC)

	changed := Resolve(alert, "false positive", now)
	require.True(t, changed)
	assert.Equal(t, models.AlertResolved, alert.Status)
	assert.Nil(t, alert.AcknowledgedAt)
	require.NotNil(t, alert.ResolvedAt)
	assert.Equal(t, now, *alert.ResolvedAt)
	assert.Contains(t, alert.Message, "\nresolved: false positive")
}

func TestResolve_KeepsAcknowledgementTimestamp(t *testing.T) {
	alert := activeAlert()
	ackTime := time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC)
	require.True(t, Acknowledge(alert, "looking into it", ackTime))

	resolveTime := ackTime.Add(30 * time.Minute)
	require.True(t, Resolve(alert, "replaced the sensor", resolveTime))
	assert.Equal(t, models.AlertResolved, alert.Status)
	require.NotNil(t, alert.AcknowledgedAt)
	assert.Equal(t, ackTime, *alert.AcknowledgedAt)
	assert.Equal(t, resolveTime, *alert.ResolvedAt)
}

func TestResolve_IsTerminal(t *testing.T) {
	alert := activeAlert()
	now := time.Now()
	require.True(t, Resolve(alert, "done", now))
	firstResolve := *alert.ResolvedAt

	assert.False(t, Resolve(alert, "again", now.Add(time.Minute)))
	assert.Equal(t, firstResolve, *alert.ResolvedAt)
	assert.NotContains(t, alert.Message, "again")
}
