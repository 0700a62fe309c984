// FilePath: internal/hubservice/hubservice_test.go
package hubservice

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(t *testing.T, devices ...*models.Device) (*HubService, *memThresholdRepo, *memAlertRepo, *memReadingRepo) {
	t.Helper()

	thresholds := newMemThresholdRepo()
	alerts := newMemAlertRepo()
	readings := newMemReadingRepo()
	svc := New(newMemDeviceRepo(devices...), thresholds, alerts, readings, nil)
	require.NoError(t, svc.Validate())

	return svc, thresholds, alerts, readings
}

func TestCreateThreshold_PersistsAndReturns(t *testing.T) {
	svc, thresholds, _, _ := newTestService(t, sensorDevice("dv_s1"))

	created, err := svc.CreateThreshold(context.Background(), "dv_s1", models.BoundMaximum, models.SeverityWarning, 30, true)
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.True(t, created.Active)

	stored, err := thresholds.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 30.0, stored.Value)
}

func TestCreateThreshold_DisplacesCurrentHolder(t *testing.T) {
	svc, thresholds, _, _ := newTestService(t, sensorDevice("dv_s1"))

	old, err := svc.CreateThreshold(context.Background(), "dv_s1", models.BoundMaximum, models.SeverityAlert, 30, true)
	require.NoError(t, err)

	displaced := make(chan string, 1)
	svc.OnAlertEvent("threshold.displaced", func(id string) { displaced <- id })

	newer, err := svc.CreateThreshold(context.Background(), "dv_s1", models.BoundMaximum, models.SeverityAlert, 35, true)
	require.NoError(t, err)
	assert.True(t, newer.Active)

	stored, err := thresholds.Get(context.Background(), old.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)

	select {
	case id := <-displaced:
		assert.Equal(t, old.ID, id)
	case <-time.After(time.Second):
		t.Fatal("expected a threshold.displaced event")
	}
}

func TestCreateThreshold_InactiveDoesNotDisplace(t *testing.T) {
	svc, thresholds, _, _ := newTestService(t, sensorDevice("dv_s1"))

	old, err := svc.CreateThreshold(context.Background(), "dv_s1", models.BoundMaximum, models.SeverityAlert, 30, true)
	require.NoError(t, err)

	_, err = svc.CreateThreshold(context.Background(), "dv_s1", models.BoundMaximum, models.SeverityAlert, 35, false)
	require.NoError(t, err)

	stored, err := thresholds.Get(context.Background(), old.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)
}

func TestCreateThreshold_RejectsIncoherentPair(t *testing.T) {
	svc, _, _, _ := newTestService(t, sensorDevice("dv_s1"))

	_, err := svc.CreateThreshold(context.Background(), "dv_s1", models.BoundMaximum, models.SeverityAlert, 30, true)
	require.NoError(t, err)

	_, err = svc.CreateThreshold(context.Background(), "dv_s1", models.BoundMinimum, models.SeverityAlert, 35, true)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))
}

func TestCreateThreshold_RejectsBadInput(t *testing.T) {
	svc, _, _, _ := newTestService(t, sensorDevice("dv_s1"))
	ctx := context.Background()

	_, err := svc.CreateThreshold(ctx, "dv_s1", "sideways", models.SeverityAlert, 30, true)
	assert.True(t, errors.IsValidation(err))

	_, err = svc.CreateThreshold(ctx, "dv_s1", models.BoundMaximum, "catastrophic", 30, true)
	assert.True(t, errors.IsValidation(err))

	_, err = svc.CreateThreshold(ctx, "dv_s1", models.BoundMaximum, models.SeverityAlert, math.NaN(), true)
	assert.True(t, errors.IsValidation(err))

	_, err = svc.CreateThreshold(ctx, "dv_nope", models.BoundMaximum, models.SeverityAlert, 30, true)
	assert.True(t, errors.IsNotFound(err))
}

func TestUpdateThreshold_ReactivationRunsCoherenceRules(t *testing.T) {
	svc, _, _, _ := newTestService(t, sensorDevice("dv_s1"))
	ctx := context.Background()

	_, err := svc.CreateThreshold(ctx, "dv_s1", models.BoundMaximum, models.SeverityAlert, 30, true)
	require.NoError(t, err)

	// Inactive thresholds can hold any value...
	dormant, err := svc.CreateThreshold(ctx, "dv_s1", models.BoundMinimum, models.SeverityAlert, 35, false)
	require.NoError(t, err)

	// ...but activating one re-runs the checks.
	_, err = svc.UpdateThreshold(ctx, dormant.ID, 35, true)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	updated, err := svc.UpdateThreshold(ctx, dormant.ID, 10, true)
	require.NoError(t, err)
	assert.True(t, updated.Active)
	assert.Equal(t, 10.0, updated.Value)
}

func TestToggleThreshold_ReactivationDisplaces(t *testing.T) {
	svc, thresholds, _, _ := newTestService(t, sensorDevice("dv_s1"))
	ctx := context.Background()

	dormant, err := svc.CreateThreshold(ctx, "dv_s1", models.BoundMaximum, models.SeverityAlert, 25, false)
	require.NoError(t, err)
	holder, err := svc.CreateThreshold(ctx, "dv_s1", models.BoundMaximum, models.SeverityAlert, 30, true)
	require.NoError(t, err)

	toggled, err := svc.ToggleThreshold(ctx, dormant.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Active)

	stored, err := thresholds.Get(ctx, holder.ID)
	require.NoError(t, err)
	assert.False(t, stored.Active)
}

func TestIngestReading_OpensAlertAndStoresReading(t *testing.T) {
	svc, _, alerts, readings := newTestService(t, sensorDevice("dv_s1"))
	ctx := context.Background()

	_, err := svc.CreateThreshold(ctx, "dv_s1", models.BoundMaximum, models.SeverityAlert, 30, true)
	require.NoError(t, err)

	result, err := svc.IngestReading(ctx, "dv_s1", 35, time.Now(), models.ReadingAutomatic)
	require.NoError(t, err)
	require.Len(t, result.Opened, 1)
	assert.Len(t, readings.readings, 1)
	assert.Len(t, alerts.items, 1)
}

func TestIngestReading_RejectedReadingLeavesNoTrace(t *testing.T) {
	svc, _, alerts, readings := newTestService(t, sensorDevice("dv_s1"))
	ctx := context.Background()

	_, err := svc.IngestReading(ctx, "dv_s1", math.Inf(1), time.Now(), models.ReadingManual)
	require.Error(t, err)
	assert.True(t, errors.IsValidation(err))

	_, err = svc.IngestReading(ctx, "dv_nope", 20, time.Now(), models.ReadingManual)
	require.Error(t, err)
	assert.True(t, errors.IsNotFound(err))

	assert.Empty(t, readings.readings)
	assert.Empty(t, alerts.items)
}

func TestIngestReading_DefaultsTimestampAndKind(t *testing.T) {
	svc, _, _, readings := newTestService(t, sensorDevice("dv_s1"))

	_, err := svc.IngestReading(context.Background(), "dv_s1", 20, time.Time{}, "")
	require.NoError(t, err)
	require.Len(t, readings.readings, 1)
	assert.False(t, readings.readings[0].Timestamp.IsZero())
	assert.Equal(t, models.ReadingAutomatic, readings.readings[0].Kind)
}

func TestIngestReading_EmitsAlertLifecycleEvents(t *testing.T) {
	svc, _, _, _ := newTestService(t, sensorDevice("dv_s1"))
	ctx := context.Background()

	_, err := svc.CreateThreshold(ctx, "dv_s1", models.BoundMaximum, models.SeverityAlert, 30, true)
	require.NoError(t, err)

	opened := make(chan string, 1)
	resolved := make(chan string, 1)
	svc.OnAlertEvent("alert.opened", func(id string) { opened <- id })
	svc.OnAlertEvent("alert.resolved", func(id string) { resolved <- id })

	result, err := svc.IngestReading(ctx, "dv_s1", 35, time.Now(), models.ReadingAutomatic)
	require.NoError(t, err)
	require.Len(t, result.Opened, 1)

	select {
	case id := <-opened:
		assert.Equal(t, result.Opened[0].ID, id)
	case <-time.After(time.Second):
		t.Fatal("expected an alert.opened event")
	}

	_, err = svc.IngestReading(ctx, "dv_s1", 20, time.Now(), models.ReadingAutomatic)
	require.NoError(t, err)

	select {
	case id := <-resolved:
		assert.Equal(t, result.Opened[0].ID, id)
	case <-time.After(time.Second):
		t.Fatal("expected an alert.resolved event")
	}
}

func TestAcknowledgeAlert_PersistsTransition(t *testing.T) {
	svc, _, alerts, _ := newTestService(t, sensorDevice("dv_s1"))
	ctx := context.Background()

	_, err := svc.CreateThreshold(ctx, "dv_s1", models.BoundMaximum, models.SeverityAlert, 30, true)
	require.NoError(t, err)
	result, err := svc.IngestReading(ctx, "dv_s1", 35, time.Now(), models.ReadingAutomatic)
	require.NoError(t, err)
	alertID := result.Opened[0].ID

	acked, err := svc.AcknowledgeAlert(ctx, alertID, "investigating")
	require.NoError(t, err)
	assert.Equal(t, models.AlertAcknowledged, acked.Status)

	stored, err := alerts.Get(ctx, alertID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertAcknowledged, stored.Status)
}

func TestIngestReading_ResolvesAcknowledgedAlertOnRecovery(t *testing.T) {
	svc, _, alerts, _ := newTestService(t, sensorDevice("dv_s1"))
	ctx := context.Background()

	_, err := svc.CreateThreshold(ctx, "dv_s1", models.BoundMaximum, models.SeverityAlert, 30, true)
	require.NoError(t, err)
	result, err := svc.IngestReading(ctx, "dv_s1", 35, time.Now(), models.ReadingAutomatic)
	require.NoError(t, err)
	alertID := result.Opened[0].ID

	_, err = svc.AcknowledgeAlert(ctx, alertID, "investigating")
	require.NoError(t, err)

	// A reading back in range closes the acknowledged alert, and a
	// repeat breach beforehand must not open a duplicate.
	repeat, err := svc.IngestReading(ctx, "dv_s1", 40, time.Now(), models.ReadingAutomatic)
	require.NoError(t, err)
	assert.Empty(t, repeat.Opened)
	assert.Len(t, alerts.items, 1)

	recovery, err := svc.IngestReading(ctx, "dv_s1", 20, time.Now(), models.ReadingAutomatic)
	require.NoError(t, err)
	require.Len(t, recovery.Resolved, 1)

	stored, err := alerts.Get(ctx, alertID)
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, stored.Status)
	assert.NotNil(t, stored.AcknowledgedAt)
}

func TestResolveAlert_IdempotentOnResolved(t *testing.T) {
	resolvedAt := time.Now().Add(-time.Hour)
	alert := &models.Alert{
		ID:         "al_done",
		SensorID:   "dv_s1",
		Status:     models.AlertResolved,
		ResolvedAt: &resolvedAt,
	}
	thresholds := newMemThresholdRepo()
	alerts := newMemAlertRepo(alert)
	svc := New(newMemDeviceRepo(sensorDevice("dv_s1")), thresholds, alerts, newMemReadingRepo(), nil)

	again, err := svc.ResolveAlert(context.Background(), "al_done", "retry")
	require.NoError(t, err)
	assert.Equal(t, models.AlertResolved, again.Status)
	assert.Equal(t, resolvedAt, *again.ResolvedAt)
	assert.NotContains(t, again.Message, "retry")
}

func TestGetAlertWithContext_ToleratesDanglingThreshold(t *testing.T) {
	alert := &models.Alert{
		ID:          "al_orphan",
		SensorID:    "dv_s1",
		ThresholdID: "th_gone",
		Status:      models.AlertActive,
	}
	svc := New(newMemDeviceRepo(sensorDevice("dv_s1")), newMemThresholdRepo(), newMemAlertRepo(alert), newMemReadingRepo(), nil)

	withContext, err := svc.GetAlertWithContext(context.Background(), "al_orphan")
	require.NoError(t, err)
	assert.Equal(t, "al_orphan", withContext.Alert.ID)
	assert.Equal(t, "dv_s1", withContext.Sensor.ID)
	assert.Nil(t, withContext.Threshold)
}

func TestDeleteDevice_RefusedWhileAlertsOpen(t *testing.T) {
	svc, _, _, _ := newTestService(t, sensorDevice("dv_s1"))
	ctx := context.Background()

	_, err := svc.CreateThreshold(ctx, "dv_s1", models.BoundMaximum, models.SeverityAlert, 30, true)
	require.NoError(t, err)
	_, err = svc.IngestReading(ctx, "dv_s1", 35, time.Now(), models.ReadingAutomatic)
	require.NoError(t, err)

	err = svc.DeleteDevice(ctx, "dv_s1")
	require.Error(t, err)
	assert.True(t, errors.IsConflict(err))

	// Still reachable after the refused deletion.
	_, err = svc.GetDevice(ctx, "dv_s1")
	require.NoError(t, err)
}

func TestDeleteDevice_CascadesOnceAlertsAreClosed(t *testing.T) {
	svc, thresholds, alerts, readings := newTestService(t, sensorDevice("dv_s1"))
	ctx := context.Background()

	_, err := svc.CreateThreshold(ctx, "dv_s1", models.BoundMaximum, models.SeverityAlert, 30, true)
	require.NoError(t, err)
	result, err := svc.IngestReading(ctx, "dv_s1", 35, time.Now(), models.ReadingAutomatic)
	require.NoError(t, err)

	_, err = svc.ResolveAlert(ctx, result.Opened[0].ID, "maintenance")
	require.NoError(t, err)

	deleted := make(chan string, 1)
	svc.Cleanup.OnCleanup("device.deleted", func(id string) { deleted <- id })

	require.NoError(t, svc.DeleteDevice(ctx, "dv_s1"))

	_, err = svc.GetDevice(ctx, "dv_s1")
	assert.True(t, errors.IsNotFound(err))
	assert.Empty(t, thresholds.items)
	assert.Empty(t, alerts.items)
	assert.Empty(t, readings.readings)

	select {
	case id := <-deleted:
		assert.Equal(t, "dv_s1", id)
	case <-time.After(time.Second):
		t.Fatal("expected a device.deleted event")
	}
}

func TestUserRolesContextRoundTrip(t *testing.T) {
	ctx := WithUserRoles(context.Background(), []string{"admin", "operator"})
	assert.Equal(t, []string{"admin", "operator"}, GetUserRoles(ctx))

	// Callers without roles run as guest.
	assert.Equal(t, []string{"guest"}, GetUserRoles(context.Background()))
}
