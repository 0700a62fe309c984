// FilePath: internal/repository/postgres/postgres.alert.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/ateliersud/iothub/internal/database"
	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

type AlertRepo struct {
	PostgresBaseRepo
}

func NewAlertRepository(db database.DB) *AlertRepo {
	repo := &PostgresBaseRepo{db: db}
	return &AlertRepo{PostgresBaseRepo: *repo}
}

func (r *AlertRepo) Create(ctx context.Context, alert *models.Alert) error {
	query := `
		INSERT INTO alerts (
			id, sensor_id, threshold_id, bound, severity, status,
			message, created_at, acknowledged_at, resolved_at, updated_at
		) VALUES (
			:id, :sensor_id, :threshold_id, :bound, :severity, :status,
			:message, :created_at, :acknowledged_at, :resolved_at, :updated_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, alert)
	if err != nil {
		return errors.NewDatabaseError("failed to create alert", err)
	}
	return nil
}

func (r *AlertRepo) Get(ctx context.Context, id string) (*models.Alert, error) {
	alert := &models.Alert{}
	query := `SELECT * FROM alerts WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, alert, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("alert not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get alert", err)
	}
	return alert, nil
}

func (r *AlertRepo) Update(ctx context.Context, alert *models.Alert) error {
	query := `
		UPDATE alerts SET
			status = :status,
			message = :message,
			acknowledged_at = :acknowledged_at,
			resolved_at = :resolved_at,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, alert)
	if err != nil {
		return errors.NewDatabaseError("failed to update alert", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("alert not found", nil)
	}

	return nil
}

// GetOpenBySensorThresholdSeverity finds the unresolved alert for a
// (sensor, threshold, severity) triple. Acknowledged alerts count as
// open: an operator acknowledgement must not let a repeat breach open
// a duplicate.
func (r *AlertRepo) GetOpenBySensorThresholdSeverity(ctx context.Context, sensorID, thresholdID string, severity models.Severity) (*models.Alert, error) {
	alert := &models.Alert{}
	query := `
		SELECT * FROM alerts
		WHERE sensor_id = $1 AND threshold_id = $2 AND severity = $3 AND status IN ($4, $5)
		LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, alert, query,
		sensorID, thresholdID, severity, models.AlertActive, models.AlertAcknowledged)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no open alert for threshold", err)
		}
		return nil, errors.NewDatabaseError("failed to get open alert", err)
	}
	return alert, nil
}

func (r *AlertRepo) ListOpenBySensor(ctx context.Context, sensorID string) ([]*models.Alert, error) {
	alerts := []*models.Alert{}
	query := `
		SELECT * FROM alerts
		WHERE sensor_id = $1 AND status IN ($2, $3)
		ORDER BY created_at DESC`

	err := r.db.GetDB().SelectContext(ctx, &alerts, query,
		sensorID, models.AlertActive, models.AlertAcknowledged)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list open alerts", err)
	}

	return alerts, nil
}

func (r *AlertRepo) List(ctx context.Context, filters models.AlertFilters, page, limit int) (int64, []*models.Alert, error) {
	query := `
		SELECT *, COUNT(*) OVER() AS total_count
		FROM alerts
		WHERE 1=1
	`

	args := []interface{}{}
	if filters.SensorID != "" {
		args = append(args, filters.SensorID)
		query += parameterized(` AND sensor_id = `, len(args))
	}
	if filters.Status != "" {
		args = append(args, filters.Status)
		query += parameterized(` AND status = `, len(args))
	}
	if filters.Severity != "" {
		args = append(args, filters.Severity)
		query += parameterized(` AND severity = `, len(args))
	}
	if filters.Bound != "" {
		args = append(args, filters.Bound)
		query += parameterized(` AND bound = `, len(args))
	}

	args = append(args, limit, (page-1)*limit)
	query += parameterized(` ORDER BY created_at DESC LIMIT `, len(args)-1)
	query += parameterized(` OFFSET `, len(args))

	rows := []*alertWithCount{}

	err := r.db.GetDB().SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return 0, nil, errors.NewDatabaseError("failed to list alerts", err)
	}

	var total int64
	alerts := make([]*models.Alert, len(rows))
	for i, row := range rows {
		total = row.TotalCount
		alerts[i] = &row.Alert
	}

	return total, alerts, nil
}

// alertWithCount carries the window count the List query selects
// alongside each row.
type alertWithCount struct {
	models.Alert
	TotalCount int64 `db:"total_count"`
}

func (r *AlertRepo) CountOpenBySensor(ctx context.Context, sensorID string) (int64, error) {
	var count int64
	query := `
		SELECT COUNT(*) FROM alerts
		WHERE sensor_id = $1 AND status IN ($2, $3)`

	err := r.db.GetDB().GetContext(ctx, &count, query, sensorID, models.AlertActive, models.AlertAcknowledged)
	if err != nil {
		return 0, errors.NewDatabaseError("failed to count open alerts", err)
	}
	return count, nil
}

func (r *AlertRepo) DeleteBySensor(ctx context.Context, sensorID string, tx database.Transaction) error {
	query := `DELETE FROM alerts WHERE sensor_id = $1`

	result, err := tx.ExecContext(ctx, query, sensorID)
	if err != nil {
		return errors.NewDatabaseError("failed to delete alerts", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[AlertRepo] Deleted %d alerts for sensor %s", rows, sensorID)
	return nil
}
