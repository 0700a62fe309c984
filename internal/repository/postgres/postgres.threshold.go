// FilePath: internal/repository/postgres/postgres.threshold.go
package postgres

import (
	"context"
	"database/sql"

	"github.com/ateliersud/iothub/internal/database"
	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

type ThresholdRepo struct {
	PostgresBaseRepo
}

func NewThresholdRepository(db database.DB) *ThresholdRepo {
	repo := &PostgresBaseRepo{db: db}
	return &ThresholdRepo{PostgresBaseRepo: *repo}
}

func (r *ThresholdRepo) Create(ctx context.Context, threshold *models.Threshold) error {
	query := `
		INSERT INTO thresholds (
			id, sensor_id, bound, severity, value, active,
			created_at, updated_at
		) VALUES (
			:id, :sensor_id, :bound, :severity, :value, :active,
			:created_at, :updated_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, threshold)
	if err != nil {
		return errors.NewDatabaseError("failed to create threshold", err)
	}
	return nil
}

func (r *ThresholdRepo) Get(ctx context.Context, id string) (*models.Threshold, error) {
	threshold := &models.Threshold{}
	query := `SELECT * FROM thresholds WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, threshold, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("threshold not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get threshold", err)
	}
	return threshold, nil
}

func (r *ThresholdRepo) Update(ctx context.Context, threshold *models.Threshold) error {
	query := `
		UPDATE thresholds SET
			value = :value,
			active = :active,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, threshold)
	if err != nil {
		return errors.NewDatabaseError("failed to update threshold", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("threshold not found", nil)
	}

	return nil
}

func (r *ThresholdRepo) ListBySensor(ctx context.Context, sensorID string) ([]*models.Threshold, error) {
	thresholds := []*models.Threshold{}
	query := `SELECT * FROM thresholds WHERE sensor_id = $1 ORDER BY created_at DESC`

	err := r.db.GetDB().SelectContext(ctx, &thresholds, query, sensorID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list thresholds", err)
	}

	return thresholds, nil
}

func (r *ThresholdRepo) ListActiveBySensor(ctx context.Context, sensorID string) ([]*models.Threshold, error) {
	thresholds := []*models.Threshold{}
	query := `SELECT * FROM thresholds WHERE sensor_id = $1 AND active = TRUE ORDER BY created_at DESC`

	err := r.db.GetDB().SelectContext(ctx, &thresholds, query, sensorID)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to list active thresholds", err)
	}

	return thresholds, nil
}

func (r *ThresholdRepo) GetActiveBySensorAndBound(ctx context.Context, sensorID string, bound models.BoundKind) ([]*models.Threshold, error) {
	thresholds := []*models.Threshold{}
	query := `
		SELECT * FROM thresholds
		WHERE sensor_id = $1 AND bound = $2 AND active = TRUE
		ORDER BY severity, created_at DESC`

	err := r.db.GetDB().SelectContext(ctx, &thresholds, query, sensorID, bound)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get active thresholds by bound", err)
	}

	return thresholds, nil
}

func (r *ThresholdRepo) DeleteBySensor(ctx context.Context, sensorID string, tx database.Transaction) error {
	query := `DELETE FROM thresholds WHERE sensor_id = $1`

	result, err := tx.ExecContext(ctx, query, sensorID)
	if err != nil {
		return errors.NewDatabaseError("failed to delete thresholds", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[ThresholdRepo] Deleted %d thresholds for sensor %s", rows, sensorID)
	return nil
}
