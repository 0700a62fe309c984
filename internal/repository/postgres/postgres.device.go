// FilePath: internal/repository/postgres/postgres.device.go
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/ateliersud/iothub/internal/database"
	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/models"
	nuts "github.com/vaudience/go-nuts"
)

type DeviceRepo struct {
	PostgresBaseRepo
}

func NewDeviceRepository(db database.DB) *DeviceRepo {
	repo := &PostgresBaseRepo{db: db}
	return &DeviceRepo{PostgresBaseRepo: *repo}
}

func (r *DeviceRepo) Create(ctx context.Context, device *models.Device) error {
	query := `
		INSERT INTO devices (
			id, name, description, kind, location_id, active,
			sensor, actuator, metadata,
			last_seen, last_reading_at, created_at, updated_at
		) VALUES (
			:id, :name, :description, :kind, :location_id, :active,
			:sensor, :actuator, :metadata,
			:last_seen, :last_reading_at, :created_at, :updated_at
		)`

	_, err := r.db.GetDB().NamedExecContext(ctx, query, device)
	if err != nil {
		return errors.NewDatabaseError("failed to create device", err)
	}
	return nil
}

func (r *DeviceRepo) Get(ctx context.Context, id string) (*models.Device, error) {
	device := &models.Device{}
	query := `SELECT * FROM devices WHERE id = $1`

	err := r.db.GetDB().GetContext(ctx, device, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("device not found", err)
		}
		return nil, errors.NewDatabaseError("failed to get device", err)
	}
	return device, nil
}

func (r *DeviceRepo) Update(ctx context.Context, device *models.Device) error {
	query := `
		UPDATE devices SET
			name = :name,
			description = :description,
			location_id = :location_id,
			active = :active,
			sensor = :sensor,
			actuator = :actuator,
			metadata = :metadata,
			updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.GetDB().NamedExecContext(ctx, query, device)
	if err != nil {
		return errors.NewDatabaseError("failed to update device", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}

	return nil
}

func (r *DeviceRepo) Delete(ctx context.Context, id string) error {
	query := `DELETE FROM devices WHERE id = $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, id)
	if err != nil {
		return errors.NewDatabaseError("failed to delete device", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}

	return nil
}

func (r *DeviceRepo) DeleteWithData(ctx context.Context, id string, tx database.Transaction) error {
	query := `DELETE FROM devices WHERE id = $1`

	result, err := tx.ExecContext(ctx, query, id)
	if err != nil {
		return errors.NewDatabaseError("failed to delete device", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("device not found", nil)
	}

	return nil
}

func (r *DeviceRepo) SensorExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM devices WHERE id = $1 AND kind = $2)`

	err := r.db.GetDB().GetContext(ctx, &exists, query, id, models.KindSensor)
	if err != nil {
		return false, errors.NewDatabaseError("failed to check sensor existence", err)
	}
	return exists, nil
}

func (r *DeviceRepo) UpdateLastReading(ctx context.Context, id string, value float64, timestamp time.Time) error {
	query := `
		UPDATE devices SET
			sensor = jsonb_set(COALESCE(sensor, '{}'::jsonb), '{last_value}', to_jsonb($1::double precision)),
			last_reading_at = $2,
			last_seen = $2,
			updated_at = $2
		WHERE id = $3 AND kind = $4`

	result, err := r.db.GetDB().ExecContext(ctx, query, value, timestamp, id, models.KindSensor)
	if err != nil {
		return errors.NewDatabaseError("failed to update last reading", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("sensor not found", nil)
	}

	return nil
}

func (r *DeviceRepo) UpdateActuatorState(ctx context.Context, id string, actuator *models.ActuatorData) error {
	query := `
		UPDATE devices SET
			actuator = $1,
			last_seen = $2,
			updated_at = $2
		WHERE id = $3 AND kind = $4`

	result, err := r.db.GetDB().ExecContext(ctx, query, actuator, time.Now(), id, models.KindActuator)
	if err != nil {
		return errors.NewDatabaseError("failed to update actuator state", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	if rows == 0 {
		return errors.NewNotFoundError("actuator not found", nil)
	}

	nuts.L.Infof("[DeviceRepo] Updated actuator %s state to %s", id, actuator.State)
	return nil
}

func (r *DeviceRepo) List(ctx context.Context, filters models.DeviceFilters, page, limit int) (int64, []*models.Device, error) {
	query := `
		SELECT *, COUNT(*) OVER() AS total_count
		FROM devices
		WHERE 1=1
	`

	args := []interface{}{}
	if filters.Kind != "" {
		args = append(args, filters.Kind)
		query += parameterized(` AND kind = `, len(args))
	}
	if filters.LocationID != "" {
		args = append(args, filters.LocationID)
		query += parameterized(` AND location_id = `, len(args))
	}
	if filters.Active != nil {
		args = append(args, *filters.Active)
		query += parameterized(` AND active = `, len(args))
	}

	args = append(args, limit, (page-1)*limit)
	query += parameterized(` ORDER BY created_at DESC LIMIT `, len(args)-1)
	query += parameterized(` OFFSET `, len(args))

	rows := []*deviceWithCount{}

	err := r.db.GetDB().SelectContext(ctx, &rows, query, args...)
	if err != nil {
		return 0, nil, errors.NewDatabaseError("failed to list devices", err)
	}

	var total int64
	devices := make([]*models.Device, len(rows))
	for i, row := range rows {
		total = row.TotalCount
		devices[i] = &row.Device
	}

	return total, devices, nil
}

// deviceWithCount carries the window count the List query selects
// alongside each row.
type deviceWithCount struct {
	models.Device
	TotalCount int64 `db:"total_count"`
}

// parameterized appends the next positional placeholder to a clause
func parameterized(prefix string, n int) string {
	return fmt.Sprintf("%s$%d", prefix, n)
}
