// FilePath: internal/repository/timescale/timescale.reading.go
package timescale

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

type ReadingRepo struct {
	TimescaleBaseRepo
}

func NewReadingRepository(db database.DB) (*ReadingRepo, error) {
	repo := &ReadingRepo{TimescaleBaseRepo: TimescaleBaseRepo{db: db}}
	if err := repo.initializeSchema(); err != nil {
		return nil, err
	}
	return repo, nil
}

func (r *ReadingRepo) initializeSchema() error {
	// Create hypertable for sensor readings
	queries := []string{
		`CREATE TABLE IF NOT EXISTS readings (
			id TEXT PRIMARY KEY,
			sensor_id TEXT NOT NULL,
			value DOUBLE PRECISION NOT NULL,
			timestamp TIMESTAMPTZ NOT NULL,
			kind TEXT NOT NULL DEFAULT 'automatic'
		)`,
		`SELECT create_hypertable('readings', 'timestamp',
			chunk_time_interval => INTERVAL '1 day',
			if_not_exists => TRUE
		)`,
		// Continuous aggregates for the readings endpoints
		`CREATE MATERIALIZED VIEW IF NOT EXISTS readings_hourly
			WITH (timescaledb.continuous) AS
			SELECT sensor_id,
				time_bucket('1 hour', timestamp) AS bucket,
				MIN(value) as min_value,
				MAX(value) as max_value,
				AVG(value) as avg_value,
				COUNT(*) as reading_count
			FROM readings
			GROUP BY sensor_id, time_bucket('1 hour', timestamp)`,
		`CREATE MATERIALIZED VIEW IF NOT EXISTS readings_daily
			WITH (timescaledb.continuous) AS
			SELECT sensor_id,
				time_bucket('1 day', timestamp) AS bucket,
				MIN(value) as min_value,
				MAX(value) as max_value,
				AVG(value) as avg_value,
				COUNT(*) as reading_count
			FROM readings
			GROUP BY sensor_id, time_bucket('1 day', timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_readings_sensor_timestamp
         ON readings(sensor_id, timestamp DESC)`,
	}

	for _, query := range queries {
		_, err := r.db.GetDB().Exec(query)
		if err != nil {
			return errors.NewDatabaseError("failed to initialize schema", err)
		}
	}

	r.setupRetentionPolicy()
	return nil
}

func (r *ReadingRepo) setupRetentionPolicy() {
	query := `
		SELECT add_retention_policy('readings',
			INTERVAL '13 months',
			if_not_exists => TRUE
		)`

	_, err := r.db.GetDB().Exec(query)
	if err != nil {
		nuts.L.Errorf("[TimescaleDB] Failed to set up readings retention policy: %v", err)
	}
}

func (r *ReadingRepo) Insert(ctx context.Context, reading *models.Reading) error {
	if reading.ID == "" {
		reading.ID = nuts.NID("rd", 12)
	}
	query := `
		INSERT INTO readings (id, sensor_id, value, timestamp, kind)
		VALUES ($1, $2, $3, $4, $5)`

	_, err := r.db.GetDB().ExecContext(ctx, query,
		reading.ID, reading.SensorID, reading.Value, reading.Timestamp, reading.Kind)
	if err != nil {
		return errors.NewDatabaseError("failed to insert reading", err)
	}
	return nil
}

func (r *ReadingRepo) GetRange(ctx context.Context, sensorID string, start, end time.Time) ([]models.Reading, error) {
	readings := []models.Reading{}
	query := `
		SELECT id, sensor_id, value, timestamp, kind
		FROM readings
		WHERE sensor_id = $1 AND timestamp BETWEEN $2 AND $3
		ORDER BY timestamp DESC`

	err := r.db.GetDB().SelectContext(ctx, &readings, query, sensorID, start, end)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get readings", err)
	}
	return readings, nil
}

func (r *ReadingRepo) GetAggregates(ctx context.Context, sensorID string, start, end time.Time, interval string) ([]models.ReadingAggregate, error) {
	var tableName string
	switch interval {
	case "hour":
		tableName = "readings_hourly"
	case "day":
		tableName = "readings_daily"
	default:
		return nil, errors.NewValidationError("invalid interval", nil)
	}

	aggregates := []models.ReadingAggregate{}
	query := fmt.Sprintf(`
		SELECT
			sensor_id,
			min_value as min,
			max_value as max,
			avg_value as avg,
			reading_count as count,
			bucket as start_time,
			bucket + INTERVAL '1 %s' as end_time
		FROM %s
		WHERE sensor_id = $1 AND bucket BETWEEN $2 AND $3
		ORDER BY bucket DESC`, interval, tableName)

	err := r.db.GetDB().SelectContext(ctx, &aggregates, query, sensorID, start, end)
	if err != nil {
		return nil, errors.NewDatabaseError("failed to get reading aggregates", err)
	}
	return aggregates, nil
}

func (r *ReadingRepo) GetLatest(ctx context.Context, sensorID string) (*models.Reading, error) {
	reading := &models.Reading{}
	query := `
        SELECT id, sensor_id, value, timestamp, kind
        FROM readings
        WHERE sensor_id = $1
        ORDER BY timestamp DESC
        LIMIT 1`

	err := r.db.GetDB().GetContext(ctx, reading, query, sensorID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.NewNotFoundError("no readings for sensor", err)
		}
		return nil, errors.NewDatabaseError("failed to get latest reading", err)
	}
	return reading, nil
}

func (r *ReadingRepo) DeleteBySensor(ctx context.Context, sensorID string) error {
	query := `DELETE FROM readings WHERE sensor_id = $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, sensorID)
	if err != nil {
		return errors.NewDatabaseError("failed to delete readings", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[TimescaleDB] Deleted %d readings for sensor %s", rows, sensorID)
	return nil
}

func (r *ReadingRepo) DeleteOld(ctx context.Context, before time.Time) error {
	query := `DELETE FROM readings WHERE timestamp < $1`

	result, err := r.db.GetDB().ExecContext(ctx, query, before)
	if err != nil {
		return errors.NewDatabaseError("failed to delete old readings", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewDatabaseError("failed to get rows affected", err)
	}

	nuts.L.Infof("[TimescaleDB] Deleted %d readings before %v", rows, before)
	return nil
}
