// FilePath: internal/cache/cache.go
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ateliersud/iothub/internal/config"
	"github.com/ateliersud/iothub/internal/errors"
	"github.com/ateliersud/iothub/internal/models"
	"github.com/redis/go-redis/v9"
	nuts "github.com/vaudience/go-nuts"
)

const (
	latestReadingKeyPrefix = "iothub:sensor:latest:"
	openAlertsKeyPrefix    = "iothub:sensor:open_alerts:"
)

// StatusCache keeps per-sensor monitoring state in Redis so dashboards
// can poll device status without touching the time-series store.
type StatusCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and verifies the connection
func New(cfg config.RedisConfig) (*StatusCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("error connecting to Redis: %w", err)
	}

	nuts.L.Infof("[StatusCache] Connected to Redis at %s:%d (db %d)", cfg.Host, cfg.Port, cfg.DB)

	ttl := cfg.StatusTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StatusCache{client: client, ttl: ttl}, nil
}

// Close releases the Redis connection
func (c *StatusCache) Close() error {
	return c.client.Close()
}

// SetLatestReading stores the latest reading for a sensor
func (c *StatusCache) SetLatestReading(ctx context.Context, reading *models.Reading) error {
	data, err := json.Marshal(reading)
	if err != nil {
		return errors.NewInternalError("failed to marshal reading", err)
	}

	if err := c.client.Set(ctx, latestReadingKeyPrefix+reading.SensorID, data, c.ttl).Err(); err != nil {
		return errors.NewUnavailableError("failed to cache latest reading", err)
	}
	return nil
}

// GetLatestReading returns the cached latest reading for a sensor
func (c *StatusCache) GetLatestReading(ctx context.Context, sensorID string) (*models.Reading, error) {
	val, err := c.client.Get(ctx, latestReadingKeyPrefix+sensorID).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, errors.NewNotFoundError("no cached reading for sensor", err)
		}
		return nil, errors.NewUnavailableError("failed to get cached reading", err)
	}

	reading := &models.Reading{}
	if err := json.Unmarshal([]byte(val), reading); err != nil {
		return nil, errors.NewInternalError("failed to unmarshal cached reading", err)
	}
	return reading, nil
}

// SetOpenAlertCount stores the current open alert count for a sensor
func (c *StatusCache) SetOpenAlertCount(ctx context.Context, sensorID string, count int64) error {
	if err := c.client.Set(ctx, openAlertsKeyPrefix+sensorID, count, c.ttl).Err(); err != nil {
		return errors.NewUnavailableError("failed to cache open alert count", err)
	}
	return nil
}

// GetOpenAlertCount returns the cached open alert count for a sensor
func (c *StatusCache) GetOpenAlertCount(ctx context.Context, sensorID string) (int64, error) {
	count, err := c.client.Get(ctx, openAlertsKeyPrefix+sensorID).Int64()
	if err != nil {
		if err == redis.Nil {
			return 0, errors.NewNotFoundError("no cached alert count for sensor", err)
		}
		return 0, errors.NewUnavailableError("failed to get cached alert count", err)
	}
	return count, nil
}

// Invalidate drops all cached state for a sensor
func (c *StatusCache) Invalidate(ctx context.Context, sensorID string) error {
	keys := []string{latestReadingKeyPrefix + sensorID, openAlertsKeyPrefix + sensorID}
	if err := c.client.Del(ctx, keys...).Err(); err != nil {
		return errors.NewUnavailableError("failed to invalidate sensor cache", err)
	}
	return nil
}
