package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"ride-sim/internal/config"
	"ride-sim/internal/emulator/core/domain/model"
	ports "ride-sim/internal/emulator/core/ports/driven"

	"github.com/redis/go-redis/v9"
)

const (
	fieldCurrentLat = "current_latitude"
	fieldCurrentLon = "current_longitude"
	fieldStartLat   = "start_latitude"
	fieldStartLon   = "start_longitude"
)

// PositionStore keeps the last known and the ride start coordinate of every
// vehicle in a Redis hash, so a restarted fleet resumes where it stopped.
type PositionStore struct {
	rdb *redis.Client
}

var _ ports.IPositionStore = (*PositionStore)(nil)

func Connect(ctx context.Context, cfg *config.Redisconfig) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func NewPositionStore(rdb *redis.Client) *PositionStore {
	return &PositionStore{rdb: rdb}
}

func vehicleKey(vehicleID string) string {
	return "emulator:vehicle:" + vehicleID
}

func (s *PositionStore) SaveCurrent(ctx context.Context, vehicleID string, coord model.Coordinate) error {
	return s.rdb.HSet(ctx, vehicleKey(vehicleID),
		fieldCurrentLat, coord.Latitude,
		fieldCurrentLon, coord.Longitude,
	).Err()
}

func (s *PositionStore) SaveStart(ctx context.Context, vehicleID string, coord model.Coordinate) error {
	return s.rdb.HSet(ctx, vehicleKey(vehicleID),
		fieldStartLat, coord.Latitude,
		fieldStartLon, coord.Longitude,
	).Err()
}

// Load returns the last reported coordinate, false when there is none.
func (s *PositionStore) Load(ctx context.Context, vehicleID string) (model.Coordinate, bool, error) {
	return s.load(ctx, vehicleID, fieldCurrentLat, fieldCurrentLon)
}

// LoadStart returns where the vehicle accepted its last ride.
func (s *PositionStore) LoadStart(ctx context.Context, vehicleID string) (model.Coordinate, bool, error) {
	return s.load(ctx, vehicleID, fieldStartLat, fieldStartLon)
}

func (s *PositionStore) load(ctx context.Context, vehicleID, latField, lonField string) (model.Coordinate, bool, error) {
	vals, err := s.rdb.HMGet(ctx, vehicleKey(vehicleID), latField, lonField).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return model.Coordinate{}, false, nil
		}
		return model.Coordinate{}, false, err
	}
	if len(vals) != 2 || vals[0] == nil || vals[1] == nil {
		return model.Coordinate{}, false, nil
	}
	lat, err := toInt(vals[0])
	if err != nil {
		return model.Coordinate{}, false, fmt.Errorf("%s of %s: %w", latField, vehicleID, err)
	}
	lon, err := toInt(vals[1])
	if err != nil {
		return model.Coordinate{}, false, fmt.Errorf("%s of %s: %w", lonField, vehicleID, err)
	}
	return model.Coordinate{Latitude: lat, Longitude: lon}, true, nil
}

func toInt(v any) (int, error) {
	s, ok := v.(string)
	if !ok {
		return 0, fmt.Errorf("unexpected type %T", v)
	}
	return strconv.Atoi(s)
}
