package driven

import (
	"context"

	"ride-sim/internal/emulator/core/domain/dto"
	"ride-sim/internal/emulator/core/domain/model"

	"github.com/jackc/pgx/v5"
)

type IDB interface {
	GetConn() *pgx.Conn
	IsAlive() error
	Close() error
}

// IPositionStore caches where each vehicle was last seen.
type IPositionStore interface {
	SaveCurrent(ctx context.Context, vehicleID string, coord model.Coordinate) error
	SaveStart(ctx context.Context, vehicleID string, coord model.Coordinate) error
	Load(ctx context.Context, vehicleID string) (model.Coordinate, bool, error)
}

// IEventJournal keeps a log of what emulators did. Recent returns the newest
// events of a vehicle first.
type IEventJournal interface {
	Record(ctx context.Context, event dto.EmulatorEvent) error
	Recent(ctx context.Context, vehicleID string, limit int) ([]dto.EmulatorEvent, error)
}
