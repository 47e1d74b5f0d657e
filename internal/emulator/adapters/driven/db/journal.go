package db

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"ride-sim/internal/emulator/core/domain/dto"
	ports "ride-sim/internal/emulator/core/ports/driven"
)

const createEventsTable = `
CREATE TABLE IF NOT EXISTS emulator_events (
    id          UUID PRIMARY KEY,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
    vehicle_id  TEXT NOT NULL,
    ride_id     TEXT,
    event_type  TEXT NOT NULL,
    event_data  JSONB NOT NULL
);
CREATE INDEX IF NOT EXISTS emulator_events_vehicle_idx ON emulator_events (vehicle_id, created_at);`

const insertEvent = `
INSERT INTO emulator_events (id, created_at, vehicle_id, ride_id, event_type, event_data)
VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6)`

// EventJournal writes emulator events to Postgres. The connection is shared,
// so statements are serialized.
type EventJournal struct {
	db ports.IDB
	mu sync.Mutex
}

var _ ports.IEventJournal = (*EventJournal)(nil)

func NewEventJournal(db ports.IDB) *EventJournal {
	return &EventJournal{db: db}
}

func (j *EventJournal) Migrate(ctx context.Context) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	if _, err := j.db.GetConn().Exec(ctx, createEventsTable); err != nil {
		return fmt.Errorf("create emulator_events: %w", err)
	}
	return nil
}

func (j *EventJournal) Record(ctx context.Context, event dto.EmulatorEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	j.mu.Lock()
	defer j.mu.Unlock()
	_, err = j.db.GetConn().Exec(ctx, insertEvent,
		event.ID, event.OccurredAt, event.VehicleID, event.RideID, event.Type, data)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// Recent returns the last limit events of a vehicle, newest first.
func (j *EventJournal) Recent(ctx context.Context, vehicleID string, limit int) ([]dto.EmulatorEvent, error) {
	j.mu.Lock()
	defer j.mu.Unlock()
	rows, err := j.db.GetConn().Query(ctx,
		`SELECT event_data FROM emulator_events WHERE vehicle_id = $1 ORDER BY created_at DESC LIMIT $2`,
		vehicleID, limit)
	if err != nil {
		return nil, fmt.Errorf("select events: %w", err)
	}
	defer rows.Close()

	var events []dto.EmulatorEvent
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		var ev dto.EmulatorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, fmt.Errorf("unmarshal event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}
