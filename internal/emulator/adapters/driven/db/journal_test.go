package db

import (
	"context"
	"os"
	"testing"
	"time"

	"ride-sim/internal/emulator/core/domain/dto"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type testDB struct {
	conn *pgx.Conn
}

func (d *testDB) GetConn() *pgx.Conn { return d.conn }
func (d *testDB) IsAlive() error     { return d.conn.Ping(context.Background()) }
func (d *testDB) Close() error       { return d.conn.Close(context.Background()) }

// Runs against TEST_DATABASE_URL, skipped without it.
func TestEventJournalRoundTrip(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	conn, err := pgx.Connect(ctx, url)
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	db := &testDB{conn: conn}
	defer db.Close()

	j := NewEventJournal(db)
	if err := j.Migrate(ctx); err != nil {
		t.Fatalf("Migrate: %v", err)
	}

	vehicleID := "test-" + uuid.NewString()
	c := dto.Coordinate{Latitude: 3, Longitude: 2}
	for i, typ := range []string{dto.EventStatusPushed, dto.EventForcedProgress} {
		ev := dto.EmulatorEvent{
			ID:         uuid.NewString(),
			Type:       typ,
			VehicleID:  vehicleID,
			RideID:     "42",
			Status:     "PICKUP",
			Coordinate: &c,
			OccurredAt: time.Now().UTC().Add(time.Duration(i) * time.Second),
		}
		if err := j.Record(ctx, ev); err != nil {
			t.Fatalf("Record: %v", err)
		}
	}

	events, err := j.Recent(ctx, vehicleID, 10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 || events[0].Type != dto.EventForcedProgress {
		t.Fatalf("unexpected events %+v", events)
	}
	if events[0].Coordinate == nil || *events[0].Coordinate != c {
		t.Fatalf("coordinate lost: %+v", events[0])
	}
	_, _ = conn.Exec(ctx, `DELETE FROM emulator_events WHERE vehicle_id = $1`, vehicleID)
}
