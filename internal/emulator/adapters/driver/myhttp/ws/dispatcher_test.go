package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"ride-sim/internal/emulator/adapters/driver/myhttp/middleware"
	"ride-sim/internal/emulator/core/domain/dto"
	"ride-sim/internal/mylogger"

	"github.com/gorilla/websocket"
)

type stubAuth struct{}

func (stubAuth) Authenticate(token string) (middleware.Identity, error) {
	if token != "good" {
		return middleware.Identity{}, middleware.ErrInvalidToken
	}
	return middleware.Identity{UserID: "admin1", Role: middleware.RoleAdmin}, nil
}

// stubFleet only serves snapshots; the feed never drives the fleet.
type stubFleet struct {
	calls atomic.Int32
}

func (s *stubFleet) StartEmulator(string) error { return nil }
func (s *stubFleet) StopEmulator(string) error { return nil }
func (s *stubFleet) SetActiveVehicle(string) error { return nil }
func (s *stubFleet) SetAvailability(context.Context, string, bool) error { return nil }
func (s *stubFleet) OverrideNotification(string, dto.NotificationData) error { return nil }
func (s *stubFleet) SetFleetVisualDensity(bool) {}
func (s *stubFleet) HandleConfig(dto.ConfigMessage) error { return nil }
func (s *stubFleet) Vehicle(string) (dto.VehicleView, error) { return dto.VehicleView{}, errors.New("unused") }
func (s *stubFleet) Vehicles() []dto.VehicleView { return nil }
func (s *stubFleet) Ghosts() []dto.GhostView { return nil }
func (s *stubFleet) Events(context.Context, string, int) ([]dto.EmulatorEvent, error) {
	return nil, nil
}

func (s *stubFleet) Snapshot() dto.FleetSnapshot {
	n := s.calls.Add(1)
	return dto.FleetSnapshot{
		Vehicles: []dto.VehicleView{{ID: "c1", Coordinate: dto.Coordinate{Latitude: int(n)}}},
		Ghosts:   []dto.GhostView{},
	}
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func sendAuth(t *testing.T, conn *websocket.Conn, token string) {
	t.Helper()
	data, _ := json.Marshal(dto.AuthMessage{Token: token})
	if err := conn.WriteJSON(dto.WSEvent{Type: dto.WSEventAuth, Data: data}); err != nil {
		t.Fatal(err)
	}
}

func readEvent(t *testing.T, conn *websocket.Conn) dto.WSEvent {
	t.Helper()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev dto.WSEvent
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	return ev
}

func TestDispatcher_AuthThenSnapshots(t *testing.T) {
	d := NewDispatcher(mylogger.Discard(), &stubFleet{}, stubAuth{})
	srv := httptest.NewServer(d.WsHandler())
	defer srv.Close()
	defer d.CloseAll()

	conn := dial(t, srv)
	sendAuth(t, conn, "good")

	ev := readEvent(t, conn)
	var res dto.AuthResult
	if err := json.Unmarshal(ev.Data, &res); err != nil {
		t.Fatal(err)
	}
	if ev.Type != dto.WSEventAuth || !res.Success || res.UserID != "admin1" {
		t.Fatalf("auth reply = %s %+v", ev.Type, res)
	}

	first := readEvent(t, conn)
	if first.Type != dto.WSEventFleetSnapshot {
		t.Fatalf("type = %s, want snapshot", first.Type)
	}

	d.Broadcast()
	second := readEvent(t, conn)
	var snap dto.FleetSnapshot
	if err := json.Unmarshal(second.Data, &snap); err != nil {
		t.Fatal(err)
	}
	if len(snap.Vehicles) != 1 || snap.Vehicles[0].Coordinate.Latitude != 2 {
		t.Errorf("snapshot = %+v", snap)
	}
	if d.Len() != 1 {
		t.Errorf("clients = %d, want 1", d.Len())
	}
}

func TestDispatcher_RejectsBadAuth(t *testing.T) {
	tests := []struct {
		name string
		send func(*websocket.Conn)
	}{
		{"bad token", func(c *websocket.Conn) { sendAuth(t, c, "bad") }},
		{"not auth first", func(c *websocket.Conn) {
			_ = c.WriteJSON(dto.WSEvent{Type: "hello"})
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDispatcher(mylogger.Discard(), &stubFleet{}, stubAuth{})
			srv := httptest.NewServer(d.WsHandler())
			defer srv.Close()

			conn := dial(t, srv)
			tt.send(conn)

			ev := readEvent(t, conn)
			var res dto.AuthResult
			_ = json.Unmarshal(ev.Data, &res)
			if res.Success {
				t.Fatal("auth should fail")
			}
			_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
			if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.ClosePolicyViolation) {
				t.Errorf("err = %v, want policy violation close", err)
			}
			if d.Len() != 0 {
				t.Errorf("clients = %d, want 0", d.Len())
			}
		})
	}
}

func TestDispatcher_AuthTimeout(t *testing.T) {
	d := NewDispatcher(mylogger.Discard(), &stubFleet{}, stubAuth{})
	d.authTimeout = 50 * time.Millisecond
	srv := httptest.NewServer(d.WsHandler())
	defer srv.Close()

	conn := dial(t, srv)
	ev := readEvent(t, conn)
	var res dto.AuthResult
	_ = json.Unmarshal(ev.Data, &res)
	if ev.Type != dto.WSEventAuth || res.Success {
		t.Errorf("reply = %s %+v, want failed auth", ev.Type, res)
	}
}

func TestDispatcher_RunClosesClientsOnCancel(t *testing.T) {
	d := NewDispatcher(mylogger.Discard(), &stubFleet{}, stubAuth{})
	srv := httptest.NewServer(d.WsHandler())
	defer srv.Close()

	conn := dial(t, srv)
	sendAuth(t, conn, "good")
	readEvent(t, conn)
	readEvent(t, conn)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		d.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	if ev := readEvent(t, conn); ev.Type != dto.WSEventFleetSnapshot {
		t.Fatalf("type = %s, want periodic snapshot", ev.Type)
	}
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	if d.Len() != 0 {
		t.Errorf("clients = %d, want 0", d.Len())
	}
}
