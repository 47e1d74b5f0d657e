package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/mylogger"
)

func TestChannelDedup(t *testing.T) {
	var got []model.RideNotification
	c := NewNotificationChannel(&stubTransport{}, model.Credential{ParticipantID: "c1"}, mylogger.Discard(),
		func(n model.RideNotification) { got = append(got, n) })

	n := model.RideNotification{RideID: "42", Status: "ENROUTE"}
	if !c.deliver(n) {
		t.Fatal("first delivery must propagate")
	}
	n.Pickup = model.Coordinate{Latitude: 9}
	if c.deliver(n) {
		t.Fatal("same ride and status must be dropped")
	}
	if !c.deliver(model.RideNotification{RideID: "42", Status: "PICKUP"}) {
		t.Fatal("status change must propagate")
	}
	if !c.deliver(model.RideNotification{RideID: "43", Status: "PICKUP"}) {
		t.Fatal("ride change must propagate")
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 updates, got %d", len(got))
	}

	latest, ok := c.Latest()
	if !ok || latest.RideID != "43" {
		t.Fatalf("Latest = %+v, %v", latest, ok)
	}
}

func TestChannelLatestIsACopy(t *testing.T) {
	c := NewNotificationChannel(&stubTransport{}, model.Credential{}, mylogger.Discard(), nil)
	fare := 100
	c.deliver(model.RideNotification{RideID: "1", Status: "MATCHING", Fare: &fare})

	latest, _ := c.Latest()
	*latest.Fare = 999
	again, _ := c.Latest()
	if *again.Fare != 100 {
		t.Fatal("consumer mutated the channel's value")
	}
}

func TestChannelStreamsAndCloses(t *testing.T) {
	transport := &stubTransport{}
	updates := make(chan model.RideNotification, 4)
	c := NewNotificationChannel(transport, model.Credential{ParticipantID: "c1", AccessToken: "t"}, mylogger.Discard(),
		func(n model.RideNotification) { updates <- n })

	if err := c.Connect(context.Background()); err != nil {
		t.Fatalf("Connect: %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, ErrChannelConnected) {
		t.Fatalf("second Connect = %v", err)
	}

	transport.send(model.RideNotification{RideID: "1", Status: "MATCHING"})
	transport.send(model.RideNotification{RideID: "1", Status: "MATCHING"})
	transport.send(model.RideNotification{RideID: "1", Status: "ENROUTE"})

	for _, want := range []string{"MATCHING", "ENROUTE"} {
		select {
		case n := <-updates:
			if n.Status != want {
				t.Fatalf("got %s, want %s", n.Status, want)
			}
		case <-time.After(time.Second):
			t.Fatalf("no update for %s", want)
		}
	}

	c.Close()
	c.Close()
	if err := c.Connect(context.Background()); !errors.Is(err, ErrChannelClosed) {
		t.Fatalf("Connect after Close = %v", err)
	}
	select {
	case n := <-updates:
		t.Fatalf("unexpected update %+v", n)
	default:
	}
}

func TestChannelSubscribeError(t *testing.T) {
	boom := errors.New("refused")
	c := NewNotificationChannel(&stubTransport{err: boom}, model.Credential{}, mylogger.Discard(), nil)
	if err := c.Connect(context.Background()); !errors.Is(err, boom) {
		t.Fatalf("Connect = %v", err)
	}
	if err := c.Connect(context.Background()); !errors.Is(err, boom) {
		t.Fatal("a failed Connect must leave the channel reconnectable")
	}
	c.Close()
}
