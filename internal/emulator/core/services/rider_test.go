package services

import (
	"context"
	"testing"
	"time"

	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/mylogger"
)

func newTestRider(dispatch *stubDispatch, transport *stubTransport) *RiderSession {
	r := NewRiderSession(model.Credential{ParticipantID: "u1", AccessToken: "app-token"}, transport, dispatch, 0, mylogger.Discard())
	r.spawn = syncSpawn
	return r
}

func TestRiderEvaluatesOnceOnArrival(t *testing.T) {
	dispatch := &stubDispatch{}
	r := newTestRider(dispatch, &stubTransport{})

	for _, status := range []string{"matching", "dispatching", "dispatched", "carrying", "arrived"} {
		r.handle(model.RideNotification{RideID: "42", Status: status})
	}
	r.handle(model.RideNotification{RideID: "42", Status: "arrived"})

	evals := dispatch.Evaluations()
	if len(evals) != 1 || evals[0] != (evalCall{RideID: "42", Score: DefaultEvaluation}) {
		t.Fatalf("expected a single evaluation of 42, got %v", evals)
	}
}

func TestRiderIgnoresFinishedRides(t *testing.T) {
	dispatch := &stubDispatch{}
	r := newTestRider(dispatch, &stubTransport{})

	r.handle(model.RideNotification{RideID: "1", Status: "canceled"})
	r.handle(model.RideNotification{RideID: "1", Status: "arrived"})
	r.handle(model.RideNotification{RideID: "2", Status: "COMPLETED"})
	r.handle(model.RideNotification{RideID: "2", Status: "ARRIVED"})
	r.handle(model.RideNotification{RideID: "3", Status: "bogus"})

	if evals := dispatch.Evaluations(); len(evals) != 0 {
		t.Fatalf("finished rides must not be evaluated, got %v", evals)
	}
}

func TestRiderFollowsStream(t *testing.T) {
	dispatch := &stubDispatch{}
	transport := &stubTransport{}
	r := newTestRider(dispatch, transport)
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer r.Stop()

	transport.send(model.RideNotification{RideID: "9", Status: "carrying"})
	transport.send(model.RideNotification{RideID: "9", Status: "arrived"})

	deadline := time.Now().Add(time.Second)
	for len(dispatch.Evaluations()) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("no evaluation submitted")
		}
		time.Sleep(time.Millisecond)
	}
	if latest, ok := r.Latest(); !ok || latest.Status != "arrived" {
		t.Fatalf("Latest = %+v", latest)
	}
}
