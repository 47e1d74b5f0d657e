package services

import (
	"context"
	"sync"

	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/emulator/core/ports/driven"
	"ride-sim/internal/mylogger"
)

const DefaultEvaluation = 5

// RiderSession plays the rider: it follows the app notification stream and
// closes every ride it sees arrive with an evaluation.
type RiderSession struct {
	cred     model.Credential
	dispatch driven.IDispatchClient
	score    int
	log      mylogger.Logger
	channel  *NotificationChannel
	spawn    func(func())

	mu    sync.Mutex
	ctx   context.Context
	rides map[string]*riderRide
}

type riderRide struct {
	status    model.RiderStatus
	evaluated bool
	finished  bool
}

func NewRiderSession(cred model.Credential, transport driven.INotificationTransport, dispatch driven.IDispatchClient, score int, log mylogger.Logger) *RiderSession {
	if score <= 0 {
		score = DefaultEvaluation
	}
	r := &RiderSession{
		cred:     cred,
		dispatch: dispatch,
		score:    score,
		log:      log.With("rider_id", cred.ParticipantID),
		spawn:    func(f func()) { go f() },
		ctx:      context.Background(),
		rides:    make(map[string]*riderRide),
	}
	r.channel = NewNotificationChannel(transport, cred, log, r.handle)
	return r
}

func (r *RiderSession) Start(ctx context.Context) error {
	r.mu.Lock()
	r.ctx = ctx
	r.mu.Unlock()
	return r.channel.Connect(ctx)
}

func (r *RiderSession) Stop() {
	r.channel.Close()
}

func (r *RiderSession) Latest() (model.RideNotification, bool) {
	return r.channel.Latest()
}

func (r *RiderSession) handle(n model.RideNotification) {
	status, ok := n.RiderStatus()
	if !ok {
		r.log.Action("notification_ignored").Debug("unknown status", "ride_id", n.RideID, "status", n.Status)
		return
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	ride, seen := r.rides[n.RideID]
	if !seen {
		ride = &riderRide{}
		r.rides[n.RideID] = ride
	} else if ride.status != status && !model.CanRiderTransition(ride.status, status) {
		r.log.Action("notification_out_of_order").Warn("status does not follow the previous one",
			"ride_id", n.RideID, "from", ride.status, "to", status)
	}
	ride.status = status
	if ride.finished {
		return
	}

	switch status {
	case model.RiderArrived:
		if ride.evaluated {
			return
		}
		ride.evaluated = true
		ctx, rideID := r.ctx, n.RideID
		r.spawn(func() { r.evaluate(ctx, rideID) })
	case model.RiderCompleted, model.RiderCanceled:
		ride.finished = true
		r.log.Action("ride_finished").Info("ride finished", "ride_id", n.RideID, "status", status)
	}
}

func (r *RiderSession) evaluate(ctx context.Context, rideID string) {
	log := r.log.With("ride_id", rideID)
	if err := r.dispatch.SubmitEvaluation(ctx, r.cred, rideID, r.score); err != nil {
		log.Action("evaluation_failed").Warn("evaluation failed", "error", err.Error())
		return
	}
	log.Action("evaluation_submitted").Info("evaluation submitted", "score", r.score)
}
