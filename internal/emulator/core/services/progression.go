package services

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"ride-sim/internal/emulator/core/domain/dto"
	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/emulator/core/myerrors"
)

// leg is one position-triggered stretch of a ride: ENROUTE to the pickup or
// CARRYING to the destination. It is resolved once, either by the
// vehicle reaching target or by the fallback timer.
type leg struct {
	// ctx is the loop context the leg was opened under. The fallback issues
	// its network calls with it, since the timer's own context is canceled
	// on resolution.
	ctx        context.Context
	rideID     string
	status     model.RideStatus
	target     model.Coordinate
	generation uint64
	timer      *Task
	resolved   bool
	// retry is set off the lock by the goroutine that pushed.
	retry      atomic.Bool
}

func (e *Emulator) fallbackFor(status model.RideStatus) time.Duration {
	if status == model.StatusCarrying {
		return e.cfg.DropoffFallback
	}
	return e.cfg.PickupFallback
}

// legLocked returns the leg for (rideID, status), arming its fallback when the
// leg is new.
func (e *Emulator) legLocked(ctx context.Context, rideID string, status model.RideStatus, target model.Coordinate) *leg {
	if l := e.leg; l != nil && l.rideID == rideID && l.status == status {
		return l
	}
	e.dropLegLocked()

	l := &leg{ctx: ctx, rideID: rideID, status: status, target: target, generation: e.generation}
	l.timer = After(ctx, e.fallbackFor(status), func(context.Context) {
		e.forceLeg(l)
	})
	e.leg = l
	e.log.Action("fallback_armed").Debug("forced progression armed",
		"ride_id", rideID, "status", status, "after", e.fallbackFor(status).String())
	return l
}

func (e *Emulator) dropLegLocked() {
	if e.leg != nil {
		e.leg.timer.Cancel()
		e.leg = nil
	}
}

// forceLeg runs on the fallback goroutine. It snaps the vehicle onto the
// target unless the leg was resolved or abandoned meanwhile.
func (e *Emulator) forceLeg(l *leg) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if l.ctx.Err() != nil || l.resolved || e.leg != l || l.generation != e.generation || !e.vehicle.Active {
		return
	}
	e.vehicle.Coordinate = l.target
	e.resolveLegLocked(l.ctx, e.vehicle.Credential(), l, "fallback")
}

// resolveLegLocked reports the arrival and pushes the position-triggered
// status. Whichever path calls it first wins; the other finds l resolved.
func (e *Emulator) resolveLegLocked(ctx context.Context, cred model.Credential, l *leg, by string) {
	if l.resolved && !l.retry.Swap(false) {
		return
	}
	l.resolved = true
	l.timer.Cancel()

	next, ok := model.Next(l.status)
	if !ok || !model.CanTransition(l.status, next) {
		return
	}
	vehicleID := e.vehicle.ID
	coord := e.vehicle.Coordinate
	e.log.Action("leg_resolved").Info("leg resolved", "ride_id", l.rideID, "status", next, "by", by)

	e.spawn(func() {
		e.report(ctx, cred, vehicleID, coord)
		if err := e.push(ctx, cred, vehicleID, l.rideID, next); err != nil {
			if !errors.Is(err, myerrors.ErrInvalidTransition) {
				l.retry.Store(true)
			}
			return
		}
		if by == "fallback" {
			c := dto.FromModelCoordinate(coord)
			event := newEvent(dto.EventForcedProgress, vehicleID)
			event.RideID = l.rideID
			event.Status = string(next)
			event.Coordinate = &c
			e.publish(ctx, dto.ForcedRoutingKey(vehicleID), event)
			e.record(ctx, event)
		}
	})
}
