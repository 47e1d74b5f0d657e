package services

import (
	"context"
	"errors"
	"sync"
	"time"

	"ride-sim/internal/emulator/core/domain/dto"
	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/emulator/core/myerrors"
	"ride-sim/internal/emulator/core/ports/driven"
	"ride-sim/internal/mylogger"

	"github.com/google/uuid"
)

const (
	DefaultTickInterval    = time.Second
	DefaultPickupFallback  = 30 * time.Second
	DefaultDropoffFallback = 60 * time.Second
)

type EmulatorConfig struct {
	TickInterval      time.Duration
	PickupFallback    time.Duration
	DropoffFallback   time.Duration
	ForcedProgression bool
}

func DefaultEmulatorConfig() EmulatorConfig {
	return EmulatorConfig{
		TickInterval:    DefaultTickInterval,
		PickupFallback:  DefaultPickupFallback,
		DropoffFallback: DefaultDropoffFallback,
	}
}

// EmulatorDeps are the collaborators of an emulator. Only Dispatch is required.
type EmulatorDeps struct {
	Dispatch  driven.IDispatchClient
	Publisher driven.IEventPublisher
	Positions driven.IPositionStore
	Journal   driven.IEventJournal
}

// Emulator drives one vehicle through its rides: it reports the position on
// every tick, accepts and departs on behalf of the driver and walks the
// vehicle to pickup and destination.
type Emulator struct {
	cfg  EmulatorConfig
	deps EmulatorDeps
	log  mylogger.Logger

	// spawn runs the network side of a tick. Replaced by tests.
	spawn func(func())

	mu         sync.Mutex
	vehicle    model.Vehicle
	loop       *Task
	generation uint64
	leg        *leg
}

func NewEmulator(vehicle model.Vehicle, cfg EmulatorConfig, deps EmulatorDeps, log mylogger.Logger) *Emulator {
	if deps.Publisher == nil {
		deps.Publisher = NoopPublisher{}
	}
	return &Emulator{
		cfg:     cfg,
		deps:    deps,
		log:     log.With("vehicle_id", vehicle.ID),
		spawn:   func(f func()) { go f() },
		vehicle: vehicle,
	}
}

// Start runs the tick loop until Stop or until ctx is done.
func (e *Emulator) Start(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loop != nil {
		select {
		case <-e.loop.Done():
		default:
			return myerrors.ErrEmulatorRunning
		}
	}
	e.generation++
	e.loop = Every(ctx, e.cfg.TickInterval, e.Step)
	e.log.Action("emulator_started").Info("tick loop started", "interval", e.cfg.TickInterval.String())
	return nil
}

// Stop cancels the loop and any pending fallback, then waits for the loop
// goroutine to exit. Nothing scheduled by this run fires afterwards.
func (e *Emulator) Stop() {
	e.mu.Lock()
	loop := e.loop
	e.loop = nil
	e.generation++
	e.dropLegLocked()
	loop.Cancel()
	e.mu.Unlock()

	if loop != nil {
		loop.Stop()
		e.log.Action("emulator_stopped").Info("tick loop stopped")
	}
}

func (e *Emulator) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.loop == nil {
		return false
	}
	select {
	case <-e.loop.Done():
		return false
	default:
		return true
	}
}

// Notify replaces the ride state the next tick works from.
func (e *Emulator) Notify(n model.RideNotification) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vehicle.LastNotification = &n
	e.log.Action("notification_received").Debug("ride state replaced", "ride_id", n.RideID, "status", n.Status)
}

// Override injects an externally forced ride state. It is handled exactly
// like a notification; a divergence from the last one is only reported.
func (e *Emulator) Override(n model.RideNotification) {
	e.mu.Lock()
	prev := e.vehicle.LastNotification
	e.mu.Unlock()
	if prev != nil && !prev.SameState(n) {
		e.log.Action("notification_overridden").Warn("forced state diverges from notified state",
			"ride_id", n.RideID, "status", n.Status, "notified_ride_id", prev.RideID, "notified_status", prev.Status)
	}
	e.Notify(n)
}

func (e *Emulator) SetActive(active bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.vehicle.Active = active
	if !active {
		e.dropLegLocked()
	}
}

// Vehicle returns a copy of the current vehicle state.
func (e *Emulator) Vehicle() model.Vehicle {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.vehicle.Snapshot()
}

// Step runs a single tick. The decision is made under the lock; network
// calls are handed to spawn and never block the next tick.
func (e *Emulator) Step(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if ctx.Err() != nil {
		return
	}

	v := &e.vehicle
	n := v.LastNotification
	if !v.Active || n == nil || n.RideID == "" {
		e.dropLegLocked()
		return
	}
	cred := v.Credential()
	if cred.AccessToken == "" {
		e.log.Action("tick_skipped").Debug("no access token")
		return
	}

	// The position goes out for any ride, canceled or unknown ones included.
	e.reportLocked(ctx, cred, v.Coordinate)

	status, ok := n.RideStatus()
	if !ok {
		e.dropLegLocked()
		e.log.Action("tick_skipped").Debug("status matches no rule", "ride_id", n.RideID, "status", n.Status)
		return
	}

	switch status {
	case model.StatusMatching:
		e.dropLegLocked()
		e.saveStartLocked(ctx, v.Coordinate)
		e.pushLocked(ctx, cred, n.RideID, status, model.StatusEnroute)
	case model.StatusPickup:
		e.dropLegLocked()
		e.pushLocked(ctx, cred, n.RideID, status, model.StatusCarrying)
	case model.StatusEnroute:
		e.advanceLocked(ctx, cred, n.RideID, status, n.Pickup)
	case model.StatusCarrying:
		e.advanceLocked(ctx, cred, n.RideID, status, n.Destination)
	default:
		e.dropLegLocked()
	}
}

// advanceLocked moves one step toward target. With forced progression on, it
// also owns the leg: the first of arrival and fallback pushes the next status.
func (e *Emulator) advanceLocked(ctx context.Context, cred model.Credential, rideID string, status model.RideStatus, target model.Coordinate) {
	v := &e.vehicle
	var l *leg
	if e.cfg.ForcedProgression {
		l = e.legLocked(ctx, rideID, status, target)
	}

	if !v.Coordinate.Equal(target) {
		next, err := model.Move(v.Coordinate, target)
		if err != nil {
			e.log.Action("move_failed").Error("move called at target", err, "coordinate", v.Coordinate.String())
			return
		}
		v.Coordinate = next
	}

	if l != nil && v.Coordinate.Equal(target) {
		e.resolveLegLocked(ctx, cred, l, "position")
	}
}

func (e *Emulator) reportLocked(ctx context.Context, cred model.Credential, coord model.Coordinate) {
	vehicleID := e.vehicle.ID
	e.spawn(func() { e.report(ctx, cred, vehicleID, coord) })
}

func (e *Emulator) report(ctx context.Context, cred model.Credential, vehicleID string, coord model.Coordinate) {
	if err := e.deps.Dispatch.ReportVehiclePosition(ctx, cred, coord); err != nil {
		e.log.Action("position_report_failed").Warn("position report failed", "coordinate", coord.String(), "error", err.Error())
		return
	}
	if e.deps.Positions != nil {
		if err := e.deps.Positions.SaveCurrent(ctx, vehicleID, coord); err != nil {
			e.log.Action("position_cache_failed").Warn("cannot cache position", "error", err.Error())
		}
	}
	c := dto.FromModelCoordinate(coord)
	event := newEvent(dto.EventPositionReported, vehicleID)
	event.Coordinate = &c
	e.publish(ctx, dto.PositionRoutingKey(vehicleID), event)
}

// pushLocked asks dispatch for from -> to. Pairs that are not adjacent are
// never sent.
func (e *Emulator) pushLocked(ctx context.Context, cred model.Credential, rideID string, from, to model.RideStatus) {
	if !model.CanTransition(from, to) {
		e.log.Action("status_push_rejected").Error("illegal transition", myerrors.ErrInvalidTransition, "from", from, "to", to)
		return
	}
	vehicleID := e.vehicle.ID
	e.spawn(func() { _ = e.push(ctx, cred, vehicleID, rideID, to) })
}

func (e *Emulator) push(ctx context.Context, cred model.Credential, vehicleID, rideID string, to model.RideStatus) error {
	log := e.log.With("ride_id", rideID, "status", to)
	if err := e.deps.Dispatch.PushRideStatus(ctx, cred, rideID, to); err != nil {
		if errors.Is(err, myerrors.ErrInvalidTransition) {
			log.Action("status_push_rejected").Warn("dispatch rejected transition", "error", err.Error())
		} else {
			log.Action("status_push_failed").Warn("status push failed", "error", err.Error())
		}
		return err
	}
	log.Action("status_pushed").Info("status pushed")

	event := newEvent(dto.EventStatusPushed, vehicleID)
	event.RideID = rideID
	event.Status = string(to)
	e.publish(ctx, dto.StatusRoutingKey(vehicleID), event)
	e.record(ctx, event)
	return nil
}

func (e *Emulator) saveStartLocked(ctx context.Context, coord model.Coordinate) {
	if e.deps.Positions == nil {
		return
	}
	vehicleID := e.vehicle.ID
	e.spawn(func() {
		if err := e.deps.Positions.SaveStart(ctx, vehicleID, coord); err != nil {
			e.log.Action("position_cache_failed").Warn("cannot cache start coordinate", "error", err.Error())
		}
	})
}

func newEvent(eventType, vehicleID string) dto.EmulatorEvent {
	return dto.EmulatorEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		VehicleID:  vehicleID,
		OccurredAt: time.Now().UTC(),
	}
}

func (e *Emulator) publish(ctx context.Context, key string, event dto.EmulatorEvent) {
	if err := e.deps.Publisher.Publish(ctx, key, event); err != nil {
		e.log.Action("event_publish_failed").Warn("cannot publish event", "routing_key", key, "error", err.Error())
	}
}

func (e *Emulator) record(ctx context.Context, event dto.EmulatorEvent) {
	if e.deps.Journal == nil {
		return
	}
	if err := e.deps.Journal.Record(ctx, event); err != nil {
		e.log.Action("journal_failed").Warn("cannot record event", "type", event.Type, "error", err.Error())
	}
}
