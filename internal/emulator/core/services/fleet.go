package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"ride-sim/internal/emulator/core/domain/dto"
	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/emulator/core/myerrors"
	"ride-sim/internal/emulator/core/ports/driven"
	"ride-sim/internal/mylogger"

	"github.com/paulmach/orb"
)

const DefaultConfigDebounce = 500 * time.Millisecond

type FleetConfig struct {
	Emulator       EmulatorConfig
	GhostCount     int
	GhostBounds    orb.Bound
	GhostStep      int
	GhostInterval  time.Duration
	ConfigDebounce time.Duration
}

func DefaultFleetConfig() FleetConfig {
	return FleetConfig{
		Emulator:       DefaultEmulatorConfig(),
		GhostCount:     DefaultGhostCount,
		GhostBounds:    DefaultGhostBounds,
		GhostStep:      DefaultGhostStep,
		GhostInterval:  DefaultGhostInterval,
		ConfigDebounce: DefaultConfigDebounce,
	}
}

// FleetController supervises the simulated vehicles and the ghost layer.
// Every loop it starts lives until StopEmulator, Shutdown or the end of ctx.
type FleetController struct {
	ctx       context.Context
	dispatch  driven.IDispatchClient
	journal   driven.IEventJournal
	transport driven.INotificationTransport
	log       mylogger.Logger

	ghosts   *GhostLayer
	debounce *Debouncer

	order     []string
	emulators map[string]*Emulator

	// switchMu serializes SetActiveVehicle so two switches for one owner
	// can not interleave their stop and start.
	switchMu sync.Mutex
	mu       sync.Mutex
	bound    map[string]string
	channels map[string]*NotificationChannel
}

// NewFleetController registers vehicles in the given order. When a position
// store is configured each vehicle resumes from its last cached coordinate.
func NewFleetController(ctx context.Context, vehicles []model.Vehicle, cfg FleetConfig, deps EmulatorDeps, transport driven.INotificationTransport, log mylogger.Logger) *FleetController {
	f := &FleetController{
		ctx:       ctx,
		dispatch:  deps.Dispatch,
		journal:   deps.Journal,
		transport: transport,
		log:       log,
		ghosts:    NewGhostLayer(cfg.GhostCount, cfg.GhostBounds, cfg.GhostStep, cfg.GhostInterval, nil),
		debounce:  NewDebouncer(cfg.ConfigDebounce),
		emulators: make(map[string]*Emulator, len(vehicles)),
		bound:     make(map[string]string),
		channels:  make(map[string]*NotificationChannel),
	}
	for _, v := range vehicles {
		if _, dup := f.emulators[v.ID]; dup {
			log.Action("fleet_init").Warn("duplicate vehicle ignored", "vehicle_id", v.ID)
			continue
		}
		if deps.Positions != nil {
			coord, ok, err := deps.Positions.Load(ctx, v.ID)
			if err != nil {
				log.Action("fleet_init").Warn("cannot load cached position", "vehicle_id", v.ID, "error", err.Error())
			} else if ok {
				v.Coordinate = coord
			}
		}
		f.order = append(f.order, v.ID)
		f.emulators[v.ID] = NewEmulator(v, cfg.Emulator, deps, log)
	}
	log.Action("fleet_init").Info("fleet registered", "vehicles", len(f.order))
	return f
}

func (f *FleetController) emulator(vehicleID string) (*Emulator, error) {
	e, ok := f.emulators[vehicleID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", myerrors.ErrUnknownVehicle, vehicleID)
	}
	return e, nil
}

// StartEmulator starts the loop of a vehicle and subscribes it to its chair
// notifications. An owner runs one vehicle at a time: starting a second one
// fails with ErrVehicleBound, SetActiveVehicle is the way to switch.
func (f *FleetController) StartEmulator(vehicleID string) error {
	e, err := f.emulator(vehicleID)
	if err != nil {
		return err
	}
	owner := e.Vehicle().OwnerID
	claimed, err := f.claim(owner, vehicleID)
	if err != nil {
		return err
	}
	if err := e.Start(f.ctx); err != nil {
		if claimed {
			f.release(owner, vehicleID)
		}
		return err
	}
	if f.transport == nil {
		return nil
	}

	v := e.Vehicle()
	if v.AccessToken == "" {
		f.log.Action("subscription_skipped").Warn("vehicle has no access token", "vehicle_id", vehicleID)
		return nil
	}
	ch := NewNotificationChannel(f.transport, v.Credential(), f.log, e.Notify)
	if err := ch.Connect(f.ctx); err != nil {
		e.Stop()
		if claimed {
			f.release(owner, vehicleID)
		}
		return fmt.Errorf("subscribe %s: %w", vehicleID, err)
	}

	f.mu.Lock()
	old := f.channels[vehicleID]
	f.channels[vehicleID] = ch
	f.mu.Unlock()
	if old != nil {
		old.Close()
	}
	return nil
}

// StopEmulator stops the loop and closes the subscription. Stopping a
// stopped vehicle is not an error.
func (f *FleetController) StopEmulator(vehicleID string) error {
	e, err := f.emulator(vehicleID)
	if err != nil {
		return err
	}
	f.mu.Lock()
	ch := f.channels[vehicleID]
	delete(f.channels, vehicleID)
	f.mu.Unlock()

	if ch != nil {
		ch.Close()
	}
	e.Stop()
	f.release(e.Vehicle().OwnerID, vehicleID)
	return nil
}

// claim binds an unbound owner to vehicleID and reports whether it did.
// Vehicles without an owner are never bound.
func (f *FleetController) claim(owner, vehicleID string) (bool, error) {
	if owner == "" {
		return false, nil
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	current, ok := f.bound[owner]
	if ok && current != vehicleID {
		return false, fmt.Errorf("%w: %s runs %s", myerrors.ErrVehicleBound, owner, current)
	}
	f.bound[owner] = vehicleID
	return !ok, nil
}

func (f *FleetController) release(owner, vehicleID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.bound[owner] == vehicleID {
		delete(f.bound, owner)
	}
}

// SetActiveVehicle binds vehicleID to its owner. The vehicle previously bound
// to that owner is fully stopped before the new one starts.
func (f *FleetController) SetActiveVehicle(vehicleID string) error {
	e, err := f.emulator(vehicleID)
	if err != nil {
		return err
	}
	owner := e.Vehicle().OwnerID

	f.switchMu.Lock()
	defer f.switchMu.Unlock()

	f.mu.Lock()
	prev := f.bound[owner]
	f.bound[owner] = vehicleID
	f.mu.Unlock()

	if prev != "" && prev != vehicleID {
		if err := f.StopEmulator(prev); err != nil {
			return err
		}
	}
	if err := f.StartEmulator(vehicleID); err != nil && !errors.Is(err, myerrors.ErrEmulatorRunning) {
		return err
	}
	f.log.Action("vehicle_bound").Info("active vehicle switched", "owner_id", owner, "vehicle_id", vehicleID, "previous", prev)
	return nil
}

// SetAvailability tells dispatch whether the vehicle takes rides. It is
// independent of the loop running. Deactivation holds locally even when
// dispatch can not be told; activation waits for dispatch to accept.
func (f *FleetController) SetAvailability(ctx context.Context, vehicleID string, active bool) error {
	e, err := f.emulator(vehicleID)
	if err != nil {
		return err
	}
	if !active {
		e.SetActive(false)
	}
	if err := f.dispatch.SetAvailability(ctx, e.Vehicle().Credential(), active); err != nil {
		return fmt.Errorf("set availability of %s: %w", vehicleID, err)
	}
	if active {
		e.SetActive(true)
	}
	f.log.Action("availability_changed").Info("availability changed", "vehicle_id", vehicleID, "active", active)
	return nil
}

// OverrideNotification forces the ride state a vehicle works from, as if its
// chair stream had delivered it.
func (f *FleetController) OverrideNotification(vehicleID string, n dto.NotificationData) error {
	e, err := f.emulator(vehicleID)
	if err != nil {
		return err
	}
	rn := n.ToModel()
	e.Override(rn)
	f.log.Action("notification_forced").Info("ride state overridden", "vehicle_id", vehicleID, "ride_id", rn.RideID, "status", rn.Status)
	return nil
}

// Events returns the newest journaled events of a vehicle.
func (f *FleetController) Events(ctx context.Context, vehicleID string, limit int) ([]dto.EmulatorEvent, error) {
	if _, err := f.emulator(vehicleID); err != nil {
		return nil, err
	}
	if f.journal == nil {
		return nil, myerrors.ErrNoJournal
	}
	events, err := f.journal.Recent(ctx, vehicleID, limit)
	if err != nil {
		return nil, fmt.Errorf("events of %s: %w", vehicleID, err)
	}
	if events == nil {
		events = []dto.EmulatorEvent{}
	}
	return events, nil
}

// SetFleetVisualDensity toggles the ghost layer once toggling has been quiet
// for the debounce delay.
func (f *FleetController) SetFleetVisualDensity(enabled bool) {
	f.debounce.Trigger(func() {
		f.ghosts.SetEnabled(f.ctx, enabled)
		f.log.Action("ghosts_toggled").Info("ghost layer toggled", "enabled", enabled)
	})
}

// HandleConfig applies a config bus message. Messages of other types are
// ignored.
func (f *FleetController) HandleConfig(msg dto.ConfigMessage) error {
	if msg.Type != dto.MessageTypeSimulatorConfig {
		f.log.Action("config_ignored").Debug("unknown message type", "type", msg.Type)
		return nil
	}
	var payload dto.SimulatorConfigPayload
	if len(msg.Payload) > 0 {
		if err := json.Unmarshal(msg.Payload, &payload); err != nil {
			return fmt.Errorf("decode %s payload: %w", msg.Type, err)
		}
	}
	enabled := payload.GhostChairEnabled != nil && *payload.GhostChairEnabled
	f.SetFleetVisualDensity(enabled)
	return nil
}

func (f *FleetController) isBound(vehicleID, ownerID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.bound[ownerID] == vehicleID
}

func (f *FleetController) view(e *Emulator) dto.VehicleView {
	v := e.Vehicle()
	return dto.NewVehicleView(v, e.Running(), f.isBound(v.ID, v.OwnerID))
}

func (f *FleetController) Vehicle(vehicleID string) (dto.VehicleView, error) {
	e, err := f.emulator(vehicleID)
	if err != nil {
		return dto.VehicleView{}, err
	}
	return f.view(e), nil
}

func (f *FleetController) Vehicles() []dto.VehicleView {
	views := make([]dto.VehicleView, 0, len(f.order))
	for _, id := range f.order {
		views = append(views, f.view(f.emulators[id]))
	}
	return views
}

func (f *FleetController) Ghosts() []dto.GhostView {
	ghosts := f.ghosts.Ghosts()
	views := make([]dto.GhostView, 0, len(ghosts))
	for _, g := range ghosts {
		views = append(views, dto.NewGhostView(g))
	}
	return views
}

func (f *FleetController) Snapshot() dto.FleetSnapshot {
	return dto.FleetSnapshot{Vehicles: f.Vehicles(), Ghosts: f.Ghosts()}
}

// Shutdown stops every loop, subscription and timer of the fleet.
func (f *FleetController) Shutdown() {
	f.debounce.Stop()
	f.ghosts.Stop()
	for _, id := range f.order {
		_ = f.StopEmulator(id)
	}
	f.log.Action("fleet_shutdown").Info("fleet stopped")
}
