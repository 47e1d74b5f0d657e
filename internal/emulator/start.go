package emulator

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"

	"ride-sim/internal/config"
	"ride-sim/internal/emulator/adapters/driven/bm"
	"ride-sim/internal/emulator/adapters/driven/notification"
	"ride-sim/internal/emulator/adapters/driver/myhttp"
	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/emulator/core/services"
	"ride-sim/internal/mylogger"
)

// ExecuteFleet runs every roster vehicle, the ghost layer, the config
// consumer and the control API until a shutdown signal.
func ExecuteFleet(ctx context.Context, mylog mylogger.Logger, cfg *config.Config) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	roster, err := config.LoadFleet(cfg.Fleet.File)
	if err != nil {
		return err
	}
	transport, err := newTransport(cfg.Dispatch, notification.ChairTarget, mylog)
	if err != nil {
		return err
	}
	in, err := setupInfra(newCtx, mylog, cfg)
	if err != nil {
		return err
	}
	defer in.close(mylog)

	fleet := services.NewFleetController(newCtx, vehiclesFrom(roster), fleetConfig(cfg), in.deps, transport, mylog)
	defer fleet.Shutdown()

	if in.broker != nil {
		consumer := bm.NewConfigConsumer(in.broker, fleet.HandleConfig, mylog)
		if err := consumer.Subscribe(newCtx); err != nil {
			return fmt.Errorf("subscribe config queue: %w", err)
		}
	}
	bindOwners(fleet, roster, mylog)

	server := myhttp.NewServer(newCtx, mylog, cfg, fleet)

	runErrCh := make(chan error, 1)
	go func() {
		runErrCh <- server.Run()
	}()

	select {
	case <-newCtx.Done():
		mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
		return server.Stop(context.Background())
	case err := <-runErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			mylog.Action("fleet_failed").Error("Server failed unexpectedly", err)
			return err
		}
		mylog.Action("server_stopped").Info("Server exited normally")
		return nil
	}
}

// bindOwners starts the first active vehicle of every owner.
func bindOwners(fleet *services.FleetController, roster *config.Roster, mylog mylogger.Logger) {
	owners := make(map[string]bool)
	for _, v := range roster.Vehicles {
		if !v.IsActive() || owners[v.OwnerID] {
			continue
		}
		owners[v.OwnerID] = true
		if err := fleet.SetActiveVehicle(v.ID); err != nil {
			mylog.Action("vehicle_bound").Warn("cannot start vehicle", "vehicle_id", v.ID, "error", err.Error())
		}
	}
}

// ExecuteEmulator drives a single roster vehicle until a shutdown signal.
func ExecuteEmulator(ctx context.Context, mylog mylogger.Logger, cfg *config.Config, vehicleID string) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	roster, err := config.LoadFleet(cfg.Fleet.File)
	if err != nil {
		return err
	}
	var vehicles []model.Vehicle
	for _, v := range vehiclesFrom(roster) {
		if v.ID == vehicleID {
			vehicles = append(vehicles, v)
		}
	}
	if len(vehicles) == 0 {
		return fmt.Errorf("vehicle %q is not in %s", vehicleID, cfg.Fleet.File)
	}

	transport, err := newTransport(cfg.Dispatch, notification.ChairTarget, mylog)
	if err != nil {
		return err
	}
	in, err := setupInfra(newCtx, mylog, cfg)
	if err != nil {
		return err
	}
	defer in.close(mylog)

	fcfg := fleetConfig(cfg)
	fcfg.GhostCount = 0
	fleet := services.NewFleetController(newCtx, vehicles, fcfg, in.deps, transport, mylog)
	defer fleet.Shutdown()

	if vehicles[0].Active {
		if err := fleet.SetAvailability(newCtx, vehicleID, true); err != nil {
			mylog.Action("availability_changed").Warn("cannot mark vehicle active", "vehicle_id", vehicleID, "error", err.Error())
		}
	}
	if err := fleet.StartEmulator(vehicleID); err != nil {
		return err
	}
	mylog.Action("emulator_started").Info("emulator is running", "vehicle_id", vehicleID)

	<-newCtx.Done()
	mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
	return nil
}

// ExecuteRider follows the app stream of one rider and evaluates every ride
// it sees arrive.
func ExecuteRider(ctx context.Context, mylog mylogger.Logger, cfg *config.Config, riderID, token string) error {
	newCtx, close := signal.NotifyContext(ctx, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM)
	defer close()

	if token == "" {
		return errors.New("rider access token is required")
	}
	transport, err := newTransport(cfg.Dispatch, notification.AppTarget, mylog)
	if err != nil {
		return err
	}
	in, err := setupInfra(newCtx, mylog, cfg)
	if err != nil {
		return err
	}
	defer in.close(mylog)

	cred := model.Credential{ParticipantID: riderID, AccessToken: token}
	session := services.NewRiderSession(cred, transport, in.dispatch, cfg.Emulator.Evaluation, mylog)
	if err := session.Start(newCtx); err != nil {
		return err
	}
	defer session.Stop()
	mylog.Action("rider_started").Info("rider session is running", "rider_id", riderID)

	<-newCtx.Done()
	mylog.Action("shutdown_signal_received").Info("Shutdown signal received")
	return nil
}
