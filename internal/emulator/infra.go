package emulator

import (
	"context"
	"fmt"

	"ride-sim/internal/config"
	"ride-sim/internal/emulator/adapters/driven/bm"
	"ride-sim/internal/emulator/adapters/driven/cache"
	"ride-sim/internal/emulator/adapters/driven/db"
	"ride-sim/internal/emulator/adapters/driven/dispatch"
	"ride-sim/internal/emulator/adapters/driven/notification"
	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/emulator/core/ports/driven"
	"ride-sim/internal/emulator/core/services"
	"ride-sim/internal/mylogger"

	"github.com/paulmach/orb"
	"github.com/redis/go-redis/v9"
)

const (
	TransportSSE  = "sse"
	TransportPoll = "poll"
	TransportWS   = "ws"
)

// infra holds the optional backends. Every one of them is off unless enabled
// in the config; the emulators run fine without any.
type infra struct {
	dispatch *dispatch.Client
	broker   *bm.RabbitMQ
	database *db.DataBase
	rdb      *redis.Client
	deps     services.EmulatorDeps
}

func setupInfra(ctx context.Context, mylog mylogger.Logger, cfg *config.Config) (*infra, error) {
	in := &infra{dispatch: dispatch.NewClient(cfg.Dispatch.BaseURL, cfg.Dispatch.RequestTimeout)}
	in.deps.Dispatch = in.dispatch

	if cfg.RabbitMq.Enabled {
		broker, err := bm.New(ctx, *cfg.RabbitMq, mylog)
		if err != nil {
			in.close(mylog)
			return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
		}
		in.broker = broker
		in.deps.Publisher = bm.NewPublisher(broker)
		mylog.Action("infra_ready").Info("Successful message broker connection")
	}

	if cfg.DB.Enabled {
		database, err := db.ConnectDB(ctx, cfg.DB, mylog)
		if err != nil {
			in.close(mylog)
			return nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		in.database = database
		journal := db.NewEventJournal(database)
		if err := journal.Migrate(ctx); err != nil {
			in.close(mylog)
			return nil, err
		}
		in.deps.Journal = journal
		mylog.Action("infra_ready").Info("Successful database connection")
	}

	if cfg.Redis.Enabled {
		rdb, err := cache.Connect(ctx, cfg.Redis)
		if err != nil {
			in.close(mylog)
			return nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		in.rdb = rdb
		in.deps.Positions = cache.NewPositionStore(rdb)
		mylog.Action("infra_ready").Info("Successful cache connection")
	}

	return in, nil
}

func (in *infra) close(mylog mylogger.Logger) {
	log := mylog.Action("infra_closed")
	if in.broker != nil {
		if err := in.broker.Close(); err != nil {
			log.Error("Failed to close message broker", err)
		}
	}
	if in.database != nil {
		if err := in.database.Close(); err != nil {
			log.Error("Failed to close database", err)
		}
	}
	if in.rdb != nil {
		if err := in.rdb.Close(); err != nil {
			log.Error("Failed to close cache", err)
		}
	}
}

func newTransport(cfg *config.Dispatchconfig, target notification.Target, mylog mylogger.Logger) (driven.INotificationTransport, error) {
	switch cfg.Transport {
	case TransportSSE:
		return notification.NewSSETransport(cfg.BaseURL, target, cfg.RetryInterval, mylog), nil
	case TransportPoll:
		return notification.NewPollTransport(cfg.BaseURL, target, cfg.PollInterval, cfg.RequestTimeout, mylog), nil
	case TransportWS:
		return notification.NewWSTransport(cfg.BaseURL, target, cfg.RetryInterval, mylog), nil
	default:
		return nil, fmt.Errorf("unknown notification transport %q", cfg.Transport)
	}
}

func emulatorConfig(cfg *config.Emulatorconfig) services.EmulatorConfig {
	return services.EmulatorConfig{
		TickInterval:      cfg.TickInterval,
		PickupFallback:    cfg.PickupFallback,
		DropoffFallback:   cfg.DropoffFallback,
		ForcedProgression: cfg.ForcedProgression,
	}
}

func fleetConfig(cfg *config.Config) services.FleetConfig {
	r := float64(cfg.Fleet.GhostRadius)
	return services.FleetConfig{
		Emulator:       emulatorConfig(cfg.Emulator),
		GhostCount:     cfg.Fleet.GhostCount,
		GhostBounds:    orb.Bound{Min: orb.Point{-r, -r}, Max: orb.Point{r, r}},
		GhostStep:      cfg.Fleet.GhostStep,
		GhostInterval:  cfg.Fleet.GhostInterval,
		ConfigDebounce: cfg.Fleet.ConfigDebounce,
	}
}

func vehiclesFrom(roster *config.Roster) []model.Vehicle {
	vehicles := make([]model.Vehicle, 0, len(roster.Vehicles))
	for _, v := range roster.Vehicles {
		vehicles = append(vehicles, model.Vehicle{
			ID:          v.ID,
			OwnerID:     v.OwnerID,
			Name:        v.Name,
			Model:       v.Model,
			AccessToken: v.AccessToken,
			Coordinate:  model.Coordinate{Latitude: v.Latitude, Longitude: v.Longitude},
			Active:      v.IsActive(),
		})
	}
	return vehicles
}
