package driver

import (
	"context"

	"ride-sim/internal/emulator/core/domain/dto"
)

type IFleetService interface {
	StartEmulator(vehicleID string) error
	StopEmulator(vehicleID string) error
	SetActiveVehicle(vehicleID string) error
	SetAvailability(ctx context.Context, vehicleID string, active bool) error
	OverrideNotification(vehicleID string, n dto.NotificationData) error
	SetFleetVisualDensity(enabled bool)
	HandleConfig(msg dto.ConfigMessage) error

	Vehicle(vehicleID string) (dto.VehicleView, error)
	Vehicles() []dto.VehicleView
	Ghosts() []dto.GhostView
	Snapshot() dto.FleetSnapshot
	Events(ctx context.Context, vehicleID string, limit int) ([]dto.EmulatorEvent, error)
}
