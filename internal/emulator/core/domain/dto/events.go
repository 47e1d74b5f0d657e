package dto

import "time"

const (
	EventPositionReported = "POSITION_REPORTED"
	EventStatusPushed     = "STATUS_PUSHED"
	EventForcedProgress   = "FORCED_PROGRESSION"
	EventEvaluation       = "EVALUATION_SUBMITTED"
)

// EmulatorEvent is published on the bus and written to the journal.
type EmulatorEvent struct {
	ID         string      `json:"id"`
	Type       string      `json:"type"`
	VehicleID  string      `json:"vehicle_id"`
	RideID     string      `json:"ride_id,omitempty"`
	Status     string      `json:"status,omitempty"`
	Coordinate *Coordinate `json:"coordinate,omitempty"`
	OccurredAt time.Time   `json:"occurred_at"`
}

func PositionRoutingKey(vehicleID string) string { return "emulator.position." + vehicleID }
func StatusRoutingKey(vehicleID string) string   { return "emulator.status." + vehicleID }
func ForcedRoutingKey(vehicleID string) string   { return "emulator.forced." + vehicleID }
