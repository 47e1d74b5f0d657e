package dto

import "ride-sim/internal/emulator/core/domain/model"

type SetActiveVehicleRequest struct {
	VehicleID string `json:"vehicle_id"`
}

type RideView struct {
	RideID      string     `json:"ride_id"`
	Status      string     `json:"status"`
	Pickup      Coordinate `json:"pickup_coordinate"`
	Destination Coordinate `json:"destination_coordinate"`
	Counterpart SimpleUser `json:"user"`
}

type VehicleView struct {
	ID         string     `json:"id"`
	OwnerID    string     `json:"owner_id"`
	Name       string     `json:"name"`
	Model      string     `json:"model"`
	Coordinate Coordinate `json:"current_coordinate"`
	Active     bool       `json:"is_active"`
	Running    bool       `json:"is_running"`
	Bound      bool       `json:"is_bound"`
	Ride       *RideView  `json:"ride,omitempty"`
}

type GhostView struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	Model      string     `json:"model"`
	Coordinate Coordinate `json:"current_coordinate"`
}

type FleetSnapshot struct {
	Vehicles []VehicleView `json:"vehicles"`
	Ghosts   []GhostView   `json:"ghosts"`
}

func NewGhostView(g model.Ghost) GhostView {
	return GhostView{ID: g.ID, Name: g.Name, Model: g.Model, Coordinate: Coordinate(g.Coordinate)}
}

func NewVehicleView(v model.Vehicle, running, bound bool) VehicleView {
	view := VehicleView{
		ID:         v.ID,
		OwnerID:    v.OwnerID,
		Name:       v.Name,
		Model:      v.Model,
		Coordinate: Coordinate(v.Coordinate),
		Active:     v.Active,
		Running:    running,
		Bound:      bound,
	}
	if n := v.LastNotification; n != nil {
		view.Ride = &RideView{
			RideID:      n.RideID,
			Status:      n.Status,
			Pickup:      Coordinate(n.Pickup),
			Destination: Coordinate(n.Destination),
			Counterpart: SimpleUser{ID: n.Counterpart.ID, Name: n.Counterpart.Name},
		}
	}
	return view
}
