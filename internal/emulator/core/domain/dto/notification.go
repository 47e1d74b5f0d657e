package dto

import "ride-sim/internal/emulator/core/domain/model"

type Coordinate struct {
	Latitude  int `json:"latitude"`
	Longitude int `json:"longitude"`
}

type SimpleUser struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type NotificationChair struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Model string `json:"model"`
}

// NotificationData is one event of /api/{chair,app}/notification. The chair
// stream names the counterpart "user", the app stream names it "chair".
// Older chair streams send "request_id" instead of "ride_id".
type NotificationData struct {
	RideID                string             `json:"ride_id"`
	RequestID             string             `json:"request_id,omitempty"`
	Status                string             `json:"status"`
	PickupCoordinate      Coordinate         `json:"pickup_coordinate"`
	DestinationCoordinate Coordinate         `json:"destination_coordinate"`
	User                  *SimpleUser        `json:"user,omitempty"`
	Chair                 *NotificationChair `json:"chair,omitempty"`
	Fare                  *int               `json:"fare,omitempty"`
}

// NotificationResponse is the polling envelope.
type NotificationResponse struct {
	Data         *NotificationData `json:"data,omitempty"`
	RetryAfterMs int               `json:"retry_after_ms,omitempty"`
}

func (d NotificationData) ToModel() model.RideNotification {
	n := model.RideNotification{
		RideID:      d.RideID,
		Status:      d.Status,
		Pickup:      model.Coordinate(d.PickupCoordinate),
		Destination: model.Coordinate(d.DestinationCoordinate),
		Fare:        d.Fare,
	}
	if n.RideID == "" {
		n.RideID = d.RequestID
	}
	switch {
	case d.User != nil:
		n.Counterpart = model.Counterpart{ID: d.User.ID, Name: d.User.Name}
	case d.Chair != nil:
		n.Counterpart = model.Counterpart{ID: d.Chair.ID, Name: d.Chair.Name}
	}
	return n
}

func FromModelCoordinate(c model.Coordinate) Coordinate {
	return Coordinate(c)
}
