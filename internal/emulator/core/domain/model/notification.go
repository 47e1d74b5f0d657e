package model

// Counterpart is the other side of the ride: the rider for a chair, the chair
// for a rider.
type Counterpart struct {
	ID   string
	Name string
}

// RideNotification is a full snapshot of a ride as pushed by dispatch. Status is
// kept raw so both participants can read it through their own table.
type RideNotification struct {
	RideID      string
	Status      string
	Pickup      Coordinate
	Destination Coordinate
	Counterpart Counterpart
	Fare        *int
}

// SameState is the dedup key of the notification channel.
func (n RideNotification) SameState(other RideNotification) bool {
	return n.RideID == other.RideID && n.Status == other.Status
}

func (n RideNotification) RideStatus() (RideStatus, bool) {
	return ParseRideStatus(n.Status)
}

func (n RideNotification) RiderStatus() (RiderStatus, bool) {
	return ParseRiderStatus(n.Status)
}

// Clone returns a copy that shares nothing with n.
func (n RideNotification) Clone() RideNotification {
	if n.Fare != nil {
		fare := *n.Fare
		n.Fare = &fare
	}
	return n
}
