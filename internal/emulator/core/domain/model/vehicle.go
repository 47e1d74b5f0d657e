package model

// Credential identifies a participant towards dispatch.
type Credential struct {
	ParticipantID string
	AccessToken   string
}

// Vehicle is the local state of one chair. It is owned by a single emulator;
// everything handed out is a copy.
type Vehicle struct {
	ID               string
	OwnerID          string
	Name             string
	Model            string
	AccessToken      string
	Coordinate       Coordinate
	Active           bool
	LastNotification *RideNotification
}

func (v Vehicle) Credential() Credential {
	return Credential{ParticipantID: v.ID, AccessToken: v.AccessToken}
}

func (v Vehicle) Snapshot() Vehicle {
	if v.LastNotification != nil {
		n := v.LastNotification.Clone()
		v.LastNotification = &n
	}
	return v
}

// Ghost is a decorative chair. It never takes part in a ride.
type Ghost struct {
	ID         string
	Model      string
	Name       string
	Coordinate Coordinate
}
