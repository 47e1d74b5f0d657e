package model

import "strings"

// RideStatus is the driver-facing ride status.
type RideStatus string

const (
	StatusMatching  RideStatus = "MATCHING"
	StatusEnroute   RideStatus = "ENROUTE"
	StatusPickup    RideStatus = "PICKUP"
	StatusCarrying  RideStatus = "CARRYING"
	StatusArrived   RideStatus = "ARRIVED"
	StatusCompleted RideStatus = "COMPLETED"
)

// RiderStatus is the rider-facing view of the same lifecycle. It admits
// RiderCanceled, which has no driver-facing counterpart.
type RiderStatus string

const (
	RiderMatching    RiderStatus = "matching"
	RiderDispatching RiderStatus = "dispatching"
	RiderDispatched  RiderStatus = "dispatched"
	RiderCarrying    RiderStatus = "carrying"
	RiderArrived     RiderStatus = "arrived"
	RiderCompleted   RiderStatus = "completed"
	RiderCanceled    RiderStatus = "canceled"
)

// Authority tells who is allowed to trigger a transition.
type Authority int

const (
	AuthorityNone Authority = iota
	AuthorityDriver
	AuthorityPosition
	AuthorityRider
)

func (a Authority) String() string {
	switch a {
	case AuthorityDriver:
		return "driver"
	case AuthorityPosition:
		return "position"
	case AuthorityRider:
		return "rider"
	default:
		return "none"
	}
}

type transition struct {
	next      RideStatus
	authority Authority
}

var transitions = map[RideStatus]transition{
	StatusMatching: {next: StatusEnroute, authority: AuthorityDriver},
	StatusEnroute:  {next: StatusPickup, authority: AuthorityPosition},
	StatusPickup:   {next: StatusCarrying, authority: AuthorityDriver},
	StatusCarrying: {next: StatusArrived, authority: AuthorityPosition},
	StatusArrived:  {next: StatusCompleted, authority: AuthorityRider},
}

var riderToDriver = map[RiderStatus]RideStatus{
	RiderMatching:    StatusMatching,
	RiderDispatching: StatusEnroute,
	RiderDispatched:  StatusPickup,
	RiderCarrying:    StatusCarrying,
	RiderArrived:     StatusArrived,
	RiderCompleted:   StatusCompleted,
}

var driverToRider = map[RideStatus]RiderStatus{
	StatusMatching:  RiderMatching,
	StatusEnroute:   RiderDispatching,
	StatusPickup:    RiderDispatched,
	StatusCarrying:  RiderCarrying,
	StatusArrived:   RiderArrived,
	StatusCompleted: RiderCompleted,
}

// Next returns the only legal successor of s.
func Next(s RideStatus) (RideStatus, bool) {
	t, ok := transitions[s]
	if !ok {
		return "", false
	}
	return t.next, true
}

// CanTransition reports whether to directly follows from. Same-status is not a
// transition.
func CanTransition(from, to RideStatus) bool {
	next, ok := Next(from)
	return ok && next == to
}

// AuthorityOf returns who may trigger from -> to, AuthorityNone when the pair
// is not adjacent.
func AuthorityOf(from, to RideStatus) Authority {
	t, ok := transitions[from]
	if !ok || t.next != to {
		return AuthorityNone
	}
	return t.authority
}

// Terminal reports whether nothing follows s on the driver side.
func (s RideStatus) Terminal() bool {
	_, ok := transitions[s]
	return !ok && s.Valid()
}

func (s RideStatus) Valid() bool {
	_, ok := driverToRider[s]
	return ok
}

// ParseRideStatus accepts both driver ("ENROUTE") and rider ("dispatching")
// spellings, since the chair stream has used both. RiderCanceled and unknown
// values yield false.
func ParseRideStatus(raw string) (RideStatus, bool) {
	raw = strings.TrimSpace(raw)
	if s := RideStatus(strings.ToUpper(raw)); s.Valid() {
		return s, true
	}
	if s, ok := riderToDriver[RiderStatus(strings.ToLower(raw))]; ok {
		return s, true
	}
	return "", false
}

// ParseRiderStatus is the rider-side counterpart of ParseRideStatus.
func ParseRiderStatus(raw string) (RiderStatus, bool) {
	raw = strings.TrimSpace(raw)
	r := RiderStatus(strings.ToLower(raw))
	if r == RiderCanceled {
		return r, true
	}
	if _, ok := riderToDriver[r]; ok {
		return r, true
	}
	if s := RideStatus(strings.ToUpper(raw)); s.Valid() {
		return driverToRider[s], true
	}
	return "", false
}

func ToRider(s RideStatus) (RiderStatus, bool) {
	r, ok := driverToRider[s]
	return r, ok
}

func FromRider(r RiderStatus) (RideStatus, bool) {
	s, ok := riderToDriver[r]
	return s, ok
}

// CanRiderTransition is CanTransition seen from the rider, plus cancellation
// from any state before carrying.
func CanRiderTransition(from, to RiderStatus) bool {
	if to == RiderCanceled {
		switch from {
		case RiderMatching, RiderDispatching, RiderDispatched:
			return true
		}
		return false
	}
	f, ok := riderToDriver[from]
	if !ok {
		return false
	}
	t, ok := riderToDriver[to]
	if !ok {
		return false
	}
	return CanTransition(f, t)
}
