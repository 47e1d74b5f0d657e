package model

import (
	"errors"
	"fmt"
)

// ErrAlreadyArrived is returned by Move when current already equals target.
// Callers are expected to check Equal before moving, so seeing it is a bug.
var ErrAlreadyArrived = errors.New("move: already at target")

type Coordinate struct {
	Latitude  int `json:"latitude"`
	Longitude int `json:"longitude"`
}

func (c Coordinate) Equal(other Coordinate) bool {
	return c.Latitude == other.Latitude && c.Longitude == other.Longitude
}

// Distance is the Manhattan distance, i.e. the number of Move calls needed to
// get from c to other.
func (c Coordinate) Distance(other Coordinate) int {
	return abs(c.Latitude-other.Latitude) + abs(c.Longitude-other.Longitude)
}

func (c Coordinate) String() string {
	return fmt.Sprintf("(%d,%d)", c.Latitude, c.Longitude)
}

// Move advances current by one unit toward target. Latitude is resolved first,
// longitude only once latitudes match. Never both axes in one call.
func Move(current, target Coordinate) (Coordinate, error) {
	switch {
	case current.Latitude != target.Latitude:
		return Coordinate{
			Latitude:  current.Latitude + sign(target.Latitude-current.Latitude),
			Longitude: current.Longitude,
		}, nil
	case current.Longitude != target.Longitude:
		return Coordinate{
			Latitude:  current.Latitude,
			Longitude: current.Longitude + sign(target.Longitude-current.Longitude),
		}, nil
	default:
		return current, ErrAlreadyArrived
	}
}

func sign(v int) int {
	if v > 0 {
		return 1
	}
	return -1
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
