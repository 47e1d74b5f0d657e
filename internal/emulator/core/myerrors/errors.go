package myerrors

import "errors"

var (
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrNotFound          = errors.New("ride not found")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrTransport         = errors.New("dispatch unreachable")

	ErrUnknownVehicle  = errors.New("unknown vehicle")
	ErrEmulatorRunning = errors.New("emulator already running")
	ErrNoCredential    = errors.New("no access token")
	ErrVehicleBound    = errors.New("owner drives another vehicle")
	ErrNoJournal       = errors.New("event journal disabled")
)
