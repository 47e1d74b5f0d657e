package driven

import (
	"context"

	"ride-sim/internal/emulator/core/domain/model"
)

// IDispatchClient is the part of the dispatch service the emulators talk to.
// Errors wrap the sentinels of core/myerrors.
type IDispatchClient interface {
	ReportVehiclePosition(ctx context.Context, cred model.Credential, coord model.Coordinate) error
	PushRideStatus(ctx context.Context, cred model.Credential, rideID string, status model.RideStatus) error
	SetAvailability(ctx context.Context, cred model.Credential, active bool) error
	SubmitEvaluation(ctx context.Context, cred model.Credential, rideID string, score int) error
}
