package driven

import (
	"context"

	"ride-sim/internal/emulator/core/domain/model"
)

// INotificationTransport opens the push stream of one participant. The stream
// is closed once ctx is done; reconnecting in between is the transport's job.
type INotificationTransport interface {
	Subscribe(ctx context.Context, cred model.Credential) (<-chan model.RideNotification, error)
}
