package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ride-sim/internal/emulator/core/domain/dto"
	"ride-sim/internal/emulator/core/domain/model"
)

const (
	DefaultRetry        = 3 * time.Second
	DefaultPollInterval = 10 * time.Second
)

// Target selects whose stream is read.
type Target struct {
	Path   string
	WSPath string
}

var (
	ChairTarget = Target{Path: "/api/chair/notification", WSPath: "/ws/chair/notification"}
	AppTarget   = Target{Path: "/api/app/notification", WSPath: "/ws/app/notification"}
)

// decode reads one notification payload. An empty payload or "null" means
// there is no ride and yields false.
func decode(data []byte) (model.RideNotification, bool, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return model.RideNotification{}, false, nil
	}

	var envelope dto.NotificationResponse
	if err := json.Unmarshal(data, &envelope); err == nil && envelope.Data != nil {
		return envelope.Data.ToModel(), true, nil
	}

	var payload dto.NotificationData
	if err := json.Unmarshal(data, &payload); err != nil {
		return model.RideNotification{}, false, fmt.Errorf("decode notification: %w", err)
	}
	if payload.RideID == "" && payload.RequestID == "" {
		return model.RideNotification{}, false, nil
	}
	return payload.ToModel(), true, nil
}

// emit hands n to out unless ctx ends first.
func emit(ctx context.Context, out chan<- model.RideNotification, n model.RideNotification) bool {
	select {
	case out <- n:
		return true
	case <-ctx.Done():
		return false
	}
}

// wait sleeps for d or until ctx is done, and reports whether to go on.
func wait(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func bearer(token string) string {
	return "Bearer " + token
}

func trimBase(baseURL string) string {
	return strings.TrimRight(baseURL, "/")
}

func retryAfter(data []byte) int {
	var envelope dto.NotificationResponse
	if err := json.Unmarshal(data, &envelope); err != nil {
		return 0
	}
	return envelope.RetryAfterMs
}
