package notification

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/emulator/core/myerrors"
	"ride-sim/internal/mylogger"
)

// PollTransport asks the notification endpoint for the current ride over and
// over, waiting retry_after_ms between requests when the server sends one.
type PollTransport struct {
	url      string
	interval time.Duration
	client   *http.Client
	log      mylogger.Logger
}

func NewPollTransport(baseURL string, target Target, interval, timeout time.Duration, log mylogger.Logger) *PollTransport {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &PollTransport{
		url:      trimBase(baseURL) + target.Path,
		interval: interval,
		client:   &http.Client{Timeout: timeout},
		log:      log.With("transport", "poll"),
	}
}

func (t *PollTransport) Subscribe(ctx context.Context, cred model.Credential) (<-chan model.RideNotification, error) {
	if cred.AccessToken == "" {
		return nil, myerrors.ErrNoCredential
	}
	out := make(chan model.RideNotification)
	go func() {
		defer close(out)
		for {
			next, err := t.poll(ctx, cred, out)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				t.log.Action("poll_failed").Warn("notification poll failed", "error", err.Error())
			}
			if !wait(ctx, next) {
				return
			}
		}
	}()
	return out, nil
}

// poll does one request and returns how long to wait before the next.
func (t *PollTransport) poll(ctx context.Context, cred model.Credential, out chan<- model.RideNotification) (time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return t.interval, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", bearer(cred.AccessToken))

	resp, err := t.client.Do(req)
	if err != nil {
		return t.interval, fmt.Errorf("%w: %v", myerrors.ErrTransport, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNoContent:
		return t.interval, nil
	case resp.StatusCode != http.StatusOK:
		return t.interval, fmt.Errorf("%w: status %d", myerrors.ErrTransport, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return t.interval, fmt.Errorf("%w: %v", myerrors.ErrTransport, err)
	}
	next := t.interval
	if ms := retryAfter(data); ms > 0 {
		next = time.Duration(ms) * time.Millisecond
	}

	n, ok, err := decode(data)
	if err != nil {
		return next, err
	}
	if ok {
		emit(ctx, out, n)
	}
	return next, nil
}
