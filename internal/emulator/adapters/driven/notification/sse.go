package notification

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/emulator/core/myerrors"
	"ride-sim/internal/mylogger"
)

// SSETransport reads the notification endpoint as a text/event-stream and
// reconnects when the stream drops.
type SSETransport struct {
	url    string
	retry  time.Duration
	client *http.Client
	log    mylogger.Logger
}

func NewSSETransport(baseURL string, target Target, retry time.Duration, log mylogger.Logger) *SSETransport {
	if retry <= 0 {
		retry = DefaultRetry
	}
	return &SSETransport{
		url:    trimBase(baseURL) + target.Path,
		retry:  retry,
		client: &http.Client{},
		log:    log.With("transport", "sse"),
	}
}

func (t *SSETransport) Subscribe(ctx context.Context, cred model.Credential) (<-chan model.RideNotification, error) {
	if cred.AccessToken == "" {
		return nil, myerrors.ErrNoCredential
	}
	out := make(chan model.RideNotification)
	go func() {
		defer close(out)
		retry := t.retry
		for {
			err := t.stream(ctx, cred, out, &retry)
			if ctx.Err() != nil {
				return
			}
			if err != nil {
				t.log.Action("stream_dropped").Warn("notification stream dropped", "error", err.Error(), "retry", retry.String())
			}
			if !wait(ctx, retry) {
				return
			}
		}
	}()
	return out, nil
}

func (t *SSETransport) stream(ctx context.Context, cred model.Credential, out chan<- model.RideNotification, retry *time.Duration) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.url, nil)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Authorization", bearer(cred.AccessToken))

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", myerrors.ErrTransport, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", myerrors.ErrTransport, resp.StatusCode)
	}
	t.log.Action("stream_connected").Debug("notification stream open", "url", t.url)

	return readEvents(resp.Body,
		func(data string) bool {
			n, ok, err := decode([]byte(data))
			if err != nil {
				t.log.Action("notification_undecodable").Warn("bad event", "error", err.Error())
				return true
			}
			if !ok {
				return true
			}
			return emit(ctx, out, n)
		},
		func(d time.Duration) { *retry = d },
	)
}

// readEvents splits an event stream. onEvent gets the joined data lines of
// every event that has any and returns false to stop reading.
func readEvents(r io.Reader, onEvent func(data string) bool, onRetry func(time.Duration)) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64<<10), 1<<20)

	var data []string
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			if len(data) > 0 {
				payload := strings.Join(data, "\n")
				data = data[:0]
				if !onEvent(payload) {
					return nil
				}
			}
			continue
		}
		if strings.HasPrefix(line, ":") {
			continue
		}

		field, value, _ := strings.Cut(line, ":")
		value = strings.TrimPrefix(value, " ")
		switch field {
		case "data":
			data = append(data, value)
		case "retry":
			if ms, err := strconv.Atoi(value); err == nil && ms > 0 {
				onRetry(time.Duration(ms) * time.Millisecond)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("%w: %v", myerrors.ErrTransport, err)
	}
	return io.EOF
}
