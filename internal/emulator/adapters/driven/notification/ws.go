package notification

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ride-sim/internal/emulator/core/domain/model"
	"ride-sim/internal/emulator/core/myerrors"
	"ride-sim/internal/mylogger"

	"github.com/gorilla/websocket"
)

// WSTransport reads JSON notification frames from a websocket. The token goes
// in the handshake's Authorization header.
type WSTransport struct {
	url    string
	retry  time.Duration
	dialer *websocket.Dialer
	log    mylogger.Logger
}

func NewWSTransport(baseURL string, target Target, retry time.Duration, log mylogger.Logger) *WSTransport {
	if retry <= 0 {
		retry = DefaultRetry
	}
	base := trimBase(baseURL)
	switch {
	case strings.HasPrefix(base, "https://"):
		base = "wss://" + strings.TrimPrefix(base, "https://")
	case strings.HasPrefix(base, "http://"):
		base = "ws://" + strings.TrimPrefix(base, "http://")
	}
	return &WSTransport{
		url:    base + target.WSPath,
		retry:  retry,
		dialer: &websocket.Dialer{HandshakeTimeout: 10 * time.Second},
		log:    log.With("transport", "ws"),
	}
}

func (t *WSTransport) Subscribe(ctx context.Context, cred model.Credential) (<-chan model.RideNotification, error) {
	if cred.AccessToken == "" {
		return nil, myerrors.ErrNoCredential
	}
	out := make(chan model.RideNotification)
	go func() {
		defer close(out)
		for {
			err := t.read(ctx, cred, out)
			if ctx.Err() != nil {
				return
			}
			t.log.Action("stream_dropped").Warn("notification socket dropped", "error", err.Error(), "retry", t.retry.String())
			if !wait(ctx, t.retry) {
				return
			}
		}
	}()
	return out, nil
}

func (t *WSTransport) read(ctx context.Context, cred model.Credential, out chan<- model.RideNotification) error {
	header := http.Header{}
	header.Set("Authorization", bearer(cred.AccessToken))

	conn, _, err := t.dialer.DialContext(ctx, t.url, header)
	if err != nil {
		return fmt.Errorf("%w: connecting to websocket: %v", myerrors.ErrTransport, err)
	}
	defer conn.Close()
	t.log.Action("stream_connected").Debug("notification socket open", "url", t.url)

	// unblock ReadMessage once ctx is done
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("%w: reading message: %v", myerrors.ErrTransport, err)
		}
		n, ok, err := decode(payload)
		if err != nil {
			t.log.Action("notification_undecodable").Warn("bad frame", "error", err.Error())
			continue
		}
		if ok && !emit(ctx, out, n) {
			return nil
		}
	}
}
