package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"ride-sim/internal/emulator/adapters/driver/myhttp/middleware"
	"ride-sim/internal/emulator/core/domain/dto"
	"ride-sim/internal/emulator/core/ports/driver"
	"ride-sim/internal/mylogger"

	"github.com/gorilla/websocket"
)

const DefaultAuthTimeout = 5 * time.Second

var errNotAuth = errors.New("first message must be auth")

var websocketUpgrader = websocket.Upgrader{
	CheckOrigin:     func(r *http.Request) bool { return true },
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

type Authenticator interface {
	Authenticate(token string) (middleware.Identity, error)
}

// ClientList is a map used to help manage a map of clients
type ClientList map[*Client]bool

// Dispatcher pushes fleet snapshots to every authenticated feed connection.
type Dispatcher struct {
	sync.RWMutex
	clients ClientList

	fleet       driver.IFleetService
	auth        Authenticator
	log         mylogger.Logger
	authTimeout time.Duration
}

func NewDispatcher(log mylogger.Logger, fleet driver.IFleetService, auth Authenticator) *Dispatcher {
	return &Dispatcher{
		clients:     make(ClientList),
		fleet:       fleet,
		auth:        auth,
		log:         log,
		authTimeout: DefaultAuthTimeout,
	}
}

func (d *Dispatcher) WsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log := d.log.Action("ws_fleet")

		conn, err := websocketUpgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Error("cannot upgrade", err)
			return
		}

		id, err := d.authenticate(conn)
		if err != nil {
			log.Warn("feed authentication failed", "remote", r.RemoteAddr, "error", err.Error())
			d.reply(conn, dto.AuthResult{Success: false, Message: err.Error()})
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.ClosePolicyViolation, "unauthorized"),
				time.Now().Add(writeWait))
			conn.Close()
			return
		}
		d.reply(conn, dto.AuthResult{Success: true, UserID: id.UserID})

		client := NewClient(conn, d, id.UserID)
		d.AddClient(client)
		if msg, err := d.snapshotMessage(); err == nil {
			client.send(msg)
		}
		log.Info("feed client connected", "user_id", id.UserID)

		go client.ReadMessage()
		go client.WriteMessage()
	}
}

func (d *Dispatcher) authenticate(conn *websocket.Conn) (middleware.Identity, error) {
	_ = conn.SetReadDeadline(time.Now().Add(d.authTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, payload, err := conn.ReadMessage()
	if err != nil {
		return middleware.Identity{}, err
	}
	var event dto.WSEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return middleware.Identity{}, err
	}
	if event.Type != dto.WSEventAuth {
		return middleware.Identity{}, errNotAuth
	}
	var msg dto.AuthMessage
	if err := json.Unmarshal(event.Data, &msg); err != nil {
		return middleware.Identity{}, err
	}
	return d.auth.Authenticate(msg.Token)
}

func (d *Dispatcher) reply(conn *websocket.Conn, res dto.AuthResult) {
	data, _ := json.Marshal(res)
	msg, _ := json.Marshal(dto.WSEvent{Type: dto.WSEventAuth, Data: data})
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = conn.WriteMessage(websocket.TextMessage, msg)
}

func (d *Dispatcher) snapshotMessage() ([]byte, error) {
	data, err := json.Marshal(d.fleet.Snapshot())
	if err != nil {
		return nil, err
	}
	return json.Marshal(dto.WSEvent{Type: dto.WSEventFleetSnapshot, Data: data})
}

// Broadcast sends the current fleet snapshot to every client.
func (d *Dispatcher) Broadcast() {
	msg, err := d.snapshotMessage()
	if err != nil {
		d.log.Action("ws_broadcast").Error("cannot encode snapshot", err)
		return
	}

	d.RLock()
	defer d.RUnlock()
	for c := range d.clients {
		if !c.send(msg) {
			d.log.Action("ws_broadcast").Debug("snapshot dropped", "user_id", c.userID)
		}
	}
}

// Run broadcasts every interval until ctx is done, then drops all clients.
func (d *Dispatcher) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.CloseAll()
			return
		case <-ticker.C:
			d.Broadcast()
		}
	}
}

func (d *Dispatcher) AddClient(client *Client) {
	d.Lock()
	defer d.Unlock()

	d.clients[client] = true
}

func (d *Dispatcher) RemoveClient(client *Client) {
	d.Lock()
	_, ok := d.clients[client]
	delete(d.clients, client)
	d.Unlock()

	client.close()
	if ok {
		d.log.Action("ws_fleet").Info("feed client disconnected", "user_id", client.userID)
	}
}

func (d *Dispatcher) CloseAll() {
	d.Lock()
	clients := d.clients
	d.clients = make(ClientList)
	d.Unlock()

	for c := range clients {
		c.close()
	}
}

func (d *Dispatcher) Len() int {
	d.RLock()
	defer d.RUnlock()
	return len(d.clients)
}
