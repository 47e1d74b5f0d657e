package ws

import (
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 30 * time.Second
	egressSize = 8
)

type Client struct {
	conn   *websocket.Conn
	dis    *Dispatcher
	egress chan []byte
	userID string

	once sync.Once
	done chan struct{}
}

func NewClient(conn *websocket.Conn, dis *Dispatcher, userID string) *Client {
	return &Client{
		conn:   conn,
		dis:    dis,
		egress: make(chan []byte, egressSize),
		userID: userID,
		done:   make(chan struct{}),
	}
}

// ReadMessage only drains control frames; the feed is one way after auth.
func (c *Client) ReadMessage() {
	defer c.dis.RemoveClient(c)

	c.conn.SetReadLimit(1024)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.dis.log.Action("ws_read").Debug("client went away", "user_id", c.userID, "error", err.Error())
			}
			return
		}
	}
}

func (c *Client) WriteMessage() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.dis.RemoveClient(c)
	}()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.egress:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// send queues msg without blocking; a slow client misses snapshots.
func (c *Client) send(msg []byte) bool {
	select {
	case <-c.done:
		return false
	case c.egress <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.once.Do(func() {
		close(c.done)
		c.conn.Close()
	})
}
