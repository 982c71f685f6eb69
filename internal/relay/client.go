package relay

import (
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/BioHazard786/Warpcast/internal/wire"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum frame size; an SDP with a handful of media sections fits easily.
	maxMessageSize = 64 * 1024

	sendBuffer = 256
)

// Client is one websocket connection to the relay.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	codec wire.Codec
	addr  string

	// send is drained by WritePump. Only the hub closes it.
	send chan *wire.Message

	// topics and keys are owned by the hub goroutine.
	topics map[string]*Topic
	keys   map[string]string
}

// NewClient wraps an upgraded connection.
func NewClient(hub *Hub, conn *websocket.Conn, codec wire.Codec) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		codec:  codec,
		addr:   conn.RemoteAddr().String(),
		send:   make(chan *wire.Message, sendBuffer),
		topics: make(map[string]*Topic),
		keys:   make(map[string]string),
	}
}

// ReadPump pumps frames from the connection to the hub. It must be the only
// reader of the connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.hub.logger.Warn("relay read failed", "addr", c.addr, "err", err)
			}
			return
		}

		msg := &wire.Message{}
		if err := c.codec.Decode(data, msg); err != nil {
			c.hub.logger.Debug("dropping undecodable frame", "addr", c.addr, "err", err)
			continue
		}

		if !c.hub.dispatch(inbound{client: c, msg: msg}) {
			return
		}
	}
}

// WritePump pumps messages from the hub to the connection and keeps it alive
// with pings. It must be the only writer of the connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			data, err := c.codec.Encode(msg)
			if err != nil {
				slog.Error("relay encode failed", "addr", c.addr, "type", msg.Type, "err", err)
				continue
			}
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
