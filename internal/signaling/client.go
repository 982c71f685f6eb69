package signaling

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/atomic"

	"github.com/BioHazard786/Warpcast/internal/dns"
	"github.com/BioHazard786/Warpcast/internal/wire"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024

	incomingBuffer = 64
)

// Client manages the WebSocket connection to the relay. Requests are matched
// to their replies by ref; everything else is pushed on Incoming.
type Client struct {
	serverURL string
	codec     wire.Codec
	conn      *websocket.Conn

	refs    atomic.Uint64
	mu      sync.Mutex
	pending map[uint64]chan *wire.Message

	incoming chan *wire.Message
	outgoing chan *wire.Message

	// lost is closed when the read side ends, done when Close is called.
	lost      chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewClient creates a new relay client.
func NewClient(serverURL string, codec wire.Codec) *Client {
	if codec == nil {
		codec = wire.JSON
	}
	return &Client{
		serverURL: serverURL,
		codec:     codec,
		pending:   make(map[uint64]chan *wire.Message),
		incoming:  make(chan *wire.Message, incomingBuffer),
		outgoing:  make(chan *wire.Message, 1),
		lost:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Connect establishes the WebSocket connection to the relay.
func (c *Client) Connect(ctx context.Context) error {
	dialer := websocket.Dialer{
		NetDialContext:   dns.DialContext,
		HandshakeTimeout: 15 * time.Second,
	}

	conn, _, err := dialer.DialContext(ctx, c.serverURL, nil)
	if err != nil {
		return transportError("connect", "", err)
	}

	c.conn = conn
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	go c.readPump()
	go c.writePump()

	return nil
}

// readPump reads frames from the connection and routes them.
func (c *Client) readPump() {
	defer func() {
		c.conn.Close()
		close(c.lost)
		close(c.incoming)
	}()

	c.conn.SetReadDeadline(time.Now().Add(pongWait))

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
			default:
				slog.Warn("relay connection closed", "err", err)
			}
			return
		}

		msg := &wire.Message{}
		if err := c.codec.Decode(data, msg); err != nil {
			slog.Debug("dropping undecodable relay frame", "err", err)
			continue
		}

		if msg.IsReply() {
			c.resolve(msg)
			continue
		}

		select {
		case c.incoming <- msg:
		case <-c.done:
			return
		}
	}
}

// writePump writes messages to the connection and sends periodic pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)

	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg := <-c.outgoing:
			data, err := c.codec.Encode(msg)
			if err != nil {
				c.resolve(msg.Fail(err.Error()))
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(c.codec.FrameType(), data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.lost:
			return

		case <-c.done:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			c.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}

func (c *Client) resolve(reply *wire.Message) {
	c.mu.Lock()
	ch, ok := c.pending[reply.Ref]
	delete(c.pending, reply.Ref)
	c.mu.Unlock()

	if ok {
		ch <- reply
	}
}

// Request sends msg with a fresh ref and waits for the relay's reply. An
// error reply is returned as an error.
func (c *Client) Request(ctx context.Context, msg *wire.Message) (*wire.Message, error) {
	msg.Ref = c.refs.Inc()
	reply := make(chan *wire.Message, 1)

	c.mu.Lock()
	c.pending[msg.Ref] = reply
	c.mu.Unlock()

	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.Ref)
		c.mu.Unlock()
	}()

	select {
	case c.outgoing <- msg:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.lost:
		return nil, ErrConnectionLost
	case <-c.done:
		return nil, ErrClosed
	}

	select {
	case r := <-reply:
		if r.Type == wire.TypeError {
			return r, fmt.Errorf("relay rejected %s: %s", msg.Type, r.Error)
		}
		return r, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.lost:
		return nil, ErrConnectionLost
	case <-c.done:
		return nil, ErrClosed
	}
}

// Incoming returns relay pushes (events and presence). It is closed when the
// connection ends.
func (c *Client) Incoming() <-chan *wire.Message {
	return c.incoming
}

// Close closes the connection. It is safe to call more than once.
func (c *Client) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
	})
}
