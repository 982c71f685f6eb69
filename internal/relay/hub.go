package relay

import (
	"context"
	"log/slog"

	"go.uber.org/atomic"

	"github.com/BioHazard786/Warpcast/internal/wire"
)

type inbound struct {
	client *Client
	msg    *wire.Message
}

// Stats are relay counters exposed on /stats.
type Stats struct {
	Clients    atomic.Int64
	Topics     atomic.Int64
	Broadcasts atomic.Uint64
	Dropped    atomic.Uint64
}

// StatsSnapshot is the JSON view of Stats.
type StatsSnapshot struct {
	Clients    int64  `json:"clients"`
	Topics     int64  `json:"topics"`
	Broadcasts uint64 `json:"broadcasts"`
	Dropped    uint64 `json:"dropped"`
}

// Hub is the single goroutine that owns every topic, subscription and
// presence entry of the relay.
type Hub struct {
	topics  map[string]*Topic
	clients map[*Client]struct{}

	Register   chan *Client
	Unregister chan *Client
	Inbound    chan inbound

	stats  Stats
	logger *slog.Logger
	done   chan struct{}
}

// NewHub creates a hub. Call Run to start it.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		topics:     make(map[string]*Topic),
		clients:    make(map[*Client]struct{}),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
		Inbound:    make(chan inbound),
		logger:     logger.With("component", "relay"),
		done:       make(chan struct{}),
	}
}

// Snapshot returns the current counters.
func (h *Hub) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Clients:    h.stats.Clients.Load(),
		Topics:     h.stats.Topics.Load(),
		Broadcasts: h.stats.Broadcasts.Load(),
		Dropped:    h.stats.Dropped.Load(),
	}
}

// Done is closed once Run has returned.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) dispatch(in inbound) bool {
	select {
	case h.Inbound <- in:
		return true
	case <-h.done:
		return false
	}
}

func (h *Hub) unregister(c *Client) {
	select {
	case h.Unregister <- c:
	case <-h.done:
	}
}

// Run processes registrations and client requests until ctx is cancelled.
func (h *Hub) Run(ctx context.Context) {
	defer func() {
		for c := range h.clients {
			h.drop(c)
		}
		close(h.done)
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case c := <-h.Register:
			h.clients[c] = struct{}{}
			h.stats.Clients.Inc()
			h.logger.Info("client connected", "addr", c.addr, "encoding", c.codec.Name())

		case c := <-h.Unregister:
			if _, ok := h.clients[c]; ok {
				h.logger.Info("client disconnected", "addr", c.addr)
				h.drop(c)
			}

		case in := <-h.Inbound:
			if _, ok := h.clients[in.client]; !ok {
				continue
			}
			h.handle(in.client, in.msg)
		}
	}
}

func (h *Hub) handle(c *Client, msg *wire.Message) {
	h.logger.Debug("request", "addr", c.addr, "type", msg.Type, "topic", msg.Topic, "event", msg.Event)

	switch msg.Type {
	case wire.TypeSubscribe:
		h.subscribe(c, msg)
	case wire.TypeUnsubscribe:
		if t, ok := c.topics[msg.Topic]; ok {
			h.leave(c, t)
		}
		h.deliver(c, msg.Reply(wire.TypeAck))
	case wire.TypeTrack:
		h.track(c, msg)
	case wire.TypeBroadcast:
		h.broadcast(c, msg)
	default:
		h.deliver(c, msg.Fail("unknown message type"))
	}
}

func (h *Hub) subscribe(c *Client, msg *wire.Message) {
	if msg.Topic == "" {
		h.deliver(c, msg.Fail("topic required"))
		return
	}

	t, ok := h.topics[msg.Topic]
	if !ok {
		t = newTopic(msg.Topic)
		h.topics[msg.Topic] = t
		h.stats.Topics.Inc()
	}
	t.subscribers[c] = struct{}{}
	c.topics[t.Name] = t

	h.deliver(c, msg.Reply(wire.TypeSubscribed))

	// Late subscribers learn about everyone already present.
	for _, key := range t.keys() {
		if t.presence[key] == c {
			continue
		}
		h.deliver(c, &wire.Message{Type: wire.TypePresenceJoin, Topic: t.Name, Key: key})
	}
}

func (h *Hub) track(c *Client, msg *wire.Message) {
	t, ok := c.topics[msg.Topic]
	if !ok {
		h.deliver(c, msg.Fail("not subscribed"))
		return
	}
	if msg.Key == "" {
		h.deliver(c, msg.Fail("presence key required"))
		return
	}

	if prev, ok := c.keys[t.Name]; ok && prev != msg.Key {
		h.untrack(c, t)
	}
	t.presence[msg.Key] = c
	c.keys[t.Name] = msg.Key

	h.deliver(c, msg.Reply(wire.TypeAck))
	h.fanout(t, c, &wire.Message{Type: wire.TypePresenceJoin, Topic: t.Name, Key: msg.Key})
}

func (h *Hub) broadcast(c *Client, msg *wire.Message) {
	t, ok := c.topics[msg.Topic]
	if !ok {
		h.deliver(c, msg.Fail("not subscribed"))
		return
	}
	if msg.Event == "" {
		h.deliver(c, msg.Fail("event required"))
		return
	}

	h.stats.Broadcasts.Inc()
	h.fanout(t, c, &wire.Message{
		Type:    wire.TypeEvent,
		Topic:   t.Name,
		Event:   msg.Event,
		Payload: msg.Payload,
	})
	h.deliver(c, msg.Reply(wire.TypeAck))
}

// fanout sends msg to every subscriber of t except the origin.
func (h *Hub) fanout(t *Topic, origin *Client, msg *wire.Message) {
	for sub := range t.subscribers {
		if sub != origin {
			h.deliver(sub, msg)
		}
	}
}

func (h *Hub) untrack(c *Client, t *Topic) {
	key, ok := c.keys[t.Name]
	if !ok {
		return
	}
	delete(c.keys, t.Name)
	if t.presence[key] != c {
		return
	}
	delete(t.presence, key)
	h.fanout(t, c, &wire.Message{Type: wire.TypePresenceLeave, Topic: t.Name, Key: key})
}

func (h *Hub) leave(c *Client, t *Topic) {
	h.untrack(c, t)
	delete(t.subscribers, c)
	delete(c.topics, t.Name)

	if t.empty() {
		delete(h.topics, t.Name)
		h.stats.Topics.Dec()
		h.logger.Debug("topic deleted", "topic", t.Name)
	}
}

func (h *Hub) drop(c *Client) {
	for _, t := range c.topics {
		h.leave(c, t)
	}
	delete(h.clients, c)
	h.stats.Clients.Dec()
	close(c.send)
}

// deliver never blocks the hub: a client whose buffer is full loses the frame.
func (h *Hub) deliver(c *Client, msg *wire.Message) {
	select {
	case c.send <- msg:
	default:
		h.stats.Dropped.Inc()
		h.logger.Warn("dropping frame for slow client", "addr", c.addr, "type", msg.Type, "topic", msg.Topic)
	}
}
