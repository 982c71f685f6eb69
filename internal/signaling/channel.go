package signaling

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/BioHazard786/Warpcast/internal/wire"
)

const topicPrefix = "webrtc_signals:room:"

// DefaultSendTimeout bounds how long a Send or Join step waits for the relay.
const DefaultSendTimeout = 10 * time.Second

// RoomTopic is the presence topic shared by everyone in room.
func RoomTopic(room string) string {
	return topicPrefix + room
}

// UserTopic is the sub-channel signals for participant id travel on.
func UserTopic(room, id string) string {
	return RoomTopic(room) + ":user:" + id
}

// Conn is the part of Client a Channel needs.
type Conn interface {
	Request(ctx context.Context, msg *wire.Message) (*wire.Message, error)
	Incoming() <-chan *wire.Message
}

// Mode selects how a Channel joins its room.
type Mode int

const (
	// ModeSender listens for presence and opens a sub-channel per peer.
	ModeSender Mode = iota
	// ModeReceiver listens on its own sub-channel and announces itself.
	ModeReceiver
)

// Target addresses a Send.
type Target struct {
	peer string
	self bool
}

// ToPeer addresses the sub-channel of participant id.
func ToPeer(id string) Target { return Target{peer: id} }

// ToSelf addresses the caller's own sub-channel.
func ToSelf() Target { return Target{self: true} }

// Peer is the addressed participant, empty for ToSelf.
func (t Target) Peer() string { return t.peer }

func (t Target) IsSelf() bool { return t.self }

func (t Target) String() string {
	if t.self {
		return "self"
	}
	return t.peer
}

// Channel is one participant's view of a room on the relay.
type Channel struct {
	conn        Conn
	room        string
	self        string
	sendTimeout time.Duration
	logger      *slog.Logger

	onJoin   func(peer string)
	handlers map[Kind]func(from string, sig Signal)

	// peers maps a known peer to a channel closed once its sub-channel is
	// subscribed.
	mu    sync.Mutex
	peers map[string]chan struct{}
	wg    sync.WaitGroup
}

// NewChannel binds conn to room under the identity self. Handlers must be
// registered before Run.
func NewChannel(conn Conn, room, self string) *Channel {
	return &Channel{
		conn:        conn,
		room:        room,
		self:        self,
		sendTimeout: DefaultSendTimeout,
		logger:      slog.With("component", "signaling", "room", room),
		handlers:    make(map[Kind]func(string, Signal)),
		peers:       make(map[string]chan struct{}),
	}
}

// SetSendTimeout overrides DefaultSendTimeout.
func (ch *Channel) SetSendTimeout(d time.Duration) {
	if d > 0 {
		ch.sendTimeout = d
	}
}

// Room returns the room id.
func (ch *Channel) Room() string { return ch.room }

// Self returns the caller's identity.
func (ch *Channel) Self() string { return ch.self }

// OnPeerJoin registers fn for presence joins. It runs at least once per
// distinct peer and again on every repeated join.
func (ch *Channel) OnPeerJoin(fn func(peer string)) {
	ch.onJoin = fn
}

// OnMessage registers fn for signals of kind.
func (ch *Channel) OnMessage(kind Kind, fn func(from string, sig Signal)) {
	ch.handlers[kind] = fn
}

// Join subscribes to the room. A receiver also announces its presence.
func (ch *Channel) Join(ctx context.Context, mode Mode) error {
	if mode == ModeReceiver {
		if err := ch.subscribe(ctx, UserTopic(ch.room, ch.self)); err != nil {
			return err
		}
	}

	room := RoomTopic(ch.room)
	if err := ch.subscribe(ctx, room); err != nil {
		return err
	}

	if mode == ModeReceiver {
		if err := ch.request(ctx, &wire.Message{Type: wire.TypeTrack, Topic: room, Key: ch.self}); err != nil {
			return transportError("track", room, err)
		}
	}

	ch.logger.Info("joined room", "self", ch.self, "receiver", mode == ModeReceiver)
	return nil
}

// Leave unsubscribes every topic this channel opened.
func (ch *Channel) Leave(ctx context.Context) {
	ch.wg.Wait()

	topics := []string{RoomTopic(ch.room), UserTopic(ch.room, ch.self)}
	ch.mu.Lock()
	for peer := range ch.peers {
		topics = append(topics, UserTopic(ch.room, peer))
	}
	ch.mu.Unlock()

	for _, topic := range topics {
		ch.request(ctx, &wire.Message{Type: wire.TypeUnsubscribe, Topic: topic})
	}
}

func (ch *Channel) subscribe(ctx context.Context, topic string) error {
	if err := ch.request(ctx, &wire.Message{Type: wire.TypeSubscribe, Topic: topic}); err != nil {
		return transportError("subscribe", topic, err)
	}
	return nil
}

func (ch *Channel) request(ctx context.Context, msg *wire.Message) error {
	ctx, cancel := context.WithTimeout(ctx, ch.sendTimeout)
	defer cancel()
	_, err := ch.conn.Request(ctx, msg)
	return err
}

// Send publishes sig on the target's sub-channel and waits for the relay's
// acknowledgement.
func (ch *Channel) Send(ctx context.Context, to Target, sig Signal) error {
	id := to.peer
	if to.self {
		id = ch.self
	}
	topic := UserTopic(ch.room, id)
	op := "send " + string(sig.Kind())

	payload, err := EncodeSignal(sig)
	if err != nil {
		return sendError(op, topic, err)
	}

	msg := &wire.Message{
		Type:    wire.TypeBroadcast,
		Topic:   topic,
		Event:   string(sig.Kind()),
		Payload: payload,
	}
	if err := ch.request(ctx, msg); err != nil {
		return sendError(op, topic, err)
	}
	return nil
}

// Run dispatches relay pushes until ctx is done or the connection ends.
func (ch *Channel) Run(ctx context.Context) error {
	defer ch.wg.Wait()

	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch.conn.Incoming():
			if !ok {
				return transportError("receive", RoomTopic(ch.room), ErrConnectionLost)
			}
			ch.dispatch(ctx, msg)
		}
	}
}

func (ch *Channel) dispatch(ctx context.Context, msg *wire.Message) {
	switch msg.Type {
	case wire.TypePresenceJoin:
		if msg.Topic != RoomTopic(ch.room) || msg.Key == "" || msg.Key == ch.self {
			return
		}
		ch.peerJoined(ctx, msg.Key)

	case wire.TypePresenceLeave:
		ch.logger.Debug("peer left", "peer", msg.Key)

	case wire.TypeEvent:
		ch.deliver(msg)
	}
}

// peerJoined makes sure the peer's sub-channel is subscribed, then reports
// the join. Subscriptions run off the dispatch loop so replies and further
// pushes keep flowing.
func (ch *Channel) peerJoined(ctx context.Context, peer string) {
	ch.mu.Lock()
	ready, known := ch.peers[peer]
	if !known {
		ready = make(chan struct{})
		ch.peers[peer] = ready
	}
	ch.mu.Unlock()

	ch.wg.Add(1)
	go func() {
		defer ch.wg.Done()

		if !known {
			if err := ch.subscribe(ctx, UserTopic(ch.room, peer)); err != nil {
				ch.logger.Warn("could not open peer sub-channel", "peer", peer, "err", err)
				ch.mu.Lock()
				delete(ch.peers, peer)
				ch.mu.Unlock()
				close(ready)
				return
			}
			close(ready)
		} else {
			select {
			case <-ready:
			case <-ctx.Done():
				return
			}
			ch.mu.Lock()
			_, ok := ch.peers[peer]
			ch.mu.Unlock()
			if !ok {
				return
			}
		}

		ch.logger.Debug("peer joined", "peer", peer, "repeat", known)
		if ch.onJoin != nil {
			ch.onJoin(peer)
		}
	}()
}

func (ch *Channel) deliver(msg *wire.Message) {
	kind := Kind(msg.Event)
	handler, ok := ch.handlers[kind]
	if !ok {
		ch.logger.Debug("no handler for signal", "kind", kind, "topic", msg.Topic)
		return
	}

	sig, err := DecodeSignal(kind, msg.Payload)
	if err != nil {
		ch.logger.Warn("dropping malformed signal", "kind", kind, "err", err)
		return
	}

	from := ch.senderOf(msg.Topic)
	if c, ok := sig.(Candidates); ok {
		c.Peer = from
		sig = c
	}
	handler(from, sig)
}

// senderOf derives the origin of an event from its topic. Events on the
// caller's own sub-channel come from the room's sender, who has no id.
func (ch *Channel) senderOf(topic string) string {
	prefix := RoomTopic(ch.room) + ":user:"
	if !strings.HasPrefix(topic, prefix) {
		return ""
	}
	id := strings.TrimPrefix(topic, prefix)
	if id == ch.self {
		return ""
	}
	return id
}
