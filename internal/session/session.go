package session

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/BioHazard786/Warpcast/internal/config"
	"github.com/BioHazard786/Warpcast/internal/media"
	"github.com/BioHazard786/Warpcast/internal/negotiation"
	"github.com/BioHazard786/Warpcast/internal/signaling"
	"github.com/BioHazard786/Warpcast/internal/wire"
)

var ErrMissingRoom = errors.New("room id required")

// Role is the part a participant plays in a room.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Ready is reported once the participant has joined its room.
type Ready struct {
	Role Role
	Room string
	Self string
}

// Options configure a session. Zero values fall back to the production
// wiring built from Config.
type Options struct {
	Config *config.Config
	Room   string
	PeerID string

	// Sender only.
	Source      media.Source
	Kind        media.Kind
	Constraints media.Constraints

	// Receiver only.
	Renderer media.Renderer

	// Factory overrides the pion peer connection factory.
	Factory  negotiation.Factory
	Observer negotiation.Observer
	OnReady  func(Ready)
	Logger   *slog.Logger
}

func (o *Options) logger() *slog.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return slog.Default()
}

func (o *Options) factory() (negotiation.Factory, error) {
	if o.Factory != nil {
		return o.Factory, nil
	}
	api, err := negotiation.NewAPI(negotiation.WithLogger(o.logger()))
	if err != nil {
		return nil, err
	}
	return negotiation.NewPionFactory(api, o.Config.PeerConfiguration()), nil
}

// connect dials the relay and binds a room channel for self.
func (o *Options) connect(ctx context.Context, room, self string) (*signaling.Client, *signaling.Channel, error) {
	codec, err := wire.CodecByName(o.Config.Encoding)
	if err != nil {
		return nil, nil, err
	}
	client := signaling.NewClient(o.Config.WebSocketURL, codec)
	if err := client.Connect(ctx); err != nil {
		return nil, nil, err
	}
	ch := signaling.NewChannel(client, room, self)
	ch.SetSendTimeout(o.Config.SendTimeout)
	return client, ch, nil
}

func (o *Options) engineConfig(factory negotiation.Factory, ch *signaling.Channel, h *history) negotiation.Config {
	return negotiation.Config{
		Factory:         factory,
		Transport:       ch,
		CandidateWindow: o.Config.CandidateWindow,
		Observer:        h.observe(o.Observer),
		Logger:          o.logger(),
	}
}

// Summary is what a finished session leaves behind.
type Summary struct {
	Role  Role
	Room  string
	Self  string
	Links []negotiation.LinkEvent
}

// history keeps the last event seen for every link. A link is identified by
// its peer and creation time since the receiver learns its link id late.
type history struct {
	mu    sync.Mutex
	links map[linkKey]negotiation.LinkEvent
}

type linkKey struct {
	peer  string
	since time.Time
}

func newHistory() *history {
	return &history{links: make(map[linkKey]negotiation.LinkEvent)}
}

func (h *history) observe(next negotiation.Observer) negotiation.Observer {
	return func(ev negotiation.LinkEvent) {
		h.mu.Lock()
		h.links[linkKey{ev.Peer, ev.Since}] = ev
		h.mu.Unlock()
		if next != nil {
			next(ev)
		}
	}
}

func (h *history) summary(role Role, room, self string) *Summary {
	h.mu.Lock()
	defer h.mu.Unlock()
	s := &Summary{Role: role, Room: room, Self: self}
	for _, ev := range h.links {
		s.Links = append(s.Links, ev)
	}
	sort.Slice(s.Links, func(i, j int) bool { return s.Links[i].Since.Before(s.Links[j].Since) })
	return s
}
