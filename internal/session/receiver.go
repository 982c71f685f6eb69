package session

import (
	"context"

	"github.com/BioHazard786/Warpcast/internal/identity"
	"github.com/BioHazard786/Warpcast/internal/negotiation"
	"github.com/BioHazard786/Warpcast/internal/signaling"
)

// RunReceiver joins an existing room, answers its sender and hands the
// stream to the renderer once connected.
func RunReceiver(ctx context.Context, opts Options) (*Summary, error) {
	if opts.Room == "" {
		return nil, ErrMissingRoom
	}
	if err := identity.ValidateRoomID(opts.Room); err != nil {
		return nil, err
	}
	self := opts.PeerID
	if self == "" {
		self = identity.NewPeerID()
	}
	if err := identity.ValidatePeerID(self); err != nil {
		return nil, err
	}

	factory, err := opts.factory()
	if err != nil {
		return nil, err
	}

	client, ch, err := opts.connect(ctx, opts.Room, self)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	h := newHistory()
	receiver, err := negotiation.NewReceiver(opts.engineConfig(factory, ch, h), opts.Renderer)
	if err != nil {
		return nil, err
	}
	ch.OnMessage(signaling.KindOffer, receiver.HandleSignal)
	ch.OnMessage(signaling.KindCandidates, receiver.HandleSignal)

	err = run(ctx, ch, receiver.Engine, signaling.ModeReceiver, func() {
		if opts.OnReady != nil {
			opts.OnReady(Ready{Role: RoleReceiver, Room: opts.Room, Self: self})
		}
	})
	return h.summary(RoleReceiver, opts.Room, self), err
}
