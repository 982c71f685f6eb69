package session

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/BioHazard786/Warpcast/internal/identity"
	"github.com/BioHazard786/Warpcast/internal/negotiation"
	"github.com/BioHazard786/Warpcast/internal/signaling"
)

// RunSender acquires local media, joins the room and offers the stream to
// every peer that shows up until ctx is cancelled. A room id is generated
// when none is given.
func RunSender(ctx context.Context, opts Options) (*Summary, error) {
	room := opts.Room
	if room == "" {
		room = identity.NewRoomID()
	}
	if err := identity.ValidateRoomID(room); err != nil {
		return nil, err
	}
	self := opts.PeerID
	if self == "" {
		self = identity.NewPeerID()
	}
	if err := identity.ValidatePeerID(self); err != nil {
		return nil, err
	}
	if opts.Source == nil {
		return nil, fmt.Errorf("sender needs a media source")
	}

	stream, err := opts.Source.Acquire(ctx, opts.Kind, opts.Constraints)
	if err != nil {
		return nil, err
	}
	defer stream.Close()

	factory, err := opts.factory()
	if err != nil {
		return nil, err
	}

	client, ch, err := opts.connect(ctx, room, self)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	h := newHistory()
	sender := negotiation.NewSender(opts.engineConfig(factory, ch, h), stream)
	ch.OnPeerJoin(sender.HandleJoin)
	ch.OnMessage(signaling.KindAnswer, sender.HandleSignal)
	ch.OnMessage(signaling.KindCandidates, sender.HandleSignal)

	err = run(ctx, ch, sender.Engine, signaling.ModeSender, func() {
		if opts.OnReady != nil {
			opts.OnReady(Ready{Role: RoleSender, Room: room, Self: self})
		}
	})
	return h.summary(RoleSender, room, self), err
}

const leaveTimeout = 2 * time.Second

// run drives the channel's dispatch loop and the engine together, joins the
// room, and waits until either stops.
func run(ctx context.Context, ch *signaling.Channel, engine *negotiation.Engine, mode signaling.Mode, ready func()) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return engine.Run(gctx) })
	g.Go(func() error { return ch.Run(gctx) })

	if err := ch.Join(gctx, mode); err != nil {
		cancel()
		g.Wait()
		return err
	}
	ready()

	err := g.Wait()
	leaveCtx, cancelLeave := context.WithTimeout(context.Background(), leaveTimeout)
	defer cancelLeave()
	ch.Leave(leaveCtx)
	return err
}
