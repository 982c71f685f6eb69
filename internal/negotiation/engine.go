package negotiation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcast/internal/media"
	"github.com/BioHazard786/Warpcast/internal/signaling"
)

const (
	eventBuffer  = 256
	outboxBuffer = 256
)

// Transport publishes signals. *signaling.Channel implements it.
type Transport interface {
	Send(ctx context.Context, to signaling.Target, sig signaling.Signal) error
}

// Config wires an engine to its collaborators.
type Config struct {
	Factory         Factory
	Transport       Transport
	CandidateWindow time.Duration
	Observer        Observer
	Logger          *slog.Logger
}

type event interface{}

type (
	joinEvent struct {
		peer string
	}
	signalEvent struct {
		from string
		sig  signaling.Signal
	}
	candidateEvent struct {
		link      *PeerLink
		candidate *pion.ICECandidateInit
	}
	flushEvent struct {
		link *PeerLink
		gen  uint64
	}
	trackEvent struct {
		link  *PeerLink
		track media.RemoteTrack
	}
	signalingStateEvent struct {
		link  *PeerLink
		state pion.SignalingState
	}
	connectionStateEvent struct {
		link  *PeerLink
		state pion.PeerConnectionState
	}
	callEvent struct {
		fn func()
	}
)

type outbound struct {
	link *PeerLink
	sig  signaling.Signal
}

type signalHandler func(from string, sig signaling.Signal) error

// Engine is the single goroutine that owns every PeerLink. Transport
// deliveries, primitive callbacks and debounce timers are posted to it as
// events, so negotiation steps for a link never run concurrently.
type Engine struct {
	factory   Factory
	transport Transport
	window    time.Duration
	observer  Observer
	logger    *slog.Logger

	links  *Registry
	events chan event
	outbox chan outbound

	stopped  chan struct{}
	runOnce  sync.Once
	stopOnce sync.Once

	// Role hooks, set by NewSender and NewReceiver.
	onJoin      func(peer string) error
	handlers    map[signaling.Kind]signalHandler
	onTrack     func(l *PeerLink, t media.RemoteTrack)
	onConnected func(l *PeerLink)
}

func newEngine(cfg Config) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	window := cfg.CandidateWindow
	if window <= 0 {
		window = DefaultCandidateWindow
	}
	return &Engine{
		factory:   cfg.Factory,
		transport: cfg.Transport,
		window:    window,
		observer:  cfg.Observer,
		logger:    logger.With("component", "negotiation"),
		links:     NewRegistry(),
		events:    make(chan event, eventBuffer),
		outbox:    make(chan outbound, outboxBuffer),
		stopped:   make(chan struct{}),
		handlers:  make(map[signaling.Kind]signalHandler),
	}
}

// HandleJoin reports a presence join. Safe to call from any goroutine.
func (e *Engine) HandleJoin(peer string) {
	e.post(nil, joinEvent{peer: peer})
}

// HandleSignal reports a received signal. Safe to call from any goroutine.
func (e *Engine) HandleSignal(from string, sig signaling.Signal) {
	e.post(nil, signalEvent{from: from, sig: sig})
}

// Links returns a snapshot of the registered links.
func (e *Engine) Links(ctx context.Context) ([]LinkInfo, error) {
	var out []LinkInfo
	err := e.call(ctx, func() {
		for _, l := range e.links.All() {
			out = append(out, l.info())
		}
	})
	return out, err
}

// call runs fn on the engine goroutine and waits for it.
func (e *Engine) call(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	ev := callEvent{fn: func() {
		fn()
		close(done)
	}}

	select {
	case e.events <- ev:
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrEngineStopped
	}

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-e.stopped:
		return ErrEngineStopped
	}
}

// post queues ev unless the engine or the link it belongs to has gone away.
func (e *Engine) post(l *PeerLink, ev event) {
	var linkDone chan struct{}
	if l != nil {
		linkDone = l.done
	}
	select {
	case e.events <- ev:
	case <-linkDone:
	case <-e.stopped:
	}
}

// Run processes events until ctx is cancelled, then closes every link.
func (e *Engine) Run(ctx context.Context) error {
	started := false
	e.runOnce.Do(func() { started = true })
	if !started {
		return nil
	}

	sendCtx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		e.sendLoop(sendCtx)
	}()

	defer func() {
		for _, l := range e.links.All() {
			e.closeLink(l, "shutdown")
		}
		e.stopOnce.Do(func() { close(e.stopped) })
		cancel()
		wg.Wait()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-e.events:
			e.handle(ev)
		}
	}
}

// Done is closed after Run has returned.
func (e *Engine) Done() <-chan struct{} {
	return e.stopped
}

func (e *Engine) handle(ev event) {
	switch ev := ev.(type) {
	case joinEvent:
		if e.onJoin != nil {
			e.report(e.onJoin(ev.peer))
		}

	case signalEvent:
		handler, ok := e.handlers[ev.sig.Kind()]
		if !ok {
			e.logger.Debug("no handler for signal", "kind", ev.sig.Kind(), "peer", ev.from)
			return
		}
		e.report(handler(ev.from, ev.sig))

	case candidateEvent:
		e.localCandidate(ev.link, ev.candidate)

	case flushEvent:
		if !e.links.Current(ev.link) {
			return
		}
		if batch := ev.link.batcher.Due(ev.gen); batch != nil {
			e.sendCandidates(ev.link, batch)
		}

	case trackEvent:
		if !e.links.Current(ev.link) {
			return
		}
		if e.onTrack != nil {
			e.onTrack(ev.link, ev.track)
		}

	case signalingStateEvent:
		if e.links.Current(ev.link) {
			e.logger.Debug("signaling state changed", "peer", ev.link.Peer, "link", ev.link.ID, "state", ev.state)
		}

	case connectionStateEvent:
		e.connectionState(ev.link, ev.state)

	case callEvent:
		ev.fn()
	}
}

func (e *Engine) report(err error) {
	if err == nil {
		return
	}
	e.logger.Log(context.Background(), levelFor(err), "negotiation step failed", "err", err)
}

// newLink builds a link whose primitive reports back through the engine.
func (e *Engine) newLink(peer, id string, target signaling.Target) (*PeerLink, error) {
	l := newPeerLink(peer, id, target, e.window)

	pc, err := e.factory.New(Events{
		OnCandidate: func(c *pion.ICECandidateInit) {
			e.post(l, candidateEvent{link: l, candidate: c})
		},
		OnTrack: func(t media.RemoteTrack) {
			e.post(l, trackEvent{link: l, track: t})
		},
		OnSignalingState: func(s pion.SignalingState) {
			e.post(l, signalingStateEvent{link: l, state: s})
		},
		OnConnectionState: func(s pion.PeerConnectionState) {
			e.post(l, connectionStateEvent{link: l, state: s})
		},
	})
	if err != nil {
		return nil, wrap("create peer connection", peer, err)
	}
	l.pc = pc
	return l, nil
}

// closeLink removes l from the registry, then cancels its batch timer and
// closes its primitive. Closing a link twice is a no-op.
func (e *Engine) closeLink(l *PeerLink, reason string) {
	removed := e.links.Remove(l)
	if l.State == StateClosed {
		return
	}
	if err := l.teardown(); err != nil {
		e.logger.Debug("close peer connection", "peer", l.Peer, "link", l.ID, "err", err)
	}
	if removed {
		e.logger.Info("link closed", "peer", l.Peer, "link", l.ID, "reason", reason)
		e.observe(l, reason)
	}
}

func (e *Engine) setState(l *PeerLink, s State, reason string) {
	if l.State == s {
		return
	}
	l.State = s
	e.logger.Debug("link state", "peer", l.Peer, "link", l.ID, "state", s)
	e.observe(l, reason)
}

func (e *Engine) observe(l *PeerLink, reason string) {
	if e.observer != nil {
		e.observer(LinkEvent{LinkInfo: l.info(), Reason: reason})
	}
}

func (e *Engine) localCandidate(l *PeerLink, c *pion.ICECandidateInit) {
	if !e.links.Current(l) {
		return
	}
	if c == nil {
		// Gathering finished: end-of-candidates never waits out the window.
		if batch := l.batcher.Flush(); batch != nil {
			e.sendCandidates(l, batch)
		}
		return
	}
	l.batcher.Collect(*c, func(gen uint64) {
		e.post(l, flushEvent{link: l, gen: gen})
	})
}

func (e *Engine) sendCandidates(l *PeerLink, batch []pion.ICECandidateInit) {
	e.logger.Debug("sending candidates", "peer", l.Peer, "link", l.ID, "count", len(batch))
	e.send(l, signaling.Candidates{Link: l.ID, Candidates: batch})
}

// remoteCandidates buffers a batch and applies it at once if the link is
// stable. Otherwise it waits for the next transition to stable.
func (e *Engine) remoteCandidates(l *PeerLink, batch []pion.ICECandidateInit) {
	l.batcher.Buffer(batch)
	if l.ready() {
		e.drain(l)
	}
}

func (e *Engine) drain(l *PeerLink) {
	if err := l.batcher.Drain(l.pc.AddICECandidate); err != nil {
		e.logger.Warn("failed to apply remote candidates", "peer", l.Peer, "link", l.ID, "err", err)
	}
}

// send queues sig for the link's counterpart. Signals for one engine leave
// in the order they were queued.
func (e *Engine) send(l *PeerLink, sig signaling.Signal) {
	select {
	case e.outbox <- outbound{link: l, sig: sig}:
	default:
		e.report(wrap("send "+string(sig.Kind()), l.Peer, ErrOutboxFull))
	}
}

func (e *Engine) sendLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case out := <-e.outbox:
			select {
			case <-out.link.done:
				// Outbound signals of a closed link are discarded.
				continue
			default:
			}
			if err := e.transport.Send(ctx, out.link.target, out.sig); err != nil {
				e.report(wrap("send "+string(out.sig.Kind()), out.link.Peer, err))
			}
		}
	}
}

func (e *Engine) connectionState(l *PeerLink, s pion.PeerConnectionState) {
	if !e.links.Current(l) {
		return
	}
	l.Connection = s
	e.logger.Info("connection state", "peer", l.Peer, "link", l.ID, "state", s)
	e.observe(l, "connection "+s.String())

	switch s {
	case pion.PeerConnectionStateConnected:
		if e.onConnected != nil {
			e.onConnected(l)
		}
	case pion.PeerConnectionStateDisconnected, pion.PeerConnectionStateFailed, pion.PeerConnectionStateClosed:
		// No retry here; a fresh join restarts negotiation.
		e.closeLink(l, "connection "+s.String())
	}
}
