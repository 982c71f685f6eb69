package negotiation

import (
	"sync"
	"time"

	pion "github.com/pion/webrtc/v4"
	"go.uber.org/atomic"

	"github.com/BioHazard786/Warpcast/internal/media"
	"github.com/BioHazard786/Warpcast/internal/signaling"
)

// State is a link's position in the offer/answer lifecycle.
type State int

const (
	StateNew State = iota
	StateOffering
	StateAwaitingAnswer
	StateStable
	StateRenegotiating
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateOffering:
		return "offering"
	case StateAwaitingAnswer:
		return "awaiting-answer"
	case StateStable:
		return "stable"
	case StateRenegotiating:
		return "renegotiating"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// PeerLink is the negotiation unit for one counterpart. Everything except
// keyframes and done is touched only by the engine goroutine.
type PeerLink struct {
	Peer       string
	ID         string
	State      State
	Connection pion.PeerConnectionState
	Created    time.Time

	pc      PeerConnection
	batcher *Batcher
	target  signaling.Target

	// seq is the offer round: on the sender the outstanding offer, on the
	// receiver the last offer applied.
	seq uint64

	streams  map[string]*media.RemoteStream
	attached map[string]bool

	keyframes atomic.Uint64

	// done is closed before the primitive is closed so callbacks posting to
	// the engine stop waiting.
	done      chan struct{}
	closeOnce sync.Once
}

func newPeerLink(peer, id string, target signaling.Target, window time.Duration) *PeerLink {
	return &PeerLink{
		Peer:     peer,
		ID:       id,
		State:    StateNew,
		Created:  time.Now(),
		batcher:  NewBatcher(window),
		target:   target,
		streams:  make(map[string]*media.RemoteStream),
		attached: make(map[string]bool),
		done:     make(chan struct{}),
	}
}

// Keyframes counts PLI and FIR requests received for this link's tracks.
func (l *PeerLink) Keyframes() uint64 {
	return l.keyframes.Load()
}

// ready reports whether remote candidates may be applied.
func (l *PeerLink) ready() bool {
	return l.State == StateStable
}

// teardown cancels the batch timer, discards buffers and closes the primitive.
// Only the first call has any effect.
func (l *PeerLink) teardown() (err error) {
	l.closeOnce.Do(func() {
		l.batcher.Stop()
		l.State = StateClosed
		close(l.done)
		if l.pc != nil {
			err = l.pc.Close()
		}
	})
	return err
}

// LinkInfo is a copy of a link's observable state.
type LinkInfo struct {
	Peer       string
	Link       string
	State      State
	Connection pion.PeerConnectionState
	Keyframes  uint64
	Since      time.Time
}

func (l *PeerLink) info() LinkInfo {
	return LinkInfo{
		Peer:       l.Peer,
		Link:       l.ID,
		State:      l.State,
		Connection: l.Connection,
		Keyframes:  l.Keyframes(),
		Since:      l.Created,
	}
}

// LinkEvent is published to the Observer on every transition.
type LinkEvent struct {
	LinkInfo
	Reason string
}

// Observer receives link transitions on the engine goroutine. It must not
// block.
type Observer func(LinkEvent)
