package negotiation

import (
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcast/internal/media"
	"github.com/BioHazard786/Warpcast/internal/signaling"
)

// SenderPeer is the identity a receiver files its single link under. The
// room's sender has no id of its own in the addressing scheme.
const SenderPeer = "sender"

// Receiver answers the room's sender over exactly one link and hands the
// resulting streams to a Renderer once connected.
type Receiver struct {
	*Engine
	renderer media.Renderer

	// stash holds candidates for a link id no offer has introduced yet. Only
	// the newest unknown id is kept.
	stash struct {
		link    string
		batches [][]pion.ICECandidateInit
	}
}

// NewReceiver creates the receiver's link up front.
func NewReceiver(cfg Config, renderer media.Renderer) (*Receiver, error) {
	r := &Receiver{Engine: newEngine(cfg), renderer: renderer}
	r.logger = r.logger.With("role", "receiver")
	r.handlers[signaling.KindOffer] = r.offer
	r.handlers[signaling.KindCandidates] = r.candidates
	r.onTrack = r.track
	r.onConnected = r.connected

	l, err := r.newLink(SenderPeer, "", signaling.ToSelf())
	if err != nil {
		return nil, err
	}
	if err := r.links.Put(l); err != nil {
		return nil, err
	}
	return r, nil
}

// link returns the current link, creating a fresh one if the previous was
// torn down.
func (r *Receiver) link(id string) (*PeerLink, error) {
	if l, ok := r.links.Get(SenderPeer); ok {
		if l.ID == "" || l.ID == id || id == "" {
			return l, nil
		}
		r.logger.Info("sender reset, replacing link", "old", l.ID, "new", id)
		r.closeLink(l, "replaced")
	}

	l, err := r.newLink(SenderPeer, "", signaling.ToSelf())
	if err != nil {
		return nil, err
	}
	if err := r.links.Put(l); err != nil {
		l.teardown()
		return nil, wrap("register link", SenderPeer, err)
	}
	return l, nil
}

func (r *Receiver) offer(_ string, sig signaling.Signal) error {
	o := sig.(signaling.Offer)

	l, err := r.link(o.Link)
	if err != nil {
		return err
	}

	// Redelivered or overtaken offers never roll the link back.
	if o.Seq <= l.seq {
		r.logger.Debug("ignoring stale offer", "link", l.ID, "seq", o.Seq, "applied", l.seq)
		return nil
	}

	if l.ID == "" && o.Link != "" {
		l.ID = o.Link
		r.adoptStash(l)
	}

	next := StateOffering
	if l.State == StateStable {
		next = StateRenegotiating
	}
	r.setState(l, next, "offer received")

	if err := l.pc.SetRemoteDescription(o.Offer); err != nil {
		r.closeLink(l, "bad offer")
		return wrap("set remote description", SenderPeer, err)
	}
	l.seq = o.Seq

	answer, err := l.pc.CreateAnswer()
	if err != nil {
		r.closeLink(l, "create answer failed")
		return wrap("create answer", SenderPeer, err)
	}
	if err := l.pc.SetLocalDescription(answer); err != nil {
		r.closeLink(l, "set local description failed")
		return wrap("set local description", SenderPeer, err)
	}

	r.send(l, signaling.Answer{Link: l.ID, Seq: o.Seq, Answer: answer})
	r.setState(l, StateStable, "answer sent")
	r.drain(l)
	return nil
}

func (r *Receiver) candidates(_ string, sig signaling.Signal) error {
	c := sig.(signaling.Candidates)

	if l, ok := r.links.Get(SenderPeer); ok && (c.Link == "" || c.Link == l.ID) {
		r.remoteCandidates(l, c.Candidates)
		return nil
	}
	if c.Link == "" {
		// No offer will ever claim a batch without a link id.
		r.logger.Debug("dropping candidates without link", "count", len(c.Candidates))
		return nil
	}
	// Candidates can overtake the offer that introduces their link.
	r.stashCandidates(c.Link, c.Candidates)
	return nil
}

func (r *Receiver) stashCandidates(link string, batch []pion.ICECandidateInit) {
	if r.stash.link != link {
		r.stash.link = link
		r.stash.batches = nil
	}
	r.stash.batches = append(r.stash.batches, batch)
	r.logger.Debug("stashed candidates for unknown link", "link", link, "count", len(batch))
}

func (r *Receiver) adoptStash(l *PeerLink) {
	if r.stash.link != l.ID {
		return
	}
	for _, batch := range r.stash.batches {
		l.batcher.Buffer(batch)
	}
	r.stash.link = ""
	r.stash.batches = nil
}

func (r *Receiver) track(l *PeerLink, t media.RemoteTrack) {
	r.logger.Info("remote track", "link", l.ID, "track", t.ID(), "stream", t.StreamID(), "kind", t.Kind())

	stream, ok := l.streams[t.StreamID()]
	if !ok {
		stream = media.NewRemoteStream(t.StreamID())
		l.streams[t.StreamID()] = stream
	}
	stream.AddTrack(t)

	if l.Connection == pion.PeerConnectionStateConnected {
		r.attach(l, stream)
	}
}

func (r *Receiver) connected(l *PeerLink) {
	for _, stream := range l.streams {
		r.attach(l, stream)
	}
}

// attach hands stream to the renderer exactly once.
func (r *Receiver) attach(l *PeerLink, stream *media.RemoteStream) {
	if l.attached[stream.ID()] || r.renderer == nil {
		return
	}
	l.attached[stream.ID()] = true
	if err := r.renderer.Attach(stream); err != nil {
		r.logger.Error("failed to attach stream", "link", l.ID, "stream", stream.ID(), "err", err)
		return
	}
	r.logger.Info("stream attached", "link", l.ID, "stream", stream.ID())
}
