package negotiation

import (
	"context"

	"github.com/pion/rtcp"

	"github.com/BioHazard786/Warpcast/internal/identity"
	"github.com/BioHazard786/Warpcast/internal/media"
	"github.com/BioHazard786/Warpcast/internal/signaling"
)

// Sender offers a local stream to every peer that joins the room, one link
// per peer.
type Sender struct {
	*Engine
	stream *media.LocalStream
}

func NewSender(cfg Config, stream *media.LocalStream) *Sender {
	s := &Sender{Engine: newEngine(cfg), stream: stream}
	s.logger = s.logger.With("role", "sender")
	s.onJoin = s.join
	s.handlers[signaling.KindAnswer] = s.answer
	s.handlers[signaling.KindCandidates] = s.candidates
	return s
}

// join starts a fresh negotiation with peer. A repeated join means the peer
// reset, so any existing link is closed and replaced.
func (s *Sender) join(peer string) error {
	if old, ok := s.links.Get(peer); ok {
		s.logger.Info("peer rejoined, restarting negotiation", "peer", peer, "link", old.ID, "state", old.State)
		s.closeLink(old, "replaced")
	}

	l, err := s.newLink(peer, identity.NewLinkID(), signaling.ToPeer(peer))
	if err != nil {
		return err
	}

	if s.stream != nil {
		for _, track := range s.stream.Tracks {
			reader, err := l.pc.AddTrack(track)
			if err != nil {
				l.teardown()
				return wrap("add track", peer, err)
			}
			go s.readRTCP(l, reader)
		}
	}

	l.State = StateOffering
	offer, err := l.pc.CreateOffer()
	if err != nil {
		l.teardown()
		return wrap("create offer", peer, err)
	}
	if err := l.pc.SetLocalDescription(offer); err != nil {
		l.teardown()
		return wrap("set local description", peer, err)
	}

	// Only a link with its local description in place is ever registered.
	if err := s.links.Put(l); err != nil {
		l.teardown()
		return wrap("register link", peer, err)
	}
	l.seq = 1
	s.setState(l, StateAwaitingAnswer, "offer sent")
	s.send(l, signaling.Offer{Link: l.ID, Seq: l.seq, Offer: offer})
	return nil
}

// readRTCP drains RTCP for one outbound track so interceptors keep working,
// counting keyframe requests on the way.
func (s *Sender) readRTCP(l *PeerLink, reader RTCPReader) {
	for {
		packets, _, err := reader.ReadRTCP()
		if err != nil {
			return
		}
		for _, p := range packets {
			switch p.(type) {
			case *rtcp.PictureLossIndication, *rtcp.FullIntraRequest:
				l.keyframes.Inc()
			}
		}
	}
}

// lookup resolves the link a message from peer refers to.
func (s *Sender) lookup(op, peer, linkID string) (*PeerLink, error) {
	if peer == "" {
		return nil, wrap(op, peer, ErrMissingRoute)
	}
	l, ok := s.links.Get(peer)
	if !ok {
		return nil, wrap(op, peer, ErrUnknownPeer)
	}
	if linkID != "" && linkID != l.ID {
		return nil, wrap(op, peer, ErrStaleLink)
	}
	return l, nil
}

func (s *Sender) answer(from string, sig signaling.Signal) error {
	a := sig.(signaling.Answer)
	l, err := s.lookup("answer", from, a.Link)
	if err != nil {
		return err
	}

	if a.Seq != l.seq {
		s.logger.Debug("ignoring answer to an earlier offer", "peer", from, "link", l.ID, "seq", a.Seq, "want", l.seq)
		return nil
	}

	switch l.State {
	case StateAwaitingAnswer, StateRenegotiating:
	default:
		s.logger.Debug("ignoring answer", "peer", from, "link", l.ID, "state", l.State)
		return nil
	}

	if err := l.pc.SetRemoteDescription(a.Answer); err != nil {
		s.closeLink(l, "bad answer")
		return wrap("set remote description", from, err)
	}
	s.setState(l, StateStable, "answer applied")
	s.drain(l)
	return nil
}

func (s *Sender) candidates(from string, sig signaling.Signal) error {
	c := sig.(signaling.Candidates)
	peer := c.Peer
	if peer == "" {
		peer = from
	}
	l, err := s.lookup("candidates", peer, c.Link)
	if err != nil {
		return err
	}
	s.remoteCandidates(l, c.Candidates)
	return nil
}

// Renegotiate sends a new offer on peer's existing primitive. The link must
// be stable. Answers to earlier offers are ignored from then on.
func (s *Sender) Renegotiate(ctx context.Context, peer string) error {
	var result error
	err := s.call(ctx, func() {
		l, ok := s.links.Get(peer)
		if !ok {
			result = wrap("renegotiate", peer, ErrUnknownPeer)
			return
		}
		if l.State != StateStable {
			result = wrap("renegotiate", peer, ErrNotStable)
			return
		}

		offer, err := l.pc.CreateOffer()
		if err != nil {
			result = wrap("create offer", peer, err)
			return
		}
		if err := l.pc.SetLocalDescription(offer); err != nil {
			result = wrap("set local description", peer, err)
			return
		}
		l.seq++
		s.setState(l, StateRenegotiating, "renegotiation offer sent")
		s.send(l, signaling.Offer{Link: l.ID, Seq: l.seq, Offer: offer})
	})
	if err != nil {
		return err
	}
	return result
}
