package negotiation

import (
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcast/internal/signaling"
)

func newTestReceiver(t *testing.T) (*Receiver, *fakeFactory, *fakeTransport, *fakeRenderer) {
	t.Helper()
	factory := &fakeFactory{}
	transport := newFakeTransport()
	renderer := &fakeRenderer{}
	r, err := NewReceiver(Config{Factory: factory, Transport: transport, CandidateWindow: time.Hour}, renderer)
	if err != nil {
		t.Fatalf("NewReceiver: %v", err)
	}
	runEngine(t, r.Engine)
	return r, factory, transport, renderer
}

func offerSignal(link, sdp string, seq uint64) signaling.Offer {
	return signaling.Offer{Link: link, Seq: seq, Offer: pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: sdp}}
}

func expectAnswer(t *testing.T, tr *fakeTransport) signaling.Answer {
	t.Helper()
	s := tr.next(t)
	a, ok := s.sig.(signaling.Answer)
	if !ok {
		t.Fatalf("got %s, want answer", s.sig.Kind())
	}
	if !s.to.IsSelf() {
		t.Fatalf("answer addressed to %s, want self", s.to)
	}
	return a
}

func TestReceiver_StartsWithOneLink(t *testing.T) {
	r, factory, _, _ := newTestReceiver(t)

	links := snapshot(t, r.Engine)
	if len(links) != 1 || links[0].Peer != SenderPeer || links[0].State != StateNew {
		t.Fatalf("links=%+v", links)
	}
	if factory.count() != 1 {
		t.Fatalf("primitives=%d, want 1", factory.count())
	}
}

func TestReceiver_OfferProducesOneAnswer(t *testing.T) {
	r, factory, tr, _ := newTestReceiver(t)
	pc := factory.pc(t, 0)

	r.HandleSignal("", signaling.Candidates{Link: "L1", Candidates: []pion.ICECandidateInit{candidate(1)}})
	snapshot(t, r.Engine)
	if got := pc.appliedCandidates(); len(got) != 0 {
		t.Fatalf("candidates applied before offer: %v", got)
	}

	r.HandleSignal("", offerSignal("L1", "offer-1", 1))
	answer := expectAnswer(t, tr)
	if answer.Link != "L1" || answer.Seq != 1 || answer.Answer.Type != pion.SDPTypeAnswer {
		t.Fatalf("unexpected answer %#v", answer)
	}

	links := snapshot(t, r.Engine)
	if links[0].State != StateStable || links[0].Link != "L1" {
		t.Fatalf("link=%+v", links[0])
	}
	if got := pc.appliedCandidates(); !equalStrings(got, []string{candidate(1).Candidate}) {
		t.Fatalf("stashed candidates not applied: %v", got)
	}

	r.HandleSignal("", signaling.Candidates{Link: "L1", Candidates: []pion.ICECandidateInit{candidate(2), candidate(3)}})
	snapshot(t, r.Engine)
	if got := pc.appliedCandidates(); len(got) != 3 {
		t.Fatalf("applied=%v, want 3", got)
	}
	tr.quiet(t, 50*time.Millisecond)
}

func TestReceiver_DuplicateOfferIgnored(t *testing.T) {
	r, _, tr, _ := newTestReceiver(t)

	r.HandleSignal("", offerSignal("L1", "offer-1", 1))
	expectAnswer(t, tr)
	r.HandleSignal("", offerSignal("L1", "offer-1", 1))
	snapshot(t, r.Engine)
	tr.quiet(t, 50*time.Millisecond)
}

func TestReceiver_SameLinkNewOfferRenegotiates(t *testing.T) {
	r, factory, tr, _ := newTestReceiver(t)

	r.HandleSignal("", offerSignal("L1", "offer-1", 1))
	expectAnswer(t, tr)
	r.HandleSignal("", offerSignal("L1", "offer-2", 2))
	if answer := expectAnswer(t, tr); answer.Seq != 2 {
		t.Fatalf("answer seq=%d, want 2", answer.Seq)
	}

	if factory.count() != 1 {
		t.Fatalf("renegotiation created a new primitive")
	}
	if links := snapshot(t, r.Engine); links[0].State != StateStable {
		t.Fatalf("state=%s, want stable", links[0].State)
	}
}

func TestReceiver_NewLinkIDReplacesLink(t *testing.T) {
	r, factory, tr, _ := newTestReceiver(t)

	r.HandleSignal("", offerSignal("L1", "offer-1", 1))
	expectAnswer(t, tr)

	r.HandleSignal("", signaling.Candidates{Link: "L2", Candidates: []pion.ICECandidateInit{candidate(7)}})
	r.HandleSignal("", offerSignal("L2", "offer-1", 1))
	answer := expectAnswer(t, tr)
	if answer.Link != "L2" {
		t.Fatalf("answer link=%s, want L2", answer.Link)
	}

	links := snapshot(t, r.Engine)
	if len(links) != 1 || links[0].Link != "L2" {
		t.Fatalf("links=%+v", links)
	}
	if n := factory.pc(t, 0).closeCount(); n != 1 {
		t.Fatalf("old primitive closed %d times, want 1", n)
	}
	if got := factory.pc(t, 1).appliedCandidates(); !equalStrings(got, []string{candidate(7).Candidate}) {
		t.Fatalf("early candidates for L2 not applied: %v", got)
	}
}

func TestReceiver_AttachesStreamOnceAfterConnect(t *testing.T) {
	r, factory, tr, renderer := newTestReceiver(t)

	r.HandleSignal("", offerSignal("L1", "offer-1", 1))
	expectAnswer(t, tr)
	pc := factory.pc(t, 0)

	pc.ev.OnTrack(&fakeTrack{id: "video", stream: "s1"})
	pc.ev.OnTrack(&fakeTrack{id: "audio", stream: "s1"})
	snapshot(t, r.Engine)
	if renderer.count() != 0 {
		t.Fatalf("stream attached before connection")
	}

	pc.ev.OnConnectionState(pion.PeerConnectionStateConnected)
	snapshot(t, r.Engine)
	if renderer.count() != 1 {
		t.Fatalf("attached %d times, want 1", renderer.count())
	}

	pc.ev.OnTrack(&fakeTrack{id: "extra", stream: "s1"})
	pc.ev.OnConnectionState(pion.PeerConnectionStateConnected)
	snapshot(t, r.Engine)
	if renderer.count() != 1 {
		t.Fatalf("attached %d times, want 1", renderer.count())
	}
	if got := len(renderer.attached[0].Tracks()); got != 3 {
		t.Fatalf("stream has %d tracks, want 3", got)
	}
}

func TestReceiver_FailedConnectionRecreatesOnNextOffer(t *testing.T) {
	r, factory, tr, _ := newTestReceiver(t)

	r.HandleSignal("", offerSignal("L1", "offer-1", 1))
	expectAnswer(t, tr)
	factory.pc(t, 0).ev.OnConnectionState(pion.PeerConnectionStateFailed)
	if links := snapshot(t, r.Engine); len(links) != 0 {
		t.Fatalf("failed link still registered: %+v", links)
	}

	r.HandleSignal("", offerSignal("L1", "offer-1", 1))
	expectAnswer(t, tr)
	if factory.count() != 2 {
		t.Fatalf("primitives=%d, want 2", factory.count())
	}
}

func TestReceiver_OvertakenOfferIgnored(t *testing.T) {
	r, factory, tr, _ := newTestReceiver(t)
	pc := factory.pc(t, 0)

	r.HandleSignal("", offerSignal("L1", "offer-1", 1))
	expectAnswer(t, tr)
	r.HandleSignal("", offerSignal("L1", "offer-2", 2))
	expectAnswer(t, tr)

	r.HandleSignal("", offerSignal("L1", "offer-1", 1))
	snapshot(t, r.Engine)
	tr.quiet(t, 50*time.Millisecond)

	if n := pc.remoteSetCount(); n != 2 {
		t.Fatalf("remote description set %d times, want 2", n)
	}
	if got := pc.lastRemote(); got != "offer-2" {
		t.Fatalf("remote=%q, want offer-2", got)
	}
	if links := snapshot(t, r.Engine); links[0].State != StateStable {
		t.Fatalf("state=%s, want stable", links[0].State)
	}
}

func TestReceiver_CandidatesWithoutLinkIDAreNotStashed(t *testing.T) {
	r, factory, tr, _ := newTestReceiver(t)

	factory.pc(t, 0).ev.OnConnectionState(pion.PeerConnectionStateFailed)
	if links := snapshot(t, r.Engine); len(links) != 0 {
		t.Fatalf("failed link still registered: %+v", links)
	}

	r.HandleSignal("", signaling.Candidates{Candidates: []pion.ICECandidateInit{candidate(1)}})
	var stashed int
	onLoop(t, r.Engine, func() { stashed = len(r.stash.batches) })
	if stashed != 0 {
		t.Fatalf("stashed %d batches without a link id", stashed)
	}

	r.HandleSignal("", offerSignal("L1", "offer-1", 1))
	expectAnswer(t, tr)
	if got := factory.pc(t, 1).appliedCandidates(); len(got) != 0 {
		t.Fatalf("unlinked candidates applied: %v", got)
	}
}
