package negotiation

import (
	"errors"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcast/internal/signaling"
)

func TestBatcher_SupersededTimerIsIgnored(t *testing.T) {
	b := NewBatcher(time.Hour)
	var gens []uint64
	fire := func(gen uint64) { gens = append(gens, gen) }

	b.Collect(candidate(1), fire)
	first := b.gen
	b.Collect(candidate(2), fire)

	if batch := b.Due(first); batch != nil {
		t.Fatalf("superseded generation flushed %v", batch)
	}
	if batch := b.Due(b.gen); len(batch) != 2 {
		t.Fatalf("batch=%v, want 2 candidates", batch)
	}
	if b.Pending() != 0 {
		t.Fatalf("pending not cleared")
	}
	b.Stop()
}

func TestBatcher_FlushEmptyIsNoop(t *testing.T) {
	b := NewBatcher(0)
	if b.window != DefaultCandidateWindow {
		t.Fatalf("window=%s, want default", b.window)
	}
	if batch := b.Flush(); batch != nil {
		t.Fatalf("empty flush returned %v", batch)
	}
}

func TestBatcher_TimerReportsGeneration(t *testing.T) {
	b := NewBatcher(10 * time.Millisecond)
	fired := make(chan uint64, 1)
	b.Collect(candidate(1), func(gen uint64) { fired <- gen })

	select {
	case gen := <-fired:
		if batch := b.Due(gen); len(batch) != 1 {
			t.Fatalf("batch=%v", batch)
		}
	case <-time.After(time.Second):
		t.Fatalf("window never elapsed")
	}
}

func TestBatcher_DrainKeepsReceiptOrder(t *testing.T) {
	b := NewBatcher(time.Hour)
	b.Buffer([]pion.ICECandidateInit{candidate(1), candidate(2)})
	b.Buffer(nil)
	b.Buffer([]pion.ICECandidateInit{candidate(3)})
	if b.Buffered() != 3 {
		t.Fatalf("buffered=%d", b.Buffered())
	}

	var applied []string
	err := b.Drain(func(c pion.ICECandidateInit) error {
		applied = append(applied, c.Candidate)
		if c.Candidate == candidate(2).Candidate {
			return errors.New("bad candidate")
		}
		return nil
	})
	if err == nil {
		t.Fatalf("expected the failing candidate to be reported")
	}
	want := candidateStrings([]pion.ICECandidateInit{candidate(1), candidate(2), candidate(3)})
	if !equalStrings(applied, want) {
		t.Fatalf("applied=%v, want %v", applied, want)
	}
	if b.Buffered() != 0 {
		t.Fatalf("buffer not cleared")
	}
}

func TestBatcher_StopDiscardsWithoutFlushing(t *testing.T) {
	b := NewBatcher(time.Hour)
	b.Collect(candidate(1), func(uint64) {})
	b.Buffer([]pion.ICECandidateInit{candidate(2)})
	gen := b.gen

	b.Stop()
	if b.Due(gen) != nil || b.Pending() != 0 || b.Buffered() != 0 {
		t.Fatalf("stop kept state")
	}

	b.Collect(candidate(3), func(uint64) {})
	b.Buffer([]pion.ICECandidateInit{candidate(4)})
	if b.Pending() != 0 || b.Buffered() != 0 {
		t.Fatalf("stopped batcher accepted candidates")
	}
}

func TestRegistry_RefusesSecondLink(t *testing.T) {
	r := NewRegistry()
	a := newPeerLink("peerA", "l1", signaling.ToPeer("peerA"), time.Hour)
	b := newPeerLink("peerA", "l2", signaling.ToPeer("peerA"), time.Hour)

	if err := r.Put(a); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := r.Put(b); err == nil {
		t.Fatalf("second link for the same peer accepted")
	}
	if r.Remove(b) {
		t.Fatalf("removed a link that was never registered")
	}
	if !r.Remove(a) || r.Len() != 0 {
		t.Fatalf("Remove failed")
	}
	if err := r.Put(b); err != nil {
		t.Fatalf("Put after remove: %v", err)
	}
}

func TestPeerLink_TeardownIsIdempotent(t *testing.T) {
	pc := &fakePC{}
	l := newPeerLink("peerA", "l1", signaling.ToPeer("peerA"), time.Hour)
	l.pc = pc
	l.batcher.Collect(candidate(1), func(uint64) {})

	l.teardown()
	l.teardown()

	if pc.closeCount() != 1 {
		t.Fatalf("closed %d times, want 1", pc.closeCount())
	}
	if l.State != StateClosed {
		t.Fatalf("state=%s", l.State)
	}
	select {
	case <-l.done:
	default:
		t.Fatalf("done not closed")
	}
}

func TestState_String(t *testing.T) {
	if StateAwaitingAnswer.String() != "awaiting-answer" || State(99).String() != "unknown" {
		t.Fatalf("unexpected names")
	}
}
