package negotiation

import (
	"context"
	"fmt"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/pion/interceptor"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcast/internal/media"
	"github.com/BioHazard786/Warpcast/internal/signaling"
)

type fakePC struct {
	ev Events

	mu         sync.Mutex
	offers     int
	answers    int
	tracks     int
	remoteSets int
	remote     *pion.SessionDescription
	applied    []string
	closed     int
}

type noRTCP struct{}

func (noRTCP) ReadRTCP() ([]rtcp.Packet, interceptor.Attributes, error) { return nil, nil, io.EOF }

func (f *fakePC) AddTrack(pion.TrackLocal) (RTCPReader, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tracks++
	return noRTCP{}, nil
}

func (f *fakePC) CreateOffer() (pion.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offers++
	return pion.SessionDescription{Type: pion.SDPTypeOffer, SDP: fmt.Sprintf("offer-%d", f.offers)}, nil
}

func (f *fakePC) CreateAnswer() (pion.SessionDescription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.answers++
	return pion.SessionDescription{Type: pion.SDPTypeAnswer, SDP: fmt.Sprintf("answer-%d", f.answers)}, nil
}

func (f *fakePC) SetLocalDescription(pion.SessionDescription) error { return nil }

func (f *fakePC) SetRemoteDescription(desc pion.SessionDescription) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.remoteSets++
	f.remote = &desc
	return nil
}

func (f *fakePC) AddICECandidate(c pion.ICECandidateInit) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.applied = append(f.applied, c.Candidate)
	return nil
}

func (f *fakePC) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *fakePC) appliedCandidates() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.applied...)
}

func (f *fakePC) trackCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.tracks
}

func (f *fakePC) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// lastRemote returns the sdp of the last remote description applied.
func (f *fakePC) lastRemote() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.remote == nil {
		return ""
	}
	return f.remote.SDP
}

func (f *fakePC) remoteSetCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.remoteSets
}

type fakeFactory struct {
	mu    sync.Mutex
	conns []*fakePC
}

func (f *fakeFactory) New(ev Events) (PeerConnection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	pc := &fakePC{ev: ev}
	f.conns = append(f.conns, pc)
	return pc, nil
}

func (f *fakeFactory) pc(t *testing.T, i int) *fakePC {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if i >= len(f.conns) {
		t.Fatalf("only %d peer connections created, want index %d", len(f.conns), i)
	}
	return f.conns[i]
}

func (f *fakeFactory) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.conns)
}

type sent struct {
	to  signaling.Target
	sig signaling.Signal
}

type fakeTransport struct {
	out chan sent
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{out: make(chan sent, 64)}
}

func (f *fakeTransport) Send(_ context.Context, to signaling.Target, sig signaling.Signal) error {
	f.out <- sent{to: to, sig: sig}
	return nil
}

func (f *fakeTransport) next(t *testing.T) sent {
	t.Helper()
	select {
	case s := <-f.out:
		return s
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for a signal")
	}
	return sent{}
}

func (f *fakeTransport) quiet(t *testing.T, d time.Duration) {
	t.Helper()
	select {
	case s := <-f.out:
		t.Fatalf("unexpected %s signal to %s", s.sig.Kind(), s.to)
	case <-time.After(d):
	}
}

type fakeTrack struct {
	id, stream string
}

func (f *fakeTrack) ID() string                     { return f.id }
func (f *fakeTrack) StreamID() string               { return f.stream }
func (f *fakeTrack) Kind() pion.RTPCodecType        { return pion.RTPCodecTypeVideo }
func (f *fakeTrack) Codec() pion.RTPCodecParameters { return pion.RTPCodecParameters{} }
func (f *fakeTrack) ReadRTP() (*rtp.Packet, interceptor.Attributes, error) {
	return nil, nil, io.EOF
}

type fakeRenderer struct {
	mu       sync.Mutex
	attached []*media.RemoteStream
}

func (f *fakeRenderer) Attach(s *media.RemoteStream) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attached = append(f.attached, s)
	return nil
}

func (f *fakeRenderer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.attached)
}

// runEngine starts Run and stops it when the test ends.
func runEngine(t *testing.T, e *Engine) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	go e.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-e.Done()
	})
}

// snapshot waits for every event posted so far to be handled and returns
// the registry contents.
func snapshot(t *testing.T, e *Engine) []LinkInfo {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	links, err := e.Links(ctx)
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	return links
}

// onLoop runs fn on the engine goroutine.
func onLoop(t *testing.T, e *Engine, fn func()) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := e.call(ctx, fn); err != nil {
		t.Fatalf("call: %v", err)
	}
}

func candidate(n int) pion.ICECandidateInit {
	return pion.ICECandidateInit{Candidate: fmt.Sprintf("candidate:%d 1 udp 2130706431 10.0.0.%d 5000 typ host", n, n)}
}

func candidateStrings(cs []pion.ICECandidateInit) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.Candidate
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
