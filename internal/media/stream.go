package media

import (
	"context"
	"errors"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/rtp"
	pion "github.com/pion/webrtc/v4"
)

// ErrNoDevice is returned by a Source that cannot produce the requested media.
var ErrNoDevice = errors.New("no capture device available")

// Kind names what a Source is asked to capture.
type Kind string

const (
	KindScreen Kind = "screen"
	KindCamera Kind = "camera"
)

// Constraints select which tracks a Source should produce.
type Constraints struct {
	Video bool
	Audio bool
}

// Source acquires local media.
type Source interface {
	Acquire(ctx context.Context, kind Kind, c Constraints) (*LocalStream, error)
}

// LocalStream is an acquired set of outbound tracks.
type LocalStream struct {
	ID     string
	Tracks []pion.TrackLocal

	stop func()
}

// Close stops feeding the tracks.
func (s *LocalStream) Close() {
	if s.stop != nil {
		s.stop()
	}
}

// RemoteTrack is an inbound track. *webrtc.TrackRemote satisfies it.
type RemoteTrack interface {
	ID() string
	StreamID() string
	Kind() pion.RTPCodecType
	Codec() pion.RTPCodecParameters
	ReadRTP() (*rtp.Packet, interceptor.Attributes, error)
}

// Renderer consumes a remote stream once its link is connected.
type Renderer interface {
	Attach(stream *RemoteStream) error
}

// RemoteStream groups the inbound tracks that share a stream id.
type RemoteStream struct {
	id string

	mu        sync.Mutex
	tracks    []RemoteTrack
	listeners []func(RemoteTrack)
}

func NewRemoteStream(id string) *RemoteStream {
	return &RemoteStream{id: id}
}

func (s *RemoteStream) ID() string { return s.id }

// Tracks returns the tracks received so far.
func (s *RemoteStream) Tracks() []RemoteTrack {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RemoteTrack(nil), s.tracks...)
}

// AddTrack appends t and notifies listeners.
func (s *RemoteStream) AddTrack(t RemoteTrack) {
	s.mu.Lock()
	s.tracks = append(s.tracks, t)
	listeners := append([]func(RemoteTrack){}, s.listeners...)
	s.mu.Unlock()

	for _, fn := range listeners {
		fn(t)
	}
}

// OnTrack calls fn for every track already in the stream and for every track
// added later.
func (s *RemoteStream) OnTrack(fn func(RemoteTrack)) {
	s.mu.Lock()
	existing := append([]RemoteTrack(nil), s.tracks...)
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()

	for _, t := range existing {
		fn(t)
	}
}
