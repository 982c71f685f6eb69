package negotiation

import (
	"github.com/pion/interceptor"
	"github.com/pion/rtcp"
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcast/internal/media"
)

// PeerConnection is the negotiation primitive a PeerLink owns.
type PeerConnection interface {
	AddTrack(track pion.TrackLocal) (RTCPReader, error)
	CreateOffer() (pion.SessionDescription, error)
	CreateAnswer() (pion.SessionDescription, error)
	SetLocalDescription(desc pion.SessionDescription) error
	SetRemoteDescription(desc pion.SessionDescription) error
	AddICECandidate(c pion.ICECandidateInit) error
	Close() error
}

// RTCPReader yields RTCP sent back for one outbound track.
type RTCPReader interface {
	ReadRTCP() ([]rtcp.Packet, interceptor.Attributes, error)
}

// Events are the primitive's notifications. They may fire on any goroutine.
type Events struct {
	// OnCandidate receives nil once gathering is complete.
	OnCandidate       func(c *pion.ICECandidateInit)
	OnTrack           func(t media.RemoteTrack)
	OnSignalingState  func(s pion.SignalingState)
	OnConnectionState func(s pion.PeerConnectionState)
}

// Factory constructs primitives wired to the given events.
type Factory interface {
	New(ev Events) (PeerConnection, error)
}
