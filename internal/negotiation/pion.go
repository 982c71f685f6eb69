package negotiation

import (
	"fmt"
	"log/slog"

	"github.com/pion/interceptor"
	"github.com/pion/interceptor/pkg/intervalpli"
	"github.com/pion/transport/v3"
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcast/internal/logging"
)

type apiOptions struct {
	net    transport.Net
	logger *slog.Logger
}

// APIOption customises NewAPI.
type APIOption func(*apiOptions)

// WithNet swaps the network stack, e.g. for a vnet router in tests.
func WithNet(n transport.Net) APIOption {
	return func(o *apiOptions) { o.net = n }
}

// WithLogger routes pion's logs to logger instead of slog.Default().
func WithLogger(logger *slog.Logger) APIOption {
	return func(o *apiOptions) { o.logger = logger }
}

// NewAPI builds a pion API with the default codecs and interceptors plus a
// periodic PLI so receivers recover from lost keyframes.
func NewAPI(opts ...APIOption) (*pion.API, error) {
	o := &apiOptions{}
	for _, opt := range opts {
		opt(o)
	}

	mediaEngine := &pion.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return nil, fmt.Errorf("failed to register codecs: %w", err)
	}

	registry := &interceptor.Registry{}
	if err := pion.RegisterDefaultInterceptors(mediaEngine, registry); err != nil {
		return nil, fmt.Errorf("failed to register default interceptors: %w", err)
	}

	pli, err := intervalpli.NewReceiverInterceptor()
	if err != nil {
		return nil, fmt.Errorf("failed to create PLI interceptor: %w", err)
	}
	registry.Add(pli)

	settings := pion.SettingEngine{}
	settings.LoggerFactory = logging.NewPionFactory(o.logger)
	if o.net != nil {
		settings.SetNet(o.net)
	}

	return pion.NewAPI(
		pion.WithMediaEngine(mediaEngine),
		pion.WithInterceptorRegistry(registry),
		pion.WithSettingEngine(settings),
	), nil
}

// PionFactory creates pion peer connections from one API and configuration.
type PionFactory struct {
	api    *pion.API
	config pion.Configuration
}

func NewPionFactory(api *pion.API, config pion.Configuration) *PionFactory {
	return &PionFactory{api: api, config: config}
}

func (f *PionFactory) New(ev Events) (PeerConnection, error) {
	pc, err := f.api.NewPeerConnection(f.config)
	if err != nil {
		return nil, fmt.Errorf("failed to create peer connection: %w", err)
	}

	pc.OnICECandidate(func(c *pion.ICECandidate) {
		if ev.OnCandidate == nil {
			return
		}
		if c == nil {
			ev.OnCandidate(nil)
			return
		}
		init := c.ToJSON()
		ev.OnCandidate(&init)
	})
	pc.OnTrack(func(t *pion.TrackRemote, _ *pion.RTPReceiver) {
		if ev.OnTrack != nil {
			ev.OnTrack(t)
		}
	})
	pc.OnSignalingStateChange(func(s pion.SignalingState) {
		if ev.OnSignalingState != nil {
			ev.OnSignalingState(s)
		}
	})
	pc.OnConnectionStateChange(func(s pion.PeerConnectionState) {
		if ev.OnConnectionState != nil {
			ev.OnConnectionState(s)
		}
	})

	return &pionConn{pc: pc}, nil
}

type pionConn struct {
	pc *pion.PeerConnection
}

func (p *pionConn) AddTrack(track pion.TrackLocal) (RTCPReader, error) {
	sender, err := p.pc.AddTrack(track)
	if err != nil {
		return nil, err
	}
	return sender, nil
}

func (p *pionConn) CreateOffer() (pion.SessionDescription, error) {
	return p.pc.CreateOffer(nil)
}

func (p *pionConn) CreateAnswer() (pion.SessionDescription, error) {
	return p.pc.CreateAnswer(nil)
}

func (p *pionConn) SetLocalDescription(desc pion.SessionDescription) error {
	return p.pc.SetLocalDescription(desc)
}

func (p *pionConn) SetRemoteDescription(desc pion.SessionDescription) error {
	return p.pc.SetRemoteDescription(desc)
}

func (p *pionConn) AddICECandidate(c pion.ICECandidateInit) error {
	return p.pc.AddICECandidate(c)
}

func (p *pionConn) Close() error {
	return p.pc.Close()
}
