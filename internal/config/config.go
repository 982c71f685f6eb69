package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BioHazard786/Warpcast/internal/netenv"
	pion "github.com/pion/webrtc/v4"
)

// Default configuration values (production)
const (
	DefaultDomain          = "warpcast.qzz.io"
	DefaultSTUN            = "stun:stun.l.google.com:19302"
	DefaultEncoding        = "json"
	DefaultCandidateWindow = 100 * time.Millisecond
	DefaultSendTimeout     = 10 * time.Second
	DefaultRelayAddr       = ":8080"
)

// Config holds application configuration
type Config struct {
	// Domain is the relay server host (optionally host:port)
	Domain string

	// WebSocketURL is constructed from domain
	WebSocketURL string

	// Insecure selects ws:// and http:// instead of wss:// and https://
	Insecure bool

	// ICE servers for WebRTC
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool

	// Encoding is the relay frame codec: "json" or "msgpack"
	Encoding string

	// CandidateWindow is the debounce window for local ICE candidate batches
	CandidateWindow time.Duration

	// SendTimeout bounds how long a single relay send waits for its ack
	SendTimeout time.Duration

	// RelayAddr is the listen address of the relay server
	RelayAddr string
}

// Options for loading config with CLI flag overrides
type Options struct {
	Domain     string
	Insecure   bool
	STUNServer string
	TURNServer string
	TURNUser   string
	TURNPass   string
	ForceRelay bool
	Encoding   string
	RelayAddr  string
}

// Load reads configuration with the following priority:
// 1. CLI flags (passed via Options) - highest priority
// 2. Environment variables
// 3. Hardcoded defaults - lowest priority
func Load(opts Options) (*Config, error) {
	cfg := &Config{
		Domain:     pick(opts.Domain, "DOMAIN", DefaultDomain),
		Insecure:   opts.Insecure || envBool("INSECURE"),
		STUNServer: pick(opts.STUNServer, "STUN_SERVER", DefaultSTUN),
		TURNServer: pick(opts.TURNServer, "TURN_SERVER", ""),
		TURNUser:   pick(opts.TURNUser, "TURN_USERNAME", ""),
		TURNPass:   pick(opts.TURNPass, "TURN_PASSWORD", ""),
		ForceRelay: opts.ForceRelay || envBool("FORCE_RELAY"),
		Encoding:   strings.ToLower(pick(opts.Encoding, "SIGNAL_ENCODING", DefaultEncoding)),
		RelayAddr:  pick(opts.RelayAddr, "RELAY_ADDR", DefaultRelayAddr),
	}

	var err error
	if cfg.CandidateWindow, err = envDuration("CANDIDATE_WINDOW", DefaultCandidateWindow); err != nil {
		return nil, err
	}
	if cfg.SendTimeout, err = envDuration("SEND_TIMEOUT", DefaultSendTimeout); err != nil {
		return nil, err
	}

	switch cfg.Encoding {
	case "json", "msgpack":
	default:
		return nil, fmt.Errorf("unsupported signal encoding %q", cfg.Encoding)
	}

	if cfg.TURNServer != "" && (cfg.TURNUser == "" || cfg.TURNPass == "") {
		return nil, fmt.Errorf("TURN server %s requires both username and password", cfg.TURNServer)
	}

	scheme := "wss"
	if cfg.Insecure {
		scheme = "ws"
	}
	cfg.WebSocketURL = fmt.Sprintf("%s://%s/ws?encoding=%s", scheme, cfg.Domain, cfg.Encoding)

	return cfg, nil
}

func pick(flag, env, def string) string {
	if flag != "" {
		return flag
	}
	if v := strings.TrimSpace(os.Getenv(env)); v != "" {
		return v
	}
	return def
}

func envBool(env string) bool {
	v, err := strconv.ParseBool(strings.TrimSpace(os.Getenv(env)))
	return err == nil && v
}

func envDuration(env string, def time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(env))
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", env, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s: must be positive, got %s", env, d)
	}
	return d, nil
}

// RoomLink returns the shareable watch URL for a room ID
func (c *Config) RoomLink(roomID string) string {
	scheme := "https"
	if c.Insecure {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/r/%s", scheme, c.Domain, roomID)
}

// TURNServers returns TURN server URLs if configured
func (c *Config) TURNServers() []string {
	if c.TURNServer == "" {
		return nil
	}
	host := strings.TrimPrefix(strings.TrimPrefix(c.TURNServer, "turn:"), "turns:")
	return []string{
		fmt.Sprintf("turn:%s:3478?transport=udp", host),
		fmt.Sprintf("turn:%s:3478?transport=tcp", host),
		fmt.Sprintf("turns:%s:5349?transport=tcp", host),
	}
}

// ICEServers builds the ICE server list handed to every peer connection.
func (c *Config) ICEServers() []pion.ICEServer {
	var servers []pion.ICEServer
	if c.STUNServer != "" {
		servers = append(servers, pion.ICEServer{URLs: []string{c.STUNServer}})
	}
	if turn := c.TURNServers(); turn != nil {
		servers = append(servers, pion.ICEServer{
			URLs:       turn,
			Username:   c.TURNUser,
			Credential: c.TURNPass,
		})
	}
	return servers
}

// ICETransportPolicy uses only TURN when forced or when the host looks like it
// sits behind a VPN or CGNAT. Without a TURN server the policy stays All.
func (c *Config) ICETransportPolicy() pion.ICETransportPolicy {
	if c.TURNServer == "" {
		return pion.ICETransportPolicyAll
	}
	if c.ForceRelay || netenv.BehindRestrictiveNAT() {
		return pion.ICETransportPolicyRelay
	}
	return pion.ICETransportPolicyAll
}

// PeerConfiguration is the pion configuration shared by all links.
func (c *Config) PeerConfiguration() pion.Configuration {
	return pion.Configuration{
		ICEServers:         c.ICEServers(),
		ICETransportPolicy: c.ICETransportPolicy(),
	}
}
