package cmd

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/BioHazard786/Warpcast/internal/config"
	"github.com/BioHazard786/Warpcast/internal/identity"
	"github.com/BioHazard786/Warpcast/internal/ui"
)

// netFlags are the relay and ICE flags shared by stream and watch.
type netFlags struct {
	domain   string
	insecure bool
	stun     string
	turn     string
	turnUser string
	turnPass string
	relay    bool
	encoding string
}

func (f *netFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.domain, "domain", "", "Relay server host (host or host:port)")
	cmd.Flags().BoolVar(&f.insecure, "insecure", false, "Use ws:// instead of wss://")
	cmd.Flags().StringVarP(&f.stun, "stun", "s", "", "Custom STUN server")
	cmd.Flags().StringVarP(&f.turn, "turn", "t", "", "Custom TURN server")
	cmd.Flags().StringVar(&f.turnUser, "turn-user", "", "TURN username")
	cmd.Flags().StringVar(&f.turnPass, "turn-pass", "", "TURN password")
	cmd.Flags().BoolVarP(&f.relay, "relay", "r", false, "Force relay mode")
	cmd.Flags().StringVar(&f.encoding, "encoding", "", "Signal frame encoding: json or msgpack")
}

func (f *netFlags) load() (*config.Config, error) {
	cfg, err := config.Load(config.Options{
		Domain:     f.domain,
		Insecure:   f.insecure,
		STUNServer: f.stun,
		TURNServer: f.turn,
		TURNUser:   f.turnUser,
		TURNPass:   f.turnPass,
		ForceRelay: f.relay,
		Encoding:   f.encoding,
	})
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	if cfg.ForceRelay && cfg.TURNServers() == nil {
		return nil, fmt.Errorf("cannot force relay mode without TURN server configured")
	}
	return cfg, nil
}

// parseRoomInput accepts a bare room id or a watch link such as
// https://warpcast.qzz.io/r/sleepy-otter-comet.
func parseRoomInput(input string) (string, error) {
	if input == "" {
		return "", fmt.Errorf("room ID cannot be empty")
	}

	room := input
	if strings.Contains(input, "://") || strings.Contains(input, ".") {
		var err error
		if room, err = extractRoomIDFromURL(input); err != nil {
			return "", err
		}
		ui.PrintSuccessf("Extracted room ID: %s", room)
	}

	if err := identity.ValidateRoomID(room); err != nil {
		return "", err
	}
	return room, nil
}

func extractRoomIDFromURL(urlStr string) (string, error) {
	if !strings.Contains(urlStr, "://") {
		urlStr = "https://" + urlStr
	}
	parsedURL, err := url.Parse(urlStr)
	if err != nil {
		return "", fmt.Errorf("parse URL: %w", err)
	}

	parts := strings.Split(strings.TrimSuffix(parsedURL.Path, "/"), "/")
	for i, part := range parts {
		if part == "r" && i+1 < len(parts) && parts[i+1] != "" {
			return parts[i+1], nil
		}
	}

	return "", fmt.Errorf("could not extract room ID from URL: %s", urlStr)
}
