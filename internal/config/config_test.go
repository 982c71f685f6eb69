package config

import (
	"strings"
	"testing"
	"time"

	pion "github.com/pion/webrtc/v4"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DOMAIN", "INSECURE", "STUN_SERVER", "TURN_SERVER", "TURN_USERNAME", "TURN_PASSWORD",
		"FORCE_RELAY", "SIGNAL_ENCODING", "CANDIDATE_WINDOW", "SEND_TIMEOUT", "RELAY_ADDR",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain != DefaultDomain {
		t.Fatalf("Domain=%q, want %q", cfg.Domain, DefaultDomain)
	}
	if cfg.WebSocketURL != "wss://"+DefaultDomain+"/ws?encoding=json" {
		t.Fatalf("WebSocketURL=%q", cfg.WebSocketURL)
	}
	if cfg.CandidateWindow != DefaultCandidateWindow {
		t.Fatalf("CandidateWindow=%s, want %s", cfg.CandidateWindow, DefaultCandidateWindow)
	}
	if got := cfg.ICEServers(); len(got) != 1 || got[0].URLs[0] != DefaultSTUN {
		t.Fatalf("ICEServers=%#v", got)
	}
	if cfg.ICETransportPolicy() != pion.ICETransportPolicyAll {
		t.Fatalf("policy without TURN must be all")
	}
}

func TestLoad_FlagBeatsEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("DOMAIN", "env.example.com")
	t.Setenv("SIGNAL_ENCODING", "msgpack")

	cfg, err := Load(Options{Domain: "flag.example.com", Insecure: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Domain != "flag.example.com" {
		t.Fatalf("Domain=%q", cfg.Domain)
	}
	if cfg.WebSocketURL != "ws://flag.example.com/ws?encoding=msgpack" {
		t.Fatalf("WebSocketURL=%q", cfg.WebSocketURL)
	}
	if got := cfg.RoomLink("amber-otter"); got != "http://flag.example.com/r/amber-otter" {
		t.Fatalf("RoomLink=%q", got)
	}
}

func TestLoad_CandidateWindowFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("CANDIDATE_WINDOW", "250ms")

	cfg, err := Load(Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.CandidateWindow != 250*time.Millisecond {
		t.Fatalf("CandidateWindow=%s", cfg.CandidateWindow)
	}

	t.Setenv("CANDIDATE_WINDOW", "-1s")
	if _, err := Load(Options{}); err == nil {
		t.Fatalf("expected error for negative window")
	}
}

func TestLoad_RejectsUnknownEncoding(t *testing.T) {
	clearEnv(t)
	if _, err := Load(Options{Encoding: "xml"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestLoad_TURNRequiresCredentials(t *testing.T) {
	clearEnv(t)
	if _, err := Load(Options{TURNServer: "turn.example.com"}); err == nil {
		t.Fatalf("expected error")
	}

	cfg, err := Load(Options{TURNServer: "turn:turn.example.com", TURNUser: "u", TURNPass: "p", ForceRelay: true})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	servers := cfg.ICEServers()
	if len(servers) != 2 {
		t.Fatalf("ICEServers len=%d, want 2", len(servers))
	}
	for _, u := range servers[1].URLs {
		if strings.Contains(u, "turn:turn:") {
			t.Fatalf("scheme duplicated in %q", u)
		}
	}
	if servers[1].Username != "u" || servers[1].Credential != "p" {
		t.Fatalf("unexpected TURN credentials: %#v", servers[1])
	}
	if cfg.ICETransportPolicy() != pion.ICETransportPolicyRelay {
		t.Fatalf("ForceRelay with TURN must select relay policy")
	}
}
