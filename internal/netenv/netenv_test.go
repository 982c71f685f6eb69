package netenv

import (
	"net"
	"testing"
)

func TestIsCGNAT(t *testing.T) {
	cases := map[string]bool{
		"100.64.0.1":    true,
		"100.127.255.1": true,
		"100.128.0.1":   false,
		"192.168.1.10":  false,
	}
	for raw, want := range cases {
		if got := IsCGNAT(net.ParseIP(raw)); got != want {
			t.Fatalf("IsCGNAT(%s)=%v, want %v", raw, got, want)
		}
	}
	if IsCGNAT(nil) {
		t.Fatalf("nil ip must not match")
	}
}

func TestIsTunnelInterface(t *testing.T) {
	for _, name := range []string{"tun0", "wg0", "CloudflareWARP", "utun3"} {
		if !IsTunnelInterface(name) {
			t.Fatalf("%s should be a tunnel", name)
		}
	}
	for _, name := range []string{"eth0", "en0", "lo"} {
		if IsTunnelInterface(name) {
			t.Fatalf("%s should not be a tunnel", name)
		}
	}
}
