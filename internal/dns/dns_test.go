package dns

import (
	"context"
	"testing"
)

func TestPreferIPv4(t *testing.T) {
	got, err := preferIPv4([]string{"2001:db8::1", "192.0.2.7"})
	if err != nil {
		t.Fatalf("preferIPv4: %v", err)
	}
	if got != "192.0.2.7" {
		t.Fatalf("got %q, want IPv4", got)
	}

	got, err = preferIPv4([]string{"2001:db8::1"})
	if err != nil || got != "2001:db8::1" {
		t.Fatalf("got %q, %v", got, err)
	}

	if _, err := preferIPv4(nil); err == nil {
		t.Fatalf("expected error for empty list")
	}
}

func TestLookup_IPLiteral(t *testing.T) {
	got, err := Lookup(context.Background(), "127.0.0.1")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != "127.0.0.1" {
		t.Fatalf("got %q", got)
	}
}
