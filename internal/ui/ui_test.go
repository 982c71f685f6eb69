package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcast/internal/negotiation"
)

func linkEvent(peer string, state negotiation.State, conn pion.PeerConnectionState) negotiation.LinkEvent {
	return negotiation.LinkEvent{LinkInfo: negotiation.LinkInfo{
		Peer:       peer,
		Link:       "0f3c2a9e-5b1d-4d7e-9a8b-123456789abc",
		State:      state,
		Connection: conn,
		Since:      time.Now(),
	}}
}

func TestBoard_ShowsLatestStatePerPeer(t *testing.T) {
	b := NewBoard("Streaming", nil)
	m := b.model

	m.Update(linkEvent("viewer-1", negotiation.StateAwaitingAnswer, pion.PeerConnectionStateNew))
	m.Update(linkEvent("viewer-1", negotiation.StateStable, pion.PeerConnectionStateConnected))
	m.Update(linkEvent("viewer-2", negotiation.StateOffering, pion.PeerConnectionStateNew))

	view := m.View()
	if strings.Count(view, "viewer-1") != 1 || !strings.Contains(view, "viewer-2") {
		t.Fatalf("unexpected rows:\n%s", view)
	}
	if strings.Contains(view, "awaiting-answer") {
		t.Fatalf("stale state rendered:\n%s", view)
	}
	if !strings.Contains(view, "stable") {
		t.Fatalf("current state missing:\n%s", view)
	}
}

func TestBoard_WaitingWithoutPeers(t *testing.T) {
	b := NewBoard("Streaming", nil)
	if !strings.Contains(b.model.View(), "Waiting for peers") {
		t.Fatalf("empty board should say it is waiting")
	}
}

func TestBoard_QuitCallsBack(t *testing.T) {
	quit := false
	b := NewBoard("Streaming", func() { quit = true })

	_, cmd := b.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	if !quit || cmd == nil {
		t.Fatalf("q did not stop the session")
	}
	if b.model.View() != "" {
		t.Fatalf("board still rendering after quit")
	}
}

func TestBoard_ObserveNeverBlocks(t *testing.T) {
	b := NewBoard("Streaming", nil)
	done := make(chan struct{})
	go func() {
		for i := 0; i < cap(b.updates)+10; i++ {
			b.Observe(linkEvent("viewer-1", negotiation.StateNew, pion.PeerConnectionStateNew))
		}
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("Observe blocked on a full board")
	}
}

func TestLinkSummaryView(t *testing.T) {
	view := LinkSummaryView("Session Summary", []negotiation.LinkEvent{
		linkEvent("viewer-1", negotiation.StateClosed, pion.PeerConnectionStateClosed),
	})
	for _, want := range []string{"viewer-1", "0f3c2a9e", "closed"} {
		if !strings.Contains(strings.ToLower(view), want) {
			t.Fatalf("summary missing %q:\n%s", want, view)
		}
	}
	if strings.Contains(view, "123456789abc") {
		t.Fatalf("link id not shortened:\n%s", view)
	}

	if empty := LinkSummaryView("Session Summary", nil); !strings.Contains(strings.ToLower(empty), "no peers joined") {
		t.Fatalf("empty summary:\n%s", empty)
	}
}
