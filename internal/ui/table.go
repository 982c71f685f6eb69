package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/BioHazard786/Warpcast/internal/negotiation"
)

// LinkSummaryView renders the final state of every link a session saw.
func LinkSummaryView(title string, links []negotiation.LinkEvent) string {
	t := table.NewWriter()
	t.SetTitle(title)
	t.SetStyle(table.StyleRounded)
	t.Style().Title.Align = text.AlignCenter
	t.AppendHeader(table.Row{"Peer", "Link", "State", "Connection", "Keyframe Req", "Age"})

	now := time.Now()
	for _, l := range links {
		t.AppendRow(table.Row{
			l.Peer,
			shortID(l.Link),
			l.State.String(),
			l.Connection.String(),
			l.Keyframes,
			now.Sub(l.Since).Round(time.Second).String(),
		})
	}
	if len(links) == 0 {
		t.AppendFooter(table.Row{"no peers joined"})
	}
	return t.Render()
}

func RenderLinkSummary(title string, links []negotiation.LinkEvent) {
	fmt.Println(LinkSummaryView(title, links))
}

func shortID(id string) string {
	if id == "" {
		return "-"
	}
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

type RoomInfo struct {
	RoomID   string
	RoomLink string
}

func NewRoomInfo(roomID, roomLink string) *RoomInfo {
	return &RoomInfo{RoomID: roomID, RoomLink: roomLink}
}

func (r *RoomInfo) View() string {
	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(Success).
		Padding(1, 2)

	content := fmt.Sprintf("%s Streaming!\n\n%s Room ID:    %s\n%s Watch Link: %s",
		IconStream,
		IconCopy, BoldStyle.Foreground(Primary).Render(r.RoomID),
		IconWeb, MutedStyle.Render(r.RoomLink),
	)
	return boxStyle.Render(content)
}
