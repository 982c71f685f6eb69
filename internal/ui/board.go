package ui

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	pion "github.com/pion/webrtc/v4"

	"github.com/BioHazard786/Warpcast/internal/negotiation"
)

// Board is the live list of links a session is negotiating. Feed it through
// Observe, which is safe to pass as a negotiation.Observer.
type Board struct {
	program *tea.Program
	model   *boardModel
	updates chan negotiation.LinkEvent
	wg      sync.WaitGroup
}

type boardModel struct {
	title    string
	spinner  spinner.Model
	rows     map[string]negotiation.LinkEvent
	updates  chan negotiation.LinkEvent
	onQuit   func()
	quitting bool
}

// NewBoard creates a board. onQuit runs when the user presses q or ctrl+c.
func NewBoard(title string, onQuit func()) *Board {
	updates := make(chan negotiation.LinkEvent, 128)

	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = SpinnerStyle

	return &Board{
		updates: updates,
		model: &boardModel{
			title:   title,
			spinner: s,
			rows:    make(map[string]negotiation.LinkEvent),
			updates: updates,
			onQuit:  onQuit,
		},
	}
}

// Start runs the board inline below the existing terminal output.
func (b *Board) Start() {
	b.program = tea.NewProgram(b.model)
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		if _, err := b.program.Run(); err != nil {
			fmt.Printf("UI error: %v\n", err)
		}
	}()
}

// Observe queues a link event. Events are dropped if the board falls behind.
func (b *Board) Observe(ev negotiation.LinkEvent) {
	select {
	case b.updates <- ev:
	default:
	}
}

func (b *Board) Stop() {
	if b.program != nil {
		b.program.Quit()
	}
	b.wg.Wait()
}

func (m *boardModel) Init() tea.Cmd {
	return tea.Batch(m.spinner.Tick, m.listen())
}

func (m *boardModel) listen() tea.Cmd {
	return func() tea.Msg {
		return <-m.updates
	}
}

func (m *boardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			if m.onQuit != nil {
				m.onQuit()
			}
			return m, tea.Quit
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case negotiation.LinkEvent:
		m.rows[msg.Peer] = msg
		return m, m.listen()
	}
	return m, nil
}

func (m *boardModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n" + TitleStyle.Render(m.title) + "\n")

	if len(m.rows) == 0 {
		b.WriteString(fmt.Sprintf("%s %s\n", m.spinner.View(), MutedStyle.Render("Waiting for peers...")))
	}

	peers := make([]string, 0, len(m.rows))
	for p := range m.rows {
		peers = append(peers, p)
	}
	sort.Strings(peers)

	for _, p := range peers {
		ev := m.rows[p]
		b.WriteString(fmt.Sprintf("  %s %s %s %s\n",
			m.icon(ev),
			PeerStyle.Render(IconPeer+" "+p),
			StateStyle.Render(ev.State.String()),
			MutedStyle.Render(connectionLabel(ev)),
		))
	}

	b.WriteString("\n" + MutedStyle.Render("Press q to stop"))
	return b.String()
}

func (m *boardModel) icon(ev negotiation.LinkEvent) string {
	switch {
	case ev.State == negotiation.StateClosed:
		return ErrorStyle.Render("✗")
	case ev.Connection == pion.PeerConnectionStateConnected:
		return SuccessStyle.Render("●")
	default:
		return m.spinner.View()
	}
}

func connectionLabel(ev negotiation.LinkEvent) string {
	label := ev.Connection.String()
	if ev.Keyframes > 0 {
		label += fmt.Sprintf(" · %d keyframe requests", ev.Keyframes)
	}
	if ev.Reason != "" {
		label += " · " + ev.Reason
	}
	return label
}
