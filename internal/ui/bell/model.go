// Package bell renders a live notification feed backed by a notify.Sync.
package bell

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/signnatural/academy-cli/internal/keys"
	"github.com/signnatural/academy-cli/internal/notify"
	"github.com/signnatural/academy-cli/internal/theme"
	"github.com/signnatural/academy-cli/internal/ui"
)

// SnapshotMsg carries a fresh feed state published by a sync engine.
// Sync identifies the source so the root model can fan the message out
// to every feed view and each picks up only its own.
type SnapshotMsg struct {
	Sync     *notify.Sync
	Snapshot notify.Snapshot
}

// Model is the notification feed view component. Each instance owns the
// cursor and the rendered copy of one sync engine's state.
type Model struct {
	sync   *notify.Sync
	keys   *keys.KeyMap
	snap   notify.Snapshot
	cursor int
	width  int
	height int
}

// New creates a feed model over an already-started sync engine.
func New(s *notify.Sync, k *keys.KeyMap, width, height int) Model {
	return Model{
		sync:   s,
		keys:   k,
		snap:   s.Snapshot(),
		width:  width,
		height: height,
	}
}

// Init starts listening for feed updates.
func (m Model) Init() tea.Cmd {
	return m.WaitForUpdate()
}

// WaitForUpdate returns a command that blocks on the sync engine's
// update channel. Update re-issues it after every applied snapshot, so
// the feed keeps listening for the engine's lifetime.
func (m Model) WaitForUpdate() tea.Cmd {
	s := m.sync
	return func() tea.Msg {
		snap, ok := <-s.Updates()
		if !ok {
			return nil
		}
		return SnapshotMsg{Sync: s, Snapshot: snap}
	}
}

// Update handles messages for the feed view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case SnapshotMsg:
		if msg.Sync != m.sync {
			return m, nil
		}
		m.snap = msg.Snapshot
		if m.cursor >= len(m.snap.Items) {
			m.cursor = len(m.snap.Items) - 1
		}
		if m.cursor < 0 {
			m.cursor = 0
		}
		return m, m.WaitForUpdate()

	case tea.KeyMsg:
		return m.handleKeys(msg)
	}
	return m, nil
}

func (m Model) handleKeys(msg tea.KeyMsg) (Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.snap.Items)-1 {
			m.cursor++
		}

	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
		}

	case key.Matches(msg, m.keys.MarkRead):
		if m.cursor < len(m.snap.Items) {
			n := m.snap.Items[m.cursor]
			if !n.Read {
				s := m.sync
				id := n.ID
				return m, func() tea.Msg {
					// Confirmed on the server before the local state flips;
					// a failure just leaves the badge stale.
					s.MarkOneRead(context.Background(), id)
					return nil
				}
			}
		}

	case key.Matches(msg, m.keys.MarkAllRead):
		if m.snap.Unread > 0 {
			s := m.sync
			return m, func() tea.Msg {
				s.MarkAllRead(context.Background())
				return nil
			}
		}
	}
	return m, nil
}

// Unread reports the current unread count for badge rendering by the host view.
func (m Model) Unread() int {
	return m.snap.Unread
}

// Connected reports whether the event stream is currently open.
func (m Model) Connected() bool {
	return m.snap.Connected
}

// View renders the notification feed.
func (m Model) View() string {
	if len(m.snap.Items) == 0 {
		return lipgloss.NewStyle().
			Width(m.width).
			Foreground(theme.ColorGray).
			Render("No notifications yet.")
	}

	var b strings.Builder
	visible := m.height - 2
	if visible < 1 {
		visible = len(m.snap.Items)
	}
	start := 0
	if m.cursor >= visible {
		start = m.cursor - visible + 1
	}

	for i := start; i < len(m.snap.Items) && i < start+visible; i++ {
		b.WriteString(m.renderRow(i))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderRow(i int) string {
	n := m.snap.Items[i]

	marker := "  "
	if !n.Read {
		marker = theme.BadgeStyle.Render("•") + " "
	}

	title := n.Title
	if n.Read {
		title = theme.ReadStyle.Render(title)
	} else {
		title = theme.UnreadStyle.Render(title)
	}

	line := fmt.Sprintf("%s%s  %s", marker, title, theme.SubtleStyle.Render(n.Message))
	meta := theme.SubtleStyle.Render(n.CreatedAt.Format("Jan 2 15:04"))

	row := lipgloss.JoinHorizontal(lipgloss.Top, line, "  ", meta)
	if i == m.cursor {
		return theme.SelectedStyle.Render("> ") + row
	}
	return "  " + row
}

// StatusLine renders the badge and stream indicator for the host's status bar.
func (m Model) StatusLine() string {
	parts := []string{ui.StreamIndicator(m.snap.Connected)}
	if badge := ui.Badge(m.snap.Unread); badge != "" {
		parts = append(parts, badge+" unread")
	}
	return strings.Join(parts, "  ")
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}
