// Package adminboard is the staff console: a live feed of operational
// events (bookings, testimonials awaiting moderation, support tickets).
package adminboard

import (
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/signnatural/academy-cli/internal/keys"
	"github.com/signnatural/academy-cli/internal/notify"
	"github.com/signnatural/academy-cli/internal/theme"
	"github.com/signnatural/academy-cli/internal/ui"
	"github.com/signnatural/academy-cli/internal/ui/bell"
)

// Model is the admin console view component.
type Model struct {
	feed   bell.Model
	width  int
	height int
}

// New creates an admin console over an admin-scope sync engine.
func New(s *notify.Sync, k *keys.KeyMap, width, height int) Model {
	return Model{
		feed:   bell.New(s, k, width, height-4),
		width:  width,
		height: height,
	}
}

// Init starts the feed listener.
func (m Model) Init() tea.Cmd {
	return m.feed.Init()
}

// Update handles messages for the admin console.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	var cmd tea.Cmd
	m.feed, cmd = m.feed.Update(msg)
	return m, cmd
}

// View renders the admin console.
func (m Model) View() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		theme.SubtleStyle.Render("Operational events, newest first. m marks read, M marks all."),
		"",
		m.feed.View(),
	)
	return ui.Frame(m.width, "Admin Board", body, m.feed.StatusLine())
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.feed.SetSize(width, height-4)
}
