// Package dashboard is the student overview: upcoming bookings, recent
// courses, and the personal notification feed.
package dashboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/signnatural/academy-cli/internal/keys"
	"github.com/signnatural/academy-cli/internal/model"
	"github.com/signnatural/academy-cli/internal/notify"
	"github.com/signnatural/academy-cli/internal/store"
	"github.com/signnatural/academy-cli/internal/theme"
	"github.com/signnatural/academy-cli/internal/ui"
	"github.com/signnatural/academy-cli/internal/ui/bell"
)

// DataLoadedMsg is sent when the cached bookings and courses have been read.
type DataLoadedMsg struct {
	Bookings []model.Booking
	Courses  []model.Course
}

// Model is the dashboard view component.
type Model struct {
	store    store.Store
	keys     *keys.KeyMap
	feed     bell.Model
	bookings []model.Booking
	courses  []model.Course
	width    int
	height   int
}

// New creates a dashboard backed by the local cache and a user-scope feed.
func New(st store.Store, s *notify.Sync, k *keys.KeyMap, width, height int) Model {
	return Model{
		store:  st,
		keys:   k,
		feed:   bell.New(s, k, width, height/2),
		width:  width,
		height: height,
	}
}

// Init loads cached data and starts the feed listener.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.LoadData(), m.feed.Init())
}

// Update handles messages for the dashboard.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case DataLoadedMsg:
		m.bookings = msg.Bookings
		m.courses = msg.Courses
		return m, nil

	case bell.SnapshotMsg:
		var cmd tea.Cmd
		m.feed, cmd = m.feed.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Refresh) {
			return m, m.LoadData()
		}
		var cmd tea.Cmd
		m.feed, cmd = m.feed.Update(msg)
		return m, cmd
	}
	return m, nil
}

// LoadData returns a command that queries the cache for upcoming bookings
// and the most recently published courses.
func (m Model) LoadData() tea.Cmd {
	st := m.store
	return func() tea.Msg {
		ctx := context.Background()
		bookings, err := st.GetBookings(ctx, store.BookingFilter{UpcomingOnly: true, Limit: 5})
		if err != nil {
			bookings = nil
		}
		courses, err := st.GetCourses(ctx, store.CourseFilter{SortBy: "published_at", SortDesc: true, Limit: 5})
		if err != nil {
			courses = nil
		}
		return DataLoadedMsg{Bookings: bookings, Courses: courses}
	}
}

// View renders the dashboard.
func (m Model) View() string {
	body := lipgloss.JoinVertical(lipgloss.Left,
		theme.HeaderStyle.Render("Upcoming bookings"),
		m.renderBookings(),
		"",
		theme.HeaderStyle.Render("Latest courses"),
		m.renderCourses(),
		"",
		theme.HeaderStyle.Render("Notifications"),
		m.feed.View(),
	)
	return ui.Frame(m.width, "Sign Natural Academy", body, m.feed.StatusLine())
}

func (m Model) renderBookings() string {
	if len(m.bookings) == 0 {
		return theme.SubtleStyle.Render("  No upcoming bookings.")
	}
	var b strings.Builder
	for _, bk := range m.bookings {
		when := bk.ScheduledFor.Format("Mon Jan 2 15:04")
		status := string(bk.Status)
		b.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			theme.UnreadStyle.Render(when),
			bk.Title,
			theme.SubtleStyle.Render(status)))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (m Model) renderCourses() string {
	if len(m.courses) == 0 {
		return theme.SubtleStyle.Render("  No courses cached yet. Press r to refresh.")
	}
	var b strings.Builder
	for _, c := range m.courses {
		age := ""
		if !c.PublishedAt.IsZero() {
			age = c.PublishedAt.Format("Jan 2006")
		}
		b.WriteString(fmt.Sprintf("  %s  %s  %s\n",
			c.Title,
			theme.SubtleStyle.Render(c.Level),
			theme.SubtleStyle.Render(age)))
	}
	return strings.TrimRight(b.String(), "\n")
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.feed.SetSize(width, height/2)
}
