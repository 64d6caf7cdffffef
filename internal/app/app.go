// Package app is the root Bubble Tea model: view routing, session
// lifecycle, and ownership of the per-view notification engines.
package app

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/signnatural/academy-cli/internal/api"
	"github.com/signnatural/academy-cli/internal/keys"
	"github.com/signnatural/academy-cli/internal/model"
	"github.com/signnatural/academy-cli/internal/notify"
	"github.com/signnatural/academy-cli/internal/session"
	"github.com/signnatural/academy-cli/internal/store"
	"github.com/signnatural/academy-cli/internal/ui/adminboard"
	"github.com/signnatural/academy-cli/internal/ui/bell"
	"github.com/signnatural/academy-cli/internal/ui/dashboard"
	"github.com/signnatural/academy-cli/internal/ui/login"
)

// ViewState represents the current active view in the application.
type ViewState int

const (
	ViewLogin ViewState = iota
	ViewDashboard
	ViewAdmin
)

// sessionEndedMsg is sent when the session service fires its teardown
// hooks, whether from an explicit sign-out or a rejected token.
type sessionEndedMsg struct{}

// catalogRefreshedMsg is sent after the catalog has been fetched from
// the backend and written to the local cache.
type catalogRefreshedMsg struct {
	err error
}

// Model is the root Bubble Tea model.
type Model struct {
	currentView ViewState
	session     *session.Service
	client      *api.Client
	store       store.Store
	keys        *keys.KeyMap
	log         *slog.Logger

	loginView  login.Model
	dashboard  dashboard.Model
	adminBoard adminboard.Model

	userSync  *notify.Sync
	adminSync *notify.Sync

	// signedOut relays session teardown hooks into the update loop.
	signedOut chan struct{}

	width, height int
	ready         bool
}

// New creates the root model. When a persisted session exists the app
// starts straight on the dashboard; otherwise on the sign-in screen.
func New(sess *session.Service, client *api.Client, st store.Store, log *slog.Logger) Model {
	m := Model{
		currentView: ViewLogin,
		session:     sess,
		client:      client,
		store:       st,
		keys:        keys.DefaultKeyMap(),
		log:         log,
		loginView:   login.New(client, 80, 24),
		signedOut:   make(chan struct{}, 1),
		width:       80,
		height:      24,
	}

	sess.OnSignOut(func() {
		select {
		case m.signedOut <- struct{}{}:
		default:
		}
	})

	// A persisted session skips the sign-in screen entirely.
	if sess.Authenticated() {
		if user := sess.User(); user != nil {
			m.buildSignedIn(*user)
		}
	}

	return m
}

// Init starts the active view's commands and the sign-out listener.
func (m Model) Init() tea.Cmd {
	if m.currentView != ViewLogin {
		cmds := []tea.Cmd{m.dashboard.Init(), m.refreshCatalog(), m.waitForSignOut()}
		if m.adminSync != nil {
			cmds = append(cmds, m.adminBoard.Init())
		}
		return tea.Batch(cmds...)
	}
	return tea.Batch(m.loginView.Init(), m.waitForSignOut())
}

// waitForSignOut returns a command that blocks until the session is
// torn down, then routes the app back to the sign-in screen.
func (m Model) waitForSignOut() tea.Cmd {
	ch := m.signedOut
	return func() tea.Msg {
		<-ch
		return sessionEndedMsg{}
	}
}

// buildSignedIn constructs the signed-in views and starts the
// notification engines. The admin engine only exists for staff; it is
// never created and later filtered for regular users.
func (m *Model) buildSignedIn(user model.User) {
	m.userSync = m.newSync(notify.ScopeUser)
	m.userSync.Start()
	m.dashboard = dashboard.New(m.store, m.userSync, m.keys, m.width, m.height)

	if user.Role.IsStaff() {
		m.adminSync = m.newSync(notify.ScopeAdmin)
		m.adminSync.Start()
		m.adminBoard = adminboard.New(m.adminSync, m.keys, m.width, m.height)
	}

	m.currentView = ViewDashboard
	m.applyVisibility()
}

// startSignedIn is the post-login path: build the views, then return
// their startup commands.
func (m *Model) startSignedIn(user model.User) tea.Cmd {
	m.buildSignedIn(user)

	cmds := []tea.Cmd{m.dashboard.Init(), m.refreshCatalog()}
	if m.adminSync != nil {
		cmds = append(cmds, m.adminBoard.Init())
	}
	return tea.Batch(cmds...)
}

// newSync assembles a notification engine for one audience scope.
func (m *Model) newSync(scope notify.Scope) *notify.Sync {
	return notify.New(notify.Config{
		Scope:      scope,
		Backend:    m.client,
		Tokens:     m.session,
		StreamURL:  m.client.NotificationStreamURL(),
		HTTPClient: &http.Client{},
		Logger:     m.log,
	})
}

// closeSyncs tears down both notification engines.
func (m *Model) closeSyncs() {
	if m.userSync != nil {
		m.userSync.Close()
		m.userSync = nil
	}
	if m.adminSync != nil {
		m.adminSync.Close()
		m.adminSync = nil
	}
}

// applyVisibility tells each engine whether its view is on screen, so
// background pushes land in the feed without bumping the badge.
func (m *Model) applyVisibility() {
	if m.userSync != nil {
		m.userSync.SetVisible(m.currentView == ViewDashboard)
	}
	if m.adminSync != nil {
		m.adminSync.SetVisible(m.currentView == ViewAdmin)
	}
}

// refreshCatalog fetches courses, workshops, and bookings from the
// backend and caches them locally. Failures keep the previous cache.
func (m Model) refreshCatalog() tea.Cmd {
	client := m.client
	st := m.store
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		courses, err := client.Courses(ctx)
		if err != nil {
			return catalogRefreshedMsg{err: err}
		}
		if err := st.UpsertCourses(ctx, courses); err != nil {
			return catalogRefreshedMsg{err: err}
		}

		workshops, err := client.Workshops(ctx)
		if err != nil {
			return catalogRefreshedMsg{err: err}
		}
		if err := st.UpsertWorkshops(ctx, workshops); err != nil {
			return catalogRefreshedMsg{err: err}
		}

		bookings, err := client.Bookings(ctx)
		if err != nil {
			return catalogRefreshedMsg{err: err}
		}
		if err := st.UpsertBookings(ctx, bookings); err != nil {
			return catalogRefreshedMsg{err: err}
		}

		return catalogRefreshedMsg{}
	}
}

// Update handles messages and dispatches to the active view.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.ready = true
		m.loginView.SetSize(msg.Width, msg.Height)
		m.dashboard.SetSize(msg.Width, msg.Height)
		m.adminBoard.SetSize(msg.Width, msg.Height)
		return m.updateActiveView(msg)

	case login.SignedInMsg:
		m.session.SignIn(msg.Token, msg.User)
		m.log.Info("signed in", slog.String("user", msg.User.ID))
		cmd := m.startSignedIn(msg.User)
		return m, cmd

	case sessionEndedMsg:
		m.closeSyncs()
		m.currentView = ViewLogin
		m.loginView = login.New(m.client, m.width, m.height)
		return m, tea.Batch(m.loginView.Init(), m.waitForSignOut())

	case catalogRefreshedMsg:
		if msg.err != nil {
			if api.IsAuthError(msg.err) {
				// Session teardown is already in flight via the
				// client's unauthorized interceptor.
				return m, nil
			}
			m.log.Warn("catalog refresh failed", slog.String("error", msg.err.Error()))
			return m, nil
		}
		if m.currentView == ViewDashboard {
			return m, m.dashboard.LoadData()
		}
		return m, nil

	case bell.SnapshotMsg:
		// Fan out to every feed view; each one matches on its own
		// engine, so a background feed keeps listening while hidden.
		var cmds []tea.Cmd
		var cmd tea.Cmd
		m.dashboard, cmd = m.dashboard.Update(msg)
		cmds = append(cmds, cmd)
		m.adminBoard, cmd = m.adminBoard.Update(msg)
		cmds = append(cmds, cmd)
		return m, tea.Batch(cmds...)

	case tea.KeyMsg:
		if mdl, cmd, handled := m.handleGlobalKeys(msg); handled {
			return mdl, cmd
		}
	}

	return m.updateActiveView(msg)
}

// handleGlobalKeys processes keys that work regardless of the active
// view. Keys are never global on the sign-in screen, where the form
// owns all input.
func (m Model) handleGlobalKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd, bool) {
	if msg.String() == "ctrl+c" {
		m.closeSyncs()
		return m, tea.Quit, true
	}
	if m.currentView == ViewLogin {
		return m, nil, false
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.closeSyncs()
		return m, tea.Quit, true

	case key.Matches(msg, m.keys.Dashboard):
		m.currentView = ViewDashboard
		m.applyVisibility()
		return m, nil, true

	case key.Matches(msg, m.keys.AdminBoard):
		if m.adminSync != nil {
			m.currentView = ViewAdmin
			m.applyVisibility()
		}
		return m, nil, true

	case key.Matches(msg, m.keys.Refresh):
		return m, m.refreshCatalog(), true

	case key.Matches(msg, m.keys.SignOut):
		client := m.client
		sess := m.session
		return m, func() tea.Msg {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			// Best effort; the local session goes away regardless.
			_ = client.Logout(ctx)
			sess.SignOut()
			return nil
		}, true
	}

	return m, nil, false
}

// updateActiveView dispatches the message to the currently active view.
func (m Model) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch m.currentView {
	case ViewLogin:
		m.loginView, cmd = m.loginView.Update(msg)
	case ViewDashboard:
		m.dashboard, cmd = m.dashboard.Update(msg)
	case ViewAdmin:
		m.adminBoard, cmd = m.adminBoard.Update(msg)
	}

	return m, cmd
}

// View renders the active view.
func (m Model) View() string {
	if !m.ready {
		return "Loading..."
	}

	switch m.currentView {
	case ViewLogin:
		return m.loginView.View()
	case ViewDashboard:
		return m.dashboard.View()
	case ViewAdmin:
		return m.adminBoard.View()
	default:
		return ""
	}
}
