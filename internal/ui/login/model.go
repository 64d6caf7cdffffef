// Package login is the sign-in screen.
package login

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/signnatural/academy-cli/internal/api"
	"github.com/signnatural/academy-cli/internal/model"
	"github.com/signnatural/academy-cli/internal/theme"
)

// Mode represents the current state of the login view.
type Mode int

const (
	ModeForm       Mode = iota // Collect credentials
	ModeSubmitting             // Waiting on the backend
)

// SignedInMsg signals a successful login. The app layer stores the
// session and switches views.
type SignedInMsg struct {
	Token string
	User  model.User
}

// loginResultMsg carries the backend's response to a login attempt.
type loginResultMsg struct {
	resp *api.LoginResponse
	err  error
}

// Model is the Bubble Tea model for the sign-in screen.
type Model struct {
	mode   Mode
	client *api.Client
	form   *huh.Form

	// Form field values (huh binds to these)
	email    string
	password string

	errMsg  string
	spinner spinner.Model

	width, height int
}

// New creates a new login model.
func New(client *api.Client, width, height int) Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		mode:    ModeForm,
		client:  client,
		spinner: sp,
		width:   width,
		height:  height,
	}
	m.form = m.buildForm()
	return m
}

// Init initializes the credential form.
func (m Model) Init() tea.Cmd {
	return m.form.Init()
}

func (m *Model) buildForm() *huh.Form {
	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Email").
				Placeholder("you@example.com").
				Value(&m.email).
				Validate(validateEmail),
			huh.NewInput().
				Title("Password").
				EchoMode(huh.EchoModePassword).
				Value(&m.password).
				Validate(validateRequired("Password")),
		),
	).WithWidth(m.formWidth())
}

// Update handles messages for the login view.
func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case loginResultMsg:
		if msg.err != nil {
			m.mode = ModeForm
			m.errMsg = loginErrorText(msg.err)
			m.password = ""
			m.form = m.buildForm()
			return m, m.form.Init()
		}
		return m, func() tea.Msg {
			return SignedInMsg{Token: msg.resp.Token, User: msg.resp.User}
		}

	case spinner.TickMsg:
		if m.mode == ModeSubmitting {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil
	}

	if m.mode != ModeForm || m.form == nil {
		return m, nil
	}

	mdl, cmd := m.form.Update(msg)
	if f, ok := mdl.(*huh.Form); ok {
		m.form = f
	}

	if m.form.State == huh.StateCompleted {
		m.mode = ModeSubmitting
		m.errMsg = ""
		return m, tea.Batch(m.spinner.Tick, m.submit())
	}

	return m, cmd
}

// submit returns a command that exchanges the entered credentials for a token.
func (m Model) submit() tea.Cmd {
	c := m.client
	email, password := m.email, m.password
	return func() tea.Msg {
		resp, err := c.Login(context.Background(), email, password)
		return loginResultMsg{resp: resp, err: err}
	}
}

// View renders the sign-in screen.
func (m Model) View() string {
	style := lipgloss.NewStyle().
		Padding(1, 2).
		Width(m.width).
		Height(m.height)

	title := theme.HeaderStyle.Render("Sign Natural Academy")

	if m.mode == ModeSubmitting {
		return style.Render(title + "\n\n" + m.spinner.View() + " Signing in...")
	}

	var b strings.Builder
	b.WriteString(title)
	b.WriteString("\n\n")
	if m.errMsg != "" {
		errStyle := lipgloss.NewStyle().Bold(true).Foreground(theme.ColorRed)
		b.WriteString(errStyle.Render(m.errMsg))
		b.WriteString("\n\n")
	}
	if m.form != nil {
		b.WriteString(m.form.View())
	}
	return style.Render(b.String())
}

// SetSize updates the view dimensions.
func (m *Model) SetSize(width, height int) {
	m.width = width
	m.height = height
}

func (m Model) formWidth() int {
	w := m.width - 4
	if w < 40 {
		w = 40
	}
	if w > 80 {
		w = 80
	}
	return w
}

// loginErrorText maps backend failures to user-facing text without
// leaking which of email or password was wrong.
func loginErrorText(err error) string {
	if api.IsAuthError(err) {
		return "Invalid email or password."
	}
	return fmt.Sprintf("Sign-in failed: %v", err)
}

// --- Validators ---

func validateRequired(fieldName string) func(string) error {
	return func(s string) error {
		if strings.TrimSpace(s) == "" {
			return fmt.Errorf("%s is required", fieldName)
		}
		return nil
	}
}

func validateEmail(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return fmt.Errorf("email is required")
	}
	at := strings.Index(s, "@")
	if at <= 0 || at == len(s)-1 {
		return fmt.Errorf("enter a valid email address")
	}
	return nil
}
