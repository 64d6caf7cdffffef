package theme

import "github.com/charmbracelet/lipgloss"

// Adaptive color pairs (dark terminal value, light terminal value).
var (
	ColorSage   = lipgloss.AdaptiveColor{Dark: "#9DC08B", Light: "#40513B"}
	ColorGreen  = lipgloss.AdaptiveColor{Dark: "#6BCB77", Light: "#2F855A"}
	ColorYellow = lipgloss.AdaptiveColor{Dark: "#FFD93D", Light: "#B7791F"}
	ColorRed    = lipgloss.AdaptiveColor{Dark: "#FF6B6B", Light: "#C53030"}
	ColorGray   = lipgloss.AdaptiveColor{Dark: "#868E96", Light: "#718096"}
	ColorWhite  = lipgloss.AdaptiveColor{Dark: "#F8F9FA", Light: "#1A202C"}
	ColorSubtle = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#CBD5E0"}
	ColorBorder = lipgloss.AdaptiveColor{Dark: "#495057", Light: "#E2E8F0"}
)

// HeaderStyle is used for top-level section headers and the application title.
var HeaderStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorSage).
	Padding(0, 1)

// StatusBarStyle is used for the bottom status bar.
var StatusBarStyle = lipgloss.NewStyle().
	Foreground(ColorWhite).
	Background(ColorSubtle).
	Padding(0, 1)

// PanelStyle wraps a view's content area.
var PanelStyle = lipgloss.NewStyle().
	Padding(1, 2).
	Border(lipgloss.RoundedBorder()).
	BorderForeground(ColorBorder)

// BadgeStyle renders the unread notification count.
var BadgeStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite).
	Background(ColorRed).
	Padding(0, 1)

// UnreadStyle marks unread notification rows.
var UnreadStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(ColorWhite)

// ReadStyle marks already-seen notification rows.
var ReadStyle = lipgloss.NewStyle().
	Foreground(ColorGray)

// ConnectedStyle and DisconnectedStyle render the stream indicator.
var ConnectedStyle = lipgloss.NewStyle().Foreground(ColorGreen)
var DisconnectedStyle = lipgloss.NewStyle().Foreground(ColorYellow)

// SelectedStyle highlights the row under the cursor.
var SelectedStyle = lipgloss.NewStyle().
	Foreground(ColorSage).
	Bold(true)

// SubtleStyle renders secondary text such as timestamps and links.
var SubtleStyle = lipgloss.NewStyle().Foreground(ColorGray)
