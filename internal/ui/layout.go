// Package ui holds shared rendering helpers used by the view packages.
package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/signnatural/academy-cli/internal/theme"
)

// Frame renders a view with the standard header and status bar.
func Frame(width int, title, body, status string) string {
	var b strings.Builder

	header := theme.HeaderStyle.Render(title)
	b.WriteString(header)
	b.WriteString("\n\n")
	b.WriteString(body)
	b.WriteString("\n")

	if status != "" {
		bar := theme.StatusBarStyle.Width(max(width, lipgloss.Width(status))).Render(status)
		b.WriteString(bar)
	}
	return b.String()
}

// Badge renders an unread count, or an empty string when there is nothing unread.
func Badge(unread int) string {
	if unread <= 0 {
		return ""
	}
	if unread > 99 {
		return theme.BadgeStyle.Render("99+")
	}
	return theme.BadgeStyle.Render(fmt.Sprintf("%d", unread))
}

// StreamIndicator renders the SSE connection state.
func StreamIndicator(connected bool) string {
	if connected {
		return theme.ConnectedStyle.Render("● live")
	}
	return theme.DisconnectedStyle.Render("○ reconnecting")
}
