package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent  = lipgloss.Color("#8BC34A")
	muted   = lipgloss.Color("#6b7280")
	danger  = lipgloss.Color("#e53935")
	warning = lipgloss.Color("#FFC107")
	heart   = lipgloss.Color("#ff4d6d")

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(muted).
			Padding(0, 1)

	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(accent)
	mediaStyle   = lipgloss.NewStyle().Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(muted)
	priceStyle   = lipgloss.NewStyle().Bold(true).Foreground(accent)
	oldStyle     = lipgloss.NewStyle().Foreground(muted).Strikethrough(true)
	badStyle     = lipgloss.NewStyle().Foreground(danger)
	heartStyle   = lipgloss.NewStyle().Foreground(heart).Bold(true)
	starStyle    = lipgloss.NewStyle().Foreground(warning)
	controlStyle = lipgloss.NewStyle().Reverse(true).Padding(0, 1)
	noticeStyle  = lipgloss.NewStyle().Italic(true)
)
