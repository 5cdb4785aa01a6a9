package tui

import "github.com/charmbracelet/lipgloss"

// One Dark palette
var (
	ColorFgPrimary = lipgloss.Color("#ABB2BF")
	ColorFgMuted   = lipgloss.Color("#636B78")
	ColorRed       = lipgloss.Color("#E06C75")
	ColorGreen     = lipgloss.Color("#98C379")
	ColorYellow    = lipgloss.Color("#E5C07B")
	ColorBlue      = lipgloss.Color("#61AFEF")
	ColorMagenta   = lipgloss.Color("#C678DD")
	ColorBorder    = lipgloss.Color("#3F4451")
)

var (
	HeaderStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true).
			PaddingLeft(1)

	PanelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(ColorBorder).
			Padding(0, 1)

	PanelTitleStyle = lipgloss.NewStyle().
			Foreground(ColorMagenta).
			Bold(true)

	ProjectStyle = lipgloss.NewStyle().
			Foreground(ColorFgPrimary)

	CursorStyle = lipgloss.NewStyle().
			Foreground(ColorBlue).
			Bold(true)

	ActiveOptionStyle = lipgloss.NewStyle().
				Foreground(ColorGreen).
				Bold(true)

	MutedStyle = lipgloss.NewStyle().
			Foreground(ColorFgMuted)

	ResultStyle = lipgloss.NewStyle().
			Foreground(ColorYellow)

	MessageStyle = lipgloss.NewStyle().
			Foreground(ColorRed).
			Bold(true)

	InputPromptStyle = lipgloss.NewStyle().
				Foreground(ColorBlue)
)
