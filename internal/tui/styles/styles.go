// Package styles holds the lipgloss styles shared by the waitroom terminal
// views and CLI output.
package styles

import "github.com/charmbracelet/lipgloss"

var (
	// Colors meet WCAG AA contrast (4.5:1) on black and on SurfaceColor.
	PrimaryColor   = lipgloss.Color("#A78BFA") // violet-400
	SecondaryColor = lipgloss.Color("#10B981") // green
	WarningColor   = lipgloss.Color("#F59E0B") // amber
	ErrorColor     = lipgloss.Color("#F87171") // red-400
	MutedColor     = lipgloss.Color("#9CA3AF")
	SurfaceColor   = lipgloss.Color("#1F2937")
	TextColor      = lipgloss.Color("#F9FAFB")
	BorderColor    = lipgloss.Color("#6B7280")

	Primary   = lipgloss.NewStyle().Foreground(PrimaryColor)
	Secondary = lipgloss.NewStyle().Foreground(SecondaryColor)
	Warning   = lipgloss.NewStyle().Foreground(WarningColor)
	Error     = lipgloss.NewStyle().Foreground(ErrorColor)
	Muted     = lipgloss.NewStyle().Foreground(MutedColor)
	Text      = lipgloss.NewStyle().Foreground(TextColor)

	// Wait status colors
	StatusWaiting   = lipgloss.Color("#60A5FA") // blue
	StatusDelivered = lipgloss.Color("#10B981") // green
	StatusTimeout   = lipgloss.Color("#FBBF24") // yellow
	StatusCanceled  = lipgloss.Color("#9CA3AF") // gray
	StatusError     = lipgloss.Color("#F87171") // red

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		MarginBottom(1)

	Header = lipgloss.NewStyle().
		Bold(true).
		Foreground(PrimaryColor).
		BorderStyle(lipgloss.NormalBorder()).
		BorderBottom(true).
		BorderForeground(BorderColor).
		MarginBottom(1).
		PaddingBottom(1)

	// Message body box
	ContentBox = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(BorderColor).
			Padding(0, 1)

	Label = lipgloss.NewStyle().
		Foreground(MutedColor).
		Width(18)

	HelpBar = lipgloss.NewStyle().
		Foreground(MutedColor).
		MarginTop(1)

	HelpKey = lipgloss.NewStyle().
		Bold(true).
		Foreground(SecondaryColor)

	ErrorMsg = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	SuccessMsg = lipgloss.NewStyle().
			Foreground(SecondaryColor).
			Bold(true)

	WarningMsg = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	DropdownItem = lipgloss.NewStyle().
			Foreground(TextColor).
			Padding(0, 1)

	DropdownItemSelected = lipgloss.NewStyle().
				Foreground(TextColor).
				Background(PrimaryColor).
				Bold(true).
				Padding(0, 1)
)

// Wait statuses understood by StatusColor and StatusIcon.
const (
	StatusNameWaiting   = "waiting"
	StatusNameDelivered = "delivered"
	StatusNameTimeout   = "timeout"
	StatusNameCanceled  = "canceled"
	StatusNameError     = "error"
)

// StatusColor returns the color for a wait status.
func StatusColor(status string) lipgloss.Color {
	switch status {
	case StatusNameWaiting:
		return StatusWaiting
	case StatusNameDelivered:
		return StatusDelivered
	case StatusNameTimeout:
		return StatusTimeout
	case StatusNameCanceled:
		return StatusCanceled
	case StatusNameError:
		return StatusError
	default:
		return MutedColor
	}
}

// StatusIcon returns an icon for a wait status.
func StatusIcon(status string) string {
	switch status {
	case StatusNameWaiting:
		return "○"
	case StatusNameDelivered:
		return "✓"
	case StatusNameTimeout:
		return "⏱"
	case StatusNameCanceled:
		return "⏸"
	case StatusNameError:
		return "✗"
	default:
		return "●"
	}
}

// Badge renders icon and status in the status color.
func Badge(status string) string {
	return lipgloss.NewStyle().
		Bold(true).
		Foreground(StatusColor(status)).
		Render(StatusIcon(status) + " " + status)
}
