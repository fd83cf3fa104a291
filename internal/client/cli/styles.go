package cli

import "github.com/charmbracelet/lipgloss"

var (
	cyan  = lipgloss.Color("#06B6D4")
	gray  = lipgloss.Color("#9CA3AF")
	red   = lipgloss.Color("#F87171")
	amber = lipgloss.Color("#FBBF24")
	green = lipgloss.Color("#34D399")

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(cyan)
	labelStyle = lipgloss.NewStyle().Foreground(gray).Width(14)
	okStyle    = lipgloss.NewStyle().Foreground(green)
	warnStyle  = lipgloss.NewStyle().Foreground(amber)
	errStyle   = lipgloss.NewStyle().Foreground(red)
	boxStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(cyan).
			Padding(0, 1)
)

func field(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}
