package tui

import "github.com/charmbracelet/lipgloss"

var (
	accent      = lipgloss.Color("#2196F3")
	userColor   = lipgloss.Color("#8BC34A")
	botColor    = lipgloss.Color("#f2f2f2")
	mutedColor  = lipgloss.Color("#6b7685")
	selectColor = lipgloss.Color("#FFC107")
)

type Styles struct {
	Header    lipgloss.Style
	Subtitle  lipgloss.Style
	User      lipgloss.Style
	Bot       lipgloss.Style
	Selected  lipgloss.Style
	Editing   lipgloss.Style
	Help      lipgloss.Style
	InputArea lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Header:   lipgloss.NewStyle().Bold(true).Foreground(accent),
		Subtitle: lipgloss.NewStyle().Foreground(mutedColor),
		User:     lipgloss.NewStyle().Foreground(userColor).PaddingLeft(2),
		Bot:      lipgloss.NewStyle().Foreground(botColor).PaddingLeft(2),
		Selected: lipgloss.NewStyle().Foreground(selectColor).Bold(true),
		Editing: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(selectColor).
			PaddingLeft(1),
		Help: lipgloss.NewStyle().Foreground(mutedColor),
		InputArea: lipgloss.NewStyle().
			Border(lipgloss.NormalBorder(), true, false, false, false).
			BorderForeground(mutedColor),
	}
}
