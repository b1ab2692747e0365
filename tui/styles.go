package tui

import "github.com/charmbracelet/lipgloss"

// Styles holds the lipgloss styles used to render the transcript.
type Styles struct {
	UserMsg   lipgloss.Style
	Assistant lipgloss.Style
	Image     lipgloss.Style
	Error     lipgloss.Style
	Muted     lipgloss.Style
}

// NewStyles returns the default style set, built on the standard ANSI
// palette so it adapts to the terminal theme.
func NewStyles() Styles {
	return Styles{
		UserMsg:   lipgloss.NewStyle().Foreground(lipgloss.Color("6")).Bold(true),
		Assistant: lipgloss.NewStyle(),
		Image:     lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		Error:     lipgloss.NewStyle().Foreground(lipgloss.Color("1")),
		Muted:     lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Faint(true),
	}
}
