package cmd

import "github.com/charmbracelet/lipgloss"

// Color palette
var (
	colorPrimary   = lipgloss.Color("#7C3AED") // Purple
	colorSuccess   = lipgloss.Color("#10B981") // Green
	colorWarning   = lipgloss.Color("#F59E0B") // Amber
	colorError     = lipgloss.Color("#EF4444") // Red
	colorTextMuted = lipgloss.Color("#9CA3AF") // Muted gray
)

// styles groups the renderers used for command output.
type styles struct {
	header lipgloss.Style
	ok     lipgloss.Style
	warn   lipgloss.Style
	err    lipgloss.Style
	muted  lipgloss.Style
	key    lipgloss.Style
}

func newStyles(noColor bool) styles {
	if noColor {
		plain := lipgloss.NewStyle()
		return styles{header: plain, ok: plain, warn: plain, err: plain, muted: plain, key: plain}
	}
	return styles{
		header: lipgloss.NewStyle().Foreground(colorPrimary).Bold(true),
		ok:     lipgloss.NewStyle().Foreground(colorSuccess),
		warn:   lipgloss.NewStyle().Foreground(colorWarning),
		err:    lipgloss.NewStyle().Foreground(colorError).Bold(true),
		muted:  lipgloss.NewStyle().Foreground(colorTextMuted),
		key:    lipgloss.NewStyle().Bold(true),
	}
}
