package options

import "github.com/charmbracelet/lipgloss"

// palette is one color theme of the editor.
type palette struct {
	accent    lipgloss.Color
	success   lipgloss.Color
	secondary lipgloss.Color
	text      lipgloss.Color
	border    lipgloss.Color
}

var (
	lightPalette = palette{
		accent:    lipgloss.Color("#D9485F"),
		success:   lipgloss.Color("#2F855A"),
		secondary: lipgloss.Color("#6B7280"),
		text:      lipgloss.Color("#111827"),
		border:    lipgloss.Color("#D1D5DB"),
	}

	darkPalette = palette{
		accent:    lipgloss.Color("#FFB3BA"), // salmon pink
		success:   lipgloss.Color("#A8E6CF"), // mint green
		secondary: lipgloss.Color("#6B7280"),
		text:      lipgloss.Color("#F9FAFB"),
		border:    lipgloss.Color("#4B5563"),
	}
)

// styles are the lipgloss styles derived from a palette.
type styles struct {
	title       lipgloss.Style
	help        lipgloss.Style
	section     lipgloss.Style
	label       lipgloss.Style
	focused     lipgloss.Style
	description lipgloss.Style
	check       lipgloss.Style
	status      lipgloss.Style
	err         lipgloss.Style
	container   lipgloss.Style
}

func newStyles(p palette) styles {
	return styles{
		title:       lipgloss.NewStyle().Bold(true).Foreground(p.accent),
		help:        lipgloss.NewStyle().Foreground(p.secondary).Italic(true),
		section:     lipgloss.NewStyle().Bold(true).Foreground(p.success),
		label:       lipgloss.NewStyle().Foreground(p.secondary),
		focused:     lipgloss.NewStyle().Foreground(p.text).Bold(true),
		description: lipgloss.NewStyle().Foreground(p.secondary).Italic(true),
		check:       lipgloss.NewStyle().Foreground(p.success),
		status:      lipgloss.NewStyle().Foreground(p.success),
		err:         lipgloss.NewStyle().Foreground(p.accent).Bold(true),
		container: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(p.border).
			Padding(1, 2),
	}
}
