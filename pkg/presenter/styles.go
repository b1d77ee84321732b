package presenter

import "github.com/charmbracelet/lipgloss"

var (
	neonCyan    = lipgloss.Color("#00FFFF")
	neonMagenta = lipgloss.Color("#FF00FF")
	neonGreen   = lipgloss.Color("#39FF14")
	neonYellow  = lipgloss.Color("#FFFF00")
	neonOrange  = lipgloss.Color("#FF6700")
	alertRed    = lipgloss.Color("#FF0000")
	darkBg      = lipgloss.Color("#0A0E27")
	dimWhite    = lipgloss.Color("#B0B0B0")
)

// styles are bound to a renderer so colour output follows the capabilities
// of the destination writer
type styles struct {
	title    lipgloss.Style
	header   lipgloss.Style
	url      lipgloss.Style
	index    lipgloss.Style
	text     lipgloss.Style
	label    lipgloss.Style
	value    lipgloss.Style
	success  lipgloss.Style
	warning  lipgloss.Style
	error    lipgloss.Style
	dim      lipgloss.Style
	fallback lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		title: r.NewStyle().
			Background(neonMagenta).
			Foreground(darkBg).
			Bold(true).
			Padding(0, 1),
		header: r.NewStyle().
			Foreground(neonCyan).
			Bold(true),
		url: r.NewStyle().
			Foreground(dimWhite).
			Underline(true),
		index: r.NewStyle().
			Foreground(neonMagenta).
			Width(5).
			Align(lipgloss.Right),
		text: r.NewStyle(),
		label: r.NewStyle().
			Foreground(neonCyan).
			Bold(true),
		value: r.NewStyle().
			Foreground(neonYellow),
		success: r.NewStyle().
			Foreground(neonGreen).
			Bold(true),
		warning: r.NewStyle().
			Foreground(neonOrange).
			Bold(true),
		error: r.NewStyle().
			Foreground(alertRed).
			Bold(true),
		dim: r.NewStyle().
			Foreground(dimWhite).
			Faint(true),
		fallback: r.NewStyle().
			Foreground(neonOrange),
	}
}
