package presenter

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
)

// Banner is the title printed by interactive commands
const Banner = "threadscraper · X thread reconstruction"

// Console prints status messages with the presenter's palette
type Console struct {
	w  io.Writer
	st styles
}

// NewConsole creates a Console writing to w
func NewConsole(w io.Writer) *Console {
	return &Console{w: w, st: newStyles(lipgloss.NewRenderer(w))}
}

// Logo prints the banner in a rounded box
func (c *Console) Logo() {
	box := c.st.header.
		Border(lipgloss.RoundedBorder()).
		BorderForeground(neonMagenta).
		Padding(0, 2)
	fmt.Fprintln(c.w, box.Render(Banner))
}

// Error prints an error message, followed by err if given
func (c *Console) Error(msg string, err error) {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	fmt.Fprintln(c.w, c.st.error.Render(msg))
}

// Success prints a success message
func (c *Console) Success(msg string) {
	fmt.Fprintln(c.w, c.st.success.Render(msg))
}

// Warning prints a warning message
func (c *Console) Warning(msg string) {
	fmt.Fprintln(c.w, c.st.warning.Render(msg))
}

// Info prints a label/value pair
func (c *Console) Info(label, value string) {
	fmt.Fprintf(c.w, "%s %s\n", c.st.label.Render(label+":"), c.st.value.Render(value))
}

// Dim prints secondary text
func (c *Console) Dim(msg string) {
	fmt.Fprintln(c.w, c.st.dim.Render(msg))
}
