package presenter

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"gopkg.in/yaml.v3"

	"threadscraper/pkg/thread"
)

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// Presenter renders a reconstruction result
type Presenter interface {
	Present(w io.Writer, res *thread.Result) error
}

// New returns the presenter for format
func New(format string) (Presenter, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return &TextPresenter{}, nil
	case FormatJSON:
		return &JSONPresenter{Indent: "  "}, nil
	case FormatYAML:
		return &YAMLPresenter{}, nil
	default:
		return nil, fmt.Errorf("unknown output format %q (expected text, json or yaml)", format)
	}
}

// JSONPresenter writes the result as a JSON document
type JSONPresenter struct {
	Indent string
}

// Present implements Presenter
func (p *JSONPresenter) Present(w io.Writer, res *thread.Result) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	if p.Indent != "" {
		enc.SetIndent("", p.Indent)
	}
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode result as JSON: %w", err)
	}
	return nil
}

// YAMLPresenter writes the result as a YAML document
type YAMLPresenter struct{}

// Present implements Presenter
func (p *YAMLPresenter) Present(w io.Writer, res *thread.Result) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(res); err != nil {
		return fmt.Errorf("failed to encode result as YAML: %w", err)
	}
	return enc.Close()
}

// TextPresenter renders threads for a terminal. Colours are used only when
// the writer supports them.
type TextPresenter struct {
	// ShowPruned lists every pruned branch instead of a count
	ShowPruned bool
}

// Present implements Presenter
func (p *TextPresenter) Present(w io.Writer, res *thread.Result) error {
	st := newStyles(lipgloss.NewRenderer(w))
	var b strings.Builder

	b.WriteString(st.title.Render(fmt.Sprintf("THREADS · %q", res.Query)))
	b.WriteString("\n\n")

	if len(res.Threads) == 0 {
		b.WriteString(st.warning.Render("No threads found."))
		b.WriteString("\n")
	}
	if res.Fallback && len(res.Threads) > 0 {
		b.WriteString(st.fallback.Render("No post carried the thread marker; showing the top search results instead."))
		b.WriteString("\n\n")
	}

	for i, th := range res.Threads {
		author := th.Author
		if author == "" {
			author = "unknown"
		}
		b.WriteString(st.header.Render(fmt.Sprintf("Thread %d · @%s", i+1, author)))
		b.WriteString("  ")
		b.WriteString(st.url.Render(th.URL))
		b.WriteString("\n")

		for j, text := range th.Texts {
			b.WriteString(st.index.Render(fmt.Sprintf("%d.", j+1)))
			b.WriteString(" ")
			b.WriteString(st.text.Render(indentContinuation(text)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	b.WriteString(stat(st, "Threads", fmt.Sprintf("%d", len(res.Threads))))
	b.WriteString(stat(st, "Posts", fmt.Sprintf("%d", res.TotalEntries())))
	b.WriteString(stat(st, "Visited", fmt.Sprintf("%d", res.Visited)))
	b.WriteString(stat(st, "Elapsed", res.Duration().Round(time.Millisecond).String()))

	if n := len(res.Pruned); n > 0 {
		b.WriteString(st.warning.Render(fmt.Sprintf("%d branch(es) pruned after fetch errors", n)))
		b.WriteString("\n")
		if p.ShowPruned {
			for _, ev := range res.Pruned {
				b.WriteString(st.dim.Render(fmt.Sprintf("  %s %s: %s", ev.Op, ev.PostID, ev.Cause)))
				b.WriteString("\n")
			}
		}
	}
	b.WriteString(st.dim.Render("run " + res.RunID))
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}

func stat(st styles, label, value string) string {
	return st.label.Render(label+":") + " " + st.value.Render(value) + "\n"
}

// indentContinuation aligns the continuation lines of a multi-line post
// under its first line
func indentContinuation(text string) string {
	return strings.ReplaceAll(strings.TrimRight(text, "\n"), "\n", "\n      ")
}
