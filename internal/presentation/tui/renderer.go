package tui

import (
	"fmt"
	"io"
	"os"

	"github.com/aretw0/mcpbench/pkg/bench"
	"github.com/charmbracelet/glamour"
	"golang.org/x/term"
)

// Report formats accepted by WriteReport.
const (
	FormatAuto     = "auto"
	FormatText     = "text"
	FormatMarkdown = "markdown"
)

// NewRenderer returns a function that renders markdown using glamour.
func NewRenderer() func(string) (string, error) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(), // Automatically detect light/dark background
		glamour.WithWordWrap(120),
	)

	return func(markdown string) (string, error) {
		if err != nil {
			return "", err
		}
		return r.Render(markdown)
	}
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// WriteReport prints r to w. FormatAuto renders styled markdown on a terminal and
// plain text otherwise.
func WriteReport(w io.Writer, r *bench.Report, format string) error {
	switch format {
	case FormatText:
		return r.WriteText(w)
	case FormatMarkdown:
		_, err := io.WriteString(w, r.Markdown())
		return err
	case FormatAuto, "":
		if !IsTerminal(w) {
			return r.WriteText(w)
		}
		out, err := NewRenderer()(r.Markdown())
		if err != nil {
			return r.WriteText(w)
		}
		_, err = io.WriteString(w, out)
		return err
	default:
		return fmt.Errorf("unknown report format %q", format)
	}
}
