package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the mcpbench banner to w.
func PrintBanner(w io.Writer) {
	p := termenv.ColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"                      _                     _     ", "#818cf8"},
		{"  _ __ ___   ___ _ __ | |__   ___ _ __   ___| |__  ", "#a78bfa"},
		{" | '_ ` _ \\ / __| '_ \\| '_ \\ / _ \\ '_ \\ / __| '_ \\ ", "#c084fc"},
		{" | | | | | | (__| |_) | |_) |  __/ | | | (__| | | |", "#e879f9"},
		{" |_| |_| |_|\\___| .__/|_.__/ \\___|_| |_|\\___|_| |_|", "#f472b6"},
		{"                |_|                                ", "#fb7185"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w)
}
