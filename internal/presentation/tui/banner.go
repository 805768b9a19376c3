package tui

import (
	"fmt"
	"io"
	"strings"

	"github.com/muesli/termenv"
)

// PrintBanner writes the startup banner with the build version.
func PrintBanner(w io.Writer, version string) {
	out := termenv.NewOutput(w)
	p := out.ColorProfile()
	// Teal to green, one shade per line.
	lines := []struct {
		text  string
		color string
	}{
		{"    __ _ _ __ __ _ _ __ ___   ___ _ __ _ __ ___", "#22d3ee"},
		{"   / _` | '__/ _` | '_ ` _ \\ / __| '__| '_ ` _ \\", "#2dd4bf"},
		{"  | (_| | | | (_| | | | | | | (__| |  | | | | | |", "#34d399"},
		{"   \\__,_|_|  \\__,_|_| |_| |_|\\___|_|  |_| |_| |_|", "#4ade80"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, out.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, out.String("   workflow builder "+strings.TrimSpace(version)).Faint())
	fmt.Fprintln(w)
}
