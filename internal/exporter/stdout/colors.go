// SPDX-FileCopyrightText: 2025 The Kepler Authors
// SPDX-License-Identifier: Apache-2.0

package stdout

import (
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
)

// ColorScheme holds the colors of the terminal report
type ColorScheme struct {
	Title     *color.Color
	Command   *color.Color
	Phase     *color.Color
	Label     *color.Color
	Success   *color.Color
	Failure   *color.Color
	Highlight *color.Color
}

// DefaultColorScheme returns the default color scheme
func DefaultColorScheme() *ColorScheme {
	return &ColorScheme{
		Title:     color.New(color.FgCyan, color.Bold),
		Command:   color.New(color.FgWhite, color.Bold),
		Phase:     color.New(color.FgMagenta, color.Bold),
		Label:     color.New(color.FgYellow),
		Success:   color.New(color.FgGreen),
		Failure:   color.New(color.FgRed, color.Bold),
		Highlight: color.New(color.FgBlue, color.Bold),
	}
}

// NoColorScheme returns a color scheme with all colors disabled
func NoColorScheme() *ColorScheme {
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.DisableColor()
	}
	return scheme
}

func (s *ColorScheme) all() []*color.Color {
	return []*color.Color{s.Title, s.Command, s.Phase, s.Label, s.Success, s.Failure, s.Highlight}
}

// IsTerminal reports whether f is attached to a terminal
func IsTerminal(f *os.File) bool {
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

// SchemeFor returns the color scheme to use for out
func SchemeFor(out *os.File, noColor bool) *ColorScheme {
	if noColor || out == nil || !IsTerminal(out) {
		return NoColorScheme()
	}
	scheme := DefaultColorScheme()
	for _, c := range scheme.all() {
		c.EnableColor()
	}
	return scheme
}
