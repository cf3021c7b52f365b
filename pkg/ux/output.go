// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ux provides terminal output styling for the cppgate CLI.
package ux

import (
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"
)

// Aleutian color palette
var (
	ColorTealBright  = lipgloss.Color("#2CD7C7") // Bright teal - highlights, success
	ColorTealPrimary = lipgloss.Color("#20B9B4") // Primary teal - file paths
	ColorSlate       = lipgloss.Color("#2C4A54") // Slate - muted text

	ColorSuccess = lipgloss.Color("#2CD7C7")
	ColorWarning = lipgloss.Color("#F4D03F")
	ColorError   = lipgloss.Color("#E74C3C")
)

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconBullet  Icon = "•"
)

// Palette renders text with or without color.
//
// A disabled Palette returns its input unchanged, which is what CI logs
// and redirected output need. The zero value is disabled.
type Palette struct {
	enabled bool

	title   lipgloss.Style
	path    lipgloss.Style
	muted   lipgloss.Style
	success lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
}

// NewPalette returns a Palette with color on or off.
func NewPalette(enabled bool) Palette {
	return Palette{
		enabled: enabled,
		title:   lipgloss.NewStyle().Bold(true).Foreground(ColorTealBright),
		path:    lipgloss.NewStyle().Bold(true).Foreground(ColorTealPrimary),
		muted:   lipgloss.NewStyle().Foreground(ColorSlate),
		success: lipgloss.NewStyle().Foreground(ColorSuccess),
		warning: lipgloss.NewStyle().Foreground(ColorWarning),
		err:     lipgloss.NewStyle().Foreground(ColorError),
	}
}

// PaletteFor picks color for w: enabled only when w is a terminal, the
// caller did not pass noColor, and NO_COLOR is unset.
func PaletteFor(w io.Writer, noColor bool) Palette {
	if noColor || os.Getenv("NO_COLOR") != "" {
		return NewPalette(false)
	}
	return NewPalette(IsTerminal(w))
}

// IsTerminal reports whether w is an *os.File attached to a terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// Enabled reports whether the palette emits color.
func (p Palette) Enabled() bool { return p.enabled }

// Title styles a banner line.
func (p Palette) Title(s string) string { return p.render(p.title, s) }

// Path styles a file path header.
func (p Palette) Path(s string) string { return p.render(p.path, s) }

// Muted styles secondary text such as locations.
func (p Palette) Muted(s string) string { return p.render(p.muted, s) }

// Success styles a passing verdict.
func (p Palette) Success(s string) string { return p.render(p.success, s) }

// Warning styles an informational notice.
func (p Palette) Warning(s string) string { return p.render(p.warning, s) }

// Error styles a failing verdict.
func (p Palette) Error(s string) string { return p.render(p.err, s) }

// Icon renders i in its semantic color.
func (p Palette) Icon(i Icon) string {
	switch i {
	case IconSuccess:
		return p.Success(string(i))
	case IconWarning:
		return p.Warning(string(i))
	case IconError:
		return p.Error(string(i))
	default:
		return string(i)
	}
}

func (p Palette) render(style lipgloss.Style, s string) string {
	if !p.enabled {
		return s
	}
	return style.Render(s)
}
