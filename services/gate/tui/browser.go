// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package tui provides an interactive issue browser for a finished run.
//
// # Thread Safety
//
// The model is used only from the bubbletea event loop.
package tui

import (
	"fmt"
	"os"
	"strings"

	"github.com/AleutianAI/cppgate/services/gate/lint"
	"github.com/AleutianAI/cppgate/services/gate/runner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// ProjectPath labels run-level issues such as the poll budget.
const ProjectPath = "project"

const (
	headerHeight = 2
	footerHeight = 2
)

// SourceLoader reads a file so issue lines can be quoted.
type SourceLoader func(path string) ([]byte, error)

// fileView is one page of the browser.
type fileView struct {
	path   string
	issues []lint.Issue

	// lines is nil when the file could not be read.
	lines []string
}

// Browser is the bubbletea model for paging through a report's issues.
type Browser struct {
	name  string
	files []fileView

	current int
	filter  string

	viewport viewport.Model
	input    textinput.Model

	width  int
	height int

	ready     bool
	filtering bool
	quitting  bool
}

// NewBrowser creates a browser over the files of rep that have issues.
// Run-level issues get a final page. load may be nil for os.ReadFile.
func NewBrowser(rep *runner.Report, load SourceLoader) Browser {
	if load == nil {
		load = os.ReadFile
	}

	var files []fileView
	for _, f := range rep.Files {
		if len(f.Issues) == 0 {
			continue
		}
		fv := fileView{path: f.Path, issues: f.Issues}
		if data, err := load(f.Path); err == nil {
			fv.lines = strings.Split(string(data), "\n")
		}
		files = append(files, fv)
	}
	if len(rep.RunIssues) > 0 {
		files = append(files, fileView{path: ProjectPath, issues: rep.RunIssues})
	}

	input := textinput.New()
	input.Prompt = "filter: "
	input.Placeholder = "rule or message text"

	return Browser{name: rep.Name, files: files, input: input}
}

// Init implements tea.Model.
func (m Browser) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		height := m.height - headerHeight - footerHeight
		if height < 1 {
			height = 1
		}
		if !m.ready {
			m.viewport = viewport.New(m.width, height)
			m.viewport.YPosition = headerHeight
			m.ready = true
		} else {
			m.viewport.Width = m.width
			m.viewport.Height = height
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		if m.filtering {
			return m.updateFilter(msg)
		}

		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "right", "l", "n":
			if m.current < len(m.files)-1 {
				m.current++
				m.refresh()
			}
			return m, nil
		case "left", "h", "p":
			if m.current > 0 {
				m.current--
				m.refresh()
			}
			return m, nil
		case "/":
			m.filtering = true
			m.input.SetValue(m.filter)
			return m, m.input.Focus()
		case "g", "home":
			m.viewport.GotoTop()
			return m, nil
		case "G", "end":
			m.viewport.GotoBottom()
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return m, cmd
}

func (m Browser) updateFilter(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "enter":
		m.filter = strings.TrimSpace(m.input.Value())
		m.filtering = false
		m.input.Blur()
		m.refresh()
		return m, nil
	case "esc", "ctrl+c":
		m.filtering = false
		m.input.Blur()
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// View implements tea.Model.
func (m Browser) View() string {
	if m.quitting {
		return ""
	}
	if len(m.files) == 0 {
		return "No issues.\n"
	}
	if !m.ready {
		return "Loading...\n"
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	if m.filtering {
		b.WriteString(m.input.View())
	} else {
		b.WriteString(m.renderFooter())
	}
	return b.String()
}

// Current returns the path on the current page.
func (m Browser) Current() string {
	if len(m.files) == 0 {
		return ""
	}
	return m.files[m.current].path
}

// Filter returns the active filter.
func (m Browser) Filter() string {
	return m.filter
}

// refresh renders the current page into the viewport.
func (m *Browser) refresh() {
	if !m.ready || len(m.files) == 0 {
		return
	}
	m.viewport.SetContent(m.renderPage(m.files[m.current]))
	m.viewport.GotoTop()
}

func (m Browser) visible(issue lint.Issue) bool {
	if m.filter == "" {
		return true
	}
	needle := strings.ToLower(m.filter)
	return strings.Contains(strings.ToLower(issue.Rule), needle) ||
		strings.Contains(strings.ToLower(issue.Message), needle)
}

func (m Browser) renderPage(fv fileView) string {
	var b strings.Builder
	shown := 0
	for _, issue := range fv.issues {
		if !m.visible(issue) {
			continue
		}
		shown++
		fmt.Fprintf(&b, "%s %s %s\n",
			locationStyle.Render(issue.Location()),
			ruleStyle.Render("["+issue.Rule+"]"),
			issue.Message)
		if issue.Line > 0 && issue.Line <= len(fv.lines) {
			b.WriteString(sourceStyle.Render(fmt.Sprintf("    %4d | %s", issue.Line, fv.lines[issue.Line-1])))
			b.WriteString("\n")
		}
	}
	if shown == 0 {
		b.WriteString(dimStyle.Render("no issues match the filter"))
		b.WriteString("\n")
	}
	return b.String()
}

func (m Browser) renderHeader() string {
	fv := m.files[m.current]
	title := titleStyle.Render("cppgate " + m.name)
	page := dimStyle.Render(fmt.Sprintf("%d/%d", m.current+1, len(m.files)))
	count := fmt.Sprintf("%d issue", len(fv.issues))
	if len(fv.issues) != 1 {
		count += "s"
	}
	header := fmt.Sprintf("%s  %s  %s  %s", title, page, pathStyle.Render(fv.path), dimStyle.Render(count))
	if m.filter != "" {
		header += dimStyle.Render("  filter: " + m.filter)
	}
	return header
}

func (m Browser) renderFooter() string {
	keys := []struct{ key, desc string }{
		{"←/→", "file"},
		{"↑/↓", "scroll"},
		{"/", "filter"},
		{"q", "quit"},
	}
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, helpKeyStyle.Render(k.key)+" "+helpDescStyle.Render(k.desc))
	}
	return strings.Join(parts, "  ")
}

// Styles
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("39"))

	pathStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))

	locationStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))

	ruleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("75"))

	sourceStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("241"))

	helpKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	helpDescStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("250"))
)
