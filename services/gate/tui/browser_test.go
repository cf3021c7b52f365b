// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package tui

import (
	"errors"
	"testing"

	"github.com/AleutianAI/cppgate/services/gate/lint"
	"github.com/AleutianAI/cppgate/services/gate/runner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testReport() *runner.Report {
	return &runner.Report{
		Name: "check",
		Files: []runner.FileReport{
			{Path: "include/Foo.hpp", Issues: []lint.Issue{
				{File: "include/Foo.hpp", Line: 2, Rule: lint.RuleUsingInHeader, Message: lint.MsgUsingInHeader},
				{File: "include/Foo.hpp", Line: 3, Rule: "namespace", Message: "Foo is not inside any namespace"},
			}},
			{Path: "include/Clean.hpp"},
			{Path: "sources/main.cpp", Issues: []lint.Issue{
				{File: "sources/main.cpp", Rule: lint.RuleIncludeGuard, Message: "file-level problem"},
			}},
		},
		RunIssues: []lint.Issue{{Rule: runner.RulePollBudget, Message: "too many poll() calls detected (2 found, budget 1)"}},
	}
}

func fakeLoader(path string) ([]byte, error) {
	if path == "include/Foo.hpp" {
		return []byte("#ifndef FOO_HPP\nusing std::string;\nclass Foo {};\n"), nil
	}
	return nil, errors.New("not found")
}

func key(s string) tea.KeyMsg {
	switch s {
	case "right":
		return tea.KeyMsg{Type: tea.KeyRight}
	case "left":
		return tea.KeyMsg{Type: tea.KeyLeft}
	case "enter":
		return tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		return tea.KeyMsg{Type: tea.KeyEsc}
	}
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func send(t *testing.T, m Browser, msgs ...tea.Msg) Browser {
	t.Helper()
	var model tea.Model = m
	for _, msg := range msgs {
		model, _ = model.Update(msg)
	}
	b, ok := model.(Browser)
	require.True(t, ok)
	return b
}

func ready(t *testing.T) Browser {
	t.Helper()
	return send(t, NewBrowser(testReport(), fakeLoader), tea.WindowSizeMsg{Width: 100, Height: 20})
}

func TestBrowser_FirstPage(t *testing.T) {
	m := ready(t)
	view := m.View()

	assert.Equal(t, "include/Foo.hpp", m.Current())
	assert.Contains(t, view, "1/3")
	assert.Contains(t, view, "2 issues")
	assert.Contains(t, view, "line 2 ["+lint.RuleUsingInHeader+"]")
	assert.Contains(t, view, "2 | using std::string;")
	assert.Contains(t, view, "3 | class Foo {};")
}

func TestBrowser_Navigation(t *testing.T) {
	m := ready(t)

	m = send(t, m, key("right"))
	assert.Equal(t, "sources/main.cpp", m.Current(), "files without issues are skipped")
	assert.Contains(t, m.View(), "file-level ["+lint.RuleIncludeGuard+"]")

	m = send(t, m, key("l"), key("l"))
	assert.Equal(t, ProjectPath, m.Current())
	assert.Contains(t, m.View(), "too many poll() calls")

	m = send(t, m, key("left"), key("h"), key("h"))
	assert.Equal(t, "include/Foo.hpp", m.Current())
}

func TestBrowser_Filter(t *testing.T) {
	m := ready(t)

	m = send(t, m, key("/"))
	assert.Contains(t, m.View(), "filter: ")
	m = send(t, m, key("n"), key("a"), key("m"), key("e"), key("enter"))

	assert.Equal(t, "name", m.Filter())
	view := m.View()
	assert.Contains(t, view, "not inside any namespace")
	assert.NotContains(t, view, lint.MsgUsingInHeader)

	m = send(t, m, key("right"))
	assert.Contains(t, m.View(), "no issues match the filter")

	m = send(t, m, key("/"), key("x"), key("esc"))
	assert.Equal(t, "name", m.Filter(), "esc keeps the previous filter")
}

func TestBrowser_Quit(t *testing.T) {
	m := ready(t)
	model, cmd := m.Update(key("q"))
	require.NotNil(t, cmd)
	assert.IsType(t, tea.QuitMsg{}, cmd())
	assert.Empty(t, model.View())
}

func TestBrowser_NoIssues(t *testing.T) {
	m := NewBrowser(&runner.Report{Name: "check", Files: []runner.FileReport{{Path: "a.hpp"}}}, fakeLoader)
	assert.Equal(t, "No issues.\n", m.View())
	assert.Empty(t, m.Current())
}
