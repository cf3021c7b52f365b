// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"time"

	"github.com/AleutianAI/cppgate/services/gate/lint"
)

// FileReport holds everything found in one file.
type FileReport struct {
	Path      string
	Kind      lint.FileKind
	Issues    []lint.Issue
	CallsPoll bool
}

// Report accumulates one run.
type Report struct {
	RunID string
	Name  string

	// Files lists every checked file in check order, with or without
	// issues.
	Files []FileReport

	// RunIssues are not tied to a file (the poll budget).
	RunIssues []lint.Issue

	// PollCalls is the number of source files that call poll.
	PollCalls  int
	PollBudget int
	Checked    int

	Started  time.Time
	Duration time.Duration
}

func (r *Report) add(fr FileReport) {
	r.Files = append(r.Files, fr)
	if fr.CallsPoll {
		r.PollCalls++
	}
	r.Checked++
}

// Failed reports whether any issue was found.
func (r *Report) Failed() bool {
	return r.IssueCount() > 0
}

// IssueCount returns the total number of issues.
func (r *Report) IssueCount() int {
	n := len(r.RunIssues)
	for _, f := range r.Files {
		n += len(f.Issues)
	}
	return n
}

// Issues returns all file issues in check order, then run issues.
func (r *Report) Issues() []lint.Issue {
	out := make([]lint.Issue, 0, r.IssueCount())
	for _, f := range r.Files {
		out = append(out, f.Issues...)
	}
	return append(out, r.RunIssues...)
}

// CountByCategory tallies issues per category.
func (r *Report) CountByCategory() map[lint.Category]int {
	counts := make(map[lint.Category]int)
	for _, issue := range r.Issues() {
		counts[issue.Category]++
	}
	return counts
}
