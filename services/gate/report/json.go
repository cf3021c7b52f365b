// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"encoding/json"
	"io"

	"github.com/AleutianAI/cppgate/services/gate/lint"
	"github.com/AleutianAI/cppgate/services/gate/runner"
)

// Document is the machine-readable form of a run.
type Document struct {
	RunID      string         `json:"run_id"`
	Kind       string         `json:"kind"`
	Files      []FileDocument `json:"files"`
	RunIssues  []lint.Issue   `json:"run_issues"`
	PollCalls  int            `json:"poll_calls"`
	PollBudget int            `json:"poll_budget"`
	Checked    int            `json:"checked"`
	DurationMS int64          `json:"duration_ms"`
	Failed     bool           `json:"failed"`
}

// FileDocument lists one file's issues.
type FileDocument struct {
	Path   string        `json:"path"`
	Kind   lint.FileKind `json:"kind"`
	Issues []lint.Issue  `json:"issues"`
}

// NewDocument converts a report. Files without issues are included so
// consumers can tell "checked and clean" from "not checked".
func NewDocument(r *runner.Report) Document {
	doc := Document{
		RunID:      r.RunID,
		Kind:       r.Name,
		Files:      make([]FileDocument, 0, len(r.Files)),
		RunIssues:  r.RunIssues,
		PollCalls:  r.PollCalls,
		PollBudget: r.PollBudget,
		Checked:    r.Checked,
		DurationMS: r.Duration.Milliseconds(),
		Failed:     r.Failed(),
	}
	if doc.RunIssues == nil {
		doc.RunIssues = []lint.Issue{}
	}
	for _, f := range r.Files {
		issues := f.Issues
		if issues == nil {
			issues = []lint.Issue{}
		}
		doc.Files = append(doc.Files, FileDocument{Path: f.Path, Kind: f.Kind, Issues: issues})
	}
	return doc
}

// WriteJSON writes the report as indented JSON.
func WriteJSON(w io.Writer, r *runner.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewDocument(r))
}
