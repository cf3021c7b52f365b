// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"fmt"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"
)

// =============================================================================
// SEVERITY
// =============================================================================

// Severity ranks diagnostics: Ignored < Note < Warning < Error < Fatal.
type Severity int

const (
	SeverityIgnored Severity = iota
	SeverityNote
	SeverityWarning
	SeverityError
	SeverityFatal
)

// String returns the lowercase severity name.
func (s Severity) String() string {
	switch s {
	case SeverityIgnored:
		return "ignored"
	case SeverityNote:
		return "note"
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	case SeverityFatal:
		return "fatal"
	default:
		return "unknown"
	}
}

// =============================================================================
// DIAGNOSTIC
// =============================================================================

// Diagnostic is one message from building a translation unit.
//
// Thread Safety: Immutable after creation.
type Diagnostic struct {
	Severity Severity

	// File is the file the diagnostic points into, which may be a header
	// pulled in by the file under test.
	File string

	// Line is 1-indexed; Column is 0-indexed.
	Line   int
	Column int

	Message string
}

// String renders "file:line:col: severity: message".
func (d Diagnostic) String() string {
	return fmt.Sprintf("%s:%d:%d: %s: %s", d.File, d.Line, d.Column, d.Severity, d.Message)
}

// IsError reports whether the diagnostic is Error or Fatal.
func (d Diagnostic) IsError() bool {
	return d.Severity >= SeverityError
}

// maxSyntaxDiagnostics caps diagnostics per file on heavily malformed input.
const maxSyntaxDiagnostics = 50

// maxTreeDepth prevents stack overflow on deeply nested trees.
const maxTreeDepth = 1000

// collectSyntaxErrors turns ERROR and MISSING nodes into Error diagnostics.
func collectSyntaxErrors(root *sitter.Node, file string, content []byte) []Diagnostic {
	var out []Diagnostic
	collectSyntaxErrorsRecursive(root, file, content, &out, 0)
	return out
}

func collectSyntaxErrorsRecursive(node *sitter.Node, file string, content []byte, out *[]Diagnostic, depth int) {
	if node == nil || depth > maxTreeDepth || len(*out) >= maxSyntaxDiagnostics {
		return
	}

	if node.IsError() || node.IsMissing() {
		point := node.StartPoint()
		msg := "syntax error"
		if node.IsMissing() {
			msg = fmt.Sprintf("expected '%s'", node.Type())
		} else if snippet := snippetOf(node, content); snippet != "" {
			msg = fmt.Sprintf("syntax error near '%s'", snippet)
		}
		*out = append(*out, Diagnostic{
			Severity: SeverityError,
			File:     file,
			Line:     int(point.Row) + 1,
			Column:   int(point.Column),
			Message:  msg,
		})
	}

	if !node.HasError() {
		return
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		collectSyntaxErrorsRecursive(node.Child(i), file, content, out, depth+1)
	}
}

// snippetOf returns the first line of the node's text, truncated.
func snippetOf(node *sitter.Node, content []byte) string {
	start, end := node.StartByte(), node.EndByte()
	if end > uint32(len(content)) {
		end = uint32(len(content))
	}
	if start >= end {
		return ""
	}
	s := string(content[start:end])
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimSpace(s)
	if len(s) > 40 {
		s = s[:40] + "..."
	}
	return s
}
