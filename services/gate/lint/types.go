// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lint

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// =============================================================================
// FILE KIND
// =============================================================================

// FileKind distinguishes headers from sources; rules apply per kind.
type FileKind int

const (
	// KindHeader is a header file (.h, .hpp, ...).
	KindHeader FileKind = iota

	// KindSource is an implementation file (.cpp, .c).
	KindSource
)

// String returns "header", "source" or "unknown".
func (k FileKind) String() string {
	switch k {
	case KindHeader:
		return "header"
	case KindSource:
		return "source"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k FileKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ParseKind parses "header" or "source".
func ParseKind(s string) (FileKind, error) {
	switch strings.ToLower(s) {
	case "header":
		return KindHeader, nil
	case "source":
		return KindSource, nil
	default:
		return 0, fmt.Errorf("unknown file kind %q", s)
	}
}

// =============================================================================
// CATEGORY
// =============================================================================

// Category classifies an Issue.
type Category int

const (
	// StyleViolation is a lexical rule matching an unwanted pattern.
	StyleViolation Category = iota

	// StructuralViolation is a missing or mismatched include guard, a
	// declaration outside any namespace, or an incomplete set of special
	// member functions.
	StructuralViolation

	// ParseFailure is an AST front end error. It stops the AST pass for
	// that file only.
	ParseFailure
)

// String returns "style", "structural", "parse" or "unknown".
func (c Category) String() string {
	switch c {
	case StyleViolation:
		return "style"
	case StructuralViolation:
		return "structural"
	case ParseFailure:
		return "parse"
	default:
		return "unknown"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c Category) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (c *Category) UnmarshalText(text []byte) error {
	parsed, err := ParseCategory(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseCategory parses a category name. Empty means StyleViolation.
func ParseCategory(s string) (Category, error) {
	switch strings.ToLower(s) {
	case "", "style":
		return StyleViolation, nil
	case "structural":
		return StructuralViolation, nil
	case "parse":
		return ParseFailure, nil
	default:
		return 0, fmt.Errorf("unknown category %q", s)
	}
}

// =============================================================================
// ISSUE
// =============================================================================

// Issue is one rule violation.
//
// Thread Safety: Immutable after creation.
type Issue struct {
	// File is the path as collected.
	File string `json:"file"`

	// Line is 1-based; 0 means the issue applies to the whole file.
	Line int `json:"line"`

	// Rule is the ID of the rule that produced the issue.
	Rule string `json:"rule"`

	Category Category `json:"category"`

	Message string `json:"message"`
}

// Location returns "line N" or "file-level".
func (i Issue) Location() string {
	if i.Line <= 0 {
		return "file-level"
	}
	return "line " + strconv.Itoa(i.Line)
}

// String renders "PATH: line N: message".
func (i Issue) String() string {
	return i.File + ": " + i.Location() + ": " + i.Message
}

// SortIssues orders issues by line, keeping the relative order of issues
// on the same line. File-level issues come first.
func SortIssues(issues []Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		return issues[a].Line < issues[b].Line
	})
}

// =============================================================================
// SOURCE FILE
// =============================================================================

// SourceFile is a file's path, kind and text, loaded once per run.
//
// Thread Safety: Immutable after creation.
type SourceFile struct {
	Path    string
	Kind    FileKind
	Content string

	lineStarts []int
}

// NewSourceFile creates a SourceFile and indexes its line starts.
func NewSourceFile(path string, kind FileKind, content string) *SourceFile {
	starts := make([]int, 1, strings.Count(content, "\n")+1)
	for i := 0; i < len(content); i++ {
		if content[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &SourceFile{
		Path:       path,
		Kind:       kind,
		Content:    content,
		lineStarts: starts,
	}
}

// LineAt returns the 1-based line containing byte offset.
func (f *SourceFile) LineAt(offset int) int {
	return sort.Search(len(f.lineStarts), func(i int) bool {
		return f.lineStarts[i] > offset
	})
}

// LineCount returns the number of lines, counting a final unterminated one.
func (f *SourceFile) LineCount() int {
	return len(f.lineStarts)
}

// =============================================================================
// RESULT
// =============================================================================

// Finding is a rule hit before it is attributed to a file and rule.
type Finding struct {
	// Line is 1-based; 0 means file-level.
	Line    int
	Message string
}

// Result is the outcome of checking one file.
type Result struct {
	// Issues ordered by line, then by rule order.
	Issues []Issue

	// CallsPoll is true when a source file contains at least one poll
	// invocation. Headers never set it.
	CallsPoll bool
}
