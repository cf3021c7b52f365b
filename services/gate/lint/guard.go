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
	"path/filepath"
	"regexp"
	"strings"
)

var (
	guardIfndef     = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*ifndef[ \t]+([A-Za-z_][A-Za-z0-9_]*)`)
	guardEndif      = regexp.MustCompile(`(?m)^[ \t]*#[ \t]*endif\b`)
	nonAlphanumeric = regexp.MustCompile(`[^A-Z0-9]+`)
)

// ExpectedGuard derives the include guard macro from a header's file name.
//
// The base name is uppercased, every run of non-alphanumeric characters
// becomes one underscore, and leading or trailing underscores are
// trimmed: "WebServer.hpp" gives "WEBSERVER_HPP", "http-status.h" gives
// "HTTP_STATUS_H".
func ExpectedGuard(filename string) string {
	name := strings.ToUpper(filepath.Base(filename))
	name = nonAlphanumeric.ReplaceAllString(name, "_")
	return strings.Trim(name, "_")
}

// GuardMissingMessage is reported when no #ifndef/#define/#endif triplet
// exists.
func GuardMissingMessage(expected string) string {
	return fmt.Sprintf("missing/mismatched include guard (expected %s)", expected)
}

// GuardMismatchMessage is reported when the triplet exists under another
// name.
func GuardMismatchMessage(actual, expected string) string {
	return fmt.Sprintf("guard name %s does not match expected %s", actual, expected)
}

// CheckIncludeGuard validates a header's guard.
//
// Description:
//
//	Finds the first #ifndef NAME, then requires a #define NAME and an
//	#endif after it. Without the full triplet a single file-level issue
//	is returned. With the triplet, a name other than ExpectedGuard yields
//	one issue at the #ifndef line naming both macros. Comments are
//	expected to be stripped from code already.
//
// Inputs:
//
//	file - The header; only the base name of its path is used
//	code - Header text with comments blanked
//
// Outputs:
//
//	[]Finding - Zero or one finding
func CheckIncludeGuard(file *SourceFile, code string) []Finding {
	expected := ExpectedGuard(file.Path)

	m := guardIfndef.FindStringSubmatchIndex(code)
	if m == nil {
		return []Finding{{Line: 0, Message: GuardMissingMessage(expected)}}
	}
	actual := code[m[2]:m[3]]
	rest := code[m[1]:]

	define := regexp.MustCompile(`(?m)^[ \t]*#[ \t]*define[ \t]+` + regexp.QuoteMeta(actual) + `\b`)
	defLoc := define.FindStringIndex(rest)
	if defLoc == nil || !guardEndif.MatchString(rest[defLoc[1]:]) {
		return []Finding{{Line: 0, Message: GuardMissingMessage(expected)}}
	}

	if actual != expected {
		return []Finding{{Line: file.LineAt(m[2]), Message: GuardMismatchMessage(actual, expected)}}
	}
	return nil
}

func checkIncludeGuard(t *Text) []Finding {
	return CheckIncludeGuard(t.File, t.Code)
}
