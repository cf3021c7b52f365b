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
	"regexp"
	"strings"
)

var returnKeyword = regexp.MustCompile(`(?m)^[ \t]*return\b`)

// checkReturnFormat flags every line-leading return that is not exactly
// `return;` or `return (<expr>);`.
func checkReturnFormat(t *Text) []Finding {
	var out []Finding
	for _, loc := range returnKeyword.FindAllStringIndex(t.Code, -1) {
		if !wellFormedReturn(t.Code, loc[1]) {
			out = append(out, Finding{Line: t.File.LineAt(loc[1] - len("return")), Message: MsgReturnFormat})
		}
	}
	return out
}

// wellFormedReturn checks the statement that follows the keyword ending
// at offset after.
//
// The value form needs exactly one space, an opening parenthesis, and the
// matching close parenthesis directly followed by ';'. The expression may
// span lines, and parentheses inside literals do not count, so
// `return (a) + (b);` is rejected while `return (f(")"));` is accepted.
func wellFormedReturn(code string, after int) bool {
	rest := code[after:]
	if strings.HasPrefix(rest, ";") {
		return true
	}
	if !strings.HasPrefix(rest, " (") {
		return false
	}
	closing := matchParen(code, after+1)
	if closing < 0 {
		return false
	}
	return closing+1 < len(code) && code[closing+1] == ';'
}
