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

import "strings"

// Comment is one // or /* */ comment found in C++ text.
type Comment struct {
	// Offset of the opening // or /*.
	Offset int

	// End is the offset just past the comment (the newline is not part
	// of a line comment).
	End int

	// Body is the text after the opening marker, without the closing */.
	Body string

	// Block is true for /* */ comments.
	Block bool
}

// ScanComments returns every comment in content, in order.
//
// Description:
//
//	Walks the text once, skipping string, character and raw-string
//	literals so that "http://x" or '/' never open a comment. A // that
//	directly follows a URL scheme ("https://") outside a literal is not a
//	comment either. C++14 digit separators (1'000) are not character
//	literals. Unterminated literals end at the newline; an unterminated
//	block comment runs to the end of the text.
//
// Inputs:
//
//	content - C++ source text
//
// Outputs:
//
//	[]Comment - Comments in offset order
func ScanComments(content string) []Comment {
	var out []Comment
	n := len(content)

	for i := 0; i < n; {
		c := content[i]
		switch {
		case c == '"':
			i = skipString(content, i)

		case c == '\'':
			if isDigitSeparator(content, i) {
				i++
				continue
			}
			i = skipQuoted(content, i, '\'')

		case c == '/' && i+1 < n && content[i+1] == '/':
			if precededByScheme(content, i) {
				i += 2
				continue
			}
			end := strings.IndexByte(content[i:], '\n')
			if end < 0 {
				end = n
			} else {
				end += i
			}
			out = append(out, Comment{
				Offset: i,
				End:    end,
				Body:   strings.TrimSuffix(content[i+2:end], "\r"),
			})
			i = end

		case c == '/' && i+1 < n && content[i+1] == '*':
			body, end := content[i+2:], n
			if closing := strings.Index(content[i+2:], "*/"); closing >= 0 {
				body = content[i+2 : i+2+closing]
				end = i + 2 + closing + 2
			}
			out = append(out, Comment{Offset: i, End: end, Body: body, Block: true})
			i = end

		default:
			i++
		}
	}
	return out
}

// StripComments blanks every comment byte except newlines, so offsets and
// line numbers in the result match content.
func StripComments(content string) string {
	comments := ScanComments(content)
	if len(comments) == 0 {
		return content
	}
	b := []byte(content)
	for _, cm := range comments {
		for i := cm.Offset; i < cm.End; i++ {
			if b[i] != '\n' {
				b[i] = ' '
			}
		}
	}
	return string(b)
}

// matchParen returns the offset of the ')' closing the '(' at open, or -1.
// Literals inside the parentheses are skipped.
func matchParen(text string, open int) int {
	depth := 0
	for i := open; i < len(text); {
		switch text[i] {
		case '(':
			depth++
			i++
		case ')':
			depth--
			if depth == 0 {
				return i
			}
			i++
		case '"':
			i = skipString(text, i)
		case '\'':
			if isDigitSeparator(text, i) {
				i++
				continue
			}
			i = skipQuoted(text, i, '\'')
		default:
			i++
		}
	}
	return -1
}

// =============================================================================
// Literal helpers
// =============================================================================

var rawPrefixes = map[string]bool{"R": true, "u8R": true, "uR": true, "UR": true, "LR": true}

// skipString returns the offset just past the string literal whose opening
// quote is at i.
func skipString(s string, i int) int {
	if rawPrefixes[identBefore(s, i)] {
		if end, ok := skipRawString(s, i); ok {
			return end
		}
	}
	return skipQuoted(s, i, '"')
}

// skipQuoted skips an escaped literal delimited by q. An unescaped newline
// terminates an unterminated literal.
func skipQuoted(s string, i int, q byte) int {
	for j := i + 1; j < len(s); j++ {
		switch s[j] {
		case '\\':
			j++
		case q:
			return j + 1
		case '\n':
			return j
		}
	}
	return len(s)
}

// skipRawString skips R"delim( ... )delim".
func skipRawString(s string, i int) (int, bool) {
	open := strings.IndexByte(s[i+1:], '(')
	if open < 0 || open > 16 {
		return 0, false
	}
	delim := s[i+1 : i+1+open]
	if strings.ContainsAny(delim, " \t\n\\)") {
		return 0, false
	}
	closing := ")" + delim + "\""
	body := i + 1 + open + 1
	end := strings.Index(s[body:], closing)
	if end < 0 {
		return len(s), true
	}
	return body + end + len(closing), true
}

// identBefore returns the identifier ending just before offset i.
func identBefore(s string, i int) string {
	k := i
	for k > 0 && isIdentByte(s[k-1]) {
		k--
	}
	return s[k:i]
}

// isDigitSeparator reports whether the quote at i sits inside a numeric
// literal such as 1'000'000 or 0xFF'FF.
func isDigitSeparator(s string, i int) bool {
	k := i
	for k > 0 && (isIdentByte(s[k-1]) || s[k-1] == '.' || s[k-1] == '\'') {
		k--
	}
	return k < i && s[k] >= '0' && s[k] <= '9'
}

// precededByScheme reports whether the // at i follows "scheme:".
func precededByScheme(s string, i int) bool {
	if i == 0 || s[i-1] != ':' {
		return false
	}
	k := i - 1
	for k > 0 && isSchemeByte(s[k-1]) {
		k--
	}
	if k == i-1 {
		return false
	}
	first := s[k]
	return (first >= 'a' && first <= 'z') || (first >= 'A' && first <= 'Z')
}

func isIdentByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isSchemeByte(c byte) bool {
	return isIdentByte(c) && c != '_' || c == '+' || c == '-' || c == '.'
}
