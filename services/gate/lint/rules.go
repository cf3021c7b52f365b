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
	"regexp"
	"strings"
)

// =============================================================================
// RULE
// =============================================================================

// Text is what a rule sees: the file plus its comment-stripped text.
//
// Code has the same length and line structure as File.Content, so offsets
// found in either map to the same line.
type Text struct {
	File *SourceFile
	Code string
}

// CheckFunc evaluates a rule over one file. It must not panic on any
// input; no match yields no findings.
type CheckFunc func(t *Text) []Finding

// Rule is one named lexical check.
type Rule struct {
	// ID is stable and can be listed in rules.disabled.
	ID string

	// Summary is a one-line description for --help style listings.
	Summary string

	// Kinds the rule applies to. Empty means every kind.
	Kinds []FileKind

	Category Category

	Check CheckFunc
}

// AppliesTo reports whether the rule runs on files of kind k.
func (r Rule) AppliesTo(k FileKind) bool {
	if len(r.Kinds) == 0 {
		return true
	}
	for _, kind := range r.Kinds {
		if kind == k {
			return true
		}
	}
	return false
}

// =============================================================================
// PATTERN RULE
// =============================================================================

// PatternRule declares a rule as a regular expression. Every match yields
// one finding at the line where the match starts.
type PatternRule struct {
	ID      string
	Pattern string
	Message string
	Kinds   []FileKind

	Category Category

	// Raw matches against the unmodified text. By default comments are
	// blanked first, so commented-out code does not fire.
	Raw bool
}

// Compile turns the declaration into a Rule. The pattern is compiled in
// multi-line mode so ^ and $ anchor at line boundaries.
func (p PatternRule) Compile() (Rule, error) {
	if p.ID == "" {
		return Rule{}, fmt.Errorf("%w: pattern rule without id", ErrInvalidRule)
	}
	re, err := regexp.Compile("(?m)" + p.Pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %s: %v", ErrInvalidRule, p.ID, err)
	}
	message, raw := p.Message, p.Raw
	return Rule{
		ID:       p.ID,
		Summary:  message,
		Kinds:    p.Kinds,
		Category: p.Category,
		Check: func(t *Text) []Finding {
			text := t.Code
			if raw {
				text = t.File.Content
			}
			var out []Finding
			for _, loc := range re.FindAllStringIndex(text, -1) {
				out = append(out, Finding{Line: t.File.LineAt(loc[0]), Message: message})
			}
			return out
		},
	}, nil
}

// =============================================================================
// BUILT-IN RULES
// =============================================================================

// Built-in rule IDs.
const (
	RuleUsingInHeader   = "using-in-header"
	RuleUsingNamespace  = "using-namespace"
	RuleRelativeInclude = "relative-include"
	RuleReturnFormat    = "return-format"
	RuleThrowFormat     = "throw-format"
	RuleErrnoAfterIO    = "errno-after-io"
	RuleCommentPrefix   = "comment-prefix"
	RuleIncludeGuard    = "include-guard"
)

// Messages of the built-in rules.
const (
	MsgUsingInHeader   = "contains 'using' directive (forbidden in headers)"
	MsgUsingNamespace  = "contains 'using namespace' directive; please switch to explicit directive like 'using std::string' etc."
	MsgRelativeInclude = "please specify the path starting from the project source root"
	MsgReturnFormat    = "please wrap returned values in parenthesis, preceded by a space; for void use `return;`"
	MsgThrowFormat     = "thrown values must not be wrapped in parenthesis"
	MsgErrnoAfterIO    = "errno use with IO is forbidden"
)

var bothKinds = []FileKind{KindHeader, KindSource}

// builtinPatterns are the plain regex rules.
var builtinPatterns = []PatternRule{
	{
		ID:      RuleUsingInHeader,
		Pattern: `^[ \t]*using\s`,
		Message: MsgUsingInHeader,
		Kinds:   []FileKind{KindHeader},
	},
	{
		ID:      RuleUsingNamespace,
		Pattern: `^[ \t]*using\s+namespace\s`,
		Message: MsgUsingNamespace,
		Kinds:   []FileKind{KindSource},
	},
	{
		ID:      RuleRelativeInclude,
		Pattern: `^[ \t]*#[ \t]*include[ \t]*"[^"\n]*\.\.[^"\n]*"`,
		Message: MsgRelativeInclude,
		Kinds:   bothKinds,
	},
	{
		ID:      RuleThrowFormat,
		Pattern: `\bthrow\([^)]`,
		Message: MsgThrowFormat,
		Kinds:   []FileKind{KindSource},
	},
}

var (
	errnoPattern  = regexp.MustCompile(`\berrno\b`)
	ioCallPattern = regexp.MustCompile(`\b(read|write|recv|send)\s*\(`)
)

// errnoWindow is the size of the sliding window; errno is looked for on
// its third line.
const errnoWindow = 4

// checkErrnoAfterIO flags errno on the third line of a 4-line window that
// also calls read, write, recv or send.
func checkErrnoAfterIO(t *Text) []Finding {
	lines := strings.Split(t.Code, "\n")
	var out []Finding
	for i := 0; i+2 < len(lines); i++ {
		if !errnoPattern.MatchString(lines[i+2]) {
			continue
		}
		end := i + errnoWindow
		if end > len(lines) {
			end = len(lines)
		}
		if ioCallPattern.MatchString(strings.Join(lines[i:end], "\n")) {
			out = append(out, Finding{Line: i + 3, Message: MsgErrnoAfterIO})
		}
	}
	return out
}

// builtinRules compiles the built-in table in its fixed order.
func builtinRules(comments CommentOptions) ([]Rule, error) {
	classifier, err := NewCommentClassifier(comments)
	if err != nil {
		return nil, err
	}

	byID := make(map[string]Rule, len(builtinPatterns))
	for _, p := range builtinPatterns {
		r, err := p.Compile()
		if err != nil {
			return nil, err
		}
		byID[r.ID] = r
	}

	return []Rule{
		byID[RuleUsingInHeader],
		byID[RuleUsingNamespace],
		byID[RuleRelativeInclude],
		{
			ID:      RuleReturnFormat,
			Summary: "return must be `return;` or `return (expr);`",
			Kinds:   bothKinds,
			Check:   checkReturnFormat,
		},
		byID[RuleThrowFormat],
		{
			ID:      RuleErrnoAfterIO,
			Summary: "errno must not be read next to an IO call",
			Kinds:   bothKinds,
			Check:   checkErrnoAfterIO,
		},
		{
			ID:      RuleCommentPrefix,
			Summary: "comments must start with an allowed prefix",
			Kinds:   bothKinds,
			Check:   classifier.Check,
		},
		{
			ID:       RuleIncludeGuard,
			Summary:  "headers need an include guard named after the file",
			Kinds:    []FileKind{KindHeader},
			Category: StructuralViolation,
			Check:    checkIncludeGuard,
		},
	}, nil
}
