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
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const fooHeader = `#ifndef FOO_HPP
#define FOO_HPP

using std::string;

class Foo
{
	public:
		int value;
};

#endif
`

func newEngine(t *testing.T, opts Options) *Engine {
	t.Helper()
	e, err := NewEngine(opts)
	require.NoError(t, err)
	return e
}

func TestEngine_FooHeader(t *testing.T) {
	e := newEngine(t, Options{})
	result := e.Check(context.Background(), NewSourceFile("include/Foo.hpp", KindHeader, fooHeader))

	require.Len(t, result.Issues, 1)
	issue := result.Issues[0]
	assert.Equal(t, "include/Foo.hpp", issue.File)
	assert.Equal(t, 4, issue.Line)
	assert.Equal(t, RuleUsingInHeader, issue.Rule)
	assert.Equal(t, StyleViolation, issue.Category)
	assert.Equal(t, MsgUsingInHeader, issue.Message)
	assert.False(t, result.CallsPoll)
}

func TestEngine_ReturnShapes(t *testing.T) {
	e := newEngine(t, Options{})

	bad := e.Check(context.Background(), NewSourceFile("a.cpp", KindSource, "int f(int x)\n{\n\treturn(x);\n}\n"))
	require.Len(t, bad.Issues, 1)
	assert.Equal(t, RuleReturnFormat, bad.Issues[0].Rule)
	assert.Equal(t, 3, bad.Issues[0].Line)

	good := e.Check(context.Background(), NewSourceFile("a.cpp", KindSource, "int f(int x)\n{\n\treturn (x);\n}\n"))
	assert.Empty(t, good.Issues)
}

func TestEngine_KindSelection(t *testing.T) {
	e := newEngine(t, Options{})
	content := "using std::string;\nvoid f() { throw(1); }\n"

	header := e.Check(context.Background(), NewSourceFile("A.hpp", KindHeader, content))
	var headerRules []string
	for _, i := range header.Issues {
		headerRules = append(headerRules, i.Rule)
	}
	assert.Equal(t, []string{RuleIncludeGuard, RuleUsingInHeader}, headerRules)

	source := e.Check(context.Background(), NewSourceFile("a.cpp", KindSource, content))
	require.Len(t, source.Issues, 1)
	assert.Equal(t, RuleThrowFormat, source.Issues[0].Rule)
}

func TestEngine_OrderedByLineThenRule(t *testing.T) {
	e := newEngine(t, Options{})
	content := "// bad one\nint f()\n{\n\treturn 1; // bad two\n}\n"
	result := e.Check(context.Background(), NewSourceFile("a.cpp", KindSource, content))

	require.Len(t, result.Issues, 3)
	assert.Equal(t, 1, result.Issues[0].Line)
	assert.Equal(t, RuleCommentPrefix, result.Issues[0].Rule)
	assert.Equal(t, 4, result.Issues[1].Line)
	assert.Equal(t, RuleReturnFormat, result.Issues[1].Rule)
	assert.Equal(t, 4, result.Issues[2].Line)
	assert.Equal(t, RuleCommentPrefix, result.Issues[2].Rule)
}

func TestEngine_Idempotent(t *testing.T) {
	e := newEngine(t, Options{})
	file := NewSourceFile("include/Foo.hpp", KindHeader, fooHeader+"// free text\n")

	first := e.Check(context.Background(), file)
	second := e.Check(context.Background(), file)
	assert.Equal(t, first, second)
}

func TestEngine_Disabled(t *testing.T) {
	e := newEngine(t, Options{Disabled: []string{RuleUsingInHeader}})
	result := e.Check(context.Background(), NewSourceFile("include/Foo.hpp", KindHeader, fooHeader))
	assert.Empty(t, result.Issues)

	for _, r := range e.Rules() {
		assert.NotEqual(t, RuleUsingInHeader, r.ID)
	}
}

func TestEngine_PatternRules(t *testing.T) {
	e := newEngine(t, Options{Patterns: []PatternRule{{
		ID:      "no-printf",
		Pattern: `\bprintf\s*\(`,
		Message: "use std::cout",
		Kinds:   []FileKind{KindSource},
	}}})

	result := e.Check(context.Background(), NewSourceFile("a.cpp", KindSource, "void f()\n{\n\tprintf(\"x\");\n}\n"))
	require.Len(t, result.Issues, 1)
	assert.Equal(t, "no-printf", result.Issues[0].Rule)
	assert.Equal(t, 3, result.Issues[0].Line)
	assert.Equal(t, "use std::cout", result.Issues[0].Message)

	rules := e.Rules()
	assert.Equal(t, "no-printf", rules[len(rules)-1].ID)
}

func TestEngine_CallsPoll(t *testing.T) {
	e := newEngine(t, Options{})
	tests := []struct {
		name    string
		kind    FileKind
		content string
		want    bool
	}{
		{"assignment and bare call", KindSource, "void run()\n{\n\tconst int ret = poll(&fds[0], fds.size(), 1000);\n\tpoll(fds, 1, 0);\n}\n", true},
		{"condition only", KindSource, "void run()\n{\n\tif (poll(fds, 1, 0) < 0)\n\t\treturn;\n}\n", false},
		{"commented out", KindSource, "// NOTE: poll(x) here is commented out\n/*\npoll(fds, 1, 0);\n*/\n", false},
		{"header", KindHeader, "inline int wait()\n{\n\tpoll(fds, 1, 0);\n}\n", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := e.Check(context.Background(), NewSourceFile("a.cpp", tt.kind, tt.content))
			assert.Equal(t, tt.want, result.CallsPoll)
		})
	}
}

func TestEngine_CustomPollPattern(t *testing.T) {
	e := newEngine(t, Options{PollPattern: `^bpoll\(`})
	result := e.Check(context.Background(), NewSourceFile("a.cpp", KindSource, "bpoll(1);\npoll(2);\n"))
	assert.True(t, result.CallsPoll)

	result = e.Check(context.Background(), NewSourceFile("b.cpp", KindSource, "poll(2);\n"))
	assert.False(t, result.CallsPoll)
}

func TestNewEngine_Errors(t *testing.T) {
	_, err := NewEngine(Options{Disabled: []string{"no-such-rule"}})
	assert.ErrorIs(t, err, ErrUnknownRule)

	_, err = NewEngine(Options{Patterns: []PatternRule{{ID: RuleThrowFormat, Pattern: "x"}}})
	assert.ErrorIs(t, err, ErrDuplicateRule)

	_, err = NewEngine(Options{Patterns: []PatternRule{{ID: "x", Pattern: "("}}})
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = NewEngine(Options{PollPattern: "("})
	assert.ErrorIs(t, err, ErrInvalidRule)

	_, err = NewEngine(Options{Comments: CommentOptions{Prefixes: []string{"["}}})
	assert.ErrorIs(t, err, ErrInvalidRule)
}

func TestIssue_Location(t *testing.T) {
	assert.Equal(t, "line 12", Issue{Line: 12}.Location())
	assert.Equal(t, "file-level", Issue{}.Location())
	assert.Equal(t, "a.hpp: line 3: m", Issue{File: "a.hpp", Line: 3, Message: "m"}.String())
}

func TestSourceFile_LineAt(t *testing.T) {
	f := NewSourceFile("a", KindSource, "ab\ncd\n\nef")
	assert.Equal(t, 1, f.LineAt(0))
	assert.Equal(t, 1, f.LineAt(2))
	assert.Equal(t, 2, f.LineAt(3))
	assert.Equal(t, 3, f.LineAt(6))
	assert.Equal(t, 4, f.LineAt(7))
	assert.Equal(t, 4, f.LineCount())
}

func TestParseKindAndCategory(t *testing.T) {
	k, err := ParseKind("Header")
	require.NoError(t, err)
	assert.Equal(t, KindHeader, k)
	_, err = ParseKind("makefile")
	assert.Error(t, err)

	c, err := ParseCategory("")
	require.NoError(t, err)
	assert.Equal(t, StyleViolation, c)
	_, err = ParseCategory("fatal")
	assert.Error(t, err)

	assert.Equal(t, "parse", ParseFailure.String())
	assert.Equal(t, "source", KindSource.String())
}
