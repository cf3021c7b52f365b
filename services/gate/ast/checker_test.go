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
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/cppgate/services/gate/lint"
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

func check(t *testing.T, path, content string, opts ...TUParserOption) []lint.Issue {
	t.Helper()
	c := NewChecker(newParser(t, opts...), nil)
	return c.Check(context.Background(), lint.NewSourceFile(path, lint.KindHeader, content))
}

func messages(issues []lint.Issue) []string {
	out := make([]string, 0, len(issues))
	for _, i := range issues {
		out = append(out, i.Message)
	}
	return out
}

func TestChecker_FooHeader(t *testing.T) {
	issues := check(t, "include/Foo.hpp", fooHeader)

	require.Len(t, issues, 2)
	assert.Equal(t, RuleNamespaceScope, issues[0].Rule)
	assert.Equal(t, "Foo is not inside any namespace", issues[0].Message)
	assert.Equal(t, 6, issues[0].Line)
	assert.Equal(t, lint.StructuralViolation, issues[0].Category)

	assert.Equal(t, RuleSpecialMembers, issues[1].Rule)
	assert.Equal(t, "class Foo is missing special members: constructor, destructor, copy constructor, copy assignment", issues[1].Message)
	assert.Equal(t, 6, issues[1].Line)
}

func TestChecker_FooHeaderWithLexicalPass(t *testing.T) {
	engine, err := lint.NewEngine(lint.Options{})
	require.NoError(t, err)
	file := lint.NewSourceFile("include/Foo.hpp", lint.KindHeader, fooHeader)

	issues := engine.Check(context.Background(), file).Issues
	issues = append(issues, NewChecker(newParser(t), nil).Check(context.Background(), file)...)

	require.Len(t, issues, 3)
	assert.Equal(t, lint.RuleUsingInHeader, issues[0].Rule)
	assert.Equal(t, RuleNamespaceScope, issues[1].Rule)
	assert.Equal(t, RuleSpecialMembers, issues[2].Rule)
}

func TestChecker_AllSpecialMembersDeclared(t *testing.T) {
	content := `namespace app
{
	class Foo
	{
		public:
			Foo();
			Foo(const Foo& other);
			~Foo();
			Foo& operator=(const Foo& other);
	};
}
`
	assert.Empty(t, check(t, "Foo.hpp", content))
}

func TestChecker_SpecialMembersIndividually(t *testing.T) {
	tests := []struct {
		name    string
		decl    string
		missing string
	}{
		{"constructor", "Foo(int x);", "destructor, copy constructor, copy assignment"},
		{"destructor", "~Foo();", "constructor, copy constructor, copy assignment"},
		{"copy constructor", "Foo(const Foo& other);", "destructor, copy assignment"},
		{"copy assignment by value", "Foo& operator=(Foo other);", "constructor, destructor, copy constructor"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			content := "namespace app\n{\n\tclass Foo\n\t{\n\t\tpublic:\n\t\t\t" + tt.decl + "\n\t};\n}\n"
			issues := check(t, "Foo.hpp", content)
			require.Len(t, issues, 1)
			assert.Equal(t, "class app::Foo is missing special members: "+tt.missing, issues[0].Message)
		})
	}
}

func TestChecker_CopyConstructorQualifiedParam(t *testing.T) {
	content := `namespace outer
{
	namespace inner
	{
		class Foo
		{
			public:
				Foo(const outer::inner::Foo& other);
				~Foo();
				Foo& operator=(const Foo&) = delete;
		};
	}
}
`
	assert.Empty(t, check(t, "Foo.hpp", content))
}

func TestChecker_NamespaceNamedInline(t *testing.T) {
	content := `namespace inlineHelpers
{
	class Foo
	{
		public:
			Foo();
			Foo(const inlineHelpers::Foo& other);
			~Foo();
			Foo& operator=(const Foo& other);
	};
}
`
	assert.Empty(t, check(t, "Foo.hpp", content))

	issues := check(t, "Foo.hpp", "namespace inlineHelpers\n{\n\tclass Foo\n\t{\n\t};\n}\n")
	require.Len(t, issues, 1)
	assert.True(t, strings.HasPrefix(issues[0].Message, "class inlineHelpers::Foo is missing"))
}

func TestChecker_DefaultedSpecialMembers(t *testing.T) {
	content := `namespace app
{
	class Foo
	{
		public:
			Foo() = default;
			Foo(const Foo& other) = default;
			~Foo() = default;
			Foo& operator=(const Foo& other) = default;
	};
}
`
	assert.Empty(t, check(t, "Foo.hpp", content))
}

func TestChecker_MoveConstructorIsNotCopy(t *testing.T) {
	content := "namespace app\n{\n\tclass Foo\n\t{\n\t\tpublic:\n\t\t\tFoo(Foo&& other);\n\t\t\t~Foo();\n\t\t\tFoo& operator=(const Foo& other);\n\t};\n}\n"
	issues := check(t, "Foo.hpp", content)
	require.Len(t, issues, 1)
	assert.Equal(t, "class app::Foo is missing special members: copy constructor", issues[0].Message)
}

func TestChecker_NamespaceScope(t *testing.T) {
	content := `int counter;
void helper();
int main()
{
	return (0);
}
namespace app
{
	int inside;
	void run();
}
namespace
{
	int hidden;
}
void Foo::method()
{
}
`
	issues := check(t, "main.cpp", content)
	assert.Equal(t, []string{
		"counter is not inside any namespace",
		"helper is not inside any namespace",
	}, messages(issues))
	assert.Equal(t, 1, issues[0].Line)
	assert.Equal(t, 2, issues[1].Line)
}

func TestChecker_SiblingScopesDoNotLeak(t *testing.T) {
	content := "namespace a\n{\n\tint x;\n}\nint y;\n"
	issues := check(t, "a.cpp", content)
	require.Len(t, issues, 1)
	assert.Equal(t, "y is not inside any namespace", issues[0].Message)
	assert.Equal(t, 5, issues[0].Line)
}

func TestChecker_IncludedDeclarationsFiltered(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "include", "Bar.hpp"), "class Bar\n{\n};\nint bar_global;\n")
	content := "#include \"Bar.hpp\"\n\nnamespace app\n{\n\tint x;\n}\n"

	issues := check(t, filepath.Join(root, "sources", "main.cpp"), content, WithSearchPaths(filepath.Join(root, "include")))
	assert.Empty(t, issues)
}

func TestChecker_ParseFailureShortCircuits(t *testing.T) {
	issues := check(t, filepath.Join(t.TempDir(), "a.cpp"), "#include \"Missing.hpp\"\nint global;\n")

	require.Len(t, issues, 1)
	assert.Equal(t, RuleASTParse, issues[0].Rule)
	assert.Equal(t, lint.ParseFailure, issues[0].Category)
	assert.True(t, strings.HasPrefix(issues[0].Message, MsgParseFailed))
	assert.Contains(t, issues[0].Message, "Missing.hpp")
	assert.Equal(t, "file-level", issues[0].Location())
}

func TestChecker_TooLarge(t *testing.T) {
	issues := check(t, "a.cpp", "int x;\n", WithMaxFileSize(2))
	require.Len(t, issues, 1)
	assert.Equal(t, RuleASTParse, issues[0].Rule)
}

func TestChecker_NestedClass(t *testing.T) {
	content := `namespace app
{
	class Outer
	{
		public:
			Outer();
			Outer(const Outer& other);
			~Outer();
			Outer& operator=(const Outer& other);

			struct Inner
			{
				int value;
			};
	};
}
`
	issues := check(t, "Outer.hpp", content)
	require.Len(t, issues, 1)
	assert.Equal(t, "class app::Outer::Inner is missing special members: constructor, destructor, copy constructor, copy assignment", issues[0].Message)
	assert.Equal(t, 11, issues[0].Line)
}

func TestChecker_Idempotent(t *testing.T) {
	c := NewChecker(newParser(t), nil)
	file := lint.NewSourceFile("include/Foo.hpp", lint.KindHeader, fooHeader)
	assert.Equal(t, c.Check(context.Background(), file), c.Check(context.Background(), file))
}

func TestScope_PushDoesNotShare(t *testing.T) {
	base := Scope{}.Push("a")
	left := base.Push("b")
	right := base.Push("c")

	assert.Equal(t, "a::b", left.String())
	assert.Equal(t, "a::c", right.String())
	assert.Equal(t, 1, base.Depth())
	assert.True(t, Scope{}.Empty())
	assert.Equal(t, "a::Foo", base.Push("").Qualify("Foo"))
	assert.Equal(t, "a::(anonymous)", base.Push("").String())
}

func TestIsCopyParam(t *testing.T) {
	tests := []struct {
		name  string
		param Param
		want  bool
	}{
		{"bare", Param{Type: "Foo", Const: true, LValueRef: true}, true},
		{"qualified", Param{Type: "ns::Foo", Const: true, LValueRef: true}, true},
		{"global qualified", Param{Type: "::ns::Foo", Const: true, LValueRef: true}, true},
		{"template", Param{Type: "Foo<T>", Const: true, LValueRef: true}, true},
		{"not const", Param{Type: "Foo", LValueRef: true}, false},
		{"by value", Param{Type: "Foo", Const: true}, false},
		{"other type", Param{Type: "Bar", Const: true, LValueRef: true}, false},
		{"suffix only", Param{Type: "oo", Const: true, LValueRef: true}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isCopyParam(tt.param, "ns::Foo", "Foo"))
		})
	}
}
