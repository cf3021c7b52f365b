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
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newParser(t *testing.T, opts ...TUParserOption) *TUParser {
	t.Helper()
	p := NewTUParser(opts...)
	t.Cleanup(p.Close)
	return p
}

func parse(t *testing.T, p *TUParser, path, content string) *TranslationUnit {
	t.Helper()
	tu, err := p.Parse(context.Background(), path, []byte(content))
	require.NoError(t, err)
	require.NotNil(t, tu)
	return tu
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func byKind(c *Cursor, kind CursorKind) *Cursor {
	return c.Find(func(x *Cursor) bool { return x.Kind == kind })
}

func TestTUParser_ClassMembers(t *testing.T) {
	p := newParser(t)
	tu := parse(t, p, "Widget.hpp", `namespace ui
{
	class Widget
	{
		public:
			Widget();
			Widget(const Widget& other);
			~Widget();
			Widget& operator=(const Widget& other);
			int size() const;
		private:
			int size_;
	};
}
`)
	assert.False(t, tu.HasErrors())

	ns := byKind(tu.Root, KindNamespace)
	require.NotNil(t, ns)
	assert.Equal(t, "ui", ns.Spelling)

	class := byKind(ns, KindClass)
	require.NotNil(t, class)
	assert.Equal(t, "Widget", class.Spelling)
	assert.True(t, class.Definition)
	assert.Equal(t, 3, class.Line)

	var kinds []CursorKind
	for _, m := range class.Children {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []CursorKind{
		KindConstructor, KindConstructor, KindDestructor, KindMethod, KindMethod, KindField,
	}, kinds)

	copyCtor := class.Children[1]
	require.Len(t, copyCtor.Params, 1)
	assert.Equal(t, "Widget", copyCtor.Params[0].Type)
	assert.True(t, copyCtor.Params[0].Const)
	assert.True(t, copyCtor.Params[0].LValueRef)

	assert.Equal(t, "~Widget", class.Children[2].Spelling)
	assert.Equal(t, "operator=", class.Children[3].Spelling)
}

func TestTUParser_NestedNamespaces(t *testing.T) {
	p := newParser(t)
	tu := parse(t, p, "a.cpp", "namespace a::b\n{\n\tint x;\n}\nnamespace\n{\n\tint y;\n}\n")

	require.Len(t, tu.Root.Children, 2)
	outer := tu.Root.Children[0]
	assert.Equal(t, "a", outer.Spelling)
	require.Len(t, outer.Children, 1)
	assert.Equal(t, "b", outer.Children[0].Spelling)

	anon := tu.Root.Children[1]
	assert.Equal(t, KindNamespace, anon.Kind)
	assert.Equal(t, "", anon.Spelling)
}

func TestNamespaceNames(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"app", []string{"app"}},
		{"a::b", []string{"a", "b"}},
		{"a :: inline b", []string{"a", "b"}},
		{"inlineHelpers", []string{"inlineHelpers"}},
		{"a::inlined", []string{"a", "inlined"}},
		{"", []string{""}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, namespaceNames(tt.in))
		})
	}
}

func TestTUParser_NamespaceStartingWithInline(t *testing.T) {
	p := newParser(t)
	tu := parse(t, p, "a.cpp", "namespace inlineHelpers\n{\n\tint x;\n}\n")

	require.Len(t, tu.Root.Children, 1)
	assert.Equal(t, "inlineHelpers", tu.Root.Children[0].Spelling)
}

func TestTUParser_QualifiedDefinitions(t *testing.T) {
	p := newParser(t)
	tu := parse(t, p, "Foo.cpp", "Foo::Foo()\n{\n}\n\nint Foo::size() const\n{\n\treturn (0);\n}\n")

	require.Len(t, tu.Root.Children, 2)
	assert.Equal(t, KindConstructor, tu.Root.Children[0].Kind)
	assert.True(t, tu.Root.Children[0].Qualified)
	assert.Equal(t, KindFunction, tu.Root.Children[1].Kind)
	assert.True(t, tu.Root.Children[1].Qualified)
}

func TestTUParser_SyntaxErrors(t *testing.T) {
	p := newParser(t)
	tu := parse(t, p, "bad.cpp", "namespace x {\nint f( {\n")

	assert.True(t, tu.HasErrors())
	d, ok := tu.FirstError()
	require.True(t, ok)
	assert.Equal(t, SeverityError, d.Severity)
	assert.Equal(t, "bad.cpp", d.File)
}

func TestTUParser_IncludeResolution(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "include", "Bar.hpp"), "#ifndef BAR_HPP\n#define BAR_HPP\nclass Bar\n{\n};\n#endif\n")
	writeFile(t, filepath.Join(root, "include", "Bar2.hpp"), "#include \"Bar.hpp\"\n")
	main := filepath.Join(root, "sources", "main.cpp")
	content := "#include \"Bar.hpp\"\n#include \"Bar2.hpp\"\n#include <vector>\n\nint main()\n{\n\treturn (0);\n}\n"

	p := newParser(t, WithSearchPaths(filepath.Join(root, "include")))
	tu := parse(t, p, main, content)

	assert.False(t, tu.HasErrors())
	require.Len(t, tu.Includes, 2)
	assert.Equal(t, filepath.Join(root, "include", "Bar.hpp"), tu.Includes[0])

	// Bar.hpp is spliced once even though Bar2.hpp includes it again.
	var bars int
	for _, c := range tu.Root.Children {
		if c.Spelling == "Bar" {
			bars++
			assert.Equal(t, filepath.Join(root, "include", "Bar.hpp"), c.File)
		}
	}
	assert.Equal(t, 1, bars)

	var notes int
	for _, d := range tu.Diagnostics {
		if d.Severity == SeverityNote {
			notes++
		}
	}
	assert.Equal(t, 1, notes)
}

func TestTUParser_MissingInclude(t *testing.T) {
	p := newParser(t)
	tu := parse(t, p, filepath.Join(t.TempDir(), "a.cpp"), "#include \"Missing.hpp\"\nint main() { return (0); }\n")

	d, ok := tu.FirstError()
	require.True(t, ok)
	assert.Equal(t, SeverityFatal, d.Severity)
	assert.Equal(t, 1, d.Line)
	assert.Contains(t, d.Message, "Missing.hpp")
}

func TestTUParser_SystemPathNotExpanded(t *testing.T) {
	sys := t.TempDir()
	writeFile(t, filepath.Join(sys, "lib.h"), "int global_from_lib;\n")

	p := newParser(t, WithSystemPaths(sys))
	tu := parse(t, p, filepath.Join(t.TempDir(), "a.cpp"), "#include \"lib.h\"\n")

	assert.False(t, tu.HasErrors())
	assert.Empty(t, tu.Includes)
	assert.Empty(t, tu.Root.Children)
}

func TestTUParser_Limits(t *testing.T) {
	p := newParser(t, WithMaxFileSize(8))

	_, err := p.Parse(context.Background(), "big.cpp", []byte("int a_long_name;\n"))
	assert.True(t, errors.Is(err, ErrFileTooLarge))
	var parseErr *ParseError
	require.True(t, errors.As(err, &parseErr))
	assert.Equal(t, "big.cpp", parseErr.FilePath)

	_, err = p.Parse(context.Background(), "bin.cpp", []byte{0xff, 0xfe})
	assert.True(t, errors.Is(err, ErrInvalidContent))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = p.Parse(ctx, "a.cpp", []byte("int x;"))
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestTUParser_ReusedAcrossFiles(t *testing.T) {
	p := newParser(t)
	first := parse(t, p, "a.cpp", "namespace a\n{\n\tint x;\n}\n")
	second := parse(t, p, "b.cpp", "int y;\n")

	assert.Equal(t, "a", first.Root.Children[0].Spelling)
	require.Len(t, second.Root.Children, 1)
	assert.Equal(t, "y", second.Root.Children[0].Spelling)
	assert.Equal(t, "b.cpp", second.Root.Children[0].File)
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Severity: SeverityFatal, File: "a.cpp", Line: 2, Column: 10, Message: "'x.h' file not found"}
	assert.Equal(t, "a.cpp:2:10: fatal: 'x.h' file not found", d.String())
	assert.True(t, d.IsError())
	assert.False(t, Diagnostic{Severity: SeverityWarning}.IsError())
	assert.True(t, strings.HasPrefix(SeverityNote.String(), "note"))
}
