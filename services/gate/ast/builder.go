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
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
)

// maxIncludeDepth bounds nested project includes.
const maxIncludeDepth = 64

// builder converts syntax trees into cursors for one Parse call.
//
// It is not reusable: visited and diags accumulate per translation unit.
type builder struct {
	ctx      context.Context
	parser   *TUParser
	visited  map[string]bool
	diags    []Diagnostic
	includes []string
}

// source is the per-file state while converting one syntax tree.
type source struct {
	path  string
	dir   string
	src   []byte
	depth int
}

func newBuilder(ctx context.Context, p *TUParser) *builder {
	return &builder{
		ctx:     ctx,
		parser:  p,
		visited: make(map[string]bool),
	}
}

func (b *builder) diag(sev Severity, file string, line, col int, format string, args ...any) {
	b.diags = append(b.diags, Diagnostic{
		Severity: sev,
		File:     file,
		Line:     line,
		Column:   col,
		Message:  fmt.Sprintf(format, args...),
	})
}

// parseFile parses content and converts its top level into cursors.
func (b *builder) parseFile(path string, content []byte, depth int) ([]*Cursor, error) {
	tree, err := b.parser.ts.ParseCtx(b.ctx, nil, content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParseFailed, err)
	}
	if tree == nil {
		return nil, ErrParseFailed
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		return nil, ErrParseFailed
	}

	b.diags = append(b.diags, collectSyntaxErrors(root, path, content)...)

	s := &source{path: path, dir: filepath.Dir(path), src: content, depth: depth}
	return b.items(s, root, false, ""), nil
}

// items converts the named children of n that declare something.
func (b *builder) items(s *source, n *sitter.Node, inClass bool, className string) []*Cursor {
	var out []*Cursor
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child == nil || !child.IsNamed() {
			continue
		}
		switch t := child.Type(); {
		case transparentNodes[t]:
			out = append(out, b.items(s, child, inClass, className)...)
		case t == "preproc_include":
			out = append(out, b.include(s, child)...)
		case t == "namespace_definition":
			if cur := b.namespace(s, child); cur != nil {
				out = append(out, cur)
			}
		case t == "class_specifier" || t == "struct_specifier":
			if cur := b.class(s, child); cur != nil {
				out = append(out, cur)
			}
		case t == "function_definition":
			if cur := b.function(s, child, inClass, className); cur != nil {
				out = append(out, cur)
			}
		case t == "declaration" || t == "field_declaration":
			out = append(out, b.declaration(s, child, inClass, className)...)
		}
	}
	return out
}

func (b *builder) cursor(s *source, n *sitter.Node, kind CursorKind, spelling string) *Cursor {
	point := n.StartPoint()
	return &Cursor{
		Kind:     kind,
		Spelling: spelling,
		File:     s.path,
		Line:     int(point.Row) + 1,
		Column:   int(point.Column),
	}
}

// namespace converts a namespace definition. "namespace a::b" becomes
// nested cursors; an anonymous namespace has an empty spelling.
func (b *builder) namespace(s *source, n *sitter.Node) *Cursor {
	names := []string{""}
	if name := n.ChildByFieldName("name"); name != nil {
		names = namespaceNames(nodeText(name, s.src))
	}

	var children []*Cursor
	if body := n.ChildByFieldName("body"); body != nil {
		children = b.items(s, body, false, "")
	}

	cur := b.cursor(s, n, KindNamespace, names[len(names)-1])
	cur.Definition = true
	cur.Children = children
	for i := len(names) - 2; i >= 0; i-- {
		outer := b.cursor(s, n, KindNamespace, names[i])
		outer.Definition = true
		outer.Children = []*Cursor{cur}
		cur = outer
	}
	return cur
}

// namespaceNames splits a namespace name such as "a::inline b" into its
// parts. Only a separate inline keyword is dropped, so "inlineHelpers"
// keeps its name. No parts yields the anonymous name "".
func namespaceNames(text string) []string {
	var names []string
	for _, part := range strings.Split(text, "::") {
		fields := strings.Fields(part)
		if len(fields) > 1 && fields[0] == "inline" {
			fields = fields[1:]
		}
		if name := compact(strings.Join(fields, "")); name != "" && name != "inline" {
			names = append(names, name)
		}
	}
	if len(names) == 0 {
		return []string{""}
	}
	return names
}

// class converts a class or struct specifier. A specifier without a body
// is a forward declaration.
func (b *builder) class(s *source, n *sitter.Node) *Cursor {
	name := n.ChildByFieldName("name")
	if name == nil {
		return nil
	}
	kind := KindClass
	if n.Type() == "struct_specifier" {
		kind = KindStruct
	}

	spelling := baseClassName(name, s.src)
	cur := b.cursor(s, n, kind, spelling)
	cur.Qualified = strings.Contains(spelling, "::")
	if body := n.ChildByFieldName("body"); body != nil {
		cur.Definition = true
		cur.Children = b.items(s, body, true, lastSegment(spelling))
	}
	return cur
}

// function converts a function definition; bodies are not descended.
func (b *builder) function(s *source, n *sitter.Node, inClass bool, className string) *Cursor {
	fd := findFunctionDeclarator(n.ChildByFieldName("declarator"))
	if fd == nil {
		return nil
	}
	cur := b.functionCursor(s, n, fd, inClass, className)
	if cur != nil {
		cur.Definition = true
	}
	return cur
}

func (b *builder) functionCursor(s *source, decl, fd *sitter.Node, inClass bool, className string) *Cursor {
	nameNode := fd.ChildByFieldName("declarator")
	if nameNode == nil {
		return nil
	}
	name := compact(nodeText(nameNode, s.src))
	hasType := decl.ChildByFieldName("type") != nil
	kind := functionKind(name, hasType, inClass, className)

	cur := b.cursor(s, nameNode, kind, name)
	cur.Qualified = nameNode.Type() == "qualified_identifier"
	cur.Params = params(fd.ChildByFieldName("parameters"), s.src)
	return cur
}

// declaration converts a declaration or class member declaration. One
// declaration may introduce a class definition and several declarators.
func (b *builder) declaration(s *source, n *sitter.Node, inClass bool, className string) []*Cursor {
	var out []*Cursor

	typeNode := n.ChildByFieldName("type")
	if typeNode != nil && (typeNode.Type() == "class_specifier" || typeNode.Type() == "struct_specifier") &&
		typeNode.ChildByFieldName("body") != nil {
		if cur := b.class(s, typeNode); cur != nil {
			out = append(out, cur)
		}
	}

	for i := 0; i < int(n.ChildCount()); i++ {
		d := n.Child(i)
		if d == nil || !d.IsNamed() || !declaratorNodes[d.Type()] || sameNode(d, typeNode) {
			continue
		}
		if cur := b.declarator(s, n, d, inClass, className); cur != nil {
			out = append(out, cur)
		}
	}
	return out
}

func (b *builder) declarator(s *source, decl, d *sitter.Node, inClass bool, className string) *Cursor {
	if fd := findFunctionDeclarator(d); fd != nil {
		return b.functionCursor(s, decl, fd, inClass, className)
	}

	nameNode := declaredName(d)
	if nameNode == nil {
		return nil
	}
	kind := KindVariable
	if inClass {
		kind = KindField
	}
	name := compact(nodeText(nameNode, s.src))
	cur := b.cursor(s, nameNode, kind, name)
	cur.Qualified = nameNode.Type() == "qualified_identifier"
	return cur
}

// params reads a parameter_list.
func params(list *sitter.Node, src []byte) []Param {
	if list == nil {
		return nil
	}
	var out []Param
	for i := 0; i < int(list.ChildCount()); i++ {
		p := list.Child(i)
		if p == nil || !p.IsNamed() {
			continue
		}
		switch p.Type() {
		case "parameter_declaration", "optional_parameter_declaration":
		default:
			continue
		}

		param := Param{Text: collapse(nodeText(p, src))}
		if t := p.ChildByFieldName("type"); t != nil {
			param.Type = compact(nodeText(t, src))
		}
		for j := 0; j < int(p.ChildCount()); j++ {
			c := p.Child(j)
			if c != nil && c.Type() == "type_qualifier" && nodeText(c, src) == "const" {
				param.Const = true
			}
		}
		if d := p.ChildByFieldName("declarator"); d != nil {
			switch d.Type() {
			case "reference_declarator", "abstract_reference_declarator":
				param.LValueRef = d.ChildCount() > 0 && d.Child(0).Type() == "&"
			}
		}
		out = append(out, param)
	}
	return out
}

// =============================================================================
// INCLUDES
// =============================================================================

// include handles an #include directive. Quoted project headers are parsed
// and their cursors returned for splicing at the directive's position.
func (b *builder) include(s *source, n *sitter.Node) []*Cursor {
	pathNode := n.ChildByFieldName("path")
	if pathNode == nil {
		return nil
	}
	point := pathNode.StartPoint()
	line, col := int(point.Row)+1, int(point.Column)

	switch pathNode.Type() {
	case "system_lib_string":
		b.diag(SeverityNote, s.path, line, col, "system include %s not expanded", nodeText(pathNode, s.src))
		return nil
	case "string_literal":
	default:
		b.diag(SeverityNote, s.path, line, col, "computed include not expanded")
		return nil
	}

	name := strings.Trim(nodeText(pathNode, s.src), `"`)
	resolved, system, ok := b.parser.resolve(name, s.dir)
	if !ok {
		b.diag(SeverityFatal, s.path, line, col, "'%s' file not found", name)
		return nil
	}
	if system {
		b.diag(SeverityNote, s.path, line, col, "'%s' resolved under a system path; not expanded", name)
		return nil
	}

	key := visitKey(resolved)
	if b.visited[key] {
		return nil
	}
	b.visited[key] = true

	if s.depth >= maxIncludeDepth {
		b.diag(SeverityFatal, s.path, line, col, "#include nested too deeply")
		return nil
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		b.diag(SeverityFatal, s.path, line, col, "cannot read '%s': %v", name, err)
		return nil
	}
	if int64(len(content)) > b.parser.maxFileSize {
		b.diag(SeverityFatal, s.path, line, col, "'%s' exceeds maximum size", name)
		return nil
	}
	if !utf8.Valid(content) {
		b.diag(SeverityFatal, s.path, line, col, "'%s' is not valid UTF-8", name)
		return nil
	}

	cursors, err := b.parseFile(resolved, content, s.depth+1)
	if err != nil {
		b.diag(SeverityFatal, s.path, line, col, "cannot parse '%s': %v", name, err)
		return nil
	}
	b.includes = append(b.includes, resolved)
	return cursors
}

func visitKey(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}
