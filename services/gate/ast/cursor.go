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
	"strings"
	"unicode"

	sitter "github.com/smacker/go-tree-sitter"
)

// CursorKind classifies a declaration in the translation unit.
//
// Every syntax node maps to exactly one kind; nodes the checker has no
// interest in map to KindUnknown and are not materialized.
type CursorKind int

const (
	KindUnknown CursorKind = iota
	KindTranslationUnit
	KindNamespace
	KindClass
	KindStruct
	KindFunction
	KindVariable
	KindConstructor
	KindDestructor
	KindMethod
	KindField
)

// String returns the kind name.
func (k CursorKind) String() string {
	switch k {
	case KindTranslationUnit:
		return "translation_unit"
	case KindNamespace:
		return "namespace"
	case KindClass:
		return "class"
	case KindStruct:
		return "struct"
	case KindFunction:
		return "function"
	case KindVariable:
		return "variable"
	case KindConstructor:
		return "constructor"
	case KindDestructor:
		return "destructor"
	case KindMethod:
		return "method"
	case KindField:
		return "field"
	default:
		return "unknown"
	}
}

// Param describes one function parameter.
type Param struct {
	// Type is the parameter's base type with whitespace removed, without
	// qualifiers or declarator punctuation. "const ns::Foo &x" yields "ns::Foo".
	Type string

	// Const is true when the base type carries a const qualifier.
	Const bool

	// LValueRef is true for a single "&" reference, false for "&&".
	LValueRef bool

	// Text is the parameter's source text with whitespace collapsed.
	Text string
}

// Cursor is one node of the declaration tree.
//
// Cursors from included project headers are spliced into the tree at the
// include directive; File tells them apart from the file under test.
//
// Thread Safety: Immutable after the TranslationUnit is returned.
type Cursor struct {
	Kind     CursorKind
	Spelling string

	// File is the path of the file the declaration appears in.
	File string

	// Line is 1-indexed; Column is 0-indexed.
	Line   int
	Column int

	// Qualified is true when the declarator name carries a scope
	// ("Foo::bar"), i.e. an out-of-line definition of a declared entity.
	Qualified bool

	// Definition is true for class bodies and function definitions.
	Definition bool

	// Params lists the parameters of function-like cursors.
	Params []Param

	Children []*Cursor
}

// Find returns the first descendant, depth-first, for which match is true.
func (c *Cursor) Find(match func(*Cursor) bool) *Cursor {
	for _, child := range c.Children {
		if match(child) {
			return child
		}
		if found := child.Find(match); found != nil {
			return found
		}
	}
	return nil
}

// =============================================================================
// NODE HELPERS
// =============================================================================

// transparentNodes are flattened: their declarations belong to the
// enclosing scope.
var transparentNodes = map[string]bool{
	"preproc_ifdef":         true,
	"preproc_if":            true,
	"preproc_else":          true,
	"preproc_elif":          true,
	"preproc_elifdef":       true,
	"template_declaration":  true,
	"linkage_specification": true,
	"declaration_list":      true,
}

// declaratorNodes are the node types that can name a declared entity.
var declaratorNodes = map[string]bool{
	"identifier":               true,
	"field_identifier":         true,
	"init_declarator":          true,
	"pointer_declarator":       true,
	"reference_declarator":     true,
	"array_declarator":         true,
	"function_declarator":      true,
	"parenthesized_declarator": true,
	"qualified_identifier":     true,
	"attributed_declarator":    true,
	"destructor_name":          true,
	"operator_name":            true,
}

func nodeText(n *sitter.Node, src []byte) string {
	start, end := n.StartByte(), n.EndByte()
	if end > uint32(len(src)) || start > end {
		return ""
	}
	return string(src[start:end])
}

// compact removes all whitespace.
func compact(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// collapse folds whitespace runs into single spaces.
func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil &&
		a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// findFunctionDeclarator descends through pointer, reference and
// parenthesized wrappers to the function_declarator, if any.
func findFunctionDeclarator(n *sitter.Node) *sitter.Node {
	for depth := 0; n != nil && depth < 16; depth++ {
		switch n.Type() {
		case "function_declarator":
			return n
		case "init_declarator", "pointer_declarator", "attributed_declarator", "array_declarator":
			n = n.ChildByFieldName("declarator")
		case "reference_declarator", "parenthesized_declarator":
			n = lastNamedChild(n)
		default:
			return nil
		}
	}
	return nil
}

// declaredName descends to the identifier a declarator introduces.
func declaredName(n *sitter.Node) *sitter.Node {
	for depth := 0; n != nil && depth < 16; depth++ {
		switch n.Type() {
		case "identifier", "field_identifier", "qualified_identifier", "destructor_name", "operator_name":
			return n
		case "reference_declarator", "parenthesized_declarator":
			n = lastNamedChild(n)
		default:
			n = n.ChildByFieldName("declarator")
		}
	}
	return nil
}

func lastNamedChild(n *sitter.Node) *sitter.Node {
	for i := int(n.ChildCount()) - 1; i >= 0; i-- {
		if c := n.Child(i); c != nil && c.IsNamed() {
			return c
		}
	}
	return nil
}

// lastSegment strips any "a::b::" scope from name.
func lastSegment(name string) string {
	if i := strings.LastIndex(name, "::"); i >= 0 {
		return name[i+2:]
	}
	return name
}

// functionKind classifies a function-like declarator.
//
// hasType is false for constructors and destructors, which have no return
// type; a call-like macro inside a class body has no type either, so a
// constructor must also be spelled like its class.
func functionKind(name string, hasType, inClass bool, className string) CursorKind {
	last := lastSegment(name)
	switch {
	case strings.HasPrefix(last, "~"):
		return KindDestructor
	case strings.HasPrefix(last, "operator"):
		if inClass {
			return KindMethod
		}
		return KindFunction
	case !hasType && inClass && last == className:
		return KindConstructor
	case !hasType && !inClass && strings.Contains(name, "::") && last == lastSegment(strings.TrimSuffix(name, "::"+last)):
		return KindConstructor
	case inClass:
		return KindMethod
	default:
		return KindFunction
	}
}

// baseClassName returns the class name without template arguments.
func baseClassName(n *sitter.Node, src []byte) string {
	if n.Type() == "template_type" {
		if name := n.ChildByFieldName("name"); name != nil {
			return compact(nodeText(name, src))
		}
	}
	return compact(nodeText(n, src))
}
