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
	"fmt"
	"strings"

	"github.com/AleutianAI/cppgate/services/gate/lint"
)

// Rule IDs reported by the structural pass.
const (
	RuleNamespaceScope = "namespace-scope"
	RuleSpecialMembers = "special-members"
	RuleASTParse       = "ast-parse"
)

// anonymousNamespace is the scope entry for "namespace { ... }".
const anonymousNamespace = "(anonymous)"

// Scope is the stack of enclosing namespace names.
//
// Scope is a value: Push returns a new Scope and leaves the receiver
// untouched, so a child's extension is never visible to its siblings.
type Scope struct {
	names []string
}

// Push returns the scope extended by name. An empty name is the
// anonymous namespace.
func (s Scope) Push(name string) Scope {
	if name == "" {
		name = anonymousNamespace
	}
	names := make([]string, len(s.names), len(s.names)+1)
	copy(names, s.names)
	return Scope{names: append(names, name)}
}

// Empty reports whether no namespace encloses the position.
func (s Scope) Empty() bool { return len(s.names) == 0 }

// Depth returns the number of enclosing namespaces.
func (s Scope) Depth() int { return len(s.names) }

// String joins the scope with "::".
func (s Scope) String() string { return strings.Join(s.names, "::") }

// Qualify prefixes name with the named part of the scope. Anonymous
// namespaces cannot be spelled and are left out.
func (s Scope) Qualify(name string) string {
	parts := make([]string, 0, len(s.names)+1)
	for _, n := range s.names {
		if n != anonymousNamespace {
			parts = append(parts, n)
		}
	}
	return strings.Join(append(parts, name), "::")
}

// NotInNamespaceMessage renders the namespace-scope issue text.
func NotInNamespaceMessage(name string) string {
	return fmt.Sprintf("%s is not inside any namespace", name)
}

// WalkTranslationUnit reports structural issues for declarations in
// tu.File. Declarations spliced in from headers are skipped.
//
// Free functions, variables, classes and structs outside every namespace
// are reported, except main and out-of-line definitions of already
// declared entities. Every class or struct definition is checked for the
// four special members.
func WalkTranslationUnit(tu *TranslationUnit) []lint.Issue {
	w := &walker{file: tu.File}
	w.walk(tu.Root, Scope{}, nil)
	lint.SortIssues(w.issues)
	return w.issues
}

type walker struct {
	file   string
	issues []lint.Issue
}

// walk visits the children of c. outer holds the enclosing class names
// when c is a class.
func (w *walker) walk(c *Cursor, scope Scope, outer []string) {
	for _, child := range c.Children {
		if child.File != w.file {
			continue
		}
		switch child.Kind {
		case KindNamespace:
			w.walk(child, scope.Push(child.Spelling), nil)

		case KindClass, KindStruct:
			if len(outer) == 0 {
				w.checkScope(child, scope)
			}
			if !child.Definition || child.Qualified {
				continue
			}
			path := append(append([]string(nil), outer...), child.Spelling)
			w.checkMembers(child, scope.Qualify(strings.Join(path, "::")))
			w.walk(child, scope, path)

		case KindFunction, KindVariable:
			if len(outer) == 0 {
				w.checkScope(child, scope)
			}
		}
	}
}

func (w *walker) checkScope(c *Cursor, scope Scope) {
	if c.Qualified || !scope.Empty() || c.Spelling == "main" || c.Spelling == "" {
		return
	}
	w.issues = append(w.issues, lint.Issue{
		File:     w.file,
		Line:     c.Line,
		Rule:     RuleNamespaceScope,
		Category: lint.StructuralViolation,
		Message:  NotInNamespaceMessage(c.Spelling),
	})
}

func (w *walker) checkMembers(c *Cursor, qualified string) {
	info := AnalyzeClass(c, qualified)
	if len(info.Missing()) == 0 {
		return
	}
	w.issues = append(w.issues, lint.Issue{
		File:     w.file,
		Line:     c.Line,
		Rule:     RuleSpecialMembers,
		Category: lint.StructuralViolation,
		Message:  MissingMembersMessage(info),
	})
}
