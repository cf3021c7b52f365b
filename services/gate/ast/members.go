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
)

// Special member names, in the order they are reported.
const (
	MemberConstructor     = "constructor"
	MemberDestructor      = "destructor"
	MemberCopyConstructor = "copy constructor"
	MemberCopyAssignment  = "copy assignment"
)

// ClassInfo records which special members a class declares itself.
type ClassInfo struct {
	Name          string
	QualifiedName string
	File          string
	Line          int

	HasConstructor     bool
	HasDestructor      bool
	HasCopyConstructor bool
	HasCopyAssignment  bool
}

// Missing returns the undeclared special members in reporting order.
func (ci ClassInfo) Missing() []string {
	var missing []string
	if !ci.HasConstructor {
		missing = append(missing, MemberConstructor)
	}
	if !ci.HasDestructor {
		missing = append(missing, MemberDestructor)
	}
	if !ci.HasCopyConstructor {
		missing = append(missing, MemberCopyConstructor)
	}
	if !ci.HasCopyAssignment {
		missing = append(missing, MemberCopyAssignment)
	}
	return missing
}

// MissingMembersMessage renders the aggregated issue text for ci.
func MissingMembersMessage(ci ClassInfo) string {
	return fmt.Sprintf("class %s is missing special members: %s",
		ci.QualifiedName, strings.Join(ci.Missing(), ", "))
}

// AnalyzeClass inspects the immediate children of a class definition.
//
// A constructor with a parameter that is a const lvalue reference to the
// class is a copy constructor and also counts as a constructor. Any
// operator= counts as copy assignment.
func AnalyzeClass(c *Cursor, qualifiedName string) ClassInfo {
	info := ClassInfo{
		Name:          c.Spelling,
		QualifiedName: qualifiedName,
		File:          c.File,
		Line:          c.Line,
	}
	for _, member := range c.Children {
		switch member.Kind {
		case KindConstructor:
			info.HasConstructor = true
			if isCopyConstructor(member, qualifiedName, c.Spelling) {
				info.HasCopyConstructor = true
			}
		case KindDestructor:
			info.HasDestructor = true
		case KindMethod:
			if lastSegment(member.Spelling) == "operator=" {
				info.HasCopyAssignment = true
			}
		}
	}
	return info
}

func isCopyConstructor(ctor *Cursor, qualifiedName, name string) bool {
	for _, p := range ctor.Params {
		if isCopyParam(p, qualifiedName, name) {
			return true
		}
	}
	return false
}

// isCopyParam compares by structure: const, a single &, and a type naming
// the class either bare, fully qualified, or by a qualified suffix.
func isCopyParam(p Param, qualifiedName, name string) bool {
	if !p.Const || !p.LValueRef {
		return false
	}
	t := strings.TrimPrefix(stripTemplateArgs(p.Type), "::")
	if t == "" {
		return false
	}
	return t == name || t == qualifiedName || strings.HasSuffix(qualifiedName, "::"+t)
}

// stripTemplateArgs removes a trailing "<...>" group.
func stripTemplateArgs(t string) string {
	if i := strings.IndexByte(t, '<'); i >= 0 && strings.HasSuffix(t, ">") {
		return t[:i]
	}
	return t
}
