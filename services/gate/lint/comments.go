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

// Messages of the comment classifier.
const (
	MsgUnclassifiedOneline   = "contains an unclassified oneline comment, please mark as TODO or NOTE"
	MsgUnclassifiedMultiline = "contains an unclassified multiline comment, please mark as TODO or NOTE"
)

// DefaultCommentPrefixes are matched at the start of a comment body.
var DefaultCommentPrefixes = []string{
	` TODO [0-9]+:`,
	` NOTE: `,
	` namespace`,
	` clang-format `,
	` NOLINT`,
}

// CommentOptions configures the CommentClassifier.
type CommentOptions struct {
	// Prefixes are regular expressions matched at the start of the body.
	// Nil means DefaultCommentPrefixes.
	Prefixes []string

	// FirstOnly reports at most one oneline and one multiline comment
	// per file instead of every occurrence.
	FirstOnly bool
}

// CommentClassifier separates tagged comments from free text.
//
// Thread Safety: Immutable after creation.
type CommentClassifier struct {
	allowed   *regexp.Regexp
	firstOnly bool
}

// NewCommentClassifier compiles the allow-list.
//
// Inputs:
//
//	opts - Prefix patterns and reporting mode
//
// Outputs:
//
//	*CommentClassifier - Ready to use
//	error              - ErrInvalidRule if a prefix does not compile
func NewCommentClassifier(opts CommentOptions) (*CommentClassifier, error) {
	prefixes := opts.Prefixes
	if prefixes == nil {
		prefixes = DefaultCommentPrefixes
	}

	var allowed *regexp.Regexp
	if len(prefixes) > 0 {
		parts := make([]string, len(prefixes))
		for i, p := range prefixes {
			if _, err := regexp.Compile(p); err != nil {
				return nil, fmt.Errorf("%w: comment prefix %q: %v", ErrInvalidRule, p, err)
			}
			parts[i] = "(?:" + p + ")"
		}
		allowed = regexp.MustCompile(`^(?:` + strings.Join(parts, "|") + `)`)
	}
	return &CommentClassifier{allowed: allowed, firstOnly: opts.FirstOnly}, nil
}

// Classified reports whether body starts with an allowed prefix.
func (c *CommentClassifier) Classified(body string) bool {
	return c.allowed != nil && c.allowed.MatchString(body)
}

// Classify returns a finding for each unclassified comment in content.
func (c *CommentClassifier) Classify(file *SourceFile) []Finding {
	var out []Finding
	var sawLine, sawBlock bool
	for _, cm := range ScanComments(file.Content) {
		if c.Classified(cm.Body) {
			continue
		}
		if cm.Block {
			if c.firstOnly && sawBlock {
				continue
			}
			sawBlock = true
			out = append(out, Finding{Line: file.LineAt(cm.Offset), Message: MsgUnclassifiedMultiline})
		} else {
			if c.firstOnly && sawLine {
				continue
			}
			sawLine = true
			out = append(out, Finding{Line: file.LineAt(cm.Offset), Message: MsgUnclassifiedOneline})
		}
	}
	return out
}

// Check adapts Classify to CheckFunc.
func (c *CommentClassifier) Check(t *Text) []Finding {
	return c.Classify(t.File)
}

// defaultComments uses DefaultCommentPrefixes as declared at start-up.
var defaultComments = mustCommentClassifier(CommentOptions{})

// mustCommentClassifier is NewCommentClassifier for package-level
// values. It panics if a prefix does not compile.
func mustCommentClassifier(opts CommentOptions) *CommentClassifier {
	c, err := NewCommentClassifier(opts)
	if err != nil {
		panic(err)
	}
	return c
}

// ClassifyComments classifies the comments of file with default options.
func ClassifyComments(file *SourceFile) []Finding {
	return defaultComments.Classify(file)
}
