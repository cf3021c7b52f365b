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
	"fmt"
	"log/slog"
	"regexp"
	"time"
)

// DefaultPollPattern matches a statement that is a poll( call, optionally
// as the initializer of an assignment.
const DefaultPollPattern = `^[ \t]*(?:[A-Za-z_][\w:<>,*& \t]*=[ \t]*)?(?:::)?poll[ \t]*\(`

// Options configures an Engine.
type Options struct {
	// Disabled lists rule IDs that never run.
	Disabled []string

	// Patterns are extra rules appended after the built-ins.
	Patterns []PatternRule

	Comments CommentOptions

	// PollPattern finds poll invocations. Empty means DefaultPollPattern.
	PollPattern string

	// Logger for rule tracing. Nil means slog.Default().
	Logger *slog.Logger
}

// Engine evaluates the rule table over files.
//
// Thread Safety: Immutable after construction; safe for concurrent use.
type Engine struct {
	rules  []Rule
	poll   *regexp.Regexp
	logger *slog.Logger
}

// NewEngine compiles the rule table.
//
// Description:
//
//	Builds the built-in rules in their fixed order, appends opts.Patterns,
//	and removes disabled IDs. All compilation happens here so Check never
//	fails. A disabled ID that matches no rule is an error: a typo in
//	configuration should not silently leave a rule enabled.
//
// Inputs:
//
//	opts - Engine options
//
// Outputs:
//
//	*Engine - Ready to use
//	error   - ErrInvalidRule, ErrDuplicateRule or ErrUnknownRule
func NewEngine(opts Options) (*Engine, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	rules, err := builtinRules(opts.Comments)
	if err != nil {
		return nil, err
	}

	for _, p := range opts.Patterns {
		r, err := p.Compile()
		if err != nil {
			return nil, err
		}
		rules = append(rules, r)
	}

	seen := make(map[string]bool, len(rules))
	for _, r := range rules {
		if seen[r.ID] {
			return nil, fmt.Errorf("%w: %s", ErrDuplicateRule, r.ID)
		}
		seen[r.ID] = true
	}

	disabled := make(map[string]bool, len(opts.Disabled))
	for _, id := range opts.Disabled {
		if !seen[id] {
			return nil, fmt.Errorf("%w: %s", ErrUnknownRule, id)
		}
		disabled[id] = true
	}

	enabled := rules[:0]
	for _, r := range rules {
		if disabled[r.ID] {
			logger.Debug("rule disabled", slog.String("rule", r.ID))
			continue
		}
		enabled = append(enabled, r)
	}

	pollPattern := opts.PollPattern
	if pollPattern == "" {
		pollPattern = DefaultPollPattern
	}
	poll, err := regexp.Compile("(?m)" + pollPattern)
	if err != nil {
		return nil, fmt.Errorf("%w: poll pattern: %v", ErrInvalidRule, err)
	}

	return &Engine{rules: enabled, poll: poll, logger: logger}, nil
}

// Rules returns the enabled rules in evaluation order.
func (e *Engine) Rules() []Rule {
	out := make([]Rule, len(e.rules))
	copy(out, e.rules)
	return out
}

// Check runs every rule applicable to the file's kind.
//
// Description:
//
//	Comments are blanked once and the result shared by all rules. Every
//	applicable rule runs (no short-circuit), findings become Issues
//	attributed to the file and rule, and the list is ordered by line
//	with ties kept in rule order. Poll invocations are counted on the
//	comment-stripped text. The context is only used for tracing.
//
// Inputs:
//
//	ctx  - Context for tracing
//	file - The file to check
//
// Outputs:
//
//	Result - Issues and whether the file calls poll; never fails
func (e *Engine) Check(ctx context.Context, file *SourceFile) Result {
	start := time.Now()
	ctx, span := startCheckSpan(ctx, file)
	defer span.End()

	text := &Text{File: file, Code: StripComments(file.Content)}

	var issues []Issue
	for _, rule := range e.rules {
		if !rule.AppliesTo(file.Kind) {
			continue
		}
		for _, f := range rule.Check(text) {
			issues = append(issues, Issue{
				File:     file.Path,
				Line:     f.Line,
				Rule:     rule.ID,
				Category: rule.Category,
				Message:  f.Message,
			})
		}
	}
	SortIssues(issues)

	result := Result{
		Issues:    issues,
		CallsPoll: file.Kind == KindSource && e.poll.MatchString(text.Code),
	}

	e.logger.Debug("lexical check complete",
		slog.String("file", file.Path),
		slog.String("kind", file.Kind.String()),
		slog.Int("issues", len(issues)),
		slog.Bool("calls_poll", result.CallsPoll))

	setCheckSpanResult(span, result)
	recordCheckMetrics(ctx, file.Kind, issues, time.Since(start))
	return result
}
