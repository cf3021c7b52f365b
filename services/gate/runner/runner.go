// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package runner drives one checker run over a project tree.
//
// A run discovers files once, then checks them strictly in order: the
// lexical pass, then the structural pass, per file. The issue list and the
// poll-call counter live on the Report being built; nothing is shared
// between runs.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/AleutianAI/cppgate/services/gate/files"
	"github.com/AleutianAI/cppgate/services/gate/lint"
	"github.com/AleutianAI/cppgate/services/gate/telemetry"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/codes"
)

// ErrNoFiles is returned with an empty Report when the roots contain no
// file of the requested kinds. It is informational, not a failure.
var ErrNoFiles = errors.New("no files found")

// Rule IDs for issues the runner itself produces.
const (
	RulePollBudget = "poll-budget"
	RuleReadError  = "read-error"
)

// MsgTooManyPolls is the run-level issue text when the poll budget is
// exceeded.
const MsgTooManyPolls = "too many poll() calls detected"

// DefaultPollBudget is the number of source files that may call poll.
const DefaultPollBudget = 1

// Pass selects the checks a run performs.
type Pass uint8

const (
	PassLexical Pass = 1 << iota
	PassStructural

	PassAll = PassLexical | PassStructural
)

// Has reports whether p includes q.
func (p Pass) Has(q Pass) bool { return p&q != 0 }

// LexicalChecker runs the text rules over one file.
type LexicalChecker interface {
	Check(ctx context.Context, file *lint.SourceFile) lint.Result
}

// StructuralChecker runs the AST pass over one file.
type StructuralChecker interface {
	Check(ctx context.Context, file *lint.SourceFile) []lint.Issue
}

// Request describes one run.
type Request struct {
	// Name labels the run in reports ("headers", "sources", "check", ...).
	Name string

	// Kinds lists the file kinds to check, in order.
	Kinds []lint.FileKind

	// Roots are the directories (or files) to scan.
	Roots []string

	// Passes selects lexical and/or structural checks.
	Passes Pass

	// Patch, when non-nil, limits the run to files touched by the
	// unified diff.
	Patch []byte
}

// Option configures a Runner.
type Option func(*Runner)

// WithExtensions sets the extensions that select files of kind.
func WithExtensions(kind lint.FileKind, exts ...string) Option {
	return func(r *Runner) {
		r.extensions[kind] = append([]string(nil), exts...)
	}
}

// WithPollBudget sets how many source files may call poll.
func WithPollBudget(n int) Option {
	return func(r *Runner) {
		if n >= 0 {
			r.pollBudget = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// Runner is the orchestrator. Build it once per process and call Run for
// each batch.
//
// Thread Safety: Run calls must not overlap.
type Runner struct {
	lexical    LexicalChecker
	structural StructuralChecker
	extensions map[lint.FileKind][]string
	pollBudget int
	logger     *slog.Logger
}

// New creates a Runner. structural may be nil, in which case the
// structural pass is skipped even when requested.
func New(lexical LexicalChecker, structural StructuralChecker, opts ...Option) *Runner {
	r := &Runner{
		lexical:    lexical,
		structural: structural,
		extensions: map[lint.FileKind][]string{
			lint.KindHeader: {".h", ".hpp", ".hh", ".hxx"},
			lint.KindSource: {".cpp", ".c"},
		},
		pollBudget: DefaultPollBudget,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run checks every file selected by req.
//
// Description:
//
//	Files of each kind are collected from req.Roots (and filtered by
//	req.Patch), then checked one at a time. A file that cannot be read
//	yields a file-level issue. After the last file, a poll count above
//	the budget adds one run-level issue.
//
// Outputs:
//
//	*Report - Never nil.
//	error - ErrNoFiles when nothing matched, the context error when the
//	        run was cancelled between files, or a patch parse error.
func (r *Runner) Run(ctx context.Context, req Request) (*Report, error) {
	ctx, span := startRunSpan(ctx, req)
	defer span.End()
	start := time.Now()

	report := &Report{
		RunID:      uuid.NewString(),
		Name:       req.Name,
		PollBudget: r.pollBudget,
		Started:    start,
	}

	plan, err := r.plan(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "plan failed")
		return report, err
	}
	total := 0
	for _, p := range plan {
		total += len(p.paths)
	}
	if total == 0 {
		r.logger.Info("no files found", slog.String("run", req.Name), slog.Any("roots", req.Roots))
		report.Duration = time.Since(start)
		return report, ErrNoFiles
	}

	for _, p := range plan {
		for _, path := range p.paths {
			if err := ctx.Err(); err != nil {
				report.Duration = time.Since(start)
				span.RecordError(err)
				return report, err
			}
			fr := r.checkFile(ctx, path, p.kind, req.Passes)
			report.add(fr)
		}
	}

	if req.Passes.Has(PassLexical) && report.PollCalls > r.pollBudget {
		report.RunIssues = append(report.RunIssues, lint.Issue{
			Rule:     RulePollBudget,
			Category: lint.StructuralViolation,
			Message:  fmt.Sprintf("%s (%d found, budget %d)", MsgTooManyPolls, report.PollCalls, r.pollBudget),
		})
	}

	report.Duration = time.Since(start)
	setRunSpanResult(span, report)
	recordRunMetrics(ctx, report)
	telemetry.LoggerWithTrace(ctx, r.logger).Info("run complete",
		slog.String("run_id", report.RunID),
		slog.String("run", req.Name),
		slog.Int("files", report.Checked),
		slog.Int("issues", report.IssueCount()),
		slog.Int("poll_calls", report.PollCalls),
		slog.Duration("duration", report.Duration),
	)
	return report, nil
}

type planned struct {
	kind  lint.FileKind
	paths []string
}

func (r *Runner) plan(req Request) ([]planned, error) {
	out := make([]planned, 0, len(req.Kinds))
	for _, kind := range req.Kinds {
		classifier := files.NewClassifier(r.extensions[kind], r.logger)
		paths, err := classifier.Collect(req.Roots)
		if err != nil {
			return nil, fmt.Errorf("collect %s files: %w", kind, err)
		}
		if req.Patch != nil {
			if paths, err = files.FilterByPatch(paths, req.Patch); err != nil {
				return nil, err
			}
		}
		out = append(out, planned{kind: kind, paths: paths})
	}
	return out, nil
}

// checkFile reads one file and runs the requested passes on it.
func (r *Runner) checkFile(ctx context.Context, path string, kind lint.FileKind, passes Pass) FileReport {
	fr := FileReport{Path: path, Kind: kind}

	content, err := os.ReadFile(path)
	if err != nil {
		r.logger.Warn("cannot read file", slog.String("file", path), slog.String("error", err.Error()))
		fr.Issues = []lint.Issue{{
			File:     path,
			Rule:     RuleReadError,
			Category: lint.ParseFailure,
			Message:  fmt.Sprintf("cannot read file: %v", err),
		}}
		return fr
	}
	file := lint.NewSourceFile(path, kind, string(content))

	if passes.Has(PassLexical) && r.lexical != nil {
		res := r.lexical.Check(ctx, file)
		fr.Issues = append(fr.Issues, res.Issues...)
		fr.CallsPoll = res.CallsPoll
	}
	if passes.Has(PassStructural) && r.structural != nil {
		fr.Issues = append(fr.Issues, r.structural.Check(ctx, file)...)
	}
	return fr
}
