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
	"log/slog"

	"github.com/AleutianAI/cppgate/services/gate/lint"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// MsgParseFailed is the text of the single issue reported when a file's
// translation unit cannot be trusted.
const MsgParseFailed = "AST parse failed; fix includes first"

// Checker runs the structural pass over one file at a time.
//
// Thread Safety: Safe for concurrent use; parses are serialized by the
// shared TUParser.
type Checker struct {
	parser *TUParser
	logger *slog.Logger
}

// NewChecker creates a Checker around parser.
func NewChecker(parser *TUParser, logger *slog.Logger) *Checker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{parser: parser, logger: logger}
}

// Check parses file and walks its declarations.
//
// Any Error or Fatal diagnostic, or a failed parse, short-circuits the
// walk: the result is then a single ParseFailure issue carrying the first
// diagnostic as detail.
func (c *Checker) Check(ctx context.Context, file *lint.SourceFile) []lint.Issue {
	ctx, span := startCheckSpan(ctx, file.Path)
	defer span.End()

	tu, err := c.parser.Parse(ctx, file.Path, []byte(file.Content))
	if err != nil {
		c.logger.Warn("translation unit parse failed",
			slog.String("file", file.Path),
			slog.String("error", err.Error()),
		)
		span.RecordError(err)
		span.SetStatus(codes.Error, "parse failed")
		recordCheckMetrics(ctx, nil, true)
		return []lint.Issue{parseFailure(file.Path, err.Error())}
	}

	if diag, failed := tu.FirstError(); failed {
		c.logger.Debug("translation unit has errors",
			slog.String("file", file.Path),
			slog.String("diagnostic", diag.String()),
		)
		span.SetStatus(codes.Error, "diagnostics")
		recordCheckMetrics(ctx, nil, true)
		return []lint.Issue{parseFailure(file.Path, diag.String())}
	}

	issues := WalkTranslationUnit(tu)

	rules := make([]string, 0, len(issues))
	for _, issue := range issues {
		rules = append(rules, issue.Rule)
	}
	span.SetAttributes(attribute.Int("ast.issue_count", len(issues)))
	recordCheckMetrics(ctx, rules, false)
	return issues
}

func parseFailure(path, detail string) lint.Issue {
	return lint.Issue{
		File:     path,
		Rule:     RuleASTParse,
		Category: lint.ParseFailure,
		Message:  MsgParseFailed + " (" + detail + ")",
	}
}
