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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for lexical checks.
var (
	tracer = otel.Tracer("cppgate.lint")
	meter  = otel.Meter("cppgate.lint")
)

// Metrics for lexical checks.
var (
	checkLatency metric.Float64Histogram
	checkTotal   metric.Int64Counter
	issuesTotal  metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		checkLatency, err = meter.Float64Histogram(
			"cppgate_lint_duration_seconds",
			metric.WithDescription("Duration of the lexical pass per file"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		checkTotal, err = meter.Int64Counter(
			"cppgate_lint_files_total",
			metric.WithDescription("Total number of files checked by the lexical pass"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		issuesTotal, err = meter.Int64Counter(
			"cppgate_lint_issues_total",
			metric.WithDescription("Total number of lexical issues by rule"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startCheckSpan creates a span for one file's lexical check.
func startCheckSpan(ctx context.Context, file *SourceFile) (context.Context, trace.Span) {
	return tracer.Start(ctx, "lint.Engine.Check",
		trace.WithAttributes(
			attribute.String("lint.file_path", file.Path),
			attribute.String("lint.kind", file.Kind.String()),
		),
	)
}

// setCheckSpanResult sets the result attributes on a check span.
func setCheckSpanResult(span trace.Span, result Result) {
	span.SetAttributes(
		attribute.Int("lint.issue_count", len(result.Issues)),
		attribute.Bool("lint.calls_poll", result.CallsPoll),
	)
}

// recordCheckMetrics records metrics for one file's lexical check.
func recordCheckMetrics(ctx context.Context, kind FileKind, issues []Issue, duration time.Duration) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.String("kind", kind.String()))
	checkLatency.Record(ctx, duration.Seconds(), attrs)
	checkTotal.Add(ctx, 1, attrs)

	perRule := make(map[string]int64)
	for _, issue := range issues {
		perRule[issue.Rule]++
	}
	for rule, n := range perRule {
		issuesTotal.Add(ctx, n, metric.WithAttributes(
			attribute.String("kind", kind.String()),
			attribute.String("rule", rule),
		))
	}
}
