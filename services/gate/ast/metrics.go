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
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Package-level tracer and meter for the structural pass.
var (
	tracer = otel.Tracer("cppgate.ast")
	meter  = otel.Meter("cppgate.ast")
)

// Metrics for translation unit parsing and checking.
var (
	parseLatency     metric.Float64Histogram
	parseTotal       metric.Int64Counter
	diagnosticsCount metric.Int64Histogram
	parseFailures    metric.Int64Counter
	structuralIssues metric.Int64Counter

	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		parseLatency, err = meter.Float64Histogram(
			"cppgate_ast_parse_duration_seconds",
			metric.WithDescription("Duration of translation unit parsing"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseTotal, err = meter.Int64Counter(
			"cppgate_ast_parse_total",
			metric.WithDescription("Total number of translation units parsed"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		diagnosticsCount, err = meter.Int64Histogram(
			"cppgate_ast_diagnostics",
			metric.WithDescription("Number of diagnostics per translation unit"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		parseFailures, err = meter.Int64Counter(
			"cppgate_ast_parse_failures_total",
			metric.WithDescription("Files whose structural pass stopped on a parse failure"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		structuralIssues, err = meter.Int64Counter(
			"cppgate_ast_issues_total",
			metric.WithDescription("Total number of structural issues by rule"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

// startParseSpan creates a span for a parse operation.
func startParseSpan(ctx context.Context, filePath string, contentSize int) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ast.TUParser.Parse",
		trace.WithAttributes(
			attribute.String("ast.file_path", filePath),
			attribute.Int("ast.content_size", contentSize),
		),
	)
}

// setParseSpanResult sets the result attributes on a parse span.
func setParseSpanResult(span trace.Span, tu *TranslationUnit) {
	span.SetAttributes(
		attribute.Int("ast.includes", len(tu.Includes)),
		attribute.Int("ast.diagnostics", len(tu.Diagnostics)),
		attribute.Bool("ast.has_errors", tu.HasErrors()),
	)
}

// recordParseMetrics records metrics for a parse operation.
func recordParseMetrics(ctx context.Context, duration time.Duration, diagnostics int, success bool) {
	if err := initMetrics(); err != nil {
		return
	}

	attrs := metric.WithAttributes(attribute.Bool("success", success))
	parseLatency.Record(ctx, duration.Seconds(), attrs)
	parseTotal.Add(ctx, 1, attrs)
	if success {
		diagnosticsCount.Record(ctx, int64(diagnostics))
	}
}

// startCheckSpan creates a span for one file's structural check.
func startCheckSpan(ctx context.Context, filePath string) (context.Context, trace.Span) {
	return tracer.Start(ctx, "ast.Checker.Check",
		trace.WithAttributes(attribute.String("ast.file_path", filePath)),
	)
}

// recordCheckMetrics records the outcome of one file's structural check.
func recordCheckMetrics(ctx context.Context, rules []string, parseFailed bool) {
	if err := initMetrics(); err != nil {
		return
	}

	if parseFailed {
		parseFailures.Add(ctx, 1)
	}
	for _, rule := range rules {
		structuralIssues.Add(ctx, 1, metric.WithAttributes(attribute.String("rule", rule)))
	}
}
