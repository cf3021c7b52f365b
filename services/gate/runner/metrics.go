// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

var (
	tracer = otel.Tracer("cppgate.runner")
	meter  = otel.Meter("cppgate.runner")
)

var (
	runLatency  metric.Float64Histogram
	runTotal    metric.Int64Counter
	runFiles    metric.Int64Histogram
	pollCalls   metric.Int64Histogram
	metricsOnce sync.Once
	metricsErr  error
)

// initMetrics initializes the metrics. Safe to call multiple times.
func initMetrics() error {
	metricsOnce.Do(func() {
		var err error

		runLatency, err = meter.Float64Histogram(
			"cppgate_run_duration_seconds",
			metric.WithDescription("Duration of a checker run"),
			metric.WithUnit("s"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runTotal, err = meter.Int64Counter(
			"cppgate_runs_total",
			metric.WithDescription("Total number of checker runs by outcome"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		runFiles, err = meter.Int64Histogram(
			"cppgate_run_files",
			metric.WithDescription("Number of files checked per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}

		pollCalls, err = meter.Int64Histogram(
			"cppgate_run_poll_calls",
			metric.WithDescription("Number of source files calling poll() per run"),
		)
		if err != nil {
			metricsErr = err
			return
		}
	})
	return metricsErr
}

func startRunSpan(ctx context.Context, req Request) (context.Context, trace.Span) {
	return tracer.Start(ctx, "runner.Runner.Run",
		trace.WithAttributes(
			attribute.String("runner.name", req.Name),
			attribute.StringSlice("runner.roots", req.Roots),
			attribute.Bool("runner.lexical", req.Passes.Has(PassLexical)),
			attribute.Bool("runner.structural", req.Passes.Has(PassStructural)),
			attribute.Bool("runner.patch", req.Patch != nil),
		),
	)
}

func setRunSpanResult(span trace.Span, report *Report) {
	span.SetAttributes(
		attribute.String("runner.run_id", report.RunID),
		attribute.Int("runner.files", report.Checked),
		attribute.Int("runner.issues", report.IssueCount()),
		attribute.Int("runner.poll_calls", report.PollCalls),
		attribute.Bool("runner.failed", report.Failed()),
	)
}

func recordRunMetrics(ctx context.Context, report *Report) {
	if err := initMetrics(); err != nil {
		return
	}

	outcome := "pass"
	if report.Failed() {
		outcome = "fail"
	}
	attrs := metric.WithAttributes(attribute.String("run", report.Name))
	runLatency.Record(ctx, report.Duration.Seconds(), attrs)
	runTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("run", report.Name),
		attribute.String("outcome", outcome),
	))
	runFiles.Record(ctx, int64(report.Checked), attrs)
	pollCalls.Record(ctx, int64(report.PollCalls), attrs)
}
