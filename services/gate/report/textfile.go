// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package report

import (
	"fmt"

	"github.com/AleutianAI/cppgate/services/gate/lint"
	"github.com/AleutianAI/cppgate/services/gate/runner"
	"github.com/prometheus/client_golang/prometheus"
)

// NewRegistry returns a registry holding last-run gauges for r.
//
// The gauges describe one run only; a node-exporter textfile collector
// picks them up after each CI invocation.
func NewRegistry(r *runner.Report) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()

	issues := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cppgate_last_run_issues",
		Help: "Issues found by the last run, by category.",
	}, []string{"run", "category"})
	filesChecked := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cppgate_last_run_files",
		Help: "Files checked by the last run.",
	}, []string{"run"})
	polls := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cppgate_last_run_poll_calls",
		Help: "poll() calls found by the last run.",
	}, []string{"run"})
	failed := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cppgate_last_run_failed",
		Help: "1 if the last run found any issue.",
	}, []string{"run"})
	duration := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "cppgate_last_run_duration_seconds",
		Help: "Wall time of the last run.",
	}, []string{"run"})

	for _, c := range []prometheus.Collector{issues, filesChecked, polls, failed, duration} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register collector: %w", err)
		}
	}

	counts := r.CountByCategory()
	for _, c := range []lint.Category{lint.StyleViolation, lint.StructuralViolation, lint.ParseFailure} {
		issues.WithLabelValues(r.Name, c.String()).Set(float64(counts[c]))
	}
	filesChecked.WithLabelValues(r.Name).Set(float64(r.Checked))
	polls.WithLabelValues(r.Name).Set(float64(r.PollCalls))
	if r.Failed() {
		failed.WithLabelValues(r.Name).Set(1)
	} else {
		failed.WithLabelValues(r.Name).Set(0)
	}
	duration.WithLabelValues(r.Name).Set(r.Duration.Seconds())
	return reg, nil
}

// WriteTextfile writes the last-run gauges for r, plus everything in
// extra (typically prometheus.DefaultGatherer, where the OpenTelemetry
// exporter registers), to path in the text exposition format.
func WriteTextfile(path string, r *runner.Report, extra ...prometheus.Gatherer) error {
	reg, err := NewRegistry(r)
	if err != nil {
		return err
	}
	gatherers := append(prometheus.Gatherers{reg}, extra...)
	if err := prometheus.WriteToTextfile(path, gatherers); err != nil {
		return fmt.Errorf("write metrics textfile %s: %w", path, err)
	}
	return nil
}
