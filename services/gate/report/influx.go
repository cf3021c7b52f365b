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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/AleutianAI/cppgate/services/gate/lint"
	"github.com/AleutianAI/cppgate/services/gate/runner"
	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurements written by InfluxSink.
const (
	RunMeasurement  = "cppgate_run"
	RuleMeasurement = "cppgate_rule"
)

// InfluxConfig addresses an InfluxDB v2 bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxSink writes one point per run, plus one per rule that fired, so
// issue counts can be graphed over time.
//
// Thread Safety: Safe for concurrent use.
type InfluxSink struct {
	client influxdb2.Client
	writer api.WriteAPIBlocking
	logger *slog.Logger
}

// NewInfluxSink creates a sink. No connection is made until Write.
func NewInfluxSink(cfg InfluxConfig, logger *slog.Logger) (*InfluxSink, error) {
	if cfg.URL == "" {
		return nil, errors.New("influx url is required")
	}
	if cfg.Org == "" || cfg.Bucket == "" {
		return nil, errors.New("influx org and bucket are required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxSink{
		client: client,
		writer: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		logger: logger,
	}, nil
}

// Write sends the points for rep.
func (s *InfluxSink) Write(ctx context.Context, rep *runner.Report) error {
	points := Points(rep)
	if err := s.writer.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write influx points: %w", err)
	}
	s.logger.Debug("run written to influx", "run_id", rep.RunID, "points", len(points))
	return nil
}

// Close releases the client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// Points converts rep to InfluxDB points stamped with the run start.
func Points(rep *runner.Report) []*write.Point {
	byCat := rep.CountByCategory()
	run := influxdb2.NewPoint(
		RunMeasurement,
		map[string]string{"run": rep.Name},
		map[string]interface{}{
			"run_id":      rep.RunID,
			"files":       int64(rep.Checked),
			"issues":      int64(rep.IssueCount()),
			"style":       int64(byCat[lint.StyleViolation]),
			"structural":  int64(byCat[lint.StructuralViolation]),
			"parse":       int64(byCat[lint.ParseFailure]),
			"poll_calls":  int64(rep.PollCalls),
			"poll_budget": int64(rep.PollBudget),
			"duration_ms": rep.Duration.Milliseconds(),
			"failed":      rep.Failed(),
		},
		rep.Started,
	)
	points := []*write.Point{run}

	byRule := make(map[string]int64)
	for _, issue := range rep.Issues() {
		byRule[issue.Rule]++
	}
	rules := make([]string, 0, len(byRule))
	for rule := range byRule {
		rules = append(rules, rule)
	}
	sort.Strings(rules)
	for _, rule := range rules {
		points = append(points, influxdb2.NewPoint(
			RuleMeasurement,
			map[string]string{"run": rep.Name, "rule": rule},
			map[string]interface{}{"issues": byRule[rule]},
			rep.Started,
		))
	}
	return points
}
