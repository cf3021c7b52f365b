// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package e2e summarizes end-to-end HTTP test results.
//
// Each tester writes one JSON object keyed by test name. The aggregator
// counts passes and failures across all of them and scans server logs
// for resource-leak markers; the run is successful only when nothing
// failed and no marker was found.
package e2e

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"sort"

	"golang.org/x/sync/errgroup"
)

// ErrNoResults is returned when Aggregate is called without result files.
var ErrNoResults = errors.New("no result files given")

// DefaultMarkers match leak reports from valgrind, LeakSanitizer and
// valgrind's --track-fds.
var DefaultMarkers = []string{
	`(?i)open file descriptor`,
	`definitely lost: [1-9]`,
	`indirectly lost: [1-9]`,
	`ERROR: LeakSanitizer`,
	`(?i)memory leak`,
}

// TestResult is one entry of a tester's result file.
type TestResult struct {
	Name         string `json:"name"`
	Tester       string `json:"tester,omitempty"`
	URL          string `json:"url,omitempty"`
	Method       string `json:"method,omitempty"`
	OK           bool   `json:"ok"`
	Status       int    `json:"status,omitempty"`
	Error        string `json:"error,omitempty"`
	TimeMS       int64  `json:"time_ms,omitempty"`
	ExpectedBody string `json:"expected_body,omitempty"`
	ActualBody   string `json:"actual_body,omitempty"`
}

// Failure identifies a failed test.
type Failure struct {
	File   string `json:"file"`
	Name   string `json:"name"`
	Status int    `json:"status,omitempty"`
	Error  string `json:"error,omitempty"`
}

// Marker is a log line that matched a leak pattern.
type Marker struct {
	File string `json:"file"`
	Line int    `json:"line"`
	Text string `json:"text"`
}

// Summary is the aggregated outcome.
type Summary struct {
	Total    int       `json:"total"`
	Passed   int       `json:"passed"`
	Failed   int       `json:"failed"`
	Failures []Failure `json:"failures,omitempty"`
	Markers  []Marker  `json:"leak_markers,omitempty"`
}

// OK reports whether the end-to-end run passed.
func (s *Summary) OK() bool {
	return s.Failed == 0 && len(s.Markers) == 0
}

// Aggregator reads result files and logs.
type Aggregator struct {
	markers []*regexp.Regexp
	logger  *slog.Logger
}

// NewAggregator compiles markers. A nil list means DefaultMarkers.
func NewAggregator(markers []string, logger *slog.Logger) (*Aggregator, error) {
	if markers == nil {
		markers = DefaultMarkers
	}
	if logger == nil {
		logger = slog.Default()
	}
	a := &Aggregator{logger: logger}
	for _, m := range markers {
		re, err := regexp.Compile(m)
		if err != nil {
			return nil, fmt.Errorf("compile marker %q: %w", m, err)
		}
		a.markers = append(a.markers, re)
	}
	return a, nil
}

// Aggregate reads every result file and scans every log file.
//
// Files are read concurrently; the summary is assembled in argument
// order, so the output does not depend on scheduling. Any unreadable or
// malformed file aborts the aggregation.
func (a *Aggregator) Aggregate(ctx context.Context, resultPaths, logPaths []string) (*Summary, error) {
	if len(resultPaths) == 0 {
		return nil, ErrNoResults
	}

	results := make([]map[string]TestResult, len(resultPaths))
	markers := make([][]Marker, len(logPaths))

	g, gctx := errgroup.WithContext(ctx)
	for i, path := range resultPaths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			r, err := readResults(path)
			if err != nil {
				return err
			}
			results[i] = r
			return nil
		})
	}
	for i, path := range logPaths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			m, err := a.scanLog(path)
			if err != nil {
				return err
			}
			markers[i] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	s := &Summary{}
	for i, byName := range results {
		names := make([]string, 0, len(byName))
		for name := range byName {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			r := byName[name]
			s.Total++
			if r.OK {
				s.Passed++
				continue
			}
			s.Failed++
			s.Failures = append(s.Failures, Failure{
				File:   resultPaths[i],
				Name:   name,
				Status: r.Status,
				Error:  r.Error,
			})
		}
	}
	for _, m := range markers {
		s.Markers = append(s.Markers, m...)
	}

	a.logger.Debug("e2e results aggregated",
		slog.Int("result_files", len(resultPaths)),
		slog.Int("log_files", len(logPaths)),
		slog.Int("total", s.Total),
		slog.Int("failed", s.Failed),
		slog.Int("markers", len(s.Markers)))
	return s, nil
}

func readResults(path string) (map[string]TestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}
	var byName map[string]TestResult
	if err := json.Unmarshal(data, &byName); err != nil {
		return nil, fmt.Errorf("parse results %s: %w", path, err)
	}
	return byName, nil
}

func (a *Aggregator) scanLog(path string) ([]Marker, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open log: %w", err)
	}
	defer f.Close()

	var found []Marker
	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for n := 1; sc.Scan(); n++ {
		line := sc.Text()
		for _, re := range a.markers {
			if re.MatchString(line) {
				found = append(found, Marker{File: path, Line: n, Text: line})
				break
			}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("scan log %s: %w", path, err)
	}
	return found, nil
}
