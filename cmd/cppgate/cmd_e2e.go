// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/AleutianAI/cppgate/services/gate/e2e"
	"github.com/spf13/cobra"
)

func (a *app) newE2ECmd() *cobra.Command {
	var logs []string
	cmd := &cobra.Command{
		Use:   "e2e-summary <results.json>...",
		Short: "Summarize end-to-end test result files",
		Long: `e2e-summary counts passed and failed tests across tester result files
(JSON objects keyed by test name with an "ok" field) and scans server logs
for leak and open file descriptor reports. It fails when any test failed
or any log reported a leak.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			agg, err := e2e.NewAggregator(a.cfg.E2E.Markers, a.log.Slog())
			if err != nil {
				return &exitError{Code: ExitError, Err: err}
			}
			summary, err := agg.Aggregate(cmd.Context(), args, logs)
			if err != nil {
				return &exitError{Code: ExitError, Err: err}
			}
			if err := e2e.WriteSummary(a.stdout, summary); err != nil {
				return &exitError{Code: ExitError, Err: err}
			}
			if !summary.OK() {
				return &exitError{Code: ExitIssues, Err: errIssuesFound}
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&logs, "log", nil, "server log file to scan for leaks (repeatable)")
	return cmd
}
