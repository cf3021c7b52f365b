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
	"github.com/AleutianAI/cppgate/services/gate/makefile"
	"github.com/spf13/cobra"
)

func (a *app) newMakefileCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "makefile <dir> <makefile>",
		Short: "Check that every .cpp file under dir is listed in the Makefile",
		Long: `makefile compares the .cpp files under dir (by base name) with the
.cpp names the Makefile mentions. It fails when a file on disk is missing
from the Makefile or when a .cpp name appears in a comment. Names listed
in the Makefile with no file on disk are reported but do not fail.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			checker := makefile.NewChecker(a.cfg.Makefile.Ignore, a.log.Slog())
			res, err := checker.CheckPaths(args[0], args[1])
			if err != nil {
				return &exitError{Code: ExitIssues, Err: err}
			}
			if err := makefile.WriteText(a.stdout, res, a.palette()); err != nil {
				return &exitError{Code: ExitError, Err: err}
			}
			if res.Failed() {
				return &exitError{Code: ExitIssues, Err: errIssuesFound}
			}
			return nil
		},
	}
}
