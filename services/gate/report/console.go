// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package report renders a run for people, for machines and for
// Prometheus.
package report

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/AleutianAI/cppgate/pkg/ux"
	"github.com/AleutianAI/cppgate/services/gate/runner"
)

// WriteText prints the stdout contract.
//
// A clean run prints one banner line. Otherwise every file with issues
// gets a "PATH:" header followed by one tab-indented "line N: message" or
// "file-level: message" line per issue, then run-level issues, then a
// summary line.
func WriteText(w io.Writer, r *runner.Report, pal ux.Palette) error {
	bw := bufio.NewWriter(w)

	if !r.Failed() {
		fmt.Fprintf(bw, "%s %s\n", pal.Icon(ux.IconSuccess),
			pal.Success(fmt.Sprintf("cppgate: %s checker found no issues (%d files)", r.Name, r.Checked)))
		return bw.Flush()
	}

	failedFiles := 0
	for _, f := range r.Files {
		if len(f.Issues) == 0 {
			continue
		}
		failedFiles++
		fmt.Fprintf(bw, "%s:\n", pal.Path(f.Path))
		for _, issue := range f.Issues {
			fmt.Fprintf(bw, "\t%s: %s\n", pal.Muted(issue.Location()), issue.Message)
		}
	}
	if len(r.RunIssues) > 0 {
		fmt.Fprintf(bw, "%s:\n", pal.Path("project"))
		for _, issue := range r.RunIssues {
			fmt.Fprintf(bw, "\t%s\n", issue.Message)
		}
	}

	fmt.Fprintf(bw, "%s %s\n", pal.Icon(ux.IconError),
		pal.Error(fmt.Sprintf("cppgate: %s checker found %s in %s (%d files checked)",
			r.Name, plural(r.IssueCount(), "issue"), plural(failedFiles, "file"), r.Checked)))
	return bw.Flush()
}

// WriteNoFiles prints the informational notice for a run with nothing
// to check.
func WriteNoFiles(w io.Writer, name string, roots []string, pal ux.Palette) error {
	_, err := fmt.Fprintf(w, "%s %s\n", pal.Icon(ux.IconWarning),
		pal.Warning(fmt.Sprintf("cppgate: no %s files found under %s; nothing to check",
			name, strings.Join(roots, ", "))))
	return err
}

func plural(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
