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
	"context"
	"fmt"
	"os"

	"github.com/AleutianAI/cppgate/services/gate/runner"
	"github.com/AleutianAI/cppgate/services/gate/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
)

func (a *app) newBrowseCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse [roots...]",
		Short: "Run check and page through the issues interactively",
		Long: `browse runs the same checks as check. When issues are found and stdout
is a terminal they are shown in a pager, one file per page, with the
offending source line quoted. Otherwise the plain report is printed.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			a.interactive = true
			return a.runCheck(cmd.Context(), a.checkRequest(), args)
		},
	}
	cmd.Flags().BoolVar(&a.noAST, "no-ast", false, "skip the structural (AST) pass")
	return cmd
}

// browseReport shows rep in the issue browser until the user quits.
func (a *app) browseReport(ctx context.Context, rep *runner.Report) error {
	out, ok := a.stdout.(*os.File)
	if !ok {
		return fmt.Errorf("browse needs a terminal")
	}
	p := tea.NewProgram(tui.NewBrowser(rep, nil),
		tea.WithContext(ctx),
		tea.WithOutput(out),
		tea.WithAltScreen(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("issue browser: %w", err)
	}
	return nil
}
