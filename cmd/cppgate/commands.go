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
	"errors"
	"fmt"
	"io"

	"github.com/AleutianAI/cppgate/pkg/logging"
	"github.com/AleutianAI/cppgate/services/gate/config"
	"github.com/AleutianAI/cppgate/services/gate/lint"
	"github.com/AleutianAI/cppgate/services/gate/runner"
	"github.com/AleutianAI/cppgate/services/gate/telemetry"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

// app holds the global flags and everything PersistentPreRunE builds from
// them. One app backs one command tree.
type app struct {
	stdout io.Writer
	stderr io.Writer

	// --- Global flags ---
	configPath  string
	logLevel    string
	jsonOut     bool
	metricsFile string
	patchPath   string
	noColor     bool
	noAST       bool
	cacheDir    string
	listen      string
	interactive bool

	cfg      config.Config
	log      *logging.Logger
	shutdown func(context.Context) error
}

// newRootCmd builds the command tree writing to stdout and stderr.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:   "cppgate",
		Short: "Style and structural gate for C++ projects",
		Long: `cppgate checks C++ headers and sources against a fixed set of style
rules (include guards, comment tags, using directives, return formatting)
and structural rules (namespace enclosure, special member functions).
It is meant to run as a pre-commit hook or CI step.`,
		Version:           version,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "configuration file (default "+config.DefaultFileName+" if present)")
	flags.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.BoolVar(&a.jsonOut, "json", false, "print a machine-readable report on stdout")
	flags.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics for the run to this file")
	flags.StringVar(&a.patchPath, "patch", "", "only check files touched by this unified diff")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")
	flags.StringVar(&a.cacheDir, "cache-dir", "", "cache lexical results in this directory")

	lintCmds := []*cobra.Command{
		{
			Use:   "headers [roots...]",
			Short: "Check header files",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runCheck(cmd.Context(), runner.Request{
					Name:   "headers",
					Kinds:  []lint.FileKind{lint.KindHeader},
					Passes: a.passes(),
				}, args)
			},
		},
		{
			Use:   "sources [roots...]",
			Short: "Check source files, including the poll() budget",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runCheck(cmd.Context(), runner.Request{
					Name:   "sources",
					Kinds:  []lint.FileKind{lint.KindSource},
					Passes: a.passes(),
				}, args)
			},
		},
		{
			Use:   "check [roots...]",
			Short: "Check headers, then sources",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runCheck(cmd.Context(), a.checkRequest(), args)
			},
		},
	}
	for _, c := range lintCmds {
		c.Flags().BoolVar(&a.noAST, "no-ast", false, "skip the structural (AST) pass")
		root.AddCommand(c)
	}

	root.AddCommand(
		&cobra.Command{
			Use:   "ast [roots...]",
			Short: "Run only the structural (AST) pass over headers and sources",
			RunE: func(cmd *cobra.Command, args []string) error {
				return a.runCheck(cmd.Context(), runner.Request{
					Name:   "ast",
					Kinds:  []lint.FileKind{lint.KindHeader, lint.KindSource},
					Passes: runner.PassStructural,
				}, args)
			},
		},
		a.newWatchCmd(),
		a.newMakefileCmd(),
		a.newE2ECmd(),
	)
	return root
}

// setup loads configuration, logging and telemetry before any command.
func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return &exitError{Code: ExitError, Err: err}
	}
	if a.logLevel != "" {
		cfg.Logging.Level = a.logLevel
	}
	if a.metricsFile != "" {
		cfg.Telemetry.MetricsFile = a.metricsFile
	}
	if a.noAST {
		cfg.AST.Enabled = false
	}
	if a.cacheDir != "" {
		cfg.Cache.Dir = a.cacheDir
	}
	if err := cfg.CheckVersion(version); err != nil {
		return &exitError{Code: ExitError, Err: err}
	}

	level, ok := logging.ParseLevel(cfg.Logging.Level)
	if !ok {
		return usageError("unknown log level %q", cfg.Logging.Level)
	}
	a.cfg = cfg
	a.log = logging.New(logging.Config{
		Level:   level,
		LogDir:  cfg.Logging.Dir,
		Service: "cppgate",
		JSON:    cfg.Logging.JSON,
		Output:  a.stderr,
	})

	tcfg := telemetry.DefaultConfig()
	tcfg.ServiceVersion = version
	tcfg.TraceExporter = cfg.Telemetry.TraceExporter
	tcfg.MetricExporter = cfg.Telemetry.MetricExporter
	tcfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	tcfg.Output = a.stderr
	shutdown, err := telemetry.Init(cmd.Context(), tcfg)
	if err != nil {
		return &exitError{Code: ExitError, Err: err}
	}
	a.shutdown = shutdown

	a.log.Debug("configuration loaded",
		"command", cmd.Name(),
		"config", a.configPath,
		"roots", cfg.Roots,
		"ast", cfg.AST.Enabled)
	return nil
}

// close flushes telemetry and closes the logger.
func (a *app) close(ctx context.Context) {
	if a.shutdown != nil {
		if err := a.shutdown(ctx); err != nil && a.log != nil {
			a.log.Warn("telemetry shutdown failed", "error", err)
		}
	}
	if a.log != nil {
		_ = a.log.Close()
	}
}

// passes returns the passes for headers, sources and check.
func (a *app) passes() runner.Pass {
	if a.cfg.AST.Enabled {
		return runner.PassAll
	}
	return runner.PassLexical
}

func (a *app) checkRequest() runner.Request {
	return runner.Request{
		Name:   "check",
		Kinds:  []lint.FileKind{lint.KindHeader, lint.KindSource},
		Passes: a.passes(),
	}
}

// execute runs the command tree for args and returns the exit code.
func execute(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	a := &app{stdout: stdout, stderr: stderr}
	root := newRootCmd(a)
	root.SetArgs(args)

	err := root.ExecuteContext(ctx)
	a.close(context.Background())

	if err != nil && !errors.Is(err, errIssuesFound) {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}
