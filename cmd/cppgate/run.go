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
	"log/slog"
	"os"

	"github.com/AleutianAI/cppgate/pkg/ux"
	"github.com/AleutianAI/cppgate/services/gate/ast"
	"github.com/AleutianAI/cppgate/services/gate/cache"
	"github.com/AleutianAI/cppgate/services/gate/files"
	"github.com/AleutianAI/cppgate/services/gate/lint"
	"github.com/AleutianAI/cppgate/services/gate/live"
	"github.com/AleutianAI/cppgate/services/gate/report"
	"github.com/AleutianAI/cppgate/services/gate/runner"
	"github.com/prometheus/client_golang/prometheus"
)

// gate bundles a runner with the parser and cache it owns.
type gate struct {
	runner *runner.Runner
	parser *ast.TUParser
	db     *cache.DB
	cached *cache.Lexical
	sink   *report.InfluxSink
	live   *live.Server
	log    *slog.Logger
}

func (g *gate) close() {
	if g.parser != nil {
		g.parser.Close()
	}
	if g.sink != nil {
		g.sink.Close()
	}
	if g.db != nil {
		hits, misses := g.cached.Stats()
		g.log.Debug("lexical cache", "hits", hits, "misses", misses)
		if err := g.db.Close(); err != nil {
			g.log.Warn("cache close failed", "error", err)
		}
	}
}

// newGate builds the engine, the optional AST checker and the runner for
// roots. The AST include search path is the roots followed by the
// configured include paths.
func (a *app) newGate(roots []string, passes runner.Pass) (*gate, error) {
	logger := a.log.Slog()

	opts, err := a.cfg.LintOptions(logger)
	if err != nil {
		return nil, err
	}
	engine, err := lint.NewEngine(opts)
	if err != nil {
		return nil, fmt.Errorf("build rule engine: %w", err)
	}

	g := &gate{log: logger}
	var lexical runner.LexicalChecker = engine
	if a.cfg.Cache.Dir != "" {
		if err := a.openCache(g, engine); err != nil {
			return nil, err
		}
		lexical = g.cached
	}

	var structural runner.StructuralChecker
	if passes.Has(runner.PassStructural) {
		searchPaths := append(files.SearchDirs(roots), a.cfg.IncludePaths...)
		g.parser = ast.NewTUParser(
			ast.WithSearchPaths(searchPaths...),
			ast.WithSystemPaths(a.cfg.SystemIncludePaths...),
			ast.WithMaxFileSize(a.cfg.AST.MaxFileSize),
			ast.WithLogger(logger),
		)
		structural = ast.NewChecker(g.parser, logger)
	}

	if influx := a.cfg.Telemetry.Influx; influx.URL != "" {
		g.sink, err = report.NewInfluxSink(report.InfluxConfig{
			URL:    influx.URL,
			Token:  influx.Token,
			Org:    influx.Org,
			Bucket: influx.Bucket,
		}, logger)
		if err != nil {
			g.close()
			return nil, err
		}
	}

	g.runner = runner.New(lexical, structural,
		runner.WithExtensions(lint.KindHeader, a.cfg.Extensions.Headers...),
		runner.WithExtensions(lint.KindSource, a.cfg.Extensions.Sources...),
		runner.WithPollBudget(a.cfg.Poll.Budget),
		runner.WithLogger(logger),
	)
	return g, nil
}

// openCache opens the lexical cache and wraps engine with it. The
// fingerprint covers every setting that changes a lexical result.
func (a *app) openCache(g *gate, engine *lint.Engine) error {
	fp, err := cache.Fingerprint(version, a.cfg.Extensions, a.cfg.Rules, a.cfg.Comments, a.cfg.Poll.Pattern)
	if err != nil {
		return err
	}
	ccfg := cache.DefaultConfig(a.cfg.Cache.Dir)
	ccfg.TTL = a.cfg.Cache.TTL
	ccfg.Logger = g.log
	db, err := cache.Open(ccfg)
	if err != nil {
		return err
	}
	g.db = db
	g.cached = cache.NewLexical(engine, db, fp, g.log)
	return nil
}

// roots returns args, or the configured roots when args is empty.
func (a *app) roots(args []string) []string {
	if len(args) > 0 {
		return args
	}
	return a.cfg.Roots
}

func (a *app) readPatch() ([]byte, error) {
	if a.patchPath == "" {
		return nil, nil
	}
	data, err := os.ReadFile(a.patchPath)
	if err != nil {
		return nil, fmt.Errorf("read patch: %w", err)
	}
	return data, nil
}

// runCheck performs one lint run and prints its report.
func (a *app) runCheck(ctx context.Context, req runner.Request, args []string) error {
	req.Roots = a.roots(args)
	patch, err := a.readPatch()
	if err != nil {
		return &exitError{Code: ExitError, Err: err}
	}
	req.Patch = patch

	g, err := a.newGate(req.Roots, req.Passes)
	if err != nil {
		return &exitError{Code: ExitError, Err: err}
	}
	defer g.close()

	return a.runOnce(ctx, g, req)
}

// runOnce runs req on g, prints the report and writes the metrics file.
func (a *app) runOnce(ctx context.Context, g *gate, req runner.Request) error {
	stop := a.progress("cppgate: checking " + req.Name)
	rep, err := g.runner.Run(ctx, req)
	stop()
	if rep != nil && g.live != nil {
		g.live.Publish(rep)
	}
	switch {
	case errors.Is(err, runner.ErrNoFiles):
		if a.jsonOut {
			if err := report.WriteJSON(a.stdout, rep); err != nil {
				return &exitError{Code: ExitError, Err: err}
			}
		} else if err := report.WriteNoFiles(a.stdout, req.Name, req.Roots, a.palette()); err != nil {
			return &exitError{Code: ExitError, Err: err}
		}
		return a.writeMetrics(rep)
	case err != nil:
		return &exitError{Code: ExitError, Err: err}
	}

	switch {
	case a.jsonOut:
		err = report.WriteJSON(a.stdout, rep)
	case a.interactive && rep.Failed() && ux.IsTerminal(a.stdout):
		err = a.browseReport(ctx, rep)
	default:
		err = report.WriteText(a.stdout, rep, a.palette())
	}
	if err != nil {
		return &exitError{Code: ExitError, Err: err}
	}
	if err := a.writeMetrics(rep); err != nil {
		return err
	}
	if g.sink != nil {
		if err := g.sink.Write(ctx, rep); err != nil {
			a.log.Warn("trend point not written", "error", err)
		}
	}

	if rep.Failed() {
		return &exitError{Code: ExitIssues, Err: errIssuesFound}
	}
	return nil
}

// writeMetrics writes the textfile when one is configured. With the
// prometheus exporter the OpenTelemetry metrics live in the default
// registry and are written too.
func (a *app) writeMetrics(rep *runner.Report) error {
	path := a.cfg.Telemetry.MetricsFile
	if path == "" {
		return nil
	}
	var extra []prometheus.Gatherer
	if a.cfg.Telemetry.MetricExporter == "prometheus" {
		extra = append(extra, prometheus.DefaultGatherer)
	}
	if err := report.WriteTextfile(path, rep, extra...); err != nil {
		return &exitError{Code: ExitError, Err: err}
	}
	a.log.Debug("metrics written", "path", path)
	return nil
}

// progress shows a spinner on stderr when it is a terminal and returns
// the function that removes it.
func (a *app) progress(message string) func() {
	if a.jsonOut || !ux.IsTerminal(a.stderr) {
		return func() {}
	}
	spin := ux.NewSpinner(a.stderr, ux.PaletteFor(a.stderr, a.noColor), message)
	spin.Start()
	return spin.Stop
}

func (a *app) palette() ux.Palette {
	return ux.PaletteFor(a.stdout, a.noColor || a.jsonOut)
}
