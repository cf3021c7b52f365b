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
	"net"
	"time"

	"github.com/AleutianAI/cppgate/services/gate/live"
	"github.com/AleutianAI/cppgate/services/gate/watch"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

func (a *app) newWatchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [roots...]",
		Short: "Run check whenever a header or source changes",
		Long: `watch runs check once, then again after every burst of changes to a
header or source file under the roots. Runs never overlap. Stop with Ctrl-C.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWatch(cmd.Context(), args)
		},
	}
	cmd.Flags().BoolVar(&a.noAST, "no-ast", false, "skip the structural (AST) pass")
	cmd.Flags().StringVar(&a.listen, "listen", "", "serve the latest report over HTTP and websocket at host:port")
	return cmd
}

func (a *app) runWatch(ctx context.Context, args []string) error {
	req := a.checkRequest()
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

	opts := watch.Options{
		Debounce:    a.cfg.Watch.Debounce,
		MinInterval: a.cfg.Watch.MinInterval,
		Ignore:      a.cfg.Watch.Ignore,
		Extensions:  append(append([]string(nil), a.cfg.Extensions.Headers...), a.cfg.Extensions.Sources...),
		Logger:      a.log.Slog(),
	}
	pal := a.palette()
	w, err := watch.New(req.Roots, func(ctx context.Context) error {
		if !a.jsonOut {
			fmt.Fprintln(a.stdout, pal.Title(fmt.Sprintf("cppgate watch: %s", time.Now().Format(time.TimeOnly))))
		}
		return a.runOnce(ctx, g, req)
	}, opts)
	if err != nil {
		return &exitError{Code: ExitError, Err: err}
	}

	listen := a.cfg.Watch.Listen
	if a.listen != "" {
		listen = a.listen
	}
	if listen == "" {
		if err := w.Run(ctx); err != nil {
			return &exitError{Code: ExitError, Err: err}
		}
		return nil
	}

	g.live = live.New(a.log.Slog())
	ln, err := net.Listen("tcp", listen)
	if err != nil {
		_ = w.Close()
		return usageError("listen %s: %v", listen, err)
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error { return w.Run(ctx) })
	eg.Go(func() error { return g.live.Serve(ctx, ln) })
	if err := eg.Wait(); err != nil {
		return &exitError{Code: ExitError, Err: err}
	}
	return nil
}
