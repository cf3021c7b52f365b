// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-runs the checks when C++ files change.
package watch

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/AleutianAI/cppgate/services/gate/files"
	"github.com/fsnotify/fsnotify"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"
)

// ErrClosed is returned when the underlying fsnotify watcher shuts down
// while Run is still active.
var ErrClosed = errors.New("watch: watcher closed")

// RunFunc performs one full check. An error is logged and watching
// continues; findings are the normal outcome of a run, not a failure of
// the watcher.
type RunFunc func(ctx context.Context) error

// Options configures a Watcher.
type Options struct {
	// Debounce is how long the tree must stay quiet before a run starts.
	// Default: 200ms
	Debounce time.Duration

	// MinInterval is the minimum time between the starts of two runs.
	// Zero disables the limit.
	MinInterval time.Duration

	// Extensions select which file changes trigger a run.
	Extensions []string

	// Ignore lists directory base names that are never watched.
	// Default: [".git", "build", ".cache"]
	Ignore []string

	Logger *slog.Logger
}

// DefaultOptions returns the defaults used by the watch command.
func DefaultOptions() Options {
	return Options{
		Debounce:    200 * time.Millisecond,
		MinInterval: time.Second,
		Ignore:      []string{".git", "build", ".cache"},
	}
}

// Watcher triggers a RunFunc after debounced changes under a set of roots.
//
// # Description
//
// Directories under each root are watched recursively; directories
// created later are added as they appear. Events for files that do not
// match Extensions are dropped. Bursts of events collapse into one
// pending run, and a run requested while another is in progress starts
// after it finishes, so runs never overlap.
//
// # Thread Safety
//
// Run must be called once. Close is safe to call from any goroutine.
type Watcher struct {
	roots      []string
	run        RunFunc
	fs         *fsnotify.Watcher
	classifier *files.Classifier
	limiter    *rate.Limiter
	debounce   time.Duration
	ignore     map[string]bool
	logger     *slog.Logger

	// trigger holds at most one pending run.
	trigger chan struct{}

	closeOnce sync.Once
}

// New creates a Watcher. Call Run to start it.
func New(roots []string, run RunFunc, opts Options) (*Watcher, error) {
	if run == nil {
		return nil, errors.New("watch: nil run func")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultOptions().Debounce
	}

	limit := rate.Inf
	if opts.MinInterval > 0 {
		limit = rate.Every(opts.MinInterval)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ignore := make(map[string]bool, len(opts.Ignore))
	for _, name := range opts.Ignore {
		ignore[name] = true
	}

	return &Watcher{
		roots:      roots,
		run:        run,
		fs:         fw,
		classifier: files.NewClassifier(opts.Extensions, opts.Logger),
		limiter:    rate.NewLimiter(limit, 1),
		debounce:   opts.Debounce,
		ignore:     ignore,
		logger:     opts.Logger,
		trigger:    make(chan struct{}, 1),
	}, nil
}

// Run performs an initial run, then watches until ctx is cancelled.
//
// # Outputs
//
//   - error: nil when ctx is cancelled; ErrClosed if the fsnotify watcher
//     stopped on its own; otherwise the error from adding the roots.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.Close()

	watched := 0
	for _, root := range w.roots {
		n, err := w.addRecursive(root)
		if err != nil {
			return err
		}
		watched += n
	}
	w.logger.Info("watching for changes",
		slog.Int("directories", watched),
		slog.Duration("debounce", w.debounce))

	w.request()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return w.eventLoop(gctx) })
	g.Go(func() error { return w.runLoop(gctx) })
	return g.Wait()
}

// Close stops the fsnotify watcher. Safe to call multiple times.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		err = w.fs.Close()
	})
	return err
}

// request queues a run unless one is already pending.
func (w *Watcher) request() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// addRecursive watches root and every directory below it that is not
// ignored. A root that does not exist is skipped.
func (w *Watcher) addRecursive(root string) (int, error) {
	info, err := os.Stat(root)
	if errors.Is(err, fs.ErrNotExist) {
		w.logger.Debug("watch root does not exist, skipping", slog.String("root", root))
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if !info.IsDir() {
		return 1, w.fs.Add(filepath.Dir(root))
	}

	count := 0
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && w.ignore[d.Name()] {
			return filepath.SkipDir
		}
		if err := w.fs.Add(path); err != nil {
			w.logger.Warn("failed to watch directory",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return nil
		}
		count++
		return nil
	})
	return count, err
}

// eventLoop converts fsnotify events into debounced run requests.
func (w *Watcher) eventLoop(ctx context.Context) error {
	var timer *time.Timer
	var timerC <-chan time.Time

	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return ErrClosed
			}
			if !w.relevant(event) {
				continue
			}
			w.logger.Debug("change detected",
				slog.String("path", event.Name),
				slog.String("op", event.Op.String()))

			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}

		case <-timerC:
			timer = nil
			timerC = nil
			w.request()

		case err, ok := <-w.fs.Errors:
			if !ok {
				return ErrClosed
			}
			w.logger.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}

// relevant reports whether event should schedule a run. New directories
// are added to the watch list and count as a change, since files may
// have been moved in with them.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return false
	}
	// Ignored directories are never added, so only their own creation
	// can reach here.
	if w.ignore[filepath.Base(event.Name)] {
		return false
	}
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if _, err := w.addRecursive(event.Name); err != nil {
				w.logger.Warn("failed to watch new directory",
					slog.String("path", event.Name),
					slog.String("error", err.Error()))
			}
			return true
		}
	}
	return w.classifier.Matches(event.Name)
}

// runLoop executes requested runs one at a time.
func (w *Watcher) runLoop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-w.trigger:
		}

		if err := w.limiter.Wait(ctx); err != nil {
			// Only fails when ctx ends first.
			return nil
		}

		start := time.Now()
		err := w.run(ctx)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil {
			w.logger.Info("check finished with findings",
				slog.String("result", err.Error()),
				slog.Duration("duration", time.Since(start)))
			continue
		}
		w.logger.Info("check finished", slog.Duration("duration", time.Since(start)))
	}
}
