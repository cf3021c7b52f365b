// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package makefile cross-checks the .cpp files on disk against the ones a
// Makefile lists.
//
// Files are compared by base name: Makefiles in the projects cppgate
// targets list sources as bare names and rely on VPATH, so two files with
// the same name in different directories are not told apart.
package makefile

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"

	"github.com/AleutianAI/cppgate/services/gate/files"
)

// DefaultIgnore lists sources that are built outside the Makefile.
var DefaultIgnore = []string{"cxx_runner.cpp"}

var (
	// ErrNotDirectory is returned when the source root is missing or is a file.
	ErrNotDirectory = errors.New("source root does not exist or is not a directory")

	// ErrNoMakefile is returned when the Makefile cannot be read.
	ErrNoMakefile = errors.New("makefile does not exist")
)

var (
	cppNamePattern      = regexp.MustCompile(`[A-Za-z0-9_.-]+\.cpp`)
	commentedCppPattern = regexp.MustCompile(`#.*\.cpp`)
)

// Result is the outcome of one cross-check.
type Result struct {
	// CommentedOut holds the 1-based Makefile lines where a .cpp name
	// appears after a '#'.
	CommentedOut []int

	// Missing are on-disk files the Makefile never names. Sorted.
	Missing []string

	// Extra are names in the Makefile with no file on disk. Sorted.
	// Reported, but not a failure.
	Extra []string

	// OnDisk is the number of distinct .cpp base names found.
	OnDisk int
}

// Failed reports whether the Makefile check should fail the build.
func (r Result) Failed() bool {
	return len(r.CommentedOut) > 0 || len(r.Missing) > 0
}

// Checker compares a source tree with a Makefile.
type Checker struct {
	ignore map[string]bool
	logger *slog.Logger
}

// NewChecker creates a Checker. A nil ignore list means DefaultIgnore.
func NewChecker(ignore []string, logger *slog.Logger) *Checker {
	if ignore == nil {
		ignore = DefaultIgnore
	}
	if logger == nil {
		logger = slog.Default()
	}
	set := make(map[string]bool, len(ignore))
	for _, name := range ignore {
		set[name] = true
	}
	return &Checker{ignore: set, logger: logger}
}

// CheckPaths reads the Makefile at makefilePath and checks it against
// the .cpp files under dir.
func (c *Checker) CheckPaths(dir, makefilePath string) (Result, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		abs, _ := filepath.Abs(dir)
		return Result{}, fmt.Errorf("%w: %s", ErrNotDirectory, abs)
	}
	text, err := os.ReadFile(makefilePath)
	if err != nil {
		abs, _ := filepath.Abs(makefilePath)
		return Result{}, fmt.Errorf("%w: %s", ErrNoMakefile, abs)
	}
	return c.Check(dir, text)
}

// Check compares the .cpp base names under dir with makefile.
func (c *Checker) Check(dir string, makefile []byte) (Result, error) {
	paths, err := files.NewClassifier([]string{".cpp"}, c.logger).Collect([]string{dir})
	if err != nil {
		return Result{}, fmt.Errorf("collect sources: %w", err)
	}

	onDisk := make(map[string]bool, len(paths))
	for _, p := range paths {
		onDisk[filepath.Base(p)] = true
	}

	listed := make(map[string]bool)
	for _, name := range cppNamePattern.FindAll(makefile, -1) {
		listed[string(name)] = true
	}

	res := Result{
		CommentedOut: commentedLines(makefile),
		OnDisk:       len(onDisk),
	}
	for name := range onDisk {
		if !listed[name] && !c.ignore[name] {
			res.Missing = append(res.Missing, name)
		}
	}
	for name := range listed {
		if !onDisk[name] && !c.ignore[name] {
			res.Extra = append(res.Extra, name)
		}
	}
	sort.Strings(res.Missing)
	sort.Strings(res.Extra)

	c.logger.Debug("makefile check complete",
		slog.Int("on_disk", res.OnDisk),
		slog.Int("listed", len(listed)),
		slog.Int("missing", len(res.Missing)),
		slog.Int("extra", len(res.Extra)),
		slog.Int("commented_out", len(res.CommentedOut)))
	return res, nil
}

func commentedLines(makefile []byte) []int {
	var lines []int
	for i, line := range bytes.Split(makefile, []byte("\n")) {
		if commentedCppPattern.Match(line) {
			lines = append(lines, i+1)
		}
	}
	return lines
}
