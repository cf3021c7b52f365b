// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package files discovers the C++ files a run checks.
package files

import (
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Classifier collects files whose extension is in a fixed set.
//
// Thread Safety: safe for concurrent use after construction.
type Classifier struct {
	exts   map[string]bool
	logger *slog.Logger
}

// NewClassifier creates a Classifier for the given extensions.
//
// Extensions include the leading dot and are matched case-sensitively,
// so ".hpp" does not match "FOO.HPP".
func NewClassifier(exts []string, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	set := make(map[string]bool, len(exts))
	for _, e := range exts {
		set[e] = true
	}
	return &Classifier{exts: set, logger: logger}
}

// Matches reports whether path has one of the classifier's extensions.
func (c *Classifier) Matches(path string) bool {
	return c.exts[filepath.Ext(path)]
}

// Collect walks roots and returns every matching file.
//
// Description:
//
//	A root may be a file (kept if it matches) or a directory (walked
//	recursively). Roots that do not exist are skipped: the default roots
//	are conventional directories a project may not have. Unreadable
//	subdirectories are logged and skipped. Paths keep the form they were
//	given in (relative roots yield relative paths), are cleaned and
//	deduplicated, and are returned sorted so two runs over the same tree
//	see the same order.
//
// Inputs:
//
//	roots - Files or directories to scan
//
// Outputs:
//
//	[]string - Sorted, deduplicated matching paths
//	error    - Non-nil only if a root exists but cannot be inspected
func (c *Classifier) Collect(roots []string) ([]string, error) {
	seen := make(map[string]bool)
	var out []string

	add := func(path string) {
		path = filepath.Clean(path)
		if !seen[path] {
			seen[path] = true
			out = append(out, path)
		}
	}

	for _, root := range roots {
		info, err := os.Stat(root)
		if errors.Is(err, fs.ErrNotExist) {
			c.logger.Debug("root does not exist, skipping", slog.String("root", root))
			continue
		}
		if err != nil {
			return nil, err
		}

		if !info.IsDir() {
			if c.Matches(root) {
				add(root)
			}
			continue
		}

		err = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				c.logger.Warn("skipping unreadable path",
					slog.String("path", path),
					slog.String("error", err.Error()))
				if d != nil && d.IsDir() {
					return filepath.SkipDir
				}
				return nil
			}
			if !d.IsDir() && c.Matches(path) {
				add(path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}

	sort.Strings(out)
	return out, nil
}

// SearchDirs returns the directory roots among roots, cleaned. These are
// the include search paths handed to the AST pass.
func SearchDirs(roots []string) []string {
	var dirs []string
	for _, root := range roots {
		info, err := os.Stat(root)
		if err != nil || !info.IsDir() {
			continue
		}
		dirs = append(dirs, filepath.Clean(root))
	}
	return dirs
}

// IsUnder reports whether path lies inside dir (or is dir).
func IsUnder(path, dir string) bool {
	rel, err := filepath.Rel(dir, path)
	if err != nil {
		return false
	}
	return rel == "." || (rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)))
}
