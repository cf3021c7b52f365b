// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package files

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/sourcegraph/go-diff/diff"
)

// TouchedFiles returns the paths a unified diff creates or modifies.
//
// Deleted files (new name /dev/null) are excluded since there is nothing
// left to check. The conventional a/ and b/ prefixes are stripped.
func TouchedFiles(patch []byte) ([]string, error) {
	fileDiffs, err := diff.NewMultiFileDiffReader(bytes.NewReader(patch)).ReadAllFiles()
	if err != nil {
		return nil, fmt.Errorf("parsing patch: %w", err)
	}

	var out []string
	for _, fd := range fileDiffs {
		if fd.NewName == "/dev/null" {
			continue
		}
		name := fd.NewName
		if name == "" {
			name = fd.OrigName
		}
		name = strings.TrimPrefix(name, "a/")
		name = strings.TrimPrefix(name, "b/")
		out = append(out, filepath.Clean(name))
	}
	return out, nil
}

// FilterByPatch keeps only the paths a patch touches.
//
// A collected path is kept when it equals a touched path or ends with it
// on a path-component boundary, so "./include/Foo.hpp" and an absolute
// root both match "include/Foo.hpp" from the diff. Order is preserved.
func FilterByPatch(paths []string, patch []byte) ([]string, error) {
	touched, err := TouchedFiles(patch)
	if err != nil {
		return nil, err
	}

	var out []string
	for _, p := range paths {
		clean := filepath.ToSlash(filepath.Clean(p))
		for _, t := range touched {
			t = filepath.ToSlash(t)
			if clean == t || strings.HasSuffix(clean, "/"+t) {
				out = append(out, p)
				break
			}
		}
	}
	return out, nil
}
