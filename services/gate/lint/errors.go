// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package lint

import "errors"

var (
	// ErrInvalidRule indicates a rule that cannot be compiled.
	ErrInvalidRule = errors.New("invalid rule")

	// ErrUnknownRule indicates a disabled rule ID that no rule has.
	ErrUnknownRule = errors.New("unknown rule")

	// ErrDuplicateRule indicates two rules with the same ID.
	ErrDuplicateRule = errors.New("duplicate rule id")
)
