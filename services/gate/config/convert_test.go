// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/cppgate/services/gate/lint"
)

func TestLintOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Rules.Disabled = []string{lint.RuleThrowFormat}
	cfg.Comments.FirstOnly = true
	cfg.Rules.Patterns = []PatternConfig{{
		ID:       "no-printf",
		Pattern:  `\bprintf\s*\(`,
		Message:  "use std::cout",
		Kinds:    []string{"source"},
		Category: "structural",
	}}

	opts, err := cfg.LintOptions(nil)
	require.NoError(t, err)

	assert.Equal(t, []string{lint.RuleThrowFormat}, opts.Disabled)
	assert.True(t, opts.Comments.FirstOnly)
	assert.Equal(t, lint.DefaultPollPattern, opts.PollPattern)
	require.Len(t, opts.Patterns, 1)
	assert.Equal(t, []lint.FileKind{lint.KindSource}, opts.Patterns[0].Kinds)
	assert.Equal(t, lint.StructuralViolation, opts.Patterns[0].Category)
	assert.True(t, opts.Patterns[0].Raw)

	_, err = lint.NewEngine(opts)
	assert.NoError(t, err)
}

func TestPatternRule_BadKind(t *testing.T) {
	_, err := PatternConfig{ID: "x", Pattern: "x", Message: "m", Kinds: []string{"makefile"}}.PatternRule()
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
