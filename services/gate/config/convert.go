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
	"fmt"
	"log/slog"

	"github.com/AleutianAI/cppgate/services/gate/lint"
)

// LintOptions converts the rule and comment sections into engine options.
func (c Config) LintOptions(logger *slog.Logger) (lint.Options, error) {
	patterns := make([]lint.PatternRule, 0, len(c.Rules.Patterns))
	for _, p := range c.Rules.Patterns {
		rule, err := p.PatternRule()
		if err != nil {
			return lint.Options{}, err
		}
		patterns = append(patterns, rule)
	}

	return lint.Options{
		Disabled: c.Rules.Disabled,
		Patterns: patterns,
		Comments: lint.CommentOptions{
			Prefixes:  c.Comments.Prefixes,
			FirstOnly: c.Comments.FirstOnly,
		},
		PollPattern: c.Poll.Pattern,
		Logger:      logger,
	}, nil
}

// PatternRule converts the YAML declaration into a lint.PatternRule.
// Config-declared patterns match the raw text, comments included.
func (p PatternConfig) PatternRule() (lint.PatternRule, error) {
	category, err := lint.ParseCategory(p.Category)
	if err != nil {
		return lint.PatternRule{}, fmt.Errorf("%w: rule %s: %v", ErrInvalidConfig, p.ID, err)
	}

	var kinds []lint.FileKind
	for _, k := range p.Kinds {
		kind, err := lint.ParseKind(k)
		if err != nil {
			return lint.PatternRule{}, fmt.Errorf("%w: rule %s: %v", ErrInvalidConfig, p.ID, err)
		}
		kinds = append(kinds, kind)
	}

	return lint.PatternRule{
		ID:       p.ID,
		Pattern:  p.Pattern,
		Message:  p.Message,
		Kinds:    kinds,
		Category: category,
		Raw:      true,
	}, nil
}
