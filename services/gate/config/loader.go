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
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// LookupEnv matches os.LookupEnv; tests substitute a map lookup.
type LookupEnv func(key string) (string, bool)

// Load reads the configuration for a run.
//
// Description:
//
//	If path is empty, DefaultFileName in the working directory is used
//	when present and DefaultConfig otherwise. An explicit path that does
//	not exist is an error. Environment overrides are applied from the
//	process environment and the result is validated.
//
// Inputs:
//
//	path - Config file path, or "" for the default lookup
//
// Outputs:
//
//	Config - The merged configuration
//	error  - Non-nil if the file cannot be read, parsed or validated
func Load(path string) (Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup LookupEnv) (Config, error) {
	cfg := DefaultConfig()

	explicit := path != ""
	if !explicit {
		path = DefaultFileName
	}

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := Parse(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
		// no file: defaults
	default:
		return Config{}, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	if err := ApplyEnv(&cfg, lookup); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes YAML over cfg. Keys absent from data keep their current
// values; lists present in data replace the current list entirely.
func Parse(data []byte, cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("%w: nil config", ErrInvalidConfig)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// ApplyEnv overrides cfg from CPPGATE_* variables.
//
// Recognised: CPPGATE_ROOTS and CPPGATE_INCLUDE_PATHS (os.PathListSeparator
// separated), CPPGATE_AST_ENABLED, CPPGATE_POLL_BUDGET, CPPGATE_LOG_LEVEL,
// CPPGATE_LOG_DIR, CPPGATE_TRACE_EXPORTER, CPPGATE_METRIC_EXPORTER,
// CPPGATE_OTLP_ENDPOINT, CPPGATE_METRICS_FILE, CPPGATE_CACHE_DIR,
// CPPGATE_INFLUX_URL and CPPGATE_INFLUX_TOKEN.
func ApplyEnv(cfg *Config, lookup LookupEnv) error {
	if v, ok := lookup("CPPGATE_ROOTS"); ok && v != "" {
		cfg.Roots = filepath.SplitList(v)
	}
	if v, ok := lookup("CPPGATE_INCLUDE_PATHS"); ok && v != "" {
		cfg.IncludePaths = filepath.SplitList(v)
	}
	if v, ok := lookup("CPPGATE_AST_ENABLED"); ok && v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: CPPGATE_AST_ENABLED=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.AST.Enabled = b
	}
	if v, ok := lookup("CPPGATE_POLL_BUDGET"); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: CPPGATE_POLL_BUDGET=%q: %v", ErrInvalidConfig, v, err)
		}
		cfg.Poll.Budget = n
	}

	strs := map[string]*string{
		"CPPGATE_LOG_LEVEL":       &cfg.Logging.Level,
		"CPPGATE_LOG_DIR":         &cfg.Logging.Dir,
		"CPPGATE_TRACE_EXPORTER":  &cfg.Telemetry.TraceExporter,
		"CPPGATE_METRIC_EXPORTER": &cfg.Telemetry.MetricExporter,
		"CPPGATE_OTLP_ENDPOINT":   &cfg.Telemetry.OTLPEndpoint,
		"CPPGATE_METRICS_FILE":    &cfg.Telemetry.MetricsFile,
		"CPPGATE_CACHE_DIR":       &cfg.Cache.Dir,
		"CPPGATE_INFLUX_URL":      &cfg.Telemetry.Influx.URL,
		"CPPGATE_INFLUX_TOKEN":    &cfg.Telemetry.Influx.Token,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	return nil
}

// Validate checks the configuration for values that would make a run
// meaningless. Field rules come from the validate struct tags; every
// pattern is compiled here so a bad regex is reported once, before any
// file is read.
func (c Config) Validate() error {
	if err := configValidate.Struct(c); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, describeValidation(err))
	}

	if len(c.Extensions.Headers) == 0 && len(c.Extensions.Sources) == 0 {
		return fmt.Errorf("%w: no file extensions configured", ErrInvalidConfig)
	}

	seen := make(map[string]bool, len(c.Rules.Patterns))
	for _, p := range c.Rules.Patterns {
		if seen[p.ID] {
			return fmt.Errorf("%w: rules.patterns: duplicate id %q", ErrInvalidConfig, p.ID)
		}
		seen[p.ID] = true
	}
	return nil
}
