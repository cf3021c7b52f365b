// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads the cppgate configuration file.
//
// The configuration is a YAML document (default name .cppgate.yaml) merged
// over DefaultConfig, then overridden from CPPGATE_* environment variables
// and validated. Invalid configuration aborts the run before any file is
// processed.
package config

import (
	"errors"
	"time"

	"github.com/AleutianAI/cppgate/services/gate/lint"
)

// DefaultFileName is the configuration file looked up in the working
// directory when --config is not given.
const DefaultFileName = ".cppgate.yaml"

// DefaultPollPattern matches a statement that is a poll( call, optionally
// the initializer of an assignment such as "const int ret = poll(...)".
const DefaultPollPattern = lint.DefaultPollPattern

// ErrInvalidConfig wraps every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// Config is the full cppgate configuration.
type Config struct {
	// Roots are scanned when no roots are passed on the command line.
	Roots []string `yaml:"roots"`

	Extensions ExtensionsConfig `yaml:"extensions"`

	// IncludePaths are extra directories searched for quoted includes,
	// after the including file's directory and the roots.
	IncludePaths []string `yaml:"include_paths"`

	// SystemIncludePaths are searched last. Headers found only here are
	// treated as opaque by the AST pass.
	SystemIncludePaths []string `yaml:"system_include_paths"`

	AST       ASTConfig       `yaml:"ast"`
	Rules     RulesConfig     `yaml:"rules"`
	Comments  CommentsConfig  `yaml:"comments"`
	Poll      PollConfig      `yaml:"poll"`
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Watch     WatchConfig     `yaml:"watch"`
	Makefile  MakefileConfig  `yaml:"makefile"`
	E2E       E2EConfig       `yaml:"e2e"`
	Cache     CacheConfig     `yaml:"cache"`

	// MinVersion is the oldest cppgate release this file supports, as a
	// semantic version such as "v1.2.0". Empty accepts any release.
	MinVersion string `yaml:"min_version" validate:"omitempty,release"`
}

// ExtensionsConfig selects files by extension, including the leading dot.
type ExtensionsConfig struct {
	Headers []string `yaml:"headers" validate:"dive,startswith=."`
	Sources []string `yaml:"sources" validate:"dive,startswith=."`
}

// ASTConfig controls the structural pass.
type ASTConfig struct {
	Enabled bool `yaml:"enabled"`

	// MaxFileSize in bytes; larger files fail the AST pass for that file.
	MaxFileSize int64 `yaml:"max_file_size" validate:"min=0"`
}

// RulesConfig disables built-in rules and declares extra pattern rules.
type RulesConfig struct {
	Disabled []string        `yaml:"disabled"`
	Patterns []PatternConfig `yaml:"patterns" validate:"dive"`
}

// PatternConfig declares a regex rule.
//
// Kinds lists "header" and/or "source"; empty means both. Category is
// "style" (default) or "structural".
type PatternConfig struct {
	ID       string   `yaml:"id" validate:"required"`
	Pattern  string   `yaml:"pattern" validate:"required,regex"`
	Message  string   `yaml:"message" validate:"required"`
	Kinds    []string `yaml:"kinds" validate:"dive,oneof=header source"`
	Category string   `yaml:"category" validate:"omitempty,oneof=style structural"`
}

// CommentsConfig tunes the comment classifier.
type CommentsConfig struct {
	// Prefixes are regular expressions anchored at the start of the
	// comment body (the text after // or /*).
	Prefixes []string `yaml:"prefixes" validate:"dive,regex"`

	// FirstOnly reports only the first unclassified comment of each
	// style per file.
	FirstOnly bool `yaml:"first_only"`
}

// PollConfig controls poll-call accounting.
type PollConfig struct {
	Pattern string `yaml:"pattern" validate:"omitempty,regex"`
	Budget  int    `yaml:"budget" validate:"min=0"`
}

// LoggingConfig mirrors pkg/logging.Config.
type LoggingConfig struct {
	Level string `yaml:"level"`
	Dir   string `yaml:"dir"`
	JSON  bool   `yaml:"json"`
}

// TelemetryConfig selects OpenTelemetry exporters.
type TelemetryConfig struct {
	// TraceExporter is "none", "stdout" or "otlp".
	TraceExporter string `yaml:"trace_exporter" validate:"omitempty,oneof=none stdout otlp"`

	// MetricExporter is "none", "stdout" or "prometheus".
	MetricExporter string `yaml:"metric_exporter" validate:"omitempty,oneof=none stdout prometheus"`

	// OTLPEndpoint is host:port of an OTLP gRPC collector.
	OTLPEndpoint string `yaml:"otlp_endpoint"`

	// MetricsFile, when set, receives the Prometheus registry in text
	// format after each run.
	MetricsFile string `yaml:"metrics_file"`

	// Influx, when URL is set, receives one point per run.
	Influx InfluxConfig `yaml:"influx"`
}

// InfluxConfig addresses an InfluxDB v2 bucket. The token is usually
// supplied through CPPGATE_INFLUX_TOKEN rather than the file.
type InfluxConfig struct {
	URL    string `yaml:"url" validate:"omitempty,url"`
	Token  string `yaml:"token"`
	Org    string `yaml:"org" validate:"required_with=URL"`
	Bucket string `yaml:"bucket" validate:"required_with=URL"`
}

// WatchConfig tunes watch mode.
type WatchConfig struct {
	// Debounce is the quiet period after a change before a run starts.
	Debounce time.Duration `yaml:"debounce" validate:"min=0"`

	// MinInterval is the minimum time between two run starts.
	MinInterval time.Duration `yaml:"min_interval" validate:"min=0"`

	// Ignore lists directory names that are never watched.
	Ignore []string `yaml:"ignore"`

	// Listen, when set, serves the latest report over HTTP at this
	// address (for example "127.0.0.1:7878").
	Listen string `yaml:"listen" validate:"omitempty,hostname_port"`
}

// MakefileConfig tunes the Makefile cross-check.
type MakefileConfig struct {
	// Ignore lists .cpp base names built outside the Makefile.
	Ignore []string `yaml:"ignore"`
}

// E2EConfig tunes the end-to-end result aggregator.
type E2EConfig struct {
	// Markers are regular expressions that flag a leak in server logs.
	Markers []string `yaml:"markers" validate:"dive,regex"`
}

// CacheConfig controls the lexical result cache.
type CacheConfig struct {
	// Dir holds the cache database. Empty disables caching.
	Dir string `yaml:"dir"`

	// TTL bounds how long an entry is kept.
	TTL time.Duration `yaml:"ttl" validate:"min=0"`
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() Config {
	return Config{
		Roots: []string{"sources", "include", "tests"},
		Extensions: ExtensionsConfig{
			Headers: []string{".h", ".hpp", ".hh", ".hxx"},
			Sources: []string{".cpp", ".c"},
		},
		IncludePaths:       []string{},
		SystemIncludePaths: []string{"/usr/include", "/usr/local/include"},
		AST: ASTConfig{
			Enabled:     true,
			MaxFileSize: 10 * 1024 * 1024,
		},
		Comments: CommentsConfig{
			Prefixes: append([]string(nil), lint.DefaultCommentPrefixes...),
		},
		Poll: PollConfig{
			Pattern: DefaultPollPattern,
			Budget:  1,
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
		Telemetry: TelemetryConfig{
			TraceExporter:  "none",
			MetricExporter: "none",
			OTLPEndpoint:   "localhost:4317",
		},
		Watch: WatchConfig{
			Debounce:    200 * time.Millisecond,
			MinInterval: time.Second,
			Ignore:      []string{".git", "build", ".cache"},
		},
		Makefile: MakefileConfig{
			Ignore: []string{"cxx_runner.cpp"},
		},
		Cache: CacheConfig{
			TTL: 7 * 24 * time.Hour,
		},
	}
}
