// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/AleutianAI/cppgate/services/gate/lint"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"gopkg.in/yaml.v3"
)

// keyPrefix namespaces lexical results in the database.
const keyPrefix = "lex/v2/"

var meter = otel.Meter("cppgate.cache")

// Checker is the lexical pass being cached.
type Checker interface {
	Check(ctx context.Context, file *lint.SourceFile) lint.Result
}

// Fingerprint hashes everything that changes what the lexical pass
// reports. Each part is rendered as YAML, so field order is stable.
func Fingerprint(parts ...any) ([]byte, error) {
	h := sha256.New()
	for i, part := range parts {
		data, err := yaml.Marshal(part)
		if err != nil {
			return nil, fmt.Errorf("fingerprint part %d: %w", i, err)
		}
		h.Write(data)
		h.Write([]byte{0})
	}
	return h.Sum(nil), nil
}

// Lexical serves lexical results from the database and falls through to
// the wrapped checker on a miss.
//
// Database errors are logged and treated as misses; the cache never
// changes what a run reports.
//
// Thread Safety: Safe for concurrent use.
type Lexical struct {
	next        Checker
	db          *DB
	fingerprint []byte
	logger      *slog.Logger

	hits   atomic.Int64
	misses atomic.Int64

	lookups metric.Int64Counter
}

// NewLexical wraps next with db. fingerprint comes from Fingerprint.
func NewLexical(next Checker, db *DB, fingerprint []byte, logger *slog.Logger) *Lexical {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Lexical{
		next:        next,
		db:          db,
		fingerprint: fingerprint,
		logger:      logger,
	}
	counter, err := meter.Int64Counter(
		"cppgate_cache_lookups_total",
		metric.WithDescription("Lexical cache lookups by outcome"),
	)
	if err == nil {
		c.lookups = counter
	}
	return c
}

// Check returns the cached result for file, or runs the wrapped checker
// and stores what it returns.
func (c *Lexical) Check(ctx context.Context, file *lint.SourceFile) lint.Result {
	key := c.key(file)

	if res, ok := c.load(key, file.Path); ok {
		c.hits.Add(1)
		c.record(ctx, "hit")
		return res
	}
	c.misses.Add(1)
	c.record(ctx, "miss")

	res := c.next.Check(ctx, file)
	c.store(key, file.Path, res)
	return res
}

// Stats returns the hit and miss counts since creation.
func (c *Lexical) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *Lexical) key(file *lint.SourceFile) []byte {
	h := sha256.New()
	h.Write(c.fingerprint)
	fmt.Fprintf(h, "\x00%s\x00%s\x00", file.Kind, file.Path)
	h.Write([]byte(file.Content))
	return []byte(keyPrefix + hex.EncodeToString(h.Sum(nil)))
}

func (c *Lexical) load(key []byte, path string) (lint.Result, bool) {
	data, ok, err := c.db.get(key)
	if err != nil {
		c.logger.Warn("cache read failed", "path", path, "error", err)
		return lint.Result{}, false
	}
	if !ok {
		return lint.Result{}, false
	}
	var res lint.Result
	if err := json.Unmarshal(data, &res); err != nil {
		c.logger.Warn("cache entry unreadable", "path", path, "error", err)
		return lint.Result{}, false
	}
	return res, true
}

func (c *Lexical) store(key []byte, path string, res lint.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		c.logger.Warn("cache encode failed", "path", path, "error", err)
		return
	}
	if err := c.db.put(key, data); err != nil {
		c.logger.Warn("cache write failed", "path", path, "error", err)
	}
}

func (c *Lexical) record(ctx context.Context, outcome string) {
	if c.lookups == nil {
		return
	}
	c.lookups.Add(ctx, 1, metric.WithAttributes(attribute.String("outcome", outcome)))
}
