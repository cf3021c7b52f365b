// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/cpp"
)

// DefaultMaxFileSize is the default maximum file size (10MB).
const DefaultMaxFileSize = 10 * 1024 * 1024

// TranslationUnit is a parsed file with its project headers spliced in.
type TranslationUnit struct {
	// File is the path of the file under test.
	File string

	// Root is the KindTranslationUnit cursor.
	Root *Cursor

	// Diagnostics lists messages in the order they were produced.
	Diagnostics []Diagnostic

	// Includes lists the project headers that were expanded, in order.
	Includes []string
}

// HasErrors reports whether any diagnostic is Error or Fatal.
func (tu *TranslationUnit) HasErrors() bool {
	_, ok := tu.FirstError()
	return ok
}

// FirstError returns the first Error or Fatal diagnostic.
func (tu *TranslationUnit) FirstError() (Diagnostic, bool) {
	for _, d := range tu.Diagnostics {
		if d.IsError() {
			return d, true
		}
	}
	return Diagnostic{}, false
}

// TUParserOption configures a TUParser.
type TUParserOption func(*TUParser)

// WithSearchPaths sets the project include directories, searched after the
// including file's own directory.
func WithSearchPaths(paths ...string) TUParserOption {
	return func(p *TUParser) {
		p.searchPaths = append([]string(nil), paths...)
	}
}

// WithSystemPaths sets the system include directories. Headers resolved
// there are not expanded.
func WithSystemPaths(paths ...string) TUParserOption {
	return func(p *TUParser) {
		p.systemPaths = append([]string(nil), paths...)
	}
}

// WithMaxFileSize sets the maximum file size in bytes.
func WithMaxFileSize(bytes int64) TUParserOption {
	return func(p *TUParser) {
		if bytes > 0 {
			p.maxFileSize = bytes
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) TUParserOption {
	return func(p *TUParser) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// TUParser builds translation units from C++ files.
//
// One tree-sitter parser is reused across files. It holds no per-file
// state; everything collected during a parse lives in that call.
//
// Thread Safety: Safe for concurrent use. Calls are serialized.
type TUParser struct {
	mu          sync.Mutex
	ts          *sitter.Parser
	searchPaths []string
	systemPaths []string
	maxFileSize int64
	logger      *slog.Logger
}

// NewTUParser creates a parser configured for C++.
func NewTUParser(opts ...TUParserOption) *TUParser {
	ts := sitter.NewParser()
	ts.SetLanguage(cpp.GetLanguage())

	p := &TUParser{
		ts:          ts,
		maxFileSize: DefaultMaxFileSize,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Close releases the underlying parser.
func (p *TUParser) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ts != nil {
		p.ts.Close()
		p.ts = nil
	}
}

// Parse builds the translation unit for content, read from path.
//
// Description:
//
//	Quoted includes are resolved against the including file's directory,
//	then the search paths, then the system paths. Project headers are
//	parsed and spliced in once per translation unit. Unresolvable includes
//	are Fatal diagnostics, and syntax errors are Error diagnostics; neither
//	makes Parse return an error.
//
// Outputs:
//
//	*TranslationUnit - Never nil when err is nil.
//	error - ErrFileTooLarge, ErrInvalidContent, ErrParseFailed or the
//	        context error, wrapped in a *ParseError.
func (p *TUParser) Parse(ctx context.Context, path string, content []byte) (*TranslationUnit, error) {
	if ctx == nil {
		return nil, WrapParseError(fmt.Errorf("%w: nil context", ErrParseFailed), path)
	}

	ctx, span := startParseSpan(ctx, path, len(content))
	defer span.End()
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return nil, WrapParseError(err, path)
	}
	if int64(len(content)) > p.maxFileSize {
		return nil, WrapParseError(fmt.Errorf("%w: %d bytes exceeds %d", ErrFileTooLarge, len(content), p.maxFileSize), path)
	}
	if !utf8.Valid(content) {
		return nil, WrapParseError(fmt.Errorf("%w: not valid UTF-8", ErrInvalidContent), path)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ts == nil {
		return nil, WrapParseError(fmt.Errorf("%w: parser closed", ErrParseFailed), path)
	}

	path = filepath.Clean(path)
	b := newBuilder(ctx, p)
	b.visited[visitKey(path)] = true

	children, err := b.parseFile(path, content, 0)
	if err != nil {
		recordParseMetrics(ctx, time.Since(start), 0, false)
		return nil, WrapParseError(err, path)
	}

	tu := &TranslationUnit{
		File: path,
		Root: &Cursor{
			Kind:       KindTranslationUnit,
			Spelling:   path,
			File:       path,
			Definition: true,
			Children:   children,
		},
		Diagnostics: b.diags,
		Includes:    b.includes,
	}

	setParseSpanResult(span, tu)
	recordParseMetrics(ctx, time.Since(start), len(tu.Diagnostics), true)
	p.logger.Debug("translation unit built",
		slog.String("file", path),
		slog.Int("includes", len(tu.Includes)),
		slog.Int("diagnostics", len(tu.Diagnostics)),
	)
	return tu, nil
}

// resolve finds a quoted include. system is true when the hit is under a
// system path.
func (p *TUParser) resolve(name, dir string) (resolved string, system bool, ok bool) {
	if filepath.IsAbs(name) {
		if isFile(name) {
			return filepath.Clean(name), false, true
		}
		return "", false, false
	}

	candidates := append([]string{dir}, p.searchPaths...)
	for _, base := range candidates {
		path := filepath.Join(base, name)
		if isFile(path) {
			return path, false, true
		}
	}
	for _, base := range p.systemPaths {
		path := filepath.Join(base, name)
		if isFile(path) {
			return path, true, true
		}
	}
	return "", false, false
}

func isFile(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
