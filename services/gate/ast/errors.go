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

import "errors"

var (
	// ErrParseFailed means tree-sitter returned no tree. Syntax errors are
	// not this: they become Diagnostics on a complete TranslationUnit.
	ErrParseFailed = errors.New("translation unit not parsed")

	// ErrInvalidContent means the file is not UTF-8 text.
	ErrInvalidContent = errors.New("not a text file")

	// ErrFileTooLarge means the file is over the parser's size limit.
	ErrFileTooLarge = errors.New("file too large to parse")
)

// ParseError ties a parse failure to the file being parsed. The checker
// turns it into a ParseFailure issue for that file.
type ParseError struct {
	// FilePath is the path as collected.
	FilePath string

	// Cause is one of the sentinels above, a context error, or a read
	// failure for an included header.
	Cause error
}

// Error returns "path: cause".
func (e *ParseError) Error() string {
	return e.FilePath + ": " + e.Cause.Error()
}

// Unwrap returns Cause.
func (e *ParseError) Unwrap() error {
	return e.Cause
}

// WrapParseError attaches filePath to err. A nil err returns nil and an
// existing ParseError is returned unchanged.
func WrapParseError(err error, filePath string) error {
	if err == nil {
		return nil
	}
	var parseErr *ParseError
	if errors.As(err, &parseErr) {
		return err
	}
	return &ParseError{FilePath: filePath, Cause: err}
}
