// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"errors"
	"fmt"
)

// Exit codes.
const (
	ExitSuccess = 0
	ExitIssues  = 1
	ExitError   = 2
)

// errIssuesFound marks a run whose findings were already printed.
var errIssuesFound = errors.New("issues found")

// exitError carries a process exit code through cobra's error return.
//
// # Example
//
//	if report.Failed() {
//	    return &exitError{Code: ExitIssues, Err: errIssuesFound}
//	}
type exitError struct {
	// Code is the process exit code.
	Code int

	// Err is the underlying error. errIssuesFound is not printed.
	Err error
}

func (e *exitError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("exit %d", e.Code)
	}
	return e.Err.Error()
}

func (e *exitError) Unwrap() error {
	return e.Err
}

// usageError reports a failure to run at all.
func usageError(format string, args ...any) error {
	return &exitError{Code: ExitError, Err: fmt.Errorf(format, args...)}
}

// exitCode maps an error returned by a command to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.Code
	}
	return ExitError
}
