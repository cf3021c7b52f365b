// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package lint implements the lexical pass of cppgate.
//
// Every check is a Rule operating on a file's raw text, with no knowledge
// of C++ semantics. Rules are declared in a table, compiled once when the
// Engine is built, and evaluated independently: all applicable rules run
// on every file and each occurrence yields one Issue.
//
// # Architecture
//
//	SourceFile ──► Engine.Check ──► comment-stripped text
//	                    │
//	                    ├── pattern rules (using, relative include, throw)
//	                    ├── return-format   (paren-aware statement scan)
//	                    ├── errno-after-io  (4-line window)
//	                    ├── comment-prefix  (literal-aware comment scan)
//	                    ├── include-guard   (headers only)
//	                    └── poll match      ──► Result{Issues, CallsPoll}
//
// # Built-in Rules
//
//	| ID               | Kinds   | Category   |
//	|------------------|---------|------------|
//	| using-in-header  | header  | style      |
//	| using-namespace  | source  | style      |
//	| relative-include | both    | style      |
//	| return-format    | both    | style      |
//	| throw-format     | source  | style      |
//	| errno-after-io   | both    | style      |
//	| comment-prefix   | both    | style      |
//	| include-guard    | header  | structural |
//
// Extra regex rules can be declared as PatternRule values (typically from
// the rules.patterns section of .cppgate.yaml) and behave exactly like
// built-ins.
//
// # Usage
//
//	engine, err := lint.NewEngine(lint.Options{})
//	if err != nil {
//	    return err
//	}
//	file := lint.NewSourceFile("include/Foo.hpp", lint.KindHeader, content)
//	result := engine.Check(ctx, file)
//	for _, issue := range result.Issues {
//	    fmt.Println(issue.Location(), issue.Message)
//	}
//
// # Thread Safety
//
// An Engine is immutable after construction and safe for concurrent use.
package lint
