// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package runner

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/AleutianAI/cppgate/services/gate/lint"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const pollSource = "namespace app\n{\n\tint wait()\n\t{\n\t\tconst int ret = poll(fds, 1, 0);\n\t\treturn (ret);\n\t}\n}\n"

func writeTree(t *testing.T, root string, tree map[string]string) {
	t.Helper()
	for path, content := range tree {
		full := filepath.Join(root, path)
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
}

func newRunner(t *testing.T, structural StructuralChecker, opts ...Option) *Runner {
	t.Helper()
	engine, err := lint.NewEngine(lint.Options{})
	require.NoError(t, err)
	return New(engine, structural, opts...)
}

// stubStructural records the files it saw and returns canned issues.
type stubStructural struct {
	seen   []string
	issues map[string][]lint.Issue
}

func (s *stubStructural) Check(_ context.Context, file *lint.SourceFile) []lint.Issue {
	s.seen = append(s.seen, file.Path)
	return s.issues[filepath.Base(file.Path)]
}

func sources(root string) Request {
	return Request{
		Name:   "sources",
		Kinds:  []lint.FileKind{lint.KindSource},
		Roots:  []string{root},
		Passes: PassAll,
	}
}

func TestRunner_PollBudget(t *testing.T) {
	t.Run("one call passes", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"a.cpp": pollSource, "b.cpp": "namespace app\n{\n}\n"})

		report, err := newRunner(t, nil).Run(context.Background(), sources(root))
		require.NoError(t, err)
		assert.Equal(t, 1, report.PollCalls)
		assert.Empty(t, report.RunIssues)
		assert.False(t, report.Failed())
	})

	t.Run("two calls in one file pass", func(t *testing.T) {
		root := t.TempDir()
		loop := "namespace app\n{\n\tvoid loop()\n\t{\n\t\tpoll(fds, 1, -1);\n\t\tpoll(fds, 1, 0);\n\t}\n}\n"
		writeTree(t, root, map[string]string{"Loop.cpp": loop})

		report, err := newRunner(t, nil).Run(context.Background(), sources(root))
		require.NoError(t, err)
		assert.Equal(t, 1, report.PollCalls)
		assert.Empty(t, report.RunIssues)
		assert.False(t, report.Failed())
	})

	t.Run("headers are not counted", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"a.cpp": pollSource, "Wait.hpp": pollSource})

		req := sources(root)
		req.Kinds = []lint.FileKind{lint.KindHeader, lint.KindSource}
		report, err := newRunner(t, nil).Run(context.Background(), req)
		require.NoError(t, err)
		assert.Equal(t, 1, report.PollCalls)
		assert.Empty(t, report.RunIssues)
	})

	t.Run("two calls in different files fail", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"a.cpp": pollSource, "sub/b.cpp": pollSource})

		report, err := newRunner(t, nil).Run(context.Background(), sources(root))
		require.NoError(t, err)
		assert.Equal(t, 2, report.PollCalls)
		require.Len(t, report.RunIssues, 1)
		assert.True(t, strings.HasPrefix(report.RunIssues[0].Message, MsgTooManyPolls))
		assert.Equal(t, RulePollBudget, report.RunIssues[0].Rule)
		assert.True(t, report.Failed())
	})

	t.Run("configured budget", func(t *testing.T) {
		root := t.TempDir()
		writeTree(t, root, map[string]string{"a.cpp": pollSource, "b.cpp": pollSource})

		report, err := newRunner(t, nil, WithPollBudget(2)).Run(context.Background(), sources(root))
		require.NoError(t, err)
		assert.False(t, report.Failed())
	})
}

func TestRunner_NoFiles(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"README.md": "x"})

	report, err := newRunner(t, nil).Run(context.Background(), sources(root))
	assert.ErrorIs(t, err, ErrNoFiles)
	require.NotNil(t, report)
	assert.False(t, report.Failed())
	assert.Equal(t, 0, report.Checked)
}

func TestRunner_HeadersAndStructural(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"include/Foo.hpp": "#ifndef FOO_HPP\n#define FOO_HPP\nusing std::string;\n#endif\n",
		"sources/foo.cpp": "namespace app\n{\n}\n",
	})
	structural := &stubStructural{issues: map[string][]lint.Issue{
		"Foo.hpp": {{File: "Foo.hpp", Line: 1, Rule: "namespace-scope", Category: lint.StructuralViolation, Message: "x"}},
	}}

	report, err := newRunner(t, structural).Run(context.Background(), Request{
		Name:   "check",
		Kinds:  []lint.FileKind{lint.KindHeader, lint.KindSource},
		Roots:  []string{filepath.Join(root, "include"), filepath.Join(root, "sources")},
		Passes: PassAll,
	})
	require.NoError(t, err)

	require.Len(t, report.Files, 2)
	assert.Equal(t, lint.KindHeader, report.Files[0].Kind)
	assert.Equal(t, lint.KindSource, report.Files[1].Kind)
	require.Len(t, report.Files[0].Issues, 2)
	assert.Equal(t, lint.RuleUsingInHeader, report.Files[0].Issues[0].Rule)
	assert.Equal(t, "namespace-scope", report.Files[0].Issues[1].Rule)
	assert.Empty(t, report.Files[1].Issues)
	assert.Len(t, structural.seen, 2)
	assert.Equal(t, 2, report.IssueCount())
	assert.Equal(t, map[lint.Category]int{lint.StyleViolation: 1, lint.StructuralViolation: 1}, report.CountByCategory())
}

func TestRunner_LexicalOnlySkipsStructural(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.cpp": "namespace app\n{\n}\n"})
	structural := &stubStructural{}

	req := sources(root)
	req.Passes = PassLexical
	_, err := newRunner(t, structural).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, structural.seen)
}

func TestRunner_StructuralOnlyIgnoresPollBudget(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.cpp": pollSource, "b.cpp": pollSource})

	req := sources(root)
	req.Passes = PassStructural
	report, err := newRunner(t, &stubStructural{}).Run(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, report.PollCalls)
	assert.False(t, report.Failed())
}

func TestRunner_Idempotent(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"a.cpp": "int f()\n{\n\treturn(1); // bad\n}\n",
		"b.cpp": pollSource,
		"c.cpp": pollSource,
	})
	r := newRunner(t, nil)

	first, err := r.Run(context.Background(), sources(root))
	require.NoError(t, err)
	second, err := r.Run(context.Background(), sources(root))
	require.NoError(t, err)

	assert.NotEqual(t, first.RunID, second.RunID)
	assert.Equal(t, first.Files, second.Files)
	assert.Equal(t, first.RunIssues, second.RunIssues)
	assert.Equal(t, first.Failed(), second.Failed())
}

func TestRunner_Patch(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{
		"sources/a.cpp": "int f()\n{\n\treturn(1);\n}\n",
		"sources/b.cpp": "int g()\n{\n\treturn(2);\n}\n",
	})
	patch := "--- a/sources/b.cpp\n+++ b/sources/b.cpp\n@@ -1,1 +1,1 @@\n-int g()\n+int  g()\n"

	req := sources(filepath.Join(root, "sources"))
	req.Patch = []byte(patch)
	report, err := newRunner(t, nil).Run(context.Background(), req)
	require.NoError(t, err)

	require.Len(t, report.Files, 1)
	assert.Equal(t, "b.cpp", filepath.Base(report.Files[0].Path))
}

func TestRunner_Cancelled(t *testing.T) {
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.cpp": pollSource})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := newRunner(t, nil).Run(ctx, sources(root))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, report.Checked)
}

func TestRunner_UnreadableFile(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("root can read any file")
	}
	root := t.TempDir()
	writeTree(t, root, map[string]string{"a.cpp": "int x;\n"})
	require.NoError(t, os.Chmod(filepath.Join(root, "a.cpp"), 0o000))

	report, err := newRunner(t, nil).Run(context.Background(), sources(root))
	require.NoError(t, err)
	require.Len(t, report.Files, 1)
	require.Len(t, report.Files[0].Issues, 1)
	assert.Equal(t, RuleReadError, report.Files[0].Issues[0].Rule)
	assert.Equal(t, 0, report.Files[0].Issues[0].Line)
}
