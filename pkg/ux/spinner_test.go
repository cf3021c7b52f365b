// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// syncBuffer guards a bytes.Buffer for the spinner goroutine.
type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestSpinner_DrawsAndClears(t *testing.T) {
	var out syncBuffer
	s := NewSpinner(&out, NewPalette(false), "checking headers")
	s.interval = time.Millisecond

	s.Start()
	s.Start()
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "checking headers")
	}, 2*time.Second, time.Millisecond)

	s.SetMessage("checking sources")
	assert.Eventually(t, func() bool {
		return strings.Contains(out.String(), "checking sources")
	}, 2*time.Second, time.Millisecond)

	s.Stop()
	s.Stop()
	assert.True(t, strings.HasSuffix(out.String(), "\r\033[K"))
	assert.Contains(t, out.String(), "\r"+spinnerFrames[0]+" checking headers")
}

func TestSpinner_Restart(t *testing.T) {
	var out syncBuffer
	s := NewSpinner(&out, NewPalette(false), "x")
	s.interval = time.Millisecond

	s.Start()
	s.Stop()
	s.Start()
	s.Stop()
	assert.Equal(t, 2, strings.Count(out.String(), "\r\033[K"))
}

func TestSpinner_StopWithoutStart(t *testing.T) {
	s := NewSpinner(&syncBuffer{}, NewPalette(false), "x")
	s.Stop()
}
