// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package live

import (
	"context"
	"encoding/json"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/AleutianAI/cppgate/services/gate/lint"
	"github.com/AleutianAI/cppgate/services/gate/report"
	"github.com/AleutianAI/cppgate/services/gate/runner"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleReport(id string, issues int) *runner.Report {
	fr := runner.FileReport{Path: "include/Foo.hpp", Kind: lint.KindHeader}
	for i := 0; i < issues; i++ {
		fr.Issues = append(fr.Issues, lint.Issue{File: fr.Path, Line: i + 1, Rule: lint.RuleUsingInHeader, Message: lint.MsgUsingInHeader})
	}
	return &runner.Report{RunID: id, Name: "check", Files: []runner.FileReport{fr}, Checked: 1}
}

func get(t *testing.T, url string) (int, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, string(body)
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readDoc(t *testing.T, conn *websocket.Conn) report.Document {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var doc report.Document
	require.NoError(t, conn.ReadJSON(&doc))
	return doc
}

func TestServer_Routes(t *testing.T) {
	s := New(nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	code, body := get(t, srv.URL+"/healthz")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	code, _ = get(t, srv.URL+"/report")
	assert.Equal(t, http.StatusNotFound, code)

	s.Publish(sampleReport("run-1", 2))
	code, body = get(t, srv.URL+"/report")
	require.Equal(t, http.StatusOK, code)
	var doc report.Document
	require.NoError(t, json.Unmarshal([]byte(body), &doc))
	assert.Equal(t, "run-1", doc.RunID)
	assert.True(t, doc.Failed)

	code, body = get(t, srv.URL+"/metrics")
	assert.Equal(t, http.StatusOK, code)
	assert.Contains(t, body, "go_goroutines")
}

func TestServer_WebSocketPush(t *testing.T) {
	s := New(nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	s.Publish(sampleReport("run-1", 1))
	conn := dial(t, srv)
	assert.Equal(t, "run-1", readDoc(t, conn).RunID, "latest report is sent on connect")

	require.Eventually(t, func() bool { return s.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)
	s.Publish(sampleReport("run-2", 0))
	doc := readDoc(t, conn)
	assert.Equal(t, "run-2", doc.RunID)
	assert.False(t, doc.Failed)

	require.NoError(t, conn.Close())
	assert.Eventually(t, func() bool { return s.Subscribers() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestServer_SlowSubscriberGetsNewest(t *testing.T) {
	s := New(nil)
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	conn := dial(t, srv)
	require.Eventually(t, func() bool { return s.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	for _, id := range []string{"a", "b", "c", "d"} {
		s.Publish(sampleReport(id, 0))
	}
	var last string
	for last != "d" {
		last = readDoc(t, conn).RunID
	}
	assert.Equal(t, "d", last)
}

func TestServer_ServeStopsOnCancel(t *testing.T) {
	s := New(nil)
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Serve(ctx, ln) }()

	base := "http://" + ln.Addr().String()
	require.Eventually(t, func() bool {
		resp, err := http.Get(base + "/healthz")
		if err != nil {
			return false
		}
		resp.Body.Close()
		return resp.StatusCode == http.StatusOK
	}, 5*time.Second, 20*time.Millisecond)

	conn, _, err := websocket.DefaultDialer.Dial("ws://"+ln.Addr().String()+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.Subscribers() == 1 }, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(10 * time.Second):
		t.Fatal("Serve did not return")
	}

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	_, _, err = conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway), "got %v", err)
}
