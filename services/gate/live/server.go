// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package live serves the latest watch-mode report over HTTP.
//
// Routes:
//
//	GET /healthz  liveness
//	GET /report   latest report as JSON (404 before the first run)
//	GET /metrics  Prometheus default registry
//	GET /ws       websocket; the latest report on connect, then one per run
package live

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/AleutianAI/cppgate/services/gate/report"
	"github.com/AleutianAI/cppgate/services/gate/runner"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	writeWait       = 10 * time.Second
	shutdownTimeout = 5 * time.Second
)

// client is one websocket subscriber. send holds at most the newest
// report not yet written.
type client struct {
	send chan report.Document
}

// offer replaces any pending report with doc. Callers hold Server.mu.
func (c *client) offer(doc report.Document) {
	for {
		select {
		case c.send <- doc:
			return
		default:
			select {
			case <-c.send:
			default:
			}
		}
	}
}

// Server holds the latest report and its subscribers.
//
// Thread Safety: Safe for concurrent use.
type Server struct {
	router   *gin.Engine
	upgrader websocket.Upgrader
	logger   *slog.Logger

	mu      sync.Mutex
	latest  *report.Document
	clients map[*client]struct{}

	closing   chan struct{}
	closeOnce sync.Once
}

// New creates a server. Nothing listens until Serve.
func New(logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router: gin.New(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger:  logger,
		clients: make(map[*client]struct{}),
		closing: make(chan struct{}),
	}
	s.router.Use(gin.Recovery())
	s.router.Use(otelgin.Middleware("cppgate"))

	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	s.router.GET("/report", s.handleReport)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router.GET("/ws", s.handleWS)
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Publish makes rep the latest report and pushes it to every subscriber.
func (s *Server) Publish(rep *runner.Report) {
	doc := report.NewDocument(rep)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.latest = &doc
	for c := range s.clients {
		c.offer(doc)
	}
}

// Subscribers returns the number of connected websocket clients.
func (s *Server) Subscribers() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.clients)
}

// ListenAndServe listens on addr and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done, then shuts down and closes every
// websocket.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()
	s.logger.Info("live report listening", "addr", ln.Addr().String())

	select {
	case err := <-errCh:
		s.shutdownClients()
		return err
	case <-ctx.Done():
	}

	s.shutdownClients()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) shutdownClients() {
	s.closeOnce.Do(func() { close(s.closing) })
}

func (s *Server) handleReport(c *gin.Context) {
	s.mu.Lock()
	latest := s.latest
	s.mu.Unlock()

	if latest == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no run has finished yet"})
		return
	}
	c.JSON(http.StatusOK, latest)
}

func (s *Server) handleWS(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	cl := &client{send: make(chan report.Document, 1)}
	s.mu.Lock()
	s.clients[cl] = struct{}{}
	if s.latest != nil {
		cl.offer(*s.latest)
	}
	s.mu.Unlock()
	defer func() {
		s.mu.Lock()
		delete(s.clients, cl)
		s.mu.Unlock()
	}()
	s.logger.Debug("websocket client connected", "remote", c.Request.RemoteAddr)

	// Incoming messages are ignored; reading notices the close.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case doc := <-cl.send:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteJSON(doc); err != nil {
				s.logger.Debug("websocket write failed", "error", err)
				return
			}
		case <-gone:
			return
		case <-s.closing:
			_ = conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
				time.Now().Add(time.Second))
			return
		}
	}
}
