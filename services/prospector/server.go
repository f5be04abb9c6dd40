// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package prospector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// shutdownGrace bounds how long in-flight requests get to finish when
// the run ends.
const shutdownGrace = 5 * time.Second

// StatusServer exposes the status endpoints and Prometheus metrics
// for a running search. Purely read-only: nothing served here can
// influence the run.
type StatusServer struct {
	addr     string
	router   *gin.Engine
	logger   *slog.Logger
	listener net.Listener
}

// NewStatusServer builds the server for feed, serving /metrics from
// reg. A nil logger falls back to slog.Default().
func NewStatusServer(addr string, feed *StatusFeed, reg *prometheus.Registry, logger *slog.Logger) *StatusServer {
	if logger == nil {
		logger = slog.Default()
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(feed, logger))

	if reg != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))
	}

	return &StatusServer{
		addr:   addr,
		router: router,
		logger: logger,
	}
}

// Router returns the gin engine, for tests.
func (s *StatusServer) Router() *gin.Engine {
	return s.router
}

// Listen binds the configured address. Called before the search
// starts so a bad or occupied address aborts the run up front instead
// of surfacing mid-search.
func (s *StatusServer) Listen() error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("binding status address %s: %w", s.addr, err)
	}
	s.listener = ln
	return nil
}

// Run serves until ctx is cancelled, then shuts down gracefully.
// Binds the address first if Listen was not called. Returns nil on a
// clean shutdown.
func (s *StatusServer) Run(ctx context.Context) error {
	if s.listener == nil {
		if err := s.Listen(); err != nil {
			return err
		}
	}
	srv := &http.Server{
		Handler: s.router,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Status server listening",
			slog.String("address", s.listener.Addr().String()),
		)
		errCh <- srv.Serve(s.listener)
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Warn("Status server shutdown was not clean",
			slog.String("error", err.Error()),
		)
		return err
	}
	s.logger.Info("Status server stopped")
	return nil
}
