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
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// writeTimeout bounds a single websocket write; a client that cannot
// keep up gets disconnected instead of backing up the sender.
const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	// The status server binds to an operator-chosen address, usually
	// loopback; it serves no state worth forging a request for.
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
}

// Handlers serves the status endpoints for a running search.
type Handlers struct {
	feed   *StatusFeed
	logger *slog.Logger
}

// NewHandlers creates handlers over feed. A nil logger falls back to
// slog.Default().
func NewHandlers(feed *StatusFeed, logger *slog.Logger) *Handlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handlers{feed: feed, logger: logger}
}

// HandleStatus serves GET /v1/prospector/status.
func (h *Handlers) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.feed.Snapshot())
}

// HandleHealth serves GET /v1/prospector/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "prospector",
	})
}

// HandleEvents serves GET /v1/prospector/events: upgrades to a
// websocket and streams trial events as JSON until the client
// disconnects or the run ends. The stream is lossy by design; the
// transcript file is the complete record.
func (h *Handlers) HandleEvents(c *gin.Context) {
	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("Websocket upgrade failed",
			slog.String("error", err.Error()),
		)
		return
	}
	defer ws.Close()

	events, cancel := h.feed.Subscribe()
	defer cancel()

	h.logger.Info("Status stream client connected",
		slog.String("remote", ws.RemoteAddr().String()),
	)

	// Read pump: we expect nothing from the client, but reading is
	// how close frames and dead connections are noticed.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-done:
			h.logger.Info("Status stream client disconnected")
			return
		case ev, ok := <-events:
			if !ok {
				deadline := time.Now().Add(writeTimeout)
				_ = ws.WriteControl(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseNormalClosure, "run finished"),
					deadline)
				return
			}
			_ = ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := ws.WriteJSON(ev); err != nil {
				h.logger.Info("Status stream write failed",
					slog.String("error", err.Error()),
				)
				return
			}
		}
	}
}
