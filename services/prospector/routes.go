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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers the prospector status endpoints with the
// router group.
//
// Endpoints:
//
//	GET /v1/prospector/status - JSON snapshot of the current run
//	GET /v1/prospector/events - websocket stream of trial events
//	GET /v1/prospector/health - liveness check
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	p := rg.Group("/prospector")
	{
		p.GET("/status", handlers.HandleStatus)
		p.GET("/events", handlers.HandleEvents)
		p.GET("/health", handlers.HandleHealth)
	}
}
