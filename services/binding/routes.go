// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package binding

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all binding routes with the router.
//
// Description:
//
//	Registers all /v1/bindings/* endpoints with the given Gin router group.
//	The router group should already have any required middleware applied.
//
// Inputs:
//
//	rg - Gin router group (typically /v1)
//	handlers - The handlers instance
//
// Endpoints:
//
//	POST /v1/bindings/generate - Generate a binding with retry convergence
//	POST /v1/bindings/validate - Validate binding source against evidence
//	GET  /v1/bindings/health - Service health and configuration summary
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	bindings := rg.Group("/bindings")
	{
		bindings.POST("/generate", handlers.HandleGenerate)
		bindings.POST("/validate", handlers.HandleValidate)
		bindings.GET("/health", handlers.HandleHealth)
	}
}
