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
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/AleutianAI/bindsmith/services/binding/evidence"
	"github.com/AleutianAI/bindsmith/services/binding/orchestrate"
	"github.com/AleutianAI/bindsmith/services/binding/validate"
)

// ErrorResponse is the standard error body for all binding endpoints.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// ValidateRequest is the body of POST /v1/bindings/validate.
type ValidateRequest struct {
	// Source is the binding file content to validate.
	Source string `json:"source" binding:"required"`
	// Evidence is the design component metadata to validate against.
	Evidence *evidence.Evidence `json:"evidence" binding:"required"`
	// FileName labels the source in error messages. Optional.
	FileName string `json:"fileName"`
}

// GenerateRequest is the body of POST /v1/bindings/generate.
type GenerateRequest struct {
	// Evidence is the design component metadata to generate from.
	Evidence *evidence.Evidence `json:"evidence" binding:"required"`
	// FigmaURL is the design node URL the binding connects to.
	FigmaURL string `json:"figmaUrl" binding:"required"`
	// ComponentImport is the application import path of the code component.
	ComponentImport string `json:"componentImport"`
	// ComponentExport is the exported identifier of the code component.
	ComponentExport string `json:"componentExport"`
	// FileName labels the output in validation messages. Optional.
	FileName string `json:"fileName"`
}

// Handlers exposes the binding service over HTTP.
type Handlers struct {
	svc *Service
}

// NewHandlers creates the HTTP handler set around a service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// getOrCreateRequestID returns the X-Request-ID header or mints one.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.NewString()
}

// HandleValidate handles POST /v1/bindings/validate.
//
// Description:
//
//	Runs one binding source through the two-tier pipeline and returns the
//	verdict. A verdict with valid=false is still a 200; only malformed
//	requests produce error statuses.
//
// Response:
//
//	200 OK: validate.ValidationResult
//	400 Bad Request: Missing source or evidence
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleValidate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleValidate")

	var req ValidateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "source and evidence are required: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if req.Evidence.ComponentName == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "evidence.componentName is required",
			Code:  "INVALID_EVIDENCE",
		})
		return
	}

	fileName := req.FileName
	if fileName == "" {
		fileName = req.Evidence.ComponentName + ".figma.tsx"
	}

	result := h.svc.Validate(c.Request.Context(), req.Source, req.Evidence, fileName)
	logger.Info("validation complete",
		slog.String("component", req.Evidence.ComponentName),
		slog.Bool("valid", result.Valid),
		slog.Int("errors", len(result.Errors)))

	c.JSON(http.StatusOK, result)
}

// HandleGenerate handles POST /v1/bindings/generate.
//
// Description:
//
//	Runs the bounded generate-validate-repair loop for one component and
//	returns the terminal result with the full attempt history. An exhausted
//	retry budget is a 200 with success=false; it is a normal outcome, not a
//	server error.
//
// Response:
//
//	200 OK: orchestrate.Result
//	400 Bad Request: Missing evidence or figmaUrl
//	499: Client canceled the request mid-run
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleGenerate(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := slog.With("request_id", requestID, "handler", "HandleGenerate")

	var req GenerateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "evidence and figmaUrl are required: " + err.Error(),
			Code:  "INVALID_REQUEST",
		})
		return
	}
	if req.Evidence.ComponentName == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "evidence.componentName is required",
			Code:  "INVALID_EVIDENCE",
		})
		return
	}

	target := orchestrate.Target{
		FigmaURL:        req.FigmaURL,
		ComponentImport: req.ComponentImport,
		ComponentExport: req.ComponentExport,
		FileName:        req.FileName,
	}

	result, err := h.svc.Generate(c.Request.Context(), req.Evidence, target)
	if err != nil {
		// Run only errors on context cancellation; the client went away.
		logger.Warn("generation canceled", slog.String("error", err.Error()))
		if errors.Is(err, context.Canceled) || c.Request.Context().Err() != nil {
			c.JSON(499, ErrorResponse{Error: "request canceled", Code: "CANCELED"})
			return
		}
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: err.Error(),
			Code:  "ORCHESTRATION_FAILED",
		})
		return
	}

	logger.Info("generation complete",
		slog.String("component", req.Evidence.ComponentName),
		slog.Bool("success", result.Success),
		slog.Int("attempts", len(result.Attempts)))

	c.JSON(http.StatusOK, result)
}

// HandleHealth handles GET /v1/bindings/health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": h.svc.Config().Generator.Provider,
		"tier2":    h.svc.Config().Validator.Command != "",
	})
}

// compile-time check that the pipeline still satisfies the orchestrator's
// checker contract the handlers rely on.
var _ orchestrate.Checker = (*validate.Pipeline)(nil)
