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
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/bindsmith/services/binding/config"
	"github.com/AleutianAI/bindsmith/services/binding/orchestrate"
	"github.com/AleutianAI/bindsmith/services/binding/validate"
)

// validBindingSource is a binding that passes tier-1 validation against
// the evidence in testEvidenceJSON.
const validBindingSource = `
import figma from "figma"
import { Button } from "./Button"

figma.connect(Button, "https://figma.com/file/abc?node-id=1-2", {
  props: {
    label: figma.string("Label"),
  },
  example: (props) => <Button label={props.label} />,
})
`

const testEvidenceJSON = `{
  "componentName": "Button",
  "variantProperties": {"Size": ["Small", "Large"]},
  "componentProperties": [{"name": "Label", "kind": "STRING"}],
  "textLayers": [],
  "slotLayers": []
}`

// stubGenerator replays a fixed sequence of outputs.
type stubGenerator struct {
	outputs []string
	calls   int
}

func (s *stubGenerator) Generate(_ context.Context, _, _ string, _ int) (*orchestrate.GeneratorResult, error) {
	idx := s.calls
	if idx >= len(s.outputs) {
		idx = len(s.outputs) - 1
	}
	s.calls++
	return &orchestrate.GeneratorResult{
		Text:  s.outputs[idx],
		Usage: &orchestrate.TokenUsage{InputTokens: 10, OutputTokens: 10},
	}, nil
}

func newTestRouter(t *testing.T, gen orchestrate.Generator) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := config.Default()
	cfg.Orchestrator.MaxRetries = 1
	svc := newServiceWithGenerator(cfg, gen)

	router := gin.New()
	v1 := router.Group("/v1")
	RegisterRoutes(v1, NewHandlers(svc))
	return router
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestHandleValidate_ValidBinding(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{outputs: []string{validBindingSource}})

	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(testEvidenceJSON), &ev))

	w := postJSON(t, router, "/v1/bindings/validate", gin.H{
		"source":   validBindingSource,
		"evidence": ev,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result validate.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Valid, "errors: %v", result.Errors)
	assert.Empty(t, result.Errors)
}

func TestHandleValidate_UnknownKey(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{outputs: []string{validBindingSource}})

	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(testEvidenceJSON), &ev))

	source := `
import figma from "figma"
import { Button } from "./Button"

figma.connect(Button, "https://figma.com/file/abc?node-id=1-2", {
  props: {
    label: figma.string("Caption"),
  },
  example: (props) => <Button label={props.label} />,
})
`
	w := postJSON(t, router, "/v1/bindings/validate", gin.H{
		"source":   source,
		"evidence": ev,
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result validate.ValidationResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Valid)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "Caption")
}

func TestHandleValidate_MissingFields(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{outputs: []string{validBindingSource}})

	w := postJSON(t, router, "/v1/bindings/validate", gin.H{"source": "x"})
	require.Equal(t, http.StatusBadRequest, w.Code)

	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp.Code)
}

func TestHandleGenerate_Succeeds(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{outputs: []string{validBindingSource}})

	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(testEvidenceJSON), &ev))

	w := postJSON(t, router, "/v1/bindings/generate", gin.H{
		"evidence": ev,
		"figmaUrl": "https://figma.com/file/abc?node-id=1-2",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var result orchestrate.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.True(t, result.Success)
	assert.Len(t, result.Attempts, 1)
	assert.Contains(t, result.Code, "figma.connect")
}

func TestHandleGenerate_ExhaustedIsStill200(t *testing.T) {
	badSource := `
import figma from "figma"
import { Button } from "./Button"

figma.connect(Button, "https://figma.com/file/abc?node-id=1-2", {
  props: {
    label: figma.string("Nope"),
  },
  example: (props) => <Button label={props.label} />,
})
`
	router := newTestRouter(t, &stubGenerator{outputs: []string{badSource}})

	var ev map[string]any
	require.NoError(t, json.Unmarshal([]byte(testEvidenceJSON), &ev))

	w := postJSON(t, router, "/v1/bindings/generate", gin.H{
		"evidence": ev,
		"figmaUrl": "https://figma.com/file/abc?node-id=1-2",
	})
	require.Equal(t, http.StatusOK, w.Code)

	var result orchestrate.Result
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.False(t, result.Success)
	// maxRetries=1 means exactly two generator calls.
	assert.Len(t, result.Attempts, 2)
	assert.NotEmpty(t, result.Errors)
}

func TestHandleHealth(t *testing.T) {
	router := newTestRouter(t, &stubGenerator{outputs: []string{validBindingSource}})

	req := httptest.NewRequest(http.MethodGet, "/v1/bindings/health", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
}
