// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGeminiClient_Generate_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, "models/gemini-test:generateContent") {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		if r.URL.Query().Get("key") != "test-key" {
			t.Errorf("key param = %q, want %q", r.URL.Query().Get("key"), "test-key")
		}

		var req geminiRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("failed to decode request: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		if req.SystemInstruction == nil || len(req.SystemInstruction.Parts) == 0 {
			t.Error("expected a systemInstruction block")
		}
		if len(req.Contents) != 1 || req.Contents[0].Role != "user" {
			t.Errorf("contents not forwarded: %+v", req.Contents)
		}

		resp := geminiResponse{
			Candidates: []geminiCandidate{
				{
					Content:      geminiContent{Role: "model", Parts: []geminiPart{{Text: "figma.connect(...)"}}},
					FinishReason: "STOP",
				},
			},
			UsageMetadata: &geminiUsage{PromptTokenCount: 30, CandidatesTokenCount: 20, TotalTokenCount: 50},
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	client := NewGeminiClientWithConfig("test-key", "gemini-test", server.URL)

	result, err := client.Generate(context.Background(), "system rules", "write the binding", 256)
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if !strings.Contains(result.Text, "figma.connect") {
		t.Errorf("result text = %q, want binding source", result.Text)
	}
	if result.Usage == nil || result.Usage.InputTokens != 30 || result.Usage.OutputTokens != 20 {
		t.Errorf("usage = %+v, want 30/20", result.Usage)
	}
}

func TestGeminiClient_Generate_NoCandidates(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	}))
	defer server.Close()

	client := NewGeminiClientWithConfig("test-key", "gemini-test", server.URL)

	_, err := client.Generate(context.Background(), "", "write the binding", 256)
	if err == nil {
		t.Fatal("expected error for empty candidate list")
	}
	if !strings.Contains(err.Error(), "no candidates") {
		t.Errorf("error = %q, want mention of missing candidates", err.Error())
	}
}

func TestGeminiClient_Generate_HTTPErrorRedactsKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte(`request to key=AIzaSyAbcDefGhiJklMnoPqrStUvWxYz01234567 denied`))
	}))
	defer server.Close()

	client := NewGeminiClientWithConfig("test-key", "gemini-test", server.URL)

	_, err := client.Generate(context.Background(), "", "write the binding", 256)
	if err == nil {
		t.Fatal("expected error for 403 response")
	}
	if strings.Contains(err.Error(), "AIzaSy") {
		t.Errorf("error leaked an API key: %s", err.Error())
	}
	// The key-shaped token is consumed by the gemini pattern before the
	// generic key= parameter pattern can fire.
	if !strings.Contains(err.Error(), "key=[REDACTED:gemini_key]") {
		t.Errorf("error should carry the redaction label, got: %s", err.Error())
	}
}
