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
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/AleutianAI/bindsmith/services/binding/orchestrate"
)

// LangchainClient adapts any langchaingo model to orchestrate.Generator.
//
// Description:
//
//	Wraps a langchaingo llms.Model so OpenAI-compatible endpoints and local
//	Ollama servers can serve as binding generators without their own wire
//	code. Token usage is read from the provider's GenerationInfo when the
//	backend reports it; otherwise Usage is nil and the orchestrator falls
//	back to its own estimate.
//
// Thread Safety: Safe for concurrent use when the wrapped model is.
type LangchainClient struct {
	model    llms.Model
	provider string
}

// NewOpenAIClient creates an OpenAI-backed generator via langchaingo.
//
// Inputs:
//   - apiKey: The OpenAI API key.
//   - model: The model name (e.g., "gpt-4o").
//   - baseURL: Optional OpenAI-compatible endpoint; empty means the default.
func NewOpenAIClient(apiKey, model, baseURL string) (*LangchainClient, error) {
	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(model),
	}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	m, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("openai: creating client: %w", err)
	}
	return &LangchainClient{model: m, provider: "openai"}, nil
}

// NewOllamaClient creates an Ollama-backed generator via langchaingo.
//
// Inputs:
//   - model: The local model name (e.g., "qwen2.5-coder:14b").
//   - serverURL: Optional Ollama server URL; empty means localhost default.
func NewOllamaClient(model, serverURL string) (*LangchainClient, error) {
	opts := []ollama.Option{
		ollama.WithModel(model),
	}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	m, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("ollama: creating client: %w", err)
	}
	return &LangchainClient{model: m, provider: "ollama"}, nil
}

// Generate implements orchestrate.Generator.
func (c *LangchainClient) Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (*orchestrate.GeneratorResult, error) {
	content := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userPrompt),
	}

	resp, err := c.model.GenerateContent(ctx, content, llms.WithMaxTokens(maxTokens))
	if err != nil {
		return nil, fmt.Errorf("%s: generate content: %w", c.provider, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Content == "" {
		return nil, fmt.Errorf("%s: received empty response", c.provider)
	}

	choice := resp.Choices[0]
	result := &orchestrate.GeneratorResult{Text: choice.Content}

	if in, out, ok := usageFromGenerationInfo(choice.GenerationInfo); ok {
		result.Usage = &orchestrate.TokenUsage{InputTokens: in, OutputTokens: out}
	} else {
		slog.Debug("no token usage in generation info", "provider", c.provider)
	}
	return result, nil
}

// usageFromGenerationInfo extracts prompt/completion token counts from the
// loosely typed GenerationInfo map. Providers disagree on key casing and
// numeric type, so both are probed.
func usageFromGenerationInfo(info map[string]any) (in, out int, ok bool) {
	if info == nil {
		return 0, 0, false
	}
	in, inOK := intValue(info, "PromptTokens", "prompt_tokens")
	out, outOK := intValue(info, "CompletionTokens", "completion_tokens")
	return in, out, inOK && outOK
}

func intValue(info map[string]any, keys ...string) (int, bool) {
	for _, k := range keys {
		switch v := info[k].(type) {
		case int:
			return v, true
		case int64:
			return int(v), true
		case float64:
			return int(v), true
		}
	}
	return 0, false
}
