// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package orchestrate drives the bounded generate, validate, repair loop
// for one component binding at a time.
package orchestrate

import "context"

// TokenUsage is the token accounting a generator reports for one call.
type TokenUsage struct {
	InputTokens  int `json:"inputTokens"`
	OutputTokens int `json:"outputTokens"`
}

// Total returns input plus output tokens.
func (u TokenUsage) Total() int {
	return u.InputTokens + u.OutputTokens
}

// GeneratorResult is the text and usage of one generator call.
type GeneratorResult struct {
	Text  string
	Usage *TokenUsage
}

// Generator is the generative-model collaborator that authors binding
// source. Transport, auth, and cost accounting live behind this interface.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Generator interface {
	// Generate produces binding source from a system and user prompt.
	//
	// Inputs:
	//   - ctx: Context for cancellation and timeout.
	//   - systemPrompt: Fixed instructions describing the binding DSL.
	//   - userPrompt: Component-specific request (initial or repair).
	//   - maxTokens: Per-call output token ceiling.
	//
	// Outputs:
	//   - *GeneratorResult: The generated text plus reported usage. Usage
	//     may be nil when the backend does not report it.
	//   - error: Transport/auth/rate-limit class failures. The orchestrator
	//     records these as generator errors, distinct from validation
	//     failures.
	Generate(ctx context.Context, systemPrompt, userPrompt string, maxTokens int) (*GeneratorResult, error)
}
