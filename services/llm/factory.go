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
	"fmt"
	"log/slog"
	"strings"

	"github.com/AleutianAI/bindsmith/services/binding/orchestrate"
)

// ProviderConfig selects and configures a generator backend.
type ProviderConfig struct {
	// Provider is one of "anthropic", "gemini", "openai", "ollama".
	Provider string
	// Model is the provider-specific model name. Empty uses the
	// provider's default.
	Model string
	// APIKey authenticates hosted providers. Ignored for ollama.
	APIKey string
	// BaseURL overrides the provider endpoint. Empty uses the default.
	BaseURL string
}

// NewGenerator builds an orchestrate.Generator for the configured provider.
//
// Description:
//
//	Central construction point so callers (CLI, HTTP service) never switch
//	on provider names themselves. Hosted providers fall back to their
//	environment-variable constructors when no explicit key is given, which
//	keeps container secret loading in one place.
//
// Outputs:
//   - orchestrate.Generator: The configured client.
//   - error: Non-nil for unknown providers or missing credentials.
func NewGenerator(cfg ProviderConfig) (orchestrate.Generator, error) {
	provider := strings.ToLower(strings.TrimSpace(cfg.Provider))
	slog.Info("Initializing generator", slog.String("provider", provider), slog.String("model", cfg.Model))

	switch provider {
	case "anthropic":
		if cfg.APIKey != "" {
			baseURL := cfg.BaseURL
			if baseURL == "" {
				baseURL = anthropicDefaultBaseURL
			}
			model := cfg.Model
			if model == "" {
				model = anthropicDefaultModel
			}
			return NewAnthropicClientWithConfig(cfg.APIKey, model, baseURL), nil
		}
		return NewAnthropicClient()

	case "gemini":
		if cfg.APIKey != "" {
			baseURL := cfg.BaseURL
			if baseURL == "" {
				baseURL = geminiDefaultBaseURL
			}
			model := cfg.Model
			if model == "" {
				model = geminiDefaultModel
			}
			return NewGeminiClientWithConfig(cfg.APIKey, model, baseURL), nil
		}
		return NewGeminiClient()

	case "openai":
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("llm: openai provider requires an API key")
		}
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.BaseURL)

	case "ollama":
		if cfg.Model == "" {
			return nil, fmt.Errorf("llm: ollama provider requires a model name")
		}
		return NewOllamaClient(cfg.Model, cfg.BaseURL)

	default:
		return nil, fmt.Errorf("llm: unknown provider %q (want anthropic, gemini, openai, or ollama)", cfg.Provider)
	}
}
