// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package config loads bindsmith configuration from a YAML file with
// environment variable overrides layered on top.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Provider constants for supported generator backends.
const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
	ProviderOpenAI    = "openai"
	ProviderGemini    = "gemini"
)

// ValidProviders contains the set of valid provider names.
var ValidProviders = []string{ProviderOllama, ProviderAnthropic, ProviderOpenAI, ProviderGemini}

// GeneratorConfig selects and tunes the LLM backend that authors bindings.
type GeneratorConfig struct {
	// Provider is the backend to use: "ollama", "anthropic", "openai", "gemini".
	Provider string `yaml:"provider"`

	// Model is the provider-specific model identifier.
	Model string `yaml:"model"`

	// BaseURL is an optional endpoint override.
	// For Ollama: defaults to OLLAMA_BASE_URL or http://localhost:11434.
	BaseURL string `yaml:"baseUrl"`

	// APIKey authenticates cloud providers. Usually left empty in the file
	// and supplied via ANTHROPIC_API_KEY / OPENAI_API_KEY / GEMINI_API_KEY.
	APIKey string `yaml:"apiKey"`

	// MaxTokens is the per-call output token ceiling.
	MaxTokens int `yaml:"maxTokens"`

	// RequestsPerSecond rate-limits generator calls. 0 disables limiting.
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`

	// Burst is the rate limiter burst size. Defaults to 1 when limiting.
	Burst int `yaml:"burst"`
}

// OrchestratorConfig tunes the generate-validate-repair loop.
type OrchestratorConfig struct {
	// MaxRetries is the repair budget N; at most N+1 generator calls per run.
	MaxRetries int `yaml:"maxRetries"`

	// TokenBudget caps total tokens per run. 0 means unlimited.
	TokenBudget int `yaml:"tokenBudget"`

	// Concurrency bounds simultaneous component runs in batch mode.
	Concurrency int `yaml:"concurrency"`
}

// ValidatorConfig configures the optional tier-2 toolchain validator.
type ValidatorConfig struct {
	// Command is the external validator binary. Empty disables tier 2.
	Command string `yaml:"command"`

	// Args are passed before the parser mode and file arguments.
	Args []string `yaml:"args"`

	// ParserMode is forwarded to the validator ("tsx" or "ts").
	ParserMode string `yaml:"parserMode"`

	// TimeoutSeconds bounds one validator invocation. 0 uses the default.
	TimeoutSeconds int `yaml:"timeoutSeconds"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	// Addr is the listen address, e.g. ":8085".
	Addr string `yaml:"addr"`
}

// Config is the root bindsmith configuration.
type Config struct {
	Server       ServerConfig       `yaml:"server"`
	Generator    GeneratorConfig    `yaml:"generator"`
	Orchestrator OrchestratorConfig `yaml:"orchestrator"`
	Validator    ValidatorConfig    `yaml:"validator"`

	// EvidenceDir is where batch and watch modes look for evidence JSON.
	EvidenceDir string `yaml:"evidenceDir"`

	// OutputDir is where generated binding files are written.
	OutputDir string `yaml:"outputDir"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8085"},
		Generator: GeneratorConfig{
			Provider:  ProviderOllama,
			MaxTokens: 4096,
			Burst:     1,
		},
		Orchestrator: OrchestratorConfig{
			MaxRetries:  2,
			Concurrency: 4,
		},
		Validator: ValidatorConfig{
			ParserMode:     "tsx",
			TimeoutSeconds: 60,
		},
		EvidenceDir: "evidence",
		OutputDir:   "bindings",
	}
}

// Load reads configuration from an optional YAML file and applies
// environment overrides.
//
// Description:
//
//	A missing file is not an error when path is empty; an explicit path
//	that cannot be read is. Environment variables win over file values so
//	container deployments can override without editing files.
//
// Inputs:
//   - path: YAML config file path. Empty means defaults + environment only.
//
// Outputs:
//   - *Config: The resolved configuration.
//   - error: Non-nil on unreadable file, bad YAML, or invalid values.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parsing %s: %w", path, err)
		}
		slog.Info("Loaded configuration file", slog.String("path", path))
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides layers BINDSMITH_* and provider key variables over the
// file values.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("BINDSMITH_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("BINDSMITH_PROVIDER"); v != "" {
		cfg.Generator.Provider = v
	}
	if v := os.Getenv("BINDSMITH_MODEL"); v != "" {
		cfg.Generator.Model = v
	}
	if v := os.Getenv("BINDSMITH_BASE_URL"); v != "" {
		cfg.Generator.BaseURL = v
	}
	if v := os.Getenv("BINDSMITH_MAX_RETRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Orchestrator.MaxRetries = n
		} else {
			slog.Warn("Ignoring invalid BINDSMITH_MAX_RETRIES", slog.String("value", v))
		}
	}
	if v := os.Getenv("BINDSMITH_TOKEN_BUDGET"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			cfg.Orchestrator.TokenBudget = n
		} else {
			slog.Warn("Ignoring invalid BINDSMITH_TOKEN_BUDGET", slog.String("value", v))
		}
	}
	if v := os.Getenv("BINDSMITH_VALIDATOR_CMD"); v != "" {
		cfg.Validator.Command = v
	}
	if v := os.Getenv("BINDSMITH_EVIDENCE_DIR"); v != "" {
		cfg.EvidenceDir = v
	}
	if v := os.Getenv("BINDSMITH_OUTPUT_DIR"); v != "" {
		cfg.OutputDir = v
	}

	// Provider API keys come only from the environment, never the file on
	// disk, when both are present.
	switch cfg.Generator.Provider {
	case ProviderAnthropic:
		if v := os.Getenv("ANTHROPIC_API_KEY"); v != "" {
			cfg.Generator.APIKey = v
		}
	case ProviderOpenAI:
		if v := os.Getenv("OPENAI_API_KEY"); v != "" {
			cfg.Generator.APIKey = v
		}
	case ProviderGemini:
		if v := os.Getenv("GEMINI_API_KEY"); v != "" {
			cfg.Generator.APIKey = v
		}
	case ProviderOllama:
		if cfg.Generator.BaseURL == "" {
			cfg.Generator.BaseURL = ResolveOllamaURL()
		}
	}
}

// Validate rejects configurations no component could run with.
func (c *Config) Validate() error {
	if !isValidProvider(c.Generator.Provider) {
		return fmt.Errorf("config: invalid provider %q (valid: %v)", c.Generator.Provider, ValidProviders)
	}
	if c.Generator.MaxTokens <= 0 {
		return fmt.Errorf("config: generator.maxTokens must be positive, got %d", c.Generator.MaxTokens)
	}
	if c.Orchestrator.MaxRetries < 0 {
		return fmt.Errorf("config: orchestrator.maxRetries must be >= 0, got %d", c.Orchestrator.MaxRetries)
	}
	if c.Validator.ParserMode != "tsx" && c.Validator.ParserMode != "ts" {
		return fmt.Errorf("config: validator.parserMode must be \"tsx\" or \"ts\", got %q", c.Validator.ParserMode)
	}
	return nil
}

// isValidProvider checks if a provider name is valid.
func isValidProvider(provider string) bool {
	for _, p := range ValidProviders {
		if provider == p {
			return true
		}
	}
	return false
}

// ResolveOllamaURL resolves the Ollama server URL from environment variables.
//
// Description:
//
//	Resolution order:
//	  1. OLLAMA_BASE_URL (preferred)
//	  2. OLLAMA_URL (deprecated, emits warning)
//	  3. http://localhost:11434 (default)
func ResolveOllamaURL() string {
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		return url
	}
	if url := os.Getenv("OLLAMA_URL"); url != "" {
		slog.Warn("OLLAMA_URL is deprecated, use OLLAMA_BASE_URL instead",
			slog.String("ollama_url", url))
		return url
	}
	return "http://localhost:11434"
}
