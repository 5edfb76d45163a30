// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package binding exposes binding generation and validation as an HTTP
// service and as a library surface for the bindsmith CLI.
package binding

import (
	"context"
	"fmt"
	"time"

	"github.com/AleutianAI/bindsmith/services/binding/config"
	"github.com/AleutianAI/bindsmith/services/binding/evidence"
	"github.com/AleutianAI/bindsmith/services/binding/orchestrate"
	"github.com/AleutianAI/bindsmith/services/binding/validate"
	"github.com/AleutianAI/bindsmith/services/llm"
)

// Service wires the validation pipeline and the retry orchestrator behind
// one construction point shared by the HTTP handlers and the CLI.
//
// Thread Safety: Service is safe for concurrent use; all per-request state
// lives in the pipeline and orchestrator calls.
type Service struct {
	cfg      *config.Config
	pipeline *validate.Pipeline
	orch     *orchestrate.Orchestrator
}

// NewService builds a Service from resolved configuration.
//
// Description:
//
//	Constructs the generator from the configured provider, the optional
//	tier-2 toolchain validator, the two-tier pipeline, and the orchestrator
//	with retry, token budget, and rate limit settings applied.
//
// Outputs:
//   - *Service: The ready service.
//   - error: Non-nil when the generator cannot be constructed.
func NewService(cfg *config.Config) (*Service, error) {
	gen, err := llm.NewGenerator(llm.ProviderConfig{
		Provider: cfg.Generator.Provider,
		Model:    cfg.Generator.Model,
		APIKey:   cfg.Generator.APIKey,
		BaseURL:  cfg.Generator.BaseURL,
	})
	if err != nil {
		return nil, fmt.Errorf("binding: building generator: %w", err)
	}
	return newServiceWithGenerator(cfg, gen), nil
}

// newServiceWithGenerator finishes construction around an existing
// generator. Split out so tests can inject a deterministic one.
func newServiceWithGenerator(cfg *config.Config, gen orchestrate.Generator) *Service {
	var external validate.ExternalValidator
	if cfg.Validator.Command != "" {
		opts := []validate.ToolchainOption{}
		if cfg.Validator.TimeoutSeconds > 0 {
			opts = append(opts, validate.WithTimeout(time.Duration(cfg.Validator.TimeoutSeconds)*time.Second))
		}
		external = validate.NewToolchainValidator(cfg.Validator.Command, cfg.Validator.Args, opts...)
	}

	pipeline := validate.NewPipeline(external, validate.WithParserMode(cfg.Validator.ParserMode))

	orchOpts := []orchestrate.Option{
		orchestrate.WithMaxRetries(cfg.Orchestrator.MaxRetries),
		orchestrate.WithMaxTokens(cfg.Generator.MaxTokens),
		orchestrate.WithTokenBudgetLimit(cfg.Orchestrator.TokenBudget),
	}
	if cfg.Generator.RequestsPerSecond > 0 {
		burst := cfg.Generator.Burst
		if burst < 1 {
			burst = 1
		}
		orchOpts = append(orchOpts, orchestrate.WithRateLimit(cfg.Generator.RequestsPerSecond, burst))
	}

	return &Service{
		cfg:      cfg,
		pipeline: pipeline,
		orch:     orchestrate.New(gen, pipeline, orchOpts...),
	}
}

// Config returns the configuration the service was built with.
func (s *Service) Config() *config.Config {
	return s.cfg
}

// Validate runs one source file through the two-tier pipeline.
func (s *Service) Validate(ctx context.Context, source string, ev *evidence.Evidence, fileName string) validate.ValidationResult {
	return s.pipeline.Check(ctx, source, ev, fileName)
}

// Generate runs the full generate-validate-repair loop for one component.
func (s *Service) Generate(ctx context.Context, ev *evidence.Evidence, target orchestrate.Target) (*orchestrate.Result, error) {
	return s.orch.Run(ctx, ev, target)
}

// GenerateAll runs the loop for multiple components with bounded
// concurrency taken from configuration.
func (s *Service) GenerateAll(ctx context.Context, jobs []orchestrate.Job) ([]*orchestrate.Result, error) {
	return s.orch.RunAll(ctx, jobs, s.cfg.Orchestrator.Concurrency)
}
