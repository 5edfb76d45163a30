// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package validate

import (
	"context"
	"log/slog"

	"github.com/AleutianAI/bindsmith/services/binding/ast"
	"github.com/AleutianAI/bindsmith/services/binding/evidence"
)

// Pipeline runs extraction, the tier-1 validator, and — only when tier 1
// passes — the authoritative tier-2 collaborator.
//
// Description:
//
//	A ParseError from extraction is caught here and converted into a
//	single-element error list; it never escapes as an exception. An
//	ExternalValidator of nil disables tier 2 (tier 1 verdicts become final),
//	which is how tests and offline validation runs are wired.
//
// Thread Safety: Safe for concurrent use.
type Pipeline struct {
	extractor  *ast.Extractor
	tier1      *Validator
	external   ExternalValidator
	parserMode string
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithParserMode sets the parser mode handed to the external validator.
func WithParserMode(mode string) PipelineOption {
	return func(p *Pipeline) {
		p.parserMode = mode
	}
}

// WithExtractor overrides the default extractor.
func WithExtractor(x *ast.Extractor) PipelineOption {
	return func(p *Pipeline) {
		p.extractor = x
	}
}

// NewPipeline creates the two-tier validation pipeline.
func NewPipeline(external ExternalValidator, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		extractor:  ast.NewExtractor(),
		tier1:      NewValidator(),
		external:   external,
		parserMode: "tsx",
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Check validates raw binding source against evidence through both tiers.
//
// Description:
//
//	Any tier-1 failure prevents tier 2 from running. A tier-2 transport
//	failure is folded into the result as an ExternalValidatorError entry so
//	the orchestrator can treat it as a recoverable validation failure.
//
// Outputs:
//   - ValidationResult: The combined verdict. Deterministic for identical
//     (source, evidence) inputs when tier 2 is disabled.
func (p *Pipeline) Check(ctx context.Context, source string, ev *evidence.Evidence, fileName string) ValidationResult {
	ir, err := p.extractor.Extract(ctx, []byte(source), fileName)
	if err != nil {
		// ParseError and extraction preconditions collapse into a
		// single-element error list.
		return invalid([]string{err.Error()})
	}

	result := p.tier1.Validate(ir, ev, source)
	if !result.Valid {
		return result
	}

	if p.external == nil {
		return result
	}

	external, err := p.external.CheckSource(ctx, source, p.parserMode)
	if err != nil {
		slog.Warn("external validator did not run",
			slog.String("file", fileName),
			slog.String("error", err.Error()))
		return invalid([]string{err.Error()})
	}
	if external.Errors == nil {
		external.Errors = []string{}
	}
	return external
}
