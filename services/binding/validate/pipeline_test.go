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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeExternal replays a canned tier-2 verdict and records how it was called.
type fakeExternal struct {
	result ValidationResult
	err    error
	calls  int
	mode   string
}

func (f *fakeExternal) CheckSource(_ context.Context, _ string, parserMode string) (ValidationResult, error) {
	f.calls++
	f.mode = parserMode
	if f.err != nil {
		return ValidationResult{}, f.err
	}
	return f.result, nil
}

const pipelineValidSource = `import figma from '@figma/code-connect'

figma.connect(Button, 'https://figma.com/file/abc?node-id=1-2', {
  props: { label: figma.string('Label') },
  example: (props) => <Button label={props.label} />,
})
`

func TestPipeline_Tier1OnlyWhenExternalDisabled(t *testing.T) {
	p := NewPipeline(nil)

	result := p.Check(context.Background(), pipelineValidSource, buttonEvidence(), "Button.figma.tsx")
	assert.True(t, result.Valid, "errors: %v", result.Errors)
}

func TestPipeline_ParseErrorBecomesErrorList(t *testing.T) {
	external := &fakeExternal{result: ValidationResult{Valid: true, Errors: []string{}}}
	p := NewPipeline(external)

	result := p.Check(context.Background(), "figma.connect(Button, {", buttonEvidence(), "broken.figma.tsx")

	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "ParseError")
	// Tier 2 never runs on a parse failure.
	assert.Zero(t, external.calls)
}

func TestPipeline_Tier1FailureShortCircuitsTier2(t *testing.T) {
	external := &fakeExternal{result: ValidationResult{Valid: true, Errors: []string{}}}
	p := NewPipeline(external)

	source := `import figma from '@figma/code-connect'

figma.connect(Button, 'https://figma.com/file/abc', {
  props: { label: figma.string('Unknown Key') },
  example: (props) => <Button label={props.label} />,
})
`
	result := p.Check(context.Background(), source, buttonEvidence(), "Button.figma.tsx")

	require.False(t, result.Valid)
	assert.Zero(t, external.calls, "tier 2 must not run when tier 1 fails")
}

func TestPipeline_Tier2VerdictIsAuthoritative(t *testing.T) {
	external := &fakeExternal{result: ValidationResult{
		Valid:  false,
		Errors: []string{"line 4: ExternalValidatorError: type mismatch"},
	}}
	p := NewPipeline(external, WithParserMode("tsx"))

	result := p.Check(context.Background(), pipelineValidSource, buttonEvidence(), "Button.figma.tsx")

	require.Equal(t, 1, external.calls)
	assert.Equal(t, "tsx", external.mode)
	require.False(t, result.Valid)
	assert.Contains(t, result.Errors[0], "type mismatch")
}

func TestPipeline_Tier2PassConfirmsVerdict(t *testing.T) {
	external := &fakeExternal{result: ValidationResult{Valid: true}}
	p := NewPipeline(external)

	result := p.Check(context.Background(), pipelineValidSource, buttonEvidence(), "Button.figma.tsx")

	assert.True(t, result.Valid)
	// A nil error list from tier 2 is normalized for JSON consumers.
	assert.NotNil(t, result.Errors)
}

func TestPipeline_Tier2TransportFailureIsRecoverable(t *testing.T) {
	external := &fakeExternal{err: fmt.Errorf("%w: validator binary not found", ErrExternalValidator)}
	p := NewPipeline(external)

	result := p.Check(context.Background(), pipelineValidSource, buttonEvidence(), "Button.figma.tsx")

	// The failure folds into the verdict instead of escaping as an error,
	// so the orchestrator treats it like any other failed attempt.
	require.False(t, result.Valid)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "validator binary not found")
}

func TestPipeline_ParserModeDefault(t *testing.T) {
	external := &fakeExternal{result: ValidationResult{Valid: true, Errors: []string{}}}
	p := NewPipeline(external)

	p.Check(context.Background(), pipelineValidSource, buttonEvidence(), "Button.figma.tsx")
	assert.Equal(t, "tsx", external.mode)
}
