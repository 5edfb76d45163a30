// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package orchestrate

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/bindsmith/services/binding/evidence"
	"github.com/AleutianAI/bindsmith/services/binding/validate"
)

// scriptedOutput is one canned generator response.
type scriptedOutput struct {
	text  string
	usage *TokenUsage
	err   error
}

// scriptedGenerator replays canned responses and records the prompts it saw.
type scriptedGenerator struct {
	mu      sync.Mutex
	outputs []scriptedOutput
	calls   int
	prompts []string
}

func (g *scriptedGenerator) Generate(_ context.Context, _ string, userPrompt string, _ int) (*GeneratorResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.prompts = append(g.prompts, userPrompt)
	i := g.calls
	g.calls++
	if i >= len(g.outputs) {
		return &GeneratorResult{Text: "// out of script"}, nil
	}
	out := g.outputs[i]
	if out.err != nil {
		return nil, out.err
	}
	return &GeneratorResult{Text: out.text, Usage: out.usage}, nil
}

// scriptedChecker replays canned verdicts and records what it validated.
type scriptedChecker struct {
	mu        sync.Mutex
	verdicts  []validate.ValidationResult
	calls     int
	sources   []string
	fileNames []string
}

func (c *scriptedChecker) Check(_ context.Context, source string, _ *evidence.Evidence, fileName string) validate.ValidationResult {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sources = append(c.sources, source)
	c.fileNames = append(c.fileNames, fileName)
	i := c.calls
	c.calls++
	if i >= len(c.verdicts) {
		return validate.ValidationResult{Valid: false, Errors: []string{"out of script"}}
	}
	return c.verdicts[i]
}

func testEvidence() *evidence.Evidence {
	return &evidence.Evidence{
		ComponentName: "Button",
		ComponentProperties: []evidence.ComponentProperty{
			{Name: "Label", Kind: evidence.KindString},
		},
	}
}

func testTarget() Target {
	return Target{
		FigmaURL:        "https://figma.com/file/abc?node-id=1-2",
		ComponentImport: "./src/components/Button",
		ComponentExport: "Button",
	}
}

func valid() validate.ValidationResult {
	return validate.ValidationResult{Valid: true, Errors: []string{}}
}

func invalid(errs ...string) validate.ValidationResult {
	return validate.ValidationResult{Valid: false, Errors: errs}
}

func TestOrchestrator_FirstAttemptSucceeds(t *testing.T) {
	gen := &scriptedGenerator{outputs: []scriptedOutput{
		{text: "binding source", usage: &TokenUsage{InputTokens: 100, OutputTokens: 50}},
	}}
	checker := &scriptedChecker{verdicts: []validate.ValidationResult{valid()}}
	o := New(gen, checker)

	result, err := o.Run(context.Background(), testEvidence(), testTarget())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "binding source", result.Code)
	assert.Equal(t, "Button", result.ComponentName)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 150, result.TokensUsed)

	require.Len(t, result.Attempts, 1)
	assert.Equal(t, 1, result.GeneratorCalls())
	assert.Equal(t, 0, result.Attempts[0].Index)
	assert.True(t, result.Attempts[0].Valid)
	assert.Empty(t, result.Attempts[0].ErrorType)
	assert.Empty(t, result.Errors)
}

func TestOrchestrator_RepairConverges(t *testing.T) {
	gen := &scriptedGenerator{outputs: []scriptedOutput{
		{text: "first draft", usage: &TokenUsage{InputTokens: 100, OutputTokens: 40}},
		{text: "repaired draft", usage: &TokenUsage{InputTokens: 120, OutputTokens: 45}},
	}}
	checker := &scriptedChecker{verdicts: []validate.ValidationResult{
		invalid(`line 4: KeyError: string helper references unknown string-capable property "Headline"`),
		valid(),
	}}
	o := New(gen, checker, WithMaxRetries(2))

	result, err := o.Run(context.Background(), testEvidence(), testTarget())
	require.NoError(t, err)

	assert.True(t, result.Success)
	assert.Equal(t, "repaired draft", result.Code)
	require.Len(t, result.Attempts, 2)

	first := result.Attempts[0]
	assert.False(t, first.Valid)
	assert.Equal(t, ErrorTypeValidation, first.ErrorType)
	assert.Equal(t, "first draft", first.GeneratedCode)

	second := result.Attempts[1]
	assert.True(t, second.Valid)
	assert.Equal(t, 1, second.Index)

	// The repair prompt embeds the prior source and its error list.
	require.Len(t, gen.prompts, 2)
	assert.Contains(t, gen.prompts[1], "first draft")
	assert.Contains(t, gen.prompts[1], "Headline")
	assert.NotContains(t, gen.prompts[0], "failed validation")

	assert.Equal(t, 100+40+120+45, result.TokensUsed)
}

func TestOrchestrator_ExhaustsRetryBudget(t *testing.T) {
	gen := &scriptedGenerator{outputs: []scriptedOutput{
		{text: "a"}, {text: "b"}, {text: "c"}, {text: "never reached"},
	}}
	checker := &scriptedChecker{verdicts: []validate.ValidationResult{
		invalid("err 1"),
		invalid("err 2"),
		invalid("err 3a", "err 3b"),
	}}
	o := New(gen, checker, WithMaxRetries(2))

	result, err := o.Run(context.Background(), testEvidence(), testTarget())
	require.NoError(t, err, "an exhausted budget is a normal outcome, not an error")

	assert.False(t, result.Success)
	assert.Empty(t, result.Code)

	// With a retry budget of N, exactly N+1 generator calls are made.
	assert.Equal(t, 3, gen.calls)
	require.Len(t, result.Attempts, 3)
	assert.Equal(t, 3, result.GeneratorCalls())

	// The terminal error list is the last attempt's.
	assert.Equal(t, []string{"err 3a", "err 3b"}, result.Errors)

	for i, attempt := range result.Attempts {
		assert.Equal(t, i, attempt.Index)
		assert.Equal(t, ErrorTypeValidation, attempt.ErrorType)
	}
}

func TestOrchestrator_ZeroRetriesMeansOneCall(t *testing.T) {
	gen := &scriptedGenerator{outputs: []scriptedOutput{{text: "a"}, {text: "b"}}}
	checker := &scriptedChecker{verdicts: []validate.ValidationResult{invalid("nope")}}
	o := New(gen, checker, WithMaxRetries(0))

	result, err := o.Run(context.Background(), testEvidence(), testTarget())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Equal(t, 1, gen.calls)
	assert.Len(t, result.Attempts, 1)
}

func TestOrchestrator_GeneratorErrorConsumesRetry(t *testing.T) {
	gen := &scriptedGenerator{outputs: []scriptedOutput{
		{err: errors.New("rate limited")},
		{text: "second try", usage: &TokenUsage{InputTokens: 10, OutputTokens: 5}},
	}}
	checker := &scriptedChecker{verdicts: []validate.ValidationResult{valid()}}
	o := New(gen, checker, WithMaxRetries(1))

	result, err := o.Run(context.Background(), testEvidence(), testTarget())
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.Len(t, result.Attempts, 2)

	first := result.Attempts[0]
	assert.False(t, first.Valid)
	assert.Equal(t, ErrorTypeGenerator, first.ErrorType)
	assert.Empty(t, first.GeneratedCode)
	require.Len(t, first.Errors, 1)
	assert.Contains(t, first.Errors[0], "rate limited")

	// Validation never ran for the failed call.
	assert.Equal(t, 1, checker.calls)
}

func TestOrchestrator_GeneratorErrorExhausts(t *testing.T) {
	gen := &scriptedGenerator{outputs: []scriptedOutput{
		{err: errors.New("boom")},
		{err: errors.New("boom again")},
	}}
	checker := &scriptedChecker{}
	o := New(gen, checker, WithMaxRetries(1))

	result, err := o.Run(context.Background(), testEvidence(), testTarget())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Len(t, result.Attempts, 2)
	assert.Zero(t, checker.calls)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "boom again")
}

func TestOrchestrator_StripsCodeFences(t *testing.T) {
	gen := &scriptedGenerator{outputs: []scriptedOutput{
		{text: "```tsx\nfenced source\n```"},
	}}
	checker := &scriptedChecker{verdicts: []validate.ValidationResult{valid()}}
	o := New(gen, checker)

	result, err := o.Run(context.Background(), testEvidence(), testTarget())
	require.NoError(t, err)

	assert.Equal(t, "fenced source", result.Code)
	require.Len(t, checker.sources, 1)
	assert.Equal(t, "fenced source", checker.sources[0], "the checker sees unfenced source")
}

func TestOrchestrator_DefaultFileName(t *testing.T) {
	gen := &scriptedGenerator{outputs: []scriptedOutput{{text: "src"}}}
	checker := &scriptedChecker{verdicts: []validate.ValidationResult{valid()}}
	o := New(gen, checker)

	_, err := o.Run(context.Background(), testEvidence(), Target{FigmaURL: "https://figma.com/x"})
	require.NoError(t, err)

	require.Len(t, checker.fileNames, 1)
	assert.Equal(t, "Button.figma.tsx", checker.fileNames[0])
}

func TestOrchestrator_TokenBudgetStopsRun(t *testing.T) {
	gen := &scriptedGenerator{outputs: []scriptedOutput{{text: "never called"}}}
	checker := &scriptedChecker{}
	o := New(gen, checker, WithTokenBudgetLimit(10))

	result, err := o.Run(context.Background(), testEvidence(), testTarget())
	require.NoError(t, err)

	assert.False(t, result.Success)
	assert.Zero(t, gen.calls)
	assert.Empty(t, result.Attempts)
	require.NotEmpty(t, result.Errors)
	assert.Contains(t, result.Errors[0], "token budget exhausted")
}

func TestOrchestrator_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	gen := &scriptedGenerator{}
	checker := &scriptedChecker{}
	o := New(gen, checker)

	result, err := o.Run(ctx, testEvidence(), testTarget())
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, result, "the partial result is still returned")
	assert.Zero(t, gen.calls)
}

func TestOrchestrator_NilUsageTolerated(t *testing.T) {
	gen := &scriptedGenerator{outputs: []scriptedOutput{{text: "src"}}}
	checker := &scriptedChecker{verdicts: []validate.ValidationResult{valid()}}
	o := New(gen, checker)

	result, err := o.Run(context.Background(), testEvidence(), testTarget())
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Zero(t, result.TokensUsed)
	assert.Nil(t, result.Attempts[0].Usage)
}

func TestOrchestrator_RealPipelineRepair(t *testing.T) {
	// End to end against the real extractor and tier-1 validator: the first
	// draft references an unknown key, the second fixes it.
	badDraft := `import figma from '@figma/code-connect'

figma.connect(Button, 'https://figma.com/file/abc', {
  props: { label: figma.string('Headline') },
  example: (props) => <Button label={props.label} />,
})
`
	goodDraft := `import figma from '@figma/code-connect'

figma.connect(Button, 'https://figma.com/file/abc', {
  props: { label: figma.string('Label') },
  example: (props) => <Button label={props.label} />,
})
`
	gen := &scriptedGenerator{outputs: []scriptedOutput{
		{text: badDraft},
		{text: goodDraft},
	}}
	o := New(gen, validate.NewPipeline(nil), WithMaxRetries(1))

	result, err := o.Run(context.Background(), testEvidence(), testTarget())
	require.NoError(t, err)

	assert.True(t, result.Success)
	require.Len(t, result.Attempts, 2)
	assert.False(t, result.Attempts[0].Valid)
	assert.Contains(t, result.Attempts[0].Errors[0], "Headline")
	assert.True(t, result.Attempts[1].Valid)
}

func TestOrchestrator_RunAll(t *testing.T) {
	gen := &scriptedGenerator{}
	checker := &alwaysValidChecker{}
	o := New(gen, checker)

	names := []string{"Button", "Card", "Badge"}
	jobs := make([]Job, 0, len(names))
	for _, name := range names {
		jobs = append(jobs, Job{
			Evidence: &evidence.Evidence{ComponentName: name},
			Target:   Target{FigmaURL: "https://figma.com/file/abc"},
		})
	}

	results, err := o.RunAll(context.Background(), jobs, 2)
	require.NoError(t, err)
	require.Len(t, results, 3)

	// Results stay index-aligned with their jobs.
	for i, res := range results {
		require.NotNil(t, res)
		assert.Equal(t, names[i], res.ComponentName)
		assert.True(t, res.Success)
	}
}

// alwaysValidChecker accepts everything; used for concurrency-shape tests.
type alwaysValidChecker struct{}

func (alwaysValidChecker) Check(context.Context, string, *evidence.Evidence, string) validate.ValidationResult {
	return validate.ValidationResult{Valid: true, Errors: []string{}}
}

func TestStripCodeFences(t *testing.T) {
	cases := map[string]string{
		"plain":                           "plain",
		"```tsx\ncode\n```":               "code",
		"```\ncode\n```":                  "code",
		"  ```tsx\nline1\nline2\n```  ":   "line1\nline2",
		"```tsx\nno trailing fence":       "no trailing fence",
		"code with ``` in the middle":     "code with ``` in the middle",
	}
	for in, want := range cases {
		assert.Equal(t, want, stripCodeFences(in), "input %q", in)
	}
}

func TestTokenBudget(t *testing.T) {
	b := NewTokenBudget("Button", 1000)

	ok, remaining := b.CanSpend(400)
	assert.True(t, ok)
	assert.Equal(t, 600, remaining)

	b.Record(700)
	ok, remaining = b.CanSpend(400)
	assert.False(t, ok)
	assert.Equal(t, 300, remaining)
	assert.Equal(t, 700, b.Consumed())

	assert.Contains(t, b.Summary(), "700/1000")
}

func TestTokenBudget_UnlimitedWhenZero(t *testing.T) {
	b := NewTokenBudget("Button", 0)

	ok, _ := b.CanSpend(1 << 30)
	assert.True(t, ok)
	b.Record(5000)
	ok, _ = b.CanSpend(1 << 30)
	assert.True(t, ok)
	assert.Contains(t, b.Summary(), "unlimited")
}
