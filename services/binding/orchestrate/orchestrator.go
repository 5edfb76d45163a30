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
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/bindsmith/services/binding/evidence"
	"github.com/AleutianAI/bindsmith/services/binding/validate"
)

// State is one phase of the orchestration state machine.
type State int

// Orchestration states. Every run walks Generating -> Validating ->
// (Succeeded | Repairing) and either loops back to Generating or terminates
// Exhausted.
const (
	StateGenerating State = iota
	StateValidating
	StateRepairing
	StateSucceeded
	StateExhausted
)

// String implements fmt.Stringer for log output.
func (s State) String() string {
	switch s {
	case StateGenerating:
		return "GENERATING"
	case StateValidating:
		return "VALIDATING"
	case StateRepairing:
		return "REPAIRING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateExhausted:
		return "EXHAUSTED"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Checker abstracts the two-tier validation pipeline so tests can replay
// deterministic verdict sequences. *validate.Pipeline satisfies it.
type Checker interface {
	Check(ctx context.Context, source string, ev *evidence.Evidence, fileName string) validate.ValidationResult
}

// Defaults for orchestrator options.
const (
	DefaultMaxRetries = 2
	DefaultMaxTokens  = 4096
)

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithMaxRetries sets the retry budget N. The loop performs at most N+1
// generator calls; the bound is exact.
func WithMaxRetries(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.maxRetries = n
		}
	}
}

// WithMaxTokens sets the per-call output token ceiling.
func WithMaxTokens(n int) Option {
	return func(o *Orchestrator) {
		if n > 0 {
			o.maxTokens = n
		}
	}
}

// WithTokenBudgetLimit caps total tokens across a run. 0 means unlimited.
func WithTokenBudgetLimit(n int) Option {
	return func(o *Orchestrator) {
		if n >= 0 {
			o.budgetLimit = n
		}
	}
}

// WithRateLimit bounds generator calls per second across runs sharing this
// orchestrator instance.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(o *Orchestrator) {
		if perSecond > 0 && burst > 0 {
			o.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
		}
	}
}

// Orchestrator drives the generate, validate, repair loop for components.
//
// Description:
//
//	Each Run is strictly sequential: no attempt begins before the previous
//	attempt's validation completes, and the only suspension points are the
//	generator call and the tier-2 validator call inside Check. An
//	Orchestrator instance may be shared across components; all per-run
//	mutable state (budget, history, run ID) lives in the Run call.
//
// Thread Safety: Safe for concurrent Run calls.
type Orchestrator struct {
	gen         Generator
	checker     Checker
	limiter     *rate.Limiter
	maxRetries  int
	maxTokens   int
	budgetLimit int
}

// New creates an Orchestrator around a generator and a validation pipeline.
func New(gen Generator, checker Checker, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		gen:        gen,
		checker:    checker,
		maxRetries: DefaultMaxRetries,
		maxTokens:  DefaultMaxTokens,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the bounded generate, validate, repair loop for one component.
//
// Description:
//
//	Attempt 0 uses the initial prompt; attempt i >= 1 uses a repair prompt
//	embedding the prior attempt's source and error list. Every generator
//	call appends exactly one Attempt to the history, so len(Attempts)
//	always equals the number of generator calls made. A generator transport
//	failure is tagged ErrorTypeGenerator and consumes retry budget exactly
//	like a validation failure.
//
// Outputs:
//   - *Result: Terminal outcome plus the full attempt history. Never nil.
//   - error: Non-nil only for context cancellation; exhausting the retry
//     budget is a normal terminal outcome, not an error.
func (o *Orchestrator) Run(ctx context.Context, ev *evidence.Evidence, target Target) (*Result, error) {
	runID := uuid.NewString()
	logger := slog.With(
		slog.String("run_id", runID),
		slog.String("component", ev.ComponentName),
	)

	ctx, span := startRunSpan(ctx, ev.ComponentName, runID)
	defer span.End()

	budget := NewTokenBudget(ev.ComponentName, o.budgetLimit)
	result := &Result{
		RunID:         runID,
		ComponentName: ev.ComponentName,
		Errors:        []string{},
		Attempts:      []Attempt{},
	}
	fileName := target.FileName
	if fileName == "" {
		fileName = ev.ComponentName + ".figma.tsx"
	}

	start := time.Now()
	state := StateGenerating
	var lastCode string
	var lastErrs []string

	for i := 0; i <= o.maxRetries; i++ {
		if err := ctx.Err(); err != nil {
			result.Errors = lastErrs
			result.TokensUsed = budget.Consumed()
			return result, fmt.Errorf("orchestration canceled: %w", err)
		}

		userPrompt := buildInitialPrompt(ev, target)
		if i > 0 {
			userPrompt = buildRepairPrompt(ev, target, lastCode, lastErrs)
		}

		if ok, remaining := budget.CanSpend(estimateTokens(userPrompt) + o.maxTokens); !ok {
			logger.Warn("token budget exhausted before attempt",
				slog.Int("attempt", i),
				slog.Int("remaining", remaining))
			lastErrs = []string{fmt.Sprintf("token budget exhausted before attempt %d (%s)", i, budget.Summary())}
			break
		}

		logger.Info("attempt start",
			slog.Int("attempt", i),
			slog.String("state", state.String()))

		if o.limiter != nil {
			if err := o.limiter.Wait(ctx); err != nil {
				result.Errors = lastErrs
				result.TokensUsed = budget.Consumed()
				return result, fmt.Errorf("orchestration canceled while rate-limited: %w", err)
			}
		}

		genStart := time.Now()
		genRes, err := o.gen.Generate(ctx, systemPrompt, userPrompt, o.maxTokens)
		if err != nil {
			// The call to the model failed outright. Record it, spend the
			// retry, and loop; the repair prompt reuses the previous code
			// and errors if any exist.
			attempt := Attempt{
				Index:     i,
				Valid:     false,
				Errors:    []string{fmt.Sprintf("generator call failed: %v", err)},
				ErrorType: ErrorTypeGenerator,
			}
			result.Attempts = append(result.Attempts, attempt)
			lastErrs = attempt.Errors
			recordAttemptMetrics(time.Since(genStart), "generator_error")
			logger.Warn("generator call failed",
				slog.Int("attempt", i),
				slog.String("error", err.Error()))
			state = StateRepairing
			continue
		}

		code := stripCodeFences(genRes.Text)
		if genRes.Usage != nil {
			budget.Record(genRes.Usage.Total())
		}

		state = StateValidating
		verdict := o.checker.Check(ctx, code, ev, fileName)

		attempt := Attempt{
			Index:         i,
			GeneratedCode: code,
			Usage:         genRes.Usage,
			Valid:         verdict.Valid,
			Errors:        verdict.Errors,
		}
		if !verdict.Valid {
			attempt.ErrorType = ErrorTypeValidation
		}
		result.Attempts = append(result.Attempts, attempt)

		if verdict.Valid {
			state = StateSucceeded
			result.Success = true
			result.Code = code
			result.TokensUsed = budget.Consumed()
			recordAttemptMetrics(time.Since(genStart), "valid")
			recordRunMetrics(time.Since(start), len(result.Attempts), true)
			setRunSpanResult(span, state, len(result.Attempts))
			logger.Info("binding converged",
				slog.Int("attempts", len(result.Attempts)),
				slog.String("budget", budget.Summary()))
			return result, nil
		}

		recordAttemptMetrics(time.Since(genStart), "invalid")
		logger.Info("attempt failed validation",
			slog.Int("attempt", i),
			slog.Int("errors", len(verdict.Errors)))
		lastCode, lastErrs = code, verdict.Errors
		state = StateRepairing
	}

	state = StateExhausted
	result.Success = false
	result.Errors = lastErrs
	result.TokensUsed = budget.Consumed()
	recordRunMetrics(time.Since(start), len(result.Attempts), false)
	setRunSpanResult(span, state, len(result.Attempts))
	logger.Warn("retry budget exhausted",
		slog.Int("attempts", len(result.Attempts)),
		slog.Int("max_retries", o.maxRetries))
	return result, nil
}
