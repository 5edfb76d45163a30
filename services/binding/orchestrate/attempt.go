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

// ErrorType distinguishes why an attempt failed.
type ErrorType string

// Attempt error types. A generator error means the call to the model
// failed outright (transport/auth/rate-limit class); a validation error
// means the model answered but its output did not pass.
const (
	ErrorTypeGenerator  ErrorType = "generator"
	ErrorTypeValidation ErrorType = "validation"
)

// Attempt is one generate-then-validate cycle. Attempts are appended to an
// append-only history for the lifetime of one component's run and returned
// to the caller regardless of outcome.
type Attempt struct {
	Index         int         `json:"index"`
	GeneratedCode string      `json:"generatedCode"`
	Usage         *TokenUsage `json:"usage"`
	Valid         bool        `json:"valid"`
	Errors        []string    `json:"errors"`
	ErrorType     ErrorType   `json:"errorType,omitempty"`
}

// Result is the terminal outcome of one component's orchestration run.
//
// Description:
//
//	Attempts always has exactly one entry per generator call made, whether
//	or not the run succeeded. On failure, Errors carries the last attempt's
//	error list so callers can diagnose without digging through history.
type Result struct {
	RunID         string    `json:"runId"`
	ComponentName string    `json:"componentName"`
	Success       bool      `json:"success"`
	Code          string    `json:"code,omitempty"`
	Errors        []string  `json:"errors"`
	Attempts      []Attempt `json:"attempts"`
	TokensUsed    int       `json:"tokensUsed"`
}

// GeneratorCalls returns the number of generator invocations the run made.
// It equals len(Attempts) by construction.
func (r *Result) GeneratorCalls() int {
	return len(r.Attempts)
}
