// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validate checks binding IR against design-tool evidence and the
// expression-shape policy (tier 1), then defers to the authoritative
// toolchain validator (tier 2).
package validate

import (
	"errors"
	"fmt"
)

// ErrorKind tags a validation error string with its taxonomy class.
type ErrorKind string

// Validation error taxonomy. All kinds are recovered locally into a
// structured error list; none cross the Validator boundary as exceptions.
const (
	KindParse            ErrorKind = "ParseError"
	KindStructural       ErrorKind = "StructuralError"
	KindKey              ErrorKind = "KeyError"
	KindEnumValue        ErrorKind = "EnumValueError"
	KindExpressionPolicy ErrorKind = "ExpressionPolicyError"
	KindExternal         ErrorKind = "ExternalValidatorError"
)

// ErrExternalValidator wraps failures of the authoritative tier itself, as
// opposed to defects it reports in the binding source.
var ErrExternalValidator = errors.New("external validator failure")

// ValidationResult is the outcome of a validation pass. Errors are
// line-located human-readable strings, never exceptions.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// invalid builds a failed result from an error list.
func invalid(errs []string) ValidationResult {
	return ValidationResult{Valid: false, Errors: errs}
}

// errf formats one line-located validation error.
func errf(kind ErrorKind, line int, format string, args ...any) string {
	return fmt.Sprintf("line %d: %s: %s", line, kind, fmt.Sprintf(format, args...))
}
