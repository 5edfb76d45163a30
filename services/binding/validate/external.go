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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// ExternalValidator is the authoritative tier-2 collaborator. It re-parses
// binding source under the real target toolchain's own rules and is the
// source of truth for defects tier 1 structurally cannot see (for example a
// property read in the example body that was never declared in props).
//
// Thread Safety: Implementations must be safe for concurrent use.
type ExternalValidator interface {
	// CheckSource validates raw binding source under the given parser mode.
	//
	// Outputs:
	//   - ValidationResult: The toolchain's own verdict.
	//   - error: Non-nil only when the validator itself could not run;
	//     defects in the source are reported through the result.
	CheckSource(ctx context.Context, code string, parserMode string) (ValidationResult, error)
}

// ToolchainValidator shells out to the design toolchain's parser CLI.
//
// Description:
//
//	The binding source is written to a temporary file and handed to the
//	configured command, which is expected to print a JSON document of the
//	form {"valid": bool, "errors": ["..."]} on stdout. A non-zero exit with
//	decodable output is treated as a verdict, not a failure.
//
// Thread Safety: Safe for concurrent use; each call uses its own temp file.
type ToolchainValidator struct {
	command string
	args    []string
	timeout time.Duration
}

// ToolchainOption configures a ToolchainValidator.
type ToolchainOption func(*ToolchainValidator)

// WithTimeout bounds a single validator invocation.
func WithTimeout(d time.Duration) ToolchainOption {
	return func(t *ToolchainValidator) {
		if d > 0 {
			t.timeout = d
		}
	}
}

// NewToolchainValidator creates a subprocess-backed external validator.
//
// Inputs:
//   - command: The executable to run (e.g. the toolchain's parse CLI).
//   - args: Fixed arguments, placed before the source file path.
func NewToolchainValidator(command string, args []string, opts ...ToolchainOption) *ToolchainValidator {
	t := &ToolchainValidator{
		command: command,
		args:    args,
		timeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// toolchainVerdict mirrors the CLI's JSON output shape.
type toolchainVerdict struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// CheckSource implements ExternalValidator.
func (t *ToolchainValidator) CheckSource(ctx context.Context, code string, parserMode string) (ValidationResult, error) {
	dir, err := os.MkdirTemp("", "bindsmith-validate-*")
	if err != nil {
		return ValidationResult{}, fmt.Errorf("%w: temp dir: %v", ErrExternalValidator, err)
	}
	defer os.RemoveAll(dir)

	file := filepath.Join(dir, "binding.figma.tsx")
	if err := os.WriteFile(file, []byte(code), 0o600); err != nil {
		return ValidationResult{}, fmt.Errorf("%w: write source: %v", ErrExternalValidator, err)
	}

	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	args := make([]string, 0, len(t.args)+3)
	args = append(args, t.args...)
	if parserMode != "" {
		args = append(args, "--parser", parserMode)
	}
	args = append(args, file)

	cmd := exec.CommandContext(ctx, t.command, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()

	var verdict toolchainVerdict
	if decodeErr := json.Unmarshal(stdout.Bytes(), &verdict); decodeErr != nil {
		if runErr != nil {
			return ValidationResult{}, fmt.Errorf("%w: %s: %v (stderr: %s)",
				ErrExternalValidator, t.command, runErr, truncate(stderr.String(), 200))
		}
		return ValidationResult{}, fmt.Errorf("%w: undecodable output from %s: %v",
			ErrExternalValidator, t.command, decodeErr)
	}

	if !verdict.Valid && len(verdict.Errors) == 0 {
		verdict.Errors = []string{string(KindExternal) + ": toolchain rejected the binding without details"}
	}

	slog.Debug("external validator verdict",
		slog.String("command", t.command),
		slog.Bool("valid", verdict.Valid),
		slog.Int("errors", len(verdict.Errors)))

	return ValidationResult{Valid: verdict.Valid, Errors: verdict.Errors}, nil
}
