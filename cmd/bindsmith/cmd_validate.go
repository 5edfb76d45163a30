// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/bindsmith/services/binding/evidence"
	"github.com/AleutianAI/bindsmith/services/binding/validate"
)

// Flag values for the validate command.
var (
	validateEvidence string
	validateJSON     bool
)

func newValidateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate --evidence <evidence.json> <binding.figma.tsx>",
		Short: "Validate a binding file against component evidence",
		Long: `Validate runs a binding through the two-tier pipeline without any
model in the loop. Exit status is 0 for a valid binding and 1 otherwise,
so it can gate CI.`,
		Args: cobra.ExactArgs(1),
		RunE: runValidateCommand,
	}

	cmd.Flags().StringVar(&validateEvidence, "evidence", "", "Evidence JSON document (required)")
	cmd.Flags().BoolVar(&validateJSON, "json", false, "Print the verdict as JSON")
	cmd.MarkFlagRequired("evidence")
	return cmd
}

func runValidateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ev, err := evidence.Load(validateEvidence)
	if err != nil {
		return err
	}

	sourcePath := args[0]
	source, err := os.ReadFile(sourcePath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", sourcePath, err)
	}

	var external validate.ExternalValidator
	if cfg.Validator.Command != "" {
		external = validate.NewToolchainValidator(cfg.Validator.Command, cfg.Validator.Args,
			validate.WithTimeout(time.Duration(cfg.Validator.TimeoutSeconds)*time.Second))
	}
	pipeline := validate.NewPipeline(external, validate.WithParserMode(cfg.Validator.ParserMode))

	result := pipeline.Check(cmd.Context(), string(source), ev, filepath.Base(sourcePath))

	if validateJSON {
		out, err := json.MarshalIndent(result, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
	} else if result.Valid {
		fmt.Printf("%s: valid\n", sourcePath)
	} else {
		fmt.Printf("%s: invalid (%d error(s))\n", sourcePath, len(result.Errors))
		for _, e := range result.Errors {
			fmt.Printf("  - %s\n", e)
		}
	}

	if !result.Valid {
		// Non-zero exit without cobra's usage dump.
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		os.Exit(1)
	}
	return nil
}
