// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command bindsmith generates and validates Figma Code Connect binding
// files from design component evidence.
//
// Usage:
//
//	bindsmith generate --url <figma-url> evidence/Button.json
//	bindsmith generate --targets targets.yaml evidence/
//	bindsmith validate --evidence evidence/Button.json Button.figma.tsx
//	bindsmith serve --config bindsmith.yaml
//	bindsmith watch --targets targets.yaml evidence/
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/bindsmith/services/binding/config"
)

// Global flag values shared by subcommands.
var (
	configPath string
	verbose    bool
)

// setupLogging installs the process-wide slog handler.
//
// Description:
//
//	Interactive terminals get the text handler; anything else (pipes,
//	container logs) gets JSON so log collectors can parse fields.
func setupLogging() {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}

	var handler slog.Handler
	if isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd()) {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// loadConfig resolves configuration for a subcommand run.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "bindsmith",
		Short: "Generate and validate Figma Code Connect bindings",
		Long: `bindsmith turns design component evidence into validated Code Connect
binding files. Generation runs a bounded generate-validate-repair loop
against an LLM; validation runs without any model in the loop.`,
		PersistentPreRun: func(_ *cobra.Command, _ []string) {
			setupLogging()
		},
	}

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to bindsmith.yaml (optional)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(newGenerateCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newServeCommand())
	rootCmd.AddCommand(newWatchCommand())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
