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
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/bindsmith/services/binding"
	"github.com/AleutianAI/bindsmith/services/binding/evidence"
	"github.com/AleutianAI/bindsmith/services/binding/orchestrate"
)

// Flag values for the generate command.
var (
	generateURL     string
	generateImport  string
	generateExport  string
	generateTargets string
	generateOut     string
)

func newGenerateCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate [evidence.json | evidence-dir]...",
		Short: "Generate binding files from evidence",
		Long: `Generate runs the bounded generate-validate-repair loop for each
evidence document and writes converged bindings to the output directory.

Single component:

  bindsmith generate --url https://figma.com/file/abc?node-id=1-2 evidence/Button.json

Batch with a targets file:

  bindsmith generate --targets targets.yaml evidence/`,
		Args: cobra.MinimumNArgs(1),
		RunE: runGenerateCommand,
	}

	cmd.Flags().StringVar(&generateURL, "url", "", "Figma node URL (single-component mode)")
	cmd.Flags().StringVar(&generateImport, "import", "", "Code component import path")
	cmd.Flags().StringVar(&generateExport, "export", "", "Code component export name")
	cmd.Flags().StringVar(&generateTargets, "targets", "", "Targets YAML mapping components to URLs (batch mode)")
	cmd.Flags().StringVar(&generateOut, "out", "", "Output directory (default from config)")
	return cmd
}

func runGenerateCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	outDir := generateOut
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	svc, err := binding.NewService(cfg)
	if err != nil {
		return err
	}

	paths, err := collectEvidencePaths(args)
	if err != nil {
		return err
	}
	if len(paths) == 0 {
		return fmt.Errorf("no evidence documents found in %v", args)
	}

	var targets targetsFile
	if generateTargets != "" {
		targets, err = loadTargets(generateTargets)
		if err != nil {
			return err
		}
	} else if len(paths) > 1 {
		return fmt.Errorf("multiple evidence documents require --targets")
	} else if generateURL == "" {
		return fmt.Errorf("single-component mode requires --url")
	}

	jobs := make([]orchestrate.Job, 0, len(paths))
	for _, path := range paths {
		ev, err := evidence.Load(path)
		if err != nil {
			return err
		}

		var target orchestrate.Target
		if targets != nil {
			target, err = targets.targetFor(ev.ComponentName)
			if err != nil {
				return err
			}
		} else {
			export := generateExport
			if export == "" {
				export = ev.ComponentName
			}
			target = orchestrate.Target{
				FigmaURL:        generateURL,
				ComponentImport: generateImport,
				ComponentExport: export,
				FileName:        ev.ComponentName + ".figma.tsx",
			}
		}
		jobs = append(jobs, orchestrate.Job{Evidence: ev, Target: target})
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	results, err := svc.GenerateAll(ctx, jobs)
	if err != nil {
		return fmt.Errorf("generation interrupted: %w", err)
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", outDir, err)
	}

	failures := 0
	for _, res := range results {
		if res == nil {
			failures++
			continue
		}
		if !res.Success {
			failures++
			slog.Warn("component did not converge",
				slog.String("component", res.ComponentName),
				slog.Int("attempts", len(res.Attempts)),
				slog.String("errors", strings.Join(res.Errors, "; ")))
			continue
		}

		outPath := filepath.Join(outDir, res.ComponentName+".figma.tsx")
		if err := os.WriteFile(outPath, []byte(res.Code+"\n"), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", outPath, err)
		}
		fmt.Printf("%s: converged in %d attempt(s), %d tokens -> %s\n",
			res.ComponentName, len(res.Attempts), res.TokensUsed, outPath)
	}

	if failures > 0 {
		return fmt.Errorf("%d of %d components did not converge", failures, len(results))
	}
	return nil
}

// collectEvidencePaths expands file and directory arguments into the list
// of evidence JSON documents to process.
func collectEvidencePaths(args []string) ([]string, error) {
	var paths []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("evidence path %s: %w", arg, err)
		}
		if !info.IsDir() {
			paths = append(paths, arg)
			continue
		}
		entries, err := os.ReadDir(arg)
		if err != nil {
			return nil, fmt.Errorf("reading evidence dir %s: %w", arg, err)
		}
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
				continue
			}
			paths = append(paths, filepath.Join(arg, entry.Name()))
		}
	}
	return paths, nil
}
