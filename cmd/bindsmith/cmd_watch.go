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
	"sync"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/AleutianAI/bindsmith/services/binding"
	"github.com/AleutianAI/bindsmith/services/binding/evidence"
)

// Flag values for the watch command.
var (
	watchTargets string
	watchOut     string
)

// watchDebounce coalesces editor write bursts into one regeneration.
const watchDebounce = 500 * time.Millisecond

func newWatchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch [evidence-dir]",
		Short: "Regenerate bindings when evidence documents change",
		Long: `Watch monitors an evidence directory and reruns generation for a
component whenever its evidence JSON is created or rewritten. Design tool
exports tend to rewrite files several times in quick succession, so events
are debounced per file.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runWatchCommand,
	}

	cmd.Flags().StringVar(&watchTargets, "targets", "", "Targets YAML mapping components to URLs (required)")
	cmd.Flags().StringVar(&watchOut, "out", "", "Output directory (default from config)")
	cmd.MarkFlagRequired("targets")
	return cmd
}

func runWatchCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	dir := cfg.EvidenceDir
	if len(args) == 1 {
		dir = args[0]
	}
	outDir := watchOut
	if outDir == "" {
		outDir = cfg.OutputDir
	}

	targets, err := loadTargets(watchTargets)
	if err != nil {
		return err
	}

	svc, err := binding.NewService(cfg)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return fmt.Errorf("creating output dir %s: %w", outDir, err)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("Watching evidence directory",
		slog.String("dir", dir),
		slog.String("out", outDir))

	var mu sync.Mutex
	pending := make(map[string]*time.Timer)

	regenerate := func(path string) {
		mu.Lock()
		delete(pending, path)
		mu.Unlock()

		ev, err := evidence.Load(path)
		if err != nil {
			slog.Warn("skipping unreadable evidence",
				slog.String("path", path),
				slog.String("error", err.Error()))
			return
		}
		target, err := targets.targetFor(ev.ComponentName)
		if err != nil {
			slog.Warn("skipping component without target",
				slog.String("component", ev.ComponentName),
				slog.String("error", err.Error()))
			return
		}

		res, err := svc.Generate(ctx, ev, target)
		if err != nil {
			slog.Warn("generation canceled", slog.String("error", err.Error()))
			return
		}
		if !res.Success {
			slog.Warn("component did not converge",
				slog.String("component", res.ComponentName),
				slog.Int("attempts", len(res.Attempts)))
			return
		}

		outPath := filepath.Join(outDir, res.ComponentName+".figma.tsx")
		if err := os.WriteFile(outPath, []byte(res.Code+"\n"), 0o644); err != nil {
			slog.Error("writing binding failed",
				slog.String("path", outPath),
				slog.String("error", err.Error()))
			return
		}
		slog.Info("binding regenerated",
			slog.String("component", res.ComponentName),
			slog.Int("attempts", len(res.Attempts)),
			slog.String("path", outPath))
	}

	schedule := func(path string) {
		mu.Lock()
		defer mu.Unlock()
		if timer, ok := pending[path]; ok {
			timer.Reset(watchDebounce)
			return
		}
		pending[path] = time.AfterFunc(watchDebounce, func() { regenerate(path) })
	}

	for {
		select {
		case <-ctx.Done():
			slog.Info("Stopping watch")
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.HasSuffix(event.Name, ".json") {
				continue
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			schedule(event.Name)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Warn("watcher error", slog.String("error", err.Error()))
		}
	}
}
