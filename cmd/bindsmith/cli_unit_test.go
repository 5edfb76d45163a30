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
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadTargets(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "targets.yaml")
	content := `
Button:
  figmaUrl: https://figma.com/file/abc?node-id=1-2
  componentImport: ./src/components/Button
  componentExport: Button
Card:
  figmaUrl: https://figma.com/file/abc?node-id=3-4
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	targets, err := loadTargets(path)
	require.NoError(t, err)
	require.Len(t, targets, 2)

	target, err := targets.targetFor("Button")
	require.NoError(t, err)
	assert.Equal(t, "https://figma.com/file/abc?node-id=1-2", target.FigmaURL)
	assert.Equal(t, "./src/components/Button", target.ComponentImport)
	assert.Equal(t, "Button.figma.tsx", target.FileName)

	// Export falls back to the component name when omitted.
	card, err := targets.targetFor("Card")
	require.NoError(t, err)
	assert.Equal(t, "Card", card.ComponentExport)
}

func TestTargetFor_MissingEntry(t *testing.T) {
	targets := targetsFile{}
	_, err := targets.targetFor("Ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Ghost")
}

func TestTargetFor_MissingURL(t *testing.T) {
	targets := targetsFile{"Button": {ComponentExport: "Button"}}
	_, err := targets.targetFor("Button")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "figmaUrl")
}

func TestCollectEvidencePaths(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Button.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "Card.json"), []byte(`{}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte(`x`), 0o644))

	paths, err := collectEvidencePaths([]string{dir})
	require.NoError(t, err)
	assert.Len(t, paths, 2)
	for _, p := range paths {
		assert.Equal(t, ".json", filepath.Ext(p))
	}

	// A direct file argument passes through untouched.
	single := filepath.Join(dir, "Button.json")
	paths, err = collectEvidencePaths([]string{single})
	require.NoError(t, err)
	assert.Equal(t, []string{single}, paths)
}

func TestCollectEvidencePaths_MissingPath(t *testing.T) {
	_, err := collectEvidencePaths([]string{filepath.Join(t.TempDir(), "nope")})
	require.Error(t, err)
}
