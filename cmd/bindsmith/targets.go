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
	"os"

	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/bindsmith/services/binding/orchestrate"
)

// targetSpec is one component's addressing entry in a targets file.
type targetSpec struct {
	FigmaURL        string `yaml:"figmaUrl"`
	ComponentImport string `yaml:"componentImport"`
	ComponentExport string `yaml:"componentExport"`
}

// targetsFile maps component names to their addressing.
//
// Example targets.yaml:
//
//	Button:
//	  figmaUrl: https://figma.com/file/abc?node-id=1-2
//	  componentImport: ./src/components/Button
//	  componentExport: Button
type targetsFile map[string]targetSpec

// loadTargets reads a targets YAML file.
func loadTargets(path string) (targetsFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("targets: reading %s: %w", path, err)
	}
	var targets targetsFile
	if err := yaml.Unmarshal(data, &targets); err != nil {
		return nil, fmt.Errorf("targets: parsing %s: %w", path, err)
	}
	return targets, nil
}

// targetFor resolves a component's addressing, falling back to the export
// name when the file omits it.
func (tf targetsFile) targetFor(componentName string) (orchestrate.Target, error) {
	spec, ok := tf[componentName]
	if !ok {
		return orchestrate.Target{}, fmt.Errorf("targets: no entry for component %q", componentName)
	}
	if spec.FigmaURL == "" {
		return orchestrate.Target{}, fmt.Errorf("targets: component %q has no figmaUrl", componentName)
	}
	export := spec.ComponentExport
	if export == "" {
		export = componentName
	}
	return orchestrate.Target{
		FigmaURL:        spec.FigmaURL,
		ComponentImport: spec.ComponentImport,
		ComponentExport: export,
		FileName:        componentName + ".figma.tsx",
	}, nil
}
