// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package evidence models the design-tool metadata a binding is generated
// against: variant axes, typed component properties, and text/slot layers.
// Evidence documents are exported by the design tool as JSON and are
// immutable for the lifetime of a generation run.
package evidence

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
)

// PropertyKind identifies the declared type of a component property.
type PropertyKind string

// Component property kinds as exported by the design tool.
const (
	KindString       PropertyKind = "STRING"
	KindBoolean      PropertyKind = "BOOLEAN"
	KindInstanceSwap PropertyKind = "INSTANCE_SWAP"
)

// ComponentProperty is a typed property declared on the design component.
type ComponentProperty struct {
	Name         string       `json:"name"`
	Kind         PropertyKind `json:"kind"`
	DefaultValue any          `json:"defaultValue,omitempty"`
}

// Layer names a text or slot layer inside the component.
type Layer struct {
	Name string `json:"name"`
}

// Evidence is the design-tool-derived description of one component.
//
// Description:
//
//	Variant axis values arrive as strings or JSON booleans depending on how
//	the axis was authored in the design tool; AxisValues normalizes both to
//	strings. Evidence is supplied once per validation/generation cycle and
//	never mutated.
//
// Thread Safety: Evidence is read-only after construction and safe to share
// across goroutines.
type Evidence struct {
	ComponentName       string              `json:"componentName"`
	VariantProperties   map[string][]any    `json:"variantProperties"`
	ComponentProperties []ComponentProperty `json:"componentProperties"`
	TextLayers          []Layer             `json:"textLayers"`
	SlotLayers          []Layer             `json:"slotLayers"`
}

// Parse decodes an evidence document from JSON bytes.
//
// Outputs:
//   - *Evidence: The decoded document. Never nil on success.
//   - error: Non-nil if the JSON is malformed or the component name is missing.
func Parse(data []byte) (*Evidence, error) {
	var ev Evidence
	if err := json.Unmarshal(data, &ev); err != nil {
		return nil, fmt.Errorf("evidence: decode failed: %w", err)
	}
	if ev.ComponentName == "" {
		return nil, fmt.Errorf("evidence: componentName is required")
	}
	return &ev, nil
}

// Load reads and decodes an evidence document from disk.
func Load(path string) (*Evidence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("evidence: read %s: %w", path, err)
	}
	return Parse(data)
}

// AxisValues returns the allowed values for a variant axis as strings.
//
// Description:
//
//	The axis is matched by normalized name so an optional-marker spelling in
//	generated source ("Size?") still resolves to the evidence axis ("Size").
//	Boolean axis values are rendered as "true"/"false".
//
// Outputs:
//   - []string: Allowed values in evidence order. Nil if the axis is unknown.
//   - string: The evidence spelling of the axis name. Empty if unknown.
func (ev *Evidence) AxisValues(axis string) ([]string, string) {
	want := NormalizeKey(axis)
	for name, raw := range ev.VariantProperties {
		if NormalizeKey(name) != want {
			continue
		}
		values := make([]string, 0, len(raw))
		for _, v := range raw {
			values = append(values, stringifyValue(v))
		}
		return values, name
	}
	return nil, ""
}

// stringifyValue renders a variant axis value as the string a binding
// author would write for it.
func stringifyValue(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	case float64:
		// JSON numbers decode as float64; axis values are whole in practice.
		if t == float64(int64(t)) {
			return fmt.Sprintf("%d", int64(t))
		}
		return fmt.Sprintf("%v", t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// NormalizeKey canonicalizes a property/layer/axis name for set membership.
//
// Description:
//
//	Strips a leading "." and a trailing "?", trims surrounding whitespace,
//	and lowercases. This lets an optional-marker spelling in generated
//	source (".label?") match the unmarked evidence name ("Label").
func NormalizeKey(key string) string {
	key = strings.TrimSpace(key)
	key = strings.TrimPrefix(key, ".")
	key = strings.TrimSuffix(key, "?")
	return strings.ToLower(strings.TrimSpace(key))
}
