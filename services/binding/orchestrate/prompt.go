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

import (
	"fmt"
	"strings"

	"github.com/AleutianAI/bindsmith/services/binding/evidence"
)

// Target carries the addressing/context information the generator needs to
// author a binding for one component.
type Target struct {
	// FigmaURL is the design-tool node URL the binding connects to.
	FigmaURL string
	// ComponentImport is the application import path of the code component.
	ComponentImport string
	// ComponentExport is the exported identifier of the code component.
	ComponentExport string
	// FileName is the output file label used in validation messages.
	FileName string
}

// systemPrompt is the fixed instruction block for every generator call.
const systemPrompt = `You write Figma Code Connect binding files in TypeScript (TSX).
A binding file contains exactly one figma.connect(Component, url, config) call.
Rules:
- props values must use the figma helpers: figma.string, figma.boolean, figma.enum, figma.instance, figma.textContent, figma.children, figma.nestedProps, figma.className.
- helper keys must be string literals naming a property, variant axis, or layer that exists on the design component.
- figma.enum mapping keys must be actual variant values of the axis.
- example must be an arrow function returning a single JSX expression. No statement blocks, no ternaries, no logical or comparison operators, no string concatenation logic.
Respond with only the binding file source, no commentary.`

// buildInitialPrompt builds the first-attempt user prompt from evidence and
// target addressing.
func buildInitialPrompt(ev *evidence.Evidence, target Target) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Write a Code Connect binding for the design component %q.\n\n", ev.ComponentName)
	fmt.Fprintf(&b, "Connect URL: %s\n", target.FigmaURL)
	if target.ComponentImport != "" {
		fmt.Fprintf(&b, "Code component: import { %s } from %q\n", target.ComponentExport, target.ComponentImport)
	}

	if len(ev.VariantProperties) > 0 {
		b.WriteString("\nVariant axes:\n")
		for axis := range ev.VariantProperties {
			values, _ := ev.AxisValues(axis)
			fmt.Fprintf(&b, "  - %s: %s\n", axis, strings.Join(values, ", "))
		}
	}
	if len(ev.ComponentProperties) > 0 {
		b.WriteString("\nComponent properties:\n")
		for _, prop := range ev.ComponentProperties {
			fmt.Fprintf(&b, "  - %s (%s)\n", prop.Name, prop.Kind)
		}
	}
	if len(ev.TextLayers) > 0 {
		b.WriteString("\nText layers:\n")
		for _, layer := range ev.TextLayers {
			fmt.Fprintf(&b, "  - %s\n", layer.Name)
		}
	}
	if len(ev.SlotLayers) > 0 {
		b.WriteString("\nSlot layers:\n")
		for _, layer := range ev.SlotLayers {
			fmt.Fprintf(&b, "  - %s\n", layer.Name)
		}
	}

	return b.String()
}

// buildRepairPrompt embeds the prior attempt's source and the validator's
// error list so the generator can repair its own output.
func buildRepairPrompt(ev *evidence.Evidence, target Target, prevCode string, errs []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Your previous binding for %q failed validation.\n\n", ev.ComponentName)
	b.WriteString("Previous output:\n```tsx\n")
	b.WriteString(prevCode)
	if !strings.HasSuffix(prevCode, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("```\n\nValidation errors:\n")
	for _, e := range errs {
		fmt.Fprintf(&b, "  - %s\n", e)
	}
	b.WriteString("\nFix every listed error and return the corrected binding file.\n")
	b.WriteString(buildInitialPrompt(ev, target))

	return b.String()
}

// stripCodeFences removes a surrounding markdown code fence if the
// generator wrapped its answer in one.
func stripCodeFences(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	lines := strings.Split(trimmed, "\n")
	if len(lines) < 2 {
		return trimmed
	}
	// Drop the opening fence (with optional language tag) and a trailing fence.
	lines = lines[1:]
	if strings.HasPrefix(strings.TrimSpace(lines[len(lines)-1]), "```") {
		lines = lines[:len(lines)-1]
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}
