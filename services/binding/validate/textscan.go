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
	"regexp"
	"strings"

	"github.com/AleutianAI/bindsmith/services/binding/ast"
)

// The tree walk treats template strings as opaque and records their byte
// regions on the IR; this lexical pass inspects only those regions. Some
// embedded-template constructs are easier to catch here than to classify
// from the parsed tree, and scoping the scan to marked regions keeps false
// positives out of ordinary string content.

// placeholderPattern matches ${...} interpolation placeholders inside a
// template region. Placeholders do not nest in generated bindings.
var placeholderPattern = regexp.MustCompile(`\$\{([^}]*)\}`)

// disallowedLexicalPatterns are expression shapes flagged inside template
// placeholders, checked in order so the most specific operator is named.
var disallowedLexicalPatterns = []struct {
	pattern *regexp.Regexp
	label   string
}{
	{regexp.MustCompile(`\?[^.][^:]*:`), "ternary conditional"},
	{regexp.MustCompile(`&&`), "logical operator &&"},
	{regexp.MustCompile(`\|\|`), "logical operator ||"},
	{regexp.MustCompile(`\?\?`), "logical operator ??"},
	{regexp.MustCompile(`[=!]==?`), "comparison operator"},
	{regexp.MustCompile(`[<>]=?\s`), "comparison operator"},
	{regexp.MustCompile(`^\s*!`), "unary operator !"},
}

// scanTemplateRegions lexically scans the template regions the extractor
// marked and flags disallowed expression shapes inside their placeholders.
func scanTemplateRegions(ir *ast.IR, source string) []string {
	var errs []string
	for _, region := range ir.TemplateRegions {
		if int(region.EndByte) > len(source) || region.StartByte >= region.EndByte {
			continue
		}
		text := source[region.StartByte:region.EndByte]
		for _, match := range placeholderPattern.FindAllStringSubmatch(text, -1) {
			inner := strings.TrimSpace(match[1])
			if inner == "" {
				continue
			}
			if label, bad := classifyPlaceholder(inner); bad {
				errs = append(errs, errf(KindExpressionPolicy, region.Line,
					"template placeholder %q contains a disallowed %s", truncate(inner, 40), label))
			}
		}
	}
	return errs
}

// classifyPlaceholder reports whether a placeholder expression matches a
// disallowed lexical shape and which one.
func classifyPlaceholder(expr string) (string, bool) {
	for _, p := range disallowedLexicalPatterns {
		if p.pattern.MatchString(expr) {
			return p.label, true
		}
	}
	return "", false
}

// truncate shortens long placeholder text for error messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
