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
	"strings"

	"github.com/AleutianAI/bindsmith/services/binding/ast"
	"github.com/AleutianAI/bindsmith/services/binding/evidence"
)

// Validator performs the tier-1 semantic checks: structural shape, key
// existence, enum containment, and the scoped lexical expression scan.
//
// Description:
//
//	Validate is a pure function of (IR, Evidence, raw source). It never
//	mutates its inputs and never returns an error for expected validation
//	failures; all findings land in the result's error list. Validating the
//	same inputs twice yields an identical result.
//
// Thread Safety: Validator is stateless and safe for concurrent use.
type Validator struct{}

// NewValidator creates a tier-1 validator.
func NewValidator() *Validator {
	return &Validator{}
}

// Validate runs all tier-1 checks over an extracted binding.
//
// Inputs:
//   - ir: The extracted IR. Must not be nil.
//   - ev: Design-tool evidence for the component. Must not be nil.
//   - source: The raw binding source the IR was extracted from. Used by the
//     lexical scan over the template regions the extractor marked.
//
// Outputs:
//   - ValidationResult: Valid iff no check produced an error.
func (v *Validator) Validate(ir *ast.IR, ev *evidence.Evidence, source string) ValidationResult {
	sets := evidence.BuildKeySets(ev)

	var errs []string
	if len(ir.Connects) == 0 {
		errs = append(errs, errf(KindStructural, 1, "no %s call found in binding source", "figma.connect"))
	}
	for i := range ir.Connects {
		desc := &ir.Connects[i]
		errs = append(errs, v.checkStructure(desc)...)
		errs = append(errs, v.checkKeys(desc, sets)...)
		errs = append(errs, v.checkEnumMappings(desc, ev)...)
	}
	errs = append(errs, scanTemplateRegions(ir, source)...)

	if len(errs) > 0 {
		return invalid(errs)
	}
	return ValidationResult{Valid: true, Errors: []string{}}
}

// expressionKindLabel renders a disallowed expression for error messages.
func expressionKindLabel(d ast.DisallowedExpr) string {
	switch d.Kind {
	case ast.ExprConditional:
		return "ternary conditional"
	case ast.ExprLogical:
		return "logical operator " + d.Operator
	case ast.ExprBinary:
		return "binary operator " + d.Operator
	case ast.ExprUnary:
		return "unary operator " + d.Operator
	}
	return string(d.Kind)
}

// checkStructure validates connect/config/example shape for one descriptor.
func (v *Validator) checkStructure(desc *ast.ConnectDescriptor) []string {
	var errs []string

	if desc.Kind == ast.ConnectInvalid {
		errs = append(errs, errf(KindStructural, desc.Location.Line,
			"connect call has an unrecognized argument shape (%d args); expected (url, config) or (component, url, config)",
			desc.ArgCount))
		return errs
	}

	if !desc.URLIsLiteral {
		errs = append(errs, errf(KindStructural, desc.Location.Line,
			"connect URL argument must be a string literal"))
	}
	if desc.HasConfig && !desc.ConfigIsObject {
		errs = append(errs, errf(KindStructural, desc.Location.Line,
			"connect config must be an object literal"))
		return errs
	}

	example := desc.Config.Example
	if example == nil {
		errs = append(errs, errf(KindStructural, desc.Location.Line,
			"connect config must declare an example function"))
		return errs
	}
	if !example.IsFunction {
		errs = append(errs, errf(KindStructural, example.Location.Line,
			"example must be a function"))
		return errs
	}
	if !example.IsSingleExpression {
		if example.StatementsBeforeReturn {
			errs = append(errs, errf(KindStructural, example.Location.Line,
				"example function contains statements before its returned template; it must be a single returned expression"))
		} else {
			errs = append(errs, errf(KindStructural, example.Location.Line,
				"example function must be a single returned expression, not a statement block"))
		}
	}
	for _, d := range example.Disallowed {
		errs = append(errs, errf(KindExpressionPolicy, d.Location.Line,
			"example body contains a disallowed %s", expressionKindLabel(d)))
	}

	return errs
}

// helperKeyTarget resolves the key set and its human-readable name for a
// helper kind. The vocabulary is closed; nestedProps resolves against the
// instance-swap and string sets, and className carries no key to check.
func helperKeyTarget(kind ast.HelperKind, sets *evidence.KeySets) ([]evidence.KeySet, string) {
	switch kind {
	case ast.HelperString:
		return []evidence.KeySet{sets.String}, "string-capable property"
	case ast.HelperBoolean:
		return []evidence.KeySet{sets.Boolean}, "boolean-capable property"
	case ast.HelperEnum:
		return []evidence.KeySet{sets.Enum}, "variant axis"
	case ast.HelperInstance:
		return []evidence.KeySet{sets.Instance}, "instance-swap property"
	case ast.HelperTextContent:
		return []evidence.KeySet{sets.Text}, "text layer"
	case ast.HelperChildren:
		return []evidence.KeySet{sets.Slot}, "slot layer"
	case ast.HelperNestedProps:
		return []evidence.KeySet{sets.Instance, sets.String}, "nested property"
	case ast.HelperClassName:
		return nil, ""
	}
	return nil, ""
}

// checkKeys verifies every helper call's normalized key against the key set
// matching its helper kind.
func (v *Validator) checkKeys(desc *ast.ConnectDescriptor, sets *evidence.KeySets) []string {
	if desc.Config.Props == nil {
		return nil
	}

	var errs []string
	for _, hc := range desc.Config.Props.Helpers {
		targets, label := helperKeyTarget(hc.Kind, sets)
		if targets == nil {
			continue
		}
		if !hc.KeyIsLiteral {
			errs = append(errs, errf(KindStructural, hc.Location.Line,
				"%s helper key for prop %q must be a string literal", hc.Kind, hc.PropName))
			continue
		}
		if hc.Key == "" {
			errs = append(errs, errf(KindKey, hc.Location.Line,
				"%s helper for prop %q has an empty key", hc.Kind, hc.PropName))
			continue
		}
		found := false
		for _, set := range targets {
			if set.Has(hc.Key) {
				found = true
				break
			}
		}
		if !found {
			errs = append(errs, errf(KindKey, hc.Location.Line,
				"%s helper references unknown %s %q", hc.Kind, label, hc.Key))
		}
	}
	return errs
}

// checkEnumMappings verifies every enum helper's literal mapping values
// against the evidence axis's allowed values, case-insensitively.
func (v *Validator) checkEnumMappings(desc *ast.ConnectDescriptor, ev *evidence.Evidence) []string {
	if desc.Config.Props == nil {
		return nil
	}

	var errs []string
	for _, hc := range desc.Config.Props.Helpers {
		if hc.Kind != ast.HelperEnum || !hc.KeyIsLiteral {
			continue
		}
		if hc.HasMapping && !hc.MappingIsLiteral {
			errs = append(errs, errf(KindStructural, hc.Location.Line,
				"enum mapping for axis %q must be an object literal", hc.Key))
			continue
		}

		allowed, axisName := ev.AxisValues(hc.Key)
		if axisName == "" {
			// Unknown axis is already reported by the key check.
			continue
		}
		for _, pair := range hc.EnumMapping {
			if containsFold(allowed, pair.FigmaValue) {
				continue
			}
			errs = append(errs, errf(KindEnumValue, pair.Location.Line,
				"value %q is not a variant of axis %q (valid: %s)",
				pair.FigmaValue, axisName, strings.Join(allowed, ", ")))
		}
	}
	return errs
}

// containsFold reports case-insensitive membership.
func containsFold(values []string, want string) bool {
	for _, v := range values {
		if strings.EqualFold(v, want) {
			return true
		}
	}
	return false
}
