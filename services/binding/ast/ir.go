// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ast extracts a canonical intermediate representation from
// generated binding source. The IR is built fresh per validation call and
// never mutated downstream.
package ast

// SourceLocation points at a position in the binding source, 1-based line.
type SourceLocation struct {
	Line int
	Col  int
}

// SourceRegion marks a byte range of the source that the extractor
// identified as an embedded template/expression region. The validator's
// lexical scan is scoped to these regions.
type SourceRegion struct {
	StartByte uint32
	EndByte   uint32
	Line      int
}

// Import is a top-level import declaration in the binding file.
type Import struct {
	Source     string
	Specifiers []string
	Line       int
}

// ConnectKind classifies a connect call by its argument shape.
type ConnectKind string

// Connect call classifications. The kind is fully determined by argument
// count and literal-ness of the first two arguments; no other signal may
// override it.
const (
	ConnectComponent ConnectKind = "component"
	ConnectURLOnly   ConnectKind = "url-only"
	ConnectInvalid   ConnectKind = "invalid"
)

// HelperKind identifies one of the property-mapping helpers. The vocabulary
// is closed; the validator has one rule per variant.
type HelperKind string

// Recognized property-mapping helpers.
const (
	HelperString      HelperKind = "string"
	HelperBoolean     HelperKind = "boolean"
	HelperEnum        HelperKind = "enum"
	HelperInstance    HelperKind = "instance"
	HelperTextContent HelperKind = "textContent"
	HelperChildren    HelperKind = "children"
	HelperNestedProps HelperKind = "nestedProps"
	HelperClassName   HelperKind = "className"
)

// helperKindFromMethod maps a helper method name to its HelperKind.
func helperKindFromMethod(name string) (HelperKind, bool) {
	switch name {
	case "string":
		return HelperString, true
	case "boolean":
		return HelperBoolean, true
	case "enum":
		return HelperEnum, true
	case "instance":
		return HelperInstance, true
	case "textContent":
		return HelperTextContent, true
	case "children":
		return HelperChildren, true
	case "nestedProps":
		return HelperNestedProps, true
	case "className":
		return HelperClassName, true
	}
	return "", false
}

// EnumPair is one source→code mapping entry of an enum helper.
type EnumPair struct {
	FigmaValue string
	CodeValue  string
	Location   SourceLocation
}

// HelperCall is one property-mapping helper invocation inside a props block.
type HelperCall struct {
	PropName     string
	Kind         HelperKind
	Key          string
	KeyIsLiteral bool
	// HasMapping and MappingIsLiteral describe the enum helper's second
	// argument. EnumMapping is populated only when the mapping is a literal
	// object.
	HasMapping       bool
	MappingIsLiteral bool
	EnumMapping      []EnumPair
	Location         SourceLocation
}

// ExprKind classifies a disallowed dynamic expression shape.
type ExprKind string

// Disallowed expression shapes inside example bodies.
const (
	ExprConditional ExprKind = "conditional"
	ExprLogical     ExprKind = "logical"
	ExprBinary      ExprKind = "binary"
	ExprUnary       ExprKind = "unary"
)

// DisallowedExpr records one policy-violating expression in an example body.
type DisallowedExpr struct {
	Kind     ExprKind
	Operator string
	Location SourceLocation
}

// ExampleDescriptor describes the example function of a connect config.
type ExampleDescriptor struct {
	IsFunction         bool
	IsSingleExpression bool
	// StatementsBeforeReturn is set when a block-bodied example has
	// statements preceding its returned template.
	StatementsBeforeReturn bool
	PropsParam             string
	PropsReferences        []string
	Disallowed             []DisallowedExpr
	Location               SourceLocation
}

// PropsBlock holds the helper calls of a connect config's props subtree.
type PropsBlock struct {
	Helpers  []HelperCall
	Location SourceLocation
}

// VariantBlock holds literal variant restriction pairs.
type VariantBlock struct {
	Restrictions map[string]string
	Location     SourceLocation
}

// ConnectConfig is the parsed trailing object-literal of a connect call.
type ConnectConfig struct {
	Props   *PropsBlock
	Example *ExampleDescriptor
	Variant *VariantBlock
}

// ConnectDescriptor is one connect call extracted from the binding source.
type ConnectDescriptor struct {
	Kind      ConnectKind
	Component string
	URL       string
	// URLIsLiteral is false when the URL argument position holds a
	// non-literal expression.
	URLIsLiteral bool
	// HasConfig / ConfigIsObject describe the trailing config argument.
	HasConfig      bool
	ConfigIsObject bool
	Config         ConnectConfig
	ArgCount       int
	Location       SourceLocation
}

// IR is the canonical structured representation of one binding file.
type IR struct {
	FileName string
	Imports  []Import
	Connects []ConnectDescriptor
	// TemplateRegions are the embedded template substrings the lexical
	// validation pass is scoped to.
	TemplateRegions []SourceRegion
}
