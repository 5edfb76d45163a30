// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ast

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
)

const (
	// DefaultMaxFileSize is the largest binding source the extractor accepts.
	// Binding files are small; anything near this limit is a generator fault.
	DefaultMaxFileSize = 1 * 1024 * 1024

	// connectNamespace is the library namespace binding files import.
	connectNamespace = "figma"

	// connectMethod is the method name of the top-level connect call.
	connectMethod = "connect"
)

// ExtractorOption configures an Extractor instance.
type ExtractorOption func(*Extractor)

// WithMaxFileSize sets the maximum binding source size the extractor accepts.
func WithMaxFileSize(bytes int64) ExtractorOption {
	return func(x *Extractor) {
		if bytes > 0 {
			x.maxFileSize = bytes
		}
	}
}

// Extractor parses binding source text into the canonical IR.
//
// Description:
//
//	Extractor uses tree-sitter with the TSX grammar to parse generated
//	binding source and walk it for import declarations and connect calls.
//	Each Extract call creates its own tree-sitter parser instance.
//
// Thread Safety:
//
//	Extractor instances are safe for concurrent use. Multiple goroutines
//	may call Extract simultaneously on the same instance.
type Extractor struct {
	maxFileSize int64
}

// NewExtractor creates an Extractor with the given options.
func NewExtractor(opts ...ExtractorOption) *Extractor {
	x := &Extractor{maxFileSize: DefaultMaxFileSize}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract parses binding source into an IR.
//
// Description:
//
//	On malformed syntax Extract fails with a *ParseError carrying the
//	originating line and column; it never returns a partial IR. The
//	returned IR is never mutated by downstream components.
//
// Inputs:
//   - ctx: Context for cancellation. Checked before and after parsing.
//   - content: Raw binding source bytes. Must be valid UTF-8.
//   - fileName: Label used in error messages.
//
// Outputs:
//   - *IR: The extracted representation. Never nil on success.
//   - error: ErrFileTooLarge, ErrInvalidContent, *ParseError, or a context
//     error.
//
// Thread Safety: This method is safe for concurrent use.
func (x *Extractor) Extract(ctx context.Context, content []byte, fileName string) (*IR, error) {
	ctx, span := startExtractSpan(ctx, fileName, len(content))
	defer span.End()

	start := time.Now()

	if err := ctx.Err(); err != nil {
		recordExtractMetrics(ctx, time.Since(start), 0, false)
		return nil, fmt.Errorf("extract canceled before start: %w", err)
	}
	if int64(len(content)) > x.maxFileSize {
		recordExtractMetrics(ctx, time.Since(start), 0, false)
		return nil, fmt.Errorf("%w: size %d exceeds limit %d", ErrFileTooLarge, len(content), x.maxFileSize)
	}
	if !utf8.Valid(content) {
		recordExtractMetrics(ctx, time.Since(start), 0, false)
		return nil, ErrInvalidContent
	}

	parser := sitter.NewParser()
	parser.SetLanguage(tsx.GetLanguage())

	tree, err := parser.ParseCtx(ctx, nil, content)
	if err != nil {
		recordExtractMetrics(ctx, time.Since(start), 0, false)
		return nil, fmt.Errorf("tree-sitter parse failed: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	if root == nil {
		recordExtractMetrics(ctx, time.Since(start), 0, false)
		return nil, &ParseError{File: fileName, Line: 1, Col: 0, Msg: "parser returned no syntax tree"}
	}
	if root.HasError() {
		recordExtractMetrics(ctx, time.Since(start), 0, false)
		return nil, parseErrorFromTree(root, content, fileName)
	}

	ir := &IR{FileName: fileName}
	x.extractImports(root, content, ir)
	x.extractConnects(root, content, ir)

	if err := ctx.Err(); err != nil {
		recordExtractMetrics(ctx, time.Since(start), len(ir.Connects), false)
		return nil, fmt.Errorf("extract canceled after walk: %w", err)
	}

	setExtractSpanResult(span, len(ir.Connects), len(ir.Imports))
	recordExtractMetrics(ctx, time.Since(start), len(ir.Connects), true)
	return ir, nil
}

// parseErrorFromTree locates the first syntax error in the tree and builds
// a ParseError pointing at it.
func parseErrorFromTree(root *sitter.Node, content []byte, fileName string) *ParseError {
	if bad := firstErrorNode(root); bad != nil {
		msg := "unexpected token"
		if bad.IsMissing() {
			msg = fmt.Sprintf("missing %q", bad.Type())
		} else if snippet := nodeText(bad, content); snippet != "" {
			if len(snippet) > 24 {
				snippet = snippet[:24] + "..."
			}
			msg = fmt.Sprintf("unexpected token near %q", snippet)
		}
		return &ParseError{
			File: fileName,
			Line: int(bad.StartPoint().Row + 1),
			Col:  int(bad.StartPoint().Column),
			Msg:  msg,
		}
	}
	return &ParseError{File: fileName, Line: 1, Col: 0, Msg: "source contains syntax errors"}
}

// firstErrorNode depth-first searches for the first ERROR or missing node.
func firstErrorNode(node *sitter.Node) *sitter.Node {
	if node.Type() == "ERROR" || node.IsMissing() {
		return node
	}
	if !node.HasError() {
		return nil
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child == nil {
			continue
		}
		if found := firstErrorNode(child); found != nil {
			return found
		}
	}
	return node
}

// extractImports collects top-level import declarations.
func (x *Extractor) extractImports(root *sitter.Node, content []byte, ir *IR) {
	for i := 0; i < int(root.ChildCount()); i++ {
		child := root.Child(i)
		if child == nil || child.Type() != "import_statement" {
			continue
		}
		imp := Import{Line: int(child.StartPoint().Row + 1)}
		for j := 0; j < int(child.ChildCount()); j++ {
			gc := child.Child(j)
			if gc == nil {
				continue
			}
			switch gc.Type() {
			case "import_clause":
				imp.Specifiers = append(imp.Specifiers, importSpecifiers(gc, content)...)
			case "string":
				imp.Source = stringContent(gc, content)
			}
		}
		if imp.Source != "" {
			ir.Imports = append(ir.Imports, imp)
		}
	}
}

// importSpecifiers flattens default, namespace, and named import specifiers.
func importSpecifiers(clause *sitter.Node, content []byte) []string {
	var specs []string
	for i := 0; i < int(clause.ChildCount()); i++ {
		child := clause.Child(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "identifier":
			specs = append(specs, nodeText(child, content))
		case "namespace_import":
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				if gc != nil && gc.Type() == "identifier" {
					specs = append(specs, nodeText(gc, content))
				}
			}
		case "named_imports":
			for j := 0; j < int(child.ChildCount()); j++ {
				gc := child.Child(j)
				if gc != nil && gc.Type() == "import_specifier" {
					if name := nodeText(gc, content); name != "" {
						specs = append(specs, name)
					}
				}
			}
		}
	}
	return specs
}

// extractConnects walks the whole tree for connect-shaped call expressions.
func (x *Extractor) extractConnects(node *sitter.Node, content []byte, ir *IR) {
	if node.Type() == "call_expression" && isConnectCall(node, content) {
		ir.Connects = append(ir.Connects, x.extractConnect(node, content, ir))
		// Connect calls do not nest; no need to descend further.
		return
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		x.extractConnects(child, content, ir)
	}
}

// isConnectCall reports whether a call expression is figma.connect(...).
func isConnectCall(call *sitter.Node, content []byte) bool {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return false
	}
	obj := fn.ChildByFieldName("object")
	prop := fn.ChildByFieldName("property")
	if obj == nil || prop == nil || obj.Type() != "identifier" {
		return false
	}
	return nodeText(obj, content) == connectNamespace && nodeText(prop, content) == connectMethod
}

// extractConnect builds a ConnectDescriptor from a connect call expression.
//
// Description:
//
//	Classification is fully determined by argument count and the shape of
//	the first two arguments:
//	  - two arguments with a literal first argument  -> url-only
//	  - (identifier, string-literal, object-literal) -> component
//	  - anything else                                -> invalid
//	Invalid calls are still extracted so the validator can report a precise
//	structural error instead of a parse failure.
func (x *Extractor) extractConnect(call *sitter.Node, content []byte, ir *IR) ConnectDescriptor {
	desc := ConnectDescriptor{
		Kind:     ConnectInvalid,
		Location: nodeLocation(call),
	}

	args := callArguments(call)
	desc.ArgCount = len(args)

	switch {
	case len(args) == 2 && args[0].Type() == "string":
		desc.Kind = ConnectURLOnly
		desc.URL = stringContent(args[0], content)
		desc.URLIsLiteral = true
		x.extractConfigArg(args[1], content, &desc, ir)
	case len(args) == 3 && args[0].Type() == "identifier" &&
		args[1].Type() == "string" && args[2].Type() == "object":
		desc.Kind = ConnectComponent
		desc.Component = nodeText(args[0], content)
		desc.URL = stringContent(args[1], content)
		desc.URLIsLiteral = true
		x.extractConfigArg(args[2], content, &desc, ir)
	default:
		// Capture what is recoverable for error reporting.
		for i, arg := range args {
			switch {
			case arg.Type() == "string" && desc.URL == "":
				desc.URL = stringContent(arg, content)
				desc.URLIsLiteral = i <= 1
			case arg.Type() == "identifier" && desc.Component == "":
				desc.Component = nodeText(arg, content)
			case arg.Type() == "object":
				x.extractConfigArg(arg, content, &desc, ir)
			}
		}
	}

	return desc
}

// callArguments returns the expression arguments of a call, comments excluded.
func callArguments(call *sitter.Node) []*sitter.Node {
	argsNode := call.ChildByFieldName("arguments")
	if argsNode == nil {
		return nil
	}
	args := make([]*sitter.Node, 0, argsNode.NamedChildCount())
	for i := 0; i < int(argsNode.NamedChildCount()); i++ {
		arg := argsNode.NamedChild(i)
		if arg == nil || arg.Type() == "comment" {
			continue
		}
		args = append(args, arg)
	}
	return args
}

// extractConfigArg records the trailing config argument and, when it is an
// object literal, extracts the props/example/variant subtrees.
func (x *Extractor) extractConfigArg(node *sitter.Node, content []byte, desc *ConnectDescriptor, ir *IR) {
	desc.HasConfig = true
	if node.Type() != "object" {
		return
	}
	desc.ConfigIsObject = true

	for i := 0; i < int(node.NamedChildCount()); i++ {
		pair := node.NamedChild(i)
		if pair == nil || pair.Type() != "pair" {
			continue
		}
		key := pairKey(pair, content)
		value := pair.ChildByFieldName("value")
		if value == nil {
			continue
		}
		switch key {
		case "props":
			if value.Type() == "object" {
				desc.Config.Props = x.extractProps(value, content)
			}
		case "example":
			desc.Config.Example = x.extractExample(value, content, ir)
		case "variant":
			if value.Type() == "object" {
				desc.Config.Variant = extractVariant(value, content)
			}
		}
	}
}

// extractProps builds HelperCalls from a props object literal.
func (x *Extractor) extractProps(node *sitter.Node, content []byte) *PropsBlock {
	block := &PropsBlock{Location: nodeLocation(node)}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		pair := node.NamedChild(i)
		if pair == nil || pair.Type() != "pair" {
			continue
		}
		propName := pairKey(pair, content)
		value := pair.ChildByFieldName("value")
		if value == nil || value.Type() != "call_expression" {
			continue
		}
		if call := extractHelperCall(value, content, propName); call != nil {
			block.Helpers = append(block.Helpers, *call)
		}
	}
	return block
}

// extractHelperCall builds a HelperCall if the call expression invokes a
// recognized helper on the connect namespace.
func extractHelperCall(call *sitter.Node, content []byte, propName string) *HelperCall {
	fn := call.ChildByFieldName("function")
	if fn == nil || fn.Type() != "member_expression" {
		return nil
	}
	obj := fn.ChildByFieldName("object")
	prop := fn.ChildByFieldName("property")
	if obj == nil || prop == nil || obj.Type() != "identifier" || nodeText(obj, content) != connectNamespace {
		return nil
	}
	kind, ok := helperKindFromMethod(nodeText(prop, content))
	if !ok {
		return nil
	}

	hc := &HelperCall{
		PropName: propName,
		Kind:     kind,
		Location: nodeLocation(call),
	}

	args := callArguments(call)
	if len(args) > 0 {
		if args[0].Type() == "string" {
			hc.Key = stringContent(args[0], content)
			hc.KeyIsLiteral = true
		} else {
			hc.Key = nodeText(args[0], content)
		}
	}

	if kind == HelperEnum && len(args) > 1 {
		hc.HasMapping = true
		if args[1].Type() == "object" {
			hc.MappingIsLiteral = true
			hc.EnumMapping = extractEnumMapping(args[1], content)
		}
	}

	return hc
}

// extractEnumMapping extracts {figmaValue: codeValue} pairs from the enum
// helper's mapping object.
func extractEnumMapping(node *sitter.Node, content []byte) []EnumPair {
	pairs := make([]EnumPair, 0, node.NamedChildCount())
	for i := 0; i < int(node.NamedChildCount()); i++ {
		pair := node.NamedChild(i)
		if pair == nil || pair.Type() != "pair" {
			continue
		}
		figmaValue := pairKey(pair, content)
		if figmaValue == "" {
			continue
		}
		codeValue := ""
		if value := pair.ChildByFieldName("value"); value != nil {
			codeValue = nodeText(value, content)
		}
		pairs = append(pairs, EnumPair{
			FigmaValue: figmaValue,
			CodeValue:  codeValue,
			Location:   nodeLocation(pair),
		})
	}
	return pairs
}

// extractVariant extracts literal key/value restriction pairs.
func extractVariant(node *sitter.Node, content []byte) *VariantBlock {
	block := &VariantBlock{
		Restrictions: make(map[string]string),
		Location:     nodeLocation(node),
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		pair := node.NamedChild(i)
		if pair == nil || pair.Type() != "pair" {
			continue
		}
		key := pairKey(pair, content)
		value := pair.ChildByFieldName("value")
		if key == "" || value == nil {
			continue
		}
		switch value.Type() {
		case "string":
			block.Restrictions[key] = stringContent(value, content)
		case "number", "true", "false":
			block.Restrictions[key] = nodeText(value, content)
		}
	}
	return block
}

// extractExample builds an ExampleDescriptor from the example config value.
func (x *Extractor) extractExample(node *sitter.Node, content []byte, ir *IR) *ExampleDescriptor {
	desc := &ExampleDescriptor{Location: nodeLocation(node)}

	var body *sitter.Node
	switch node.Type() {
	case "arrow_function":
		desc.IsFunction = true
		desc.PropsParam = arrowPropsParam(node, content, desc)
		body = node.ChildByFieldName("body")
	case "function", "function_expression", "function_declaration":
		desc.IsFunction = true
		if params := node.ChildByFieldName("parameters"); params != nil {
			desc.PropsParam = formalPropsParam(params, content, desc)
		}
		body = node.ChildByFieldName("body")
	default:
		return desc
	}

	if body == nil {
		return desc
	}

	if body.Type() == "statement_block" {
		desc.IsSingleExpression = false
		x.inspectBlockBody(body, content, desc, ir)
		return desc
	}

	desc.IsSingleExpression = true
	x.walkExampleExpr(body, content, desc, ir)
	return desc
}

// arrowPropsParam resolves the implicit props parameter of an arrow function.
// Destructured parameter names are recorded as props references directly.
func arrowPropsParam(node *sitter.Node, content []byte, desc *ExampleDescriptor) string {
	if param := node.ChildByFieldName("parameter"); param != nil && param.Type() == "identifier" {
		return nodeText(param, content)
	}
	if params := node.ChildByFieldName("parameters"); params != nil {
		return formalPropsParam(params, content, desc)
	}
	return ""
}

// formalPropsParam resolves the first formal parameter; for a destructuring
// pattern the bound names are recorded as props references.
func formalPropsParam(params *sitter.Node, content []byte, desc *ExampleDescriptor) string {
	for i := 0; i < int(params.NamedChildCount()); i++ {
		param := params.NamedChild(i)
		if param == nil {
			continue
		}
		// required_parameter wraps the actual pattern in TSX.
		target := param
		if param.Type() == "required_parameter" || param.Type() == "optional_parameter" {
			if inner := param.ChildByFieldName("pattern"); inner != nil {
				target = inner
			}
		}
		switch target.Type() {
		case "identifier":
			return nodeText(target, content)
		case "object_pattern":
			collectPatternNames(target, content, desc)
			return ""
		}
	}
	return ""
}

// collectPatternNames records destructured member names as props references.
func collectPatternNames(pattern *sitter.Node, content []byte, desc *ExampleDescriptor) {
	for i := 0; i < int(pattern.NamedChildCount()); i++ {
		child := pattern.NamedChild(i)
		if child == nil {
			continue
		}
		switch child.Type() {
		case "shorthand_property_identifier_pattern", "shorthand_property_identifier":
			desc.addPropsReference(nodeText(child, content))
		case "pair_pattern":
			if key := child.ChildByFieldName("key"); key != nil {
				desc.addPropsReference(nodeText(key, content))
			}
		}
	}
}

// inspectBlockBody handles the disallowed statement-block example shape. It
// still walks the returned expression so key and policy errors are reported
// alongside the structural one.
func (x *Extractor) inspectBlockBody(block *sitter.Node, content []byte, desc *ExampleDescriptor, ir *IR) {
	sawNonReturn := false
	for i := 0; i < int(block.NamedChildCount()); i++ {
		stmt := block.NamedChild(i)
		if stmt == nil || stmt.Type() == "comment" {
			continue
		}
		if stmt.Type() == "return_statement" {
			if expr := stmt.NamedChild(0); expr != nil {
				x.walkExampleExpr(expr, content, desc, ir)
			}
			continue
		}
		sawNonReturn = true
		x.walkExampleExpr(stmt, content, desc, ir)
	}
	desc.StatementsBeforeReturn = sawNonReturn
}

// logicalOperators are binary operators classified as logical rather than
// plain binary expressions.
var logicalOperators = map[string]bool{"&&": true, "||": true, "??": true}

// walkExampleExpr recursively inspects an example expression for props
// references and disallowed dynamic expression shapes. Template strings are
// treated as opaque: their byte regions are recorded on the IR for the
// validator's lexical pass instead of being classified structurally.
func (x *Extractor) walkExampleExpr(node *sitter.Node, content []byte, desc *ExampleDescriptor, ir *IR) {
	switch node.Type() {
	case "template_string":
		ir.TemplateRegions = append(ir.TemplateRegions, SourceRegion{
			StartByte: node.StartByte(),
			EndByte:   node.EndByte(),
			Line:      int(node.StartPoint().Row + 1),
		})
		return
	case "ternary_expression":
		desc.Disallowed = append(desc.Disallowed, DisallowedExpr{
			Kind:     ExprConditional,
			Operator: "?:",
			Location: nodeLocation(node),
		})
	case "binary_expression":
		op := ""
		if opNode := node.ChildByFieldName("operator"); opNode != nil {
			op = opNode.Type()
		}
		kind := ExprBinary
		if logicalOperators[op] {
			kind = ExprLogical
		}
		desc.Disallowed = append(desc.Disallowed, DisallowedExpr{
			Kind:     kind,
			Operator: op,
			Location: nodeLocation(node),
		})
	case "unary_expression":
		if opNode := node.ChildByFieldName("operator"); opNode != nil && opNode.Type() == "!" {
			desc.Disallowed = append(desc.Disallowed, DisallowedExpr{
				Kind:     ExprUnary,
				Operator: "!",
				Location: nodeLocation(node),
			})
		}
	case "member_expression":
		obj := node.ChildByFieldName("object")
		prop := node.ChildByFieldName("property")
		if obj != nil && prop != nil && obj.Type() == "identifier" &&
			desc.PropsParam != "" && nodeText(obj, content) == desc.PropsParam {
			desc.addPropsReference(nodeText(prop, content))
		}
	}

	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(i)
		if child == nil {
			continue
		}
		x.walkExampleExpr(child, content, desc, ir)
	}
}

// addPropsReference appends a deduplicated props member reference.
func (desc *ExampleDescriptor) addPropsReference(name string) {
	for _, existing := range desc.PropsReferences {
		if existing == name {
			return
		}
	}
	desc.PropsReferences = append(desc.PropsReferences, name)
}

// pairKey extracts an object pair's key as plain text.
func pairKey(pair *sitter.Node, content []byte) string {
	key := pair.ChildByFieldName("key")
	if key == nil {
		return ""
	}
	switch key.Type() {
	case "string":
		return stringContent(key, content)
	default:
		return nodeText(key, content)
	}
}

// stringContent extracts the content of a string node without quotes.
func stringContent(node *sitter.Node, content []byte) string {
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(i)
		if child != nil && child.Type() == "string_fragment" {
			return nodeText(child, content)
		}
	}
	return strings.Trim(nodeText(node, content), `"'`)
}

// nodeText returns the raw source text of a node.
func nodeText(node *sitter.Node, content []byte) string {
	return string(content[node.StartByte():node.EndByte()])
}

// nodeLocation returns the 1-based source location of a node.
func nodeLocation(node *sitter.Node) SourceLocation {
	return SourceLocation{
		Line: int(node.StartPoint().Row + 1),
		Col:  int(node.StartPoint().Column),
	}
}
