package ruby

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/mongoidx/internal/dsl"
	"github.com/jward/mongoidx/internal/index"
)

// location converts a node's span to an index location: 1-based lines,
// 0-based columns.
func location(uri string, n *sitter.Node) index.Location {
	start, end := n.StartPoint(), n.EndPoint()
	return index.Location{
		URI:       uri,
		StartLine: int(start.Row) + 1,
		StartCol:  int(start.Column),
		EndLine:   int(end.Row) + 1,
		EndCol:    int(end.Column),
	}
}

// callOf converts a receiverless call node into the analyzer's call view.
// Calls with an explicit receiver are never macros.
func callOf(uri string, n *sitter.Node, src []byte) (dsl.Call, bool) {
	if n.Type() != "call" || n.ChildByFieldName("receiver") != nil {
		return dsl.Call{}, false
	}
	method := n.ChildByFieldName("method")
	if method == nil {
		return dsl.Call{}, false
	}
	call := dsl.Call{Name: method.Content(src), Location: location(uri, n)}

	args := n.ChildByFieldName("arguments")
	if args == nil {
		return call, true
	}
	for i := 0; i < int(args.NamedChildCount()); i++ {
		child := args.NamedChild(i)
		switch child.Type() {
		case "comment":
		case "pair":
			key, value := child.ChildByFieldName("key"), child.ChildByFieldName("value")
			if key == nil || value == nil {
				continue
			}
			call.Keywords = append(call.Keywords, dsl.Pair{Key: argOf(key, src), Value: argOf(value, src)})
		default:
			call.Args = append(call.Args, argOf(child, src))
		}
	}
	return call, true
}

// argOf tags an argument node with the literal shape the analyzer reads.
func argOf(n *sitter.Node, src []byte) dsl.Arg {
	text := n.Content(src)
	arg := dsl.Arg{Kind: dsl.ArgOther, Source: text}

	switch n.Type() {
	case "simple_symbol":
		arg.Kind, arg.Value = dsl.ArgSymbol, strings.TrimPrefix(text, ":")
	case "hash_key_symbol":
		arg.Kind, arg.Value = dsl.ArgSymbol, text
	case "delimited_symbol":
		if v, ok := staticContent(n, src); ok {
			arg.Kind, arg.Value = dsl.ArgSymbol, v
		}
	case "string":
		if v, ok := staticContent(n, src); ok {
			arg.Kind, arg.Value = dsl.ArgString, v
		}
	case "constant":
		arg.Kind, arg.Value = dsl.ArgConstant, text
	case "scope_resolution":
		arg.Kind, arg.Value = dsl.ArgConstantPath, text
	case "lambda":
		arg.Kind = dsl.ArgLambda
		if params := n.ChildByFieldName("parameters"); params != nil {
			arg.Params = lambdaParams(params, src)
		}
	}
	return arg
}

// staticContent returns a string or symbol literal's text when it has no
// interpolation.
func staticContent(n *sitter.Node, src []byte) (string, bool) {
	var b strings.Builder
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "string_content", "escape_sequence":
			b.WriteString(child.Content(src))
		default:
			return "", false
		}
	}
	return b.String(), true
}

// paramShape classifies one parameter node. ok is false for nodes that are
// not parameters (comments, destructuring).
func paramShape(n *sitter.Node, src []byte) (dsl.LambdaParam, bool) {
	name := func() string {
		if id := n.ChildByFieldName("name"); id != nil {
			return id.Content(src)
		}
		return ""
	}
	switch n.Type() {
	case "identifier":
		return dsl.LambdaParam{Shape: dsl.ShapePositional, Name: n.Content(src)}, true
	case "optional_parameter":
		return dsl.LambdaParam{Shape: dsl.ShapePositionalDefault, Name: name()}, true
	case "keyword_parameter":
		if n.ChildByFieldName("value") != nil {
			return dsl.LambdaParam{Shape: dsl.ShapeKeywordDefault, Name: name()}, true
		}
		return dsl.LambdaParam{Shape: dsl.ShapeKeyword, Name: name()}, true
	case "splat_parameter":
		return dsl.LambdaParam{Shape: dsl.ShapeSplat, Name: name()}, true
	case "hash_splat_parameter":
		return dsl.LambdaParam{Shape: dsl.ShapeDoubleSplat, Name: name()}, true
	case "block_parameter":
		return dsl.LambdaParam{Shape: dsl.ShapeBlock, Name: name()}, true
	}
	return dsl.LambdaParam{}, false
}

func lambdaParams(params *sitter.Node, src []byte) []dsl.LambdaParam {
	var out []dsl.LambdaParam
	for i := 0; i < int(params.NamedChildCount()); i++ {
		if p, ok := paramShape(params.NamedChild(i), src); ok {
			out = append(out, p)
		}
	}
	return out
}

// methodParams converts a `def` parameter list into index parameters.
func methodParams(params *sitter.Node, src []byte) []index.Parameter {
	var out []index.Parameter
	for _, p := range lambdaParams(params, src) {
		out = append(out, index.Parameter{Kind: dsl.ParamKindOf(p.Shape), Name: p.Name})
	}
	return out
}
