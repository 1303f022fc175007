// Package dsl recognizes Mongoid model macros (field, associations, scope,
// include Mongoid::Document) and synthesizes the methods they define into
// the shared index.
package dsl

import "github.com/jward/mongoidx/internal/index"

// ArgKind tags the literal shape of a call argument.
type ArgKind int

const (
	ArgOther        ArgKind = iota // anything the analyzer does not interpret
	ArgSymbol                      // :name
	ArgString                      // "name"
	ArgConstant                    // Name
	ArgConstantPath                // Outer::Name
	ArgLambda                      // ->(a) { ... }
)

func (k ArgKind) String() string {
	switch k {
	case ArgSymbol:
		return "symbol"
	case ArgString:
		return "string"
	case ArgConstant:
		return "constant"
	case ArgConstantPath:
		return "constant_path"
	case ArgLambda:
		return "lambda"
	default:
		return "other"
	}
}

// ParamShape is the syntactic form of a lambda literal parameter.
type ParamShape int

const (
	ShapePositional ParamShape = iota
	ShapePositionalDefault
	ShapeKeyword
	ShapeKeywordDefault
	ShapeSplat
	ShapeDoubleSplat
	ShapeBlock
)

type LambdaParam struct {
	Shape ParamShape
	Name  string
}

// Arg is one argument of a call expression.
type Arg struct {
	Kind ArgKind
	// Value is the literal value for symbols, strings and constants
	// (without sigils or quotes). Empty for other kinds.
	Value string
	// Source is the argument's verbatim source text.
	Source string
	// Params holds a lambda literal's parameters.
	Params []LambdaParam
}

// Literal returns the argument's value if it is a quoted symbol or string.
func (a Arg) Literal() (string, bool) {
	if a.Kind == ArgSymbol || a.Kind == ArgString {
		return a.Value, true
	}
	return "", false
}

// Pair is one key/value element of a keyword map.
type Pair struct {
	Key   Arg
	Value Arg
}

// Call is a read-only view of a call expression produced by the host parser.
type Call struct {
	Name string
	Args []Arg
	// Keywords is the trailing keyword map, nil when the call has none.
	Keywords []Pair
	Location index.Location
}

// FirstArg returns the first positional argument.
func (c Call) FirstArg() (Arg, bool) {
	if len(c.Args) == 0 {
		return Arg{}, false
	}
	return c.Args[0], true
}

// NameArg returns the declared name: the first positional argument when it
// is a symbol or string literal.
func (c Call) NameArg() (string, bool) {
	first, ok := c.FirstArg()
	if !ok {
		return "", false
	}
	name, ok := first.Literal()
	if !ok || name == "" {
		return "", false
	}
	return name, true
}
