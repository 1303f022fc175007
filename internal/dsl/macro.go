package dsl

// MacroKind is the closed set of call shapes the analyzer understands.
type MacroKind int

const (
	MacroIgnore MacroKind = iota
	MacroField
	MacroEmbedsMany
	MacroEmbeddedIn
	MacroHasMany
	MacroHasAndBelongsToMany
	MacroHasOne
	MacroBelongsTo
	MacroEmbedsOne
	MacroScope
	MacroInclude
)

var macroNames = map[string]MacroKind{
	"field":                   MacroField,
	"embeds_many":             MacroEmbedsMany,
	"embedded_in":             MacroEmbeddedIn,
	"has_many":                MacroHasMany,
	"has_and_belongs_to_many": MacroHasAndBelongsToMany,
	"has_one":                 MacroHasOne,
	"belongs_to":              MacroBelongsTo,
	"embeds_one":              MacroEmbedsOne,
	"scope":                   MacroScope,
	"include":                 MacroInclude,
}

// Classify maps a callee name to its macro kind. Unknown names are
// MacroIgnore.
func Classify(name string) MacroKind {
	return macroNames[name]
}

// String returns the macro's Ruby spelling.
func (k MacroKind) String() string {
	for name, kind := range macroNames {
		if kind == k {
			return name
		}
	}
	return "ignore"
}

// IsAssociation reports whether k declares a relationship to another model.
func (k MacroKind) IsAssociation() bool {
	switch k {
	case MacroEmbedsMany, MacroEmbeddedIn, MacroHasMany, MacroHasAndBelongsToMany,
		MacroHasOne, MacroBelongsTo, MacroEmbedsOne:
		return true
	}
	return false
}

// cardinality groups association macros by the accessors they define.
type cardinality int

const (
	cardinalityNone     cardinality = iota
	cardinalitySingular             // reader, writer, build_/create_/create_!
	cardinalityMany                 // reader, writer, <singular>_ids reader/writer
	cardinalityAccessor             // reader, writer only
)

func (k MacroKind) cardinality() cardinality {
	switch k {
	case MacroHasOne, MacroBelongsTo, MacroEmbedsOne:
		return cardinalitySingular
	case MacroHasMany, MacroHasAndBelongsToMany:
		return cardinalityMany
	case MacroEmbedsMany, MacroEmbeddedIn:
		return cardinalityAccessor
	}
	return cardinalityNone
}
