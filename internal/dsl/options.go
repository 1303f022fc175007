package dsl

import "strings"

// keywordPair finds key in the call's trailing keyword map. Keys may be
// written as `key:` or `:key =>`.
func keywordPair(call Call, key string) (Pair, bool) {
	for _, p := range call.Keywords {
		if p.Key.Kind == ArgSymbol && p.Key.Value == key {
			return p, true
		}
	}
	return Pair{}, false
}

// OptionValue returns the value of option key normalized to a string.
// Quoted symbols, quoted strings, bare constants and constant paths are
// recognized; any other value shape, a missing map or a missing key yield
// ("", false).
func OptionValue(call Call, key string) (string, bool) {
	p, ok := keywordPair(call, key)
	if !ok {
		return "", false
	}
	switch p.Value.Kind {
	case ArgSymbol, ArgString, ArgConstant:
		return p.Value.Value, true
	case ArgConstantPath:
		return strings.TrimPrefix(p.Value.Value, "::"), true
	}
	return "", false
}

// OptionSource returns the verbatim source text of option key's value.
// It is used for `default:`, which is never evaluated.
func OptionSource(call Call, key string) (string, bool) {
	p, ok := keywordPair(call, key)
	if !ok {
		return "", false
	}
	return p.Value.Source, true
}

// fieldComment renders a field's options for the reader's documentation:
// "type: Integer, as: n, default: 0".
func fieldComment(call Call) string {
	var parts []string
	if v, ok := OptionValue(call, "type"); ok {
		parts = append(parts, "type: "+v)
	}
	if v, ok := OptionValue(call, "as"); ok {
		parts = append(parts, "as: "+v)
	}
	if v, ok := OptionSource(call, "default"); ok {
		parts = append(parts, "default: "+v)
	}
	return strings.Join(parts, ", ")
}
