package store

import (
	"encoding/json"

	"github.com/jward/mongoidx/internal/index"
)

// marshalSignatures converts signatures to JSON text for storage. Empty
// parameter lists are normalized so equal lists always encode to the same
// text; ReplaceSignatures relies on that for its compare step.
func marshalSignatures(sigs []index.Signature) string {
	if len(sigs) == 0 {
		return "[]"
	}
	norm := make([]index.Signature, len(sigs))
	for i, s := range sigs {
		if len(s.Params) > 0 {
			norm[i].Params = s.Params
		}
	}
	b, _ := json.Marshal(norm)
	return string(b)
}

// unmarshalSignatures converts JSON text back to signatures.
func unmarshalSignatures(s string) []index.Signature {
	if s == "" || s == "null" || s == "[]" {
		return nil
	}
	var sigs []index.Signature
	_ = json.Unmarshal([]byte(s), &sigs)
	return sigs
}
