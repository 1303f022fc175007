// Package hover renders documentation for Mongoid macro call sites.
package hover

import (
	"fmt"
	"strings"

	"github.com/jward/mongoidx/internal/dsl"
	"github.com/jward/mongoidx/internal/index"
)

// BlockKind tags a hover content block.
type BlockKind string

const (
	BlockSignature     BlockKind = "signature"
	BlockDocumentation BlockKind = "documentation"
)

// Block is one piece of hover content, markdown formatted.
type Block struct {
	Kind BlockKind
	Text string
}

// Provider answers hover requests from the shared index.
type Provider struct {
	idx index.Index
}

// NewProvider returns a Provider reading idx.
func NewProvider(idx index.Index) *Provider {
	return &Provider{idx: idx}
}

// Hover returns the content blocks for a macro call inside owner. Calls
// that are not field or association macros yield nil.
func (p *Provider) Hover(call dsl.Call, owner string) []Block {
	kind := dsl.Classify(call.Name)
	switch {
	case kind == dsl.MacroField:
		return p.field(call, owner)
	case kind.IsAssociation():
		if _, ok := call.NameArg(); !ok {
			return nil
		}
		return []Block{{Kind: BlockDocumentation, Text: dsl.AssociationSummary(p.idx, kind, call)}}
	}
	return nil
}

func (p *Provider) field(call dsl.Call, owner string) []Block {
	if owner == "" {
		return nil
	}
	name, ok := call.NameArg()
	if !ok {
		return nil
	}
	entries := p.idx.ResolveMethod(name, owner)
	if len(entries) == 0 {
		return nil
	}
	entry := entries[0]

	var blocks []Block
	if sig, ok := FormatSignature(name, entry); ok {
		blocks = append(blocks, Block{Kind: BlockSignature, Text: sig})
	}
	if entry.Comments != "" {
		blocks = append(blocks, Block{Kind: BlockDocumentation, Text: entry.Comments})
	}
	return blocks
}

// Render joins blocks into one markdown document.
func Render(blocks []Block) string {
	parts := make([]string, len(blocks))
	for i, b := range blocks {
		parts[i] = b.Text
	}
	return strings.Join(parts, "\n\n")
}

// FormatSignature renders the entry's first signature as a fenced Ruby
// `def` line. Parameterless entries have nothing worth showing.
func FormatSignature(name string, e index.Entry) (string, bool) {
	if len(e.Signatures) == 0 || len(e.Signatures[0].Params) == 0 {
		return "", false
	}
	params := make([]string, len(e.Signatures[0].Params))
	for i, p := range e.Signatures[0].Params {
		params[i] = FormatParameter(p)
	}
	return fmt.Sprintf("```ruby\ndef %s(%s)\n```", name, strings.Join(params, ", ")), true
}

// FormatParameter renders one parameter the way it would be declared.
func FormatParameter(p index.Parameter) string {
	switch p.Kind {
	case index.ParamOptional:
		return p.Name + " = nil"
	case index.ParamKeyword:
		return p.Name + ":"
	case index.ParamOptionalKeyword:
		return p.Name + ": nil"
	case index.ParamRest:
		return "*" + p.Name
	case index.ParamKeywordRest:
		return "**" + p.Name
	case index.ParamBlock:
		return "&" + p.Name
	default:
		return p.Name
	}
}
