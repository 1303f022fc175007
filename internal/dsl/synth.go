package dsl

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/jward/mongoidx/internal/index"
)

// Synthesizer writes the method entries a macro call implies into an index.
// Index failures are logged at debug level and dropped: a broken model file
// must never abort the host walk.
type Synthesizer struct {
	idx     index.Index
	logger  *slog.Logger
	markers map[string]bool
}

// SynthOption configures a Synthesizer.
type SynthOption func(*Synthesizer)

// WithMarkers replaces the module names whose inclusion marks a document.
func WithMarkers(names ...string) SynthOption {
	return func(s *Synthesizer) {
		s.markers = make(map[string]bool, len(names))
		for _, n := range names {
			s.markers[strings.TrimPrefix(n, "::")] = true
		}
	}
}

// WithSynthLogger sets the logger used for dropped index writes.
func WithSynthLogger(l *slog.Logger) SynthOption {
	return func(s *Synthesizer) {
		s.logger = l
	}
}

// NewSynthesizer returns a Synthesizer writing into idx.
func NewSynthesizer(idx index.Index, opts ...SynthOption) *Synthesizer {
	s := &Synthesizer{idx: idx, logger: slog.Default()}
	WithMarkers(DefaultDocumentMarkers...)(s)
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsMarker reports whether name marks a class as a Mongoid document.
func (s *Synthesizer) IsMarker(name string) bool {
	return s.markers[strings.TrimPrefix(name, "::")]
}

func (s *Synthesizer) add(e index.Entry) {
	if err := s.idx.Add(e); err != nil {
		s.logger.Debug("dsl: drop entry", "method", e.Display(), "uri", e.Location.URI, "error", err)
	}
}

func (s *Synthesizer) method(name, owner string, loc index.Location, comments string, params ...index.Parameter) {
	sig := index.Signature{}
	if len(params) > 0 {
		sig.Params = params
	}
	s.add(index.Entry{
		Name:       name,
		Kind:       index.KindMethod,
		Owner:      owner,
		Location:   loc,
		Comments:   comments,
		Signatures: []index.Signature{sig},
		Visibility: index.Public,
	})
}

// accessor adds the reader `name` and writer `name=`.
func (s *Synthesizer) accessor(name, owner string, loc index.Location, comments string) {
	s.method(name, owner, loc, comments)
	s.method(name+"=", owner, loc, comments, index.Parameter{Kind: index.ParamRequired, Name: "value"})
}

// Field synthesizes `field :name, type:, as:, default:`.
func (s *Synthesizer) Field(call Call, owner string) {
	name, ok := call.NameArg()
	if !ok {
		return
	}
	comment := fieldComment(call)
	s.accessor(name, owner, call.Location, comment)
	if alias, ok := OptionValue(call, "as"); ok && alias != "" {
		s.accessor(alias, owner, call.Location, comment)
	}
}

// Association synthesizes the accessors implied by an association macro.
func (s *Synthesizer) Association(kind MacroKind, call Call, owner string) {
	name, ok := call.NameArg()
	if !ok {
		return
	}
	loc := call.Location
	summary := AssociationSummary(s.idx, kind, call)

	s.method(name, owner, loc, summary)
	s.method(name+"=", owner, loc, "", index.Parameter{Kind: index.ParamRequired, Name: "value"})

	switch kind.cardinality() {
	case cardinalitySingular:
		attrs := index.Parameter{Kind: index.ParamOptional, Name: "attributes"}
		for _, builder := range []string{"build_" + name, "create_" + name, "create_" + name + "!"} {
			s.method(builder, owner, loc, "", attrs)
		}
	case cardinalityMany:
		s.accessor(Singularize(name)+"_ids", owner, loc, "")
	}
}

// Scope synthesizes a class-level method for `scope :name, ->(...) { }`.
func (s *Synthesizer) Scope(call Call, owner string) {
	name, ok := call.NameArg()
	if !ok {
		return
	}
	singleton, err := s.idx.Singleton(owner)
	if err != nil {
		s.logger.Debug("dsl: singleton lookup failed", "owner", owner, "error", err)
		return
	}
	var params []index.Parameter
	if len(call.Args) > 1 && call.Args[1].Kind == ArgLambda {
		for _, p := range call.Args[1].Params {
			params = append(params, index.Parameter{Kind: ParamKindOf(p.Shape), Name: p.Name})
		}
	}
	s.method(name, singleton.Name, call.Location, "", params...)
}

// Include synthesizes the document accessors and method catalogues when the
// included module is a document marker. Every entry shares the include
// call's location.
func (s *Synthesizer) Include(call Call, owner string) {
	first, ok := call.FirstArg()
	if !ok {
		return
	}
	if first.Kind != ArgConstant && first.Kind != ArgConstantPath {
		return
	}
	if !s.IsMarker(first.Value) {
		return
	}
	loc := call.Location
	s.accessor("_id", owner, loc, "")
	s.accessor("id", owner, loc, "")
	for _, name := range InstanceCatalogue {
		s.method(name, owner, loc, "")
	}
	singleton, err := s.idx.Singleton(owner)
	if err != nil {
		s.logger.Debug("dsl: singleton lookup failed", "owner", owner, "error", err)
		return
	}
	for _, name := range ClassCatalogue {
		s.method(name, singleton.Name, loc, "")
	}
}

// ParamKindOf maps a lambda parameter shape to its index parameter kind.
func ParamKindOf(shape ParamShape) index.ParamKind {
	switch shape {
	case ShapePositionalDefault:
		return index.ParamOptional
	case ShapeKeyword:
		return index.ParamKeyword
	case ShapeKeywordDefault:
		return index.ParamOptionalKeyword
	case ShapeSplat:
		return index.ParamRest
	case ShapeDoubleSplat:
		return index.ParamKeywordRest
	case ShapeBlock:
		return index.ParamBlock
	default:
		return index.ParamRequired
	}
}

// AssociationTarget returns the class an association points at: the
// `class_name` option verbatim, else the classified association name.
func AssociationTarget(call Call) string {
	if target, ok := OptionValue(call, "class_name"); ok && target != "" {
		return target
	}
	name, _ := call.NameArg()
	return ClassifyName(name)
}

// AssociationSummary renders "has_many: [Comment](file:///comment.rb#L2)"
// when the target class is indexed and "has_many: Comment" otherwise.
func AssociationSummary(idx index.Index, kind MacroKind, call Call) string {
	target := AssociationTarget(call)
	if entries := idx.Resolve(target); len(entries) > 0 {
		loc := entries[0].Location
		return fmt.Sprintf("%s: [%s](%s#L%d)", kind, target, loc.URI, loc.StartLine)
	}
	return fmt.Sprintf("%s: %s", kind, target)
}
