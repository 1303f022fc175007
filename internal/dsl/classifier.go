package dsl

// Classifier routes each call expression seen during the host walk to the
// synthesizer handler for its macro kind.
type Classifier struct {
	synth *Synthesizer
}

// NewClassifier returns a Classifier dispatching to synth.
func NewClassifier(synth *Synthesizer) *Classifier {
	return &Classifier{synth: synth}
}

// OnCall handles one call expression. owner is the qualified name of the
// enclosing class or module; calls outside any namespace are ignored.
func (c *Classifier) OnCall(call Call, owner string) {
	if owner == "" {
		return
	}
	switch kind := Classify(call.Name); kind {
	case MacroField:
		c.synth.Field(call, owner)
	case MacroEmbedsMany, MacroEmbeddedIn, MacroHasMany, MacroHasAndBelongsToMany,
		MacroHasOne, MacroBelongsTo, MacroEmbedsOne:
		c.synth.Association(kind, call, owner)
	case MacroScope:
		c.synth.Scope(call, owner)
	case MacroInclude:
		c.synth.Include(call, owner)
	case MacroIgnore:
	}
}
