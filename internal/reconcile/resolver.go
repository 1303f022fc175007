// Package reconcile upgrades placeholder signatures of synthesized Mongoid
// methods once the library's own source has been indexed.
package reconcile

import "github.com/jward/mongoidx/internal/index"

// Scope selects which library modules a method is looked up on.
type Scope int

const (
	ScopeInstance Scope = iota
	ScopeClass
)

func (s Scope) String() string {
	if s == ScopeClass {
		return "class"
	}
	return "instance"
}

// DefaultInstanceSources are searched in order for instance method signatures.
var DefaultInstanceSources = []string{
	"Mongoid::Persistable::Savable",
	"Mongoid::Persistable::Updatable",
	"Mongoid::Persistable::Deletable",
	"Mongoid::Persistable::Destroyable",
	"Mongoid::Persistable::Upsertable",
	"Mongoid::Attributes",
	"Mongoid::Reloadable",
	"Mongoid::Stateful",
	"Mongoid::Changeable",
	"Mongoid::Inspectable",
}

// DefaultClassSources are searched in order for class method signatures.
var DefaultClassSources = []string{
	"Mongoid::Findable",
	"Mongoid::Criteria",
	"Mongoid::Persistable::Creatable::ClassMethods",
	"Mongoid::Clients::Sessions::ClassMethods",
}

// Resolver looks up real method signatures on library modules.
type Resolver struct {
	InstanceSources []string
	ClassSources    []string
}

// NewResolver returns a Resolver over the default Mongoid modules.
func NewResolver() *Resolver {
	return &Resolver{
		InstanceSources: append([]string(nil), DefaultInstanceSources...),
		ClassSources:    append([]string(nil), DefaultClassSources...),
	}
}

func (r *Resolver) sources(scope Scope) []string {
	if scope == ScopeClass {
		return r.ClassSources
	}
	return r.InstanceSources
}

// Resolve returns the signatures of the first source module defining name
// with at least one parameter, and the module it came from. Modules whose
// definitions are all parameterless are skipped.
func (r *Resolver) Resolve(idx index.Index, scope Scope, name string) ([]index.Signature, string, bool) {
	for _, module := range r.sources(scope) {
		for _, e := range idx.ResolveMethod(name, module) {
			if !e.IsPlaceholder() {
				return e.Signatures, module, true
			}
		}
	}
	return nil, "", false
}
