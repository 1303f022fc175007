package index

import "strings"

// Kind classifies an index entry.
type Kind string

const (
	KindClass          Kind = "class"
	KindModule         Kind = "module"
	KindSingletonClass Kind = "singleton_class"
	KindMethod         Kind = "method"
)

// IsNamespace reports whether entries of this kind can own methods.
func (k Kind) IsNamespace() bool {
	return k == KindClass || k == KindModule || k == KindSingletonClass
}

type Visibility string

const (
	Public    Visibility = "public"
	Protected Visibility = "protected"
	Private   Visibility = "private"
)

// ParamKind is the tagged variant of a method parameter.
type ParamKind string

const (
	ParamRequired        ParamKind = "required"
	ParamOptional        ParamKind = "optional"
	ParamKeyword         ParamKind = "keyword"
	ParamOptionalKeyword ParamKind = "optional_keyword"
	ParamRest            ParamKind = "rest"
	ParamKeywordRest     ParamKind = "keyword_rest"
	ParamBlock           ParamKind = "block"
)

type Parameter struct {
	Kind ParamKind `json:"kind"`
	Name string    `json:"name"`
}

// Signature is one ordered parameter list of a method.
type Signature struct {
	Params []Parameter `json:"params"`
}

type Location struct {
	URI       string
	StartLine int // 1-based
	StartCol  int // 0-based
	EndLine   int
	EndCol    int
}

// Entry is an immutable symbol-table record. Entries are passed by value;
// the only supported mutation is Index.ReplaceSignatures.
//
// Namespace entries are named by their fully qualified name ("Blog::Post",
// "Blog::Post::<Class:Post>"); method entries by their bare name.
type Entry struct {
	Name       string
	Kind       Kind
	Owner      string // qualified name of the owning namespace; "" at top level
	Location   Location
	Comments   string
	Signatures []Signature
	Visibility Visibility
}

// Key identifies an entry for compare-and-swap updates.
type Key struct {
	Name      string
	Owner     string
	URI       string
	StartLine int
	StartCol  int
}

// Key returns the entry's identity.
func (e Entry) Key() Key {
	return Key{
		Name:      e.Name,
		Owner:     e.Owner,
		URI:       e.Location.URI,
		StartLine: e.Location.StartLine,
		StartCol:  e.Location.StartCol,
	}
}

// Display renders the entry the way Ruby documentation refers to it:
// "Post#title" for instance methods, "Post.recent" for class-level ones and
// the qualified name for namespaces.
func (e Entry) Display() string {
	if e.Kind != KindMethod {
		return e.Name
	}
	if IsSingletonName(e.Owner) {
		return AttachedName(e.Owner) + "." + e.Name
	}
	if e.Owner == "" {
		return e.Name
	}
	return e.Owner + "#" + e.Name
}

// IsPlaceholder reports whether the entry's signatures carry no parameter
// information: no signatures at all, or only parameterless ones.
func (e Entry) IsPlaceholder() bool {
	return IsPlaceholder(e.Signatures)
}

// IsPlaceholder reports whether sigs is empty or every signature has zero
// parameters.
func IsPlaceholder(sigs []Signature) bool {
	for _, s := range sigs {
		if len(s.Params) > 0 {
			return false
		}
	}
	return true
}

// SignaturesEqual compares two signature lists element by element.
func SignaturesEqual(a, b []Signature) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if len(a[i].Params) != len(b[i].Params) {
			return false
		}
		for j := range a[i].Params {
			if a[i].Params[j] != b[i].Params[j] {
				return false
			}
		}
	}
	return true
}

// CloneSignatures returns a deep copy so callers cannot alias stored slices.
func CloneSignatures(sigs []Signature) []Signature {
	if sigs == nil {
		return nil
	}
	out := make([]Signature, len(sigs))
	for i, s := range sigs {
		out[i] = Signature{Params: append([]Parameter(nil), s.Params...)}
	}
	return out
}

// EmptySignature is the single parameterless signature synthesized for
// readers and placeholder methods.
func EmptySignature() []Signature {
	return []Signature{{}}
}

// SingletonName returns the qualified name of owner's class-level scope,
// e.g. "Post" -> "Post::<Class:Post>", "Blog::Post" -> "Blog::Post::<Class:Post>".
func SingletonName(owner string) string {
	last := owner
	if i := strings.LastIndex(owner, "::"); i >= 0 {
		last = owner[i+2:]
	}
	return owner + "::<Class:" + last + ">"
}

// IsSingletonName reports whether name refers to a class-level scope.
func IsSingletonName(name string) bool {
	return strings.HasSuffix(name, ">") && strings.Contains(name, "::<Class:")
}

// AttachedName returns the class a singleton scope belongs to, or name
// unchanged if it is not a singleton name.
func AttachedName(name string) string {
	if i := strings.LastIndex(name, "::<Class:"); i >= 0 && strings.HasSuffix(name, ">") {
		return name[:i]
	}
	return name
}
