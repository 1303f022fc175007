// Package ruby is the host walk: it parses Ruby source with tree-sitter,
// indexes classes, modules and methods, and hands every call expression to
// the Mongoid macro classifier together with its owning namespace.
package ruby

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/jward/mongoidx/internal/dsl"
	"github.com/jward/mongoidx/internal/index"
)

// CallHandler receives every receiverless call seen during the walk.
type CallHandler interface {
	OnCall(call dsl.Call, owner string)
}

// HandlerFunc builds the call handler writing into a given index.
type HandlerFunc func(idx index.Index) CallHandler

// Walker indexes Ruby source files.
type Walker struct {
	logger  *slog.Logger
	handler HandlerFunc
}

// Option configures a Walker.
type Option func(*Walker)

// WithLogger sets the walker's logger.
func WithLogger(l *slog.Logger) Option {
	return func(w *Walker) { w.logger = l }
}

// WithHandler sets how call handlers are built for each index written.
func WithHandler(h HandlerFunc) Option {
	return func(w *Walker) { w.handler = h }
}

// NewWalker returns a Walker. Without WithHandler, calls go to a default
// Mongoid classifier.
func NewWalker(opts ...Option) *Walker {
	w := &Walker{logger: slog.Default()}
	for _, opt := range opts {
		opt(w)
	}
	if w.handler == nil {
		logger := w.logger
		w.handler = func(idx index.Index) CallHandler {
			return dsl.NewClassifier(dsl.NewSynthesizer(idx, dsl.WithSynthLogger(logger)))
		}
	}
	return w
}

func parse(ctx context.Context, src []byte) (*sitter.Tree, error) {
	lang, _ := ParserForLanguage("ruby")
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(lang)

	tree, err := parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("ruby: parse: %w", err)
	}
	return tree, nil
}

// IndexSource replaces everything idx holds for uri with the entries found
// in src.
func (w *Walker) IndexSource(ctx context.Context, idx index.Index, uri string, src []byte) error {
	tree, err := parse(ctx, src)
	if err != nil {
		return err
	}
	defer tree.Close()

	if err := idx.DeleteURI(uri); err != nil {
		return fmt.Errorf("ruby: index %s: %w", uri, err)
	}
	v := &visitor{
		idx:     idx,
		handler: w.handler(idx),
		logger:  w.logger,
		uri:     uri,
		src:     src,
	}
	v.push("", index.Public)
	v.visit(tree.RootNode())
	return nil
}

// CallAt returns the innermost receiverless call enclosing the 1-based
// line and 0-based column, together with its owning namespace.
func (w *Walker) CallAt(ctx context.Context, uri string, src []byte, line, col int) (dsl.Call, string, bool, error) {
	tree, err := parse(ctx, src)
	if err != nil {
		return dsl.Call{}, "", false, err
	}
	defer tree.Close()

	f := &finder{uri: uri, src: src, row: uint32(line - 1), col: uint32(col)}
	f.visit(tree.RootNode(), "")
	return f.call, f.owner, f.found, nil
}

// frame is one level of namespace nesting.
type frame struct {
	owner      string
	visibility index.Visibility
}

type visitor struct {
	idx     index.Index
	handler CallHandler
	logger  *slog.Logger
	uri     string
	src     []byte
	frames  []frame
}

func (v *visitor) push(owner string, vis index.Visibility) {
	v.frames = append(v.frames, frame{owner: owner, visibility: vis})
}

func (v *visitor) pop() { v.frames = v.frames[:len(v.frames)-1] }

func (v *visitor) top() *frame { return &v.frames[len(v.frames)-1] }

func (v *visitor) add(e index.Entry) {
	if err := v.idx.Add(e); err != nil {
		v.logger.Debug("ruby: drop entry", "name", e.Display(), "uri", v.uri, "error", err)
	}
}

func (v *visitor) visitChildren(n *sitter.Node) {
	for i := 0; i < int(n.NamedChildCount()); i++ {
		v.visit(n.NamedChild(i))
	}
}

func (v *visitor) visit(n *sitter.Node) {
	switch n.Type() {
	case "class", "module":
		v.namespace(n)
		return
	case "singleton_class":
		owner := v.top().owner
		if owner == "" {
			return
		}
		singleton, err := v.idx.Singleton(index.AttachedName(owner))
		if err != nil {
			v.logger.Debug("ruby: singleton lookup failed", "owner", owner, "error", err)
			return
		}
		v.push(singleton.Name, index.Public)
		defer v.pop()
		value := n.ChildByFieldName("value")
		for i := 0; i < int(n.NamedChildCount()); i++ {
			child := n.NamedChild(i)
			if value != nil && sameNode(child, value) {
				continue
			}
			v.visit(child)
		}
		return
	case "method":
		v.method(n, v.top().owner, v.top().visibility)
	case "singleton_method":
		v.singletonMethod(n)
	case "identifier":
		v.visibilityToggle(n)
		return
	case "call":
		if call, ok := callOf(v.uri, n, v.src); ok {
			if vis, isVis := visibilityKeyword(call.Name); isVis {
				if v.modifiedDefs(n, vis) {
					return
				}
			}
			v.handler.OnCall(call, v.top().owner)
		}
	}
	v.visitChildren(n)
}

// namespace indexes a class or module and walks its body with the
// qualified name as owner.
func (v *visitor) namespace(n *sitter.Node) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	parent := v.top().owner
	name := qualify(index.AttachedName(parent), nameNode.Content(v.src))

	kind := index.KindClass
	if n.Type() == "module" {
		kind = index.KindModule
	}
	v.add(index.Entry{
		Name:       name,
		Kind:       kind,
		Owner:      index.AttachedName(parent),
		Location:   location(v.uri, n),
		Visibility: index.Public,
	})

	v.push(name, index.Public)
	defer v.pop()
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		if sameNode(child, nameNode) || child.Type() == "superclass" {
			continue
		}
		v.visit(child)
	}
}

func sameNode(a, b *sitter.Node) bool {
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

// qualify resolves a class name written inside parent.
func qualify(parent, name string) string {
	if strings.HasPrefix(name, "::") {
		return strings.TrimPrefix(name, "::")
	}
	if parent == "" {
		return name
	}
	return parent + "::" + name
}

func (v *visitor) method(n *sitter.Node, owner string, vis index.Visibility) {
	name := n.ChildByFieldName("name")
	if name == nil {
		return
	}
	var params []index.Parameter
	if p := n.ChildByFieldName("parameters"); p != nil {
		params = methodParams(p, v.src)
	}
	v.add(index.Entry{
		Name:       name.Content(v.src),
		Kind:       index.KindMethod,
		Owner:      owner,
		Location:   location(v.uri, n),
		Signatures: []index.Signature{{Params: params}},
		Visibility: vis,
	})
}

// singletonMethod indexes `def self.name` on the owner's class-level scope.
func (v *visitor) singletonMethod(n *sitter.Node) {
	owner := v.top().owner
	if obj := n.ChildByFieldName("object"); obj != nil && obj.Type() != "self" {
		owner = qualify("", obj.Content(v.src))
	}
	if owner == "" {
		return
	}
	singleton, err := v.idx.Singleton(owner)
	if err != nil {
		v.logger.Debug("ruby: singleton lookup failed", "owner", owner, "error", err)
		return
	}
	v.method(n, singleton.Name, index.Public)
}

func visibilityKeyword(name string) (index.Visibility, bool) {
	switch name {
	case "private":
		return index.Private, true
	case "protected":
		return index.Protected, true
	case "public":
		return index.Public, true
	}
	return "", false
}

// visibilityToggle handles a bare `private` line in a class body.
func (v *visitor) visibilityToggle(n *sitter.Node) {
	vis, ok := visibilityKeyword(n.Content(v.src))
	if !ok || len(v.frames) < 2 {
		return
	}
	if p := n.Parent(); p != nil && p.Type() != "body_statement" && p.Type() != "class" && p.Type() != "module" {
		return
	}
	v.top().visibility = vis
}

// modifiedDefs handles `private def name ... end`; it reports whether the
// call wrapped a method definition.
func (v *visitor) modifiedDefs(n *sitter.Node, vis index.Visibility) bool {
	args := n.ChildByFieldName("arguments")
	if args == nil || args.NamedChildCount() != 1 || args.NamedChild(0).Type() != "method" {
		return false
	}
	def := args.NamedChild(0)
	v.method(def, v.top().owner, vis)
	v.visitChildren(def)
	return true
}

// finder locates the innermost call containing a point.
type finder struct {
	uri      string
	src      []byte
	row, col uint32

	call  dsl.Call
	owner string
	found bool
}

func (f *finder) contains(n *sitter.Node) bool {
	start, end := n.StartPoint(), n.EndPoint()
	after := f.row > start.Row || (f.row == start.Row && f.col >= start.Column)
	before := f.row < end.Row || (f.row == end.Row && f.col < end.Column)
	return after && before
}

func (f *finder) visit(n *sitter.Node, owner string) {
	if !f.contains(n) {
		return
	}
	switch n.Type() {
	case "class", "module":
		if name := n.ChildByFieldName("name"); name != nil {
			owner = qualify(index.AttachedName(owner), name.Content(f.src))
		}
	case "singleton_class":
		if owner != "" {
			owner = index.SingletonName(owner)
		}
	case "call":
		if call, ok := callOf(f.uri, n, f.src); ok {
			f.call, f.owner, f.found = call, owner, true
		}
	}
	for i := 0; i < int(n.NamedChildCount()); i++ {
		f.visit(n.NamedChild(i), owner)
	}
}
