package mongoidx

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/jward/mongoidx/internal/dsl"
	"github.com/jward/mongoidx/internal/hover"
	"github.com/jward/mongoidx/internal/index"
	"github.com/jward/mongoidx/internal/reconcile"
	"github.com/jward/mongoidx/internal/ruby"
)

// Version is reported in the activation log line.
const Version = "0.3.0"

// Addon is the Mongoid add-on: it synthesizes methods for DSL calls as the
// host walks source and reconciles their signatures once indexing is done.
type Addon struct {
	idx      index.Index
	logger   *slog.Logger
	resolver *reconcile.Resolver
	markers  []string
	poll     time.Duration
	tracer   trace.Tracer

	classifier *dsl.Classifier
	hover      *hover.Provider

	mu     sync.Mutex
	engine *reconcile.Engine
}

// Option configures an Addon.
type Option func(*Addon)

// WithLogger sets the add-on's logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Addon) { a.logger = l }
}

// WithResolver sets the modules consulted for real signatures.
func WithResolver(r *reconcile.Resolver) Option {
	return func(a *Addon) { a.resolver = r }
}

// WithDocumentMarkers replaces the modules whose inclusion marks a class as
// a Mongoid document.
func WithDocumentMarkers(names ...string) Option {
	return func(a *Addon) {
		if len(names) > 0 {
			a.markers = append([]string(nil), names...)
		}
	}
}

// WithPollInterval sets how often readiness is polled when the index has
// no completion channel.
func WithPollInterval(d time.Duration) Option {
	return func(a *Addon) { a.poll = d }
}

// WithTracer sets the tracer for reconciliation spans.
func WithTracer(t trace.Tracer) Option {
	return func(a *Addon) { a.tracer = t }
}

// New returns an add-on writing into idx.
func New(idx index.Index, opts ...Option) *Addon {
	a := &Addon{
		idx:      idx,
		logger:   slog.New(slog.NewTextHandler(os.Stderr, nil)),
		resolver: reconcile.NewResolver(),
		markers:  append([]string(nil), dsl.DefaultDocumentMarkers...),
		poll:     reconcile.DefaultPollInterval,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.classifier = dsl.NewClassifier(a.synthesizer(idx))
	a.hover = hover.NewProvider(idx)
	return a
}

// Name is the add-on's display name.
func (a *Addon) Name() string { return "Mongoid" }

func (a *Addon) synthesizer(idx index.Index) *dsl.Synthesizer {
	return dsl.NewSynthesizer(idx, dsl.WithMarkers(a.markers...), dsl.WithSynthLogger(a.logger))
}

// OnCall classifies one call expression seen inside owner's body and
// synthesizes the entries it implies. It never blocks.
func (a *Addon) OnCall(call dsl.Call, owner string) {
	a.classifier.OnCall(call, owner)
}

// Walker returns a host walker whose calls are synthesized with this
// add-on's configuration, into whichever index the walk writes.
func (a *Addon) Walker() *ruby.Walker {
	return ruby.NewWalker(
		ruby.WithLogger(a.logger),
		ruby.WithHandler(func(idx index.Index) ruby.CallHandler {
			return dsl.NewClassifier(a.synthesizer(idx))
		}),
	)
}

// IndexSource re-indexes one file into the add-on's index.
func (a *Addon) IndexSource(ctx context.Context, uri string, src []byte) error {
	return a.Walker().IndexSource(ctx, a.idx, uri, src)
}

// Activate starts the background reconciliation task. It returns
// immediately; the task waits for the index to report completion.
// Activating an already active add-on is a no-op.
func (a *Addon) Activate(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.engine != nil {
		return
	}
	a.logger.Info("Activating Mongoid add-on v"+Version, "version", Version)

	opts := []reconcile.Option{
		reconcile.WithResolver(a.resolver),
		reconcile.WithLogger(a.logger),
		reconcile.WithPollInterval(a.poll),
	}
	if a.tracer != nil {
		opts = append(opts, reconcile.WithTracer(a.tracer))
	}
	a.engine = reconcile.New(a.idx, opts...)
	a.engine.Start(ctx)
}

// Deactivate cancels the background task and waits for it to exit.
func (a *Addon) Deactivate() {
	a.mu.Lock()
	e := a.engine
	a.engine = nil
	a.mu.Unlock()
	if e != nil {
		e.Stop()
	}
}

// Reconciler returns the running reconciliation task, or nil before
// Activate.
func (a *Addon) Reconciler() *reconcile.Engine {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.engine
}

// Hover renders hover text for a DSL call. The result is empty for calls
// that are not fields or associations.
func (a *Addon) Hover(call dsl.Call, owner string) string {
	return hover.Render(a.hover.Hover(call, owner))
}

// HoverAt renders hover text for the DSL call at a 1-based line and 0-based
// column of src.
func (a *Addon) HoverAt(ctx context.Context, uri string, src []byte, line, col int) (string, bool, error) {
	call, owner, ok, err := a.Walker().CallAt(ctx, uri, src, line, col)
	if err != nil || !ok {
		return "", false, err
	}
	text := a.Hover(call, owner)
	return text, text != "", nil
}
