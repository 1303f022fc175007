package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jward/mongoidx/internal/dsl"
	"github.com/jward/mongoidx/internal/index"
)

// DefaultPollInterval is how often readiness is polled when the index
// offers no completion channel.
const DefaultPollInterval = 100 * time.Millisecond

// Engine runs the single deferred reconciliation pass.
type Engine struct {
	idx      index.Index
	resolver *Resolver
	logger   *slog.Logger
	tracer   trace.Tracer
	poll     time.Duration

	mu      sync.Mutex
	started bool
	cancel  context.CancelFunc
	done    chan struct{}
	updated atomic.Int64
	err     error
}

// Option configures an Engine.
type Option func(*Engine)

// WithResolver sets the resolver used to find library signatures.
func WithResolver(r *Resolver) Option {
	return func(e *Engine) { e.resolver = r }
}

// WithLogger sets the logger receiving the summary and failure lines.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTracer sets the tracer wrapping each pass in a span.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// WithPollInterval sets the readiness polling interval.
func WithPollInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.poll = d
		}
	}
}

// New returns an Engine over idx.
func New(idx index.Index, opts ...Option) *Engine {
	e := &Engine{
		idx:      idx,
		resolver: NewResolver(),
		logger:   slog.Default(),
		tracer:   otel.Tracer("github.com/jward/mongoidx/reconcile"),
		poll:     DefaultPollInterval,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start launches the background task: wait for indexing to complete, run
// one pass, exit. A second Start is a no-op.
func (e *Engine) Start(ctx context.Context) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.started {
		return
	}
	e.started = true
	ctx, e.cancel = context.WithCancel(ctx)

	go func() {
		defer close(e.done)
		_, err := e.Run(ctx)
		e.mu.Lock()
		e.err = err
		e.mu.Unlock()
	}()
}

// Stop cancels the background task and waits for it to exit.
func (e *Engine) Stop() {
	e.mu.Lock()
	cancel, started := e.cancel, e.started
	e.mu.Unlock()
	if !started {
		return
	}
	cancel()
	<-e.done
}

// Done is closed when the background task exits.
func (e *Engine) Done() <-chan struct{} {
	return e.done
}

// Updated returns how many signatures the pass replaced so far.
func (e *Engine) Updated() int {
	return int(e.updated.Load())
}

// Err returns the failure that ended the background task, if any.
// Cancellation is not a failure.
func (e *Engine) Err() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.err
}

// Run waits for readiness and runs one pass synchronously. Failures,
// including panics, are logged once and returned; the pass is never
// retried.
func (e *Engine) Run(ctx context.Context) (n int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("reconcile: panic: %v", r)
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			e.logger.Error("Error updating Mongoid method signatures", "error", err)
		}
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	}()

	if err := e.waitReady(ctx); err != nil {
		return 0, err
	}
	n, err = e.Pass(ctx)
	if err != nil {
		return n, err
	}
	if n > 0 {
		e.logger.Info(fmt.Sprintf("Updated %d method signatures from Mongoid modules", n), "count", n)
	}
	return n, nil
}

// waitReady blocks until the index reports completion, preferring its
// completion channel and polling IndexingComplete as a fallback.
func (e *Engine) waitReady(ctx context.Context) error {
	if e.idx.IndexingComplete() {
		return nil
	}
	var completed <-chan struct{}
	if n, ok := e.idx.(index.Notifier); ok {
		completed = n.Completed()
	}
	ticker := time.NewTicker(e.poll)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-completed:
			return nil
		case <-ticker.C:
			if e.idx.IndexingComplete() {
				return nil
			}
		}
	}
}

// Pass upgrades every eligible placeholder once, without waiting for
// readiness, and returns the number of entries replaced.
func (e *Engine) Pass(ctx context.Context) (int, error) {
	ctx, span := e.tracer.Start(ctx, "mongoidx.reconcile",
		trace.WithAttributes(
			attribute.Int("instance_sources", len(e.resolver.InstanceSources)),
			attribute.Int("class_sources", len(e.resolver.ClassSources)),
		),
	)
	defer span.End()

	instance, err := e.upgrade(ctx, ScopeInstance, dsl.InstanceCatalogue)
	if err == nil {
		var class int
		class, err = e.upgrade(ctx, ScopeClass, dsl.ClassCatalogue)
		instance += class
	}
	span.SetAttributes(attribute.Int("updated", instance))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return instance, err
}

func (e *Engine) upgrade(ctx context.Context, scope Scope, names []string) (int, error) {
	var count int
	for _, name := range names {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		sigs, module, ok := e.resolver.Resolve(e.idx, scope, name)
		if !ok {
			continue
		}
		snapshot, err := e.idx.Entries()
		if err != nil {
			return count, fmt.Errorf("reconcile: snapshot: %w", err)
		}
		for _, entry := range snapshot {
			if !eligible(entry, scope, name) {
				continue
			}
			swapped, err := e.idx.ReplaceSignatures(entry.Key(), entry.Signatures, sigs)
			if err != nil {
				return count, fmt.Errorf("reconcile: replace %s: %w", entry.Display(), err)
			}
			if swapped {
				count++
				e.updated.Add(1)
				e.logger.Debug("reconcile: upgraded signature", "method", entry.Display(), "source", module)
			}
		}
	}
	return count, nil
}

// eligible reports whether entry is a placeholder named name in scope.
func eligible(entry index.Entry, scope Scope, name string) bool {
	if entry.Kind != index.KindMethod || entry.Name != name || !entry.IsPlaceholder() {
		return false
	}
	return index.IsSingletonName(entry.Owner) == (scope == ScopeClass)
}
