// Package barrier provides the hydration gate that write paths block on.
//
// A client attached to local storage must pull its replica before it starts
// mutating shared state, otherwise it could overwrite data it has not seen.
// The Barrier is a one-shot flag: once ready it stays ready.
package barrier

import (
	"context"
	"log/slog"
	"sync"
)

// HydrateFunc performs the local hydration work for a client.
type HydrateFunc func(ctx context.Context) error

// Barrier is a set-once readiness gate.
//
// Thread-safety: all methods are safe for concurrent use. Concurrent Prepare
// calls share a single hydration run.
type Barrier struct {
	mu       sync.Mutex
	ready    chan struct{}
	markOnce sync.Once
	hydrate  HydrateFunc
	running  chan struct{}
	logger   *slog.Logger
}

// New creates a barrier that is not yet ready.
func New(logger *slog.Logger) *Barrier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Barrier{
		ready:  make(chan struct{}),
		logger: logger,
	}
}

// SetHydrator installs the work Prepare runs when the barrier is not ready.
// Without a hydrator, Prepare simply marks the barrier ready.
func (b *Barrier) SetHydrator(fn HydrateFunc) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.hydrate = fn
}

// Ready reports whether the barrier has been released.
func (b *Barrier) Ready() bool {
	select {
	case <-b.ready:
		return true
	default:
		return false
	}
}

// Done returns a channel closed once the barrier is ready.
func (b *Barrier) Done() <-chan struct{} {
	return b.ready
}

// MarkReady releases the barrier. Calling it more than once is a no-op.
func (b *Barrier) MarkReady() {
	b.markOnce.Do(func() { close(b.ready) })
}

// Prepare makes sure the barrier is ready.
//
// If already ready it returns immediately. Otherwise the first caller runs
// the hydrator; later callers wait for that run. A hydration failure is
// logged and the barrier is released anyway: a client that cannot read its
// local replica still has to be usable, it just starts from an empty view.
//
// ctx only bounds the wait; it does not abort a hydration already running.
func (b *Barrier) Prepare(ctx context.Context) error {
	if b.Ready() {
		return nil
	}

	b.mu.Lock()
	if b.running != nil {
		running := b.running
		b.mu.Unlock()
		return b.wait(ctx, running)
	}
	running := make(chan struct{})
	b.running = running
	hydrate := b.hydrate
	b.mu.Unlock()

	go func() {
		defer close(running)
		if hydrate != nil {
			if err := hydrate(context.WithoutCancel(ctx)); err != nil {
				b.logger.Warn("storage hydration failed, continuing without local replica",
					"component", "barrier",
					"error", err,
				)
			}
		}
		b.MarkReady()
	}()

	return b.wait(ctx, running)
}

func (b *Barrier) wait(ctx context.Context, running <-chan struct{}) error {
	select {
	case <-b.ready:
		return nil
	case <-running:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
