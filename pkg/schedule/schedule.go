package schedule

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrCorpusReplaced is returned by Relinquish when the corpus generation a
// traversal started against no longer matches the engine's current one.
var ErrCorpusReplaced = errors.New("schedule: corpus was replaced")

// Yielder is the cooperative-yielding contract every long aggregation
// accepts: a relinquish() callback invoked at natural boundaries. Hosts
// provide a Yielder; pure per-mapgen/per-palette/per-item-group
// computations never take one — they run to completion uninterruptibly.
type Yielder interface {
	// Relinquish suspends the caller until the host signals it is safe to
	// resume, or returns ctx.Err() if ctx is done first.
	Relinquish(ctx context.Context) error
}

// Synchronous is the test-mode Yielder: Relinquish is a no-op beyond
// checking ctx, so aggregations run to completion synchronously.
type Synchronous struct{}

// Relinquish implements Yielder.
func (Synchronous) Relinquish(ctx context.Context) error {
	return ctx.Err()
}

// InputPendingHost is the first host integration strategy: the host can
// report whether input is pending and accept a task to run once it has
// drained that input.
type InputPendingHost interface {
	IsInputPending() bool
	PostTask(fn func())
}

// InputPendingYielder suspends only when the host reports pending input,
// resuming once the host runs the posted continuation.
type InputPendingYielder struct {
	Host InputPendingHost
}

// Relinquish implements Yielder.
func (y InputPendingYielder) Relinquish(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if !y.Host.IsInputPending() {
		return nil
	}

	done := make(chan struct{})
	y.Host.PostTask(func() { close(done) })

	select {
	case <-done:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// IdleDeadlineHost is the fallback host integration strategy: the host
// grants an idle deadline and tells the caller how much of it remains.
type IdleDeadlineHost interface {
	RequestIdleCallback(fn func(remaining func() time.Duration))
}

// IdleDeadlineYielder waits for an idle deadline and re-requests one
// whenever the remaining deadline is exhausted.
type IdleDeadlineYielder struct {
	Host IdleDeadlineHost
	// MinRemaining is the smallest remaining budget considered usable;
	// at or below it, Relinquish waits for a fresh deadline. Zero accepts
	// any deadline that still has time left.
	MinRemaining time.Duration
}

// Relinquish implements Yielder.
func (y IdleDeadlineYielder) Relinquish(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	done := make(chan struct{})
	var request func()
	request = func() {
		y.Host.RequestIdleCallback(func(remaining func() time.Duration) {
			if remaining() <= y.MinRemaining && ctx.Err() == nil {
				// Deadline exhausted: wait for a fresh one.
				request()
				return
			}
			close(done)
		})
	}
	request()

	select {
	case <-done:
		return ctx.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// GenerationSource reports a monotonically increasing generation number,
// bumped every time the underlying corpus is replaced.
type GenerationSource interface {
	Generation() uint64
}

// Guard captures a generation at traversal start and detects whether the
// corpus has since been replaced out from under an in-flight aggregation.
type Guard struct {
	source   GenerationSource
	captured uint64
}

// NewGuard snapshots source's current generation.
func NewGuard(source GenerationSource) *Guard {
	return &Guard{source: source, captured: source.Generation()}
}

// Check returns ErrCorpusReplaced if the guarded generation has moved on.
func (g *Guard) Check() error {
	if g == nil {
		return nil
	}
	if g.source.Generation() != g.captured {
		return ErrCorpusReplaced
	}
	return nil
}

// Relinquish is the single entry point aggregators call at a suspension
// boundary: it checks ctx, checks the generation guard, then defers to
// the Yielder strategy. A nil yielder behaves like Synchronous.
func Relinquish(ctx context.Context, y Yielder, guard *Guard) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := guard.Check(); err != nil {
		return err
	}
	if y == nil {
		return nil
	}
	return y.Relinquish(ctx)
}

// Counter is a simple concurrency-safe GenerationSource/bumper pairing,
// suitable for an engine that owns exactly one corpus pointer at a time.
type Counter struct {
	mu  sync.RWMutex
	gen uint64
}

// Generation implements GenerationSource.
func (c *Counter) Generation() uint64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.gen
}

// Bump advances the generation, invalidating any Guard captured before
// this call.
func (c *Counter) Bump() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.gen++
	return c.gen
}
