package executor

import (
	"context"
	"runtime/debug"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/deferred"
)

var ErrPoolClosed = errors.New("executor: pool is shut down")

// Pool runs submitted tasks on goroutines, at most Size of them at a time.
// Submit never blocks: tasks beyond the limit wait for a free slot in
// submission order of their goroutines, not strictly FIFO.
type Pool struct {
	sem    *semaphore.Weighted
	size   int
	logger zerolog.Logger

	// ctx is cancelled by ShutdownNow to release tasks still waiting for a slot.
	ctx    context.Context
	cancel context.CancelFunc

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// PoolOption configures a Pool.
type PoolOption func(*Pool)

// WithPoolLogger sets the logger used for task panics and shutdown events.
func WithPoolLogger(logger zerolog.Logger) PoolOption {
	return func(p *Pool) { p.logger = logger }
}

// NewPool creates a pool running at most size tasks concurrently. A size
// below one is treated as one.
func NewPool(size int, opts ...PoolOption) *Pool {
	if size < 1 {
		size = 1
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		sem:    semaphore.NewWeighted(int64(size)),
		size:   size,
		logger: log.With().Str("component", "executor").Logger(),
		ctx:    ctx,
		cancel: cancel,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Size returns the concurrency limit.
func (p *Pool) Size() int { return p.size }

// Submit schedules task and returns a deferred settled with its outcome.
// A panicking task rejects the deferred. After shutdown the returned
// deferred is already rejected with ErrPoolClosed.
func (p *Pool) Submit(task func() (any, error)) deferred.Deferred[any] {
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return deferred.Rejected[any](ErrPoolClosed)
	}
	p.wg.Add(1)
	p.mu.RUnlock()

	d := deferred.New[any]()
	go p.run(task, d)
	return d
}

func (p *Pool) run(task func() (any, error), d *deferred.DeferredImp[any]) {
	defer p.wg.Done()

	if err := p.sem.Acquire(p.ctx, 1); err != nil {
		d.Reject(ErrPoolClosed)
		return
	}
	defer p.sem.Release(1)

	value, err := p.invoke(task)
	if err != nil {
		d.Reject(err)
		return
	}
	d.Resolve(value)
}

func (p *Pool) invoke(task func() (any, error)) (value any, err error) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("pool task panicked")
			err = errors.Errorf("executor: task panicked: %v", r)
		}
	}()
	return task()
}

// Shutdown stops accepting tasks and waits for queued and running ones.
// If ctx ends first, tasks still waiting for a slot are rejected with
// ErrPoolClosed and the context error is returned once running tasks finish.
func (p *Pool) Shutdown(ctx context.Context) error {
	p.markClosed()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		p.cancel()
		p.logger.Debug().Msg("pool stopped gracefully")
		return nil
	case <-ctx.Done():
		p.logger.Warn().Msg("pool shutdown timed out, rejecting queued tasks")
		p.cancel()
		<-done
		return errors.Wrap(ctx.Err(), "executor: shutdown")
	}
}

// ShutdownNow stops accepting tasks, rejects the ones still waiting for a
// slot and waits for running ones. Running tasks are not interrupted.
func (p *Pool) ShutdownNow() {
	p.markClosed()
	p.cancel()
	p.wg.Wait()
}

// Close is ShutdownNow, for use as an io.Closer.
func (p *Pool) Close() error {
	p.ShutdownNow()
	return nil
}

func (p *Pool) markClosed() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
}
