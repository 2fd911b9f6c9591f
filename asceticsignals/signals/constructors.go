package signals

import (
	"context"
	"runtime"

	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/executor"
)

// Consume adapts a handler without a result for consuming signals.
func Consume[T any](fn func(T) error) Handler[T, struct{}] {
	return func(data T) (struct{}, error) {
		return struct{}{}, fn(data)
	}
}

// ConsumeContext is Consume for handlers that watch the dispatch context.
func ConsumeContext[T any](fn func(context.Context, T) error) ContextHandler[T, struct{}] {
	return func(ctx context.Context, data T) (struct{}, error) {
		return struct{}{}, fn(ctx, data)
	}
}

// NewSyncSignal runs handlers on the dispatching goroutine. A nil combiner
// means LastValueResponseCombiner.
func NewSyncSignal[T, R any](combiner ResponseCombiner[R], opts ...Option) *SignalImp[T, R] {
	return NewSignal[T, R](NewSameThreadExecutor[T, R](), orLastValue(combiner), opts...)
}

// NewParallelSignal runs each group's handlers concurrently on pool and waits
// for them. With a nil pool the signal owns a pool of runtime.NumCPU()
// workers, released by Close.
func NewParallelSignal[T, R any](pool ExecutorService, combiner ResponseCombiner[R], opts ...Option) *SignalImp[T, R] {
	pool, release := orOwnedPool(pool)
	c := newConfig(opts)
	s := newSignal[T, R](NewParallelExecutor[T, R](pool).WithLogger(c.logger), orLastValue(combiner), c)
	s.release = release
	return s
}

// NewFireForgetSignal submits handlers to pool without waiting. With a nil
// pool the signal owns a pool of runtime.NumCPU() workers, released by Close.
func NewFireForgetSignal[T, R any](pool ExecutorService, combiner ResponseCombiner[R], opts ...Option) *SignalImp[T, R] {
	pool, release := orOwnedPool(pool)
	s := NewSignal[T, R](NewFireForgetExecutor[T, R](pool), orLastValue(combiner), opts...)
	s.release = release
	return s
}

func orLastValue[R any](combiner ResponseCombiner[R]) ResponseCombiner[R] {
	if combiner == nil {
		return NewLastValueResponseCombiner[R]()
	}
	return combiner
}

func orOwnedPool(pool ExecutorService) (ExecutorService, func() error) {
	if pool != nil {
		return pool, nil
	}
	owned := executor.NewPool(runtime.NumCPU())
	return owned, func() error {
		return owned.Shutdown(context.Background())
	}
}
