package signals

import (
	"context"

	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/option"
)

// SameThreadExecutor runs handlers one by one on the dispatching goroutine,
// in registration order.
type SameThreadExecutor[T, R any] struct{}

func NewSameThreadExecutor[T, R any]() *SameThreadExecutor[T, R] {
	return &SameThreadExecutor[T, R]{}
}

func (e *SameThreadExecutor[T, R]) Execute(
	ctx context.Context,
	handlers []NamedHandler[T, R],
	data T,
	combiner ResponseCombiner[R],
	errorHandler TaskErrorHandler,
) option.Option[R] {
	for _, h := range handlers {
		execute(ctx, h, data, combiner, errorHandler)
	}
	return option.Some(combiner.Result())
}
