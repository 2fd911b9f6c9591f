package signals

import (
	"context"

	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/deferred"
	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/option"
)

// FireForgetExecutor submits every handler of a group to the pool and returns
// at once. Handler results still reach the combiner, asynchronously. The group
// result is always Nothing. Handlers see the dispatch context's values but
// not its cancellation, since they outlive the dispatch.
type FireForgetExecutor[T, R any] struct {
	pool ExecutorService
}

func NewFireForgetExecutor[T, R any](pool ExecutorService) *FireForgetExecutor[T, R] {
	return &FireForgetExecutor[T, R]{pool: pool}
}

func (e *FireForgetExecutor[T, R]) Execute(
	ctx context.Context,
	handlers []NamedHandler[T, R],
	data T,
	combiner ResponseCombiner[R],
	errorHandler TaskErrorHandler,
) option.Option[R] {
	detached := context.WithoutCancel(ctx)
	for _, h := range handlers {
		h := h
		f := e.pool.Submit(func() (any, error) {
			return execute(detached, h, data, combiner, errorHandler), nil
		})
		f.Then(deferred.Noop[any, any], func(err error) (any, error) {
			errorHandler.Handle(&HandlerError{Handler: h.Name, Err: err})
			return nil, nil
		})
	}
	return option.Nothing[R]()
}
