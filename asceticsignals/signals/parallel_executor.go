package signals

import (
	"context"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/deferred"
	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/option"
)

// ParallelExecutor submits every handler of a group to the pool and blocks
// until all of them completed. Results reach the combiner in completion order.
type ParallelExecutor[T, R any] struct {
	pool   ExecutorService
	logger zerolog.Logger
}

func NewParallelExecutor[T, R any](pool ExecutorService) *ParallelExecutor[T, R] {
	return &ParallelExecutor[T, R]{
		pool:   pool,
		logger: log.With().Str("component", "signals").Logger(),
	}
}

// WithLogger returns a copy of the executor logging to logger.
func (e *ParallelExecutor[T, R]) WithLogger(logger zerolog.Logger) *ParallelExecutor[T, R] {
	return &ParallelExecutor[T, R]{pool: e.pool, logger: logger}
}

// Execute stops awaiting when ctx ends. The interruption is logged, not
// reported to errorHandler, and ctx keeps carrying it. Handlers already
// submitted keep running on the pool.
func (e *ParallelExecutor[T, R]) Execute(
	ctx context.Context,
	handlers []NamedHandler[T, R],
	data T,
	combiner ResponseCombiner[R],
	errorHandler TaskErrorHandler,
) option.Option[R] {
	futures := make([]deferred.Deferred[any], 0, len(handlers))
	for _, h := range handlers {
		h := h
		futures = append(futures, e.pool.Submit(func() (any, error) {
			return execute(ctx, h, data, combiner, errorHandler), nil
		}))
	}

	// Every handler is submitted before the first await.
	for i, f := range futures {
		_, err := f.Await(ctx)
		if err == nil {
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			e.logger.Warn().
				Err(ctxErr).
				Int("pending", len(futures)-i).
				Msg("interrupted while awaiting parallel handlers")
			break
		}
		errorHandler.Handle(&HandlerError{Handler: handlers[i].Name, Err: err})
	}
	return option.Some(combiner.Result())
}
