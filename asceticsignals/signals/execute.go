package signals

import (
	"context"

	"github.com/pkg/errors"

	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/option"
)

// execute calls one handler. A successful result goes to the combiner, a
// failure goes to the error handler and yields Nothing. A handler that gives
// up because ctx ended was interrupted, not failed, and is not reported.
func execute[T, R any](
	ctx context.Context,
	handler NamedHandler[T, R],
	data T,
	combiner ResponseCombiner[R],
	errorHandler TaskErrorHandler,
) option.Option[R] {
	value, err := invoke(ctx, handler.Handler, data)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return option.Nothing[R]()
		}
		errorHandler.Handle(&HandlerError{Handler: handler.Name, Err: err})
		return option.Nothing[R]()
	}
	combiner.AssimilateHandlerResult(value)
	return option.Some(value)
}

func invoke[T, R any](ctx context.Context, handler ContextHandler[T, R], data T) (value R, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = errors.Errorf("panic: %v", r)
		}
	}()
	return handler(ctx, data)
}
