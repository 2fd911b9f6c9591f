// Package signals dispatches a typed payload to ordered groups of handlers.
// How a group's handlers run is decided by a HandlerExecutor, their results
// are merged by a ResponseCombiner and their failures go to a TaskErrorHandler.
package signals

import (
	"context"

	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/deferred"
	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/option"
)

// DefaultGroup is the group used by Connect, ConnectNamed and Disconnect.
const DefaultGroup = 0

// Handler is invoked with the dispatched payload. A returned error or a panic
// is routed to the signal's TaskErrorHandler.
type Handler[T, R any] func(data T) (R, error)

// ContextHandler also receives the dispatch context and should return once it
// ends. Returning the context's error then counts as an interruption and is
// not routed to the TaskErrorHandler.
type ContextHandler[T, R any] func(ctx context.Context, data T) (R, error)

// WithContext lifts h to a ContextHandler that ignores the context.
func (h Handler[T, R]) WithContext() ContextHandler[T, R] {
	return func(_ context.Context, data T) (R, error) {
		return h(data)
	}
}

type NamedHandler[T, R any] struct {
	Name    string
	Handler ContextHandler[T, R]
}

type HandlerGroup[T, R any] struct {
	ID       int
	Handlers []NamedHandler[T, R]
}

type Signal[T, R any] interface {
	Connect(handler Handler[T, R]) Signal[T, R]
	ConnectGroup(groupID int, handler Handler[T, R]) Signal[T, R]
	ConnectNamed(name string, handler Handler[T, R]) (Signal[T, R], error)
	ConnectGroupNamed(groupID int, name string, handler Handler[T, R]) (Signal[T, R], error)
	ConnectContext(groupID int, name string, handler ContextHandler[T, R]) (Signal[T, R], error)
	Disconnect(name string) Signal[T, R]
	DisconnectGroup(groupID int, name string) Signal[T, R]
	Dispatch(ctx context.Context, data T) R
}

// ResponseCombiner merges handler and group results into the value returned
// by Dispatch. With concurrent executors the assimilate methods are called
// from several goroutines at once and must synchronize their own state.
type ResponseCombiner[R any] interface {
	// AssimilateHandlerResult is called once per successful handler call.
	AssimilateHandlerResult(data R)
	// AssimilateGroupResult is called once per group, after the group's
	// executor returned. Fire-and-forget groups report Nothing.
	AssimilateGroupResult(data option.Option[R])
	// Result must not mutate the combiner.
	Result() R
}

// ResponseCombinerBase is embedded by combiners that ignore group results.
type ResponseCombinerBase[R any] struct{}

func (ResponseCombinerBase[R]) AssimilateGroupResult(option.Option[R]) {}

// TaskErrorHandler receives every error returned or panicked by a handler,
// exactly once per failed call. Implementations must not panic.
type TaskErrorHandler interface {
	Handle(err error)
}

type TaskErrorHandlerFunc func(err error)

func (f TaskErrorHandlerFunc) Handle(err error) { f(err) }

// HandlerExecutor runs one group of handlers against one payload.
type HandlerExecutor[T, R any] interface {
	Execute(
		ctx context.Context,
		handlers []NamedHandler[T, R],
		data T,
		combiner ResponseCombiner[R],
		errorHandler TaskErrorHandler,
	) option.Option[R]
}

// ExecutorService is the worker pool used by the concurrent executors.
// *executor.Pool satisfies it.
type ExecutorService interface {
	Submit(task func() (any, error)) deferred.Deferred[any]
}
