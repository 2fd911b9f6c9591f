package deferred

import "context"

type Deferred[T any] interface {
	Resolve(T)
	Reject(error)
	Then(func(T) (any, error), func(error) (any, error)) Deferred[any]
	// Done is closed once the deferred is resolved or rejected.
	Done() <-chan struct{}
	// Await blocks until the deferred settles or ctx ends.
	Await(ctx context.Context) (T, error)
}
