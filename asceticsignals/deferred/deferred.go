package deferred

import (
	"context"
	"sync"

	"github.com/pkg/errors"
)

/**
* Settle-once, goroutine-safe variant of
* - https://github.com/emacsway/store/blob/devel/polyfill.js#L199
* - https://github.com/emacsway/go-promise
*
* See also:
* - https://promisesaplus.com/
**/

func Noop[T, R any](_ T) (R, error) {
	var zero R
	return zero, nil
}

type nextDeferred interface {
	resolveAny(any)
	rejectAny(error)
}

type handler[T any] struct {
	onSuccess func(T) (any, error)
	onError   func(error) (any, error)
	next      nextDeferred
}

// DeferredImp is usable as a zero value. The first Resolve or Reject wins,
// later calls are ignored. Callbacks run outside the internal lock, on the
// goroutine that settles the deferred or, when already settled, on the
// goroutine that registers them.
type DeferredImp[T any] struct {
	mu         sync.Mutex
	done       chan struct{}
	value      T
	err        error
	isResolved bool
	isRejected bool
	handlers   []handler[T]
}

func New[T any]() *DeferredImp[T] {
	return &DeferredImp[T]{done: make(chan struct{})}
}

// Rejected returns a deferred that is already rejected with err.
func Rejected[T any](err error) *DeferredImp[T] {
	d := New[T]()
	d.Reject(err)
	return d
}

func (d *DeferredImp[T]) doneLocked() chan struct{} {
	if d.done == nil {
		d.done = make(chan struct{})
	}
	return d.done
}

func (d *DeferredImp[T]) settledLocked() bool {
	return d.isResolved || d.isRejected
}

func (d *DeferredImp[T]) resolveAny(v any) {
	var t T
	if v != nil {
		t = v.(T)
	}
	d.Resolve(t)
}

func (d *DeferredImp[T]) rejectAny(err error) {
	d.Reject(err)
}

func (d *DeferredImp[T]) Resolve(value T) {
	d.mu.Lock()
	if d.settledLocked() {
		d.mu.Unlock()
		return
	}
	d.value = value
	d.isResolved = true
	close(d.doneLocked())
	handlers := append([]handler[T](nil), d.handlers...)
	d.mu.Unlock()

	for _, h := range handlers {
		d.resolveHandler(h)
	}
}

func (d *DeferredImp[T]) Reject(err error) {
	d.mu.Lock()
	if d.settledLocked() {
		d.mu.Unlock()
		return
	}
	d.err = err
	d.isRejected = true
	close(d.doneLocked())
	handlers := append([]handler[T](nil), d.handlers...)
	d.mu.Unlock()

	for _, h := range handlers {
		d.rejectHandler(h)
	}
}

func (d *DeferredImp[T]) addHandler(h handler[T]) {
	d.mu.Lock()
	d.handlers = append(d.handlers, h)
	isResolved, isRejected := d.isResolved, d.isRejected
	d.mu.Unlock()

	if isResolved {
		d.resolveHandler(h)
	} else if isRejected {
		d.rejectHandler(h)
	}
}

func (d *DeferredImp[T]) Then(onSuccess func(T) (any, error), onError func(error) (any, error)) Deferred[any] {
	next := New[any]()
	d.addHandler(handler[T]{
		onSuccess: onSuccess,
		onError:   onError,
		next:      next,
	})
	return next
}

func (d *DeferredImp[T]) resolveHandler(h handler[T]) {
	d.mu.Lock()
	value := d.value
	d.mu.Unlock()

	result, err := h.onSuccess(value)
	if err == nil {
		h.next.resolveAny(result)
	} else {
		h.next.rejectAny(err)
	}
}

func (d *DeferredImp[T]) rejectHandler(h handler[T]) {
	d.mu.Lock()
	cause := d.err
	d.mu.Unlock()

	result, err := h.onError(cause)
	if err == nil {
		h.next.resolveAny(result)
	} else {
		h.next.rejectAny(err)
	}
}

func (d *DeferredImp[T]) Done() <-chan struct{} {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.doneLocked()
}

// Await returns the settled value or rejection error. When ctx ends first the
// returned error wraps ctx.Err(), so errors.Is(err, context.Canceled) holds.
// A deferred settled before the call wins over an ended ctx.
func (d *DeferredImp[T]) Await(ctx context.Context) (T, error) {
	done := d.Done()
	select {
	case <-done:
	default:
		select {
		case <-done:
		case <-ctx.Done():
			var zero T
			return zero, errors.Wrap(ctx.Err(), "deferred: await interrupted")
		}
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.isRejected {
		var zero T
		return zero, d.err
	}
	return d.value, nil
}
