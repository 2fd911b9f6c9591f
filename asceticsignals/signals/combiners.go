package signals

import "sync"

// LastValueResponseCombiner keeps the value of the last handler that
// completed. It is the default combiner of generating signals.
type LastValueResponseCombiner[R any] struct {
	ResponseCombinerBase[R]
	mu      sync.Mutex
	current R
}

func NewLastValueResponseCombiner[R any]() *LastValueResponseCombiner[R] {
	return &LastValueResponseCombiner[R]{}
}

// NewLastValueResponseCombinerFrom starts from initial until a handler completes.
func NewLastValueResponseCombinerFrom[R any](initial R) *LastValueResponseCombiner[R] {
	return &LastValueResponseCombiner[R]{current: initial}
}

func (c *LastValueResponseCombiner[R]) AssimilateHandlerResult(data R) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = data
}

func (c *LastValueResponseCombiner[R]) Result() R {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// NoOpCombiner is used by consuming signals whose handlers produce nothing.
type NoOpCombiner struct {
	ResponseCombinerBase[struct{}]
}

func NewNoOpCombiner() *NoOpCombiner {
	return &NoOpCombiner{}
}

func (*NoOpCombiner) AssimilateHandlerResult(struct{}) {}

func (*NoOpCombiner) Result() struct{} { return struct{}{} }

// ReducingCombiner folds every handler result into an accumulator, e.g. a sum
// or a concatenation. The accumulator is never reset between dispatches.
type ReducingCombiner[R any] struct {
	ResponseCombinerBase[R]
	mu      sync.Mutex
	acc     R
	reducer func(acc, value R) R
}

func NewReducingCombiner[R any](initial R, reducer func(acc, value R) R) *ReducingCombiner[R] {
	return &ReducingCombiner[R]{acc: initial, reducer: reducer}
}

func (c *ReducingCombiner[R]) AssimilateHandlerResult(data R) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.acc = c.reducer(c.acc, data)
}

func (c *ReducingCombiner[R]) Result() R {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acc
}
