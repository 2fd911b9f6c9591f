package signals

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/option"
)

var quiet = WithLogger(zerolog.Nop())

// recordingCombiner records every assimilate call, in call order.
type recordingCombiner[R any] struct {
	mu           sync.Mutex
	handlerCalls []R
	groupCalls   []option.Option[R]
	last         R
}

func (c *recordingCombiner[R]) AssimilateHandlerResult(data R) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlerCalls = append(c.handlerCalls, data)
	c.last = data
}

func (c *recordingCombiner[R]) AssimilateGroupResult(data option.Option[R]) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groupCalls = append(c.groupCalls, data)
}

func (c *recordingCombiner[R]) Result() R {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.last
}

func (c *recordingCombiner[R]) handlers() []R {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]R(nil), c.handlerCalls...)
}

func (c *recordingCombiner[R]) groups() []option.Option[R] {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]option.Option[R](nil), c.groupCalls...)
}

type countingErrorHandler struct {
	count atomic.Int32
}

func (h *countingErrorHandler) Handle(error) {
	h.count.Add(1)
}

func concat(acc, v string) string { return acc + v }

func sum(acc, v int) int { return acc + v }

var bg = context.Background()
