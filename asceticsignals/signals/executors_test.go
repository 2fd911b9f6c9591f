package signals

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/deferred"
	"github.com/krew-solutions/ascetic-signals-go/asceticsignals/executor"
)

func newPool(t *testing.T, size int) *executor.Pool {
	p := executor.NewPool(size, executor.WithPoolLogger(zerolog.Nop()))
	t.Cleanup(p.ShutdownNow)
	return p
}

func handlers[T, R any](fns ...Handler[T, R]) []NamedHandler[T, R] {
	result := make([]NamedHandler[T, R], 0, len(fns))
	for _, fn := range fns {
		result = append(result, NamedHandler[T, R]{Name: UUIDNames(), Handler: fn.WithContext()})
	}
	return result
}

func TestSameThreadExecutor_RunsInOrderAndReturnsCombined(t *testing.T) {
	e := NewSameThreadExecutor[string, string]()
	combiner := NewReducingCombiner("", concat)

	result := e.Execute(bg, handlers(
		func(v string) (string, error) { return v + "1", nil },
		func(v string) (string, error) { return "", errors.New("skipped") },
		func(v string) (string, error) { return v + "2", nil },
	), "x", combiner, TaskErrorHandlerFunc(func(error) {}))

	assert.Equal(t, "x1x2", result.Unwrap())
}

func TestSameThreadExecutor_EmptyGroup(t *testing.T) {
	e := NewSameThreadExecutor[int, int]()

	result := e.Execute(bg, nil, 1, NewLastValueResponseCombinerFrom(9), &countingErrorHandler{})

	assert.Equal(t, 9, result.Unwrap())
}

func TestParallelExecutor_Sum(t *testing.T) {
	e := NewParallelExecutor[int, struct{}](newPool(t, 1))
	var total atomic.Int64

	for i := 1; i <= 10; i++ {
		e.Execute(bg, handlers(Consume(func(v int) error {
			total.Add(int64(v))
			return nil
		})), i, NewNoOpCombiner(), &countingErrorHandler{})
	}

	assert.Equal(t, int64(55), total.Load())
}

func TestParallelExecutor_ErrorsReachErrorHandler(t *testing.T) {
	e := NewParallelExecutor[int, struct{}](newPool(t, 1))
	errorHandler := &countingErrorHandler{}

	for i := 1; i <= 10; i++ {
		e.Execute(bg, handlers(Consume(func(v int) error {
			if v%2 == 0 {
				return errors.New("even")
			}
			return nil
		})), i, NewNoOpCombiner(), errorHandler)
	}

	assert.Equal(t, int32(5), errorHandler.count.Load())
}

func TestParallelExecutor_RunsHandlersConcurrently(t *testing.T) {
	const n = 8
	const sleep = 100 * time.Millisecond
	s := NewParallelSignal[int, int](newPool(t, n), NewReducingCombiner(0, sum), quiet)
	for i := 0; i < n; i++ {
		s.Connect(func(v int) (int, error) {
			time.Sleep(sleep)
			return v, nil
		})
	}

	start := time.Now()
	result := s.Dispatch(bg, 1)
	elapsed := time.Since(start)

	assert.Equal(t, n, result)
	assert.GreaterOrEqual(t, elapsed, sleep)
	assert.Less(t, elapsed, n*sleep/2)
}

func TestParallelExecutor_SubmitsAllBeforeAwaiting(t *testing.T) {
	const n = 4
	e := NewParallelExecutor[int, int](newPool(t, n))
	var arrived sync.WaitGroup
	arrived.Add(n)
	var met atomic.Int32

	fns := make([]Handler[int, int], 0, n)
	for i := 0; i < n; i++ {
		fns = append(fns, func(v int) (int, error) {
			arrived.Done()
			done := make(chan struct{})
			go func() {
				arrived.Wait()
				close(done)
			}()
			select {
			case <-done:
				met.Add(1)
			case <-time.After(2 * time.Second):
			}
			return v, nil
		})
	}

	e.Execute(bg, handlers(fns...), 1, NewLastValueResponseCombiner[int](), &countingErrorHandler{})

	assert.Equal(t, int32(n), met.Load())
}

func TestParallelExecutor_WaitsForGroupBeforeNextGroup(t *testing.T) {
	combiner := &recordingCombiner[string]{}
	s := NewParallelSignal[string, string](newPool(t, 4), combiner, quiet)
	s.Connect(func(string) (string, error) {
		time.Sleep(50 * time.Millisecond)
		return "slow-0", nil
	}).Connect(func(string) (string, error) {
		return "fast-0", nil
	}).ConnectGroup(1, func(string) (string, error) {
		return "group-1", nil
	})

	s.Dispatch(bg, "x")

	calls := combiner.handlers()
	require.Len(t, calls, 3)
	assert.ElementsMatch(t, []string{"slow-0", "fast-0"}, calls[:2])
	assert.Equal(t, "group-1", calls[2])
}

func TestParallelExecutor_InterruptionIsNotAHandlerError(t *testing.T) {
	e := NewParallelExecutor[int, int](newPool(t, 2)).WithLogger(zerolog.Nop())
	errorHandler := &countingErrorHandler{}
	release := make(chan struct{})
	defer close(release)
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	start := time.Now()
	result := e.Execute(ctx, handlers(func(v int) (int, error) {
		<-release
		return v, nil
	}), 1, NewLastValueResponseCombinerFrom(-1), errorHandler)

	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, -1, result.Unwrap())
	assert.Equal(t, int32(0), errorHandler.count.Load())
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}

type rejectingPool struct {
	err error
}

func (p rejectingPool) Submit(func() (any, error)) deferred.Deferred[any] {
	return deferred.Rejected[any](p.err)
}

func TestParallelExecutor_RejectedSubmissionReachesErrorHandler(t *testing.T) {
	collector := NewCollectingTaskErrorHandler()
	e := NewParallelExecutor[int, int](rejectingPool{err: executor.ErrPoolClosed})

	e.Execute(bg, handlers(
		func(v int) (int, error) { return v, nil },
		func(v int) (int, error) { return v, nil },
	), 1, NewLastValueResponseCombiner[int](), collector)

	assert.Equal(t, 2, collector.Len())
	assert.ErrorIs(t, collector.Err(), executor.ErrPoolClosed)
}

func TestFireForgetExecutor_ReturnsNothingImmediately(t *testing.T) {
	e := NewFireForgetExecutor[int, int](newPool(t, 2))
	release := make(chan struct{})
	var ran atomic.Int32

	start := time.Now()
	result := e.Execute(bg, handlers(func(v int) (int, error) {
		<-release
		ran.Add(1)
		return v, nil
	}), 1, NewLastValueResponseCombiner[int](), &countingErrorHandler{})

	assert.True(t, result.IsNothing())
	assert.Less(t, time.Since(start), 50*time.Millisecond)
	assert.Equal(t, int32(0), ran.Load())

	close(release)
	require.Eventually(t, func() bool { return ran.Load() == 1 }, 3*time.Second, 5*time.Millisecond)
}

func TestFireForgetSignal_EventuallyVisible(t *testing.T) {
	s := NewFireForgetSignal[int, struct{}](newPool(t, 2), NewNoOpCombiner(), quiet)
	var total atomic.Int64
	for i := 0; i < 10; i++ {
		s.Connect(Consume(func(v int) error {
			total.Add(int64(v))
			return nil
		}))
	}

	for i := 1; i <= 20; i++ {
		s.Dispatch(bg, i)
	}

	require.Eventually(t, func() bool { return total.Load() == 2100 }, 3*time.Second, 5*time.Millisecond)
}

func TestFireForgetSignal_GroupResultIsNothing(t *testing.T) {
	combiner := &recordingCombiner[int]{}
	s := NewFireForgetSignal[int, int](newPool(t, 1), combiner, quiet)
	s.Connect(func(v int) (int, error) { return v, nil })

	s.Dispatch(bg, 4)

	groups := combiner.groups()
	require.Len(t, groups, 1)
	assert.True(t, groups[0].IsNothing())
	require.Eventually(t, func() bool { return len(combiner.handlers()) == 1 }, 3*time.Second, 5*time.Millisecond)
}

func TestFireForgetExecutor_ErrorsReachErrorHandler(t *testing.T) {
	e := NewFireForgetExecutor[int, int](newPool(t, 2))
	errorHandler := &countingErrorHandler{}

	for i := 1; i <= 10; i++ {
		e.Execute(bg, handlers(func(v int) (int, error) {
			if v%2 == 0 {
				return 0, errors.New("even")
			}
			return v, nil
		}), i, NewLastValueResponseCombiner[int](), errorHandler)
	}

	require.Eventually(t, func() bool { return errorHandler.count.Load() == 5 }, 3*time.Second, 5*time.Millisecond)
}

func TestFireForgetExecutor_RejectedSubmissionReachesErrorHandler(t *testing.T) {
	collector := NewCollectingTaskErrorHandler()
	e := NewFireForgetExecutor[int, int](rejectingPool{err: executor.ErrPoolClosed})

	e.Execute(bg, handlers(func(v int) (int, error) { return v, nil }), 1, NewLastValueResponseCombiner[int](), collector)

	assert.Equal(t, 1, collector.Len())
}

func TestParallelSignal_OwnedPoolIsReleasedOnClose(t *testing.T) {
	s := NewParallelSignal[int, int](nil, NewReducingCombiner(0, sum), quiet)
	for i := 0; i < 10; i++ {
		s.Connect(func(v int) (int, error) { return v, nil })
	}
	assert.Equal(t, 10, s.Dispatch(bg, 1))

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	errorHandler := NewCollectingTaskErrorHandler()
	after := NewParallelSignal[int, int](nil, nil, quiet, WithErrorHandler(errorHandler))
	after.Connect(func(v int) (int, error) { return v, nil })
	require.NoError(t, after.Close())
	after.Dispatch(bg, 1)
	assert.ErrorIs(t, errorHandler.Err(), executor.ErrPoolClosed)
}

func TestGeneratingSignals_SumOfDispatches(t *testing.T) {
	pool := newPool(t, 4)
	variants := map[string]func() *SignalImp[int, int]{
		"sync": func() *SignalImp[int, int] {
			return NewSyncSignal[int, int](NewReducingCombiner(0, sum), quiet)
		},
		"parallel": func() *SignalImp[int, int] {
			return NewParallelSignal[int, int](pool, NewReducingCombiner(0, sum), quiet)
		},
	}
	for name, build := range variants {
		name, build := name, build
		t.Run(name, func(t *testing.T) {
			s := build()
			for i := 0; i < 10; i++ {
				s.Connect(func(x int) (int, error) { return x, nil })
			}
			var last int
			for i := 1; i <= 20; i++ {
				last = s.Dispatch(bg, i)
			}
			assert.Equal(t, 2100, last)
		})
	}
}

func TestParallelExecutor_CancellationReachesContextHandlers(t *testing.T) {
	errorHandler := &countingErrorHandler{}
	s := NewParallelSignal[int, int](newPool(t, 4), nil, quiet, WithErrorHandler(errorHandler))
	var interrupted atomic.Int32
	for i := 0; i < 3; i++ {
		_, err := s.ConnectContext(DefaultGroup, strconv.Itoa(i), func(ctx context.Context, v int) (int, error) {
			select {
			case <-ctx.Done():
				interrupted.Add(1)
				return 0, ctx.Err()
			case <-time.After(5 * time.Second):
				return v, nil
			}
		})
		require.NoError(t, err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	begin := time.Now()
	s.Dispatch(ctx, 1)

	assert.Less(t, time.Since(begin), time.Second)
	require.Eventually(t, func() bool { return interrupted.Load() == 3 }, time.Second, 5*time.Millisecond)
	assert.Zero(t, errorHandler.count.Load())
}

func TestFireForgetExecutor_HandlersOutliveDispatchContext(t *testing.T) {
	s := NewFireForgetSignal[int, struct{}](newPool(t, 2), NewNoOpCombiner(), quiet)
	seen := make(chan error, 1)
	_, err := s.ConnectContext(DefaultGroup, "late", ConsumeContext(func(ctx context.Context, _ int) error {
		time.Sleep(20 * time.Millisecond)
		seen <- ctx.Err()
		return nil
	}))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s.Dispatch(ctx, 1)
	cancel()

	select {
	case err := <-seen:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("handler did not run")
	}
}

func TestParallelSignal_AppliesOptionsOnce(t *testing.T) {
	applied := 0
	counting := Option(func(*config) { applied++ })

	s := NewParallelSignal[int, int](newPool(t, 1), nil, quiet, counting)
	defer s.Close()

	assert.Equal(t, 1, applied)
}
