package signals

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"github.com/pkg/errors"
	cronlib "github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Schedule returns the firing that follows the one planned at t.
// cron.Schedule satisfies it.
type Schedule interface {
	Next(t time.Time) time.Time
}

type fixedRate struct {
	interval time.Duration
}

func (s fixedRate) Next(t time.Time) time.Time {
	return t.Add(s.interval)
}

type scheduleConfig struct {
	initialDelay time.Duration
	errorHandler TaskErrorHandler
	logger       zerolog.Logger
}

// ScheduleOption configures a ScheduledSignal.
type ScheduleOption func(*scheduleConfig)

// WithInitialDelay postpones the first firing.
func WithInitialDelay(d time.Duration) ScheduleOption {
	return func(c *scheduleConfig) { c.initialDelay = d }
}

func WithScheduleErrorHandler(h TaskErrorHandler) ScheduleOption {
	return func(c *scheduleConfig) { c.errorHandler = h }
}

func WithScheduleLogger(logger zerolog.Logger) ScheduleOption {
	return func(c *scheduleConfig) { c.logger = logger }
}

// ScheduledSignal dispatches the current time from a background goroutine.
// Firings never overlap: when one overruns its slot the next starts right
// after it, and missed slots are dropped rather than replayed.
// Handlers run on that goroutine, one firing at a time; Close stops it.
type ScheduledSignal struct {
	*SignalImp[time.Time, struct{}]
	schedule Schedule
	logger   zerolog.Logger

	cancel    context.CancelFunc
	stopped   chan struct{}
	closeOnce sync.Once
}

// NewScheduledSignal fires every interval. A non-positive interval or a
// negative initial delay fail with ErrInvalidArgument.
func NewScheduledSignal(interval time.Duration, opts ...ScheduleOption) (*ScheduledSignal, error) {
	if interval <= 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "interval is needed for building scheduled signal, got %s", interval)
	}
	c := newScheduleConfig(opts)
	if c.initialDelay < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "initial delay must not be negative, got %s", c.initialDelay)
	}
	first := time.Now().Add(c.initialDelay)
	return startScheduledSignal(fixedRate{interval: interval}, first, c), nil
}

// NewCronScheduledSignal fires on a standard five-field cron expression or a
// descriptor such as "@every 1m". The initial delay shifts the point from
// which the first firing is computed.
func NewCronScheduledSignal(expr string, opts ...ScheduleOption) (*ScheduledSignal, error) {
	schedule, err := cronlib.ParseStandard(expr)
	if err != nil {
		return nil, errors.Wrapf(ErrInvalidArgument, "invalid cron expression %q: %v", expr, err)
	}
	c := newScheduleConfig(opts)
	if c.initialDelay < 0 {
		return nil, errors.Wrapf(ErrInvalidArgument, "initial delay must not be negative, got %s", c.initialDelay)
	}
	first := schedule.Next(time.Now().Add(c.initialDelay))
	return startScheduledSignal(schedule, first, c), nil
}

func newScheduleConfig(opts []ScheduleOption) scheduleConfig {
	c := scheduleConfig{
		logger: log.With().Str("component", "scheduled-signal").Logger(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

func startScheduledSignal(schedule Schedule, first time.Time, c scheduleConfig) *ScheduledSignal {
	ctx, cancel := context.WithCancel(context.Background())
	s := &ScheduledSignal{
		SignalImp: NewSignal[time.Time, struct{}](
			NewSameThreadExecutor[time.Time, struct{}](),
			NewNoOpCombiner(),
			WithErrorHandler(c.errorHandler),
			WithLogger(c.logger),
		),
		schedule: schedule,
		logger:   c.logger,
		cancel:   cancel,
		stopped:  make(chan struct{}),
	}
	go s.run(ctx, first)
	return s
}

func (s *ScheduledSignal) run(ctx context.Context, next time.Time) {
	defer close(s.stopped)

	timer := time.NewTimer(time.Until(next))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}
		// Both cases may be ready at once after an overrun.
		if ctx.Err() != nil {
			return
		}

		s.fire(ctx, time.Now())
		if ctx.Err() != nil {
			return
		}

		next = s.schedule.Next(next)
		if now := time.Now(); next.Before(now) {
			next = now
		}
		timer.Reset(time.Until(next))
	}
}

func (s *ScheduledSignal) fire(ctx context.Context, at time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error().
				Interface("panic", r).
				Str("stack", string(debug.Stack())).
				Msg("error calling dispatch")
		}
	}()
	s.Dispatch(ctx, at)
}

// Close stops further firings and cancels the context of an in-flight one.
// Handlers connected with ConnectContext see that cancellation; Close waits
// until the firing returns. It is safe to call twice.
func (s *ScheduledSignal) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		<-s.stopped
	})
	return nil
}
