package signals

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// SignalImp keeps handler groups ordered by ascending group id. Groups are
// created on first connect and live as long as the signal, even when empty.
// The executor, combiner and error handler are fixed at construction.
type SignalImp[T, R any] struct {
	mu     sync.Mutex
	groups map[int]*HandlerGroup[T, R]
	order  []int

	executor     HandlerExecutor[T, R]
	combiner     ResponseCombiner[R]
	errorHandler TaskErrorHandler
	names        NameGenerator
	logger       zerolog.Logger

	release   func() error
	closeOnce sync.Once
	closeErr  error
}

func NewSignal[T, R any](
	executor HandlerExecutor[T, R],
	combiner ResponseCombiner[R],
	opts ...Option,
) *SignalImp[T, R] {
	return newSignal(executor, combiner, newConfig(opts))
}

func newSignal[T, R any](executor HandlerExecutor[T, R], combiner ResponseCombiner[R], c config) *SignalImp[T, R] {
	return &SignalImp[T, R]{
		groups:       make(map[int]*HandlerGroup[T, R]),
		executor:     executor,
		combiner:     combiner,
		errorHandler: c.errorHandler,
		names:        c.names,
		logger:       c.logger,
	}
}

func (s *SignalImp[T, R]) Connect(handler Handler[T, R]) Signal[T, R] {
	return s.ConnectGroup(DefaultGroup, handler)
}

// ConnectGroup adds handler under a generated name. A nil handler is ignored.
func (s *SignalImp[T, R]) ConnectGroup(groupID int, handler Handler[T, R]) Signal[T, R] {
	if handler == nil {
		s.logger.Warn().Int("group", groupID).Msg("ignoring nil handler")
		return s
	}
	s.add(groupID, NamedHandler[T, R]{Name: s.names(), Handler: handler.WithContext()})
	return s
}

func (s *SignalImp[T, R]) ConnectNamed(name string, handler Handler[T, R]) (Signal[T, R], error) {
	return s.ConnectGroupNamed(DefaultGroup, name, handler)
}

// ConnectGroupNamed fails with ErrInvalidArgument on a blank name or a nil
// handler, leaving the registry untouched.
func (s *SignalImp[T, R]) ConnectGroupNamed(groupID int, name string, handler Handler[T, R]) (Signal[T, R], error) {
	if strings.TrimSpace(name) == "" {
		return s, errors.Wrap(ErrInvalidArgument, "handler name must not be empty")
	}
	if handler == nil {
		return s, errors.Wrapf(ErrInvalidArgument, "handler %q must not be nil", name)
	}
	s.add(groupID, NamedHandler[T, R]{Name: name, Handler: handler.WithContext()})
	return s, nil
}

// ConnectContext adds a handler that receives the dispatch context. It fails
// like ConnectGroupNamed.
func (s *SignalImp[T, R]) ConnectContext(groupID int, name string, handler ContextHandler[T, R]) (Signal[T, R], error) {
	if strings.TrimSpace(name) == "" {
		return s, errors.Wrap(ErrInvalidArgument, "handler name must not be empty")
	}
	if handler == nil {
		return s, errors.Wrapf(ErrInvalidArgument, "handler %q must not be nil", name)
	}
	s.add(groupID, NamedHandler[T, R]{Name: name, Handler: handler})
	return s, nil
}

func (s *SignalImp[T, R]) Disconnect(name string) Signal[T, R] {
	return s.DisconnectGroup(DefaultGroup, name)
}

// DisconnectGroup removes the handlers called name from the group. Unknown
// groups and names are ignored.
func (s *SignalImp[T, R]) DisconnectGroup(groupID int, name string) Signal[T, R] {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[groupID]
	if !ok {
		return s
	}
	group.Handlers = slices.DeleteFunc(group.Handlers, func(h NamedHandler[T, R]) bool {
		return h.Name == name
	})
	return s
}

// Dispatch runs the groups in ascending id order. A group starts only after
// the previous group's executor returned. Handler failures never reach the
// caller.
func (s *SignalImp[T, R]) Dispatch(ctx context.Context, data T) R {
	for _, groupID := range s.Groups() {
		handlers := s.snapshot(groupID)
		groupResult := s.executor.Execute(ctx, handlers, data, s.combiner, s.errorHandler)
		s.logger.Debug().
			Int("group", groupID).
			Int("handlers", len(handlers)).
			Bool("result", groupResult.IsSome()).
			Msg("group dispatched")
		s.combiner.AssimilateGroupResult(groupResult)
	}
	return s.combiner.Result()
}

// Groups returns the ids of all groups ever connected to, ascending.
func (s *SignalImp[T, R]) Groups() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.order)
}

// Handlers returns the handler names of a group in registration order.
func (s *SignalImp[T, R]) Handlers(groupID int) []string {
	handlers := s.snapshot(groupID)
	names := make([]string, 0, len(handlers))
	for _, h := range handlers {
		names = append(names, h.Name)
	}
	return names
}

// Close releases the worker pool created by NewParallelSignal or
// NewFireForgetSignal when no pool was supplied. It is a no-op otherwise.
func (s *SignalImp[T, R]) Close() error {
	s.closeOnce.Do(func() {
		if s.release != nil {
			s.closeErr = s.release()
		}
	})
	return s.closeErr
}

func (s *SignalImp[T, R]) add(groupID int, handler NamedHandler[T, R]) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[groupID]
	if !ok {
		group = &HandlerGroup[T, R]{ID: groupID}
		s.groups[groupID] = group
		pos, _ := slices.BinarySearch(s.order, groupID)
		s.order = slices.Insert(s.order, pos, groupID)
	}
	group.Handlers = append(group.Handlers, handler)
}

func (s *SignalImp[T, R]) snapshot(groupID int) []NamedHandler[T, R] {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.groups[groupID]
	if !ok {
		return nil
	}
	return slices.Clone(group.Handlers)
}
