package signals

import (
	"sync"

	"github.com/hashicorp/go-multierror"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

// LoggingTaskErrorHandler logs and suppresses handler errors.
type LoggingTaskErrorHandler struct {
	logger zerolog.Logger
}

func NewLoggingTaskErrorHandler(logger zerolog.Logger) *LoggingTaskErrorHandler {
	return &LoggingTaskErrorHandler{logger: logger}
}

func (h *LoggingTaskErrorHandler) Handle(err error) {
	event := h.logger.Error().Err(err)
	var handlerErr *HandlerError
	if errors.As(err, &handlerErr) {
		event = event.Str("handler", handlerErr.Handler)
	}
	event.Msg("task error")
}

// CollectingTaskErrorHandler accumulates handler errors. Safe for
// concurrent use.
type CollectingTaskErrorHandler struct {
	mu   sync.Mutex
	errs *multierror.Error
}

func NewCollectingTaskErrorHandler() *CollectingTaskErrorHandler {
	return &CollectingTaskErrorHandler{}
}

func (h *CollectingTaskErrorHandler) Handle(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.errs = multierror.Append(h.errs, err)
}

// Err returns every collected error as one, or nil.
func (h *CollectingTaskErrorHandler) Err() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.errs.ErrorOrNil()
}

func (h *CollectingTaskErrorHandler) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.errs == nil {
		return 0
	}
	return len(h.errs.Errors)
}

// CompositeTaskErrorHandler forwards every error to all delegates, in order.
type CompositeTaskErrorHandler struct {
	delegates []TaskErrorHandler
}

func NewCompositeTaskErrorHandler(delegates ...TaskErrorHandler) *CompositeTaskErrorHandler {
	return &CompositeTaskErrorHandler{delegates: delegates}
}

func (h *CompositeTaskErrorHandler) Handle(err error) {
	for _, delegate := range h.delegates {
		delegate.Handle(err)
	}
}
