package signals

import (
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

type config struct {
	errorHandler TaskErrorHandler
	names        NameGenerator
	logger       zerolog.Logger
}

// Option configures a signal at construction time.
type Option func(*config)

// WithErrorHandler replaces the default LoggingTaskErrorHandler.
func WithErrorHandler(h TaskErrorHandler) Option {
	return func(c *config) {
		if h != nil {
			c.errorHandler = h
		}
	}
}

// WithLogger sets the logger of the signal and of its default error handler.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *config) { c.logger = logger }
}

// WithNameGenerator sets the generator of names for unnamed handlers.
func WithNameGenerator(g NameGenerator) Option {
	return func(c *config) {
		if g != nil {
			c.names = g
		}
	}
}

func newConfig(opts []Option) config {
	c := config{
		names:  UUIDNames,
		logger: log.With().Str("component", "signals").Logger(),
	}
	for _, opt := range opts {
		opt(&c)
	}
	if c.errorHandler == nil {
		c.errorHandler = NewLoggingTaskErrorHandler(c.logger)
	}
	return c
}
