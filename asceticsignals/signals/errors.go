package signals

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrInvalidArgument = errors.New("signals: invalid argument")

// HandlerError wraps a failure of a single handler invocation.
type HandlerError struct {
	Handler string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("signals: handler %q failed: %v", e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error {
	return e.Err
}
