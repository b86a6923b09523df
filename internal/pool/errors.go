package pool

import (
	"errors"
	"fmt"
)

// Errors returned by the pool.
var (
	ErrPoolClosed      = errors.New("pool is closed")
	ErrInvalidPoolSize = errors.New("invalid pool size")
	ErrNilJob          = errors.New("nil job")
)

// PanicError wraps a value recovered from a panicking job and its stack trace.
type PanicError struct {
	Value any
	Stack string
}

func (p *PanicError) Error() string {
	return fmt.Sprintf("job panicked: %v", p.Value)
}

// InvariantError reports a message that the dispatcher protocol forbids, such
// as a completion from a worker that had nothing assigned. It stops the
// dispatcher and is returned by Wait.
type InvariantError struct {
	Worker WorkerID
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("dispatcher invariant violated by worker %d: %s", e.Worker, e.Reason)
}
