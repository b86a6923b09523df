package pool

// State is the lifecycle state of the dispatcher.
type State int32

const (
	StateRunning State = iota
	StateDraining
	StateTerminated
)

func (s State) String() string {
	switch s {
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// MarshalText renders the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Stats is a snapshot of the dispatcher bookkeeping.
type Stats struct {
	State     State `json:"state"`
	Workers   int   `json:"workers"`
	Idle      int   `json:"idle"`
	Busy      int   `json:"busy"`
	Pending   int   `json:"pending"`
	Submitted int64 `json:"submitted"` // Jobs accepted for scheduling
	Completed int64 `json:"completed"` // Jobs that returned normally
	Failed    int64 `json:"failed"`    // Jobs that panicked
	Rejected  int64 `json:"rejected"`  // Jobs refused while draining
}
