package pool

// Job is a unit of work. It is executed exactly once, by exactly one worker.
type Job func()

// WorkerID identifies a worker for the lifetime of its pool. It indexes the
// dispatcher's per-worker channels.
type WorkerID int

// Completion is what a worker reports after it is done with a message.
// Err is non-nil when the job faulted.
type Completion struct {
	Worker WorkerID
	Err    error
}

type messageKind uint8

const (
	msgNewJob messageKind = iota
	msgWorkerFinished
	msgShutdown
	msgStats
)

func (k messageKind) String() string {
	switch k {
	case msgNewJob:
		return "new_job"
	case msgWorkerFinished:
		return "worker_finished"
	case msgShutdown:
		return "shutdown_requested"
	case msgStats:
		return "stats"
	default:
		return "unknown"
	}
}

// message is the only type carried by the dispatcher inbox. Submitters and
// workers both write to it.
type message struct {
	kind  messageKind
	job   Job
	done  Completion
	reply chan<- Stats
}

// workerMessage is sent from the dispatcher to a single worker: either a job
// to run or a stop request.
type workerMessage struct {
	job  Job
	stop bool
}
