package pool

import (
	"errors"
	"log/slog"

	"jobpool/internal/metrics"
)

type workerStatus uint8

const (
	workerIdle workerStatus = iota
	workerBusy
	workerStopping
	workerStopped
)

// dispatcher owns all pool bookkeeping. It is the only reader of inbox and
// the only goroutine that touches its fields while running.
type dispatcher struct {
	inbox   chan message
	workers []chan workerMessage
	status  []workerStatus

	pending []Job      // FIFO of jobs waiting for a worker
	idle    []WorkerID // workers with nothing assigned
	stopped int
	state   State

	submitted int64
	completed int64
	failed    int64
	rejected  int64

	logger  *slog.Logger
	metrics *metrics.Metrics
	hooks   Hooks
}

func newDispatcher(inbox chan message, workers []*worker, cfg Config) *dispatcher {
	d := &dispatcher{
		inbox:   inbox,
		workers: make([]chan workerMessage, len(workers)),
		status:  make([]workerStatus, len(workers)),
		idle:    make([]WorkerID, 0, len(workers)),
		state:   StateRunning,
		logger:  cfg.Logger.With("component", "dispatcher"),
		metrics: cfg.Metrics,
		hooks:   cfg.Hooks,
	}
	for i, w := range workers {
		d.workers[i] = w.inbox
		d.idle = append(d.idle, w.id)
	}
	d.metrics.SetPoolGauges(len(d.idle), 0)
	return d
}

// run processes messages until every worker acknowledged its stop, or until
// a protocol violation is detected.
func (d *dispatcher) run() error {
	for msg := range d.inbox {
		var err error
		switch msg.kind {
		case msgNewJob:
			err = d.handleNewJob(msg.job)
		case msgWorkerFinished:
			err = d.handleWorkerFinished(msg.done)
		case msgShutdown:
			err = d.handleShutdown()
		case msgStats:
			msg.reply <- d.snapshot()
		}
		if err != nil {
			d.state = StateTerminated
			return err
		}
		d.metrics.SetPoolGauges(len(d.idle), len(d.pending))
		if d.state == StateTerminated {
			d.logger.Info("dispatcher terminated",
				"completed", d.completed, "failed", d.failed, "rejected", d.rejected)
			return nil
		}
	}
	return errors.New("dispatcher inbox closed")
}

func (d *dispatcher) handleNewJob(job Job) error {
	if d.state != StateRunning {
		d.reject()
		return nil
	}

	d.submitted++
	d.metrics.IncJobsSubmitted()

	if len(d.idle) > 0 {
		w := d.idle[0]
		d.idle = d.idle[1:]
		return d.assign(w, job)
	}
	d.pending = append(d.pending, job)
	return nil
}

func (d *dispatcher) handleWorkerFinished(c Completion) error {
	w := c.Worker
	if w < 0 || int(w) >= len(d.workers) {
		return &InvariantError{Worker: w, Reason: "unknown worker"}
	}

	switch d.status[w] {
	case workerStopping:
		// Stop acknowledgement: the worker has exited its loop.
		d.status[w] = workerStopped
		d.idle = append(d.idle, w)
		d.stopped++
		if d.stopped == len(d.workers) {
			d.state = StateTerminated
		}
		return nil
	case workerBusy:
	default:
		return &InvariantError{Worker: w, Reason: "completion without an assigned job"}
	}

	if c.Err != nil {
		d.failed++
		d.metrics.IncJobsFailed()
		d.logger.Error("job failed", "worker_id", int(w), "error", c.Err)
		if d.hooks.OnFault != nil {
			d.hooks.OnFault(w, c.Err)
		}
	} else {
		d.completed++
		d.metrics.IncJobsCompleted()
	}

	if len(d.pending) > 0 {
		job := d.pending[0]
		d.pending[0] = nil
		d.pending = d.pending[1:]
		return d.assign(w, job)
	}
	if d.state == StateDraining {
		return d.stop(w)
	}
	d.status[w] = workerIdle
	d.idle = append(d.idle, w)
	return nil
}

func (d *dispatcher) handleShutdown() error {
	if d.state != StateRunning {
		return nil
	}
	d.state = StateDraining
	d.logger.Info("shutdown requested", "pending", len(d.pending), "idle", len(d.idle))

	// Busy workers are stopped once they finish and the queue is empty.
	idle := d.idle
	d.idle = make([]WorkerID, 0, len(d.workers))
	for _, w := range idle {
		if err := d.stop(w); err != nil {
			return err
		}
	}
	return nil
}

func (d *dispatcher) assign(w WorkerID, job Job) error {
	if s := d.status[w]; s == workerStopping || s == workerStopped {
		return &InvariantError{Worker: w, Reason: "job assigned after stop"}
	}
	if err := d.send(w, workerMessage{job: job}); err != nil {
		return err
	}
	d.status[w] = workerBusy
	return nil
}

func (d *dispatcher) stop(w WorkerID) error {
	if err := d.send(w, workerMessage{stop: true}); err != nil {
		return err
	}
	d.status[w] = workerStopping
	return nil
}

// send never blocks: a worker's channel holds one message and the dispatcher
// only writes to it when nothing is outstanding.
func (d *dispatcher) send(w WorkerID, msg workerMessage) error {
	select {
	case d.workers[w] <- msg:
		return nil
	default:
		return &InvariantError{Worker: w, Reason: "worker channel already holds a message"}
	}
}

func (d *dispatcher) reject() {
	d.rejected++
	d.metrics.IncJobsRejected()
	d.logger.Warn("job rejected", "state", d.state.String())
	if d.hooks.OnReject != nil {
		d.hooks.OnReject()
	}
}

// drain rejects whatever is left in the inbox after termination.
func (d *dispatcher) drain(final Stats) {
	for {
		select {
		case msg := <-d.inbox:
			switch msg.kind {
			case msgNewJob:
				d.reject()
			case msgStats:
				msg.reply <- final
			}
		default:
			return
		}
	}
}

func (d *dispatcher) snapshot() Stats {
	busy := 0
	for _, s := range d.status {
		if s == workerBusy {
			busy++
		}
	}
	return Stats{
		State:     d.state,
		Workers:   len(d.workers),
		Idle:      len(d.idle),
		Busy:      busy,
		Pending:   len(d.pending),
		Submitted: d.submitted,
		Completed: d.completed,
		Failed:    d.failed,
		Rejected:  d.rejected,
	}
}
