package pool

import (
	"errors"
	"log/slog"
	"testing"
)

// newTestDispatcher builds a dispatcher whose workers are plain channels, so
// transitions can be driven one message at a time.
func newTestDispatcher(t *testing.T, size int) *dispatcher {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Logger = slog.New(slog.DiscardHandler)
	inbox := make(chan message, 16)
	workers := make([]*worker, size)
	for i := range workers {
		workers[i] = newWorker(WorkerID(i), inbox, cfg)
	}
	return newDispatcher(inbox, workers, cfg)
}

func (d *dispatcher) mustHandle(t *testing.T, msg message) {
	t.Helper()
	var err error
	switch msg.kind {
	case msgNewJob:
		err = d.handleNewJob(msg.job)
	case msgWorkerFinished:
		err = d.handleWorkerFinished(msg.done)
	case msgShutdown:
		err = d.handleShutdown()
	}
	if err != nil {
		t.Fatalf("handling %s: %v", msg.kind, err)
	}
}

func receive(t *testing.T, d *dispatcher, w WorkerID) workerMessage {
	t.Helper()
	select {
	case msg := <-d.workers[w]:
		return msg
	default:
		t.Fatalf("expected a message for worker %d", w)
		return workerMessage{}
	}
}

func expectEmpty(t *testing.T, d *dispatcher, w WorkerID) {
	t.Helper()
	select {
	case msg := <-d.workers[w]:
		t.Fatalf("unexpected message for worker %d: %+v", w, msg)
	default:
	}
}

func TestDispatcherAssignsEagerly(t *testing.T) {
	d := newTestDispatcher(t, 2)

	d.mustHandle(t, message{kind: msgNewJob, job: func() {}})
	d.mustHandle(t, message{kind: msgNewJob, job: func() {}})
	d.mustHandle(t, message{kind: msgNewJob, job: func() {}})

	if len(d.idle) != 0 || len(d.pending) != 1 {
		t.Fatalf("expected 0 idle and 1 pending, got %d idle and %d pending", len(d.idle), len(d.pending))
	}
	receive(t, d, 0)
	receive(t, d, 1)

	// A finished worker takes the queued job instead of going idle.
	d.mustHandle(t, message{kind: msgWorkerFinished, done: Completion{Worker: 1}})
	if len(d.pending) != 0 || len(d.idle) != 0 {
		t.Fatalf("expected queue handed to worker 1, got %d idle and %d pending", len(d.idle), len(d.pending))
	}
	if msg := receive(t, d, 1); msg.job == nil {
		t.Error("expected worker 1 to receive a job")
	}

	d.mustHandle(t, message{kind: msgWorkerFinished, done: Completion{Worker: 0}})
	if len(d.idle) != 1 || d.idle[0] != 0 {
		t.Errorf("expected worker 0 idle, got %v", d.idle)
	}
}

func TestDispatcherNeverSendsJobAfterStop(t *testing.T) {
	d := newTestDispatcher(t, 2)

	// Worker 0 busy, worker 1 idle.
	d.mustHandle(t, message{kind: msgNewJob, job: func() {}})
	receive(t, d, 0)

	d.mustHandle(t, message{kind: msgShutdown})
	if d.state != StateDraining {
		t.Fatalf("expected draining, got %s", d.state)
	}
	if msg := receive(t, d, 1); !msg.stop {
		t.Error("expected idle worker 1 to be stopped")
	}
	expectEmpty(t, d, 0)

	// Worker 0 finishes with an empty queue and is stopped.
	d.mustHandle(t, message{kind: msgWorkerFinished, done: Completion{Worker: 0}})
	if msg := receive(t, d, 0); !msg.stop {
		t.Error("expected worker 0 to be stopped after finishing")
	}

	d.mustHandle(t, message{kind: msgWorkerFinished, done: Completion{Worker: 1}})
	if d.state != StateDraining {
		t.Fatalf("expected draining until every worker acknowledged, got %s", d.state)
	}
	d.mustHandle(t, message{kind: msgWorkerFinished, done: Completion{Worker: 0}})
	if d.state != StateTerminated {
		t.Fatalf("expected terminated, got %s", d.state)
	}
	if len(d.idle) != 2 {
		t.Errorf("expected all workers idle, got %v", d.idle)
	}
}

func TestDispatcherDrainsQueueBeforeStopping(t *testing.T) {
	d := newTestDispatcher(t, 1)

	d.mustHandle(t, message{kind: msgNewJob, job: func() {}})
	d.mustHandle(t, message{kind: msgNewJob, job: func() {}})
	receive(t, d, 0)

	d.mustHandle(t, message{kind: msgShutdown})
	expectEmpty(t, d, 0)

	d.mustHandle(t, message{kind: msgNewJob, job: func() {}})
	if d.rejected != 1 || len(d.pending) != 1 {
		t.Fatalf("expected 1 rejected and 1 pending, got %d and %d", d.rejected, len(d.pending))
	}

	d.mustHandle(t, message{kind: msgWorkerFinished, done: Completion{Worker: 0}})
	if msg := receive(t, d, 0); msg.job == nil {
		t.Fatal("expected the queued job to be dispatched while draining")
	}
	d.mustHandle(t, message{kind: msgWorkerFinished, done: Completion{Worker: 0}})
	if msg := receive(t, d, 0); !msg.stop {
		t.Fatal("expected a stop once the queue is empty")
	}
	d.mustHandle(t, message{kind: msgWorkerFinished, done: Completion{Worker: 0}})
	if d.state != StateTerminated {
		t.Errorf("expected terminated, got %s", d.state)
	}
	if d.completed != 2 {
		t.Errorf("expected 2 completed, got %d", d.completed)
	}
}

func TestDispatcherCountsFaults(t *testing.T) {
	d := newTestDispatcher(t, 1)

	d.mustHandle(t, message{kind: msgNewJob, job: func() {}})
	receive(t, d, 0)
	d.mustHandle(t, message{kind: msgWorkerFinished, done: Completion{Worker: 0, Err: &PanicError{Value: "x"}}})

	if d.failed != 1 || d.completed != 0 {
		t.Errorf("expected 1 failed and 0 completed, got %d and %d", d.failed, d.completed)
	}
	if len(d.idle) != 1 {
		t.Errorf("expected the faulted worker back in the idle set, got %v", d.idle)
	}
}

func TestDispatcherRejectsProtocolViolations(t *testing.T) {
	t.Run("CompletionFromStoppedWorker", func(t *testing.T) {
		d := newTestDispatcher(t, 1)
		d.mustHandle(t, message{kind: msgShutdown})
		receive(t, d, 0)
		d.mustHandle(t, message{kind: msgWorkerFinished, done: Completion{Worker: 0}})

		// Terminated already; a second acknowledgement is a violation.
		err := d.handleWorkerFinished(Completion{Worker: 0})
		var invErr *InvariantError
		if !errors.As(err, &invErr) {
			t.Fatalf("expected *InvariantError, got %v", err)
		}
	})

	t.Run("FullWorkerChannel", func(t *testing.T) {
		d := newTestDispatcher(t, 1)
		d.workers[0] <- workerMessage{stop: true}

		err := d.handleNewJob(func() {})
		var invErr *InvariantError
		if !errors.As(err, &invErr) {
			t.Fatalf("expected *InvariantError, got %v", err)
		}
	})
}

func TestDispatcherSnapshot(t *testing.T) {
	d := newTestDispatcher(t, 3)
	d.mustHandle(t, message{kind: msgNewJob, job: func() {}})

	s := d.snapshot()
	if s.Workers != 3 || s.Idle != 2 || s.Busy != 1 || s.Submitted != 1 {
		t.Errorf("unexpected snapshot %+v", s)
	}
}
