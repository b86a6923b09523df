package pool

import (
	"context"
	"log/slog"
	"sync"
)

// Pool is the handle used to submit jobs and to request shutdown. It keeps no
// scheduling state of its own: everything is forwarded to the dispatcher.
type Pool struct {
	size   int
	inbox  chan message
	done   chan struct{}
	logger *slog.Logger

	// mu orders submissions against Shutdown: a job accepted by Submit is
	// always in the inbox ahead of the shutdown message.
	mu           sync.RWMutex
	closed       bool
	shutdownOnce sync.Once
	workers      sync.WaitGroup

	// Written by the dispatcher goroutine before done is closed.
	final Stats
	err   error
}

// New starts a pool of size workers and its dispatcher.
func New(size int, opts ...Option) (*Pool, error) {
	if size < 1 {
		return nil, ErrInvalidPoolSize
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}

	p := &Pool{
		size:   size,
		inbox:  make(chan message, cfg.InboxSize),
		done:   make(chan struct{}),
		logger: cfg.Logger.With("component", "pool"),
	}

	workers := make([]*worker, size)
	for i := range workers {
		workers[i] = newWorker(WorkerID(i), p.inbox, cfg)
	}
	d := newDispatcher(p.inbox, workers, cfg)

	p.workers.Add(size)
	for _, w := range workers {
		go w.run(&p.workers)
	}
	go p.dispatch(d)

	p.logger.Info("pool started", "workers", size, "inbox_size", cfg.InboxSize)
	return p, nil
}

func (p *Pool) dispatch(d *dispatcher) {
	err := d.run()
	if err != nil {
		p.logger.Error("dispatcher stopped", "error", err)
	}
	p.final = d.snapshot()
	p.err = err
	close(p.done)
	d.drain(p.final)
}

// Submit hands a job to the dispatcher and returns without waiting for it to
// run. It fails with ErrPoolClosed once Shutdown has been called. A job it
// accepts runs even if Shutdown follows immediately.
func (p *Pool) Submit(job Job) error {
	if job == nil {
		return ErrNilJob
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return ErrPoolClosed
	}
	select {
	case <-p.done:
		return ErrPoolClosed
	default:
	}
	select {
	case p.inbox <- message{kind: msgNewJob, job: job}:
		return nil
	case <-p.done:
		return ErrPoolClosed
	}
}

// Shutdown asks the dispatcher to drain. Jobs already submitted still run.
// Calling it more than once has no further effect.
func (p *Pool) Shutdown() {
	p.shutdownOnce.Do(func() {
		p.mu.Lock()
		p.closed = true
		p.mu.Unlock()
		select {
		case p.inbox <- message{kind: msgShutdown}:
		case <-p.done:
		}
	})
}

// Wait blocks until the dispatcher has terminated or ctx is done. It returns
// the dispatcher's fatal error, if any.
func (p *Pool) Wait(ctx context.Context) error {
	select {
	case <-p.done:
	case <-ctx.Done():
		return ctx.Err()
	}
	if p.err != nil {
		return p.err
	}
	p.workers.Wait()
	return nil
}

// Done is closed when the dispatcher terminates.
func (p *Pool) Done() <-chan struct{} {
	return p.done
}

// Stats asks the dispatcher for a snapshot of its bookkeeping. After
// termination it returns the final snapshot.
func (p *Pool) Stats() Stats {
	reply := make(chan Stats, 1)
	select {
	case p.inbox <- message{kind: msgStats, reply: reply}:
	case <-p.done:
		return p.final
	}
	select {
	case s := <-reply:
		return s
	case <-p.done:
		return p.final
	}
}

// State reports the dispatcher state.
func (p *Pool) State() State {
	return p.Stats().State
}

// Size returns the number of workers.
func (p *Pool) Size() int {
	return p.size
}
