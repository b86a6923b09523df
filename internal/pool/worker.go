package pool

import (
	"context"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"

	"jobpool/internal/metrics"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// worker runs one job at a time and reports back to the dispatcher. It never
// touches dispatcher state directly.
type worker struct {
	id      WorkerID
	inbox   chan workerMessage
	outbox  chan<- message
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *metrics.Metrics
}

func newWorker(id WorkerID, outbox chan<- message, cfg Config) *worker {
	return &worker{
		id: id,
		// The dispatcher keeps at most one message outstanding per worker.
		inbox:   make(chan workerMessage, 1),
		outbox:  outbox,
		logger:  cfg.Logger.With("component", "worker", "worker_id", int(id)),
		tracer:  cfg.Tracer,
		metrics: cfg.Metrics,
	}
}

// run is the worker loop. It returns after acknowledging a stop message.
func (w *worker) run(wg *sync.WaitGroup) {
	defer wg.Done()

	for msg := range w.inbox {
		if msg.stop {
			w.outbox <- message{kind: msgWorkerFinished, done: Completion{Worker: w.id}}
			w.logger.Debug("worker stopped")
			return
		}
		err := w.execute(msg.job)
		w.outbox <- message{kind: msgWorkerFinished, done: Completion{Worker: w.id, Err: err}}
	}
}

// execute runs a job inside a fault boundary, so a panicking job cannot take
// the worker down with it.
func (w *worker) execute(job Job) (err error) {
	_, span := w.tracer.Start(context.Background(), "pool.worker.Execute",
		trace.WithAttributes(attribute.Int("worker.id", int(w.id))))
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Value: r, Stack: string(debug.Stack())}
			span.RecordError(err)
			span.SetStatus(codes.Error, "job panicked")
		}
		w.metrics.ObserveJobDuration(time.Since(start))
		span.End()
	}()

	job()
	return nil
}
