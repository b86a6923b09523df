// Package pool implements a fixed-size worker pool fed by a single dispatcher.
//
// Every state change (a submission, a worker finishing, a shutdown request)
// travels as a message on one inbound channel that only the dispatcher
// goroutine reads. The dispatcher owns the FIFO of pending jobs and the set of
// idle workers, so no lock guards pool bookkeeping.
//
// # Basic Usage
//
//	p, err := pool.New(4)
//	if err != nil {
//	    return err
//	}
//	for i := 0; i < 100; i++ {
//	    _ = p.Submit(func() {
//	        // do work
//	    })
//	}
//	p.Shutdown()
//	if err := p.Wait(ctx); err != nil {
//	    return err
//	}
//
// # Shutdown
//
// Shutdown moves the dispatcher to the draining state. Jobs submitted before
// the request still run; later submissions fail with ErrPoolClosed. Idle
// workers are stopped at once and busy workers are stopped as soon as the
// queue is empty, so a worker is never handed a job after its stop message.
//
// # Faults
//
// A panicking job does not kill its worker. The panic is turned into a
// *PanicError, reported through the OnFault hook, logged and counted, and the
// worker goes back to the idle set.
package pool
