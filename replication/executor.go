package replication

import (
	"context"
	"fmt"
	"time"

	"github.com/relaywire/pgreplicate/errkind"
)

// job is one unit of work submitted to the executor: run runs the
// handler and reports its error back through the subscriber's failure
// path.
type job func(ctx context.Context) error

// executor is the flow-controlled handler executor of §4.7: a single
// worker draining a bounded queue. Submit blocks the reader loop while
// the queue is full, applying backpressure all the way back to the wire
// - the reader simply stops issuing ReadFrame calls until a handler
// finishes, so the server sees TCP backpressure rather than the client
// buffering unboundedly.
type executor struct {
	queue         chan job
	submitTimeout time.Duration
	done          chan struct{}
	errCh         chan error
}

func newExecutor(queueSize int, submitTimeout time.Duration) *executor {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &executor{
		queue:         make(chan job, queueSize),
		submitTimeout: submitTimeout,
		done:          make(chan struct{}),
		errCh:         make(chan error, 1),
	}
}

// run drains the queue on a single goroutine until the queue is closed
// or ctx is cancelled. The first handler error stops the worker and is
// reported on errCh; it does not drain the remaining queued jobs.
func (e *executor) run(ctx context.Context) {
	defer close(e.done)

	for {
		select {
		case <-ctx.Done():
			return
		case j, ok := <-e.queue:
			if !ok {
				return
			}
			if err := j(ctx); err != nil {
				select {
				case e.errCh <- err:
				default:
				}
				return
			}
		}
	}
}

// submit enqueues j, blocking until the queue has room, submitTimeout
// elapses, or ctx is cancelled. A submitTimeout of 0 means "wait
// indefinitely for capacity" (still cancellable via ctx).
func (e *executor) submit(ctx context.Context, j job) error {
	if e.submitTimeout <= 0 {
		select {
		case e.queue <- j:
			return nil
		case <-ctx.Done():
			return errkind.Unavailablef(ctx.Err())
		}
	}

	timer := time.NewTimer(e.submitTimeout)
	defer timer.Stop()

	select {
	case e.queue <- j:
		return nil
	case <-ctx.Done():
		return errkind.Unavailablef(ctx.Err())
	case <-timer.C:
		return errkind.Unavailablef(fmt.Errorf("replication: handler queue full after %s, timed out due to backpressure", e.submitTimeout))
	}
}

// drain closes the queue and waits for the worker to finish the jobs
// already accepted, so a handler's Ack() call is never lost by Close
// racing the worker (§4.6's "drain, then force a final flush").
func (e *executor) drain() {
	close(e.queue)
	<-e.done
}

// failure returns the first handler error, if any, without blocking.
func (e *executor) failure() error {
	select {
	case err := <-e.errCh:
		return err
	default:
		return nil
	}
}
