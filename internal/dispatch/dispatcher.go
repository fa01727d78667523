// Package dispatch runs call-event processing detached from the webhook
// request that delivered it.
package dispatch

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"callcard-relay/internal/enrich"
	"callcard-relay/internal/model"
)

// Processor handles one call event to completion.
type Processor interface {
	Handle(ctx context.Context, ev model.CallEvent) enrich.Outcome
}

// Dispatcher defines the interface for submitting events and controlling lifecycle.
type Dispatcher interface {
	Dispatch(ev model.CallEvent) bool
	Stop(ctx context.Context) error
}

// dispatcher starts one goroutine per event and tracks them for shutdown.
type dispatcher struct {
	log  *zap.Logger
	proc Processor
	base context.Context

	mu      sync.Mutex
	stopped bool
	wg      sync.WaitGroup
}

// New initializes a Dispatcher. Tasks run with a context detached from any
// request so that finishing the HTTP response never cancels them.
func New(proc Processor, logger *zap.Logger) Dispatcher {
	return &dispatcher{
		log:  logger,
		proc: proc,
		base: context.Background(),
	}
}

// Dispatch starts processing ev in the background. It returns false once the
// dispatcher is stopped.
func (d *dispatcher) Dispatch(ev model.CallEvent) bool {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		d.log.Warn("dispatcher stopped, dropping event", zap.String("call_id", ev.Data.ID.String()))
		return false
	}
	d.wg.Add(1)
	d.mu.Unlock()

	invocation := uuid.NewString()
	go func() {
		defer d.wg.Done()
		start := time.Now()
		ctx := enrich.WithInvocationID(d.base, invocation)
		outcome := d.proc.Handle(ctx, ev)
		d.log.Debug("task finished",
			zap.String("invocation_id", invocation),
			zap.String("call_id", ev.Data.ID.String()),
			zap.String("outcome", string(outcome)),
			zap.Duration("duration", time.Since(start)))
	}()
	return true
}

// Stop refuses new events and waits for in-flight ones, or until ctx is done.
func (d *dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		d.log.Warn("shutdown deadline reached with tasks in flight")
		return ctx.Err()
	}
}
