package audit

import (
	"context"
	"sync"
	"time"

	"github.com/carbonx-dev/carbonx/internal/logging"
)

// Dispatcher hands events to a slow sink on a background goroutine. When the
// queue is full new events are dropped and logged rather than blocking the
// request path.
type Dispatcher struct {
	next    Sink
	log     logging.Logger
	timeout time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan Event
	wg     sync.WaitGroup
}

// NewDispatcher starts the worker. Close must be called to flush.
func NewDispatcher(next Sink, size int, timeout time.Duration, l logging.Logger) *Dispatcher {
	if size <= 0 {
		size = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	d := &Dispatcher{
		next:    next,
		log:     l.With("module", "audit_dispatcher"),
		timeout: timeout,
		queue:   make(chan Event, size),
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for ev := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		d.next.Record(ctx, ev)
		cancel()
	}
}

// Record enqueues ev. It never blocks; events recorded after Close are lost.
func (d *Dispatcher) Record(ctx context.Context, ev Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}
	select {
	case d.queue <- ev:
	default:
		d.log.Warn(ctx, "audit queue full, event dropped", "kind", ev.Kind, "outcome", ev.Outcome)
	}
}

// Close stops accepting events and waits for queued ones to be delivered.
func (d *Dispatcher) Close() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}
