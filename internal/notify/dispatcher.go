// Package notify delivers committed ledger actions to in-process
// subscribers such as log-channel relays.
package notify

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/modix-backend/internal/domain"
	"github.com/heartmarshall/modix-backend/pkg/ctxutil"
)

// DefaultBuffer is the backlog size used when none is configured.
const DefaultBuffer = 256

// Handler consumes one event. Errors are logged and otherwise ignored.
type Handler func(ctx context.Context, ev domain.ActionCreated) error

type delivery struct {
	ctx context.Context
	ev  domain.ActionCreated
}

// ErrClosed is reported by Ping once the dispatcher stops accepting events.
var ErrClosed = errors.New("notify: dispatcher closed")

// Dispatcher queues events and hands them to every subscriber from a
// single worker goroutine, in publish order. The backlog is unbounded:
// Publish never blocks and never drops an event unless the dispatcher is
// closed. A backlog above the configured buffer is reported as a warning.
type Dispatcher struct {
	log    *slog.Logger
	buffer int
	wake   chan struct{}
	done   chan struct{}

	hmu      sync.Mutex
	handlers []Handler

	mu       sync.Mutex
	pending  []delivery
	closed   bool
	overflow bool
}

// NewDispatcher creates a Dispatcher and starts its worker.
func NewDispatcher(log *slog.Logger, buffer int) *Dispatcher {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = slog.Default()
	}
	d := &Dispatcher{
		log:     log.With("component", "notify"),
		buffer:  buffer,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
		pending: make([]delivery, 0, buffer),
	}
	go d.run()
	return d
}

// Subscribe registers h for every event published afterwards.
func (d *Dispatcher) Subscribe(h Handler) {
	d.hmu.Lock()
	defer d.hmu.Unlock()
	d.handlers = append(d.handlers, h)
}

// Publish stamps ev with an event id and the request id of ctx and queues
// it. The event is delivered even if ctx ends first; it is dropped, with a
// warning, only when the dispatcher is closed.
func (d *Dispatcher) Publish(ctx context.Context, ev domain.ActionCreated) {
	ev.EventID = uuid.NewString()
	if ev.RequestID == "" {
		ev.RequestID = ctxutil.RequestIDFromCtx(ctx)
	}

	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		d.log.WarnContext(ctx, "event dropped: dispatcher closed", slog.Int64("action_id", ev.ActionID))
		return
	}
	d.pending = append(d.pending, delivery{ctx: context.WithoutCancel(ctx), ev: ev})
	backlog := len(d.pending)
	warn := backlog > d.buffer && !d.overflow
	if warn {
		d.overflow = true
	}
	d.mu.Unlock()

	if warn {
		d.log.WarnContext(ctx, "notification backlog above buffer",
			slog.Int("backlog", backlog),
			slog.Int("buffer", d.buffer),
		)
	}

	select {
	case d.wake <- struct{}{}:
	default:
	}
}

// Pending returns the number of events not yet handed to subscribers.
func (d *Dispatcher) Pending() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}

// Ping reports ErrClosed after Close.
func (d *Dispatcher) Ping(context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return ErrClosed
	}
	return nil
}

// Close stops accepting events and waits until the queued ones are
// delivered or ctx ends.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	d.closed = true
	d.mu.Unlock()

	select {
	case d.wake <- struct{}{}:
	default:
	}

	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) run() {
	defer close(d.done)

	for {
		d.mu.Lock()
		batch := d.pending
		d.pending = nil
		closed := d.closed
		if len(batch) > 0 {
			d.overflow = false
		}
		d.mu.Unlock()

		if len(batch) == 0 {
			if closed {
				return
			}
			<-d.wake
			continue
		}

		d.hmu.Lock()
		handlers := d.handlers
		d.hmu.Unlock()

		for _, item := range batch {
			for _, h := range handlers {
				d.deliver(item, h)
			}
		}
	}
}

func (d *Dispatcher) deliver(item delivery, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			d.log.ErrorContext(item.ctx, "subscriber panicked",
				slog.String("event_id", item.ev.EventID),
				slog.Any("panic", r),
			)
		}
	}()

	if err := h(item.ctx, item.ev); err != nil {
		d.log.ErrorContext(item.ctx, "subscriber failed",
			slog.String("event_id", item.ev.EventID),
			slog.String("type", item.ev.Type),
			slog.String("error", err.Error()),
		)
	}
}
