// internal/events/bus.go
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrBusClosed = errors.New("event bus is shutting down")
	ErrBusFull   = errors.New("event channel full")
)

// Publisher is the part of the bus producers depend on. Publish queues the
// event; PublishSync runs the handlers on the caller before returning.
type Publisher interface {
	Publish(event Event) error
	PublishSync(ctx context.Context, event Event) error
}

type entry struct {
	id      string
	handler Handler
}

// Bus delivers events to handlers in the order they were published and,
// for each event, in the order the handlers subscribed. Queued events are
// dispatched by a single loop.
type Bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]entry
	logger   *zap.Logger

	queue    chan Event
	done     chan struct{}
	stopped  chan struct{}
	shutOnce sync.Once

	published atomic.Uint64
	dropped   atomic.Uint64
	failed    atomic.Uint64
}

// Stats is a point-in-time view of the bus.
type Stats struct {
	Queued    int
	Capacity  int
	Published uint64
	Dropped   uint64
	Failed    uint64
	Handlers  map[EventType]int
}

// NewBus starts a bus whose queue holds up to bufferSize events.
func NewBus(logger *zap.Logger, bufferSize int) *Bus {
	b := &Bus{
		handlers: make(map[EventType][]entry),
		logger:   logger.Named("event_bus"),
		queue:    make(chan Event, bufferSize),
		done:     make(chan struct{}),
		stopped:  make(chan struct{}),
	}
	go b.loop()
	return b
}

// Subscribe registers handler for eventType.
func (b *Bus) Subscribe(eventType EventType, handler Handler) Subscription {
	id := uuid.New().String()

	b.mu.Lock()
	b.handlers[eventType] = append(b.handlers[eventType], entry{id: id, handler: handler})
	b.mu.Unlock()

	b.logger.Debug("Handler subscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
	return &subscription{id: id, eventBus: b, typ: eventType}
}

// SubscribeFunc subscribes a plain function.
func (b *Bus) SubscribeFunc(eventType EventType, fn func(context.Context, Event) error) Subscription {
	return b.Subscribe(eventType, HandlerFunc(fn))
}

func (b *Bus) closed() bool {
	select {
	case <-b.done:
		return true
	default:
		return false
	}
}

// Publish queues event without blocking. A full queue drops the event.
func (b *Bus) Publish(event Event) error {
	if b.closed() {
		return ErrBusClosed
	}
	select {
	case b.queue <- event:
		b.published.Add(1)
		return nil
	default:
		b.dropped.Add(1)
		b.logger.Warn("Event channel full, dropping event",
			zap.String("event_type", string(event.Type())))
		return ErrBusFull
	}
}

// PublishSync runs every handler of event on the caller and joins their
// errors. It bypasses the queue, so it also works during shutdown.
func (b *Bus) PublishSync(ctx context.Context, event Event) error {
	b.published.Add(1)
	return b.deliver(ctx, event)
}

func (b *Bus) handlersFor(t EventType) []entry {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return append([]entry(nil), b.handlers[t]...)
}

func (b *Bus) deliver(ctx context.Context, event Event) error {
	var errs []error
	for _, e := range b.handlersFor(event.Type()) {
		if err := e.handler.Handle(ctx, event); err != nil {
			b.failed.Add(1)
			b.logger.Error("Handler error",
				zap.String("event_type", string(event.Type())),
				zap.String("handler_id", e.id),
				zap.Error(err))
			errs = append(errs, err)
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%d handlers failed: %w", len(errs), errors.Join(errs...))
	}
	return nil
}

func (b *Bus) loop() {
	defer close(b.stopped)
	for {
		select {
		case event := <-b.queue:
			_ = b.deliver(context.Background(), event)
		case <-b.done:
			// Drain what was queued before shutdown.
			for {
				select {
				case event := <-b.queue:
					_ = b.deliver(context.Background(), event)
				default:
					return
				}
			}
		}
	}
}

// Notify publishes a notice without waiting for handlers. A nil publisher
// is ignored.
func Notify(p Publisher, level NoticeLevel, action, message string) {
	if p == nil {
		return
	}
	_ = p.Publish(NewNotice(level, action, message))
}

func (b *Bus) unsubscribe(id string, eventType EventType) {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := b.handlers[eventType]
	for i, e := range entries {
		if e.id != id {
			continue
		}
		entries = append(entries[:i:i], entries[i+1:]...)
		break
	}
	if len(entries) == 0 {
		delete(b.handlers, eventType)
	} else {
		b.handlers[eventType] = entries
	}

	b.logger.Debug("Handler unsubscribed",
		zap.String("event_type", string(eventType)),
		zap.String("subscription_id", id))
}

// Shutdown stops accepting events, delivers the queued ones and waits for
// the dispatch loop or ctx, whichever ends first. Repeated calls are safe.
func (b *Bus) Shutdown(ctx context.Context) error {
	b.shutOnce.Do(func() {
		b.logger.Info("Shutting down event bus")
		close(b.done)
	})

	select {
	case <-b.stopped:
		b.logger.Debug("Event bus shutdown complete")
		return nil
	case <-ctx.Done():
		b.logger.Warn("Event bus shutdown timeout")
		return ctx.Err()
	}
}

// Stats reports queue depth, counters and handlers per event type.
func (b *Bus) Stats() Stats {
	b.mu.RLock()
	defer b.mu.RUnlock()

	s := Stats{
		Queued:    len(b.queue),
		Capacity:  cap(b.queue),
		Published: b.published.Load(),
		Dropped:   b.dropped.Load(),
		Failed:    b.failed.Load(),
		Handlers:  make(map[EventType]int, len(b.handlers)),
	}
	for t, entries := range b.handlers {
		s.Handlers[t] = len(entries)
	}
	return s
}

var _ Publisher = (*Bus)(nil)
