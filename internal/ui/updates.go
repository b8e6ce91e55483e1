package ui

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/letscook/internal/events"
)

// Relay forwards bus events to the UI without ever blocking the bus.
type Relay struct {
	msgChan        chan tea.Msg
	droppedUpdates atomic.Uint64
	sentUpdates    atomic.Uint64
	logger         *zap.Logger
	statsInterval  time.Duration
	stopStats      chan struct{}
	subs           []events.Subscription
	closeOnce      sync.Once
}

// NewRelay subscribes to notices and submission changes on bus. A nil bus
// gives a relay that only forwards what is passed to Send.
func NewRelay(bus *events.Bus, buffer int, logger *zap.Logger) *Relay {
	r := &Relay{
		msgChan:       make(chan tea.Msg, buffer),
		logger:        logger.Named("relay"),
		statsInterval: 30 * time.Second,
		stopStats:     make(chan struct{}),
	}

	if bus != nil {
		r.subs = append(r.subs,
			bus.SubscribeFunc(events.NoticeRaised, func(_ context.Context, e events.Event) error {
				if n, ok := e.(events.NoticeEvent); ok {
					r.Send(NoticeMsg{Level: n.Level, Action: n.Action, Message: n.Message})
				}
				return nil
			}),
			bus.SubscribeFunc(events.SubmissionChanged, func(_ context.Context, e events.Event) error {
				if s, ok := e.(events.SubmissionEvent); ok {
					r.Send(SubmissionMsg{Action: s.Action, Status: s.Status, Signature: s.Signature, Err: s.Err})
				}
				return nil
			}),
		)
	}

	go r.logStats()

	return r
}

// Send sends a message to UI without blocking
func (r *Relay) Send(msg tea.Msg) {
	select {
	case r.msgChan <- msg:
		r.sentUpdates.Add(1)
	default:
		r.droppedUpdates.Add(1)
	}
}

// Listen waits for the next relayed message.
func (r *Relay) Listen() tea.Cmd {
	return func() tea.Msg {
		return <-r.msgChan
	}
}

// Stats returns current statistics
func (r *Relay) Stats() (sent, dropped uint64) {
	return r.sentUpdates.Load(), r.droppedUpdates.Load()
}

func (r *Relay) logStats() {
	ticker := time.NewTicker(r.statsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			sent, dropped := r.Stats()
			if dropped > 0 {
				r.logger.Warn("UI update statistics",
					zap.Uint64("sent", sent),
					zap.Uint64("dropped", dropped),
					zap.Float64("drop_rate", float64(dropped)/float64(sent+dropped)*100))
			}
		case <-r.stopStats:
			return
		}
	}
}

// Close unsubscribes from the bus and stops statistics logging.
func (r *Relay) Close() {
	r.closeOnce.Do(func() {
		for _, s := range r.subs {
			s.Unsubscribe()
		}
		close(r.stopStats)
	})
}
