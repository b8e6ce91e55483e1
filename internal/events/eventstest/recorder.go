// Package eventstest records published events for assertions.
package eventstest

import (
	"context"
	"sync"

	"github.com/rovshanmuradov/letscook/internal/events"
)

// Recorder is a Publisher that keeps every event.
type Recorder struct {
	mu     sync.Mutex
	events []events.Event
}

func (r *Recorder) Publish(e events.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) PublishSync(_ context.Context, e events.Event) error {
	return r.Publish(e)
}

// Notices returns the messages of recorded notices in order.
func (r *Recorder) Notices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if n, ok := e.(events.NoticeEvent); ok {
			out = append(out, n.Message)
		}
	}
	return out
}

// Statuses returns the statuses of recorded submission events in order.
func (r *Recorder) Statuses() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, e := range r.events {
		if s, ok := e.(events.SubmissionEvent); ok {
			out = append(out, s.Status)
		}
	}
	return out
}

// Of returns recorded events of type t.
func (r *Recorder) Of(t events.EventType) []events.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []events.Event
	for _, e := range r.events {
		if e.Type() == t {
			out = append(out, e)
		}
	}
	return out
}

var _ events.Publisher = (*Recorder)(nil)
