// internal/events/types.go
package events

import (
	"time"
)

// EventType represents the type of event.
type EventType string

const (
	// User-facing notices
	NoticeRaised EventType = "notice.raised"

	// Transaction events
	SubmissionChanged EventType = "submission.changed"

	// Account snapshot events
	SnapshotUpdated EventType = "snapshot.updated"

	// Directory events
	DirectoryRefreshed EventType = "directory.refreshed"
)

// Event is the base interface for all events.
type Event interface {
	Type() EventType
	Timestamp() time.Time
}

// BaseEvent provides common fields for all events.
type BaseEvent struct {
	EventType EventType
	EventTime time.Time
}

// Type returns the event type.
func (e BaseEvent) Type() EventType {
	return e.EventType
}

// Timestamp returns when the event occurred.
func (e BaseEvent) Timestamp() time.Time {
	return e.EventTime
}

func base(t EventType) BaseEvent {
	return BaseEvent{EventType: t, EventTime: time.Now()}
}

// NoticeLevel is the tone of a notice.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

// User-facing notice texts.
const (
	MsgPending      = "Transaction pending, please wait"
	MsgFailed       = "Transaction failed, please try again"
	MsgSuccess      = "Transaction successful!"
	MsgNotProcessed = "Transaction not processed, please try again"
)

// NoticeEvent is a toast shown to the user.
type NoticeEvent struct {
	BaseEvent
	Level   NoticeLevel
	Message string
	Action  string
}

// NewNotice builds a notice event.
func NewNotice(level NoticeLevel, action, message string) NoticeEvent {
	return NoticeEvent{
		BaseEvent: base(NoticeRaised),
		Level:     level,
		Message:   message,
		Action:    action,
	}
}

// SubmissionEvent is emitted on every submission state change.
type SubmissionEvent struct {
	BaseEvent
	Action    string
	Owner     string
	Status    string
	Signature string
	Err       error
}

// NewSubmission builds a submission event.
func NewSubmission(action, owner, status, signature string, err error) SubmissionEvent {
	return SubmissionEvent{
		BaseEvent: base(SubmissionChanged),
		Action:    action,
		Owner:     owner,
		Status:    status,
		Signature: signature,
		Err:       err,
	}
}

// SnapshotEvent is emitted when a watched account snapshot changes.
// Present is false when the entity became absent.
type SnapshotEvent struct {
	BaseEvent
	Kind    string
	Address string
	Present bool
}

// NewSnapshot builds a snapshot event.
func NewSnapshot(kind, address string, present bool) SnapshotEvent {
	return SnapshotEvent{
		BaseEvent: base(SnapshotUpdated),
		Kind:      kind,
		Address:   address,
		Present:   present,
	}
}

// DirectoryEvent is emitted after the launch directory reloads.
type DirectoryEvent struct {
	BaseEvent
	Launches int
	Err      error
}

// NewDirectory builds a directory event.
func NewDirectory(launches int, err error) DirectoryEvent {
	return DirectoryEvent{
		BaseEvent: base(DirectoryRefreshed),
		Launches:  launches,
		Err:       err,
	}
}
