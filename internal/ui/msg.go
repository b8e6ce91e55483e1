package ui

import (
	"github.com/rovshanmuradov/letscook/internal/cook"
	"github.com/rovshanmuradov/letscook/internal/events"
	"github.com/rovshanmuradov/letscook/internal/launch"
	"github.com/rovshanmuradov/letscook/internal/txn"
)

// Tea message types for UI communication

// NoticeMsg carries a user-facing notice from the event bus.
type NoticeMsg struct {
	Level   events.NoticeLevel
	Action  string
	Message string
}

// SubmissionMsg reports a submission state change.
type SubmissionMsg struct {
	Action    string
	Status    string
	Signature string
	Err       error
}

// rowsMsg delivers a reloaded ticket table.
type rowsMsg struct {
	rows []launch.Row
	err  error
}

// actionDoneMsg reports the outcome of a row action.
type actionDoneMsg struct {
	page   string
	action cook.Action
	result *txn.Result
	err    error
}
