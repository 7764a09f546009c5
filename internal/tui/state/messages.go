// Package state provides the BubbleTea model of the dashboard TUI and the
// messages it exchanges with the dispatch goroutines.
package state

import (
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/view"
)

// NotificationsChangedMsg is sent when a toast enters, exits or is removed.
type NotificationsChangedMsg struct{}

// ViewChangedMsg is sent after every view mutation.
type ViewChangedMsg struct {
	Event view.Event
}

// Answer is the user's reply to an AskMsg.
type Answer struct {
	Text string
	OK   bool
}

// AskMsg is sent when a dispatch needs a confirmation or a prompt answer.
// Exactly one Answer is written to Reply.
type AskMsg struct {
	Question string
	Prompt   bool
	Reply    chan<- Answer
}

// ActionDoneMsg is sent when a triggered action has resolved.
type ActionDoneMsg struct {
	Name    string
	Outcome domain.Outcome
}

// ReloadedMsg is sent when the page has been fetched again.
type ReloadedMsg struct {
	Err error
}

// StatusMsg replaces the status line.
type StatusMsg struct {
	Text string
}
