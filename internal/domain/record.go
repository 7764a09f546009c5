package domain

import (
	"context"
	"time"
)

// OutcomeRecord describes how one triggered action resolved.
type OutcomeRecord struct {
	Section  string
	Action   string
	TargetID string
	Method   string
	Endpoint string
	Outcome  Outcome
	Message  string
	At       time.Time
}

// Observer is told about every resolved action, e.g. to journal it or run
// hooks. Observers must not block for long.
type Observer interface {
	Observe(ctx context.Context, rec OutcomeRecord)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(ctx context.Context, rec OutcomeRecord)

// Observe calls f.
func (f ObserverFunc) Observe(ctx context.Context, rec OutcomeRecord) { f(ctx, rec) }

// Observers fans out to each non-nil observer in order.
type Observers []Observer

// Observe calls every observer.
func (o Observers) Observe(ctx context.Context, rec OutcomeRecord) {
	for _, obs := range o {
		if obs != nil {
			obs.Observe(ctx, rec)
		}
	}
}
