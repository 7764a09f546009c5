// Package dispatch runs dashboard actions: the optional confirmation or
// reason prompt, the single backend request and the reaction to its JSON
// envelope.
package dispatch

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/urbanmd/urbanmd/internal/clock"
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/logging"
	"github.com/urbanmd/urbanmd/internal/notify"
	"github.com/urbanmd/urbanmd/internal/session"
	"github.com/urbanmd/urbanmd/internal/view"
)

// DefaultReloadDelay is how long a success notification stays up before the
// page reloads.
const DefaultReloadDelay = 1500 * time.Millisecond

// GenericFailure is shown when a call does not name its own error message.
const GenericFailure = "An unexpected error occurred"

var (
	// ErrUnknownAction is logged when an element names an action its section
	// does not handle.
	ErrUnknownAction = errors.New("dispatch: unknown action")
	// ErrMissingTarget is logged when an element lacks its identifier.
	ErrMissingTarget = errors.New("dispatch: missing target identifier")
)

// Sender performs the request; reason is the prompted text, if any.
type Sender func(ctx context.Context, reason string) (*domain.Response, error)

// FollowUp reacts to a successful response and names the resulting outcome.
type FollowUp func(ctx context.Context, resp *domain.Response) domain.Outcome

// Call describes one backend action.
type Call struct {
	Section string
	Request domain.ActionRequest
	Send    Sender

	// Confirm, when set, is asked first; declining issues no request.
	Confirm string
	// Reason, when set, prompts for text; empty or cancelled issues no request.
	Reason string

	// Success is notified on success; empty shows nothing.
	Success string
	// Failure is the fallback for success=false without a server message.
	Failure string
	// Error is notified on transport or decode failure.
	Error string
	// Quiet failures are logged only. Used by background refreshes.
	Quiet bool

	Then FollowUp
}

// Performer runs Calls against a view.
type Performer struct {
	view        view.View
	notifier    notify.Notifier
	scheduler   clock.Scheduler
	reloadDelay time.Duration
	logger      logging.Logger
	resolve     func(string) string
	observer    domain.Observer
}

// Option configures a Performer.
type Option func(*Performer)

// WithScheduler sets the scheduler used for delayed reloads.
func WithScheduler(s clock.Scheduler) Option {
	return func(p *Performer) {
		if s != nil {
			p.scheduler = s
		}
	}
}

// WithReloadDelay overrides DefaultReloadDelay.
func WithReloadDelay(d time.Duration) Option {
	return func(p *Performer) {
		if d >= 0 {
			p.reloadDelay = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(p *Performer) {
		if l != nil {
			p.logger = l
		}
	}
}

// WithResolver turns server-relative paths into absolute URLs for Navigate.
func WithResolver(resolve func(string) string) Option {
	return func(p *Performer) {
		if resolve != nil {
			p.resolve = resolve
		}
	}
}

// WithObserver reports every outcome.
func WithObserver(o domain.Observer) Option {
	return func(p *Performer) { p.observer = o }
}

// ForSession builds a performer that notifies through the session's shared
// facility and resolves paths against the backend.
func ForSession(v view.View, s *session.Session, opts ...Option) *Performer {
	return NewPerformer(v, s.Notifier(), append([]Option{WithResolver(s.Resolve)}, opts...)...)
}

// NewPerformer creates a Performer.
func NewPerformer(v view.View, n notify.Notifier, opts ...Option) *Performer {
	p := &Performer{
		view:        v,
		notifier:    n,
		scheduler:   clock.Real{},
		reloadDelay: DefaultReloadDelay,
		logger:      logging.Nop(),
		resolve:     func(s string) string { return s },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// View returns the view the performer mutates.
func (p *Performer) View() view.View { return p.view }

// Notifier returns the notification facility.
func (p *Performer) Notifier() notify.Notifier { return p.notifier }

// Logger returns the performer's logger.
func (p *Performer) Logger() logging.Logger { return p.logger }

// Perform runs c and returns how it resolved.
func (p *Performer) Perform(ctx context.Context, c Call) (outcome domain.Outcome) {
	var message string
	defer func() {
		p.report(ctx, c.Section, c.Request, outcome, message)
	}()

	if err := c.Request.Validate(); err != nil {
		p.logger.Debug("action skipped", "section", c.Section, "error", err)
		return domain.OutcomeSkipped
	}
	if c.Send == nil {
		p.logger.Debug("action skipped", "section", c.Section, "action", c.Request.ActionName, "error", "no sender")
		return domain.OutcomeSkipped
	}

	if c.Confirm != "" && !p.view.Confirm(ctx, c.Confirm) {
		p.logger.Debug("action declined", "section", c.Section, "action", c.Request.ActionName, "target", c.Request.TargetID)
		return domain.OutcomeSkipped
	}

	var reason string
	if c.Reason != "" {
		text, ok := p.view.Prompt(ctx, c.Reason)
		if !ok || text == "" {
			p.logger.Debug("action cancelled", "section", c.Section, "action", c.Request.ActionName, "target", c.Request.TargetID)
			return domain.OutcomeSkipped
		}
		reason = text
	}

	resp, err := c.Send(ctx, reason)
	if err != nil {
		p.logger.Error("action failed", "section", c.Section, "action", c.Request.ActionName,
			"target", c.Request.TargetID, "endpoint", c.Request.Endpoint, "error", err)
		message = c.Error
		if message == "" {
			message = GenericFailure
		}
		if !c.Quiet {
			p.notifier.Notify(domain.KindError, message)
		}
		return domain.OutcomeNotifyError
	}

	if !resp.Success {
		message = resp.MessageOr(c.Failure)
		if message == "" {
			message = GenericFailure
		}
		p.logger.Warn("action rejected", "section", c.Section, "action", c.Request.ActionName,
			"target", c.Request.TargetID, "message", message)
		if !c.Quiet {
			p.notifier.Notify(domain.KindError, message)
		}
		return domain.OutcomeNotifyError
	}

	if c.Success != "" {
		message = c.Success
		p.notifier.Notify(domain.KindSuccess, message)
	}
	if c.Then == nil {
		return domain.OutcomeMutate
	}
	return c.Then(ctx, resp)
}

// Navigate sends the view to path without a request.
func (p *Performer) Navigate(ctx context.Context, section string, req domain.ActionRequest, path string) domain.Outcome {
	url := p.resolve(path)
	p.view.Navigate(url)
	req.Endpoint = url
	req.Method = http.MethodGet
	p.report(ctx, section, req, domain.OutcomeNavigate, "")
	return domain.OutcomeNavigate
}

// Skip records an action that was not dispatched.
func (p *Performer) Skip(ctx context.Context, section string, req domain.ActionRequest, cause error) domain.Outcome {
	p.logger.Debug("action skipped", "section", section, "action", req.ActionName, "target", req.TargetID, "error", cause)
	p.report(ctx, section, req, domain.OutcomeSkipped, "")
	return domain.OutcomeSkipped
}

// Reload is a FollowUp that reloads the view after the reload delay.
func (p *Performer) Reload(context.Context, *domain.Response) domain.Outcome {
	p.scheduler.AfterFunc(p.reloadDelay, p.view.Reload)
	return domain.OutcomeMutate
}

// RedirectTo is a FollowUp that navigates to path.
func (p *Performer) RedirectTo(path string) FollowUp {
	return func(context.Context, *domain.Response) domain.Outcome {
		p.view.Navigate(p.resolve(path))
		return domain.OutcomeNavigate
	}
}

// ReloadDelay returns the delay used by Reload.
func (p *Performer) ReloadDelay() time.Duration { return p.reloadDelay }

func (p *Performer) report(ctx context.Context, section string, req domain.ActionRequest, outcome domain.Outcome, message string) {
	if p.observer == nil {
		return
	}
	p.observer.Observe(ctx, domain.OutcomeRecord{
		Section:  section,
		Action:   req.ActionName,
		TargetID: req.TargetID,
		Method:   req.Method,
		Endpoint: req.Endpoint,
		Outcome:  outcome,
		Message:  message,
		At:       p.scheduler.Now(),
	})
}
