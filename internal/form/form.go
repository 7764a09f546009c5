// Package form submits forms marked for asynchronous submission and reports
// the result through notifications.
package form

import (
	"context"
	"fmt"
	"time"

	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/logging"
	"github.com/urbanmd/urbanmd/internal/notify"
	"github.com/urbanmd/urbanmd/internal/page"
	"github.com/urbanmd/urbanmd/internal/session"
	"github.com/urbanmd/urbanmd/internal/view"
)

// Labels and fallback messages.
const (
	PendingLabel      = "Loading..."
	DefaultSuccess    = "Operation successful"
	DefaultFailure    = "An error occurred"
	UnexpectedFailure = "An unexpected error occurred"
)

// Submitter sends the form request.
type Submitter interface {
	SubmitForm(ctx context.Context, method, action string, fields []domain.FormField) (*domain.Response, error)
}

// Handler submits AJAX forms.
type Handler struct {
	client   Submitter
	view     view.View
	notifier notify.Notifier
	logger   logging.Logger
	resolve  func(string) string
	observer domain.Observer
	now      func() time.Time
}

// Option configures a Handler.
type Option func(*Handler)

// WithLogger sets the logger used for transport failures.
func WithLogger(l logging.Logger) Option {
	return func(h *Handler) {
		if l != nil {
			h.logger = l
		}
	}
}

// WithResolver turns redirect paths into absolute URLs before navigating.
func WithResolver(resolve func(string) string) Option {
	return func(h *Handler) {
		if resolve != nil {
			h.resolve = resolve
		}
	}
}

// WithObserver reports every submission outcome.
func WithObserver(o domain.Observer) Option {
	return func(h *Handler) { h.observer = o }
}

// ForSession builds a handler on the session's notification facility and
// URL resolution.
func ForSession(client Submitter, v view.View, s *session.Session, opts ...Option) *Handler {
	return NewHandler(client, v, s.Notifier(), append([]Option{WithResolver(s.Resolve)}, opts...)...)
}

// NewHandler creates a form handler.
func NewHandler(client Submitter, v view.View, n notify.Notifier, opts ...Option) *Handler {
	h := &Handler{
		client:   client,
		view:     v,
		notifier: n,
		logger:   logging.Nop(),
		resolve:  func(s string) string { return s },
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// ControlID names the form's submit control in the view.
func ControlID(f page.Form) string {
	if f.ID != "" {
		return f.ID
	}
	return "form:" + f.Action
}

// Submit sends f, which was read from the page at pagePath. The submit
// control is disabled for the duration and restored on every exit path,
// including a panic, which is reported like a transport failure.
func (h *Handler) Submit(ctx context.Context, pagePath string, f page.Form) (outcome domain.Outcome) {
	action := f.Action
	if action == "" {
		action = pagePath
	}
	control := ControlID(f)
	var message string

	h.view.SetControl(control, true, PendingLabel)
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("form submission panicked", "action", action, "panic", fmt.Sprint(r))
			message = UnexpectedFailure
			h.notifier.Notify(domain.KindError, message)
			outcome = domain.OutcomeNotifyError
		}
		h.view.SetControl(control, false, f.SubmitLabel)
		h.report(ctx, f, action, outcome, message)
	}()

	resp, err := h.client.SubmitForm(ctx, f.Method, action, f.Fields)
	if err != nil {
		h.logger.Error("form submission failed", "action", action, "error", err)
		message = UnexpectedFailure
		h.notifier.Notify(domain.KindError, message)
		return domain.OutcomeNotifyError
	}

	if !resp.Success {
		message = resp.MessageOr(DefaultFailure)
		h.notifier.Notify(domain.KindError, message)
		return domain.OutcomeNotifyError
	}

	message = resp.MessageOr(DefaultSuccess)
	h.notifier.Notify(domain.KindSuccess, message)
	if resp.Redirect != "" {
		h.view.Navigate(h.resolve(resp.Redirect))
		return domain.OutcomeNavigate
	}
	return domain.OutcomeMutate
}

func (h *Handler) report(ctx context.Context, f page.Form, action string, outcome domain.Outcome, message string) {
	if h.observer == nil {
		return
	}
	h.observer.Observe(ctx, domain.OutcomeRecord{
		Section:  "form",
		Action:   "submit",
		TargetID: f.ID,
		Method:   f.Method,
		Endpoint: action,
		Outcome:  outcome,
		Message:  message,
		At:       h.now(),
	})
}
