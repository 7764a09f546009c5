// Package notify implements the shared notification facility: a stack of
// toast entries, each driven through entering → visible → exiting → removed
// by its own timers.
package notify

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/urbanmd/urbanmd/internal/clock"
	"github.com/urbanmd/urbanmd/internal/config"
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/logging"
)

// Notifier is the fire-and-forget notification primitive shared by every
// component through the session.
type Notifier interface {
	Notify(kind domain.Kind, message string)
}

// Sink receives a copy of an entry on creation and on every transition.
// Sinks may be called from timer goroutines and must be safe for concurrent use.
type Sink interface {
	Changed(entry domain.NotificationEntry)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(entry domain.NotificationEntry)

// Changed calls f(entry).
func (f SinkFunc) Changed(entry domain.NotificationEntry) { f(entry) }

// Timings controls the entry lifecycle. Both Enter and Display are measured
// from creation; Exit is measured from the start of the exit transition.
type Timings struct {
	Enter   time.Duration
	Display time.Duration
	Exit    time.Duration
}

// DefaultTimings returns 100ms enter, 5s display, 300ms exit.
func DefaultTimings() Timings {
	return Timings{
		Enter:   100 * time.Millisecond,
		Display: 5000 * time.Millisecond,
		Exit:    300 * time.Millisecond,
	}
}

// TimingsFromConfig reads notify_*_ms from the global configuration.
func TimingsFromConfig() Timings {
	d := DefaultTimings()
	return Timings{
		Enter:   config.GetDuration("notify_enter_ms", d.Enter),
		Display: config.GetDuration("notify_display_ms", d.Display),
		Exit:    config.GetDuration("notify_exit_ms", d.Exit),
	}
}

// Lifetime is the longest an entry can stay on screen.
func (t Timings) Lifetime() time.Duration {
	return t.Display + t.Enter + t.Exit
}

type tracked struct {
	entry  domain.NotificationEntry
	timers []clock.Timer
}

// Center owns the notification stack.
type Center struct {
	mu        sync.Mutex
	scheduler clock.Scheduler
	timings   Timings
	logger    logging.Logger
	entries   []*tracked
	sinks     []Sink
}

// Option configures a Center.
type Option func(*Center)

// WithScheduler sets the timer source.
func WithScheduler(s clock.Scheduler) Option {
	return func(c *Center) { c.scheduler = s }
}

// WithTimings overrides the lifecycle durations.
func WithTimings(t Timings) Option {
	return func(c *Center) { c.timings = t }
}

// WithLogger mirrors notifications into l.
func WithLogger(l logging.Logger) Option {
	return func(c *Center) { c.logger = l }
}

// WithSink attaches a sink at construction.
func WithSink(s Sink) Option {
	return func(c *Center) { c.sinks = append(c.sinks, s) }
}

// NewCenter creates a Center with real timers and default timings.
func NewCenter(opts ...Option) *Center {
	c := &Center{
		scheduler: clock.Real{},
		timings:   DefaultTimings(),
		logger:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Subscribe attaches a sink. Entries created before subscription are not replayed.
func (c *Center) Subscribe(s Sink) {
	if c == nil || s == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sinks = append(c.sinks, s)
}

// Notify pushes a new entry onto the stack and schedules its lifecycle.
// It never panics: a nil Center drops the message and unknown kinds are shown as info.
func (c *Center) Notify(kind domain.Kind, message string) {
	if c == nil {
		return
	}
	if !kind.IsValid() {
		kind = domain.KindInfo
	}

	c.mu.Lock()
	t := &tracked{entry: domain.NotificationEntry{
		ID:         uuid.NewString(),
		Kind:       kind,
		Message:    message,
		Visibility: domain.VisibilityEntering,
		CreatedAt:  c.scheduler.Now(),
	}}
	c.entries = append(c.entries, t)
	id := t.entry.ID
	t.timers = append(t.timers,
		c.scheduler.AfterFunc(c.timings.Enter, func() {
			c.transition(id, domain.VisibilityVisible)
		}),
		c.scheduler.AfterFunc(c.timings.Display, func() {
			if c.transition(id, domain.VisibilityExiting) {
				c.scheduleRemoval(id)
			}
		}),
	)
	snapshot := t.entry
	sinks := c.sinksLocked()
	c.mu.Unlock()

	c.logger.Info("notification", "kind", kind.String(), "message", message, "id", id)
	publish(sinks, snapshot)
}

func (c *Center) scheduleRemoval(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.findLocked(id)
	if t == nil {
		return
	}
	t.timers = append(t.timers, c.scheduler.AfterFunc(c.timings.Exit, func() {
		c.transition(id, domain.VisibilityRemoved)
	}))
}

// transition moves entry id forward to target. Backward or repeated moves are
// ignored so timers firing out of order cannot revive an entry.
func (c *Center) transition(id string, target domain.Visibility) bool {
	c.mu.Lock()
	t := c.findLocked(id)
	if t == nil || rank(t.entry.Visibility) >= rank(target) {
		c.mu.Unlock()
		return false
	}
	t.entry.Visibility = target
	snapshot := t.entry
	if target == domain.VisibilityRemoved {
		c.discardLocked(id)
	}
	sinks := c.sinksLocked()
	c.mu.Unlock()

	publish(sinks, snapshot)
	return true
}

// Dismiss removes an entry immediately, as the close button on a toast does.
func (c *Center) Dismiss(id string) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	t := c.findLocked(id)
	if t == nil {
		c.mu.Unlock()
		return false
	}
	for _, timer := range t.timers {
		timer.Stop()
	}
	t.entry.Visibility = domain.VisibilityRemoved
	snapshot := t.entry
	c.discardLocked(id)
	sinks := c.sinksLocked()
	c.mu.Unlock()

	publish(sinks, snapshot)
	return true
}

// Active returns the on-screen entries in stacking order.
func (c *Center) Active() []domain.NotificationEntry {
	if c == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]domain.NotificationEntry, 0, len(c.entries))
	for _, t := range c.entries {
		out = append(out, t.entry)
	}
	return out
}

// Timings returns the lifecycle durations in effect.
func (c *Center) Timings() Timings {
	return c.timings
}

func (c *Center) findLocked(id string) *tracked {
	for _, t := range c.entries {
		if t.entry.ID == id {
			return t
		}
	}
	return nil
}

func (c *Center) discardLocked(id string) {
	for i, t := range c.entries {
		if t.entry.ID == id {
			c.entries = append(c.entries[:i], c.entries[i+1:]...)
			return
		}
	}
}

func (c *Center) sinksLocked() []Sink {
	sinks := make([]Sink, len(c.sinks))
	copy(sinks, c.sinks)
	return sinks
}

func publish(sinks []Sink, entry domain.NotificationEntry) {
	for _, s := range sinks {
		s.Changed(entry)
	}
}

func rank(v domain.Visibility) int {
	switch v {
	case domain.VisibilityEntering:
		return 0
	case domain.VisibilityVisible:
		return 1
	case domain.VisibilityExiting:
		return 2
	default:
		return 3
	}
}
