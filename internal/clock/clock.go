// Package clock abstracts timers so notification lifecycles and delayed
// reloads can be driven deterministically in tests.
package clock

import (
	"context"
	"sort"
	"sync"
	"time"
)

// Timer is a scheduled callback that can be cancelled.
type Timer interface {
	// Stop prevents the callback from firing. It reports whether the call
	// stopped the timer, false if it already fired or was stopped.
	Stop() bool
}

// Scheduler runs callbacks after a delay.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
	Now() time.Time
}

// Real is the wall-clock scheduler backed by time.AfterFunc.
type Real struct{}

// AfterFunc schedules f on its own goroutine after d.
func (Real) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Now returns time.Now.
func (Real) Now() time.Time {
	return time.Now()
}

// Manual is a Scheduler whose time only moves when Advance is called.
// Callbacks run synchronously on the goroutine calling Advance.
type Manual struct {
	mu      sync.Mutex
	now     time.Time
	seq     int
	pending []*manualTimer
}

type manualTimer struct {
	owner   *Manual
	at      time.Time
	seq     int
	fn      func()
	stopped bool
	fired   bool
}

// NewManual returns a Manual clock starting at start.
func NewManual(start time.Time) *Manual {
	return &Manual{now: start}
}

// Now returns the manual clock's current time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// AfterFunc registers f to run once the clock has advanced by d.
func (m *Manual) AfterFunc(d time.Duration, f func()) Timer {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	t := &manualTimer{owner: m, at: m.now.Add(d), seq: m.seq, fn: f}
	m.pending = append(m.pending, t)
	return t
}

func (t *manualTimer) Stop() bool {
	t.owner.mu.Lock()
	defer t.owner.mu.Unlock()
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	return true
}

// Advance moves the clock forward by d, firing due callbacks in deadline
// order. Callbacks scheduled while advancing fire too if they fall due.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	target := m.now.Add(d)
	m.mu.Unlock()

	for {
		m.mu.Lock()
		next := m.popDue(target)
		if next == nil {
			m.now = target
			m.mu.Unlock()
			return
		}
		m.now = next.at
		next.fired = true
		m.mu.Unlock()

		next.fn()
	}
}

// popDue removes and returns the earliest live timer due at or before target.
func (m *Manual) popDue(target time.Time) *manualTimer {
	live := m.pending[:0]
	for _, t := range m.pending {
		if !t.stopped && !t.fired {
			live = append(live, t)
		}
	}
	m.pending = live
	if len(m.pending) == 0 {
		return nil
	}
	sort.SliceStable(m.pending, func(i, j int) bool {
		if m.pending[i].at.Equal(m.pending[j].at) {
			return m.pending[i].seq < m.pending[j].seq
		}
		return m.pending[i].at.Before(m.pending[j].at)
	})
	first := m.pending[0]
	if first.at.After(target) {
		return nil
	}
	m.pending = m.pending[1:]
	return first
}

// Pending returns the number of timers that have neither fired nor been stopped.
func (m *Manual) Pending() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.pending {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Tracker wraps a Scheduler and counts callbacks that have not yet run or
// been stopped, so a short-lived process can wait for them before exiting.
type Tracker struct {
	Scheduler
	wg sync.WaitGroup
}

// NewTracker wraps s.
func NewTracker(s Scheduler) *Tracker {
	return &Tracker{Scheduler: s}
}

type trackedTimer struct {
	inner Timer
	done  func()
}

func (t *trackedTimer) Stop() bool {
	stopped := t.inner.Stop()
	if stopped {
		t.done()
	}
	return stopped
}

// AfterFunc schedules f on the wrapped scheduler.
func (t *Tracker) AfterFunc(d time.Duration, f func()) Timer {
	t.wg.Add(1)
	var once sync.Once
	done := func() { once.Do(t.wg.Done) }
	inner := t.Scheduler.AfterFunc(d, func() {
		defer done()
		f()
	})
	return &trackedTimer{inner: inner, done: done}
}

// Wait blocks until every scheduled callback has run or been stopped, or ctx
// is done. It reports whether everything settled.
func (t *Tracker) Wait(ctx context.Context) bool {
	settled := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(settled)
	}()
	select {
	case <-settled:
		return true
	case <-ctx.Done():
		return false
	}
}
