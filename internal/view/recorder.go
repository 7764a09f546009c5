package view

import (
	"context"
	"sync"
)

// Op identifies a recorded view call.
type Op string

const (
	OpNavigate Op = "navigate"
	OpReload   Op = "reload"
	OpFragment Op = "fragment"
	OpVisible  Op = "visible"
	OpText     Op = "text"
	OpControl  Op = "control"
	OpConfirm  Op = "confirm"
	OpPrompt   Op = "prompt"
)

// Event is one recorded call.
type Event struct {
	Op       Op
	Region   string
	Value    string
	Flag     bool
	Disabled bool
}

// ControlState is the last state written to a submit control.
type ControlState struct {
	Disabled bool
	Label    string
}

// Recorder is an in-memory View. Confirm and Prompt answers are scripted.
type Recorder struct {
	mu        sync.Mutex
	events    []Event
	fragments map[string]string
	visible   map[string]bool
	texts     map[string]string
	controls  map[string]ControlState
	confirms  []bool
	prompts   []*string
	// OnEvent, when set, is called after each recorded event outside the lock.
	OnEvent func(Event)
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		fragments: map[string]string{},
		visible:   map[string]bool{},
		texts:     map[string]string{},
		controls:  map[string]ControlState{},
	}
}

// AnswerConfirm queues the next Confirm answers. Unscripted confirms decline.
func (r *Recorder) AnswerConfirm(answers ...bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.confirms = append(r.confirms, answers...)
}

// AnswerPrompt queues the next Prompt answer.
func (r *Recorder) AnswerPrompt(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, &text)
}

// CancelPrompt queues a cancelled Prompt. Unscripted prompts also cancel.
func (r *Recorder) CancelPrompt() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prompts = append(r.prompts, nil)
}

func (r *Recorder) record(e Event) {
	r.mu.Lock()
	r.events = append(r.events, e)
	hook := r.OnEvent
	r.mu.Unlock()
	if hook != nil {
		hook(e)
	}
}

func (r *Recorder) Confirm(ctx context.Context, message string) bool {
	r.mu.Lock()
	answer := false
	if len(r.confirms) > 0 {
		answer = r.confirms[0]
		r.confirms = r.confirms[1:]
	}
	r.mu.Unlock()
	if ctx.Err() != nil {
		answer = false
	}
	r.record(Event{Op: OpConfirm, Value: message, Flag: answer})
	return answer
}

func (r *Recorder) Prompt(ctx context.Context, message string) (string, bool) {
	r.mu.Lock()
	var answer *string
	if len(r.prompts) > 0 {
		answer = r.prompts[0]
		r.prompts = r.prompts[1:]
	}
	r.mu.Unlock()
	r.record(Event{Op: OpPrompt, Value: message, Flag: answer != nil})
	if answer == nil || ctx.Err() != nil {
		return "", false
	}
	return *answer, true
}

func (r *Recorder) Navigate(url string) {
	r.record(Event{Op: OpNavigate, Value: url})
}

func (r *Recorder) Reload() {
	r.record(Event{Op: OpReload})
}

func (r *Recorder) RenderFragment(region, html string) {
	r.mu.Lock()
	r.fragments[region] = html
	r.mu.Unlock()
	r.record(Event{Op: OpFragment, Region: region, Value: html})
}

func (r *Recorder) SetVisible(region string, visible bool) {
	r.mu.Lock()
	r.visible[region] = visible
	r.mu.Unlock()
	r.record(Event{Op: OpVisible, Region: region, Flag: visible})
}

func (r *Recorder) SetText(region, text string) {
	r.mu.Lock()
	r.texts[region] = text
	r.mu.Unlock()
	r.record(Event{Op: OpText, Region: region, Value: text})
}

func (r *Recorder) SetControl(formID string, disabled bool, label string) {
	r.mu.Lock()
	r.controls[formID] = ControlState{Disabled: disabled, Label: label}
	r.mu.Unlock()
	r.record(Event{Op: OpControl, Region: formID, Value: label, Disabled: disabled})
}

// Events returns a copy of everything recorded.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// EventsOf filters Events by op.
func (r *Recorder) EventsOf(op Op) []Event {
	var out []Event
	for _, e := range r.Events() {
		if e.Op == op {
			out = append(out, e)
		}
	}
	return out
}

// Navigations returns every navigated URL in order.
func (r *Recorder) Navigations() []string {
	var out []string
	for _, e := range r.EventsOf(OpNavigate) {
		out = append(out, e.Value)
	}
	return out
}

// Reloads counts Reload calls.
func (r *Recorder) Reloads() int {
	return len(r.EventsOf(OpReload))
}

// Fragment returns the last HTML rendered into region.
func (r *Recorder) Fragment(region string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.fragments[region]
	return v, ok
}

// Visible reports the last visibility set for region.
func (r *Recorder) Visible(region string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.visible[region]
}

// Text returns the last text set for region.
func (r *Recorder) Text(region string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.texts[region]
	return v, ok
}

// Texts returns a copy of every region's last text.
func (r *Recorder) Texts() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.texts))
	for k, v := range r.texts {
		out[k] = v
	}
	return out
}

// Control returns the last state of a form's submit control.
func (r *Recorder) Control(formID string) (ControlState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.controls[formID]
	return v, ok
}
