package notify

import (
	"sync"

	"github.com/urbanmd/urbanmd/internal/colors"
	"github.com/urbanmd/urbanmd/internal/domain"
)

// ConsoleSink prints each entry once, when it is created. It is the sink used
// by one-shot commands, which exit long before a toast would expire.
type ConsoleSink struct{}

// Changed prints entering entries through the colors helpers.
func (ConsoleSink) Changed(entry domain.NotificationEntry) {
	if entry.Visibility != domain.VisibilityEntering {
		return
	}
	switch entry.Kind {
	case domain.KindSuccess:
		colors.Success(entry.Message)
	case domain.KindError:
		colors.Error(entry.Message)
	case domain.KindWarning:
		colors.Warning(entry.Message)
	default:
		colors.Info(entry.Message)
	}
}

// Message is one recorded Notify call.
type Message struct {
	Kind    domain.Kind
	Message string
}

// Recorder is a Notifier that only remembers what it was told.
type Recorder struct {
	mu       sync.Mutex
	messages []Message
}

// Notify records the call.
func (r *Recorder) Notify(kind domain.Kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, Message{Kind: kind, Message: message})
}

// Messages returns a copy of every recorded call.
func (r *Recorder) Messages() []Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Message, len(r.messages))
	copy(out, r.messages)
	return out
}

// Last returns the most recent call.
func (r *Recorder) Last() (Message, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.messages) == 0 {
		return Message{}, false
	}
	return r.messages[len(r.messages)-1], true
}

// Tee fans a notification out to several notifiers.
type Tee []Notifier

// Notify forwards to every notifier.
func (t Tee) Notify(kind domain.Kind, message string) {
	for _, n := range t {
		if n != nil {
			n.Notify(kind, message)
		}
	}
}
