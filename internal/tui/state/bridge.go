package state

import (
	"context"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/urbanmd/urbanmd/internal/view"
)

// Bridge is the View the dashboard mutates while the TUI runs. Region state
// is kept by the embedded Recorder; every change is forwarded to the program
// and questions are answered from the model.
type Bridge struct {
	*view.Recorder

	mu     sync.Mutex
	send   func(tea.Msg)
	opener view.Opener
}

// NewBridge creates a bridge. opener may be nil.
func NewBridge(opener view.Opener) *Bridge {
	b := &Bridge{Recorder: view.NewRecorder(), opener: opener}
	b.OnEvent = func(e view.Event) {
		b.post(ViewChangedMsg{Event: e})
	}
	return b
}

// Attach starts forwarding messages, usually to tea.Program.Send.
func (b *Bridge) Attach(send func(tea.Msg)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.send = send
}

func (b *Bridge) post(msg tea.Msg) bool {
	b.mu.Lock()
	send := b.send
	b.mu.Unlock()
	if send == nil {
		return false
	}
	send(msg)
	return true
}

func (b *Bridge) Confirm(ctx context.Context, message string) bool {
	answer := b.ask(ctx, message, false)
	return answer.OK
}

func (b *Bridge) Prompt(ctx context.Context, message string) (string, bool) {
	answer := b.ask(ctx, message, true)
	return answer.Text, answer.OK
}

// ask blocks until the model replies. Without an attached program, or once
// ctx is done, the question is declined.
func (b *Bridge) ask(ctx context.Context, question string, prompt bool) Answer {
	reply := make(chan Answer, 1)
	if !b.post(AskMsg{Question: question, Prompt: prompt, Reply: reply}) {
		return Answer{}
	}
	select {
	case <-ctx.Done():
		return Answer{}
	case a := <-reply:
		return a
	}
}

func (b *Bridge) Navigate(url string) {
	if b.opener != nil {
		if err := b.opener(url); err != nil {
			b.post(StatusMsg{Text: "open failed: " + err.Error()})
		}
	}
	b.Recorder.Navigate(url)
}
