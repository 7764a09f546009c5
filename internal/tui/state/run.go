package state

import (
	"context"
	"errors"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/notify"
)

// Run starts the TUI and the page's pollers and blocks until the user quits
// or ctx is done. Leaving the TUI stops the pollers and declines any pending
// question.
func Run(ctx context.Context, cfg Config, opts ...tea.ProgramOption) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	m := NewModel(runCtx, cfg)
	opts = append([]tea.ProgramOption{tea.WithAltScreen(), tea.WithContext(runCtx)}, opts...)
	p := tea.NewProgram(m, opts...)

	if cfg.Bridge != nil {
		cfg.Bridge.Attach(p.Send)
		defer cfg.Bridge.Attach(nil)
	}
	if cfg.Center != nil {
		cfg.Center.Subscribe(notify.SinkFunc(func(domain.NotificationEntry) {
			p.Send(NotificationsChangedMsg{})
		}))
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		cfg.Controller.Run(runCtx)
	}()

	_, err := p.Run()
	cancel()
	<-done
	if errors.Is(err, tea.ErrProgramKilled) && ctx.Err() != nil {
		return nil
	}
	return err
}
