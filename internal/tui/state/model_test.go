package state

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanmd/urbanmd/internal/clock"
	"github.com/urbanmd/urbanmd/internal/dashboard"
	"github.com/urbanmd/urbanmd/internal/dispatch"
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/notify"
	"github.com/urbanmd/urbanmd/internal/page"
	"github.com/urbanmd/urbanmd/internal/view"
)

const patientPage = `<div data-user-type="PATIENT">
  <button class="appointment-action" data-action="video" data-appointment-id="7">Join</button>
  <button class="appointment-action" data-action="cancel" data-appointment-id="7">Cancel</button>
  <ul><li><input type="checkbox" class="task-checkbox" data-task-id="t1"> Refill</li></ul>
  <form id="doctorSearchForm"><input name="specialty" value=""><input name="city" value="Austin"></form>
</div>`

const adminPage = `<div data-user-type="ADMIN">
  <div class="system-stats"><span data-system-stat="cpu">?</span></div>
  <button class="user-action" data-action="suspend" data-user-id="21">Suspend</button>
  <button class="verification-action" data-action="reject" data-type="doctor" data-id="9">Reject</button>
</div>`

// stubBackend answers every call it implements with success; the embedded
// interface panics on anything else.
type stubBackend struct {
	dashboard.Backend

	mu    sync.Mutex
	calls []string
	stats map[string]string
}

func (s *stubBackend) add(call string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, call)
}

func (s *stubBackend) Calls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func (s *stubBackend) UpdateTask(_ context.Context, taskID, status string) (*domain.Response, error) {
	s.add("UpdateTask " + taskID + " " + status)
	return &domain.Response{Success: true}, nil
}

func (s *stubBackend) SearchDoctors(_ context.Context, fields []domain.FormField) (*domain.Response, error) {
	var parts []string
	for _, f := range fields {
		parts = append(parts, f.Name+"="+f.Value)
	}
	s.add("SearchDoctors " + strings.Join(parts, "&"))
	return &domain.Response{
		Success: true,
		Count:   1,
		HTML:    `<div data-doctor-id="5"><span class="doctor-name">Dr. Reyes</span><button class="book-appointment-btn">Book</button></div>`,
	}, nil
}

func (s *stubBackend) SuspendUser(_ context.Context, id string) (*domain.Response, error) {
	s.add("SuspendUser " + id)
	return &domain.Response{Success: true}, nil
}

func (s *stubBackend) RejectVerification(_ context.Context, kind, id, reason string) (*domain.Response, error) {
	s.add("RejectVerification " + kind + " " + id + " " + reason)
	return &domain.Response{Success: true}, nil
}

func (s *stubBackend) SystemStats(context.Context) (*domain.Response, error) {
	s.add("SystemStats")
	return &domain.Response{Success: true, Stats: s.stats}, nil
}

type fixture struct {
	backend *stubBackend
	bridge  *Bridge
	center  *notify.Center
	model   *Model
	msgs    chan tea.Msg
}

func newFixture(t *testing.T, html string, fetch Fetcher) *fixture {
	t.Helper()
	doc, err := page.ParseString(html)
	require.NoError(t, err)

	manual := clock.NewManual(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	f := &fixture{
		backend: &stubBackend{},
		bridge:  NewBridge(nil),
		center:  notify.NewCenter(notify.WithScheduler(manual)),
		msgs:    make(chan tea.Msg, 64),
	}
	perf := dispatch.NewPerformer(f.bridge, f.center, dispatch.WithScheduler(manual))
	ctrl := dashboard.New(doc, f.backend, perf)
	f.model = NewModel(context.Background(), Config{
		Controller: ctrl,
		Center:     f.center,
		Bridge:     f.bridge,
		Fetch:      fetch,
	})
	return f
}

// attach forwards bridge messages to f.msgs as a running program would.
func (f *fixture) attach() {
	f.bridge.Attach(func(msg tea.Msg) { f.msgs <- msg })
}

func (f *fixture) key(s string) tea.Cmd {
	var msg tea.KeyMsg
	switch s {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case " ":
		msg = tea.KeyMsg{Type: tea.KeySpace, Runes: []rune{' '}}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
	}
	_, cmd := f.model.Update(msg)
	return cmd
}

func (f *fixture) typeText(s string) {
	for _, r := range s {
		f.model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}})
	}
}

// waitAsk returns the next question posted by the bridge.
func (f *fixture) waitAsk(t *testing.T) AskMsg {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case msg := <-f.msgs:
			if ask, ok := msg.(AskMsg); ok {
				return ask
			}
		case <-deadline:
			t.Fatal("no question asked")
			return AskMsg{}
		}
	}
}

func TestRowsListBindingsThenTasks(t *testing.T) {
	f := newFixture(t, patientPage, nil)

	require.Len(t, f.model.rows, 3)
	assert.Equal(t, "appointment video 7", f.model.rows[0].binding.String())
	assert.Equal(t, "appointment cancel 7", f.model.rows[1].binding.String())
	require.NotNil(t, f.model.rows[2].task)
	assert.Equal(t, "t1", f.model.rows[2].task.ID)
}

func TestCursorStaysInRange(t *testing.T) {
	f := newFixture(t, patientPage, nil)

	f.key("k")
	assert.Equal(t, 0, f.model.cursor)
	for i := 0; i < 10; i++ {
		f.key("j")
	}
	assert.Equal(t, 2, f.model.cursor)
}

func TestEnterRunsSelectedBinding(t *testing.T) {
	f := newFixture(t, patientPage, nil)

	cmd := f.key("enter")
	require.NotNil(t, cmd)
	assert.Equal(t, 1, f.model.busy)

	msg := cmd()
	done, ok := msg.(ActionDoneMsg)
	require.True(t, ok)
	assert.Equal(t, domain.OutcomeNavigate, done.Outcome)
	assert.Equal(t, []string{"/appointments/video/7/"}, f.bridge.Navigations())

	f.model.Update(msg)
	assert.Equal(t, 0, f.model.busy)
	assert.Contains(t, f.model.status, "navigate")
}

func TestConfirmAnsweredFromKeys(t *testing.T) {
	f := newFixture(t, adminPage, nil)
	f.attach()

	cmd := f.key("enter")
	require.NotNil(t, cmd)
	result := make(chan tea.Msg, 1)
	go func() { result <- cmd() }()

	ask := f.waitAsk(t)
	assert.False(t, ask.Prompt)
	assert.Equal(t, "Are you sure you want to suspend this user?", ask.Question)
	f.model.Update(ask)
	assert.Contains(t, f.model.View(), "Are you sure you want to suspend this user?")

	f.key("y")
	assert.Nil(t, f.model.question)

	select {
	case msg := <-result:
		assert.Equal(t, domain.OutcomeMutate, msg.(ActionDoneMsg).Outcome)
	case <-time.After(2 * time.Second):
		t.Fatal("action did not finish")
	}
	assert.Equal(t, []string{"SuspendUser 21"}, f.backend.Calls())
}

func TestDeclinedConfirmSendsNothing(t *testing.T) {
	f := newFixture(t, adminPage, nil)
	f.attach()

	cmd := f.key("enter")
	result := make(chan tea.Msg, 1)
	go func() { result <- cmd() }()

	f.model.Update(f.waitAsk(t))
	f.key("n")

	msg := <-result
	assert.Equal(t, domain.OutcomeSkipped, msg.(ActionDoneMsg).Outcome)
	assert.Empty(t, f.backend.Calls())
}

func TestPromptAnsweredFromInput(t *testing.T) {
	f := newFixture(t, adminPage, nil)
	f.attach()
	f.key("j")

	cmd := f.key("enter")
	result := make(chan tea.Msg, 1)
	go func() { result <- cmd() }()

	ask := f.waitAsk(t)
	assert.True(t, ask.Prompt)
	f.model.Update(ask)
	f.typeText("expired")
	f.key("enter")

	msg := <-result
	assert.Equal(t, domain.OutcomeMutate, msg.(ActionDoneMsg).Outcome)
	assert.Equal(t, []string{"RejectVerification doctor 9 expired"}, f.backend.Calls())
}

func TestCancelledPromptSkips(t *testing.T) {
	f := newFixture(t, adminPage, nil)
	f.attach()
	f.key("j")

	cmd := f.key("enter")
	result := make(chan tea.Msg, 1)
	go func() { result <- cmd() }()

	f.model.Update(f.waitAsk(t))
	f.key("esc")

	msg := <-result
	assert.Equal(t, domain.OutcomeSkipped, msg.(ActionDoneMsg).Outcome)
	assert.Empty(t, f.backend.Calls())
}

func TestUnattachedBridgeDeclines(t *testing.T) {
	b := NewBridge(nil)
	assert.False(t, b.Confirm(context.Background(), "sure?"))
	text, ok := b.Prompt(context.Background(), "why?")
	assert.False(t, ok)
	assert.Empty(t, text)
}

func TestBridgeQuestionDeclinedWhenContextDone(t *testing.T) {
	b := NewBridge(nil)
	b.Attach(func(tea.Msg) {})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, b.Confirm(ctx, "sure?"))
}

func TestBridgeNavigateUsesOpener(t *testing.T) {
	var opened []string
	b := NewBridge(func(url string) error {
		opened = append(opened, url)
		return errors.New("no browser")
	})
	var msgs []tea.Msg
	b.Attach(func(msg tea.Msg) { msgs = append(msgs, msg) })

	b.Navigate("https://urbanmd.test/doctors/5/")

	assert.Equal(t, []string{"https://urbanmd.test/doctors/5/"}, opened)
	require.Len(t, msgs, 2)
	assert.Equal(t, StatusMsg{Text: "open failed: no browser"}, msgs[0])
	assert.Equal(t, view.OpNavigate, msgs[1].(ViewChangedMsg).Event.Op)
}

func TestToggleTaskFlipsLocalState(t *testing.T) {
	f := newFixture(t, patientPage, nil)
	f.key("j")
	f.key("j")

	cmd := f.key(" ")
	require.NotNil(t, cmd)
	assert.True(t, f.model.checked["t1"])
	assert.Contains(t, f.model.View(), "[x] Refill")

	cmd()
	assert.Equal(t, []string{"UpdateTask t1 completed"}, f.backend.Calls())

	f.key(" ")()
	assert.Equal(t, "UpdateTask t1 pending", f.backend.Calls()[1])
}

func TestSpaceOnBindingDoesNothing(t *testing.T) {
	f := newFixture(t, patientPage, nil)
	assert.Nil(t, f.key(" "))
}

func TestSearchMergesQueryIntoForm(t *testing.T) {
	f := newFixture(t, patientPage, nil)

	f.key("/")
	assert.True(t, f.model.searching)
	f.typeText("cardiology city=Dallas")
	cmd := f.key("enter")
	require.NotNil(t, cmd)
	assert.False(t, f.model.searching)

	msg := cmd()
	assert.Equal(t, domain.OutcomeMutate, msg.(ActionDoneMsg).Outcome)
	assert.Equal(t, []string{"SearchDoctors specialty=cardiology&city=Dallas"}, f.backend.Calls())

	f.model.Update(msg)
	var got []string
	for _, r := range f.model.rows {
		if r.binding != nil {
			got = append(got, r.binding.String())
		}
	}
	assert.Contains(t, got, "doctor book 5")
	assert.Contains(t, f.model.View(), "Doctor search: results")

	f.key("c")
	assert.Equal(t, dashboard.SearchHidden, f.model.ctrl.Search().State())
}

func TestSearchEscapeCancels(t *testing.T) {
	f := newFixture(t, patientPage, nil)
	f.key("/")
	f.typeText("x")
	assert.Nil(t, f.key("esc"))
	assert.False(t, f.model.searching)
	assert.Empty(t, f.backend.Calls())
}

func TestRefreshRunsRolePoller(t *testing.T) {
	f := newFixture(t, adminPage, nil)
	f.backend.stats = map[string]string{"cpu": "41%"}

	cmd := f.key("r")
	require.NotNil(t, cmd)
	f.model.Update(cmd())

	assert.Equal(t, []string{"SystemStats"}, f.backend.Calls())
	assert.Contains(t, f.model.View(), "cpu: 41%")
}

func TestReloadReplacesPage(t *testing.T) {
	fetched := 0
	fetch := func(context.Context) (*page.Document, error) {
		fetched++
		return page.ParseString(`<div data-user-type="ADMIN">
  <button class="user-action" data-action="activate" data-user-id="22">Activate</button>
</div>`)
	}
	f := newFixture(t, adminPage, fetch)

	_, cmd := f.model.Update(ViewChangedMsg{Event: view.Event{Op: view.OpReload}})
	require.NotNil(t, cmd)
	f.model.Update(cmd())

	assert.Equal(t, 1, fetched)
	require.Len(t, f.model.rows, 1)
	assert.Equal(t, "user activate 22", f.model.rows[0].binding.String())
	assert.Equal(t, "Page reloaded", f.model.status)
}

func TestReloadFailureKeepsPage(t *testing.T) {
	fetch := func(context.Context) (*page.Document, error) {
		return nil, errors.New("offline")
	}
	f := newFixture(t, adminPage, fetch)

	cmd := f.key("R")
	require.NotNil(t, cmd)
	f.model.Update(cmd())

	assert.Len(t, f.model.rows, 2)
	assert.Equal(t, "Reload failed: offline", f.model.status)
}

func TestNotificationsShownAsToasts(t *testing.T) {
	f := newFixture(t, patientPage, nil)

	f.center.Notify(domain.KindSuccess, "Appointment cancelled successfully")
	f.model.Update(NotificationsChangedMsg{})

	require.Len(t, f.model.toasts, 1)
	assert.Contains(t, f.model.View(), "Appointment cancelled successfully")
}

func TestQuitDeclinesPendingQuestion(t *testing.T) {
	f := newFixture(t, adminPage, nil)
	reply := make(chan Answer, 1)
	f.model.Update(AskMsg{Question: "sure?", Reply: reply})

	_, cmd := f.model.Update(tea.KeyMsg{Type: tea.KeyCtrlC})
	require.NotNil(t, cmd)
	assert.Equal(t, Answer{}, <-reply)
}

func TestSearchFieldsWithoutForm(t *testing.T) {
	f := newFixture(t, adminPage, nil)
	fields := f.model.searchFields("pediatrics")
	assert.Equal(t, []domain.FormField{{Name: "q", Value: "pediatrics"}}, fields)
}
