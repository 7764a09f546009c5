package dashboard

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/urbanmd/urbanmd/internal/clock"
	"github.com/urbanmd/urbanmd/internal/dispatch"
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/notify"
	"github.com/urbanmd/urbanmd/internal/page"
	"github.com/urbanmd/urbanmd/internal/view"
)

// fakeBackend records calls as "Method arg..." and answers from replies,
// keyed by method name; unknown methods answer success.
type fakeBackend struct {
	mu      sync.Mutex
	calls   []string
	replies map[string]*domain.Response
	errs    map[string]error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{replies: map[string]*domain.Response{}, errs: map[string]error{}}
}

func (f *fakeBackend) reply(method string, resp *domain.Response) { f.replies[method] = resp }

func (f *fakeBackend) fail(method string, err error) { f.errs[method] = err }

func (f *fakeBackend) record(method string, args ...string) (*domain.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, strings.TrimSpace(method+" "+strings.Join(args, " ")))
	if err := f.errs[method]; err != nil {
		return nil, err
	}
	if resp, ok := f.replies[method]; ok {
		return resp, nil
	}
	return &domain.Response{Success: true}, nil
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) UpdateTask(_ context.Context, taskID, status string) (*domain.Response, error) {
	return f.record("UpdateTask", taskID, status)
}

func (f *fakeBackend) SearchDoctors(_ context.Context, fields []domain.FormField) (*domain.Response, error) {
	var args []string
	for _, field := range fields {
		args = append(args, field.Name+"="+field.Value)
	}
	return f.record("SearchDoctors", args...)
}

func (f *fakeBackend) CancelAppointment(_ context.Context, id string) (*domain.Response, error) {
	return f.record("CancelAppointment", id)
}

func (f *fakeBackend) StartAppointment(_ context.Context, id string) (*domain.Response, error) {
	return f.record("StartAppointment", id)
}

func (f *fakeBackend) Queue(context.Context) (*domain.Response, error) {
	return f.record("Queue")
}

func (f *fakeBackend) OrganizationStats(context.Context) (*domain.Response, error) {
	return f.record("OrganizationStats")
}

func (f *fakeBackend) SystemStats(context.Context) (*domain.Response, error) {
	return f.record("SystemStats")
}

func (f *fakeBackend) SuspendUser(_ context.Context, id string) (*domain.Response, error) {
	return f.record("SuspendUser", id)
}

func (f *fakeBackend) ActivateUser(_ context.Context, id string) (*domain.Response, error) {
	return f.record("ActivateUser", id)
}

func (f *fakeBackend) ApproveVerification(_ context.Context, kind, id string) (*domain.Response, error) {
	return f.record("ApproveVerification", kind, id)
}

func (f *fakeBackend) RejectVerification(_ context.Context, kind, id, reason string) (*domain.Response, error) {
	return f.record("RejectVerification", kind, id, reason)
}

type harness struct {
	backend *fakeBackend
	view    *view.Recorder
	notes   *notify.Recorder
	clock   *clock.Manual
	ctl     *Controller
}

func newHarness(t *testing.T, html string, opts ...Option) *harness {
	t.Helper()
	doc, err := page.ParseString(html)
	require.NoError(t, err)
	h := &harness{
		backend: newFakeBackend(),
		view:    view.NewRecorder(),
		notes:   &notify.Recorder{},
		clock:   clock.NewManual(time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)),
	}
	perf := dispatch.NewPerformer(h.view, h.notes, dispatch.WithScheduler(h.clock))
	h.ctl = New(doc, h.backend, perf, opts...)
	return h
}

func (h *harness) lastNote() notify.Message {
	m, _ := h.notes.Last()
	return m
}
