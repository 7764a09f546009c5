package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/urbanmd/urbanmd/internal/colors"
	"github.com/urbanmd/urbanmd/internal/config"
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/journal"
	"github.com/urbanmd/urbanmd/internal/page"
	"github.com/urbanmd/urbanmd/internal/tui/state"
	"github.com/urbanmd/urbanmd/internal/view"
)

const adminDashboard = `<html><body data-user-type="ADMIN">
  <div class="system-stats"><span data-system-stat="cpu">?</span></div>
  <button class="user-action" data-action="suspend" data-user-id="21">Suspend</button>
  <button class="verification-action" data-action="approve" data-type="doctor" data-id="9">Approve</button>
  <ul><li><input type="checkbox" class="task-checkbox" data-task-id="t1"> Review</li></ul>
</body></html>`

const profilePage = `<html><body>
  <form id="profile" data-ajax action="/api/profile/" method="post">
    <input name="first_name" value="Ana">
    <input name="city" value="Austin">
    <button type="submit">Save</button>
  </form>
</body></html>`

// fakeServer is a minimal backend that records API calls.
type fakeServer struct {
	*httptest.Server
	mu    sync.Mutex
	calls []string
	csrf  []string
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()
	f := &fakeServer{}
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, adminDashboard)
	})
	mux.HandleFunc("/profile/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, profilePage)
	})
	mux.HandleFunc("/api/", func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		call := r.Method + " " + r.URL.Path
		if len(body) > 0 && strings.HasPrefix(r.Header.Get("Content-Type"), "application/json") {
			call += " " + string(body)
		}
		f.mu.Lock()
		f.calls = append(f.calls, call)
		f.csrf = append(f.csrf, r.Header.Get("X-CSRFToken"))
		f.mu.Unlock()

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{"success": true}
		if r.URL.Path == "/api/profile/" {
			resp["message"] = "Profile saved"
		}
		json.NewEncoder(w).Encode(resp)
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeServer) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

// setupConfig points the configuration at srv and captures console output.
func setupConfig(t *testing.T, baseURL string, env map[string]string) (*bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("URBANMD_CONFIG_DIR", filepath.Join(dir, "config"))
	t.Setenv("URBANMD_STATE_DIR", filepath.Join(dir, "state"))
	t.Setenv("URBANMD_BASE_URL", baseURL)
	t.Setenv("URBANMD_COOKIE", "sessionid=abc; csrftoken=tok123")
	t.Setenv("URBANMD_HOOKS_ENABLED", "false")
	t.Setenv("URBANMD_RELOAD_DELAY_MS", "10")
	for k, v := range env {
		t.Setenv(k, v)
	}
	config.Load()

	var out, errOut bytes.Buffer
	colors.SetOutput(&out, &errOut)
	t.Cleanup(colors.ResetOutput)
	return &out, &errOut
}

// scriptAnswers feeds input to the console view's questions.
func scriptAnswers(t *testing.T, input string) *bytes.Buffer {
	t.Helper()
	var asked bytes.Buffer
	orig := headlessOptions
	headlessOptions = []view.HeadlessOption{view.WithInput(strings.NewReader(input)), view.WithOutput(&asked)}
	t.Cleanup(func() { headlessOptions = orig })
	return &asked
}

func execute(t *testing.T, c *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	c.SetOut(&out)
	c.SetErr(&out)
	c.SetArgs(args)
	err := c.ExecuteContext(context.Background())
	return out.String(), err
}

func TestParseFields(t *testing.T) {
	fields, err := parseFields([]string{"specialty=cardiology", "city=", " zip =78701"})
	require.NoError(t, err)
	assert.Equal(t, []domain.FormField{
		{Name: "specialty", Value: "cardiology"},
		{Name: "city", Value: ""},
		{Name: "zip", Value: "78701"},
	}, fields)

	_, err = parseFields([]string{"novalue"})
	assert.Error(t, err)
	_, err = parseFields([]string{"=x"})
	assert.Error(t, err)
}

func TestParseRole(t *testing.T) {
	tests := []struct {
		in   string
		want domain.Role
	}{
		{"PATIENT", domain.RolePatient},
		{"individual_provider", domain.RoleProvider},
		{"provider", domain.RoleProvider},
		{"Organization", domain.RoleOrganization},
		{"admin", domain.RoleAdmin},
	}
	for _, tt := range tests {
		got, err := parseRole(tt.in)
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
	_, err := parseRole("nurse")
	assert.Error(t, err)
}

func TestSelectForm(t *testing.T) {
	doc, err := page.ParseString(`<form id="a" data-ajax></form><form data-ajax action="/b/"></form><form id="plain"></form>`)
	require.NoError(t, err)

	f, err := selectForm(doc, "")
	require.NoError(t, err)
	assert.Equal(t, "a", f.ID)

	f, err = selectForm(doc, "1")
	require.NoError(t, err)
	assert.Equal(t, "/b/", f.Action)

	_, err = selectForm(doc, "plain")
	assert.Error(t, err)
	_, err = selectForm(doc, "5")
	assert.Error(t, err)

	empty, err := page.ParseString(`<p>none</p>`)
	require.NoError(t, err)
	_, err = selectForm(empty, "")
	assert.Error(t, err)
}

func TestActionConfirmedSendsRequestAndReloads(t *testing.T) {
	srv := newFakeServer(t)
	out, _ := setupConfig(t, srv.URL, nil)
	asked := scriptAnswers(t, "y\n")

	_, err := execute(t, NewActionCmd(), "user", "suspend", "21")
	require.NoError(t, err)

	assert.Equal(t, []string{"POST /api/admin/users/21/suspend/"}, srv.Calls())
	assert.Equal(t, []string{"tok123"}, srv.csrf)
	assert.Contains(t, asked.String(), "Are you sure you want to suspend this user?")
	assert.Contains(t, out.String(), "User suspended successfully")
	assert.Contains(t, out.String(), "Page reload requested")
}

func TestActionDeclinedSendsNothing(t *testing.T) {
	srv := newFakeServer(t)
	setupConfig(t, srv.URL, nil)
	scriptAnswers(t, "n\n")

	_, err := execute(t, NewActionCmd(), "user", "suspend", "21")
	require.NoError(t, err)
	assert.Empty(t, srv.Calls())
}

func TestActionVerificationTakesTypeThenID(t *testing.T) {
	srv := newFakeServer(t)
	setupConfig(t, srv.URL, nil)
	scriptAnswers(t, "")

	_, err := execute(t, NewActionCmd(), "verification", "approve", "doctor", "9")
	require.NoError(t, err)
	assert.Equal(t, []string{"POST /api/admin/verify/doctor/9/approve/"}, srv.Calls())
}

func TestActionRejectsUnknownSection(t *testing.T) {
	srv := newFakeServer(t)
	setupConfig(t, srv.URL, nil)

	_, err := execute(t, NewActionCmd(), "appointment", "cancel", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no section \"appointment\" for role admin")

	_, err = execute(t, NewActionCmd(), "user", "delete", "7")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has no action \"delete\"")
	assert.Empty(t, srv.Calls())
}

func TestActionList(t *testing.T) {
	srv := newFakeServer(t)
	setupConfig(t, srv.URL, nil)

	out, err := execute(t, NewActionCmd(), "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "user suspend 21")
	assert.Contains(t, out, "verification approve doctor/9")
}

func TestActionRoleOverride(t *testing.T) {
	srv := newFakeServer(t)
	setupConfig(t, srv.URL, map[string]string{"URBANMD_ROLE": "patient"})

	out, err := execute(t, NewActionCmd(), "--list")
	require.NoError(t, err)
	assert.Contains(t, out, "No actions on the patient dashboard")
}

func TestTaskCommand(t *testing.T) {
	srv := newFakeServer(t)
	out, _ := setupConfig(t, srv.URL, nil)

	_, err := execute(t, NewTaskCmd(), "t1", "completed")
	require.NoError(t, err)
	assert.Equal(t, []string{`POST /api/core/update-task/ {"taskId":"t1","status":"completed"}`}, srv.Calls())
	assert.Contains(t, out.String(), "Task t1 marked completed")

	_, err = execute(t, NewTaskCmd(), "t1", "done")
	assert.Error(t, err)
}

func TestStatsSystemPrintsPageStats(t *testing.T) {
	srv := newFakeServer(t)
	setupConfig(t, srv.URL, nil)

	_, err := execute(t, NewStatsCmd(), "system")
	require.NoError(t, err)
	assert.Equal(t, []string{"GET /api/admin/system-stats/"}, srv.Calls())

	_, err = execute(t, NewStatsCmd(), "weekly")
	assert.Error(t, err)
}

func TestSearchRequiresPatientDashboard(t *testing.T) {
	srv := newFakeServer(t)
	setupConfig(t, srv.URL, nil)

	_, err := execute(t, NewSearchCmd(), "-f", "specialty=cardiology")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "patient dashboard")
}

func TestSubmitCommand(t *testing.T) {
	srv := newFakeServer(t)
	out, _ := setupConfig(t, srv.URL, nil)

	_, err := execute(t, NewSubmitCmd(), "/profile/", "-f", "city=Dallas")
	require.NoError(t, err)
	assert.Equal(t, []string{"POST /api/profile/"}, srv.Calls())
	assert.Contains(t, out.String(), "Profile saved")
}

func TestHistoryListsJournaledOutcomes(t *testing.T) {
	srv := newFakeServer(t)
	setupConfig(t, srv.URL, map[string]string{"URBANMD_JOURNAL_ENABLED": "true"})
	scriptAnswers(t, "y\n")

	_, err := execute(t, NewActionCmd(), "user", "suspend", "21")
	require.NoError(t, err)

	out, err := execute(t, NewHistoryCmd(), "--limit", "5")
	require.NoError(t, err)
	assert.Contains(t, out, "mutate")
	assert.Contains(t, out, "user suspend 21")
	assert.Contains(t, out, "User suspended successfully")

	j, err := journal.Open(journalPath(), nil)
	require.NoError(t, err)
	defer j.Close()
	entries, err := j.Recent(context.Background(), 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestHistoryWithoutJournal(t *testing.T) {
	srv := newFakeServer(t)
	out, _ := setupConfig(t, srv.URL, nil)

	_, err := execute(t, NewHistoryCmd())
	require.NoError(t, err)
	assert.Contains(t, out.String(), "No outcomes recorded")
}

func TestDashboardCommandWiresTUI(t *testing.T) {
	srv := newFakeServer(t)
	setupConfig(t, srv.URL, nil)

	var got state.Config
	orig := runTUIFunc
	runTUIFunc = func(ctx context.Context, cfg state.Config, _ ...tea.ProgramOption) error {
		got = cfg
		doc, err := cfg.Fetch(ctx)
		require.NoError(t, err)
		assert.Equal(t, "ADMIN", doc.UserType())
		return nil
	}
	defer func() { runTUIFunc = orig }()

	_, err := execute(t, NewDashboardCmd())
	require.NoError(t, err)
	require.NotNil(t, got.Controller)
	assert.Equal(t, domain.RoleAdmin, got.Controller.Role())
	assert.NotNil(t, got.Center)
	assert.NotNil(t, got.Bridge)
}

func TestWarnsWhenSessionHasNoCSRFToken(t *testing.T) {
	srv := newFakeServer(t)
	out, errOut := setupConfig(t, srv.URL, map[string]string{"URBANMD_COOKIE": "sessionid=abc"})

	_, err := execute(t, NewActionCmd(), "--list")
	require.NoError(t, err)
	assert.Contains(t, out.String()+errOut.String(), "no CSRF token in the session cookies")
}
