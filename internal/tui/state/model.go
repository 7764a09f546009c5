package state

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/urbanmd/urbanmd/internal/dashboard"
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/logging"
	"github.com/urbanmd/urbanmd/internal/notify"
	"github.com/urbanmd/urbanmd/internal/page"
	"github.com/urbanmd/urbanmd/internal/view"
)

// defaultSearchField receives bare words typed into the search box when the
// page has no doctor search form.
const defaultSearchField = "q"

// Fetcher loads the dashboard page again.
type Fetcher func(ctx context.Context) (*page.Document, error)

// Config wires the model to a running dashboard.
type Config struct {
	Controller *dashboard.Controller
	Center     *notify.Center
	Bridge     *Bridge
	Fetch      Fetcher
	Logger     logging.Logger
}

// row is either an actionable binding or a task checkbox.
type row struct {
	binding *dashboard.Binding
	task    *page.Task
}

// Model is the BubbleTea model of the dashboard.
type Model struct {
	ctx    context.Context
	ctrl   *dashboard.Controller
	center *notify.Center
	bridge *Bridge
	fetch  Fetcher
	logger logging.Logger

	rows     []row
	checked  map[string]bool
	cursor   int
	toasts   []domain.NotificationEntry
	question *AskMsg
	input    textinput.Model
	// searching is true while the doctor search query is being typed.
	searching bool
	busy      int
	status    string
	width     int
	height    int
}

// NewModel creates the model. ctx bounds every action it starts.
func NewModel(ctx context.Context, cfg Config) *Model {
	ti := textinput.New()
	ti.Prompt = "> "
	ti.CharLimit = 256

	logger := cfg.Logger
	if logger == nil {
		logger = logging.Nop()
	}
	m := &Model{
		ctx:     ctx,
		ctrl:    cfg.Controller,
		center:  cfg.Center,
		bridge:  cfg.Bridge,
		fetch:   cfg.Fetch,
		logger:  logger,
		checked: map[string]bool{},
		input:   ti,
	}
	m.refreshRows()
	return m
}

// Init initializes the model.
func (m *Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(msg.Width-6, 10)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case NotificationsChangedMsg:
		if m.center != nil {
			m.toasts = m.center.Active()
		}
		return m, nil

	case ViewChangedMsg:
		switch msg.Event.Op {
		case view.OpReload:
			return m, m.reload()
		case view.OpNavigate:
			m.status = "Opened " + msg.Event.Value
		case view.OpFragment:
			m.refreshRows()
		}
		return m, nil

	case AskMsg:
		m.question = &msg
		if msg.Prompt {
			m.input.Reset()
			m.input.Placeholder = ""
			return m, m.input.Focus()
		}
		return m, nil

	case ActionDoneMsg:
		if m.busy > 0 {
			m.busy--
		}
		m.status = fmt.Sprintf("%s: %s", msg.Name, msg.Outcome)
		m.refreshRows()
		return m, nil

	case ReloadedMsg:
		if msg.Err != nil {
			m.logger.Error("page reload failed", "error", msg.Err)
			m.status = "Reload failed: " + msg.Err.Error()
			return m, nil
		}
		m.checked = map[string]bool{}
		m.refreshRows()
		m.status = "Page reloaded"
		return m, nil

	case StatusMsg:
		m.status = msg.Text
		return m, nil
	}

	if m.question != nil || m.searching {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.answer(Answer{})
		return m, tea.Quit
	}
	if m.question != nil {
		return m.handleQuestionKey(msg)
	}
	if m.searching {
		return m.handleSearchKey(msg)
	}

	switch msg.String() {
	case "q":
		return m, tea.Quit
	case "j", "down":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "k", "up":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter":
		return m, m.activate()
	case " ", "x":
		return m, m.toggleSelectedTask()
	case "/":
		m.searching = true
		m.input.Reset()
		m.input.Placeholder = "specialty=cardiology city=Austin"
		return m, m.input.Focus()
	case "c":
		if search := m.ctrl.Search(); search != nil && search.State() != dashboard.SearchHidden {
			search.Close()
			m.refreshRows()
		}
	case "r":
		return m, m.refresh()
	case "R":
		return m, m.reload()
	}
	return m, nil
}

func (m *Model) handleQuestionKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.question.Prompt {
		switch msg.Type {
		case tea.KeyEsc:
			m.answer(Answer{})
			return m, nil
		case tea.KeyEnter:
			m.answer(Answer{Text: m.input.Value(), OK: true})
			return m, nil
		}
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}

	switch msg.String() {
	case "y", "Y":
		m.answer(Answer{OK: true})
	case "n", "N", "esc", "enter":
		m.answer(Answer{})
	}
	return m, nil
}

func (m *Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyEsc:
		m.searching = false
		m.input.Blur()
		return m, nil
	case tea.KeyEnter:
		m.searching = false
		m.input.Blur()
		fields := m.searchFields(m.input.Value())
		search := m.ctrl.Search()
		if search == nil {
			m.status = "Doctor search is not available for this role"
			return m, nil
		}
		return m, m.run("search", func(ctx context.Context) domain.Outcome {
			if search.Submit(ctx, fields) == dashboard.SearchResults {
				return domain.OutcomeMutate
			}
			return domain.OutcomeSkipped
		})
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// answer replies to the pending question, if any.
func (m *Model) answer(a Answer) {
	if m.question == nil {
		return
	}
	m.question.Reply <- a
	m.question = nil
	m.input.Blur()
}

// activate runs the selected binding or toggles the selected task.
func (m *Model) activate() tea.Cmd {
	if m.cursor >= len(m.rows) {
		return nil
	}
	r := m.rows[m.cursor]
	if r.task != nil {
		return m.toggleSelectedTask()
	}
	b := *r.binding
	return m.run(b.String(), func(ctx context.Context) domain.Outcome {
		return m.ctrl.Invoke(ctx, b.Section, b.Action, b.IDs()...)
	})
}

func (m *Model) toggleSelectedTask() tea.Cmd {
	if m.cursor >= len(m.rows) || m.rows[m.cursor].task == nil {
		return nil
	}
	task := *m.rows[m.cursor].task
	completed := !m.isChecked(task)
	m.checked[task.ID] = completed
	return m.run("task "+task.ID, func(ctx context.Context) domain.Outcome {
		return m.ctrl.ToggleTask(ctx, task.ID, completed)
	})
}

// refresh runs the role's on-demand refresh.
func (m *Model) refresh() tea.Cmd {
	switch m.ctrl.Role() {
	case domain.RoleProvider:
		return m.run("queue", m.ctrl.RefreshQueue)
	case domain.RoleOrganization:
		return m.run("stats", m.ctrl.RefreshOrganizationStats)
	case domain.RoleAdmin:
		return m.run("system stats", m.ctrl.RefreshSystemStats)
	default:
		return m.reload()
	}
}

// run executes fn off the update loop so questions can be answered while it
// blocks.
func (m *Model) run(name string, fn func(context.Context) domain.Outcome) tea.Cmd {
	m.busy++
	ctx := m.ctx
	return func() tea.Msg {
		return ActionDoneMsg{Name: name, Outcome: fn(ctx)}
	}
}

func (m *Model) reload() tea.Cmd {
	if m.fetch == nil {
		m.status = "Reload requested"
		return nil
	}
	m.status = "Reloading..."
	ctx, fetch, ctrl := m.ctx, m.fetch, m.ctrl
	return func() tea.Msg {
		doc, err := fetch(ctx)
		if err != nil {
			return ReloadedMsg{Err: err}
		}
		ctrl.Replace(doc)
		return ReloadedMsg{}
	}
}

func (m *Model) isChecked(t page.Task) bool {
	if v, ok := m.checked[t.ID]; ok {
		return v
	}
	return t.Checked
}

// refreshRows rebuilds the list from the current page and keeps the cursor
// in range.
func (m *Model) refreshRows() {
	var rows []row
	for _, b := range m.ctrl.Bindings() {
		b := b
		rows = append(rows, row{binding: &b})
	}
	for _, t := range m.ctrl.Tasks() {
		if t.ID == "" {
			continue
		}
		t := t
		rows = append(rows, row{task: &t})
	}
	m.rows = rows
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

// searchFields turns "key=value" tokens into form fields on top of the
// page's search form. Other words become the value of the form's first field.
func (m *Model) searchFields(query string) []domain.FormField {
	form, ok := m.ctrl.Document().FormByID(dashboard.DoctorSearchFormID)
	if !ok {
		form = page.Form{}
	}
	defaultField := defaultSearchField
	if len(form.Fields) > 0 {
		defaultField = form.Fields[0].Name
	}

	var words []string
	for _, token := range strings.Fields(query) {
		if key, value, found := strings.Cut(token, "="); found && key != "" {
			form.Set(key, value)
			continue
		}
		words = append(words, token)
	}
	if len(words) > 0 {
		form.Set(defaultField, strings.Join(words, " "))
	}
	return form.Fields
}
