// Package dashboard binds the role-specific action sections of the dashboard
// page to backend calls and runs the background refreshes.
package dashboard

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/urbanmd/urbanmd/internal/api"
	"github.com/urbanmd/urbanmd/internal/dispatch"
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/logging"
	"github.com/urbanmd/urbanmd/internal/page"
)

// Default refresh intervals.
const (
	DefaultQueueInterval       = 30 * time.Second
	DefaultSystemStatsInterval = 60 * time.Second
)

// TickerFunc starts a ticker; stop releases it.
type TickerFunc func(d time.Duration) (ticks <-chan time.Time, stop func())

func realTicker(d time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(d)
	return t.C, t.Stop
}

// Controller is the dashboard for one role. The role is fixed at
// construction; the page document may be replaced on reload.
type Controller struct {
	role     domain.Role
	backend  Backend
	perf     *dispatch.Performer
	logger   logging.Logger
	sections []Section
	search   *DoctorSearch

	queueEvery  time.Duration
	systemEvery time.Duration
	ticker      TickerFunc

	mu       sync.RWMutex
	doc      *page.Document
	queueDoc *page.Document
}

// Option configures a Controller.
type Option func(*Controller)

// WithRole overrides the role read from the page.
func WithRole(r domain.Role) Option {
	return func(c *Controller) { c.role = r }
}

// WithQueueInterval overrides DefaultQueueInterval.
func WithQueueInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.queueEvery = d
		}
	}
}

// WithSystemStatsInterval overrides DefaultSystemStatsInterval.
func WithSystemStatsInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.systemEvery = d
		}
	}
}

// WithTicker replaces time.NewTicker for the pollers.
func WithTicker(t TickerFunc) Option {
	return func(c *Controller) {
		if t != nil {
			c.ticker = t
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// New builds the controller for doc. The role comes from the page's
// data-user-type unless WithRole is given; an unknown role binds only the
// sections every page shares.
func New(doc *page.Document, backend Backend, perf *dispatch.Performer, opts ...Option) *Controller {
	c := &Controller{
		backend:     backend,
		perf:        perf,
		logger:      logging.Nop(),
		queueEvery:  DefaultQueueInterval,
		systemEvery: DefaultSystemStatsInterval,
		ticker:      realTicker,
		doc:         doc,
	}
	if role, err := domain.ParseRole(doc.UserType()); err == nil {
		c.role = role
	}
	for _, opt := range opts {
		opt(c)
	}

	switch c.role {
	case domain.RolePatient:
		c.sections = patientSections()
		c.search = newDoctorSearch(backend, perf)
	case domain.RoleProvider:
		c.sections = providerSections()
	case domain.RoleOrganization:
		c.sections = organizationSections()
	case domain.RoleAdmin:
		c.sections = adminSections()
	default:
		c.logger.Warn("no dashboard for user type", "user_type", doc.UserType())
	}
	c.logger.Info("dashboard bound", "role", c.role.String(), "sections", len(c.sections))
	return c
}

// Role returns the role selected at construction.
func (c *Controller) Role() domain.Role { return c.role }

// Sections returns the role's sections.
func (c *Controller) Sections() []Section {
	return append([]Section(nil), c.sections...)
}

// Section looks up a section by name.
func (c *Controller) Section(name string) (Section, bool) {
	for _, s := range c.sections {
		if s.Name == name {
			return s, true
		}
	}
	return Section{}, false
}

// Search returns the doctor search, nil unless the role is patient.
func (c *Controller) Search() *DoctorSearch { return c.search }

// Performer returns the performer actions run through.
func (c *Controller) Performer() *dispatch.Performer { return c.perf }

// Document returns the current page.
func (c *Controller) Document() *page.Document {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.doc
}

// Replace swaps in a reloaded page. The role stays as selected.
func (c *Controller) Replace(doc *page.Document) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.doc = doc
	c.queueDoc = nil
}

// Trigger runs the action an element names, choosing the section by the
// element's class (or data-doctor-id for doctor cards).
func (c *Controller) Trigger(ctx context.Context, el page.Element) domain.Outcome {
	for _, s := range c.sections {
		if (s.Class != "" && el.HasClass(s.Class)) || (s.Class == "" && el.Data(s.IDAttr) != "") {
			return c.run(ctx, s, el)
		}
	}
	return c.perf.Skip(ctx, "", domain.ActionRequest{ActionName: el.Action()}, dispatch.ErrUnknownAction)
}

// Invoke runs section/action for ids as if its button were clicked.
// Verification takes type then id.
func (c *Controller) Invoke(ctx context.Context, section, action string, ids ...string) domain.Outcome {
	s, ok := c.Section(section)
	if !ok {
		return c.perf.Skip(ctx, section, domain.ActionRequest{ActionName: action}, dispatch.ErrUnknownAction)
	}
	return c.run(ctx, s, s.Element(action, ids...))
}

func (c *Controller) run(ctx context.Context, s Section, el page.Element) domain.Outcome {
	action := el.Action()
	inv := Invocation{Section: s.Name, Action: action, Target: s.Target(el)}

	behavior, ok := s.Actions[action]
	if !ok {
		return c.perf.Skip(ctx, s.Name, inv.request("", ""), dispatch.ErrUnknownAction)
	}
	if !s.complete(inv.Target) {
		return c.perf.Skip(ctx, s.Name, inv.request("", ""), dispatch.ErrMissingTarget)
	}
	return behavior(ctx, c, inv)
}

// Bindings lists the actionable elements on the page (and in refreshed
// fragments) for the role's sections.
func (c *Controller) Bindings() []Binding {
	c.mu.RLock()
	doc, queueDoc := c.doc, c.queueDoc
	c.mu.RUnlock()

	// A refreshed queue replaces the page's queue contents.
	elements := doc.ByClass
	if queueDoc != nil {
		elements = func(class string) []page.Element {
			return append(doc.ByClassOutside(class, ClassPatientQueue), queueDoc.ByClass(class)...)
		}
	}

	seen := map[string]bool{}
	var out []Binding
	add := func(b Binding) {
		if key := b.String(); !seen[key] {
			seen[key] = true
			out = append(out, b)
		}
	}

	for _, s := range c.sections {
		if s.Class == "" {
			continue
		}
		for _, el := range elements(s.Class) {
			t := s.Target(el)
			if _, ok := s.Actions[el.Action()]; !ok || !s.complete(t) {
				continue
			}
			add(Binding{Section: s.Name, Action: el.Action(), Target: t, Label: el.Text})
		}
	}
	if c.search != nil {
		for _, card := range c.search.Cards() {
			if card.CanBook {
				add(Binding{Section: SectionDoctor, Action: "book", Target: Target{ID: card.ID}, Label: card.Name})
			}
			if card.CanProfile {
				add(Binding{Section: SectionDoctor, Action: "profile", Target: Target{ID: card.ID}, Label: card.Name})
			}
		}
	}
	return out
}

// Tasks returns the task checkboxes on the page.
func (c *Controller) Tasks() []page.Task {
	return c.Document().Tasks()
}

// ToggleTask records a checkbox change. Failures are logged only.
func (c *Controller) ToggleTask(ctx context.Context, taskID string, completed bool) domain.Outcome {
	status := api.TaskPending
	if completed {
		status = api.TaskCompleted
	}
	req := domain.ActionRequest{ActionName: status, TargetID: taskID, Endpoint: api.UpdateTaskPath, Method: http.MethodPost}
	if taskID == "" {
		return c.perf.Skip(ctx, "task", req, dispatch.ErrMissingTarget)
	}
	return c.perf.Perform(ctx, dispatch.Call{
		Section: "task",
		Request: req,
		Send: func(ctx context.Context, _ string) (*domain.Response, error) {
			return c.backend.UpdateTask(ctx, taskID, status)
		},
		Quiet: true,
	})
}
