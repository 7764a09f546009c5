package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/urbanmd/urbanmd/internal/api"
	"github.com/urbanmd/urbanmd/internal/clock"
	"github.com/urbanmd/urbanmd/internal/colors"
	"github.com/urbanmd/urbanmd/internal/config"
	"github.com/urbanmd/urbanmd/internal/dashboard"
	"github.com/urbanmd/urbanmd/internal/dispatch"
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/form"
	"github.com/urbanmd/urbanmd/internal/hooks"
	"github.com/urbanmd/urbanmd/internal/journal"
	"github.com/urbanmd/urbanmd/internal/logging"
	"github.com/urbanmd/urbanmd/internal/notify"
	"github.com/urbanmd/urbanmd/internal/page"
	"github.com/urbanmd/urbanmd/internal/session"
	"github.com/urbanmd/urbanmd/internal/view"
)

// runtime is everything one command run shares: the session, the backend
// client, the notification center and the dispatch machinery bound to a view.
type runtime struct {
	logger  logging.Logger
	session *session.Session
	client  *api.Client
	center  *notify.Center
	timers  *clock.Tracker
	perf    *dispatch.Performer
	forms   *form.Handler
	hooks   *hooks.Runner
	journal *journal.Journal
}

// runtimeOptions selects the view and the extra notification sinks.
type runtimeOptions struct {
	View  view.View
	Sinks []notify.Sink
}

// newRuntimeFunc builds the runtime; tests replace it.
var newRuntimeFunc = newRuntime

func newRuntime(ctx context.Context, opts runtimeOptions) (*runtime, error) {
	logger := logging.GetGlobal()
	runner := hooks.FromConfig(logger)

	centerOpts := []notify.Option{
		notify.WithTimings(notify.TimingsFromConfig()),
		notify.WithLogger(logger),
		notify.WithSink(runner),
	}
	for _, s := range opts.Sinks {
		centerOpts = append(centerOpts, notify.WithSink(s))
	}
	center := notify.NewCenter(centerOpts...)

	timeout := config.GetDuration("request_timeout_ms", 15*time.Second)
	sess, err := session.Bootstrap(ctx, session.Options{
		BaseURL:       config.Get("base_url", ""),
		DashboardPath: config.Get("dashboard_path", "/"),
		CookieHeader:  config.Get("cookie", ""),
		CookieName:    config.Get("csrf_cookie_name", session.DefaultCookieName),
		HTTPClient:    &http.Client{Timeout: timeout},
		Notifier:      center,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}
	if _, err := sess.RequireCSRF(); err != nil {
		colors.Warning("no CSRF token in the session cookies; the backend will reject actions")
	}
	client := api.FromSession(sess, timeout, api.WithLogger(logger))

	observers := domain.Observers{runner}
	var j *journal.Journal
	if config.GetBool("journal_enabled", false) {
		j, err = journal.Open(journalPath(), logger)
		if err != nil {
			colors.Warning(fmt.Sprintf("outcome journal disabled: %v", err))
			j = nil
		} else {
			observers = append(observers, j)
		}
	}

	timers := clock.NewTracker(clock.Real{})
	perf := dispatch.ForSession(opts.View, sess,
		dispatch.WithScheduler(timers),
		dispatch.WithReloadDelay(config.GetDuration("reload_delay_ms", dispatch.DefaultReloadDelay)),
		dispatch.WithLogger(logger),
		dispatch.WithObserver(observers),
	)
	forms := form.ForSession(client, opts.View, sess,
		form.WithLogger(logger),
		form.WithObserver(observers),
	)

	return &runtime{
		logger:  logger,
		session: sess,
		client:  client,
		center:  center,
		timers:  timers,
		perf:    perf,
		forms:   forms,
		hooks:   runner,
		journal: j,
	}, nil
}

func journalPath() string {
	return filepath.Join(config.Get("state_dir", ""), journal.FileName)
}

// page fetches and parses path with the session cookies.
func (rt *runtime) page(ctx context.Context, path string) (*page.Document, error) {
	body, err := rt.client.FetchPage(ctx, path)
	if err != nil {
		return nil, err
	}
	return page.Parse(bytes.NewReader(body))
}

// dashboard fetches the dashboard page and binds its role.
func (rt *runtime) dashboard(ctx context.Context) (*dashboard.Controller, error) {
	doc, err := rt.page(ctx, config.Get("dashboard_path", "/"))
	if err != nil {
		return nil, fmt.Errorf("load dashboard: %w", err)
	}
	opts := []dashboard.Option{
		dashboard.WithQueueInterval(config.GetDuration("queue_refresh_ms", dashboard.DefaultQueueInterval)),
		dashboard.WithSystemStatsInterval(config.GetDuration("system_stats_refresh_ms", dashboard.DefaultSystemStatsInterval)),
		dashboard.WithLogger(rt.logger),
	}
	if name := config.Get("role", ""); name != "" {
		role, err := parseRole(name)
		if err != nil {
			return nil, err
		}
		opts = append(opts, dashboard.WithRole(role))
	}
	return dashboard.New(doc, rt.client, rt.perf, opts...), nil
}

// settle waits for scheduled follow-ups (delayed reloads) and async hooks so
// a one-shot command does not exit under them.
func (rt *runtime) settle(ctx context.Context) {
	wait := rt.perf.ReloadDelay() + time.Second
	waitCtx, cancel := context.WithTimeout(ctx, wait)
	defer cancel()
	if !rt.timers.Wait(waitCtx) {
		rt.logger.Debug("exiting with follow-ups pending")
	}
	rt.hooks.Wait()
}

func (rt *runtime) Close() {
	if rt.journal != nil {
		if err := rt.journal.Close(); err != nil {
			rt.logger.Warn("close journal", "error", err)
		}
	}
}

// parseRole accepts a data-user-type tag or a role's display name.
func parseRole(name string) (domain.Role, error) {
	if role, err := domain.ParseRole(name); err == nil {
		return role, nil
	}
	for _, role := range []domain.Role{domain.RolePatient, domain.RoleProvider, domain.RoleOrganization, domain.RoleAdmin} {
		if strings.EqualFold(role.String(), strings.TrimSpace(name)) {
			return role, nil
		}
	}
	return domain.RoleUnknown, fmt.Errorf("unknown role %q", name)
}

// headlessOptions are appended to every console view; tests use them to
// script answers.
var headlessOptions []view.HeadlessOption

// newHeadless is the console view for one-shot commands.
func newHeadless() *view.Headless {
	var opts []view.HeadlessOption
	if config.GetBool("open_browser", false) {
		opts = append(opts, view.WithOpener(view.CommandOpener(config.Get("browser_command", "xdg-open"))))
	}
	return view.NewHeadless(append(opts, headlessOptions...)...)
}

// oneShot wires a headless runtime that prints notifications to the console.
func oneShot(ctx context.Context) (*runtime, error) {
	return newRuntimeFunc(ctx, runtimeOptions{View: newHeadless(), Sinks: []notify.Sink{notify.ConsoleSink{}}})
}

// parseFields turns key=value flags into form fields, keeping their order.
func parseFields(pairs []string) ([]domain.FormField, error) {
	var out []domain.FormField
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("invalid field %q: expected key=value", pair)
		}
		out = append(out, domain.FormField{Name: strings.TrimSpace(key), Value: value})
	}
	return out, nil
}
