package dashboard

import (
	"context"
	"net/http"
	"sort"
	"sync"
	"time"

	"github.com/urbanmd/urbanmd/internal/api"
	"github.com/urbanmd/urbanmd/internal/dispatch"
	"github.com/urbanmd/urbanmd/internal/domain"
	"github.com/urbanmd/urbanmd/internal/page"
	"github.com/urbanmd/urbanmd/internal/view"
)

// RefreshQueue replaces the patient queue with the server's fragment and
// rebinds the appointment actions inside it. Failures are logged only.
func (c *Controller) RefreshQueue(ctx context.Context) domain.Outcome {
	return c.perf.Perform(ctx, dispatch.Call{
		Section: "queue",
		Request: domain.ActionRequest{ActionName: "refresh", Endpoint: api.QueuePath, Method: http.MethodGet},
		Send: func(ctx context.Context, _ string) (*domain.Response, error) {
			return c.backend.Queue(ctx)
		},
		Quiet: true,
		Then: func(_ context.Context, resp *domain.Response) domain.Outcome {
			if resp.HTML == "" {
				return domain.OutcomeMutate
			}
			// Store before rendering: views rebuild their bindings on the
			// fragment event.
			fragment, err := page.ParseFragment(resp.HTML)
			if err != nil {
				c.logger.Warn("queue fragment unreadable", "error", err)
			} else {
				c.mu.Lock()
				c.queueDoc = fragment
				c.mu.Unlock()
			}
			c.perf.View().RenderFragment(view.RegionQueue, resp.HTML)
			return domain.OutcomeMutate
		},
	})
}

// RefreshOrganizationStats updates every data-stat node from the server.
func (c *Controller) RefreshOrganizationStats(ctx context.Context) domain.Outcome {
	return c.perf.Perform(ctx, dispatch.Call{
		Section: "stats",
		Request: domain.ActionRequest{ActionName: "refresh", Endpoint: api.OrganizationStatsPath, Method: http.MethodGet},
		Send: func(ctx context.Context, _ string) (*domain.Response, error) {
			return c.backend.OrganizationStats(ctx)
		},
		Success: "Stats updated",
		Failure: "Failed to refresh stats",
		Error:   "Failed to refresh stats",
		Then: func(_ context.Context, resp *domain.Response) domain.Outcome {
			c.applyStats(AttrStat, resp.Stats)
			return domain.OutcomeMutate
		},
	})
}

// RefreshSystemStats updates every data-system-stat node. Failures are
// logged only.
func (c *Controller) RefreshSystemStats(ctx context.Context) domain.Outcome {
	return c.perf.Perform(ctx, dispatch.Call{
		Section: "system-stats",
		Request: domain.ActionRequest{ActionName: "refresh", Endpoint: api.SystemStatsPath, Method: http.MethodGet},
		Send: func(ctx context.Context, _ string) (*domain.Response, error) {
			return c.backend.SystemStats(ctx)
		},
		Quiet: true,
		Then: func(_ context.Context, resp *domain.Response) domain.Outcome {
			c.applyStats(AttrSystemStat, resp.Stats)
			return domain.OutcomeMutate
		},
	})
}

// applyStats sets the text of each tagged node present on the page; keys
// without a node are ignored.
func (c *Controller) applyStats(attr string, stats map[string]string) {
	doc := c.Document()
	keys := make([]string, 0, len(stats))
	for k := range stats {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		if _, ok := doc.TextOf(attr, key); !ok {
			continue
		}
		c.perf.View().SetText(view.StatRegion(attr, key), stats[key])
	}
}

// Poller names.
const (
	PollQueue       = "queue"
	PollSystemStats = "system-stats"
)

// Pollers returns the background refreshes this page runs: the queue for
// providers with a queue on the page, system stats for admins with a stats
// panel.
func (c *Controller) Pollers() []string {
	doc := c.Document()
	var out []string
	if c.role == domain.RoleProvider && doc.HasClass(ClassPatientQueue) {
		out = append(out, PollQueue)
	}
	if c.role == domain.RoleAdmin && doc.HasClass(ClassSystemStats) {
		out = append(out, PollSystemStats)
	}
	return out
}

// Run starts the pollers and blocks until ctx is done. Cancelling ctx is the
// equivalent of leaving the page.
func (c *Controller) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for _, name := range c.Pollers() {
		name := name
		switch name {
		case PollQueue:
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.poll(ctx, name, c.queueEvery, c.RefreshQueue)
			}()
		case PollSystemStats:
			wg.Add(1)
			go func() {
				defer wg.Done()
				c.poll(ctx, name, c.systemEvery, c.RefreshSystemStats)
			}()
		}
	}
	<-ctx.Done()
	wg.Wait()
}

func (c *Controller) poll(ctx context.Context, name string, every time.Duration, refresh func(context.Context) domain.Outcome) {
	ticks, stop := c.ticker(every)
	defer stop()
	c.logger.Debug("poller started", "poller", name, "interval", every.String())
	for {
		select {
		case <-ctx.Done():
			c.logger.Debug("poller stopped", "poller", name)
			return
		case <-ticks:
			refresh(ctx)
		}
	}
}
