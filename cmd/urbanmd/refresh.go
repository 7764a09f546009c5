package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/urbanmd/urbanmd/cmd"
	"github.com/urbanmd/urbanmd/internal/config"
	"github.com/urbanmd/urbanmd/internal/dashboard"
	"github.com/urbanmd/urbanmd/internal/domain"
)

// refreshFunc is one of the controller's refresh operations.
type refreshFunc func(context.Context) domain.Outcome

// NewQueueCmd creates the queue command.
func NewQueueCmd() *cobra.Command {
	var watch bool
	queueCmd := &cobra.Command{
		Use:   "queue [--watch]",
		Short: "Show the provider's patient queue",
		Long: `Fetch the provider's patient queue and print it.

With --watch the queue is fetched again every queue_refresh_ms until
interrupted.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			every := config.GetDuration("queue_refresh_ms", dashboard.DefaultQueueInterval)
			return runRefresh(c, watch, every, func(ctrl *dashboard.Controller) refreshFunc {
				return ctrl.RefreshQueue
			})
		},
	}
	queueCmd.Flags().BoolVar(&watch, "watch", false, "Keep refreshing until interrupted")
	return queueCmd
}

// NewStatsCmd creates the stats command.
func NewStatsCmd() *cobra.Command {
	var watch bool
	statsCmd := &cobra.Command{
		Use:   "stats <organization|system> [--watch]",
		Short: "Refresh organization or system stats",
		Long: `Refresh the stats panel of the organization or admin dashboard.

Only stats the page shows are printed. With --watch the stats are refreshed
every system_stats_refresh_ms until interrupted.`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{"organization", "system"},
		RunE: func(c *cobra.Command, args []string) error {
			every := config.GetDuration("system_stats_refresh_ms", dashboard.DefaultSystemStatsInterval)
			switch args[0] {
			case "organization":
				return runRefresh(c, watch, every, func(ctrl *dashboard.Controller) refreshFunc {
					return ctrl.RefreshOrganizationStats
				})
			case "system":
				return runRefresh(c, watch, every, func(ctrl *dashboard.Controller) refreshFunc {
					return ctrl.RefreshSystemStats
				})
			default:
				return fmt.Errorf("stats: unknown panel %q: expected organization or system", args[0])
			}
		},
	}
	statsCmd.Flags().BoolVar(&watch, "watch", false, "Keep refreshing until interrupted")
	return statsCmd
}

func runRefresh(c *cobra.Command, watch bool, every time.Duration, pick func(*dashboard.Controller) refreshFunc) error {
	ctx, stop := signalContext(c.Context())
	defer stop()

	rt, err := oneShot(ctx)
	if err != nil {
		return err
	}
	defer rt.Close()
	ctrl, err := rt.dashboard(ctx)
	if err != nil {
		return err
	}
	refresh := pick(ctrl)

	refresh(ctx)
	if !watch {
		rt.settle(ctx)
		return nil
	}

	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			rt.settle(context.Background())
			return nil
		case <-ticker.C:
			refresh(ctx)
		}
	}
}

func init() {
	cmd.RootCmd.AddCommand(NewQueueCmd())
	cmd.RootCmd.AddCommand(NewStatsCmd())
}
