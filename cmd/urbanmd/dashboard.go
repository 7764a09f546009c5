package main

import (
	"context"
	"io"

	"github.com/spf13/cobra"

	"github.com/urbanmd/urbanmd/cmd"
	"github.com/urbanmd/urbanmd/internal/colors"
	"github.com/urbanmd/urbanmd/internal/config"
	"github.com/urbanmd/urbanmd/internal/page"
	"github.com/urbanmd/urbanmd/internal/tui/state"
	"github.com/urbanmd/urbanmd/internal/view"
)

// runTUIFunc runs the interactive program; tests replace it.
var runTUIFunc = state.Run

// NewDashboardCmd creates the dashboard command.
func NewDashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Open the interactive dashboard",
		Long: `Open the interactive dashboard for the session's role.

The page's actions and tasks are listed; notifications appear as toasts.
Providers' queues and admins' system stats refresh in the background while
the dashboard is open.`,
		Args: cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			ctx, stop := signalContext(c.Context())
			defer stop()

			var opener view.Opener
			if config.GetBool("open_browser", false) {
				opener = view.CommandOpener(config.Get("browser_command", "xdg-open"))
			}
			bridge := state.NewBridge(opener)
			rt, err := newRuntimeFunc(ctx, runtimeOptions{View: bridge})
			if err != nil {
				return err
			}
			defer rt.Close()
			rt.hooks.Stderr = io.Discard
			ctrl, err := rt.dashboard(ctx)
			if err != nil {
				return err
			}

			// The TUI owns the terminal; console output would tear it.
			colors.SetOutput(nil, nil)
			defer colors.ResetOutput()

			dashboardPath := config.Get("dashboard_path", "/")
			return runTUIFunc(ctx, state.Config{
				Controller: ctrl,
				Center:     rt.center,
				Bridge:     bridge,
				Logger:     rt.logger,
				Fetch: func(ctx context.Context) (*page.Document, error) {
					return rt.page(ctx, dashboardPath)
				},
			})
		},
	}
}

func init() {
	cmd.RootCmd.AddCommand(NewDashboardCmd())
}
