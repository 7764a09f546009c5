package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanmd/urbanmd/cmd"
	"github.com/urbanmd/urbanmd/internal/api"
	"github.com/urbanmd/urbanmd/internal/colors"
	"github.com/urbanmd/urbanmd/internal/domain"
)

// NewTaskCmd creates the task command.
func NewTaskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "task <id> <completed|pending>",
		Short: "Set a dashboard task's status",
		Long: `Set a task checkbox's status, as ticking it on the dashboard would.

Failures are only logged, the same as on the page.`,
		Args: cobra.ExactArgs(2),
		RunE: func(c *cobra.Command, args []string) error {
			var completed bool
			switch args[1] {
			case api.TaskCompleted:
				completed = true
			case api.TaskPending:
			default:
				return fmt.Errorf("task: status must be %s or %s, got %q", api.TaskCompleted, api.TaskPending, args[1])
			}
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
			outcome := ctrl.ToggleTask(ctx, args[0], completed)
			rt.settle(ctx)
			if outcome == domain.OutcomeMutate {
				colors.Success(fmt.Sprintf("Task %s marked %s", args[0], args[1]))
			} else {
				colors.Debug(fmt.Sprintf("task %s: %s", args[0], outcome))
			}
			return nil
		},
	}
}

func init() {
	cmd.RootCmd.AddCommand(NewTaskCmd())
}
