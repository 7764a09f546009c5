package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/urbanmd/urbanmd/cmd"
	"github.com/urbanmd/urbanmd/internal/colors"
	"github.com/urbanmd/urbanmd/internal/dashboard"
	"github.com/urbanmd/urbanmd/internal/domain"
)

const actionCommandLong = `Run one dashboard action as if its button were clicked.

USAGE:
    urbanmd action <section> <action> <id>
    urbanmd action verification <approve|reject> <type> <id>
    urbanmd action --list

The dashboard page is loaded first to select the role; only the role's
sections accept actions. Confirmations and reasons are asked on the terminal.

OPTIONS:
    --list               List the actions available on the dashboard page
    -h, --help           Show this help`

// NewActionCmd creates the action command.
func NewActionCmd() *cobra.Command {
	var list bool
	actionCmd := &cobra.Command{
		Use:   "action <section> <action> [id...]",
		Short: "Run one dashboard action",
		Long:  actionCommandLong,
		RunE: func(c *cobra.Command, args []string) error {
			if !list && len(args) < 2 {
				return fmt.Errorf("action: expected <section> <action> [id...]")
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
			if list {
				printBindings(c.OutOrStdout(), ctrl)
				return nil
			}
			outcome, err := runAction(ctx, ctrl, args[0], args[1], args[2:]...)
			if err != nil {
				return err
			}
			rt.settle(ctx)
			colors.Debug(fmt.Sprintf("%s %s: %s", args[0], args[1], outcome))
			return nil
		},
	}
	actionCmd.Flags().BoolVar(&list, "list", false, "List the actions available on the dashboard page")
	return actionCmd
}

// runAction checks section/action against the role's tables before invoking.
func runAction(ctx context.Context, ctrl *dashboard.Controller, section, action string, ids ...string) (domain.Outcome, error) {
	s, ok := ctrl.Section(section)
	if !ok {
		return "", fmt.Errorf("action: no section %q for role %s (have: %s)", section, ctrl.Role(), strings.Join(sectionNames(ctrl), ", "))
	}
	if _, ok := s.Actions[action]; !ok {
		return "", fmt.Errorf("action: section %s has no action %q (have: %s)", section, action, strings.Join(s.ActionNames(), ", "))
	}
	return ctrl.Invoke(ctx, section, action, ids...), nil
}

func sectionNames(ctrl *dashboard.Controller) []string {
	var names []string
	for _, s := range ctrl.Sections() {
		names = append(names, s.Name)
	}
	sort.Strings(names)
	return names
}

func printBindings(w io.Writer, ctrl *dashboard.Controller) {
	bindings := ctrl.Bindings()
	if len(bindings) == 0 {
		fmt.Fprintf(w, "No actions on the %s dashboard\n", ctrl.Role())
		return
	}
	for _, b := range bindings {
		fmt.Fprintf(w, "%-40s %s\n", b.String(), b.Label)
	}
}

// signalContext is cancelled on interrupt, the analogue of leaving the page.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func init() {
	cmd.RootCmd.AddCommand(NewActionCmd())
}
