package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/urbanmd/urbanmd/cmd"
	"github.com/urbanmd/urbanmd/internal/colors"
	"github.com/urbanmd/urbanmd/internal/journal"
	"github.com/urbanmd/urbanmd/internal/logging"
)

const historyCommandLong = `List recorded action outcomes, newest first.

Outcomes are recorded when journal_enabled is true.

USAGE:
    urbanmd history [--limit N] [--prune-days N]

OPTIONS:
    --limit N            Number of entries to show (default 20)
    --prune-days N       Delete entries older than N days before listing
    -h, --help           Show this help`

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	var limit int
	var pruneDays int
	historyCmd := &cobra.Command{
		Use:   "history [--limit N]",
		Short: "List recorded action outcomes",
		Long:  historyCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			path := journalPath()
			if _, err := os.Stat(path); os.IsNotExist(err) {
				colors.Info("No outcomes recorded")
				return nil
			}
			j, err := journal.Open(path, logging.GetGlobal())
			if err != nil {
				return err
			}
			defer j.Close()

			ctx := c.Context()
			if pruneDays > 0 {
				n, err := j.Prune(ctx, time.Now().AddDate(0, 0, -pruneDays))
				if err != nil {
					return err
				}
				colors.Debug(fmt.Sprintf("pruned %d entries", n))
			}
			entries, err := j.Recent(ctx, limit)
			if err != nil {
				return err
			}
			printHistory(c.OutOrStdout(), entries)
			return nil
		},
	}
	historyCmd.Flags().IntVar(&limit, "limit", 20, "Number of entries to show")
	historyCmd.Flags().IntVar(&pruneDays, "prune-days", 0, "Delete entries older than N days before listing")
	return historyCmd
}

func printHistory(w io.Writer, entries []journal.Entry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "No outcomes recorded")
		return
	}
	for _, e := range entries {
		target := e.Section + " " + e.Action
		if e.TargetID != "" {
			target += " " + e.TargetID
		}
		fmt.Fprintf(w, "%s  %-12s  %-36s  %s\n",
			e.At.Local().Format("2006-01-02 15:04:05"), e.Outcome, target, e.Message)
	}
}

func init() {
	cmd.RootCmd.AddCommand(NewHistoryCmd())
}
