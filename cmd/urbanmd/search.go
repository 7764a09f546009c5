package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/urbanmd/urbanmd/cmd"
	"github.com/urbanmd/urbanmd/internal/colors"
	"github.com/urbanmd/urbanmd/internal/dashboard"
)

const searchCommandLong = `Search doctors from the patient dashboard.

USAGE:
    urbanmd search [-f key=value...]

The dashboard's doctor search form provides the fields; the given values
replace them and empty fields are left out of the query. Matching doctors are
listed with the actions their cards offer.

OPTIONS:
    -f, --field          Search field as key=value; repeatable
    -h, --help           Show this help`

// NewSearchCmd creates the search command.
func NewSearchCmd() *cobra.Command {
	var fieldFlags []string
	searchCmd := &cobra.Command{
		Use:   "search [-f key=value...]",
		Short: "Search doctors",
		Long:  searchCommandLong,
		Args:  cobra.NoArgs,
		RunE: func(c *cobra.Command, args []string) error {
			overrides, err := parseFields(fieldFlags)
			if err != nil {
				return err
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
			search := ctrl.Search()
			if search == nil {
				return fmt.Errorf("search: doctor search is only on the patient dashboard (role is %s)", ctrl.Role())
			}

			f, _ := ctrl.Document().FormByID(dashboard.DoctorSearchFormID)
			for _, field := range overrides {
				f.Set(field.Name, field.Value)
			}
			state := search.Submit(ctx, f.Fields)
			rt.settle(ctx)

			if state != dashboard.SearchResults {
				colors.Info("No doctors found")
				return nil
			}
			out := c.OutOrStdout()
			for _, card := range search.Cards() {
				fmt.Fprintf(out, "%-8s %s", card.ID, card.Name)
				if card.CanBook {
					fmt.Fprintf(out, "  [book]")
				}
				if card.CanProfile {
					fmt.Fprintf(out, "  [profile]")
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	searchCmd.Flags().StringArrayVarP(&fieldFlags, "field", "f", nil, "Search field as key=value")
	return searchCmd
}

func init() {
	cmd.RootCmd.AddCommand(NewSearchCmd())
}
