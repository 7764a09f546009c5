package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/urbanmd/urbanmd/internal/version"
)

var versionOutputWriter io.Writer

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Show version information.`,
	Args:  cobra.NoArgs,
	// Version needs no configuration or session.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		PrintVersion()
	},
}

// PrintVersion prints the version line.
func PrintVersion() {
	w := versionOutputWriter
	if w == nil {
		w = os.Stdout
	}
	fmt.Fprintf(w, "urbanmd v%s\n", version.String())
}

func init() {
	RootCmd.AddCommand(versionCmd)
}
