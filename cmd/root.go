// Package cmd holds the root command shared by the urbanmd subcommands.
package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/urbanmd/urbanmd/internal/colors"
	"github.com/urbanmd/urbanmd/internal/config"
	"github.com/urbanmd/urbanmd/internal/logging"
	"github.com/urbanmd/urbanmd/internal/version"
)

// Persistent flag values; empty means "keep the configured value".
var (
	baseURLFlag string
	cookieFlag  string
	roleFlag    string
	debugFlag   bool
	quietFlag   bool
)

// RootCmd represents the base command when called without any subcommands.
var RootCmd = &cobra.Command{
	Use:           "urbanmd",
	Short:         "Terminal client for the UrbanMD dashboards.",
	Long:          `Terminal client for the UrbanMD dashboards.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return Setup()
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = logging.ShutdownGlobal()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the RootCmd.
func Execute() error {
	err := RootCmd.Execute()
	if err != nil {
		colors.Error(err.Error())
	}
	return err
}

// Setup loads the configuration, applies the persistent flags on top of it
// and starts the file logger.
func Setup() error {
	config.Load()
	overrides := map[string]string{
		"base_url": baseURLFlag,
		"cookie":   cookieFlag,
		"role":     roleFlag,
	}
	for key, value := range overrides {
		if value != "" {
			config.Set(key, value)
		}
	}
	if debugFlag {
		config.Set("debug", "true")
	}
	if quietFlag {
		config.Set("quiet", "true")
	}
	colors.SetDebug(config.GetBool("debug", false))
	colors.SetQuiet(config.GetBool("quiet", false))

	if err := logging.InitGlobal(); err != nil {
		colors.Warning(fmt.Sprintf("file logging disabled: %v", err))
	}
	return nil
}

func init() {
	RootCmd.Version = version.String()

	// Hide the completion command
	RootCmd.CompletionOptions.HiddenDefaultCmd = true

	RootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		if cmd != cmd.Root() {
			fmt.Fprint(cmd.OutOrStdout(), cmd.UsageString())
			if cmd.Long != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s\n", cmd.Long)
			}
			return
		}
		PrintHelp(cmd)
	})

	flags := RootCmd.PersistentFlags()
	flags.StringVar(&baseURLFlag, "base-url", "", "Backend base URL (overrides base_url)")
	flags.StringVar(&cookieFlag, "cookie", "", "Cookie header for the session, e.g. \"sessionid=…; csrftoken=…\"")
	flags.StringVar(&roleFlag, "role", "", "Force the dashboard role: patient, provider, organization, admin")
	flags.BoolVar(&debugFlag, "debug", false, "Print debug output")
	flags.BoolVarP(&quietFlag, "quiet", "q", false, "Only print warnings and errors")
}

// commandOrder is the order commands appear in the help text.
var commandOrder = []string{
	"dashboard",
	"action",
	"submit",
	"search",
	"queue",
	"stats",
	"task",
	"history",
	"help",
	"version",
}

var outputWriter io.Writer

// PrintHelp prints the root help text listing the known commands in order.
func PrintHelp(cmd *cobra.Command) {
	w := outputWriter
	if w == nil {
		w = os.Stdout
	}

	var cmdLines []string
	for _, name := range commandOrder {
		var found *cobra.Command
		for _, c := range cmd.Commands() {
			if c.Name() == name {
				found = c
				break
			}
		}
		if found == nil {
			continue
		}
		cmdLines = append(cmdLines, fmt.Sprintf("    %-34s %s", found.Use, found.Short))
	}

	helpText := fmt.Sprintf(`urbanmd v%s

Terminal client for the UrbanMD dashboards.

USAGE:
    urbanmd [COMMAND] [OPTIONS]

COMMANDS:
%s

OPTIONS:
    --base-url <url>    Backend base URL
    --cookie <header>   Session cookie header
    --role <role>       Force the dashboard role
    --debug             Print debug output
    -q, --quiet         Only print warnings and errors
    -h, --help          Show help message
`, cmd.Version, strings.Join(cmdLines, "\n"))
	fmt.Fprint(w, helpText)
}
