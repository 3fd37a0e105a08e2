package cli

import (
	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd represents the base command when called without any subcommands
var RootCmd = NewRootCmd()

// NewRootCmd builds the command tree. Tests build a fresh tree per case so
// flag values do not leak between them.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:     "tickscope",
		Short:   "In-process performance telemetry for fixed-rate game loops",
		Version: version,
		Long: `Tickscope records timing samples from a game loop, keeps rolling windows,
histograms and a spike log per instrumentation point, and periodically ranks
bottlenecks, correlates host facts with timings and flags anomalies.

The simulate command drives a synthetic loop through the engine so the whole
pipeline can be observed from the terminal, as JSON or through Prometheus.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Run: func(cmd *cobra.Command, args []string) {
			// If no subcommand is provided, print help
			cmd.Help()
		},
	}

	root.AddCommand(newSimulateCmd())
	root.AddCommand(newConfigCmd())
	return root
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return RootCmd.Execute()
}
