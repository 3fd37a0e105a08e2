package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wesleyorama2/tickscope/internal/output"
	"github.com/wesleyorama2/tickscope/perf/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the default configuration or validate a configuration file",
		Long: `Without flags, print the default engine configuration as YAML. The output
is a valid configuration file and a starting point for tuning.

  tickscope config > tickscope.yaml
  tickscope config --validate tickscope.yaml`,
		Args: cobra.NoArgs,
		RunE: runConfig,
	}
	cmd.Flags().String("validate", "", "Configuration file to validate")
	return cmd
}

func runConfig(cmd *cobra.Command, args []string) error {
	path, _ := cmd.Flags().GetString("validate")
	out := cmd.OutOrStdout()

	if path == "" {
		data, err := config.Default().YAML()
		if err != nil {
			return err
		}
		_, err = out.Write(data)
		return err
	}

	if _, err := config.LoadConfig(path); err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	fmt.Fprintf(out, "%s %s is valid\n", output.SuccessIcon(true), path)
	return nil
}
