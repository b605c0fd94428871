package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/veldt/estuary/cmd/estuary/commands"
	"github.com/veldt/estuary/logger"
)

var rootCmd = &cobra.Command{
	Use:   "estuary",
	Short: "estuary - query your personal data as one timeline",
	Long: `estuary merges personal data exports (browser history, notes,
git repositories) into one lazily evaluated, time-ordered stream.
Broken records surface as error entries in the output instead of
aborting the query, and extraction results are cached on disk so
repeat queries are instant.

Available commands:
  query   - Run a timeline query across sources
  sources - List configured sources
  cache   - Inspect or purge the computation cache
  doctor  - Check source and cache health
  config  - Show or initialize configuration

Examples:
  estuary query --since 2021-06-01 --until 2021-07-01
  estuary query --source firefox --limit 20 --reverse
  estuary doctor
  estuary cache stats`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("log-json")
		if err := logger.Initialize(jsonLogs); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		verbosity, _ := cmd.Flags().GetCount("verbose")
		logger.SetVerbosity(verbosity)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv, -vvv)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Emit structured JSON logs instead of console output")
	rootCmd.PersistentFlags().String("config", "", "Config file to use instead of the usual search path")

	rootCmd.AddCommand(commands.QueryCmd)
	rootCmd.AddCommand(commands.SourcesCmd)
	rootCmd.AddCommand(commands.CacheCmd)
	rootCmd.AddCommand(commands.DoctorCmd)
	rootCmd.AddCommand(commands.ConfigCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
