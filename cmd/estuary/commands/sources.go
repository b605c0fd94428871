package commands

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

// SourcesCmd represents the sources command
var SourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "List configured sources",
	Long: `List the sources the current configuration enables, with their
adapter type and whether their results can be cached.`,
	RunE: runSourcesCommand,
}

func runSourcesCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}

	if registry.Len() == 0 {
		pterm.Info.Println("No sources enabled. Add [sources.<name>] sections to estuary.toml.")
		return nil
	}

	data := pterm.TableData{{"NAME", "TYPE", "CACHEABLE"}}
	for _, h := range registry.All() {
		cacheable := "no"
		if h.Cacheable() {
			cacheable = "yes"
		}
		data = append(data, []string{h.Name, cfg.Sources[h.Name].Type, cacheable})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	pterm.Fprintln(os.Stdout, out)
	return nil
}
