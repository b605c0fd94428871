package commands

import (
	"os"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/veldt/estuary/cache"
	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/logger"
)

// CacheCmd represents the cache command group
var CacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or purge the computation cache",
}

var cacheStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show cached snapshots per source",
	RunE:  runCacheStatsCommand,
}

var cachePurgeCmd = &cobra.Command{
	Use:   "purge [SOURCE]",
	Short: "Remove cached snapshots (all, or one source's)",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCachePurgeCommand,
}

func init() {
	CacheCmd.AddCommand(cacheStatsCmd)
	CacheCmd.AddCommand(cachePurgeCmd)
}

func openCacheOrFail(cmd *cobra.Command) (*cache.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	if !cfg.Cache.Enabled {
		return nil, errors.New("caching is disabled in configuration")
	}
	return cache.Open(cfg.GetCachePath(), logger.Named("cache"))
}

func runCacheStatsCommand(cmd *cobra.Command, args []string) error {
	store, err := openCacheOrFail(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	entries, err := store.Entries()
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		pterm.Info.Println("Cache is empty.")
		return nil
	}

	data := pterm.TableData{{"SOURCE", "RECORDS", "FINGERPRINT", "CREATED"}}
	for _, e := range entries {
		fp := e.Fingerprint
		if len(fp) > 12 {
			fp = fp[:12]
		}
		data = append(data, []string{e.Source, pterm.Sprintf("%d", e.Records), fp, e.CreatedAt})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return err
	}
	pterm.Fprintln(os.Stdout, out)
	return nil
}

func runCachePurgeCommand(cmd *cobra.Command, args []string) error {
	store, err := openCacheOrFail(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	if len(args) == 1 {
		if err := store.PurgeSource(args[0]); err != nil {
			return err
		}
		pterm.Success.Printfln("Purged cached snapshot for %s", args[0])
		return nil
	}

	if err := store.Purge(); err != nil {
		return err
	}
	pterm.Success.Println("Purged all cached snapshots")
	return nil
}
