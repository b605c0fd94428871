package commands

import (
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/veldt/estuary/cache"
	"github.com/veldt/estuary/logger"
	"github.com/veldt/estuary/query"
)

// DoctorCmd represents the doctor command
var DoctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check source and cache health",
	Long: `Run every enabled source end to end and report how many records
it produces and how many are broken. Useful after adding a source or
refreshing an export.

Extraction runs directly against the sources; the cache is checked
separately and not consulted for the probe.`,
	RunE: runDoctorCommand,
}

func runDoctorCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	pterm.Success.Println("configuration is valid")

	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	if registry.Len() == 0 {
		pterm.Warning.Println("no sources enabled")
	}

	if cfg.Cache.Enabled {
		store, err := cache.Open(cfg.GetCachePath(), logger.Named("cache"))
		if err != nil {
			pterm.Warning.Printfln("cache unavailable at %s: %v", cfg.GetCachePath(), err)
		} else {
			entries, err := store.Entries()
			if err != nil {
				pterm.Warning.Printfln("cache unreadable: %v", err)
			} else {
				pterm.Success.Printfln("cache at %s (%d snapshots)", cfg.GetCachePath(), len(entries))
			}
			store.Close()
		}
	} else {
		pterm.Info.Println("caching disabled")
	}

	healthy := true
	for _, h := range registry.All() {
		spinner, _ := pterm.DefaultSpinner.Start("probing " + h.Name)
		health := query.Probe(h.Produce())
		if spinner != nil {
			spinner.Stop()
		}

		switch {
		case health.OK == 0 && health.Errors > 0:
			healthy = false
			pterm.Error.Printfln("%s: no valid records, %d errors (first: %s)",
				h.Name, health.Errors, health.FirstError)
		case health.Errors > 0:
			pterm.Warning.Printfln("%s: %d records, %d broken (first: %s)",
				h.Name, health.OK, health.Errors, health.FirstError)
		case health.OK == 0:
			pterm.Warning.Printfln("%s: empty", h.Name)
		default:
			pterm.Success.Printfln("%s: %d records", h.Name, health.OK)
		}
	}

	if !healthy {
		pterm.Println()
		pterm.Error.Println("some sources produced nothing but errors")
	}
	return nil
}
