package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/veldt/estuary/config"
	"github.com/veldt/estuary/errors"
	"github.com/veldt/estuary/logger"
	"github.com/veldt/estuary/query"
	"github.com/veldt/estuary/render"
)

var (
	querySources       []string
	querySince         string
	queryUntil         string
	queryUntilIncl     bool
	queryReverse       bool
	queryLimit         int
	queryDrop          int
	queryDedup         bool
	queryDropErrors    bool
	queryDropUnsorted  bool
	queryFormat        string
	queryNoCache       bool
	queryShowStats     bool
	queryWatch         bool
)

// QueryCmd represents the query command
var QueryCmd = &cobra.Command{
	Use:   "query",
	Short: "Run a timeline query across sources",
	Long: `Merge the configured sources into one time-ordered stream and
print it.

Broken records appear as error rows in the output; they never abort
the query. Use --drop-errors to hide them (they are still counted in
the run summary).

Examples:
  estuary query                                    # Everything, oldest first
  estuary query --since 2021-06-01 --until 2021-07-01
  estuary query --source firefox --source notes --dedup
  estuary query --reverse --limit 20               # 20 newest records
  estuary query --format jsonl | jq 'select(.error)'`,
	RunE: runQueryCommand,
}

func init() {
	QueryCmd.Flags().StringSliceVarP(&querySources, "source", "s", nil, "Source to query (repeatable; default: all)")
	QueryCmd.Flags().StringVar(&querySince, "since", "", "Inclusive lower bound (RFC3339 or YYYY-MM-DD)")
	QueryCmd.Flags().StringVar(&queryUntil, "until", "", "Exclusive upper bound (RFC3339 or YYYY-MM-DD)")
	QueryCmd.Flags().BoolVar(&queryUntilIncl, "until-inclusive", false, "Treat --until as inclusive")
	QueryCmd.Flags().BoolVarP(&queryReverse, "reverse", "r", false, "Newest records first")
	QueryCmd.Flags().IntVarP(&queryLimit, "limit", "l", 0, "Maximum entries to emit (0 = unlimited)")
	QueryCmd.Flags().IntVar(&queryDrop, "drop", 0, "Skip the first N entries")
	QueryCmd.Flags().BoolVar(&queryDedup, "dedup", false, "Drop records whose identity was already seen")
	QueryCmd.Flags().BoolVar(&queryDropErrors, "drop-errors", false, "Hide broken records from the output")
	QueryCmd.Flags().BoolVar(&queryDropUnsorted, "drop-unsorted", false, "Drop out-of-order records instead of re-sorting them")
	QueryCmd.Flags().StringVarP(&queryFormat, "format", "f", render.FormatTable, "Output format (table/jsonl/gpx)")
	QueryCmd.Flags().BoolVar(&queryNoCache, "no-cache", false, "Bypass the computation cache for this run")
	QueryCmd.Flags().BoolVar(&queryShowStats, "stats", false, "Print a per-source summary after the results")
	QueryCmd.Flags().BoolVarP(&queryWatch, "watch", "w", false, "Keep running and re-query whenever the config file changes")
}

func runQueryCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if queryWatch {
		return watchQuery(cmd, cfg)
	}
	return runQueryOnce(cfg)
}

// runQueryOnce executes a single query run against the given configuration
func runQueryOnce(cfg *config.Config) error {
	registry, err := buildRegistry(cfg)
	if err != nil {
		return err
	}
	if registry.Len() == 0 {
		return errors.New("no sources enabled; add [sources.<name>] sections to estuary.toml")
	}

	store := openCache(cfg, queryNoCache)
	if store != nil {
		defer store.Close()
	}

	spec, err := buildSpec(cfg)
	if err != nil {
		return err
	}

	engine := query.New(registry, store, logger.Named("query"))
	seq, sum, err := engine.Run(spec)
	if err != nil {
		return err
	}

	switch queryFormat {
	case render.FormatTable:
		err = render.Table(os.Stdout, seq)
	case render.FormatJSONL:
		err = render.JSONL(os.Stdout, seq)
	case render.FormatGPX:
		var stats render.GPXStats
		stats, err = render.GPX(os.Stdout, seq)
		if err == nil {
			logger.Logger.Infow("gpx track written",
				"points", stats.Points,
				"skipped", stats.Skipped,
				"errors", stats.Errors,
			)
		}
	default:
		return errors.Newf("unknown format %q (use table, jsonl or gpx)", queryFormat)
	}
	if err != nil {
		return errors.Wrap(err, "failed to render results")
	}

	if queryShowStats {
		printSummary(sum)
	}
	return nil
}

// watchQuery runs the query once, then re-runs it on every config file
// change until interrupted. A failing run logs and keeps watching; only
// the inability to watch at all ends the command.
func watchQuery(cmd *cobra.Command, cfg *config.Config) error {
	path, _ := cmd.Flags().GetString("config")
	if path == "" {
		path = config.ActiveFile()
	}
	if path == "" {
		return errors.New("--watch needs a config file to follow; create one with `estuary config init`")
	}

	if err := runQueryOnce(cfg); err != nil {
		logger.Logger.Errorw("query failed", "error", err)
	}

	watcher, err := config.NewWatcher(path)
	if err != nil {
		return err
	}
	defer watcher.Stop()

	watcher.OnReload(func(next *config.Config) error {
		return runQueryOnce(next)
	})
	watcher.Start()

	logger.Logger.Infow("watching config, edits trigger a re-run", "path", path)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

// buildSpec combines config defaults with command flags; flags win
func buildSpec(cfg *config.Config) (query.Spec, error) {
	spec := query.Spec{
		Sources:      querySources,
		IncludeUntil: queryUntilIncl,
		Reverse:      queryReverse,
		Limit:        queryLimit,
		Drop:         queryDrop,
		Dedup:        queryDedup || cfg.Query.Dedup,
		DropErrors:   queryDropErrors || cfg.Query.DropErrors,
		DropUnsorted: queryDropUnsorted || cfg.Query.DropUnsorted,
	}
	if spec.Limit == 0 {
		spec.Limit = cfg.Query.DefaultLimit
	}

	since, err := parseTimeFlag(querySince, "since")
	if err != nil {
		return query.Spec{}, err
	}
	until, err := parseTimeFlag(queryUntil, "until")
	if err != nil {
		return query.Spec{}, err
	}
	spec.Since = since
	spec.Until = until
	return spec, nil
}

// printSummary renders the per-source health table on stderr, keeping
// stdout parseable
func printSummary(sum *query.Summary) {
	data := pterm.TableData{{"SOURCE", "OK", "ERRORS", "FIRST ERROR"}}
	for _, name := range sum.Sources() {
		h := sum.PerSource[name]
		data = append(data, []string{
			name,
			pterm.Sprintf("%d", h.OK),
			pterm.Sprintf("%d", h.Errors),
			h.FirstError,
		})
	}

	out, err := pterm.DefaultTable.WithHasHeader().WithData(data).Srender()
	if err != nil {
		return
	}
	pterm.Fprintln(os.Stderr, out)

	if sum.DroppedErrors > 0 {
		pterm.Fprintln(os.Stderr, pterm.Sprintf("%d broken records hidden by --drop-errors", sum.DroppedErrors))
	}
	for src, n := range sum.Merge.OutOfOrder {
		pterm.Fprintln(os.Stderr, pterm.Sprintf("%s: %d records arrived out of order", src, n))
	}
}
