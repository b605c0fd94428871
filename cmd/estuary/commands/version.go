package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/veldt/estuary/db"
	"github.com/veldt/estuary/version"
)

// versionOutput extends the build info with the cache schema version the
// binary migrates databases to, so support reports carry both.
type versionOutput struct {
	version.Info
	CacheSchema string `json:"cache_schema"`
}

// VersionCmd represents the version command
var VersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show estuary version information",
	Long:  `Display version, build, platform and cache schema information for the estuary binary.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := versionOutput{
			Info:        version.Get(),
			CacheSchema: db.SchemaVersion(),
		}

		if jsonOutput, _ := cmd.Flags().GetBool("json"); jsonOutput {
			data, err := json.MarshalIndent(out, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}

		w := cmd.OutOrStdout()
		fmt.Fprintln(w, out.String())
		fmt.Fprintf(w, "Platform:     %s\n", out.Platform)
		fmt.Fprintf(w, "Go:           %s\n", out.GoVersion)
		fmt.Fprintf(w, "Cache schema: %s\n", out.CacheSchema)
		return nil
	},
}

func init() {
	VersionCmd.Flags().BoolP("json", "j", false, "Output version info as JSON")
}
