package commands

import (
	"os"
	"path/filepath"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/veldt/estuary/config"
)

// ConfigCmd represents the config command group
var ConfigCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or initialize configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	RunE:  runConfigShowCommand,
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter config file",
	Long: `Write a starter estuary.toml to ~/.estuary, or to the path given
with --path. Refuses to overwrite an existing file.`,
	RunE: runConfigInitCommand,
}

var configInitPath string

func init() {
	configInitCmd.Flags().StringVar(&configInitPath, "path", "", "Where to write the config (default: ~/.estuary/estuary.toml)")

	ConfigCmd.AddCommand(configShowCmd)
	ConfigCmd.AddCommand(configInitCmd)
}

func runConfigShowCommand(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	out, err := config.Render(cfg)
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func runConfigInitCommand(cmd *cobra.Command, args []string) error {
	path := configInitPath
	if path == "" {
		dir := config.UserDir()
		if dir == "" {
			path = "estuary.toml"
		} else {
			path = filepath.Join(dir, "estuary.toml")
		}
	}

	if err := config.WriteDefault(path); err != nil {
		return err
	}
	pterm.Success.Printfln("Wrote starter config to %s", path)
	pterm.Info.Println("Enable a source by setting enabled = true and pointing params.path at an export.")
	return nil
}
