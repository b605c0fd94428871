package render

import "github.com/pterm/pterm"

// Theme names accepted in the [log] config section
const (
	ThemeGruvbox    = "gruvbox"
	ThemeEverforest = "everforest"
)

// ApplyTheme restyles pterm table output to the named palette. Empty or
// unknown names leave the current styling untouched, so an explicit theme
// is never reverted by a later defaults-only load.
func ApplyTheme(name string) {
	switch name {
	case ThemeGruvbox:
		pterm.DefaultTable.HeaderStyle = pterm.NewStyle(pterm.FgYellow, pterm.Bold)
		pterm.DefaultTable.SeparatorStyle = pterm.NewStyle(pterm.FgGray)
	case ThemeEverforest:
		pterm.DefaultTable.HeaderStyle = pterm.NewStyle(pterm.FgGreen, pterm.Bold)
		pterm.DefaultTable.SeparatorStyle = pterm.NewStyle(pterm.FgGray)
	}
}
