package render

import (
	"testing"

	"github.com/pterm/pterm"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApplyTheme(t *testing.T) {
	origHeader := pterm.DefaultTable.HeaderStyle
	origSeparator := pterm.DefaultTable.SeparatorStyle
	defer func() {
		pterm.DefaultTable.HeaderStyle = origHeader
		pterm.DefaultTable.SeparatorStyle = origSeparator
	}()

	ApplyTheme(ThemeEverforest)
	require.NotNil(t, pterm.DefaultTable.HeaderStyle)
	assert.Contains(t, *pterm.DefaultTable.HeaderStyle, pterm.FgGreen)

	ApplyTheme(ThemeGruvbox)
	assert.Contains(t, *pterm.DefaultTable.HeaderStyle, pterm.FgYellow)

	// unknown names keep whatever is active
	ApplyTheme("solarized")
	assert.Contains(t, *pterm.DefaultTable.HeaderStyle, pterm.FgYellow)
}
