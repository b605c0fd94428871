package commands

import (
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/veldt/estuary/config"
	"github.com/veldt/estuary/logger"
)

func TestParseTimeFlag(t *testing.T) {
	got, err := parseTimeFlag("", "since")
	require.NoError(t, err)
	assert.Nil(t, got, "empty flag means no bound")

	got, err = parseTimeFlag("2021-06-01T10:30:00Z", "since")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2021, 6, 1, 10, 30, 0, 0, time.UTC), *got)

	got, err = parseTimeFlag("2021-06-01", "since")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC), *got)

	_, err = parseTimeFlag("last tuesday", "until")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--until")
}

func TestApplyLogConfig(t *testing.T) {
	newCmd := func() *cobra.Command {
		cmd := &cobra.Command{}
		cmd.Flags().Bool("log-json", false, "")
		return cmd
	}
	restore := logger.JSONOutput
	defer func() { require.NoError(t, logger.Initialize(restore)) }()

	// config file asks for JSON and no flag was given
	require.NoError(t, logger.Initialize(false))
	applyLogConfig(newCmd(), &config.Config{Log: config.LogConfig{JSON: true}})
	assert.True(t, logger.JSONOutput)

	// an explicit flag wins over the config file
	require.NoError(t, logger.Initialize(false))
	cmd := newCmd()
	require.NoError(t, cmd.Flags().Set("log-json", "false"))
	applyLogConfig(cmd, &config.Config{Log: config.LogConfig{JSON: true}})
	assert.False(t, logger.JSONOutput)

	// config without the setting leaves console logging alone
	require.NoError(t, logger.Initialize(false))
	applyLogConfig(newCmd(), &config.Config{})
	assert.False(t, logger.JSONOutput)
}
