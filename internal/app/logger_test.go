package app

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/aurorasociety/clubhouse/pkg/logger"
)

func TestConfigureLoggingAcceptsWarningAlias(t *testing.T) {
	// Unknown levels silently fall back to info, so the alias only works if it
	// was normalised before reaching the zap parser.
	require.NoError(t, ConfigureLogging(" WARNING "))

	core := logger.Logger().Core()
	require.True(t, core.Enabled(zapcore.WarnLevel))
	require.False(t, core.Enabled(zapcore.InfoLevel))

	require.NoError(t, ConfigureLogging(""))
	require.True(t, logger.Logger().Core().Enabled(zapcore.InfoLevel))
}
