package system

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLoggerProduction(t *testing.T) {
	logger, err := NewLogger(false)
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Infow("production logger works", "key", "value")
}

func TestNewLoggerDebug(t *testing.T) {
	logger, err := NewLogger(true)
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Debugw("debug logger works", "key", "value")
}
