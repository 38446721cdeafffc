package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("production", func(t *testing.T) {
		logger, err := New(false)
		require.NoError(t, err)
		require.NotNil(t, logger)
	})

	t.Run("development", func(t *testing.T) {
		logger, err := New(true)
		require.NoError(t, err)
		require.NotNil(t, logger)
	})
}

func TestInitLogger(t *testing.T) {
	InitLogger()
	require.NotNil(t, L)
	// Logging through the global must not panic.
	L.Info("init ok")
}
