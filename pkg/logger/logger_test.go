package logger_test

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"

	"github.com/jyunichimaruta/TruckMaintenanceApp/pkg/logger"
)

func TestNew_Levels(t *testing.T) {
	l, err := logger.New("")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.InfoLevel))
	require.False(t, l.Core().Enabled(zapcore.DebugLevel))

	l, err = logger.New("debug")
	require.NoError(t, err)
	require.True(t, l.Core().Enabled(zapcore.DebugLevel))

	_, err = logger.New("verbose")
	require.Error(t, err)
}

func TestMust_PanicsOnError(t *testing.T) {
	require.Panics(t, func() {
		logger.Must(logger.New("verbose"))
	})
}
