package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"fleetopt/internal/config"
)

func TestNewWritesToRotatingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "api.log")
	l, closer, err := New(config.LogConfig{Level: "debug", File: path, MaxSizeMB: 1, JSON: true})
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, l.GetLevel())

	l.WithField("route", "ROUTE-1").Info("route optimized")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), `"route":"ROUTE-1"`)
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, _, err := New(config.LogConfig{Level: "loud"})
	require.Error(t, err)
}
