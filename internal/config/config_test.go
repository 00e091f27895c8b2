package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad_AppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
tuner:
  device: rtlsdr
server:
  listen: ":8080"
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, 1, cfg.Ensemble.Mode)
	require.Equal(t, 50, cfg.Server.MaxSubscribers)
	require.Equal(t, "info", cfg.Logging.Level)
	require.Equal(t, float64(2_048_000), cfg.Tuner.SampleRateHz)
}

func TestLoad_RejectsMissingDevice(t *testing.T) {
	path := writeConfig(t, `
server:
  listen: ":8080"
`)
	_, err := Load(path)
	require.Error(t, err)
	var cfgErr *Error
	require.ErrorAs(t, err, &cfgErr)
	require.Equal(t, "tuner.device", cfgErr.Field)
}

func TestLoad_RejectsBadMode(t *testing.T) {
	path := writeConfig(t, `
tuner:
  device: rtlsdr
ensemble:
  mode: 9
server:
  listen: ":8080"
`)
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/path.yaml")
	require.Error(t, err)
}
