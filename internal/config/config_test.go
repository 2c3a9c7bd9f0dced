package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.False(t, cfg.Store.Enabled)
	assert.Equal(t, -105.0, cfg.Analysis.Coverage.RSRPThreshold)
	assert.Equal(t, 0.10, cfg.Analysis.Handover.FailureRatio)
	assert.Equal(t, 250.0, cfg.Report.ClusterRadiusM)
}

func TestLoad_YAMLOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logging:
  level: debug
analysis:
  coverage:
    rsrp_threshold: -100
    rsrq_threshold: -15
    hole_depth: 10
    min_run_length: 8
    merge_gap: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, -100.0, cfg.Analysis.Coverage.RSRPThreshold)
	assert.Equal(t, 8, cfg.Analysis.Coverage.MinRunLength)
	// Untouched sections keep their defaults.
	assert.Equal(t, 0.10, cfg.Analysis.Handover.FailureRatio)
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logging:
  level: debug
store:
  path: from-file.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	t.Setenv("DTA_LOGGING_LEVEL", "warn")
	t.Setenv("DTA_STORE_ENABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.True(t, cfg.Store.Enabled)
	// Env vars that are unset leave file values alone.
	assert.Equal(t, "from-file.db", cfg.Store.Path)
}

func TestLoad_FileValuesSurviveEnvProcessing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
logging:
  level: debug
  format: text
store:
  enabled: true
  path: /tmp/drive.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
	assert.True(t, cfg.Store.Enabled)
	assert.Equal(t, "/tmp/drive.db", cfg.Store.Path)
}

func TestLoad_StorePathIgnoresAmbientPATH(t *testing.T) {
	t.Setenv("PATH", "/usr/bin:/bin")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "data/drivetest.db", cfg.Store.Path)
}

func TestLoad_InvalidThresholdsRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
analysis:
  coverage:
    rsrp_threshold: -105
    rsrq_threshold: -15
    hole_depth: 10
    min_run_length: -3
    merge_gap: 3
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, -105.0, cfg.Analysis.Coverage.RSRPThreshold)
}
