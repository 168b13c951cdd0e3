package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Equal(t, 4, cfg.Refresh.IntervalSecs)
	assert.Equal(t, 30, cfg.Status.StalenessCutoffMins)
	assert.Equal(t, "created", cfg.Sort.PrimaryOrder)
	assert.NotEmpty(t, cfg.Trackers.Editor.Launch)
}

func TestLoadPartialFileFillsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
data_dir = "/tmp/booster-test"

[refresh]
interval_secs = 10

[sort]
primary_order = "running"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := Load(path)
	assert.Equal(t, "/tmp/booster-test", cfg.DataDir)
	assert.Equal(t, filepath.Join("/tmp/booster-test", "sessions"), cfg.SessionsDir)
	assert.Equal(t, 10*time.Second, cfg.RefreshInterval())
	assert.Equal(t, "running", cfg.Sort.PrimaryOrder)
	// Untouched sections keep defaults.
	assert.Equal(t, 30*time.Minute, cfg.StalenessCutoff())
	assert.Equal(t, []string{"wmctrl", "-lp"}, cfg.Probes.WindowList)
}

func TestLoadExplicitSessionsDirWins(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	content := `
data_dir = "/tmp/booster-test"
sessions_dir = "/srv/shared-sessions"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg := Load(path)
	assert.Equal(t, "/tmp/booster-test", cfg.DataDir)
	assert.Equal(t, "/srv/shared-sessions", cfg.SessionsDir)
}

func TestLoadMalformedFileDegradesToDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("this is [not toml"), 0o644))

	cfg := Load(path)
	assert.Equal(t, Default().Refresh.IntervalSecs, cfg.Refresh.IntervalSecs)
}

func TestInvalidPrimaryOrderFallsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[sort]\nprimary_order = \"bogus\"\n"), 0o644))

	cfg := Load(path)
	assert.Equal(t, "created", cfg.Sort.PrimaryOrder)
}

func TestEnsureDataDir(t *testing.T) {
	cfg := Default()
	cfg.DataDir = filepath.Join(t.TempDir(), "deep", "data")

	require.NoError(t, cfg.EnsureDataDir())
	for _, dir := range []string{cfg.DataDir, cfg.LogDir(), cfg.EventsDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.True(t, info.IsDir())
	}
}
