package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_Validates(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
}

func TestValidate_RejectsZeroMaxFrameTime(t *testing.T) {
	cfg := Default()
	cfg.MaxFrameTime = 0
	assert.ErrorIs(t, cfg.Validate(), ErrEmptyMaxFrameTime)
}

func TestValidate_RejectsZeroMinReturns(t *testing.T) {
	cfg := Default()
	cfg.MinReturnsPerDrain = 0
	assert.Error(t, cfg.Validate())
}

func TestValidate_RejectsFixedWithoutCount(t *testing.T) {
	cfg := Default()
	cfg.WorkerHint = Fixed
	cfg.FixedWorkers = 0
	assert.ErrorIs(t, cfg.Validate(), ErrFixedWorkersInvalid)
}

func TestResolveWorkers(t *testing.T) {
	cfg := Default()
	cfg.WorkerHint = SingleThreaded
	assert.Equal(t, 0, cfg.ResolveWorkers())

	cfg.WorkerHint = Fixed
	cfg.FixedWorkers = 7
	assert.Equal(t, 7, cfg.ResolveWorkers())

	cfg.WorkerHint = Auto
	assert.GreaterOrEqual(t, cfg.ResolveWorkers(), 1)
}

func TestLoadEngineConfig_RoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "engine.yaml")

	data := []byte(`
worker_hint: 1
fixed_workers: 4
max_frame_time: 3ms
return_drain_budget: 1ms
min_returns_per_drain: 5
flood_fill_min_area_size: 10
flood_fill_max_area_index: 65535
wait_for_path_warn_depth: 5
`)
	require.NoError(t, os.WriteFile(path, data, 0o644))

	cfg, err := LoadEngineConfig(path)
	require.NoError(t, err)
	assert.Equal(t, Fixed, cfg.WorkerHint)
	assert.Equal(t, 4, cfg.FixedWorkers)
}

func TestLoadEngineConfig_MissingFile(t *testing.T) {
	_, err := LoadEngineConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
