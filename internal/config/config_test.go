package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTuningIsValid(t *testing.T) {
	tu := DefaultTuning()
	require.NoError(t, tu.Validate())
	assert.Len(t, tu.Economy.PaymentHours, tu.Economy.Batches)
	assert.Greater(t, tu.Population.GrowthFactor, 1.0)
}

func TestLoadTuningOverlaysDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.yaml")
	body := "population:\n  initial: 500\ncombat:\n  surprise: 2.0\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	tu, err := LoadTuning(path)
	require.NoError(t, err)
	assert.Equal(t, 500, tu.Population.Initial)
	assert.Equal(t, 2.0, tu.Combat.Surprise)
	// untouched fields keep defaults
	assert.Equal(t, DefaultTuning().Population.GrowthFactor, tu.Population.GrowthFactor)
	assert.Equal(t, DefaultTuning().Chronicle.Capacity, tu.Chronicle.Capacity)
}

func TestLoadTuningErrors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadTuning(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
	t.Run("invalid growth factor", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("population:\n  growth_factor: 1.0\n"), 0o644))
		_, err := LoadTuning(path)
		assert.ErrorContains(t, err, "growth_factor")
	})
	t.Run("no combat round limit", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("combat:\n  max_rounds: 0\n"), 0o644))
		_, err := LoadTuning(path)
		assert.ErrorContains(t, err, "max_rounds")
	})
	t.Run("empty path", func(t *testing.T) {
		tu, err := LoadTuning("")
		require.NoError(t, err)
		assert.Equal(t, DefaultTuning().Population.Initial, tu.Population.Initial)
	})
}

func TestLoadRuntime(t *testing.T) {
	t.Setenv("VELORIA_API_PORT", "9090")
	t.Setenv("VELORIA_TICK_INTERVAL", "250ms")
	t.Setenv("VELORIA_SEED", "7")
	t.Setenv("VELORIA_CORS_ORIGINS", "http://localhost:5173,https://veloria.example")

	rt, err := LoadRuntime()
	require.NoError(t, err)
	assert.Equal(t, 9090, rt.APIPort)
	assert.Equal(t, 250*time.Millisecond, rt.TickInterval)
	assert.Equal(t, int64(7), rt.Seed)
	assert.Equal(t, "data/veloria.db", rt.DBPath)
	assert.Equal(t, []string{"http://localhost:5173", "https://veloria.example"}, rt.CORSOrigins)
}

func TestLoadRuntimeRejectsGarbage(t *testing.T) {
	t.Setenv("VELORIA_API_PORT", "not-a-port")
	_, err := LoadRuntime()
	assert.Error(t, err)
}
