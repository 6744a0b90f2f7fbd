package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orasp/internal/orasp"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orasp.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "dat", cfg.Format)
	assert.Equal(t, 4, cfg.Workers)
	assert.Equal(t, orasp.DefaultParams(), cfg.Params)
}

func TestLoadReadsFileAndEnv(t *testing.T) {
	path := writeConfig(t, `
format: yaml
count: 10
sizes: 10x3x2,20x4x3
params:
  operation_types: 6
  surgery_dist: uniform
  prep_time:
    min: 1
    max: 9
  window_mode: full-day
`)
	t.Setenv("ORASP_COUNT", "3")
	t.Setenv("ORASP_PARAMS_COMPATIBILITY_DENSITY", "0.4")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "yaml", cfg.Format)
	assert.Equal(t, 3, cfg.Count)
	assert.Equal(t, "10x3x2,20x4x3", cfg.Sizes)
	assert.Equal(t, 6, cfg.Params.OperationTypes)
	assert.Equal(t, orasp.DistUniform, cfg.Params.SurgeryDist)
	assert.Equal(t, orasp.Range{Min: 1, Max: 9}, cfg.Params.PrepTime)
	assert.Equal(t, orasp.WindowFullDay, cfg.Params.WindowMode)
	assert.InDelta(t, 0.4, cfg.Params.CompatibilityDensity, 1e-9)
	assert.Equal(t, orasp.DefaultParams().CleanTime, cfg.Params.CleanTime)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	testCases := map[string]string{
		"bad format":         "format: csv\n",
		"zero count":         "count: 0\n",
		"bad environment":    "environment: staging\n",
		"s3 key w/o secret":  "s3:\n  bucket: b\n  access_key_id: k\n",
		"bad params density": "params:\n  capability_density: 3\n",
	}
	for name, body := range testCases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
