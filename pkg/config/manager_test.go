package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadStrategyConfig_Defaults(t *testing.T) {
	cfg, err := LoadStrategyConfig("", "RSI")
	require.NoError(t, err)
	assert.Equal(t, StrategyRSI, cfg.Type)
	assert.Equal(t, NewDefaultRSIConfig(), cfg.RSI)
}

func TestLoadStrategyConfig_YAMLOverridesDefaults(t *testing.T) {
	path := writeFile(t, "grid.yaml", `
grid:
  grid_spacing: 250
  grid_levels: 4
`)
	cfg, err := LoadStrategyConfig(path, StrategyGrid)
	require.NoError(t, err)
	assert.Equal(t, 250.0, cfg.Grid.GridSpacing)
	assert.Equal(t, 4, cfg.Grid.GridLevels)
	assert.Equal(t, NewDefaultGridConfig().BaseOrderSize, cfg.Grid.BaseOrderSize)
}

func TestLoadStrategyConfig_Errors(t *testing.T) {
	path := writeFile(t, "macd.json", `{"type": "macd"}`)
	_, err := LoadStrategyConfig(path, StrategyRSI)
	assert.ErrorIs(t, err, bterrors.ErrConfigInvalid)

	path = writeFile(t, "bad.yaml", "grid:\n  grid_levels: 0\n")
	_, err = LoadStrategyConfig(path, StrategyGrid)
	assert.ErrorIs(t, err, bterrors.ErrConfigInvalid)

	_, err = LoadStrategyConfig(filepath.Join(t.TempDir(), "missing.yaml"), StrategyGrid)
	assert.Error(t, err)
}

func TestSaveStrategyConfig_RoundTrip(t *testing.T) {
	cfg := NewDefaultStrategyConfig(StrategyBollinger)
	cfg.Bollinger.Period = 30

	path := filepath.Join(t.TempDir(), "out", "best.json")
	require.NoError(t, SaveStrategyConfig(cfg, path))

	loaded, err := LoadStrategyConfig(path, StrategyBollinger)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}
