package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
)

// LoadStrategyConfig reads a single strategy configuration from a YAML or
// JSON file. Parameters missing from the file keep the defaults of
// strategyType; a "type" key in the file must agree with it.
func LoadStrategyConfig(path, strategyType string) (StrategyConfig, error) {
	strategyType = strings.ToLower(strategyType)
	cfg := NewDefaultStrategyConfig(strategyType)

	if path != "" {
		v := viper.New()
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, fmt.Errorf("could not read config file: %w", err)
		}
		if err := v.Unmarshal(&cfg); err != nil {
			return cfg, fmt.Errorf("could not parse config file: %w", err)
		}
		if fileType := strings.ToLower(v.GetString("type")); fileType != "" && fileType != strategyType {
			return cfg, bterrors.ConfigInvalid("strategy_config",
				"config file is for strategy %q, not %q", fileType, strategyType)
		}
		cfg.Type = strategyType
	}

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// SaveStrategyConfig writes cfg as indented JSON, creating parent directories
func SaveStrategyConfig(cfg StrategyConfig, path string) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	return os.WriteFile(path, data, 0644)
}
