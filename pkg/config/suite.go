package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
)

// DateLayout is the layout of from/to dates in suites and CLI flags
const DateLayout = "2006-01-02"

// Data sources
const (
	DataSourceCSV   = "csv"
	DataSourceBybit = "bybit"
)

// Archive types
const (
	ArchiveLocalFS = "localfs"
	ArchiveS3      = "s3"
)

// Suite is a comparison run definition: one bar feed, many strategy configs.
type Suite struct {
	Backtest BacktestConfig `mapstructure:"backtest"`
	Data     DataConfig     `mapstructure:"data"`
	From     string         `mapstructure:"from"`
	To       string         `mapstructure:"to"`
	RankBy   string         `mapstructure:"rank_by"`
	Workers  int            `mapstructure:"workers"`
	Runs     []RunConfig    `mapstructure:"-"`
	Report   ReportConfig   `mapstructure:"report"`
	Archive  ArchiveConfig  `mapstructure:"archive"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
}

// RunConfig names one strategy configuration of a suite
type RunConfig struct {
	Name     string
	Strategy StrategyConfig
}

// DataConfig selects the bar feed
type DataConfig struct {
	Source       string      `mapstructure:"source"` // csv or bybit
	Dir          string      `mapstructure:"dir"`
	PathTemplate string      `mapstructure:"path_template"` // {symbol} and {interval} placeholders
	Cache        bool        `mapstructure:"cache"`
	Bybit        BybitConfig `mapstructure:"bybit"`
}

// BybitConfig holds connection settings for the Bybit kline feed
type BybitConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	APIKey    string        `mapstructure:"api_key"`
	APISecret string        `mapstructure:"api_secret"`
	Category  string        `mapstructure:"category"`
	Timeout   time.Duration `mapstructure:"timeout"`
}

// ReportConfig selects report outputs
type ReportConfig struct {
	Dir     string   `mapstructure:"dir"`
	Formats []string `mapstructure:"formats"` // console, csv, json, excel
}

// ArchiveConfig selects where report artifacts are archived
type ArchiveConfig struct {
	Type string   `mapstructure:"type"` // "", localfs or s3
	Path string   `mapstructure:"path"`
	S3   S3Config `mapstructure:"s3"`
}

// S3Config holds S3 archive settings
type S3Config struct {
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	Region    string `mapstructure:"region"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Prefix    string `mapstructure:"prefix"`
}

// MetricsConfig holds the Prometheus endpoint address
type MetricsConfig struct {
	Addr string `mapstructure:"addr"`
}

// DefaultSuite returns a suite with every setting except Runs defaulted
func DefaultSuite() *Suite {
	return &Suite{
		Backtest: NewDefaultBacktestConfig(),
		Data: DataConfig{
			Source:       DataSourceCSV,
			Dir:          "data",
			PathTemplate: "{symbol}_{interval}.csv",
			Bybit: BybitConfig{
				BaseURL:  "https://api.bybit.com",
				Category: "spot",
				Timeout:  30 * time.Second,
			},
		},
		RankBy:  "total_return",
		Workers: 4,
		Report: ReportConfig{
			Dir:     "results",
			Formats: []string{"console"},
		},
	}
}

// LoadSuite reads a suite from a YAML or JSON file. Settings can be
// overridden with BTCBT_ environment variables (BTCBT_BACKTEST_INITIAL_CASH),
// and string values of the form ${VAR} are expanded from the environment.
func LoadSuite(path string) (*Suite, error) {
	v := viper.New()
	v.SetConfigFile(path)

	v.SetEnvPrefix("BTCBT")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	registerDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading suite: %w", err)
	}

	for _, key := range v.AllKeys() {
		val := v.GetString(key)
		if strings.HasPrefix(val, "${") && strings.HasSuffix(val, "}") {
			envKey := strings.TrimSuffix(strings.TrimPrefix(val, "${"), "}")
			v.Set(key, os.Getenv(envKey))
		}
	}

	suite := DefaultSuite()
	if err := v.Unmarshal(suite); err != nil {
		return nil, fmt.Errorf("unmarshaling suite: %w", err)
	}

	runs, err := decodeRuns(v.Get("runs"))
	if err != nil {
		return nil, err
	}
	suite.Runs = runs

	if err := suite.Validate(); err != nil {
		return nil, err
	}
	return suite, nil
}

func registerDefaults(v *viper.Viper) {
	def := DefaultSuite()
	v.SetDefault("backtest.symbol", def.Backtest.Symbol)
	v.SetDefault("backtest.interval", def.Backtest.Interval)
	v.SetDefault("backtest.initial_cash", def.Backtest.InitialCash)
	v.SetDefault("backtest.commission", def.Backtest.Commission)
	v.SetDefault("backtest.slippage_bps", def.Backtest.SlippageBps)
	v.SetDefault("data.source", def.Data.Source)
	v.SetDefault("data.dir", def.Data.Dir)
	v.SetDefault("data.bybit.api_key", "")
	v.SetDefault("data.bybit.api_secret", "")
	v.SetDefault("archive.s3.access_key", "")
	v.SetDefault("archive.s3.secret_key", "")
	v.SetDefault("rank_by", def.RankBy)
	v.SetDefault("workers", def.Workers)
}

// decodeRuns decodes each run over the strategy defaults, so a run only
// needs to name the parameters it changes.
func decodeRuns(raw interface{}) ([]RunConfig, error) {
	items, ok := raw.([]interface{})
	if !ok || len(items) == 0 {
		return nil, bterrors.ConfigInvalid("suite", "at least one run is required")
	}

	runs := make([]RunConfig, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			return nil, bterrors.ConfigInvalid("suite", "run %d is not a mapping", i)
		}

		sub := viper.New()
		if err := sub.MergeConfigMap(m); err != nil {
			return nil, fmt.Errorf("reading run %d: %w", i, err)
		}

		strategyType := strings.ToLower(sub.GetString("type"))
		sc := NewDefaultStrategyConfig(strategyType)
		if err := sub.Unmarshal(&sc); err != nil {
			return nil, fmt.Errorf("unmarshaling run %d: %w", i, err)
		}
		sc.Type = strategyType

		name := sub.GetString("name")
		if name == "" {
			name = fmt.Sprintf("%s-%d", strategyType, i+1)
		}
		runs = append(runs, RunConfig{Name: name, Strategy: sc})
	}
	return runs, nil
}

// Validate checks suite-level settings. Per-run strategy configs are
// validated by the runner so one bad run does not fail the suite.
func (s *Suite) Validate() error {
	if err := s.Backtest.Validate(); err != nil {
		return err
	}
	if _, _, err := s.Range(); err != nil {
		return err
	}
	switch s.Data.Source {
	case DataSourceCSV, DataSourceBybit:
	default:
		return bterrors.ConfigInvalid("suite", "data.source must be '%s' or '%s', got: %s",
			DataSourceCSV, DataSourceBybit, s.Data.Source)
	}
	switch s.Archive.Type {
	case "", ArchiveLocalFS:
	case ArchiveS3:
		if s.Archive.S3.Bucket == "" {
			return bterrors.ConfigInvalid("suite", "archive.s3.bucket required when archive type is s3")
		}
	default:
		return bterrors.ConfigInvalid("suite", "archive.type must be '%s' or '%s', got: %s",
			ArchiveLocalFS, ArchiveS3, s.Archive.Type)
	}
	if s.Workers < 0 {
		return bterrors.ConfigInvalid("suite", "workers cannot be negative, got: %d", s.Workers)
	}

	seen := make(map[string]bool, len(s.Runs))
	for _, r := range s.Runs {
		if seen[r.Name] {
			return bterrors.ConfigInvalid("suite", "duplicate run name %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// Range parses From and To. To is inclusive of its whole day.
func (s *Suite) Range() (time.Time, time.Time, error) {
	return ParseRange(s.From, s.To)
}

// ParseRange parses a from/to date pair in DateLayout
func ParseRange(from, to string) (time.Time, time.Time, error) {
	start, err := time.Parse(DateLayout, from)
	if err != nil {
		return time.Time{}, time.Time{}, bterrors.ConfigInvalid("range", "invalid from date %q, expected YYYY-MM-DD", from)
	}
	end, err := time.Parse(DateLayout, to)
	if err != nil {
		return time.Time{}, time.Time{}, bterrors.ConfigInvalid("range", "invalid to date %q, expected YYYY-MM-DD", to)
	}
	end = end.Add(24*time.Hour - time.Nanosecond)
	if !end.After(start) {
		return time.Time{}, time.Time{}, bterrors.ConfigInvalid("range", "to (%s) must not be before from (%s)", to, from)
	}
	return start, end, nil
}

// S3ConfigFromEnv reads S3 archive settings from BTCBT_ARCHIVE_S3_*
// variables (BTCBT_ARCHIVE_S3_BUCKET, BTCBT_ARCHIVE_S3_ACCESS_KEY, ...)
func S3ConfigFromEnv() S3Config {
	v := viper.New()
	v.SetEnvPrefix("BTCBT_ARCHIVE_S3")
	v.AutomaticEnv()

	return S3Config{
		Bucket:    v.GetString("bucket"),
		Endpoint:  v.GetString("endpoint"),
		Region:    v.GetString("region"),
		AccessKey: v.GetString("access_key"),
		SecretKey: v.GetString("secret_key"),
		Prefix:    v.GetString("prefix"),
	}
}
