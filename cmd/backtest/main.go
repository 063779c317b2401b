package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ducminhle1904/btc-strategy-backtest/internal/logger"
	"github.com/ducminhle1904/btc-strategy-backtest/internal/monitoring"
)

var (
	debug       bool
	envFile     string
	metricsAddr string

	log     = zap.NewNop()
	metrics *monitoring.Metrics
	health  *monitoring.HealthChecker
)

var rootCmd = &cobra.Command{
	Use:   "backtest",
	Short: "BTC strategy backtesting toolkit",
	Long: `Backtest RSI, MACD, Bollinger and multi-layer grid strategies on
historical BTC bars from CSV files or the Bybit kline API, compare
configurations side by side and export the results.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = log.Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "d", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "environment file with API credentials")
	rootCmd.PersistentFlags().StringVar(&metricsAddr, "metrics-addr", "", "serve /metrics and /healthz on this address while running")
}

// setup loads the env file and builds the logger and run metrics shared by
// every command
func setup(cmd *cobra.Command, args []string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("loading %s: %w", envFile, err)
		}
	}

	l, err := logger.New(logger.Options{Development: debug})
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	log = l

	metrics = monitoring.NewMetrics()
	health = monitoring.NewHealthChecker()

	if metricsAddr != "" {
		startMetricsServer(cmd.Context(), metricsAddr)
	}
	return nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
