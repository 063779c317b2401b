package data

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// DefaultFileLocator resolves series files under a data root. It tries the
// configured path template first and then the exchange layout
// {root}/{exchange}/{category}/{SYMBOL}/{minutes}/candles.csv.
type DefaultFileLocator struct {
	root     string
	template string
	exchange string
	logger   *zap.Logger
}

// NewDefaultFileLocator creates a locator rooted at dir. template may use
// the {symbol}, {interval} and {minutes} placeholders.
func NewDefaultFileLocator(dir, template string, logger *zap.Logger) *DefaultFileLocator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DefaultFileLocator{
		root:     dir,
		template: template,
		exchange: "bybit",
		logger:   logger,
	}
}

// Resolve returns the first existing path for symbol/interval or ""
func (f *DefaultFileLocator) Resolve(symbol, interval string) string {
	var attempted []string

	if f.template != "" {
		path := filepath.Join(f.root, ExpandTemplate(f.template, symbol, interval))
		attempted = append(attempted, path)
		if fileExists(path) {
			return path
		}
	}

	if path := f.FindDataFile(f.exchange, symbol, interval); path != "" {
		return path
	}

	f.logger.Debug("no data file found",
		zap.String("symbol", symbol),
		zap.String("interval", interval),
		zap.Strings("attempted", attempted))
	return ""
}

// FindDataFile looks for {root}/{exchange}/{category}/{SYMBOL}/{minutes}/candles.csv
func (f *DefaultFileLocator) FindDataFile(exchange, symbol, interval string) string {
	symbol = strings.ToUpper(symbol)
	minutes := ConvertIntervalToMinutes(interval)

	var categories []string
	switch strings.ToLower(exchange) {
	case "bybit":
		categories = []string{"spot", "linear", "inverse"}
	case "binance":
		categories = []string{"spot", "futures"}
	default:
		categories = []string{"spot", "futures", "linear", "inverse"}
	}

	for _, category := range categories {
		path := filepath.Join(f.root, exchange, category, symbol, minutes, "candles.csv")
		if fileExists(path) {
			return path
		}
	}
	return ""
}

// ExpandTemplate substitutes the {symbol}, {interval} and {minutes} placeholders
func ExpandTemplate(template, symbol, interval string) string {
	r := strings.NewReplacer(
		"{symbol}", strings.ToUpper(symbol),
		"{interval}", interval,
		"{minutes}", ConvertIntervalToMinutes(interval),
	)
	return r.Replace(template)
}

// ConvertIntervalToMinutes converts interval strings like "5m", "1h", "4h" to minute numbers
func ConvertIntervalToMinutes(interval string) string {
	if _, err := strconv.Atoi(interval); err == nil {
		return interval
	}

	interval = strings.ToLower(strings.TrimSpace(interval))
	if len(interval) < 2 {
		return interval
	}

	num, err := strconv.Atoi(interval[:len(interval)-1])
	if err != nil {
		return interval
	}

	switch interval[len(interval)-1:] {
	case "m":
		return strconv.Itoa(num)
	case "h":
		return strconv.Itoa(num * 60)
	case "d":
		return strconv.Itoa(num * 24 * 60)
	case "w":
		return strconv.Itoa(num * 7 * 24 * 60)
	default:
		return interval
	}
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
