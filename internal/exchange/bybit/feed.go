package bybit

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	bterrors "github.com/ducminhle1904/btc-strategy-backtest/internal/errors"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/data"
	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// Default page request budget of a feed
const (
	defaultBurst             = 5
	defaultRequestsPerSecond = 10
)

// klineSource fetches one page of klines
type klineSource interface {
	GetKlines(ctx context.Context, params KlineParams) ([]types.OHLCV, error)
}

// Feed is a data.BarFeed backed by the Bybit kline endpoint. Ranges larger
// than one page are fetched backwards from end until start is covered.
type Feed struct {
	source    klineSource
	interval  KlineInterval
	pageLimit int
	retry     RetryConfig
	limiter   *RateLimiter
	logger    *zap.Logger
}

var _ data.BarFeed = (*Feed)(nil)

// FeedOption configures a Feed
type FeedOption func(*Feed)

// WithLogger sets the feed logger
func WithLogger(logger *zap.Logger) FeedOption {
	return func(f *Feed) {
		if logger != nil {
			f.logger = logger
		}
	}
}

// WithRetry overrides the retry policy of page requests
func WithRetry(cfg RetryConfig) FeedOption {
	return func(f *Feed) { f.retry = cfg }
}

// WithPageLimit sets the number of klines requested per page
func WithPageLimit(limit int) FeedOption {
	return func(f *Feed) {
		if limit > 0 && limit <= maxKlineLimit {
			f.pageLimit = limit
		}
	}
}

// WithRateLimit caps page requests at perSecond with bursts of burst
func WithRateLimit(burst int, perSecond float64) FeedOption {
	return func(f *Feed) {
		if burst > 0 && perSecond > 0 {
			f.limiter = NewRateLimiter(burst, perSecond)
		}
	}
}

// NewFeed creates a feed of interval bars using cfg
func NewFeed(cfg Config, interval string, opts ...FeedOption) (*Feed, error) {
	return newFeed(NewClient(cfg), interval, opts...)
}

func newFeed(source klineSource, interval string, opts ...FeedOption) (*Feed, error) {
	iv, err := ParseInterval(interval)
	if err != nil {
		return nil, bterrors.ConfigInvalid("bybit_feed", "%v", err)
	}

	f := &Feed{
		source:    source,
		interval:  iv,
		pageLimit: maxKlineLimit,
		retry:     DefaultRetryConfig(),
		limiter:   NewRateLimiter(defaultBurst, defaultRequestsPerSecond),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f, nil
}

// GetBars implements data.BarFeed
func (f *Feed) GetBars(ctx context.Context, symbol string, start, end time.Time) ([]types.OHLCV, error) {
	var pages [][]types.OHLCV
	cursor := end

	for {
		var page []types.OHLCV
		err := Retry(ctx, f.retry, func() error {
			if err := f.limiter.Wait(ctx); err != nil {
				return err
			}
			var err error
			page, err = f.source.GetKlines(ctx, KlineParams{
				Symbol:   symbol,
				Interval: f.interval,
				Start:    start,
				End:      cursor,
				Limit:    f.pageLimit,
			})
			return err
		})
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, ctxErr
			}
			return nil, bterrors.Wrap(err, bterrors.ErrorCategoryDataUnavailable, "bybit_feed", "get_klines").
				WithContext("symbol", symbol)
		}
		if len(page) == 0 {
			break
		}

		pages = append(pages, page)
		f.logger.Debug("kline page fetched",
			zap.String("symbol", symbol),
			zap.Int("bars", len(page)),
			zap.Time("from", page[0].Timestamp),
			zap.Time("to", page[len(page)-1].Timestamp))

		earliest := page[0].Timestamp
		if len(page) < f.pageLimit || !earliest.After(start) {
			break
		}
		cursor = earliest.Add(-time.Millisecond)
	}

	var bars []types.OHLCV
	for i := len(pages) - 1; i >= 0; i-- {
		bars = append(bars, pages[i]...)
	}
	bars = data.FilterByDateRange(data.Normalize(bars), start, end)

	if len(bars) == 0 {
		return nil, bterrors.DataUnavailable("bybit_feed", symbol,
			fmt.Sprintf("no klines between %s and %s", start.Format(time.RFC3339), end.Format(time.RFC3339)))
	}

	f.logger.Info("klines downloaded",
		zap.String("symbol", symbol),
		zap.Int("bars", len(bars)),
		zap.Int("pages", len(pages)))
	return bars, nil
}
