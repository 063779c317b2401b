package bybit

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"

	"github.com/ducminhle1904/btc-strategy-backtest/pkg/types"
)

// KlineInterval represents the time interval for kline data
type KlineInterval string

const (
	Interval1m  KlineInterval = "1"
	Interval5m  KlineInterval = "5"
	Interval15m KlineInterval = "15"
	Interval30m KlineInterval = "30"
	Interval1h  KlineInterval = "60"
	Interval4h  KlineInterval = "240"
	Interval1d  KlineInterval = "D"
	Interval1w  KlineInterval = "W"
)

// maxKlineLimit is the page size cap of the kline endpoint
const maxKlineLimit = 1000

var intervals = map[string]KlineInterval{
	"1m":  Interval1m,
	"5m":  Interval5m,
	"15m": Interval15m,
	"30m": Interval30m,
	"1h":  Interval1h,
	"4h":  Interval4h,
	"1d":  Interval1d,
	"1w":  Interval1w,
}

// ParseInterval maps a bar interval label such as "4h" to the API value
func ParseInterval(label string) (KlineInterval, error) {
	if iv, ok := intervals[label]; ok {
		return iv, nil
	}
	return "", fmt.Errorf("unsupported interval %q", label)
}

// KlineParams holds parameters for fetching kline data
type KlineParams struct {
	Symbol   string
	Interval KlineInterval
	Start    time.Time
	End      time.Time
	Limit    int // max 1000
}

// GetKlines fetches one page of klines in ascending time order
func (c *Client) GetKlines(ctx context.Context, params KlineParams) ([]types.OHLCV, error) {
	if params.Limit <= 0 || params.Limit > maxKlineLimit {
		params.Limit = maxKlineLimit
	}

	reqParams := map[string]interface{}{
		"category": c.category,
		"symbol":   params.Symbol,
		"interval": string(params.Interval),
		"limit":    params.Limit,
	}
	if !params.Start.IsZero() {
		reqParams["start"] = params.Start.UnixMilli()
	}
	if !params.End.IsZero() {
		reqParams["end"] = params.End.UnixMilli()
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	result, err := c.httpClient.NewUtaBybitServiceWithParams(reqParams).GetMarketKline(ctx)
	if err != nil {
		return nil, WrapAPIError("get klines", err)
	}

	bars, err := parseKlineResponse(result)
	if err != nil {
		return nil, fmt.Errorf("failed to parse kline response: %w", err)
	}
	return bars, nil
}

// parseKlineResponse unwraps the API envelope and parses its kline list
func parseKlineResponse(response interface{}) ([]types.OHLCV, error) {
	serverResp, ok := response.(*bybit_api.ServerResponse)
	if !ok {
		return nil, fmt.Errorf("invalid response type %T", response)
	}
	if err := ParseAPIError(serverResp.RetCode, serverResp.RetMsg); err != nil {
		return nil, err
	}

	resultBytes, err := json.Marshal(serverResp.Result)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal result: %w", err)
	}

	var klineResult struct {
		Symbol   string     `json:"symbol"`
		Category string     `json:"category"`
		List     [][]string `json:"list"`
	}
	if err := json.Unmarshal(resultBytes, &klineResult); err != nil {
		return nil, fmt.Errorf("failed to unmarshal kline result: %w", err)
	}

	return klinesFromList(klineResult.List)
}

// klinesFromList converts rows of
// [startTime, open, high, low, close, volume, turnover], which the API
// returns newest first, into bars in ascending time order.
func klinesFromList(list [][]string) ([]types.OHLCV, error) {
	bars := make([]types.OHLCV, 0, len(list))
	for i, item := range list {
		if len(item) < 6 {
			continue
		}

		ms, err := strconv.ParseInt(item[0], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("row %d: invalid start time %q", i, item[0])
		}

		var values [5]float64
		for j := range values {
			v, err := strconv.ParseFloat(item[j+1], 64)
			if err != nil {
				return nil, fmt.Errorf("row %d: invalid number %q", i, item[j+1])
			}
			values[j] = v
		}

		bars = append(bars, types.OHLCV{
			Timestamp: time.UnixMilli(ms).UTC(),
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
		})
	}

	sort.Slice(bars, func(a, b int) bool {
		return bars[a].Timestamp.Before(bars[b].Timestamp)
	})
	return bars, nil
}
