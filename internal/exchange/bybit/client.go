package bybit

import (
	"time"

	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Client wraps the Bybit API client for market data requests
type Client struct {
	httpClient *bybit_api.Client
	category   string
	timeout    time.Duration
}

// Config holds the connection settings. Market data endpoints are public,
// so APIKey and APISecret may be empty.
type Config struct {
	BaseURL   string
	APIKey    string
	APISecret string
	Category  string        // spot, linear or inverse
	Timeout   time.Duration // per request, 0 disables
}

// DefaultConfig targets mainnet spot with a 15s request timeout
func DefaultConfig() Config {
	return Config{
		BaseURL:  bybit_api.MAINNET,
		Category: "spot",
		Timeout:  15 * time.Second,
	}
}

// NewClient creates a new Bybit client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = bybit_api.MAINNET
	}
	if config.Category == "" {
		config.Category = "spot"
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(config.BaseURL),
	)

	return &Client{
		httpClient: httpClient,
		category:   config.Category,
		timeout:    config.Timeout,
	}
}
