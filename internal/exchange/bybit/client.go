// Package bybit wraps the Bybit v5 market-data API for downloading candle
// history. Only public endpoints are used; API credentials are optional and
// raise the rate limits when present.
package bybit

import (
	bybit_api "github.com/bybit-exchange/bybit.go.api"
)

// Client wraps the Bybit API client.
type Client struct {
	httpClient *bybit_api.Client
	testnet    bool
}

// Config holds the configuration for the Bybit client.
type Config struct {
	APIKey    string
	APISecret string
	Testnet   bool
}

// NewClient creates a new Bybit client.
func NewClient(config Config) *Client {
	baseURL := bybit_api.MAINNET
	if config.Testnet {
		baseURL = bybit_api.TESTNET
	}

	httpClient := bybit_api.NewBybitHttpClient(
		config.APIKey,
		config.APISecret,
		bybit_api.WithBaseURL(baseURL),
	)

	return &Client{
		httpClient: httpClient,
		testnet:    config.Testnet,
	}
}

// IsTestnet returns whether the client is configured for testnet.
func (c *Client) IsTestnet() bool {
	return c.testnet
}

// Environment returns a string describing the current environment.
func (c *Client) Environment() string {
	if c.testnet {
		return "testnet"
	}
	return "mainnet"
}
