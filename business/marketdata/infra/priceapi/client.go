// Package priceapi implements the HTTP price oracle adapter.
package priceapi

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shivam-V8/defi-agent/business/marketdata/domain"
	"github.com/shivam-V8/defi-agent/internal/apperror"
	"github.com/shivam-V8/defi-agent/internal/httpclient"
	"github.com/shivam-V8/defi-agent/internal/logger"
)

// Config holds the price API connection settings.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// Client fetches token USD prices from a Coingecko-compatible price API.
type Client struct {
	http httpclient.Client
	cfg  Config
	log  logger.LoggerInterface
}

// priceResponse is the upstream wire shape: token address → {"usd": price}.
type priceResponse map[string]map[string]decimal.Decimal

// NewClient creates the price API client.
func NewClient(cfg Config, log logger.LoggerInterface) (*Client, error) {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["x-api-key"] = cfg.APIKey
	}

	httpClient, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("priceapi"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(timeout),
		httpclient.WithHeaders(headers),
	)
	if err != nil {
		return nil, err
	}

	return &Client{http: httpClient, cfg: cfg, log: log}, nil
}

// TokenPricesUSD fetches USD prices for the given token addresses. The
// native pseudo-address is passed through unchanged; the upstream contract
// is expected to price it.
func (c *Client) TokenPricesUSD(ctx context.Context, chainID uint64, tokens []string) ([]domain.TokenPrice, error) {
	if len(tokens) == 0 {
		return nil, nil
	}

	var parsed priceResponse
	resp, err := c.http.NewRequest().
		SetQueryParam("chain_id", fmt.Sprintf("%d", chainID)).
		SetQueryParam("contract_addresses", strings.Join(tokens, ",")).
		SetQueryParam("vs_currencies", "usd").
		SetResult(&parsed).
		Get(ctx, "/simple/token_price")
	if err != nil {
		return nil, apperror.External(apperror.CodePriceOracleFailed, "price api request failed", err)
	}
	if resp.IsError() {
		return nil, apperror.New(apperror.CodePriceOracleFailed,
			apperror.WithContext(fmt.Sprintf("price api returned status %d", resp.StatusCode)))
	}

	now := time.Now()
	prices := make([]domain.TokenPrice, 0, len(parsed))
	for token, quote := range parsed {
		usd, ok := quote["usd"]
		if !ok {
			continue
		}
		prices = append(prices, domain.TokenPrice{
			Token:     strings.ToLower(token),
			PriceUSD:  usd,
			Timestamp: now,
			Source:    domain.SourceOracle,
		})
	}

	return prices, nil
}
