// Package zerox implements the QuoteClient port for a 0x-style HTTP
// aggregator API.
package zerox

import (
	"context"
	"fmt"
	"math/big"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	marketdomain "github.com/shivam-V8/defi-agent/business/marketdata/domain"
	"github.com/shivam-V8/defi-agent/business/quoting/app"
	"github.com/shivam-V8/defi-agent/business/quoting/domain"
	"github.com/shivam-V8/defi-agent/internal/asset"
	"github.com/shivam-V8/defi-agent/internal/httpclient"
	"github.com/shivam-V8/defi-agent/internal/logger"
	"github.com/shivam-V8/defi-agent/internal/ratelimit"
)

const (
	tracerName     = "zerox"
	confidenceBase = 0.80
)

var _ app.QuoteClient = (*Client)(nil)

// Config holds the per-chain 0x client settings.
type Config struct {
	ChainID    uint64
	BaseURL    string
	APIKey     string
	Router     common.Address
	Timeout    time.Duration
	MaxRetries int
	RatePerMin int
	TTLSeconds int64
	PriceBias  float64
	DustUSD    float64
}

// quoteResponse is the upstream wire shape (fields this core reads).
type quoteResponse struct {
	BuyAmount            string `json:"buyAmount"`
	SellAmount           string `json:"sellAmount"`
	EstimatedPriceImpact string `json:"estimatedPriceImpact"`
	Gas                  string `json:"gas"`
	GasPrice             string `json:"gasPrice"`
	To                   string `json:"to"`
}

// Client fetches quotes from the 0x HTTP API.
type Client struct {
	http     httpclient.Client
	cfg      Config
	registry *asset.Registry
	log      logger.LoggerInterface
	limiter  *ratelimit.Limiter
	tracer   trace.Tracer
}

// NewClient creates a 0x quote client.
func NewClient(cfg Config, registry *asset.Registry, log logger.LoggerInterface) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.RatePerMin <= 0 {
		cfg.RatePerMin = 60
	}

	headers := map[string]string{}
	if cfg.APIKey != "" {
		headers["0x-api-key"] = cfg.APIKey
	}

	httpClient, err := httpclient.NewInstrumentedClient(
		httpclient.WithProviderName("zerox"),
		httpclient.WithBaseURL(cfg.BaseURL),
		httpclient.WithRequestTimeout(cfg.Timeout),
		httpclient.WithHeaders(headers),
	)
	if err != nil {
		return nil, err
	}

	return &Client{
		http:     httpClient,
		cfg:      cfg,
		registry: registry,
		log:      log,
		limiter:  ratelimit.New(cfg.RatePerMin),
		tracer:   otel.Tracer(tracerName),
	}, nil
}

func (c *Client) RouterType() domain.RouterType { return domain.RouterZeroX }
func (c *Client) Router() string                { return c.cfg.Router.Hex() }
func (c *Client) ChainID() uint64               { return c.cfg.ChainID }

// FetchQuote validates the request, then queries the HTTP API under the
// rate limit and retry budget.
func (c *Client) FetchQuote(ctx context.Context, req domain.QuoteRequest) (domain.FetchOutcome, error) {
	if err := app.ValidateRequest(req, c.cfg.ChainID); err != nil {
		return domain.FetchOutcome{}, err
	}

	ctx, span := c.tracer.Start(ctx, "zerox.fetch_quote",
		trace.WithAttributes(
			attribute.String("token_in", req.TokenIn),
			attribute.String("token_out", req.TokenOut),
			attribute.String("amount_in", req.AmountIn),
		),
	)
	defer span.End()

	outcome := app.FetchWithRetry(ctx, c.cfg.MaxRetries, func(ctx context.Context) domain.FetchOutcome {
		return c.fetchOnce(ctx, req)
	})

	if outcome.Kind == domain.OutcomeFetchFailed {
		span.SetStatus(codes.Error, outcome.Reason)
	} else {
		span.SetStatus(codes.Ok, "")
	}

	return outcome, nil
}

func (c *Client) fetchOnce(ctx context.Context, req domain.QuoteRequest) domain.FetchOutcome {
	if err := c.limiter.Wait(ctx); err != nil {
		return domain.FetchFailed(fmt.Sprintf("rate limiter: %v", err))
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var parsed quoteResponse
	resp, err := c.http.NewRequest().
		SetQueryParams(map[string]string{
			"sellToken":          req.TokenIn,
			"buyToken":           req.TokenOut,
			"sellAmount":         req.AmountIn,
			"slippagePercentage": strconv.FormatFloat(req.SlippageTolerance/100, 'f', -1, 64),
		}).
		SetResult(&parsed).
		Get(ctx, "/swap/v1/quote")
	if err != nil {
		return domain.FetchFailed(fmt.Sprintf("zerox request failed: %v", err))
	}

	// Upstream non-success or a response missing required fields means the
	// venue has no quote for this pair, not an infrastructure failure.
	if resp.IsError() {
		return domain.NoQuote(fmt.Sprintf("zerox returned status %d", resp.StatusCode))
	}
	if parsed.BuyAmount == "" {
		return domain.NoQuote("zerox response missing buyAmount")
	}

	c.log.Debug(ctx, "zerox quote",
		"token_in", req.TokenIn,
		"token_out", req.TokenOut,
		"buy_amount", parsed.BuyAmount,
	)

	return domain.QuoteFound(&domain.RawQuote{
		Router:     c.cfg.Router.Hex(),
		RouterType: domain.RouterZeroX,
		ChainID:    c.cfg.ChainID,
		TokenIn:    req.TokenIn,
		TokenOut:   req.TokenOut,
		AmountIn:   req.AmountIn,
		Payload:    &parsed,
		FetchedAt:  time.Now(),
	})
}

// Normalize converts the raw API payload into a canonical quote.
func (c *Client) Normalize(raw *domain.RawQuote, prices map[string]marketdomain.TokenPrice, gas marketdomain.GasPrice) (domain.NormalizedQuote, error) {
	payload, ok := raw.Payload.(*quoteResponse)
	if !ok {
		return domain.NormalizedQuote{}, fmt.Errorf("unexpected payload type %T", raw.Payload)
	}

	amountOut, ok := new(big.Int).SetString(payload.BuyAmount, 10)
	if !ok {
		return domain.NormalizedQuote{}, fmt.Errorf("invalid buyAmount %q", payload.BuyAmount)
	}

	var gasEstimate *big.Int
	if payload.Gas != "" {
		gasEstimate, _ = new(big.Int).SetString(payload.Gas, 10)
	}

	// estimatedPriceImpact arrives as a percentage string, e.g. "1.25".
	var impactBps int64
	if payload.EstimatedPriceImpact != "" {
		if pct, err := strconv.ParseFloat(payload.EstimatedPriceImpact, 64); err == nil {
			impactBps = int64(pct * 100)
		}
	}

	quote, err := app.BuildNormalizedQuote(app.NormalizeParams{
		Raw:            raw,
		AmountOut:      amountOut,
		GasEstimate:    gasEstimate,
		PriceImpactBps: impactBps,
		Prices:         prices,
		Gas:            gas,
		Registry:       c.registry,
		TTLSeconds:     c.cfg.TTLSeconds,
		ConfidenceBase: confidenceBase,
		DustUSD:        c.cfg.DustUSD,
	})
	if err != nil {
		return domain.NormalizedQuote{}, err
	}

	app.ApplyPriceBias(&quote, c.cfg.PriceBias)

	return quote, nil
}

// HealthCheck probes the API with a minimal request.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	resp, err := c.http.NewRequest().Get(ctx, "/swap/v1/sources")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("zerox health probe returned status %d", resp.StatusCode)
	}
	return nil
}
