// Package uniswap implements the QuoteClient port for the Uniswap V3
// QuoterV2 contract.
package uniswap

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	marketdomain "github.com/shivam-V8/defi-agent/business/marketdata/domain"
	"github.com/shivam-V8/defi-agent/business/quoting/app"
	"github.com/shivam-V8/defi-agent/business/quoting/domain"
	"github.com/shivam-V8/defi-agent/internal/asset"
	"github.com/shivam-V8/defi-agent/internal/circuitbreaker"
	"github.com/shivam-V8/defi-agent/internal/logger"
)

const (
	tracerName     = "uniswap"
	meterName      = "uniswap"
	confidenceBase = 0.85
)

var _ app.QuoteClient = (*Client)(nil)

// Config holds the per-chain Uniswap client settings.
type Config struct {
	ChainID    uint64
	Quoter     common.Address
	Router     common.Address
	Timeout    time.Duration
	MaxRetries int
	TTLSeconds int64
	PriceBias  float64
	DustUSD    float64
}

type clientMetrics struct {
	quotesTotal  metric.Int64Counter
	quoteLatency metric.Float64Histogram
	quoteErrors  metric.Int64Counter
}

// Client fetches quotes from the QuoterV2 contract over chain RPC.
type Client struct {
	eth       *ethclient.Client
	cfg       Config
	quoterABI abi.ABI
	feeTiers  []int

	registry *asset.Registry
	log      logger.LoggerInterface
	cb       *circuitbreaker.CircuitBreaker[[]byte]

	tracer  trace.Tracer
	metrics *clientMetrics
}

// NewClient creates a Uniswap V3 quote client.
func NewClient(eth *ethclient.Client, cfg Config, registry *asset.Registry, log logger.LoggerInterface) (*Client, error) {
	parsedABI, err := abi.JSON(strings.NewReader(QuoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("failed to parse quoter ABI: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}

	c := &Client{
		eth:       eth,
		cfg:       cfg,
		quoterABI: parsedABI,
		feeTiers:  []int{FeeTier005, FeeTier030, FeeTier100, FeeTier001},
		registry:  registry,
		log:       log,
		tracer:    otel.Tracer(tracerName),
	}

	c.cb = circuitbreaker.New[[]byte](
		circuitbreaker.DefaultConfig(fmt.Sprintf("uniswap-quoter-%d", cfg.ChainID)))

	if err := c.initMetrics(); err != nil {
		return nil, fmt.Errorf("failed to init metrics: %w", err)
	}

	return c, nil
}

func (c *Client) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	c.metrics = &clientMetrics{}

	c.metrics.quotesTotal, err = meter.Int64Counter(
		"uniswap_quotes_total",
		metric.WithDescription("Total quote requests"),
	)
	if err != nil {
		return err
	}

	c.metrics.quoteLatency, err = meter.Float64Histogram(
		"uniswap_quote_latency_ms",
		metric.WithDescription("Quote request latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return err
	}

	c.metrics.quoteErrors, err = meter.Int64Counter(
		"uniswap_quote_errors_total",
		metric.WithDescription("Total quote errors"),
	)
	return err
}

func (c *Client) RouterType() domain.RouterType { return domain.RouterUniswapV3 }
func (c *Client) Router() string                { return c.cfg.Router.Hex() }
func (c *Client) ChainID() uint64               { return c.cfg.ChainID }

// FetchQuote validates the request, then queries every fee tier under the
// retry budget and keeps the best output.
func (c *Client) FetchQuote(ctx context.Context, req domain.QuoteRequest) (domain.FetchOutcome, error) {
	if err := app.ValidateRequest(req, c.cfg.ChainID); err != nil {
		return domain.FetchOutcome{}, err
	}

	ctx, span := c.tracer.Start(ctx, "uniswap.fetch_quote",
		trace.WithAttributes(
			attribute.String("token_in", req.TokenIn),
			attribute.String("token_out", req.TokenOut),
			attribute.String("amount_in", req.AmountIn),
		),
	)
	defer span.End()

	start := time.Now()
	c.metrics.quotesTotal.Add(ctx, 1)

	outcome := app.FetchWithRetry(ctx, c.cfg.MaxRetries, func(ctx context.Context) domain.FetchOutcome {
		return c.fetchOnce(ctx, req)
	})

	c.metrics.quoteLatency.Record(ctx, float64(time.Since(start).Milliseconds()))

	switch outcome.Kind {
	case domain.OutcomeQuote:
		span.SetStatus(codes.Ok, "quote received")
	case domain.OutcomeNoQuote:
		span.SetStatus(codes.Ok, "no quote available")
	case domain.OutcomeFetchFailed:
		c.metrics.quoteErrors.Add(ctx, 1)
		span.SetStatus(codes.Error, outcome.Reason)
	}

	return outcome, nil
}

func (c *Client) fetchOnce(ctx context.Context, req domain.QuoteRequest) domain.FetchOutcome {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	amountIn, _ := new(big.Int).SetString(req.AmountIn, 10)
	tokenIn := common.HexToAddress(req.TokenIn)
	tokenOut := common.HexToAddress(req.TokenOut)

	var (
		best      *QuoteResult
		bestTier  int
		infraErrs int
		lastErr   error
	)

	for _, feeTier := range c.feeTiers {
		result, err := c.quoteFeeTier(ctx, tokenIn, tokenOut, amountIn, feeTier)
		if err != nil {
			if isPoolMiss(err) {
				continue
			}
			infraErrs++
			lastErr = err
			continue
		}

		if best == nil || result.AmountOut.Cmp(best.AmountOut) > 0 {
			best = result
			bestTier = feeTier
		}
	}

	if best == nil {
		if infraErrs > 0 {
			return domain.FetchFailed(fmt.Sprintf("quoter call failed: %v", lastErr))
		}
		return domain.NoQuote("no pool found for token pair")
	}

	impact := c.estimateImpact(ctx, tokenIn, tokenOut, amountIn, best, bestTier)

	c.log.Debug(ctx, "uniswap quote",
		"token_in", req.TokenIn,
		"token_out", req.TokenOut,
		"amount_out", best.AmountOut.String(),
		"fee_tier", bestTier,
		"impact_bps", impact,
	)

	return domain.QuoteFound(&domain.RawQuote{
		Router:     c.cfg.Router.Hex(),
		RouterType: domain.RouterUniswapV3,
		ChainID:    c.cfg.ChainID,
		TokenIn:    req.TokenIn,
		TokenOut:   req.TokenOut,
		AmountIn:   req.AmountIn,
		Payload:    &quotePayload{Best: best, FeeTier: bestTier, PriceImpactBps: impact},
		FetchedAt:  time.Now(),
	})
}

// estimateImpact derives price impact from the effective price of the full
// trade versus the spot price observed on a small probe trade.
func (c *Client) estimateImpact(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, best *QuoteResult, feeTier int) int64 {
	probe := new(big.Int).Quo(amountIn, big.NewInt(1000))
	if probe.Sign() <= 0 {
		return 0
	}

	spot, err := c.quoteFeeTier(ctx, tokenIn, tokenOut, probe, feeTier)
	if err != nil || spot.AmountOut.Sign() <= 0 {
		return 0
	}

	effective := decimal.NewFromBigInt(best.AmountOut, 0).Div(decimal.NewFromBigInt(amountIn, 0))
	spotPrice := decimal.NewFromBigInt(spot.AmountOut, 0).Div(decimal.NewFromBigInt(probe, 0))
	if !spotPrice.IsPositive() {
		return 0
	}

	impact := decimal.NewFromInt(1).Sub(effective.Div(spotPrice)).Mul(decimal.NewFromInt(10000))
	bps := impact.IntPart()
	if bps < 0 {
		return 0
	}
	if bps > 10000 {
		return 10000
	}
	return bps
}

func (c *Client) quoteFeeTier(ctx context.Context, tokenIn, tokenOut common.Address, amountIn *big.Int, feeTier int) (*QuoteResult, error) {
	callData, err := c.quoterABI.Pack("quoteExactInputSingle", QuoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               big.NewInt(int64(feeTier)),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to encode call: %w", err)
	}

	result, err := c.cb.Execute(func() ([]byte, error) {
		return c.eth.CallContract(ctx, ethereum.CallMsg{
			To:   &c.cfg.Quoter,
			Data: callData,
		}, nil)
	})
	if err != nil {
		return nil, err
	}

	outputs, err := c.quoterABI.Unpack("quoteExactInputSingle", result)
	if err != nil {
		return nil, fmt.Errorf("failed to decode result: %w", err)
	}
	if len(outputs) < 4 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	return &QuoteResult{
		AmountOut:               outputs[0].(*big.Int),
		SqrtPriceX96After:       outputs[1].(*big.Int),
		InitializedTicksCrossed: outputs[2].(uint32),
		GasEstimate:             outputs[3].(*big.Int),
	}, nil
}

// Normalize converts the raw quoter payload into a canonical quote.
func (c *Client) Normalize(raw *domain.RawQuote, prices map[string]marketdomain.TokenPrice, gas marketdomain.GasPrice) (domain.NormalizedQuote, error) {
	payload, ok := raw.Payload.(*quotePayload)
	if !ok || payload.Best == nil {
		return domain.NormalizedQuote{}, fmt.Errorf("unexpected payload type %T", raw.Payload)
	}

	quote, err := app.BuildNormalizedQuote(app.NormalizeParams{
		Raw:            raw,
		AmountOut:      payload.Best.AmountOut,
		GasEstimate:    payload.Best.GasEstimate,
		PriceImpactBps: payload.PriceImpactBps,
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

// HealthCheck probes chain RPC liveness.
func (c *Client) HealthCheck(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	_, err := c.eth.BlockNumber(ctx)
	return err
}

// isPoolMiss distinguishes "no pool for this pair/tier" reverts from
// infrastructure failures.
func isPoolMiss(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "execution reverted") ||
		strings.Contains(msg, "unexpected pool") ||
		strings.Contains(msg, "out of gas")
}
