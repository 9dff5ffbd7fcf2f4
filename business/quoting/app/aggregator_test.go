package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"strings"
	"testing"
	"time"

	marketapp "github.com/shivam-V8/defi-agent/business/marketdata/app"
	marketdomain "github.com/shivam-V8/defi-agent/business/marketdata/domain"
	"github.com/shivam-V8/defi-agent/business/quoting/domain"
	"github.com/shivam-V8/defi-agent/internal/asset"
	"github.com/shivam-V8/defi-agent/internal/logger"
)

type stubQuoteClient struct {
	routerType domain.RouterType
	router     string
	chainID    uint64

	outcome      domain.FetchOutcome
	amountOut    *big.Int
	panicMsg     string
	healthErr    error
	normalizeErr error
}

func (c *stubQuoteClient) RouterType() domain.RouterType { return c.routerType }
func (c *stubQuoteClient) Router() string                { return c.router }
func (c *stubQuoteClient) ChainID() uint64               { return c.chainID }

func (c *stubQuoteClient) FetchQuote(context.Context, domain.QuoteRequest) (domain.FetchOutcome, error) {
	if c.panicMsg != "" {
		panic(c.panicMsg)
	}
	return c.outcome, nil
}

func (c *stubQuoteClient) Normalize(raw *domain.RawQuote, prices map[string]marketdomain.TokenPrice, gas marketdomain.GasPrice) (domain.NormalizedQuote, error) {
	if c.normalizeErr != nil {
		return domain.NormalizedQuote{}, c.normalizeErr
	}
	amountOut := c.amountOut
	if amountOut == nil {
		amountOut = big.NewInt(290000000000000000)
	}
	return BuildNormalizedQuote(NormalizeParams{
		Raw:            raw,
		AmountOut:      amountOut,
		GasEstimate:    big.NewInt(150000),
		Prices:         prices,
		Gas:            gas,
		Registry:       asset.DefaultRegistry(),
		TTLSeconds:     60,
		ConfidenceBase: 0.85,
	})
}

func (c *stubQuoteClient) HealthCheck(context.Context) error { return c.healthErr }

type emptyPriceSource struct{}

func (emptyPriceSource) TokenPricesUSD(context.Context, uint64, []string) ([]marketdomain.TokenPrice, error) {
	return nil, nil
}

type staticGasSource struct{}

func (staticGasSource) GasPrice(_ context.Context, chainID uint64) (marketdomain.GasPrice, error) {
	return marketdomain.GasPrice{ChainID: chainID, PriceWei: big.NewInt(25_000_000_000)}, nil
}

func newTestAggregator(t *testing.T, clients ...QuoteClient) *Aggregator {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelError, "quoting-test", nil)
	oracle := marketapp.NewOracleService(emptyPriceSource{}, staticGasSource{}, log)
	return NewAggregator(clients, oracle, log)
}

func quotingClient(rt domain.RouterType, router string) *stubQuoteClient {
	return &stubQuoteClient{
		routerType: rt,
		router:     router,
		chainID:    1,
		outcome: domain.QuoteFound(&domain.RawQuote{
			Router:     router,
			RouterType: rt,
			ChainID:    1,
			TokenIn:    "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
			TokenOut:   "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
			AmountIn:   "1000000000",
			FetchedAt:  time.Now(),
		}),
	}
}

func TestAggregate_IsolatesClientFailures(t *testing.T) {
	good := quotingClient(domain.RouterUniswapV3, "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	dry := &stubQuoteClient{
		routerType: domain.RouterZeroX,
		router:     "0xDef1C0ded9bec7F1a1670819833240f027b25EfF",
		chainID:    1,
		outcome:    domain.NoQuote("no liquidity for pair"),
	}
	crashing := &stubQuoteClient{
		routerType: domain.RouterUniswapV3,
		router:     "0x3333333333333333333333333333333333333333",
		chainID:    1,
		panicMsg:   "nil pool state",
	}

	agg := newTestAggregator(t, good, dry, crashing)

	result, err := agg.Aggregate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}

	if len(result.Quotes) != 1 {
		t.Fatalf("len(Quotes) = %d, want 1", len(result.Quotes))
	}
	if result.Quotes[0].Router != good.router {
		t.Errorf("quote router = %q, want the healthy client's", result.Quotes[0].Router)
	}

	if len(result.Errors) != 2 {
		t.Fatalf("len(Errors) = %d, want one per failed client: %+v", len(result.Errors), result.Errors)
	}
	byRouter := map[string]domain.FetchError{}
	for _, e := range result.Errors {
		byRouter[e.Router] = e
	}
	if e := byRouter[dry.router]; !strings.HasPrefix(e.Message, "no quote available: ") {
		t.Errorf("dry venue message = %q", e.Message)
	}
	if e := byRouter[crashing.router]; !strings.Contains(e.Message, "client panicked: nil pool state") {
		t.Errorf("crashed venue message = %q", e.Message)
	}
}

func TestAggregate_NormalizationFailureBecomesError(t *testing.T) {
	broken := quotingClient(domain.RouterUniswapV3, "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	broken.normalizeErr = errors.New("decoding pool response")

	agg := newTestAggregator(t, broken)

	result, err := agg.Aggregate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(result.Quotes) != 0 {
		t.Errorf("len(Quotes) = %d, want 0", len(result.Quotes))
	}
	if len(result.Errors) != 1 || !strings.HasPrefix(result.Errors[0].Message, "normalization failed: ") {
		t.Errorf("Errors = %+v, want one normalization failure", result.Errors)
	}
}

func TestAggregate_UnsupportedChain(t *testing.T) {
	agg := newTestAggregator(t, quotingClient(domain.RouterUniswapV3, "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45"))

	req := validRequest()
	req.ChainID = 42161
	if _, err := agg.Aggregate(context.Background(), req); err == nil {
		t.Error("expected an error for a chain with no clients")
	}
}

func TestAggregate_PreRanksByNetOutput(t *testing.T) {
	low := quotingClient(domain.RouterUniswapV3, "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	low.amountOut = big.NewInt(280000000000000000)
	high := quotingClient(domain.RouterZeroX, "0xDef1C0ded9bec7F1a1670819833240f027b25EfF")
	high.amountOut = big.NewInt(295000000000000000)

	agg := newTestAggregator(t, low, high)

	result, err := agg.Aggregate(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(result.Quotes) != 2 {
		t.Fatalf("len(Quotes) = %d, want 2", len(result.Quotes))
	}
	if result.Quotes[0].Router != high.router {
		t.Errorf("first quote router = %q, want the higher-output venue", result.Quotes[0].Router)
	}
	if result.Duration <= 0 {
		t.Error("Duration must be recorded")
	}
}

func TestHealthCheck_PerClientKeys(t *testing.T) {
	healthy := quotingClient(domain.RouterUniswapV3, "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45")
	down := quotingClient(domain.RouterZeroX, "0xDef1C0ded9bec7F1a1670819833240f027b25EfF")
	down.healthErr = errors.New("rpc unreachable")

	agg := newTestAggregator(t, healthy, down)

	health := agg.HealthCheck(context.Background())
	if !health["UNISWAP_V3@1"] {
		t.Error("healthy client reported down")
	}
	if health["ZEROX@1"] {
		t.Error("failing client reported healthy")
	}
}
