package app

import (
	"context"
	"errors"
	"io"
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shivam-V8/defi-agent/business/marketdata/domain"
	"github.com/shivam-V8/defi-agent/internal/asset"
	"github.com/shivam-V8/defi-agent/internal/logger"
)

type stubPriceSource struct {
	prices map[string]decimal.Decimal
	err    error
	calls  int
}

func (s *stubPriceSource) TokenPricesUSD(_ context.Context, _ uint64, tokens []string) ([]domain.TokenPrice, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	var out []domain.TokenPrice
	for _, token := range tokens {
		if p, ok := s.prices[token]; ok {
			out = append(out, domain.TokenPrice{Token: token, PriceUSD: p, Source: domain.SourceOracle})
		}
	}
	return out, nil
}

type stubGasSource struct {
	priceWei *big.Int
	err      error
	calls    int
}

func (s *stubGasSource) GasPrice(_ context.Context, chainID uint64) (domain.GasPrice, error) {
	s.calls++
	if s.err != nil {
		return domain.GasPrice{}, s.err
	}
	return domain.GasPrice{ChainID: chainID, PriceWei: s.priceWei, Source: domain.SourceRPC}, nil
}

func testOracleLogger() logger.LoggerInterface {
	return logger.New(io.Discard, logger.LevelError, "marketdata-test", nil)
}

func TestTokenPricesUSD_MixesOracleAndFallback(t *testing.T) {
	usdc := "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	unknown := "0x1234567890123456789012345678901234567890"

	src := &stubPriceSource{prices: map[string]decimal.Decimal{
		usdc: decimal.RequireFromString("0.9998"),
	}}
	svc := NewOracleService(src, &stubGasSource{}, testOracleLogger())

	prices := svc.TokenPricesUSD(context.Background(), 1, []string{usdc, unknown, asset.NativePseudoAddress})

	if got := prices["0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"]; !got.PriceUSD.Equal(decimal.RequireFromString("0.9998")) {
		t.Errorf("USDC price = %s, want oracle value", got.PriceUSD)
	}
	if got := prices["0x1234567890123456789012345678901234567890"]; !got.PriceUSD.Equal(decimal.NewFromInt(1)) || got.Source != domain.SourceFallback {
		t.Errorf("unknown token price = %s source %s, want $1 fallback", got.PriceUSD, got.Source)
	}
	if got := prices["0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"]; !got.PriceUSD.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("native price = %s, want $2000 fallback", got.PriceUSD)
	}
}

func TestTokenPricesUSD_NeverErrorsOnSourceFailure(t *testing.T) {
	src := &stubPriceSource{err: errors.New("upstream down")}
	svc := NewOracleService(src, &stubGasSource{}, testOracleLogger())

	prices := svc.TokenPricesUSD(context.Background(), 1, []string{asset.NativePseudoAddress})
	got := prices["0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee"]
	if got.Source != domain.SourceFallback || !got.PriceUSD.Equal(decimal.NewFromInt(2000)) {
		t.Errorf("price = %s source %s, want fallback", got.PriceUSD, got.Source)
	}
}

func TestTokenPricesUSD_CachesWithinTTL(t *testing.T) {
	usdc := "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	src := &stubPriceSource{prices: map[string]decimal.Decimal{usdc: decimal.NewFromInt(1)}}
	svc := NewOracleService(src, &stubGasSource{}, testOracleLogger(), WithPriceTTL(time.Minute))

	svc.TokenPricesUSD(context.Background(), 1, []string{usdc})
	svc.TokenPricesUSD(context.Background(), 1, []string{usdc})

	if src.calls != 1 {
		t.Errorf("source called %d times, want 1 (second hit cached)", src.calls)
	}

	// Different chain is a cache miss.
	svc.TokenPricesUSD(context.Background(), 137, []string{usdc})
	if src.calls != 2 {
		t.Errorf("source called %d times, want 2 after new chain", src.calls)
	}
}

func TestGasPrice_CachesAndFallsBack(t *testing.T) {
	src := &stubGasSource{priceWei: big.NewInt(30_000_000_000)}
	svc := NewOracleService(&stubPriceSource{}, src, testOracleLogger(), WithGasTTL(time.Minute))

	first := svc.GasPrice(context.Background(), 1)
	svc.GasPrice(context.Background(), 1)
	if src.calls != 1 {
		t.Errorf("source called %d times, want 1", src.calls)
	}
	if first.PriceWei.Cmp(big.NewInt(30_000_000_000)) != 0 {
		t.Errorf("PriceWei = %s, want 30 gwei", first.PriceWei)
	}

	failing := &stubGasSource{err: errors.New("rpc down")}
	fallback := NewOracleService(&stubPriceSource{}, failing, testOracleLogger(),
		WithGasDefaults(map[uint64]*big.Int{137: big.NewInt(60_000_000_000)}))

	gas := fallback.GasPrice(context.Background(), 137)
	if gas.Source != domain.SourceFallback {
		t.Errorf("Source = %s, want fallback", gas.Source)
	}
	if gas.PriceWei.Cmp(big.NewInt(60_000_000_000)) != 0 {
		t.Errorf("PriceWei = %s, want per-chain default", gas.PriceWei)
	}

	// No per-chain default falls back to the global 25 gwei.
	gas = fallback.GasPrice(context.Background(), 8453)
	if gas.PriceWei.Cmp(big.NewInt(25_000_000_000)) != 0 {
		t.Errorf("PriceWei = %s, want global 25 gwei fallback", gas.PriceWei)
	}
}
