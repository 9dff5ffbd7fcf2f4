package app

import (
	"math/big"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	marketdomain "github.com/shivam-V8/defi-agent/business/marketdata/domain"
	"github.com/shivam-V8/defi-agent/business/quoting/domain"
	"github.com/shivam-V8/defi-agent/internal/asset"
)

func makeNormalizeParams() NormalizeParams {
	usdc := "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	weth := "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"

	return NormalizeParams{
		Raw: &domain.RawQuote{
			Router:     "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
			RouterType: domain.RouterUniswapV3,
			ChainID:    1,
			TokenIn:    usdc,
			TokenOut:   weth,
			AmountIn:   "1000000000", // 1000 USDC
			FetchedAt:  time.Now(),
		},
		AmountOut:      big.NewInt(290000000000000000), // 0.29 WETH
		GasEstimate:    big.NewInt(150000),
		PriceImpactBps: 30,
		Prices: map[string]marketdomain.TokenPrice{
			"0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48": {PriceUSD: decimal.NewFromInt(1)},
			"0xeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeeee": {PriceUSD: decimal.NewFromInt(3400)},
		},
		Gas:            marketdomain.GasPrice{ChainID: 1, PriceWei: big.NewInt(25_000_000_000)},
		Registry:       asset.DefaultRegistry(),
		TTLSeconds:     60,
		ConfidenceBase: 0.85,
		DustUSD:        1,
	}
}

func TestBuildNormalizedQuote(t *testing.T) {
	quote, err := BuildNormalizedQuote(makeNormalizeParams())
	if err != nil {
		t.Fatalf("BuildNormalizedQuote() error = %v", err)
	}

	// 1000 USDC at $1
	if quote.NotionalUSD != "1000.000000" {
		t.Errorf("NotionalUSD = %q, want 1000.000000", quote.NotionalUSD)
	}
	// 150000 gas * 25 gwei = 0.00375 ETH * $3400 = $12.75
	if quote.GasUSD != "12.750000" {
		t.Errorf("GasUSD = %q, want 12.750000", quote.GasUSD)
	}
	// amountOut * 1e18 / amountIn
	if quote.EffectivePrice != "290000000000000000000000000" {
		t.Errorf("EffectivePrice = %q", quote.EffectivePrice)
	}
	// USDC resolves 6 decimals so downstream amount bounds read human units.
	if quote.TokenInDecimals != 6 {
		t.Errorf("TokenInDecimals = %d, want 6", quote.TokenInDecimals)
	}
	if quote.Deadline != quote.Timestamp.Unix()+quote.TTL {
		t.Errorf("Deadline %d != Timestamp+TTL %d", quote.Deadline, quote.Timestamp.Unix()+quote.TTL)
	}
	if quote.Confidence != 0.85 {
		t.Errorf("Confidence = %v, want 0.85", quote.Confidence)
	}
	if quote.Source != string(domain.RouterUniswapV3) {
		t.Errorf("Source = %q", quote.Source)
	}
}

func TestBuildNormalizedQuote_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*NormalizeParams)
	}{
		{"nil_raw", func(p *NormalizeParams) { p.Raw = nil }},
		{"bad_amount_in", func(p *NormalizeParams) { p.Raw.AmountIn = "abc" }},
		{"zero_amount_out", func(p *NormalizeParams) { p.AmountOut = big.NewInt(0) }},
		{"nil_amount_out", func(p *NormalizeParams) { p.AmountOut = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := makeNormalizeParams()
			tt.mutate(&p)
			if _, err := BuildNormalizedQuote(p); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestBuildNormalizedQuote_ImpactClampAndTTLDefault(t *testing.T) {
	p := makeNormalizeParams()
	p.PriceImpactBps = 20000
	p.TTLSeconds = 0

	quote, err := BuildNormalizedQuote(p)
	if err != nil {
		t.Fatal(err)
	}
	if quote.PriceImpactBps != 10000 {
		t.Errorf("PriceImpactBps = %d, want clamp to 10000", quote.PriceImpactBps)
	}
	if quote.TTL != 60 {
		t.Errorf("TTL = %d, want default 60", quote.TTL)
	}
}

func TestBuildNormalizedQuote_MissingOracleFallbacks(t *testing.T) {
	p := makeNormalizeParams()
	p.Prices = nil

	quote, err := BuildNormalizedQuote(p)
	if err != nil {
		t.Fatal(err)
	}
	// token falls back to $1, native to $2000
	if quote.NotionalUSD != "1000.000000" {
		t.Errorf("NotionalUSD = %q, want 1000.000000 via $1 fallback", quote.NotionalUSD)
	}
	if quote.GasUSD != "7.500000" {
		t.Errorf("GasUSD = %q, want 7.500000 via $2000 fallback", quote.GasUSD)
	}
}

func TestApplyPriceBias(t *testing.T) {
	quote := domain.NormalizedQuote{AmountOut: "1000000", Confidence: 0.8}

	ApplyPriceBias(&quote, 0.99)
	if quote.AmountOut != "990000" {
		t.Errorf("AmountOut = %q, want 990000", quote.AmountOut)
	}
	if diff := quote.Confidence - 0.792; diff > 1e-9 || diff < -1e-9 {
		t.Errorf("Confidence = %v, want 0.792", quote.Confidence)
	}

	// Bias outside (0, 1) is a no-op.
	unchanged := domain.NormalizedQuote{AmountOut: "1000000", Confidence: 0.8}
	ApplyPriceBias(&unchanged, 1.0)
	if unchanged.AmountOut != "1000000" || unchanged.Confidence != 0.8 {
		t.Errorf("bias 1.0 must not modify the quote")
	}
}

func TestMinReceived(t *testing.T) {
	tests := []struct {
		name      string
		amountOut string
		slippage  float64
		want      string
		wantErr   bool
	}{
		{"half_percent", "1000000", 0.5, "995000", false},
		{"zero_slippage", "1000000", 0, "1000000", false},
		{"floors_fraction", "999", 0.1, "998", false},
		{"bad_amount", "abc", 0.5, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MinReceived(tt.amountOut, tt.slippage)
			if (err != nil) != tt.wantErr {
				t.Fatalf("MinReceived() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("MinReceived() = %q, want %q", got, tt.want)
			}
		})
	}
}
