package app

import (
	"context"
	"testing"

	"github.com/shivam-V8/defi-agent/business/quoting/domain"
	"github.com/shivam-V8/defi-agent/internal/asset"
)

func validRequest() domain.QuoteRequest {
	return domain.QuoteRequest{
		TokenIn:           "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		TokenOut:          "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		AmountIn:          "1000000000",
		ChainID:           1,
		SlippageTolerance: 0.5,
	}
}

func TestValidateRequest(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*domain.QuoteRequest)
		wantErr bool
	}{
		{"valid", func(r *domain.QuoteRequest) {}, false},
		{"native_token_in", func(r *domain.QuoteRequest) { r.TokenIn = asset.NativePseudoAddress }, false},
		{"missing_token", func(r *domain.QuoteRequest) { r.TokenIn = "" }, true},
		{"same_tokens", func(r *domain.QuoteRequest) { r.TokenOut = r.TokenIn }, true},
		{"same_tokens_case_insensitive", func(r *domain.QuoteRequest) {
			r.TokenOut = "0xa0b86991c6218b36c1d19d4a2e9eb0ce3606eb48"
		}, true},
		{"bad_address", func(r *domain.QuoteRequest) { r.TokenIn = "not-an-address" }, true},
		{"zero_amount", func(r *domain.QuoteRequest) { r.AmountIn = "0" }, true},
		{"negative_amount", func(r *domain.QuoteRequest) { r.AmountIn = "-5" }, true},
		{"decimal_amount", func(r *domain.QuoteRequest) { r.AmountIn = "1.5" }, true},
		{"slippage_too_high", func(r *domain.QuoteRequest) { r.SlippageTolerance = 51 }, true},
		{"negative_slippage", func(r *domain.QuoteRequest) { r.SlippageTolerance = -1 }, true},
		{"chain_mismatch", func(r *domain.QuoteRequest) { r.ChainID = 137 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)

			err := ValidateRequest(req, 1)
			if (err != nil) != tt.wantErr {
				t.Errorf("ValidateRequest() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFetchWithRetry_DefinitiveOutcomesReturnImmediately(t *testing.T) {
	calls := 0
	outcome := FetchWithRetry(context.Background(), 3, func(ctx context.Context) domain.FetchOutcome {
		calls++
		return domain.NoQuote("no pool")
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no-quote is definitive)", calls)
	}
	if outcome.Kind != domain.OutcomeNoQuote {
		t.Errorf("kind = %v, want OutcomeNoQuote", outcome.Kind)
	}
}

func TestFetchWithRetry_CancelledContextAborts(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	outcome := FetchWithRetry(ctx, 3, func(ctx context.Context) domain.FetchOutcome {
		calls++
		cancel()
		return domain.FetchFailed("boom")
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1 after cancellation", calls)
	}
	if outcome.Kind != domain.OutcomeFetchFailed {
		t.Errorf("kind = %v, want OutcomeFetchFailed", outcome.Kind)
	}
}

func TestConfidence(t *testing.T) {
	tests := []struct {
		name      string
		base      float64
		hasGas    bool
		impactBps int64
		notional  float64
		dust      float64
		want      float64
	}{
		{"no_penalties", 0.85, true, 100, 1000, 1, 0.85},
		{"missing_gas", 0.85, false, 100, 1000, 1, 0.75},
		{"high_impact", 0.85, true, 600, 1000, 1, 0.65},
		{"dust_trade", 0.85, true, 100, 0.5, 1, 0.75},
		{"all_penalties", 0.80, false, 600, 0.5, 1, 0.40},
		{"floors_at_0.1", 0.20, false, 600, 0.5, 1, 0.1},
		{"dust_disabled", 0.85, true, 100, 0.5, 0, 0.85},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Confidence(tt.base, tt.hasGas, tt.impactBps, tt.notional, tt.dust)
			if diff := got - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Confidence() = %v, want %v", got, tt.want)
			}
		})
	}
}
