package app

import (
	"testing"

	"github.com/shopspring/decimal"

	"github.com/shivam-V8/defi-agent/business/policy/domain"
	quoting "github.com/shivam-V8/defi-agent/business/quoting/domain"
)

func TestScorer_Ranking(t *testing.T) {
	scorer := NewScorer(NewEngine(makeStore()))

	a := makeQuote("100000.000000", "10.000000") // net 99990
	b := makeQuote("200000.000000", "20.000000") // net 199980
	b.AmountOut = "580000000000000000"
	c := makeQuote("150000.000000", "5.000000") // net 149995
	c.AmountOut = "435000000000000000"

	result := scorer.ScoreQuotes([]quoting.NormalizedQuote{a, b, c}, domain.EvaluationContext{ChainID: 1})

	if len(result.Ranked) != 3 {
		t.Fatalf("ranked = %d, want 3 (rejected: %+v)", len(result.Ranked), result.Rejected)
	}

	wantNet := []string{"199980", "149995", "99990"}
	for i, want := range wantNet {
		if got := result.Ranked[i].NetUSD.String(); got != want {
			t.Errorf("ranked[%d].NetUSD = %s, want %s", i, got, want)
		}
	}

	if result.BestQuote == nil || result.BestQuote.NetUSD.String() != "199980" {
		t.Errorf("best quote should be the highest net value")
	}
}

func TestScorer_RejectsFailingQuotes(t *testing.T) {
	scorer := NewScorer(NewEngine(makeStore()))

	good := makeQuote("100000.000000", "10.000000")
	bad := makeQuote("100000.000000", "10.000000")
	bad.PriceImpactBps = 2000 // violates impact and slippage rules

	result := scorer.ScoreQuotes([]quoting.NormalizedQuote{good, bad}, domain.EvaluationContext{ChainID: 1})

	if len(result.Ranked) != 1 || len(result.Rejected) != 1 {
		t.Fatalf("ranked=%d rejected=%d, want 1/1", len(result.Ranked), len(result.Rejected))
	}
	if result.Rejected[0].Reason == "" {
		t.Error("rejected quote must carry a reason")
	}
}

func TestRejectionReason(t *testing.T) {
	v := func(ruleType domain.RuleType, msg string) domain.PolicyViolation {
		return domain.PolicyViolation{RuleType: ruleType, Message: msg}
	}

	tests := []struct {
		name       string
		violations []domain.PolicyViolation
		want       string
	}{
		{
			name: "empty",
			want: "Policy evaluation failed",
		},
		{
			name:       "single_verbatim",
			violations: []domain.PolicyViolation{v(domain.RuleMinAmount, "Amount too small: 1 below minimum 2")},
			want:       "Amount too small: 1 below minimum 2",
		},
		{
			name: "grouped_same_type",
			violations: []domain.PolicyViolation{
				v(domain.RuleTokenAllowlist, "Token not allowed: 0xaa"),
				v(domain.RuleTokenAllowlist, "Token not allowed: 0xbb"),
			},
			want: "TOKEN_ALLOWLIST: Token not allowed: 0xaa, Token not allowed: 0xbb",
		},
		{
			name: "mixed_types_joined",
			violations: []domain.PolicyViolation{
				v(domain.RuleMinAmount, "Amount too small: 1 below minimum 2"),
				v(domain.RuleRouterAllowlist, "Router not allowed: 0xcc"),
			},
			want: "Amount too small: 1 below minimum 2; Router not allowed: 0xcc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RejectionReason(tt.violations); got != tt.want {
				t.Errorf("RejectionReason() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestEfficiencyScore(t *testing.T) {
	base := domain.QuoteScore{
		Quote:  makeQuote("10000.000000", "10.000000"),
		NetUSD: decimal.RequireFromString("9990"),
	}

	t.Run("zero_notional", func(t *testing.T) {
		score := base
		score.Quote.NotionalUSD = "0"
		if got := EfficiencyScore(score); !got.IsZero() {
			t.Errorf("zero notional should score 0, got %s", got)
		}
	})

	t.Run("floors_at_zero", func(t *testing.T) {
		score := base
		score.NetUSD = decimal.RequireFromString("-100")
		if got := EfficiencyScore(score); !got.IsZero() {
			t.Errorf("negative efficiency should floor at 0, got %s", got)
		}
	})

	t.Run("penalizes_impact_and_confidence", func(t *testing.T) {
		// netPct = 99.9, impact penalty 100/10 = 10, confidence penalty (1-0.85)*20 = 3
		got := EfficiencyScore(base)
		want := decimal.RequireFromString("86.9")
		if got.Sub(want).Abs().GreaterThan(decimal.RequireFromString("0.0001")) {
			t.Errorf("EfficiencyScore = %s, want ~%s", got, want)
		}
	})
}

func TestMarketConditionsImpact(t *testing.T) {
	if got := MarketConditionsImpact(nil); !got.IsZero() {
		t.Errorf("nil conditions should cost 0, got %s", got)
	}

	// volatility capped at 20, liquidity shortfall 0.99*15 = 14.85, gas capped at 15
	extreme := &domain.MarketConditions{
		Volatility:    decimal.RequireFromString("0.9"),
		LiquidityUSD:  decimal.RequireFromString("1000"),
		GasPriceRatio: decimal.RequireFromString("5"),
	}
	if got := MarketConditionsImpact(extreme); !got.Equal(decimal.RequireFromString("49.85")) {
		t.Errorf("extreme conditions = %s, want 49.85", got)
	}

	calm := &domain.MarketConditions{
		Volatility:    decimal.RequireFromString("0.05"),
		LiquidityUSD:  decimal.NewFromInt(500_000),
		GasPriceRatio: decimal.NewFromInt(1),
	}
	if got := MarketConditionsImpact(calm); !got.Equal(decimal.NewFromInt(5)) {
		t.Errorf("calm conditions = %s, want 5", got)
	}
}

func BenchmarkScorer_ScoreQuotes(b *testing.B) {
	scorer := NewScorer(NewEngine(makeStore()))

	quotes := make([]quoting.NormalizedQuote, 10)
	for i := range quotes {
		quotes[i] = makeQuote("34000.000000", "5.000000")
	}
	evalCtx := domain.EvaluationContext{ChainID: 1}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		scorer.ScoreQuotes(quotes, evalCtx)
	}
}
