package app

import (
	"strings"
	"testing"
	"time"

	"github.com/shivam-V8/defi-agent/business/policy/domain"
	quoting "github.com/shivam-V8/defi-agent/business/quoting/domain"
)

const (
	testRouter   = "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45"
	testTokenIn  = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	testTokenOut = "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"
)

// Helper to build a quote that passes every default rule. AmountIn is
// 1000 USDC in smallest units.
func makeQuote(notionalUSD, gasUSD string) quoting.NormalizedQuote {
	return quoting.NormalizedQuote{
		Router:          testRouter,
		RouterType:      quoting.RouterUniswapV3,
		ChainID:         1,
		TokenIn:         testTokenIn,
		TokenOut:        testTokenOut,
		AmountIn:        "1000000000",
		AmountOut:       "290000000000000000",
		TokenInDecimals: 6,
		PriceImpactBps:  100,
		GasUSD:          gasUSD,
		NotionalUSD:     notionalUSD,
		Deadline:        time.Now().Unix() + 600,
		TTL:             600,
		Timestamp:       time.Now(),
		Confidence:      0.85,
	}
}

func makeStore() *ConfigStore {
	return NewConfigStore(map[uint64]ChainAllowlists{
		1: {
			Routers: []string{testRouter},
			Tokens:  []string{testTokenIn, testTokenOut},
		},
	})
}

func TestEngine_Evaluate_AllDefaultsPass(t *testing.T) {
	engine := NewEngine(makeStore())

	result := engine.Evaluate(makeQuote("34000.000000", "5.000000"), domain.EvaluationContext{ChainID: 1})

	if !result.Passed {
		t.Fatalf("expected pass, got violations: %+v", result.Violations)
	}
	if result.Score != 100 {
		t.Errorf("score = %d, want 100", result.Score)
	}
	if result.NetUSD != "33995.000000" {
		t.Errorf("netUSD = %q, want 33995.000000", result.NetUSD)
	}
}

func TestEngine_Evaluate_NegativeNetValue(t *testing.T) {
	engine := NewEngine(makeStore())

	quote := makeQuote("10.000000", "15.000000")
	result := engine.Evaluate(quote, domain.EvaluationContext{ChainID: 1})

	if result.Passed {
		t.Fatal("expected failure for negative net value")
	}
	if result.NetUSD != "-5.000000" {
		t.Errorf("netUSD = %q, want -5.000000", result.NetUSD)
	}

	var found bool
	for _, v := range result.Violations {
		if strings.Contains(v.Message, "Net value too low") {
			found = true
		}
	}
	if !found {
		t.Errorf("expected a net-value violation, got %+v", result.Violations)
	}
}

func TestEngine_Evaluate_AmountBounds(t *testing.T) {
	engine := NewEngine(makeStore())

	// Smallest-unit amounts for a 6-decimal token: the bounds are checked
	// in human units.
	tests := []struct {
		name     string
		amountIn string
		wantMsg  string
	}{
		{"too_small", "100", "Amount too small: 0.0001 below minimum 0.001"},
		{"too_large", "2000000000000", "Amount too large: 2000000 above maximum 1000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote := makeQuote("34000.000000", "5.000000")
			quote.AmountIn = tt.amountIn

			result := engine.Evaluate(quote, domain.EvaluationContext{ChainID: 1})
			if result.Passed {
				t.Fatal("expected failure")
			}

			var found bool
			for _, v := range result.Violations {
				if v.Message == tt.wantMsg {
					found = true
				}
			}
			if !found {
				t.Errorf("want violation %q, got %+v", tt.wantMsg, result.Violations)
			}
		})
	}
}

func TestEngine_Evaluate_SmallestUnitAmountsScaleByDecimals(t *testing.T) {
	engine := NewEngine(makeStore())

	// 1 WETH in wei reads as 1 human unit, not 1e18.
	quote := makeQuote("3400.000000", "5.000000")
	quote.AmountIn = "1000000000000000000"
	quote.TokenInDecimals = 18

	result := engine.Evaluate(quote, domain.EvaluationContext{ChainID: 1})
	if !result.Passed {
		t.Fatalf("expected pass, got violations: %+v", result.Violations)
	}
	if result.Score != 100 {
		t.Errorf("score = %d, want 100", result.Score)
	}
}

func TestEngine_Evaluate_PriceImpactTooHigh(t *testing.T) {
	engine := NewEngine(makeStore())

	quote := makeQuote("34000.000000", "5.000000")
	quote.PriceImpactBps = 600

	result := engine.Evaluate(quote, domain.EvaluationContext{ChainID: 1})
	if result.Passed {
		t.Fatal("expected failure for 600 bps impact")
	}

	want := "Price impact too high: 600 bps above maximum 500 bps"
	var found bool
	for _, v := range result.Violations {
		if v.Message == want {
			found = true
		}
	}
	if !found {
		t.Errorf("want violation %q, got %+v", want, result.Violations)
	}
}

func TestEngine_Evaluate_UnknownChainRejectsViaAllowlists(t *testing.T) {
	engine := NewEngine(makeStore())

	quote := makeQuote("34000.000000", "5.000000")
	quote.ChainID = 999

	result := engine.Evaluate(quote, domain.EvaluationContext{ChainID: 999})
	if result.Passed {
		t.Fatal("expected failure on unknown chain")
	}

	var router, token bool
	for _, v := range result.Violations {
		if strings.HasPrefix(v.Message, "Router not allowed") {
			router = true
		}
		if strings.HasPrefix(v.Message, "Token not allowed") {
			token = true
		}
	}
	if !router || !token {
		t.Errorf("expected router and token allow-list violations, got %+v", result.Violations)
	}
}

func TestEngine_Evaluate_ExpiredDeadline(t *testing.T) {
	store := makeStore()

	// Downgrade every rule to WARNING; the expired deadline must still fail.
	cfg := store.Get(1)
	for i := range cfg.Rules {
		cfg.Rules[i].Severity = domain.SeverityWarning
	}
	store.Update(1, cfg)

	engine := NewEngine(store)

	quote := makeQuote("34000.000000", "5.000000")
	quote.Deadline = time.Now().Unix() - 120

	result := engine.Evaluate(quote, domain.EvaluationContext{ChainID: 1})
	if result.Passed {
		t.Fatal("expected failure for expired deadline")
	}

	var found bool
	for _, v := range result.Violations {
		if strings.Contains(v.Message, "Deadline already passed") && v.Severity == domain.SeverityError {
			found = true
		}
	}
	if !found {
		t.Errorf("expected an ERROR deadline violation, got %+v", result.Violations)
	}
}

func TestEngine_Evaluate_DisabledConfigPassesEverything(t *testing.T) {
	store := makeStore()
	cfg := store.Get(1)
	cfg.Enabled = false
	store.Update(1, cfg)

	engine := NewEngine(store)

	quote := makeQuote("10.000000", "15.000000")
	quote.PriceImpactBps = 9000

	result := engine.Evaluate(quote, domain.EvaluationContext{ChainID: 1})
	if !result.Passed || result.Score != 100 {
		t.Errorf("disabled config should pass with score 100, got passed=%v score=%d", result.Passed, result.Score)
	}
}

func TestEngine_Evaluate_ScorePenalties(t *testing.T) {
	store := makeStore()
	cfg := store.Get(1)
	for i := range cfg.Rules {
		if cfg.Rules[i].Type == domain.RuleMaxPriceImpact {
			cfg.Rules[i].Severity = domain.SeverityWarning
		}
	}
	store.Update(1, cfg)

	engine := NewEngine(store)

	quote := makeQuote("34000.000000", "5.000000")
	quote.PriceImpactBps = 600 // warns on impact, still under the 1000 bps slippage cap

	result := engine.Evaluate(quote, domain.EvaluationContext{ChainID: 1})
	if !result.Passed {
		t.Fatalf("warning-severity violation should not fail, got %+v", result.Violations)
	}
	if result.Score != 95 {
		t.Errorf("score = %d, want 95 after one warning", result.Score)
	}
	if len(result.Warnings) != 1 {
		t.Errorf("warnings = %d, want 1", len(result.Warnings))
	}
}
