package app

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shivam-V8/defi-agent/business/policy/domain"
	quoting "github.com/shivam-V8/defi-agent/business/quoting/domain"
)

// Scorer runs the policy engine over an aggregated quote set, ranks the
// passing quotes, and partitions the failing ones with generated reasons.
type Scorer struct {
	engine *Engine
}

// NewScorer creates a scorer over the policy engine.
func NewScorer(engine *Engine) *Scorer {
	return &Scorer{engine: engine}
}

// ScoreQuotes evaluates every quote. Ranking order is descending netUSD,
// ties broken by descending score. BestQuote is the head of the ranked
// list, or nil when no quote passes.
func (s *Scorer) ScoreQuotes(quotes []quoting.NormalizedQuote, evalCtx domain.EvaluationContext) domain.ScoringResult {
	result := domain.ScoringResult{
		Ranked:   make([]domain.QuoteScore, 0, len(quotes)),
		Rejected: make([]domain.RejectedQuote, 0),
	}

	for _, quote := range quotes {
		eval, err := s.safeEvaluate(quote, evalCtx)
		if err != nil {
			result.Rejected = append(result.Rejected, domain.RejectedQuote{
				Quote:  quote,
				Reason: fmt.Sprintf("Quote evaluation failed: %v", err),
			})
			continue
		}

		netUSD, parseErr := decimal.NewFromString(eval.NetUSD)
		if parseErr != nil {
			netUSD = decimal.Zero
		}

		score := domain.QuoteScore{
			Quote:      quote,
			NetUSD:     netUSD,
			Score:      eval.Score,
			Violations: eval.Violations,
			Warnings:   eval.Warnings,
			Passed:     eval.Passed,
		}

		if eval.Passed {
			result.Ranked = append(result.Ranked, score)
		} else {
			result.Rejected = append(result.Rejected, domain.RejectedQuote{
				Quote:  quote,
				Reason: RejectionReason(eval.Violations),
			})
		}
	}

	sort.SliceStable(result.Ranked, func(i, j int) bool {
		cmp := result.Ranked[i].NetUSD.Cmp(result.Ranked[j].NetUSD)
		if cmp != 0 {
			return cmp > 0
		}
		return result.Ranked[i].Score > result.Ranked[j].Score
	})

	if len(result.Ranked) > 0 {
		result.BestQuote = &result.Ranked[0]
	}

	return result
}

func (s *Scorer) safeEvaluate(quote quoting.NormalizedQuote, evalCtx domain.EvaluationContext) (result domain.PolicyEvaluationResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	return s.engine.Evaluate(quote, evalCtx), nil
}

// RejectionReason renders a violation list human-readable. A single
// violation's message is used verbatim; multiple violations are grouped by
// rule type and joined with "; ", a group with more than one message
// rendering as "type: msg1, msg2".
func RejectionReason(violations []domain.PolicyViolation) string {
	if len(violations) == 0 {
		return "Policy evaluation failed"
	}
	if len(violations) == 1 {
		return violations[0].Message
	}

	var order []domain.RuleType
	groups := make(map[domain.RuleType][]string)
	for _, v := range violations {
		if _, seen := groups[v.RuleType]; !seen {
			order = append(order, v.RuleType)
		}
		groups[v.RuleType] = append(groups[v.RuleType], v.Message)
	}

	parts := make([]string, 0, len(order))
	for _, t := range order {
		msgs := groups[t]
		if len(msgs) == 1 {
			parts = append(parts, msgs[0])
		} else {
			parts = append(parts, fmt.Sprintf("%s: %s", t, strings.Join(msgs, ", ")))
		}
	}

	return strings.Join(parts, "; ")
}

// EfficiencyScore is an advisory diagnostic: net value as a percentage of
// notional, penalized by price impact and low confidence. Never gating.
func EfficiencyScore(score domain.QuoteScore) decimal.Decimal {
	notional, err := decimal.NewFromString(score.Quote.NotionalUSD)
	if err != nil || notional.IsZero() {
		return decimal.Zero
	}

	netPct := score.NetUSD.Div(notional).Mul(decimal.NewFromInt(100))

	impactPenalty := decimal.NewFromInt(score.Quote.PriceImpactBps).Div(decimal.NewFromInt(10))
	confidencePenalty := decimal.NewFromFloat(1 - score.Quote.Confidence).Mul(decimal.NewFromInt(20))

	eff := netPct.Sub(impactPenalty).Sub(confidencePenalty)
	if eff.IsNegative() {
		return decimal.Zero
	}
	return eff
}

// Market-conditions penalty caps.
var (
	maxVolatilityPenalty = decimal.NewFromInt(20)
	maxLiquidityPenalty  = decimal.NewFromInt(15)
	maxGasRatioPenalty   = decimal.NewFromInt(15)
	maxCombinedPenalty   = decimal.NewFromInt(50)
	liquidityReference   = decimal.NewFromInt(100_000)
)

// MarketConditionsImpact estimates how current market conditions degrade a
// quote, as a penalty in [0, 50]. Advisory only.
func MarketConditionsImpact(m *domain.MarketConditions) decimal.Decimal {
	if m == nil {
		return decimal.Zero
	}

	total := decimal.Zero

	volatility := m.Volatility.Mul(decimal.NewFromInt(100))
	total = total.Add(capAt(volatility, maxVolatilityPenalty))

	if m.LiquidityUSD.IsPositive() && m.LiquidityUSD.LessThan(liquidityReference) {
		shortfall := decimal.NewFromInt(1).Sub(m.LiquidityUSD.Div(liquidityReference))
		total = total.Add(capAt(shortfall.Mul(maxLiquidityPenalty), maxLiquidityPenalty))
	}

	if m.GasPriceRatio.GreaterThan(decimal.NewFromInt(1)) {
		excess := m.GasPriceRatio.Sub(decimal.NewFromInt(1)).Mul(decimal.NewFromInt(10))
		total = total.Add(capAt(excess, maxGasRatioPenalty))
	}

	return capAt(total, maxCombinedPenalty)
}

func capAt(v, cap decimal.Decimal) decimal.Decimal {
	if v.IsNegative() {
		return decimal.Zero
	}
	if v.GreaterThan(cap) {
		return cap
	}
	return v
}
