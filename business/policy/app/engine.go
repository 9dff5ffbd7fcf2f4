package app

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shivam-V8/defi-agent/business/policy/domain"
	quoting "github.com/shivam-V8/defi-agent/business/quoting/domain"
)

const (
	scoreErrorPenalty   = 20
	scoreWarningPenalty = 5
	scoreEvalFailure    = 10
)

// Engine evaluates normalized quotes against per-chain policy rules.
// Evaluation is pure computation over already-fetched data; no locking.
type Engine struct {
	store *ConfigStore
}

// NewEngine creates a policy engine over the config store.
func NewEngine(store *ConfigStore) *Engine {
	return &Engine{store: store}
}

// Evaluate runs every enabled rule for the quote's chain. ERROR violations
// fail the evaluation and cost 20 points each; WARNING violations cost 5;
// an evaluator panic counts as a WARNING costing 10 (fail-open for engine
// robustness). Score is clamped to [0, 100].
func (e *Engine) Evaluate(quote quoting.NormalizedQuote, evalCtx domain.EvaluationContext) domain.PolicyEvaluationResult {
	cfg := e.store.Get(quote.ChainID)

	netUSD := computeNetUSD(quote)

	result := domain.PolicyEvaluationResult{
		Passed: true,
		Score:  100,
		NetUSD: netUSD.StringFixed(6),
	}

	if !cfg.Enabled {
		return result
	}

	for _, rule := range cfg.Rules {
		if !rule.Enabled {
			continue
		}

		violation, err := safeEvaluate(rule, quote, cfg, evalCtx, netUSD)
		if err != nil {
			result.Score -= scoreEvalFailure
			result.Warnings = append(result.Warnings, domain.PolicyViolation{
				RuleID:   rule.ID,
				RuleType: rule.Type,
				Severity: domain.SeverityWarning,
				Message:  fmt.Sprintf("Rule evaluation failed: %v", err),
			})
			continue
		}
		if violation == nil {
			continue
		}

		switch violation.Severity {
		case domain.SeverityError:
			result.Passed = false
			result.Score -= scoreErrorPenalty
			result.Violations = append(result.Violations, *violation)
		case domain.SeverityWarning:
			result.Score -= scoreWarningPenalty
			result.Warnings = append(result.Warnings, *violation)
		}
	}

	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}

	return result
}

// safeEvaluate runs one rule evaluator, converting panics into errors.
func safeEvaluate(
	rule domain.PolicyRule,
	quote quoting.NormalizedQuote,
	cfg domain.ChainPolicyConfig,
	evalCtx domain.EvaluationContext,
	netUSD decimal.Decimal,
) (violation *domain.PolicyViolation, err error) {
	defer func() {
		if r := recover(); r != nil {
			violation = nil
			err = fmt.Errorf("%v", r)
		}
	}()

	return evaluateRule(rule, quote, cfg, evalCtx, netUSD), nil
}

func evaluateRule(
	rule domain.PolicyRule,
	quote quoting.NormalizedQuote,
	cfg domain.ChainPolicyConfig,
	evalCtx domain.EvaluationContext,
	netUSD decimal.Decimal,
) *domain.PolicyViolation {
	violate := func(msg, actual, expected string) *domain.PolicyViolation {
		return &domain.PolicyViolation{
			RuleID:   rule.ID,
			RuleType: rule.Type,
			Severity: rule.Severity,
			Message:  msg,
			Actual:   actual,
			Expected: expected,
		}
	}

	switch params := rule.Params.(type) {
	case domain.MinAmountParams:
		amount := humanAmountIn(quote)
		if amount.LessThan(params.Min) {
			return violate(
				fmt.Sprintf("Amount too small: %s below minimum %s", amount, params.Min),
				amount.String(), params.Min.String())
		}

	case domain.MaxAmountParams:
		amount := humanAmountIn(quote)
		if amount.GreaterThan(params.Max) {
			return violate(
				fmt.Sprintf("Amount too large: %s above maximum %s", amount, params.Max),
				amount.String(), params.Max.String())
		}

	case domain.MaxPriceImpactParams:
		if quote.PriceImpactBps > params.MaxBps {
			return violate(
				fmt.Sprintf("Price impact too high: %d bps above maximum %d bps", quote.PriceImpactBps, params.MaxBps),
				fmt.Sprintf("%d", quote.PriceImpactBps), fmt.Sprintf("%d", params.MaxBps))
		}

	case domain.MinLiquidityParams:
		// Estimated pool liquidity: notional scaled by 1 + impact fraction.
		notional := decimal.RequireFromString(quote.NotionalUSD)
		impact := decimal.NewFromInt(quote.PriceImpactBps).Div(decimal.NewFromInt(10000))
		liquidity := notional.Mul(decimal.NewFromInt(1).Add(impact))
		if liquidity.LessThan(params.MinUSD) {
			return violate(
				fmt.Sprintf("Insufficient liquidity: estimated $%s below minimum $%s",
					liquidity.StringFixed(2), params.MinUSD.String()),
				liquidity.StringFixed(2), params.MinUSD.String())
		}

	case domain.RouterAllowlistParams:
		if !cfg.RouterAllowed(quote.Router) {
			return violate(
				fmt.Sprintf("Router not allowed: %s", quote.Router),
				quote.Router, "chain allow-list")
		}

	case domain.TokenAllowlistParams:
		for _, token := range []string{quote.TokenIn, quote.TokenOut} {
			if !cfg.TokenAllowed(token) {
				return violate(
					fmt.Sprintf("Token not allowed: %s", token),
					token, "chain allow-list")
			}
		}

	case domain.MaxGasCostParams:
		gasUSD := decimal.RequireFromString(quote.GasUSD)
		if gasUSD.GreaterThan(params.MaxUSD) {
			return violate(
				fmt.Sprintf("Gas cost too high: $%s above maximum $%s", gasUSD.StringFixed(2), params.MaxUSD.String()),
				gasUSD.StringFixed(6), params.MaxUSD.String())
		}

	case domain.MinNetValueParams:
		if netUSD.LessThan(params.MinUSD) {
			return violate(
				fmt.Sprintf("Net value too low: $%s below minimum $%s", netUSD.StringFixed(6), params.MinUSD.String()),
				netUSD.StringFixed(6), params.MinUSD.String())
		}

	case domain.MaxSlippageParams:
		if quote.PriceImpactBps > params.MaxBps {
			return violate(
				fmt.Sprintf("Slippage too high: %d bps above maximum %d bps", quote.PriceImpactBps, params.MaxBps),
				fmt.Sprintf("%d", quote.PriceImpactBps), fmt.Sprintf("%d", params.MaxBps))
		}

	case domain.DeadlineValidityParams:
		now := evalCtx.Timestamp
		if now.IsZero() {
			now = time.Now()
		}
		remaining := quote.Deadline - now.Unix()
		if remaining < 0 {
			// An expired deadline is always an ERROR regardless of the
			// configured severity.
			v := violate(
				fmt.Sprintf("Deadline already passed: %d seconds ago", -remaining),
				fmt.Sprintf("%d", quote.Deadline), "future timestamp")
			v.Severity = domain.SeverityError
			return v
		}
		minutes := remaining / 60
		if minutes > params.MaxMinutes {
			return violate(
				fmt.Sprintf("Deadline too far in future: %d minutes above maximum %d", minutes, params.MaxMinutes),
				fmt.Sprintf("%d", minutes), fmt.Sprintf("%d", params.MaxMinutes))
		}
	}

	return nil
}

// humanAmountIn scales the smallest-unit amount back to human units using
// the input token's decimals. Amount bounds are configured in human units.
func humanAmountIn(quote quoting.NormalizedQuote) decimal.Decimal {
	return decimal.RequireFromString(quote.AmountIn).Shift(-int32(quote.TokenInDecimals))
}

// computeNetUSD is the primary ranking signal: notional minus gas cost.
// May be negative.
func computeNetUSD(quote quoting.NormalizedQuote) decimal.Decimal {
	notional, err := decimal.NewFromString(quote.NotionalUSD)
	if err != nil {
		notional = decimal.Zero
	}
	gas, err := decimal.NewFromString(quote.GasUSD)
	if err != nil {
		gas = decimal.Zero
	}
	return notional.Sub(gas)
}
