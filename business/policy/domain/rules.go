// Package domain defines the policy rule taxonomy and evaluation results.
package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// RuleType is the fixed taxonomy of policy rules.
type RuleType string

const (
	RuleMinAmount        RuleType = "MIN_AMOUNT"
	RuleMaxAmount        RuleType = "MAX_AMOUNT"
	RuleMaxPriceImpact   RuleType = "MAX_PRICE_IMPACT"
	RuleMinLiquidity     RuleType = "MIN_LIQUIDITY"
	RuleRouterAllowlist  RuleType = "ROUTER_ALLOWLIST"
	RuleTokenAllowlist   RuleType = "TOKEN_ALLOWLIST"
	RuleMaxGasCost       RuleType = "MAX_GAS_COST"
	RuleMinNetValue      RuleType = "MIN_NET_VALUE"
	RuleMaxSlippage      RuleType = "MAX_SLIPPAGE"
	RuleDeadlineValidity RuleType = "DEADLINE_VALIDITY"
)

// Severity controls how a violation affects the evaluation.
type Severity string

const (
	// SeverityError rejects the quote.
	SeverityError Severity = "ERROR"
	// SeverityWarning flags the quote without rejecting it.
	SeverityWarning Severity = "WARNING"
	// SeverityInfo is silent.
	SeverityInfo Severity = "INFO"
)

// RuleParams is the tagged union of per-rule parameters. Each rule type has
// exactly one params struct carrying only the fields it needs.
type RuleParams interface {
	RuleType() RuleType
}

// MinAmountParams bounds the input amount from below (token units).
type MinAmountParams struct {
	Min decimal.Decimal
}

func (MinAmountParams) RuleType() RuleType { return RuleMinAmount }

// MaxAmountParams bounds the input amount from above (token units).
type MaxAmountParams struct {
	Max decimal.Decimal
}

func (MaxAmountParams) RuleType() RuleType { return RuleMaxAmount }

// MaxPriceImpactParams bounds price impact in basis points.
type MaxPriceImpactParams struct {
	MaxBps int64
}

func (MaxPriceImpactParams) RuleType() RuleType { return RuleMaxPriceImpact }

// MinLiquidityParams bounds estimated pool liquidity in USD.
type MinLiquidityParams struct {
	MinUSD decimal.Decimal
}

func (MinLiquidityParams) RuleType() RuleType { return RuleMinLiquidity }

// RouterAllowlistParams checks the router against the chain allow-list.
type RouterAllowlistParams struct{}

func (RouterAllowlistParams) RuleType() RuleType { return RuleRouterAllowlist }

// TokenAllowlistParams checks both tokens against the chain allow-list.
type TokenAllowlistParams struct{}

func (TokenAllowlistParams) RuleType() RuleType { return RuleTokenAllowlist }

// MaxGasCostParams bounds the gas cost in USD.
type MaxGasCostParams struct {
	MaxUSD decimal.Decimal
}

func (MaxGasCostParams) RuleType() RuleType { return RuleMaxGasCost }

// MinNetValueParams bounds the net USD value from below.
type MinNetValueParams struct {
	MinUSD decimal.Decimal
}

func (MinNetValueParams) RuleType() RuleType { return RuleMinNetValue }

// MaxSlippageParams bounds effective slippage (price impact proxy) in bps.
type MaxSlippageParams struct {
	MaxBps int64
}

func (MaxSlippageParams) RuleType() RuleType { return RuleMaxSlippage }

// DeadlineValidityParams bounds how far in the future a deadline may be.
type DeadlineValidityParams struct {
	MaxMinutes int64
}

func (DeadlineValidityParams) RuleType() RuleType { return RuleDeadlineValidity }

// PolicyRule is one configured rule.
type PolicyRule struct {
	ID          string
	Type        RuleType
	Severity    Severity
	Enabled     bool
	Params      RuleParams
	Description string
}

// ChainPolicyConfig groups the rules and allow-lists for one chain.
// Allow-list membership is case-insensitive; addresses are stored lower-cased.
type ChainPolicyConfig struct {
	ChainID        uint64
	Rules          []PolicyRule
	Enabled        bool
	AllowedRouters map[string]struct{}
	AllowedTokens  map[string]struct{}
	UpdatedAt      time.Time
}

// RouterAllowed reports allow-list membership for a router address.
func (c *ChainPolicyConfig) RouterAllowed(addr string) bool {
	_, ok := c.AllowedRouters[strings.ToLower(addr)]
	return ok
}

// TokenAllowed reports allow-list membership for a token address.
func (c *ChainPolicyConfig) TokenAllowed(addr string) bool {
	_, ok := c.AllowedTokens[strings.ToLower(addr)]
	return ok
}

// AllowSet lower-cases a list of addresses into a membership set.
func AllowSet(addrs []string) map[string]struct{} {
	set := make(map[string]struct{}, len(addrs))
	for _, a := range addrs {
		set[strings.ToLower(a)] = struct{}{}
	}
	return set
}

// PolicyViolation describes one rule violation.
type PolicyViolation struct {
	RuleID   string
	RuleType RuleType
	Severity Severity
	Message  string
	Actual   string
	Expected string
}

// PolicyEvaluationResult is the outcome of evaluating one quote.
type PolicyEvaluationResult struct {
	Passed     bool
	Violations []PolicyViolation // ERROR severity
	Warnings   []PolicyViolation // WARNING severity
	Score      int               // [0, 100]
	NetUSD     string            // fixed 6-decimal string, may be negative
}

// MarketConditions is an optional snapshot used for advisory diagnostics.
type MarketConditions struct {
	Volatility    decimal.Decimal // e.g. 0.05 = 5%
	LiquidityUSD  decimal.Decimal
	GasPriceRatio decimal.Decimal // current/typical
}

// EvaluationContext carries request-scoped evaluation inputs.
type EvaluationContext struct {
	ChainID     uint64
	UserAddress string
	Timestamp   time.Time
	Market      *MarketConditions
}
