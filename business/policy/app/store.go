// Package app contains the policy engine, config store, and quote scorer.
package app

import (
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shivam-V8/defi-agent/business/policy/domain"
)

// Default rule thresholds.
var (
	defaultMinAmount    = decimal.RequireFromString("0.001")
	defaultMaxAmount    = decimal.NewFromInt(1_000_000)
	defaultMinLiquidity = decimal.NewFromInt(10_000)
	defaultMaxGasCost   = decimal.NewFromInt(50)
	defaultMinNetValue  = decimal.RequireFromString("0.01")
)

const (
	defaultMaxPriceImpactBps = 500
	defaultMaxSlippageBps    = 1000
	defaultDeadlineMinutes   = 30
)

// DefaultRules returns the full rule set with default thresholds, all
// enabled at ERROR severity.
func DefaultRules(chainID uint64) []domain.PolicyRule {
	rule := func(t domain.RuleType, params domain.RuleParams, desc string) domain.PolicyRule {
		return domain.PolicyRule{
			ID:          fmt.Sprintf("%d-%s", chainID, t),
			Type:        t,
			Severity:    domain.SeverityError,
			Enabled:     true,
			Params:      params,
			Description: desc,
		}
	}

	return []domain.PolicyRule{
		rule(domain.RuleMinAmount, domain.MinAmountParams{Min: defaultMinAmount}, "Reject dust-size trades"),
		rule(domain.RuleMaxAmount, domain.MaxAmountParams{Max: defaultMaxAmount}, "Reject oversized trades"),
		rule(domain.RuleMaxPriceImpact, domain.MaxPriceImpactParams{MaxBps: defaultMaxPriceImpactBps}, "Bound price impact"),
		rule(domain.RuleMinLiquidity, domain.MinLiquidityParams{MinUSD: defaultMinLiquidity}, "Require minimum pool liquidity"),
		rule(domain.RuleRouterAllowlist, domain.RouterAllowlistParams{}, "Router must be allow-listed"),
		rule(domain.RuleTokenAllowlist, domain.TokenAllowlistParams{}, "Both tokens must be allow-listed"),
		rule(domain.RuleMaxGasCost, domain.MaxGasCostParams{MaxUSD: defaultMaxGasCost}, "Bound gas cost in USD"),
		rule(domain.RuleMinNetValue, domain.MinNetValueParams{MinUSD: defaultMinNetValue}, "Require positive net value"),
		rule(domain.RuleMaxSlippage, domain.MaxSlippageParams{MaxBps: defaultMaxSlippageBps}, "Bound effective slippage"),
		rule(domain.RuleDeadlineValidity, domain.DeadlineValidityParams{MaxMinutes: defaultDeadlineMinutes}, "Deadline must be near-future"),
	}
}

// DefaultChainConfig builds the startup config for one chain.
func DefaultChainConfig(chainID uint64, allowedRouters, allowedTokens []string) domain.ChainPolicyConfig {
	return domain.ChainPolicyConfig{
		ChainID:        chainID,
		Rules:          DefaultRules(chainID),
		Enabled:        true,
		AllowedRouters: domain.AllowSet(allowedRouters),
		AllowedTokens:  domain.AllowSet(allowedTokens),
		UpdatedAt:      time.Now(),
	}
}

// ConfigStore holds the per-chain policy configuration. Reads are frequent
// and concurrent; updates are rare and administrative.
type ConfigStore struct {
	mu      sync.RWMutex
	configs map[uint64]domain.ChainPolicyConfig
}

// NewConfigStore initializes the store with default configs for every
// supported chain.
func NewConfigStore(chains map[uint64]ChainAllowlists) *ConfigStore {
	configs := make(map[uint64]domain.ChainPolicyConfig, len(chains))
	for chainID, lists := range chains {
		configs[chainID] = DefaultChainConfig(chainID, lists.Routers, lists.Tokens)
	}
	return &ConfigStore{configs: configs}
}

// ChainAllowlists carries the static allow-lists for one chain.
type ChainAllowlists struct {
	Routers []string
	Tokens  []string
}

// Get returns the chain's config. Unknown chains get a default config with
// empty allow-lists; lookup never fails.
func (s *ConfigStore) Get(chainID uint64) domain.ChainPolicyConfig {
	s.mu.RLock()
	cfg, ok := s.configs[chainID]
	s.mu.RUnlock()
	if ok {
		return cfg
	}

	cfg = DefaultChainConfig(chainID, nil, nil)

	s.mu.Lock()
	// Re-check under the write lock; another goroutine may have stored one.
	if existing, ok := s.configs[chainID]; ok {
		cfg = existing
	} else {
		s.configs[chainID] = cfg
	}
	s.mu.Unlock()

	return cfg
}

// Update replaces the chain's config atomically.
func (s *ConfigStore) Update(chainID uint64, cfg domain.ChainPolicyConfig) {
	cfg.ChainID = chainID
	cfg.UpdatedAt = time.Now()

	s.mu.Lock()
	s.configs[chainID] = cfg
	s.mu.Unlock()
}

// ChainIDs lists the chains with stored configs.
func (s *ConfigStore) ChainIDs() []uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]uint64, 0, len(s.configs))
	for id := range s.configs {
		ids = append(ids, id)
	}
	return ids
}
