// Package policy implements the policy bounded context: rule-based quote
// admission, scoring, and ranking.
package policy

import (
	"context"

	"github.com/shivam-V8/defi-agent/business/policy/app"
	policyDI "github.com/shivam-V8/defi-agent/business/policy/di"
	"github.com/shivam-V8/defi-agent/internal/config"
	"github.com/shivam-V8/defi-agent/internal/di"
	"github.com/shivam-V8/defi-agent/internal/monolith"
)

// Module implements the policy bounded context.
type Module struct{}

// RegisterServices registers all policy services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, policyDI.ConfigStore, func(sr di.ServiceRegistry) *app.ConfigStore {
		cfg := sr.Get("config").(*config.Config)

		chains := make(map[uint64]app.ChainAllowlists, len(cfg.Chains))
		for _, chain := range cfg.Chains {
			chains[chain.ChainID] = app.ChainAllowlists{
				Routers: chain.AllowedRouters,
				Tokens:  chain.AllowedTokens,
			}
		}
		return app.NewConfigStore(chains)
	})

	di.RegisterToken(c, policyDI.Engine, func(sr di.ServiceRegistry) *app.Engine {
		return app.NewEngine(policyDI.GetConfigStore(sr))
	})

	di.RegisterToken(c, policyDI.Scorer, func(sr di.ServiceRegistry) *app.Scorer {
		return app.NewScorer(policyDI.GetEngine(sr))
	})

	return nil
}

// Startup initializes the policy module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	store := policyDI.GetConfigStore(mono.Services())
	mono.Logger().Info(ctx, "policy module started", "chains", len(store.ChainIDs()))
	return nil
}
