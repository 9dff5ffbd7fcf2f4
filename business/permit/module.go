// Package permit implements the permit bounded context: EIP-712 typed-data
// builders for Permit2 and ERC-2612 token approvals.
package permit

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"github.com/shivam-V8/defi-agent/business/permit/app"
	permitDI "github.com/shivam-V8/defi-agent/business/permit/di"
	"github.com/shivam-V8/defi-agent/business/permit/infra/eip2612"
	"github.com/shivam-V8/defi-agent/business/permit/infra/permit2"
	"github.com/shivam-V8/defi-agent/internal/config"
	"github.com/shivam-V8/defi-agent/internal/di"
	"github.com/shivam-V8/defi-agent/internal/logger"
	"github.com/shivam-V8/defi-agent/internal/monolith"
)

// Module implements the permit bounded context.
type Module struct{}

// RegisterServices registers all permit services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, permitDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		contracts := make(map[uint64]common.Address, len(cfg.Chains))
		for _, chain := range cfg.Chains {
			if chain.Permit2Address != "" {
				contracts[chain.ChainID] = common.HexToAddress(chain.Permit2Address)
			}
		}

		return app.NewService(
			permit2.NewBuilder(contracts),
			eip2612.NewBuilder(),
			int64(cfg.Permit.TTLSeconds),
			log,
		)
	})

	return nil
}

// Startup initializes the permit module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	health := permitDI.GetService(mono.Services()).HealthCheck(ctx)
	mono.Logger().Info(ctx, "permit module started", "health", health.Status)
	return nil
}
