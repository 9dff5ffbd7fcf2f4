// Package simulation implements the simulation bounded context: pre-flight
// transaction simulation gated by a fixed guard-check battery.
package simulation

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"github.com/shivam-V8/defi-agent/business/simulation/app"
	simulationDI "github.com/shivam-V8/defi-agent/business/simulation/di"
	"github.com/shivam-V8/defi-agent/business/simulation/infra/tenderly"
	"github.com/shivam-V8/defi-agent/internal/config"
	"github.com/shivam-V8/defi-agent/internal/di"
	"github.com/shivam-V8/defi-agent/internal/logger"
	"github.com/shivam-V8/defi-agent/internal/monolith"
)

// Module implements the simulation bounded context.
type Module struct{}

// RegisterServices registers all simulation services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, simulationDI.Simulator, func(sr di.ServiceRegistry) app.Simulator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := tenderly.NewClient(tenderly.Config{
			BaseURL:     cfg.Simulator.BaseURL,
			AccountSlug: cfg.Simulator.AccountSlug,
			ProjectSlug: cfg.Simulator.ProjectSlug,
			AccessKey:   cfg.Simulator.AccessKey,
			Timeout:     cfg.Simulator.Timeout,
		}, log)
		if err != nil {
			panic("failed to create simulator client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, simulationDI.Service, func(sr di.ServiceRegistry) *app.Service {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		targets := make(map[uint64]app.ChainTarget, len(cfg.Chains))
		for _, chain := range cfg.Chains {
			target := app.ChainTarget{}
			if chain.ExecutionTarget != "" {
				target.ExecutionTarget = common.HexToAddress(chain.ExecutionTarget)
			}
			if chain.DefaultGasPriceWei != "" {
				if wei, ok := new(big.Int).SetString(chain.DefaultGasPriceWei, 10); ok {
					target.GasPriceWei = wei
				}
			}
			targets[chain.ChainID] = target
		}

		svc, err := app.NewService(simulationDI.GetSimulator(sr), targets, log)
		if err != nil {
			panic("failed to create simulation service: " + err.Error())
		}
		return svc
	})

	return nil
}

// Startup initializes the simulation module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	configured := mono.Config().Simulator.Configured()
	mono.Logger().Info(ctx, "simulation module started", "simulator_configured", configured)
	return nil
}
