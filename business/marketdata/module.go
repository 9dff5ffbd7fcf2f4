// Package marketdata implements the marketdata bounded context: cached
// price and gas oracles with static fallbacks.
package marketdata

import (
	"context"
	"math/big"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/shivam-V8/defi-agent/business/marketdata/app"
	marketdataDI "github.com/shivam-V8/defi-agent/business/marketdata/di"
	"github.com/shivam-V8/defi-agent/business/marketdata/infra/chaingas"
	"github.com/shivam-V8/defi-agent/business/marketdata/infra/priceapi"
	"github.com/shivam-V8/defi-agent/internal/config"
	"github.com/shivam-V8/defi-agent/internal/di"
	"github.com/shivam-V8/defi-agent/internal/logger"
	"github.com/shivam-V8/defi-agent/internal/monolith"
)

// Module implements the marketdata bounded context.
type Module struct{}

// RegisterServices registers all marketdata services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, marketdataDI.PriceSource, func(sr di.ServiceRegistry) app.PriceSource {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		client, err := priceapi.NewClient(priceapi.Config{
			BaseURL: cfg.Oracle.PriceBaseURL,
			APIKey:  cfg.Oracle.PriceAPIKey,
			Timeout: cfg.Oracle.Timeout,
		}, log)
		if err != nil {
			panic("failed to create price api client: " + err.Error())
		}
		return client
	})

	di.RegisterToken(c, marketdataDI.GasSource, func(sr di.ServiceRegistry) app.GasSource {
		log := sr.Get("logger").(logger.LoggerInterface)
		clients := sr.Get("ethClients").(map[uint64]*ethclient.Client)

		return chaingas.NewProvider(clients, log)
	})

	di.RegisterToken(c, marketdataDI.OracleService, func(sr di.ServiceRegistry) *app.OracleService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		gasDefaults := make(map[uint64]*big.Int, len(cfg.Chains))
		for _, chain := range cfg.Chains {
			if chain.DefaultGasPriceWei == "" {
				continue
			}
			if wei, ok := new(big.Int).SetString(chain.DefaultGasPriceWei, 10); ok {
				gasDefaults[chain.ChainID] = wei
			}
		}

		return app.NewOracleService(
			marketdataDI.GetPriceSource(sr),
			marketdataDI.GetGasSource(sr),
			log,
			app.WithPriceTTL(cfg.Oracle.PriceTTL),
			app.WithGasTTL(cfg.Oracle.GasTTL),
			app.WithGasDefaults(gasDefaults),
		)
	})

	return nil
}

// Startup initializes the marketdata module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	mono.Logger().Info(ctx, "marketdata module started")
	return nil
}
