// Package quoting implements the quoting bounded context: concurrent quote
// aggregation across swap venues and best-route selection.
package quoting

import (
	"context"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"

	marketdataDI "github.com/shivam-V8/defi-agent/business/marketdata/di"
	policyDI "github.com/shivam-V8/defi-agent/business/policy/di"
	"github.com/shivam-V8/defi-agent/business/quoting/app"
	quotingDI "github.com/shivam-V8/defi-agent/business/quoting/di"
	"github.com/shivam-V8/defi-agent/business/quoting/domain"
	"github.com/shivam-V8/defi-agent/business/quoting/infra/uniswap"
	"github.com/shivam-V8/defi-agent/business/quoting/infra/zerox"
	"github.com/shivam-V8/defi-agent/internal/asset"
	"github.com/shivam-V8/defi-agent/internal/config"
	"github.com/shivam-V8/defi-agent/internal/di"
	"github.com/shivam-V8/defi-agent/internal/logger"
	"github.com/shivam-V8/defi-agent/internal/monolith"
	"github.com/shivam-V8/defi-agent/internal/statstore"
)

// Module implements the quoting bounded context.
type Module struct{}

// RegisterServices registers all quoting services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, quotingDI.QuoteClients, func(sr di.ServiceRegistry) []app.QuoteClient {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		registry := sr.Get("assetRegistry").(*asset.Registry)
		ethClients := sr.Get("ethClients").(map[uint64]*ethclient.Client)

		return buildClients(cfg, registry, ethClients, log)
	})

	di.RegisterToken(c, quotingDI.Aggregator, func(sr di.ServiceRegistry) *app.Aggregator {
		log := sr.Get("logger").(logger.LoggerInterface)

		return app.NewAggregator(
			quotingDI.GetQuoteClients(sr),
			marketdataDI.GetOracleService(sr),
			log,
		)
	})

	di.RegisterToken(c, quotingDI.RouteService, func(sr di.ServiceRegistry) *app.RouteService {
		log := sr.Get("logger").(logger.LoggerInterface)
		store := sr.Get("statStore").(*statstore.Store)

		return app.NewRouteService(
			quotingDI.GetAggregator(sr),
			policyDI.GetScorer(sr),
			store,
			log,
		)
	})

	return nil
}

// Startup initializes the quoting module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	agg := quotingDI.GetAggregator(mono.Services())
	mono.Logger().Info(ctx, "quoting module started", "chains", len(agg.Chains()))
	return nil
}

func buildClients(cfg *config.Config, registry *asset.Registry, ethClients map[uint64]*ethclient.Client, log logger.LoggerInterface) []app.QuoteClient {
	enabled := make(map[domain.RouterType]bool, len(cfg.Quoting.EnabledRouterTypes))
	for _, rt := range cfg.Quoting.EnabledRouterTypes {
		enabled[domain.RouterType(strings.ToUpper(rt))] = true
	}

	var clients []app.QuoteClient
	for _, chain := range cfg.Chains {
		if enabled[domain.RouterUniswapV3] && chain.UniswapQuoter != "" {
			eth, ok := ethClients[chain.ChainID]
			if !ok {
				log.Warn(context.Background(), "skipping uniswap client, no RPC endpoint", "chain_id", chain.ChainID)
			} else {
				client, err := uniswap.NewClient(eth, uniswap.Config{
					ChainID:    chain.ChainID,
					Quoter:     common.HexToAddress(chain.UniswapQuoter),
					Router:     common.HexToAddress(chain.UniswapRouter),
					Timeout:    cfg.Quoting.ClientTimeout,
					MaxRetries: cfg.Quoting.MaxRetries,
					TTLSeconds: int64(cfg.Quoting.DefaultTTLSeconds),
					PriceBias:  cfg.Quoting.PriceBias,
					DustUSD:    cfg.Quoting.DustThresholdUSD,
				}, registry, log)
				if err != nil {
					log.Error(context.Background(), "failed to create uniswap client", "chain_id", chain.ChainID, "error", err)
				} else {
					clients = append(clients, client)
				}
			}
		}

		if enabled[domain.RouterZeroX] && chain.ZeroExBaseURL != "" {
			client, err := zerox.NewClient(zerox.Config{
				ChainID:    chain.ChainID,
				BaseURL:    chain.ZeroExBaseURL,
				APIKey:     cfg.Quoting.ZeroExAPIKey,
				Router:     common.HexToAddress(chain.ZeroExRouter),
				Timeout:    cfg.Quoting.ClientTimeout,
				MaxRetries: cfg.Quoting.MaxRetries,
				RatePerMin: cfg.Quoting.ZeroExRatePerMin,
				TTLSeconds: int64(cfg.Quoting.DefaultTTLSeconds),
				PriceBias:  cfg.Quoting.PriceBias,
				DustUSD:    cfg.Quoting.DustThresholdUSD,
			}, registry, log)
			if err != nil {
				log.Error(context.Background(), "failed to create zerox client", "chain_id", chain.ChainID, "error", err)
			} else {
				clients = append(clients, client)
			}
		}
	}

	return clients
}
