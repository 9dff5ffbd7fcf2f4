// Package chaingas implements the gas oracle over chain RPC endpoints.
package chaingas

import (
	"context"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/shivam-V8/defi-agent/business/marketdata/domain"
	"github.com/shivam-V8/defi-agent/internal/apperror"
	"github.com/shivam-V8/defi-agent/internal/logger"
)

// Provider reads gas prices straight from each chain's RPC endpoint.
type Provider struct {
	clients map[uint64]*ethclient.Client
	log     logger.LoggerInterface
}

// NewProvider creates a gas provider over the dialed per-chain clients.
func NewProvider(clients map[uint64]*ethclient.Client, log logger.LoggerInterface) *Provider {
	return &Provider{clients: clients, log: log}
}

// GasPrice returns the RPC-suggested gas price for the chain.
func (p *Provider) GasPrice(ctx context.Context, chainID uint64) (domain.GasPrice, error) {
	client, ok := p.clients[chainID]
	if !ok {
		return domain.GasPrice{}, apperror.New(apperror.CodeUnsupportedChain,
			apperror.WithContext(fmt.Sprintf("chain %d has no RPC client", chainID)))
	}

	price, err := client.SuggestGasPrice(ctx)
	if err != nil {
		return domain.GasPrice{}, apperror.External(apperror.CodeGasOracleFailed, "suggest gas price", err)
	}

	return domain.GasPrice{
		ChainID:   chainID,
		PriceWei:  price,
		Timestamp: time.Now(),
		Source:    domain.SourceRPC,
	}, nil
}
