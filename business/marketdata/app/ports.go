// Package app contains the marketdata services and upstream ports.
package app

import (
	"context"

	"github.com/shivam-V8/defi-agent/business/marketdata/domain"
)

// PriceSource fetches USD token prices from an upstream oracle.
type PriceSource interface {
	// TokenPricesUSD returns one price per requested token address.
	// Tokens the upstream does not know may be omitted from the result.
	TokenPricesUSD(ctx context.Context, chainID uint64, tokens []string) ([]domain.TokenPrice, error)
}

// GasSource fetches the current gas price for a chain.
type GasSource interface {
	GasPrice(ctx context.Context, chainID uint64) (domain.GasPrice, error)
}
