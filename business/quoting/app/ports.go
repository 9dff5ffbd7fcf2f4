// Package app contains the quote aggregation services and the router
// client port.
package app

import (
	"context"

	marketdomain "github.com/shivam-V8/defi-agent/business/marketdata/domain"
	"github.com/shivam-V8/defi-agent/business/quoting/domain"
)

// QuoteClient is the per-venue router client port. FetchQuote returns an
// error only for invalid input (rejected before any I/O); infrastructure
// failures and missing liquidity are encoded in the outcome.
type QuoteClient interface {
	RouterType() domain.RouterType
	// Router is the venue's router address on this client's chain.
	Router() string
	ChainID() uint64

	FetchQuote(ctx context.Context, req domain.QuoteRequest) (domain.FetchOutcome, error)
	Normalize(raw *domain.RawQuote, prices map[string]marketdomain.TokenPrice, gas marketdomain.GasPrice) (domain.NormalizedQuote, error)

	// HealthCheck is a minimal liveness probe for operational monitoring.
	HealthCheck(ctx context.Context) error
}
