// Package domain defines marketdata value types.
package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

// Price sources reported alongside every oracle value.
const (
	SourceOracle   = "oracle"
	SourceRPC      = "rpc"
	SourceFallback = "fallback"
)

// TokenPrice is a USD price for one token on one chain.
type TokenPrice struct {
	Token     string
	PriceUSD  decimal.Decimal
	Timestamp time.Time
	Source    string
}

// GasPrice is a chain gas price in wei.
type GasPrice struct {
	ChainID   uint64
	PriceWei  *big.Int
	Timestamp time.Time
	Source    string
}

// IsFallback reports whether this price came from the static fallback table.
func (p TokenPrice) IsFallback() bool {
	return p.Source == SourceFallback
}
