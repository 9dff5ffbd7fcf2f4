// Package domain defines the quoting value types: raw and normalized quotes
// plus the three-state fetch outcome.
package domain

import (
	"time"
)

// RouterType identifies a supported liquidity venue.
type RouterType string

const (
	RouterUniswapV3 RouterType = "UNISWAP_V3"
	RouterZeroX     RouterType = "ZEROX"
)

// Valid reports whether rt is a known router type.
func (rt RouterType) Valid() bool {
	return rt == RouterUniswapV3 || rt == RouterZeroX
}

// QuoteRequest is the caller's route discovery request.
type QuoteRequest struct {
	TokenIn           string
	TokenOut          string
	AmountIn          string // integer string, smallest token unit
	ChainID           uint64
	SlippageTolerance float64 // percent, [0, 50]
}

// RawQuote is the pre-normalization payload from one venue. Payload carries
// the opaque upstream response for provenance.
type RawQuote struct {
	Router     string
	RouterType RouterType
	ChainID    uint64
	TokenIn    string
	TokenOut   string
	AmountIn   string
	Payload    any
	FetchedAt  time.Time
}

// NormalizedQuote is the canonical representation of one route candidate.
// AmountIn/AmountOut are positive integer strings in the smallest token
// unit; TokenInDecimals scales AmountIn back to human units; Deadline is
// always Timestamp + TTL.
type NormalizedQuote struct {
	Router          string
	RouterType      RouterType
	ChainID         uint64
	TokenIn         string
	TokenOut        string
	AmountIn        string
	AmountOut       string
	TokenInDecimals uint8
	PriceImpactBps  int64  // [0, 10000]
	EffectivePrice  string // amountOut/amountIn scaled integer ratio
	GasEstimate     string
	GasPrice        string
	GasUSD          string // fixed 6-decimal string
	NotionalUSD     string // fixed 6-decimal string
	Deadline        int64  // unix seconds
	TTL             int64  // seconds
	Timestamp       time.Time
	Source          string
	Confidence      float64 // [0, 1]
}

// OutcomeKind discriminates the three fetch outcomes.
type OutcomeKind int

const (
	// OutcomeQuote means the venue produced a quote.
	OutcomeQuote OutcomeKind = iota
	// OutcomeNoQuote means the venue has nothing to offer for this pair.
	OutcomeNoQuote
	// OutcomeFetchFailed means an infrastructure failure after retries.
	OutcomeFetchFailed
)

// FetchOutcome is the explicit three-state result of a quote fetch, so
// callers cannot conflate "no liquidity" with "venue is broken".
type FetchOutcome struct {
	Kind   OutcomeKind
	Raw    *RawQuote
	Reason string
}

// QuoteFound wraps a successful fetch.
func QuoteFound(raw *RawQuote) FetchOutcome {
	return FetchOutcome{Kind: OutcomeQuote, Raw: raw}
}

// NoQuote marks a venue that has no quote for the pair.
func NoQuote(reason string) FetchOutcome {
	return FetchOutcome{Kind: OutcomeNoQuote, Reason: reason}
}

// FetchFailed marks an infrastructure failure.
func FetchFailed(reason string) FetchOutcome {
	return FetchOutcome{Kind: OutcomeFetchFailed, Reason: reason}
}

// FetchError records one venue's failure during aggregation.
type FetchError struct {
	Router     string
	RouterType RouterType
	Message    string
	Timestamp  time.Time
}
