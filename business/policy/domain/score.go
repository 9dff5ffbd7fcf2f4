package domain

import (
	"github.com/shopspring/decimal"

	quoting "github.com/shivam-V8/defi-agent/business/quoting/domain"
)

// QuoteScore wraps a normalized quote with its evaluation; the ranking unit.
type QuoteScore struct {
	Quote      quoting.NormalizedQuote
	NetUSD     decimal.Decimal
	Score      int
	Violations []PolicyViolation
	Warnings   []PolicyViolation
	Passed     bool
}

// RejectedQuote pairs a failing quote with its human-readable reason.
type RejectedQuote struct {
	Quote  quoting.NormalizedQuote
	Reason string
}

// ScoringResult partitions an evaluated quote set.
type ScoringResult struct {
	Ranked    []QuoteScore // passing quotes, best first
	Rejected  []RejectedQuote
	BestQuote *QuoteScore // head of Ranked, nil when empty
}
