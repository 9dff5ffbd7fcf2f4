// Package domain defines the permit context types: typed-data signature
// requests for gasless token approvals.
package domain

import "time"

// PermitType selects the approval scheme used to build typed data.
type PermitType string

const (
	// PermitTypePermit2 uses the canonical Permit2 contract shared by all tokens.
	PermitTypePermit2 PermitType = "PERMIT2"
	// PermitTypeEIP2612 uses the token's own permit extension.
	PermitTypeEIP2612 PermitType = "EIP2612"
)

// Valid reports whether t is a known permit type.
func (t PermitType) Valid() bool {
	return t == PermitTypePermit2 || t == PermitTypeEIP2612
}

// PermitRequest describes the approval the caller wants signed.
type PermitRequest struct {
	Type       PermitType `json:"type"`
	ChainID    uint64     `json:"chainId"`
	Token      string     `json:"token"`
	Owner      string     `json:"owner"`
	Spender    string     `json:"spender"`
	Amount     string     `json:"amount"`
	Nonce      string     `json:"nonce"`
	Deadline   int64      `json:"deadline,omitempty"`   // unix seconds; 0 derives now+TTL
	TTLSeconds int64      `json:"ttlSeconds,omitempty"` // 0 uses the service TTL
}

// PermitResponse carries the typed data ready for wallet signing, plus the
// EIP-712 digest the signature must match. Deadline never exceeds
// CreatedAt + TTL seconds.
type PermitResponse struct {
	Type        PermitType `json:"permitType"`
	TypedData   any        `json:"typedData"`
	MessageHash string     `json:"messageHash"`
	Nonce       string     `json:"nonce"`
	Deadline    int64      `json:"deadline"`
	TTL         int64      `json:"ttl"`
	ExpiresAt   time.Time  `json:"expiresAt"`
	CreatedAt   time.Time  `json:"createdAt"`
	Warnings    []string   `json:"warnings,omitempty"`
}

// ValidationResult reports field-level validation of a permit request.
type ValidationResult struct {
	Valid    bool     `json:"valid"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

// TokenDomain is the EIP-712 domain a token contract advertises for its
// permit extension. Unsupported tokens still get a best-effort domain so
// callers can inspect the typed data, flagged via Supported.
type TokenDomain struct {
	Name      string
	Version   string
	Supported bool
}
