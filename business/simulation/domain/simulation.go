// Package domain defines the simulation context types: pre-flight
// transaction simulation and the safety checks gating execution.
package domain

import (
	"math/big"

	quoting "github.com/shivam-V8/defi-agent/business/quoting/domain"
)

// SimulationRequest describes the swap execution the caller wants checked
// before submitting the real transaction.
type SimulationRequest struct {
	ChainID       uint64             `json:"chainId"`
	TokenIn       string             `json:"tokenIn"`
	TokenOut      string             `json:"tokenOut"`
	User          string             `json:"user"`
	Router        string             `json:"router"`
	RouterType    quoting.RouterType `json:"routerType"`
	AmountIn      string             `json:"amountIn"`
	ExpectedOut   string             `json:"expectedOut"`
	MinReceived   string             `json:"minReceived"`
	Deadline      int64              `json:"deadline"`
	SwapPayload   []byte             `json:"swapPayload,omitempty"`
	PermitPayload []byte             `json:"permitPayload,omitempty"`
	GasLimit      uint64             `json:"gasLimit,omitempty"`
	MaxGasCostUSD float64            `json:"maxGasCostUsd,omitempty"`
}

// SimulateCall is the low-level call handed to the simulator adapter.
type SimulateCall struct {
	From        string
	To          string
	Data        []byte
	Value       *big.Int
	GasLimit    uint64
	GasPrice    *big.Int
	ChainID     uint64
	BlockNumber *big.Int // nil simulates on latest
}

// TraceStep is one frame of the simulated call trace.
type TraceStep struct {
	Error string `json:"error,omitempty"`
	Value string `json:"value,omitempty"`
}

// SimulationResult is the adapter's verdict on a single simulated call.
type SimulationResult struct {
	Success        bool        `json:"success"`
	GasUsed        uint64      `json:"gasUsed"`
	GasPrice       *big.Int    `json:"gasPrice,omitempty"`
	ActualOut      string      `json:"actualOut"`
	PriceImpactBps int64       `json:"priceImpact"`
	Error          string      `json:"error,omitempty"`
	SimulationID   string      `json:"simulationId,omitempty"`
	SimulationURL  string      `json:"simulationUrl,omitempty"`
	Logs           []string    `json:"logs,omitempty"`
	Trace          []TraceStep `json:"trace,omitempty"`
	Fallback       bool        `json:"fallback,omitempty"`
}

// GuardCheck is one safety check outcome.
type GuardCheck struct {
	Name    string `json:"name"`
	Passed  bool   `json:"passed"`
	Message string `json:"message"`
}

// GuardReport aggregates all checks run against one simulation.
type GuardReport struct {
	Passed   bool         `json:"passed"`
	Checks   []GuardCheck `json:"checks"`
	Warnings []string     `json:"warnings,omitempty"`
}

// SimulationDetails carries diagnostics attached to a response.
type SimulationDetails struct {
	Logs          []string     `json:"logs,omitempty"`
	Trace         []TraceStep  `json:"trace,omitempty"`
	GuardChecks   []GuardCheck `json:"guardChecks"`
	Warnings      []string     `json:"warnings,omitempty"`
	SimulationURL string       `json:"simulationUrl,omitempty"`
}

// SimulationResponse is the unified verdict: overall success requires the
// simulation and every guard check to pass.
type SimulationResponse struct {
	Success        bool               `json:"success"`
	GasUsed        uint64             `json:"gasUsed,omitempty"`
	GasPrice       string             `json:"gasPrice,omitempty"`
	ActualOut      string             `json:"actualOut,omitempty"`
	PriceImpactBps int64              `json:"priceImpact"`
	Error          string             `json:"error,omitempty"`
	SimulationID   string             `json:"simulationId,omitempty"`
	Details        *SimulationDetails `json:"simulationDetails,omitempty"`
}
