package app

import (
	"context"
	"math/big"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	quoting "github.com/shivam-V8/defi-agent/business/quoting/domain"
	"github.com/shivam-V8/defi-agent/business/simulation/domain"
	"github.com/shivam-V8/defi-agent/internal/apperror"
	"github.com/shivam-V8/defi-agent/internal/logger"
)

const defaultGasLimit = 500_000

const defaultMaxGasCostUSD = 50.0

// executeABI describes the execution target's permitted-swap entry point.
const executeABI = `[{
	"name": "executePermittedSwap",
	"type": "function",
	"inputs": [
		{"name": "tokenIn", "type": "address"},
		{"name": "tokenOut", "type": "address"},
		{"name": "amountIn", "type": "uint256"},
		{"name": "minReceived", "type": "uint256"},
		{"name": "deadline", "type": "uint256"},
		{"name": "routerType", "type": "uint8"},
		{"name": "swapPayload", "type": "bytes"},
		{"name": "permitPayload", "type": "bytes"}
	],
	"outputs": [{"name": "amountOut", "type": "uint256"}]
}]`

var routerTypeIDs = map[quoting.RouterType]uint8{
	quoting.RouterUniswapV3: 0,
	quoting.RouterZeroX:     1,
}

// ChainTarget holds the per-chain execution parameters the service resolves
// from configuration.
type ChainTarget struct {
	ExecutionTarget common.Address
	GasPriceWei     *big.Int
}

// Service orchestrates simulate-then-guard-check for a swap execution.
type Service struct {
	sim     Simulator
	targets map[uint64]ChainTarget
	execABI abi.ABI
	log     logger.LoggerInterface
}

// NewService creates the simulation orchestrator.
func NewService(sim Simulator, targets map[uint64]ChainTarget, log logger.LoggerInterface) (*Service, error) {
	parsed, err := abi.JSON(strings.NewReader(executeABI))
	if err != nil {
		return nil, apperror.Internal(apperror.CodeCalldataEncoding, "parsing execution target abi", err)
	}
	return &Service{sim: sim, targets: targets, execABI: parsed, log: log}, nil
}

// Simulate validates the request, encodes the execution-target call, runs
// the simulation and the guard battery, and returns the unified verdict.
// Overall success requires both the simulation and every guard check to pass.
func (s *Service) Simulate(ctx context.Context, req domain.SimulationRequest) (*domain.SimulationResponse, error) {
	if err := s.validate(req); err != nil {
		return nil, err
	}

	target, ok := s.targets[req.ChainID]
	if !ok {
		return nil, apperror.New(apperror.CodeUnsupportedChain,
			apperror.WithContext("chain "+strconv.FormatUint(req.ChainID, 10)+" is not configured"))
	}
	if target.ExecutionTarget == (common.Address{}) {
		return nil, apperror.Configuration(apperror.CodeTargetNotDeployed,
			"execution target not deployed on chain "+strconv.FormatUint(req.ChainID, 10))
	}

	data, err := s.encodeCall(req)
	if err != nil {
		return nil, err
	}

	gasLimit := req.GasLimit
	if gasLimit == 0 {
		gasLimit = defaultGasLimit
	}
	maxGasCost := req.MaxGasCostUSD
	if maxGasCost <= 0 {
		maxGasCost = defaultMaxGasCostUSD
	}

	result, err := s.sim.Simulate(ctx, domain.SimulateCall{
		From:     req.User,
		To:       target.ExecutionTarget.Hex(),
		Data:     data,
		GasLimit: gasLimit,
		GasPrice: target.GasPriceWei,
		ChainID:  req.ChainID,
	})
	if err != nil {
		return nil, err
	}

	if impact := priceImpactBps(req.ExpectedOut, result.ActualOut); impact > 0 {
		result.PriceImpactBps = impact
	}

	report := PerformGuardChecks(result, req.MinReceived, maxGasCost)

	resp := &domain.SimulationResponse{
		Success:        result.Success && report.Passed,
		GasUsed:        result.GasUsed,
		ActualOut:      result.ActualOut,
		PriceImpactBps: result.PriceImpactBps,
		SimulationID:   result.SimulationID,
		Details: &domain.SimulationDetails{
			Logs:          result.Logs,
			Trace:         result.Trace,
			GuardChecks:   report.Checks,
			Warnings:      report.Warnings,
			SimulationURL: result.SimulationURL,
		},
	}
	if result.GasPrice != nil {
		resp.GasPrice = result.GasPrice.String()
	}
	if !resp.Success {
		resp.Error = verdictError(result, report)
	}

	s.log.Info(ctx, "simulation complete",
		"chain_id", req.ChainID,
		"success", resp.Success,
		"gas_used", resp.GasUsed,
		"price_impact_bps", resp.PriceImpactBps,
	)

	return resp, nil
}

// HealthCheck reports simulator availability.
func (s *Service) HealthCheck(ctx context.Context) error {
	return s.sim.HealthCheck(ctx)
}

func (s *Service) validate(req domain.SimulationRequest) error {
	for name, addr := range map[string]string{
		"tokenIn":  req.TokenIn,
		"tokenOut": req.TokenOut,
		"user":     req.User,
		"router":   req.Router,
	} {
		if !common.IsHexAddress(addr) {
			return apperror.Validation(apperror.CodeInvalidInput, "invalid "+name+" address: "+addr)
		}
	}

	for name, amount := range map[string]string{
		"amountIn":    req.AmountIn,
		"expectedOut": req.ExpectedOut,
		"minReceived": req.MinReceived,
	} {
		d, err := decimal.NewFromString(amount)
		if err != nil || !d.IsPositive() {
			return apperror.Validation(apperror.CodeInvalidInput, name+" must be a positive amount: "+amount)
		}
	}

	if _, ok := routerTypeIDs[req.RouterType]; !ok {
		return apperror.Validation(apperror.CodeInvalidInput, "unknown router type: "+string(req.RouterType))
	}

	return nil
}

func (s *Service) encodeCall(req domain.SimulationRequest) ([]byte, error) {
	amountIn, ok := new(big.Int).SetString(req.AmountIn, 10)
	if !ok {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "amountIn is not an integer: "+req.AmountIn)
	}
	minReceived, ok := new(big.Int).SetString(req.MinReceived, 10)
	if !ok {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "minReceived is not an integer: "+req.MinReceived)
	}

	deadline := req.Deadline
	if deadline == 0 {
		deadline = time.Now().Unix() + 300
	}

	data, err := s.execABI.Pack("executePermittedSwap",
		common.HexToAddress(req.TokenIn),
		common.HexToAddress(req.TokenOut),
		amountIn,
		minReceived,
		big.NewInt(deadline),
		routerTypeIDs[req.RouterType],
		req.SwapPayload,
		req.PermitPayload,
	)
	if err != nil {
		return nil, apperror.Internal(apperror.CodeCalldataEncoding, "encoding permitted swap call", err)
	}
	return data, nil
}

// priceImpactBps computes max(0, (expectedOut-actualOut)/expectedOut*10000).
func priceImpactBps(expectedOut, actualOut string) int64 {
	expected, err := decimal.NewFromString(expectedOut)
	if err != nil || !expected.IsPositive() {
		return 0
	}
	actual, err := decimal.NewFromString(actualOut)
	if err != nil {
		return 0
	}

	impact := expected.Sub(actual).Div(expected).Mul(decimal.NewFromInt(10000)).IntPart()
	if impact < 0 {
		return 0
	}
	return impact
}

func verdictError(result domain.SimulationResult, report domain.GuardReport) string {
	if result.Error != "" {
		return result.Error
	}
	var failed []string
	for _, check := range report.Checks {
		if !check.Passed {
			failed = append(failed, check.Message)
		}
	}
	return strings.Join(failed, "; ")
}

