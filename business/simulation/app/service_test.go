package app

import (
	"context"
	"io"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	quoting "github.com/shivam-V8/defi-agent/business/quoting/domain"
	"github.com/shivam-V8/defi-agent/business/simulation/domain"
	"github.com/shivam-V8/defi-agent/internal/logger"
)

type stubSimulator struct {
	result   domain.SimulationResult
	lastCall domain.SimulateCall
	calls    int
}

func (s *stubSimulator) Simulate(_ context.Context, call domain.SimulateCall) (domain.SimulationResult, error) {
	s.calls++
	s.lastCall = call
	return s.result, nil
}

func (s *stubSimulator) HealthCheck(context.Context) error { return nil }

func newSimService(t *testing.T, sim *stubSimulator) *Service {
	t.Helper()
	targets := map[uint64]ChainTarget{
		1: {
			ExecutionTarget: common.HexToAddress("0x9999999999999999999999999999999999999999"),
			GasPriceWei:     big.NewInt(20_000_000_000),
		},
		10: {}, // configured chain without a deployed target
	}
	log := logger.New(io.Discard, logger.LevelError, "simulation-test", nil)
	svc, err := NewService(sim, targets, log)
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return svc
}

func validSimRequest() domain.SimulationRequest {
	return domain.SimulationRequest{
		ChainID:     1,
		TokenIn:     "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48",
		TokenOut:    "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2",
		User:        "0x1111111111111111111111111111111111111111",
		Router:      "0x68b3465833fb72A70ecDF485E0e4C7bD8665Fc45",
		RouterType:  quoting.RouterUniswapV3,
		AmountIn:    "1000000000",
		ExpectedOut: "1000000000000000000",
		MinReceived: "990000000000000000",
	}
}

func TestSimulate_Success(t *testing.T) {
	stub := &stubSimulator{result: domain.SimulationResult{
		Success:   true,
		GasUsed:   200_000,
		GasPrice:  big.NewInt(20_000_000_000),
		ActualOut: "995000000000000000",
	}}
	svc := newSimService(t, stub)

	resp, err := svc.Simulate(context.Background(), validSimRequest())
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	if !resp.Success {
		t.Fatalf("Success = false, error %q, checks %+v", resp.Error, resp.Details.GuardChecks)
	}
	// (1e18 - 0.995e18) / 1e18 * 10000 = 50 bps
	if resp.PriceImpactBps != 50 {
		t.Errorf("PriceImpactBps = %d, want 50", resp.PriceImpactBps)
	}
	if stub.calls != 1 {
		t.Errorf("simulator called %d times, want 1", stub.calls)
	}
	if stub.lastCall.To != "0x9999999999999999999999999999999999999999" {
		t.Errorf("call target = %q, want configured execution target", stub.lastCall.To)
	}
	if len(stub.lastCall.Data) == 0 {
		t.Error("call data must carry the encoded swap")
	}
	if stub.lastCall.GasLimit != defaultGasLimit {
		t.Errorf("GasLimit = %d, want default %d", stub.lastCall.GasLimit, defaultGasLimit)
	}
}

func TestSimulate_GuardFailureOverridesSuccess(t *testing.T) {
	stub := &stubSimulator{result: domain.SimulationResult{
		Success:   true,
		GasUsed:   200_000,
		GasPrice:  big.NewInt(20_000_000_000),
		ActualOut: "500000000000000000", // below minReceived
	}}
	svc := newSimService(t, stub)

	resp, err := svc.Simulate(context.Background(), validSimRequest())
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}

	if resp.Success {
		t.Error("Success = true despite failed guard checks")
	}
	if !strings.Contains(resp.Error, "below minimum received") {
		t.Errorf("Error = %q, want the failed check message", resp.Error)
	}
}

func TestSimulate_SimulatorErrorPreferred(t *testing.T) {
	stub := &stubSimulator{result: domain.SimulationResult{
		Success: false,
		Error:   "execution reverted: STF",
	}}
	svc := newSimService(t, stub)

	resp, err := svc.Simulate(context.Background(), validSimRequest())
	if err != nil {
		t.Fatalf("Simulate() error = %v", err)
	}
	if resp.Success {
		t.Error("Success = true for a failed simulation")
	}
	if resp.Error != "execution reverted: STF" {
		t.Errorf("Error = %q, want the simulator revert verbatim", resp.Error)
	}
}

func TestSimulate_ValidationErrors(t *testing.T) {
	svc := newSimService(t, &stubSimulator{})

	tests := []struct {
		name   string
		mutate func(*domain.SimulationRequest)
	}{
		{"bad_token_in", func(r *domain.SimulationRequest) { r.TokenIn = "nope" }},
		{"bad_user", func(r *domain.SimulationRequest) { r.User = "0x12" }},
		{"zero_amount_in", func(r *domain.SimulationRequest) { r.AmountIn = "0" }},
		{"negative_min_received", func(r *domain.SimulationRequest) { r.MinReceived = "-1" }},
		{"unknown_router_type", func(r *domain.SimulationRequest) { r.RouterType = "SUSHI" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validSimRequest()
			tt.mutate(&req)
			if _, err := svc.Simulate(context.Background(), req); err == nil {
				t.Error("expected a validation error")
			}
		})
	}
}

func TestSimulate_ChainConfiguration(t *testing.T) {
	svc := newSimService(t, &stubSimulator{})

	req := validSimRequest()
	req.ChainID = 42161
	if _, err := svc.Simulate(context.Background(), req); err == nil {
		t.Error("expected an error for an unconfigured chain")
	}

	req = validSimRequest()
	req.ChainID = 10
	if _, err := svc.Simulate(context.Background(), req); err == nil {
		t.Error("expected an error for a zero execution target")
	}
}

func TestPriceImpactBps(t *testing.T) {
	tests := []struct {
		name     string
		expected string
		actual   string
		want     int64
	}{
		{"five_percent", "1000", "950", 500},
		{"no_impact", "1000", "1000", 0},
		{"positive_slippage_clamped", "1000", "1100", 0},
		{"zero_expected", "0", "100", 0},
		{"bad_actual", "1000", "abc", 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := priceImpactBps(tt.expected, tt.actual); got != tt.want {
				t.Errorf("priceImpactBps(%s, %s) = %d, want %d", tt.expected, tt.actual, got, tt.want)
			}
		})
	}
}
