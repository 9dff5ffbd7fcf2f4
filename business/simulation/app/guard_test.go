package app

import (
	"math/big"
	"strings"
	"testing"

	"github.com/shivam-V8/defi-agent/business/simulation/domain"
)

func passingSim() domain.SimulationResult {
	return domain.SimulationResult{
		Success:        true,
		GasUsed:        180_000,
		GasPrice:       big.NewInt(20_000_000_000), // 20 gwei
		ActualOut:      "1000000000000000000",
		PriceImpactBps: 40,
	}
}

func checkByName(t *testing.T, report domain.GuardReport, name string) domain.GuardCheck {
	t.Helper()
	for _, c := range report.Checks {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("check %q not in report", name)
	return domain.GuardCheck{}
}

func TestPerformGuardChecks_AllPass(t *testing.T) {
	report := PerformGuardChecks(passingSim(), "990000000000000000", 50)

	if !report.Passed {
		t.Fatalf("Passed = false, checks: %+v", report.Checks)
	}
	if len(report.Checks) != 6 {
		t.Errorf("len(Checks) = %d, want the full battery of 6", len(report.Checks))
	}
	if len(report.Warnings) != 0 {
		t.Errorf("Warnings = %v, want none", report.Warnings)
	}
}

func TestPerformGuardChecks_FailedSimulationShortCircuits(t *testing.T) {
	sim := passingSim()
	sim.Success = false
	sim.Error = "execution reverted: STF"

	report := PerformGuardChecks(sim, "990000000000000000", 50)

	if report.Passed {
		t.Error("Passed = true for a failed simulation")
	}
	if len(report.Checks) != 1 {
		t.Fatalf("len(Checks) = %d, want 1 after short circuit", len(report.Checks))
	}
	if !strings.Contains(report.Checks[0].Message, "execution reverted: STF") {
		t.Errorf("message %q must carry the simulator error", report.Checks[0].Message)
	}
}

func TestPerformGuardChecks_FailureModes(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*domain.SimulationResult)
		minReceived string
		failedCheck string
	}{
		{
			name:        "output_below_minimum",
			mutate:      func(s *domain.SimulationResult) { s.ActualOut = "500000000000000000" },
			minReceived: "990000000000000000",
			failedCheck: "Output Amount Check",
		},
		{
			name:        "unparseable_output",
			mutate:      func(s *domain.SimulationResult) { s.ActualOut = "0xdeadbeef" },
			minReceived: "990000000000000000",
			failedCheck: "Output Amount Check",
		},
		{
			name:        "gas_over_limit",
			mutate:      func(s *domain.SimulationResult) { s.GasUsed = 600_000 },
			minReceived: "990000000000000000",
			failedCheck: "Gas Usage Check",
		},
		{
			name: "revert_in_trace",
			mutate: func(s *domain.SimulationResult) {
				s.Trace = []domain.TraceStep{{Error: "execution reverted: TRANSFER_FROM_FAILED"}}
			},
			minReceived: "990000000000000000",
			failedCheck: "No Unexpected Reverts",
		},
		{
			name:        "price_impact_over_limit",
			mutate:      func(s *domain.SimulationResult) { s.PriceImpactBps = 1500 },
			minReceived: "990000000000000000",
			failedCheck: "Price Impact Check",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sim := passingSim()
			tt.mutate(&sim)

			report := PerformGuardChecks(sim, tt.minReceived, 50)
			if report.Passed {
				t.Error("Passed = true, want gate failure")
			}
			if c := checkByName(t, report, tt.failedCheck); c.Passed {
				t.Errorf("check %q passed, want failure: %s", tt.failedCheck, c.Message)
			}
		})
	}
}

func TestPerformGuardChecks_GasCostBudget(t *testing.T) {
	sim := passingSim()
	sim.GasUsed = 500_000
	sim.GasPrice = big.NewInt(100_000_000_000) // 0.05 native units total

	report := PerformGuardChecks(sim, "990000000000000000", 0.01)
	if c := checkByName(t, report, "Gas Cost Check"); c.Passed {
		t.Errorf("gas cost check passed with cost over budget: %s", c.Message)
	}
}

func TestPerformGuardChecks_Warnings(t *testing.T) {
	sim := passingSim()
	sim.PriceImpactBps = 600
	sim.GasUsed = 350_000
	sim.GasPrice = big.NewInt(20_000_000_000) // 0.007 native units, over 80% of 0.008

	report := PerformGuardChecks(sim, "990000000000000000", 0.008)

	if !report.Passed {
		t.Fatalf("Passed = false, warnings must not gate: %+v", report.Checks)
	}
	if len(report.Warnings) != 3 {
		t.Fatalf("Warnings = %v, want impact, gas usage and gas cost advisories", report.Warnings)
	}
	if !strings.Contains(report.Warnings[0], "high price impact") {
		t.Errorf("unexpected warning %q", report.Warnings[0])
	}
	if !strings.Contains(report.Warnings[1], "high gas usage") {
		t.Errorf("unexpected warning %q", report.Warnings[1])
	}
	if !strings.Contains(report.Warnings[2], "80%") {
		t.Errorf("unexpected warning %q", report.Warnings[2])
	}
}
