package app

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/shivam-V8/defi-agent/business/simulation/domain"
)

const (
	maxGasUsed         = 500_000
	maxPriceImpactBps  = 1000
	warnGasUsed        = 300_000
	warnPriceImpactBps = 500
)

var weiPerEther = decimal.New(1, 18)

var revertMarkers = []string{"revert", "REVERT", "execution reverted"}

// PerformGuardChecks runs the fixed safety battery against a simulation.
// A failed simulation short-circuits after the first check; otherwise
// every check runs and the report carries all of them.
func PerformGuardChecks(sim domain.SimulationResult, expectedMinReceived string, maxGasCostUSD float64) domain.GuardReport {
	report := domain.GuardReport{Passed: true}

	add := func(name string, passed bool, message string) {
		report.Checks = append(report.Checks, domain.GuardCheck{Name: name, Passed: passed, Message: message})
		if !passed {
			report.Passed = false
		}
	}

	// Check 1: the simulated transaction itself.
	if !sim.Success {
		msg := "simulated transaction failed"
		if sim.Error != "" {
			msg = "simulated transaction failed: " + sim.Error
		}
		add("Transaction Success", false, msg)
		return report
	}
	add("Transaction Success", true, "transaction executed successfully")

	// Check 2: output amount.
	actualOut, okActual := new(big.Int).SetString(sim.ActualOut, 10)
	minReceived, okMin := new(big.Int).SetString(expectedMinReceived, 10)
	switch {
	case !okActual || !okMin:
		add("Output Amount Check", false,
			fmt.Sprintf("unparseable amounts: actualOut=%q minReceived=%q", sim.ActualOut, expectedMinReceived))
	case actualOut.Cmp(minReceived) < 0:
		add("Output Amount Check", false,
			fmt.Sprintf("actual output %s below minimum received %s", actualOut, minReceived))
	default:
		add("Output Amount Check", true,
			fmt.Sprintf("actual output %s meets minimum %s", actualOut, minReceived))
	}

	// Check 3: gas usage ceiling.
	add("Gas Usage Check", sim.GasUsed <= maxGasUsed,
		fmt.Sprintf("gas used %d (limit %d)", sim.GasUsed, maxGasUsed))

	// Check 4: gas cost budget.
	gasCost := gasCostNative(sim)
	maxCost := decimal.NewFromFloat(maxGasCostUSD)
	add("Gas Cost Check", gasCost.LessThanOrEqual(maxCost),
		fmt.Sprintf("gas cost %s (budget %s)", gasCost.StringFixed(6), maxCost.StringFixed(2)))

	// Check 5: revert strings anywhere in the trace.
	revert := traceRevert(sim.Trace)
	if revert == "" {
		add("No Unexpected Reverts", true, "no revert strings in trace")
	} else {
		add("No Unexpected Reverts", false, "trace contains revert: "+revert)
	}

	// Check 6: price impact ceiling.
	add("Price Impact Check", sim.PriceImpactBps <= maxPriceImpactBps,
		fmt.Sprintf("price impact %d bps (limit %d bps)", sim.PriceImpactBps, maxPriceImpactBps))

	// Warnings never gate the result.
	if sim.PriceImpactBps > warnPriceImpactBps {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("high price impact: %d bps", sim.PriceImpactBps))
	}
	if sim.GasUsed > warnGasUsed {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("high gas usage: %d", sim.GasUsed))
	}
	if maxCost.IsPositive() && gasCost.GreaterThan(maxCost.Mul(decimal.NewFromFloat(0.8))) {
		report.Warnings = append(report.Warnings,
			fmt.Sprintf("gas cost %s exceeds 80%% of budget %s", gasCost.StringFixed(6), maxCost.StringFixed(2)))
	}

	return report
}

func gasCostNative(sim domain.SimulationResult) decimal.Decimal {
	if sim.GasPrice == nil {
		return decimal.Zero
	}
	used := decimal.NewFromUint64(sim.GasUsed)
	price := decimal.NewFromBigInt(sim.GasPrice, 0)
	return used.Mul(price).Div(weiPerEther)
}

func traceRevert(trace []domain.TraceStep) string {
	for _, step := range trace {
		for _, marker := range revertMarkers {
			if strings.Contains(step.Error, marker) {
				return step.Error
			}
		}
	}
	return ""
}
