package app

import (
	"context"

	"github.com/shivam-V8/defi-agent/business/simulation/domain"
)

// Simulator runs a call against an execution environment without
// submitting it.
type Simulator interface {
	Simulate(ctx context.Context, call domain.SimulateCall) (domain.SimulationResult, error)
	HealthCheck(ctx context.Context) error
}
