// Package di contains dependency injection tokens for the simulation context.
package di

import (
	"github.com/shivam-V8/defi-agent/business/simulation/app"
	"github.com/shivam-V8/defi-agent/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.Service]("simulation.Service")
)

// Private dependency tokens - internal to the simulation module
var (
	Simulator = di.NewToken[app.Simulator]("simulation:simulator")
)

func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}

func GetSimulator(c di.ServiceRegistry) app.Simulator {
	return di.GetToken(c, Simulator)
}
