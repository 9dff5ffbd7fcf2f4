// Package di contains dependency injection tokens for the policy context.
package di

import (
	"github.com/shivam-V8/defi-agent/business/policy/app"
	"github.com/shivam-V8/defi-agent/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ConfigStore = di.NewToken[*app.ConfigStore]("policy.ConfigStore")
	Engine      = di.NewToken[*app.Engine]("policy.Engine")
	Scorer      = di.NewToken[*app.Scorer]("policy.Scorer")
)

func GetConfigStore(c di.ServiceRegistry) *app.ConfigStore {
	return di.GetToken(c, ConfigStore)
}

func GetEngine(c di.ServiceRegistry) *app.Engine {
	return di.GetToken(c, Engine)
}

func GetScorer(c di.ServiceRegistry) *app.Scorer {
	return di.GetToken(c, Scorer)
}
