// Package di contains dependency injection tokens for the permit context.
package di

import (
	"github.com/shivam-V8/defi-agent/business/permit/app"
	"github.com/shivam-V8/defi-agent/internal/di"
)

// Public service tokens - exposed to other modules
var (
	Service = di.NewToken[*app.Service]("permit.Service")
)

func GetService(c di.ServiceRegistry) *app.Service {
	return di.GetToken(c, Service)
}
