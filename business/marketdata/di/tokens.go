// Package di contains dependency injection tokens for the marketdata context.
package di

import (
	"github.com/shivam-V8/defi-agent/business/marketdata/app"
	"github.com/shivam-V8/defi-agent/internal/di"
)

// Public service tokens - exposed to other modules
var (
	OracleService = di.NewToken[*app.OracleService]("marketdata.OracleService")
)

// Private dependency tokens - internal to the marketdata module
var (
	PriceSource = di.NewToken[app.PriceSource]("marketdata:priceSource")
	GasSource   = di.NewToken[app.GasSource]("marketdata:gasSource")
)

func GetOracleService(c di.ServiceRegistry) *app.OracleService {
	return di.GetToken(c, OracleService)
}

func GetPriceSource(c di.ServiceRegistry) app.PriceSource {
	return di.GetToken(c, PriceSource)
}

func GetGasSource(c di.ServiceRegistry) app.GasSource {
	return di.GetToken(c, GasSource)
}
