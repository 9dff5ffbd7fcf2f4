// Package di contains dependency injection tokens for the quoting context.
package di

import (
	"github.com/shivam-V8/defi-agent/business/quoting/app"
	"github.com/shivam-V8/defi-agent/internal/di"
)

// Public service tokens - exposed to other modules
var (
	RouteService = di.NewToken[*app.RouteService]("quoting.RouteService")
	Aggregator   = di.NewToken[*app.Aggregator]("quoting.Aggregator")
)

// Private dependency tokens - internal to the quoting module
var (
	QuoteClients = di.NewToken[[]app.QuoteClient]("quoting:quoteClients")
)

func GetRouteService(c di.ServiceRegistry) *app.RouteService {
	return di.GetToken(c, RouteService)
}

func GetAggregator(c di.ServiceRegistry) *app.Aggregator {
	return di.GetToken(c, Aggregator)
}

func GetQuoteClients(c di.ServiceRegistry) []app.QuoteClient {
	return di.GetToken(c, QuoteClients)
}
