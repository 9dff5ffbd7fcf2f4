package app

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	marketapp "github.com/shivam-V8/defi-agent/business/marketdata/app"
	"github.com/shivam-V8/defi-agent/business/quoting/domain"
	"github.com/shivam-V8/defi-agent/internal/apperror"
	"github.com/shivam-V8/defi-agent/internal/asset"
	"github.com/shivam-V8/defi-agent/internal/logger"
)

// AggregationResult carries the merged outcome of one fan-out.
type AggregationResult struct {
	Quotes   []domain.NormalizedQuote
	Errors   []domain.FetchError
	Duration time.Duration
}

// Aggregator fans out to every enabled quote client for a chain, isolating
// each client so one venue's failure cannot abort the others.
type Aggregator struct {
	clients map[uint64][]QuoteClient
	oracle  *marketapp.OracleService
	log     logger.LoggerInterface
	tracer  trace.Tracer
}

// NewAggregator creates an aggregator over the registered clients.
func NewAggregator(clients []QuoteClient, oracle *marketapp.OracleService, log logger.LoggerInterface) *Aggregator {
	byChain := make(map[uint64][]QuoteClient)
	for _, c := range clients {
		byChain[c.ChainID()] = append(byChain[c.ChainID()], c)
	}
	return &Aggregator{
		clients: byChain,
		oracle:  oracle,
		log:     log,
		tracer:  otel.Tracer("quoting.aggregator"),
	}
}

// Aggregate fetches and normalizes quotes from every client for the
// requested chain concurrently. Oracle data is fetched once up front and
// shared across all normalizations. The aggregation always completes once
// every client has produced a quote, "no quote", or exhausted its retries.
func (a *Aggregator) Aggregate(ctx context.Context, req domain.QuoteRequest) (*AggregationResult, error) {
	clients, ok := a.clients[req.ChainID]
	if !ok || len(clients) == 0 {
		return nil, apperror.New(apperror.CodeUnsupportedChain,
			apperror.WithContext(fmt.Sprintf("no quote clients for chain %d", req.ChainID)))
	}

	ctx, span := a.tracer.Start(ctx, "quoting.aggregate",
		trace.WithAttributes(
			attribute.Int64("chain_id", int64(req.ChainID)),
			attribute.Int("clients", len(clients)),
		),
	)
	defer span.End()

	start := time.Now()

	// Oracle data is awaited before any normalization begins.
	prices := a.oracle.TokenPricesUSD(ctx, req.ChainID,
		[]string{req.TokenIn, req.TokenOut, asset.NativePseudoAddress})
	gas := a.oracle.GasPrice(ctx, req.ChainID)

	type fanoutResult struct {
		quote *domain.NormalizedQuote
		err   *domain.FetchError
	}

	results := make(chan fanoutResult, len(clients))
	var wg sync.WaitGroup

	for _, client := range clients {
		wg.Add(1)
		go func(client QuoteClient) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					results <- fanoutResult{err: &domain.FetchError{
						Router:     client.Router(),
						RouterType: client.RouterType(),
						Message:    fmt.Sprintf("client panicked: %v", r),
						Timestamp:  time.Now(),
					}}
				}
			}()

			fetchErr := func(msg string) fanoutResult {
				return fanoutResult{err: &domain.FetchError{
					Router:     client.Router(),
					RouterType: client.RouterType(),
					Message:    msg,
					Timestamp:  time.Now(),
				}}
			}

			outcome, err := client.FetchQuote(ctx, req)
			if err != nil {
				results <- fetchErr(err.Error())
				return
			}

			switch outcome.Kind {
			case domain.OutcomeNoQuote:
				results <- fetchErr("no quote available: " + outcome.Reason)
			case domain.OutcomeFetchFailed:
				results <- fetchErr(outcome.Reason)
			case domain.OutcomeQuote:
				quote, err := client.Normalize(outcome.Raw, prices, gas)
				if err != nil {
					results <- fetchErr("normalization failed: " + err.Error())
					return
				}
				results <- fanoutResult{quote: &quote}
			}
		}(client)
	}

	wg.Wait()
	close(results)

	result := &AggregationResult{
		Quotes: make([]domain.NormalizedQuote, 0, len(clients)),
		Errors: make([]domain.FetchError, 0),
	}
	for r := range results {
		if r.quote != nil {
			result.Quotes = append(result.Quotes, *r.quote)
		}
		if r.err != nil {
			result.Errors = append(result.Errors, *r.err)
		}
	}

	// Cheap pre-ranking by amountOut - gasUSD; the scorer holds final
	// ranking authority.
	sort.SliceStable(result.Quotes, func(i, j int) bool {
		return preRankValue(result.Quotes[i]).GreaterThan(preRankValue(result.Quotes[j]))
	})

	result.Duration = time.Since(start)

	a.log.Info(ctx, "aggregation complete",
		"chain_id", req.ChainID,
		"quotes", len(result.Quotes),
		"errors", len(result.Errors),
		"duration_ms", result.Duration.Milliseconds(),
	)

	return result, nil
}

// HealthCheck probes every client in parallel and returns a per-client map
// keyed "ROUTER_TYPE@chainID". For operational monitoring only.
func (a *Aggregator) HealthCheck(ctx context.Context) map[string]bool {
	var (
		mu     sync.Mutex
		wg     sync.WaitGroup
		health = make(map[string]bool)
	)

	for _, clients := range a.clients {
		for _, client := range clients {
			wg.Add(1)
			go func(client QuoteClient) {
				defer wg.Done()
				err := client.HealthCheck(ctx)

				mu.Lock()
				health[fmt.Sprintf("%s@%d", client.RouterType(), client.ChainID())] = err == nil
				mu.Unlock()
			}(client)
		}
	}

	wg.Wait()
	return health
}

// Chains lists the chain IDs with at least one registered client.
func (a *Aggregator) Chains() []uint64 {
	ids := make([]uint64, 0, len(a.clients))
	for id := range a.clients {
		ids = append(ids, id)
	}
	return ids
}

func preRankValue(q domain.NormalizedQuote) decimal.Decimal {
	out, err := decimal.NewFromString(q.AmountOut)
	if err != nil {
		return decimal.Zero
	}
	gas, err := decimal.NewFromString(q.GasUSD)
	if err != nil {
		return out
	}
	return out.Sub(gas)
}
