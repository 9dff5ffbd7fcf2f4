package app

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	policyapp "github.com/shivam-V8/defi-agent/business/policy/app"
	policydomain "github.com/shivam-V8/defi-agent/business/policy/domain"
	"github.com/shivam-V8/defi-agent/business/quoting/domain"
	"github.com/shivam-V8/defi-agent/internal/apperror"
	"github.com/shivam-V8/defi-agent/internal/logger"
	"github.com/shivam-V8/defi-agent/internal/statstore"
)

// BestRouteResponse is the full answer to a route discovery request: the
// winning route (if any), every rejected candidate with its reason, and the
// policy evaluation that produced the ranking.
type BestRouteResponse struct {
	BestRoute        *RouteCandidate                      `json:"bestRoute,omitempty"`
	RejectedRoutes   []RejectedRoute                      `json:"rejectedRoutes"`
	TotalRoutes      int                                  `json:"totalRoutes"`
	ProcessingTimeMs int64                                `json:"processingTimeMs"`
	PolicyEvaluation *policydomain.PolicyEvaluationResult `json:"policyEvaluation,omitempty"`
	FetchErrors      []domain.FetchError                  `json:"fetchErrors,omitempty"`
}

// RouteCandidate is a normalized quote enriched with execution parameters.
type RouteCandidate struct {
	domain.NormalizedQuote
	MinReceived string `json:"minReceived"`
	NetUSD      string `json:"netUsd"`
	Score       int    `json:"score"`
}

// RejectedRoute surfaces why a candidate lost.
type RejectedRoute struct {
	Router     string            `json:"router"`
	RouterType domain.RouterType `json:"routerType"`
	AmountOut  string            `json:"amountOut"`
	Reason     string            `json:"reason"`
}

// RouteService orchestrates aggregation and policy scoring into a single
// best-route answer, recording each request for later summarization.
type RouteService struct {
	agg    *Aggregator
	scorer *policyapp.Scorer
	store  *statstore.Store
	log    logger.LoggerInterface
}

// NewRouteService wires the route discovery pipeline. store may be nil when
// request recording is disabled.
func NewRouteService(agg *Aggregator, scorer *policyapp.Scorer, store *statstore.Store, log logger.LoggerInterface) *RouteService {
	return &RouteService{agg: agg, scorer: scorer, store: store, log: log}
}

// BestRoute runs the full pipeline: fan-out aggregation, policy scoring,
// and minimum-received calculation for the winner. A response with a nil
// BestRoute and a populated RejectedRoutes list is a valid outcome; an
// error means the request itself could not be served.
func (s *RouteService) BestRoute(ctx context.Context, req domain.QuoteRequest) (*BestRouteResponse, error) {
	start := time.Now()

	result, err := s.agg.Aggregate(ctx, req)
	if err != nil {
		return nil, err
	}

	scoring := s.scorer.ScoreQuotes(result.Quotes, policydomain.EvaluationContext{
		ChainID:   req.ChainID,
		Timestamp: time.Now(),
	})

	resp := &BestRouteResponse{
		RejectedRoutes: make([]RejectedRoute, 0, len(scoring.Rejected)),
		TotalRoutes:    len(result.Quotes),
		FetchErrors:    result.Errors,
	}

	for _, rej := range scoring.Rejected {
		resp.RejectedRoutes = append(resp.RejectedRoutes, RejectedRoute{
			Router:     rej.Quote.Router,
			RouterType: rej.Quote.RouterType,
			AmountOut:  rej.Quote.AmountOut,
			Reason:     rej.Reason,
		})
	}

	if scoring.BestQuote != nil {
		best := scoring.BestQuote
		minReceived, err := MinReceived(best.Quote.AmountOut, req.SlippageTolerance)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInvalidQuote, "computing minimum received")
		}
		resp.BestRoute = &RouteCandidate{
			NormalizedQuote: best.Quote,
			MinReceived:     minReceived,
			NetUSD:          best.NetUSD.StringFixed(6),
			Score:           best.Score,
		}
		eval := policydomain.PolicyEvaluationResult{
			Passed:     best.Passed,
			Violations: best.Violations,
			Warnings:   best.Warnings,
			Score:      best.Score,
			NetUSD:     best.NetUSD.StringFixed(6),
		}
		resp.PolicyEvaluation = &eval
	}

	resp.ProcessingTimeMs = time.Since(start).Milliseconds()

	s.record(ctx, req, resp)

	s.log.Info(ctx, "best route computed",
		"chain_id", req.ChainID,
		"total_routes", resp.TotalRoutes,
		"rejected", len(resp.RejectedRoutes),
		"has_best", resp.BestRoute != nil,
		"processing_ms", resp.ProcessingTimeMs,
	)

	return resp, nil
}

// Stats summarizes recorded route requests for a chain.
func (s *RouteService) Stats(ctx context.Context, chainID uint64) (statstore.Summary, error) {
	if s.store == nil {
		return statstore.Summary{}, apperror.New(apperror.CodeStatsStoreFailed,
			apperror.WithContext("request recording is disabled"))
	}
	return s.store.Summarize(ctx, chainID)
}

// HealthCheck reports per-client venue health.
func (s *RouteService) HealthCheck(ctx context.Context) map[string]bool {
	return s.agg.HealthCheck(ctx)
}

func (s *RouteService) record(ctx context.Context, req domain.QuoteRequest, resp *BestRouteResponse) {
	if s.store == nil {
		return
	}

	rec := statstore.RequestRecord{
		ChainID:   req.ChainID,
		TokenIn:   req.TokenIn,
		TokenOut:  req.TokenOut,
		Success:   resp.BestRoute != nil,
		LatencyMS: resp.ProcessingTimeMs,
		CreatedAt: time.Now(),
	}
	if resp.BestRoute != nil {
		rec.Router = resp.BestRoute.Router
		rec.NetUSD = resp.BestRoute.NetUSD
	}

	if err := s.store.Record(ctx, rec); err != nil {
		s.log.Warn(ctx, "failed to record route request", "error", err)
	}
}

// MinReceived applies the slippage tolerance to the quoted output amount,
// flooring to an integer amount of the token's smallest unit.
func MinReceived(amountOut string, slippagePct float64) (string, error) {
	out, err := decimal.NewFromString(amountOut)
	if err != nil {
		return "", apperror.New(apperror.CodeInvalidQuote,
			apperror.WithContext("amountOut is not a valid integer"),
			apperror.WithCause(err))
	}
	factor := decimal.NewFromInt(1).Sub(decimal.NewFromFloat(slippagePct).Div(decimal.NewFromInt(100)))
	min := out.Mul(factor).Floor()
	if min.IsNegative() {
		min = decimal.Zero
	}
	return min.String(), nil
}
