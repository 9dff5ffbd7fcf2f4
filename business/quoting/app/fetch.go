package app

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/shivam-V8/defi-agent/business/quoting/domain"
	"github.com/shivam-V8/defi-agent/internal/apperror"
	"github.com/shivam-V8/defi-agent/internal/asset"
)

// ValidateRequest rejects malformed quote requests before any I/O.
func ValidateRequest(req domain.QuoteRequest, clientChainID uint64) error {
	if req.TokenIn == "" || req.TokenOut == "" {
		return apperror.Validation(apperror.CodeRequiredField, "tokenIn and tokenOut are required")
	}
	if strings.EqualFold(req.TokenIn, req.TokenOut) {
		return apperror.Validation(apperror.CodeInvalidInput, "tokenIn and tokenOut must be distinct")
	}
	for _, token := range []string{req.TokenIn, req.TokenOut} {
		if !asset.IsNativeAddress(token) && !common.IsHexAddress(token) {
			return apperror.Validation(apperror.CodeInvalidInput,
				fmt.Sprintf("invalid token address: %s", token))
		}
	}

	amount, ok := new(big.Int).SetString(req.AmountIn, 10)
	if !ok || amount.Sign() <= 0 {
		return apperror.Validation(apperror.CodeInvalidInput,
			fmt.Sprintf("amountIn must be a positive integer string, got %q", req.AmountIn))
	}

	if req.SlippageTolerance < 0 || req.SlippageTolerance > 50 {
		return apperror.Validation(apperror.CodeInvalidInput,
			fmt.Sprintf("slippageTolerance must be in [0, 50], got %v", req.SlippageTolerance))
	}

	if req.ChainID != clientChainID {
		return apperror.Validation(apperror.CodeInvalidInput,
			fmt.Sprintf("request chain %d does not match client chain %d", req.ChainID, clientChainID))
	}

	return nil
}

// FetchWithRetry runs fetch up to maxRetries+1 times with exponential
// backoff (2^attempt seconds). A definitive outcome (quote or no-quote)
// returns immediately; only infrastructure failures are retried, and the
// retry budget is exhausted before one is surfaced.
func FetchWithRetry(ctx context.Context, maxRetries int, fetch func(context.Context) domain.FetchOutcome) domain.FetchOutcome {
	var last domain.FetchOutcome

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(1<<uint(attempt)) * time.Second
			select {
			case <-ctx.Done():
				return domain.FetchFailed(fmt.Sprintf("fetch aborted: %v", ctx.Err()))
			case <-time.After(delay):
			}
		}

		last = fetch(ctx)
		if last.Kind != domain.OutcomeFetchFailed {
			return last
		}
	}

	return last
}

// Confidence computes the venue confidence heuristic: a venue-specific base
// reduced for a missing gas estimate (-0.1), price impact over 500 bps
// (-0.2), and dust-size trades (-0.1); floored at 0.1.
func Confidence(base float64, hasGasEstimate bool, impactBps int64, notionalUSD, dustThresholdUSD float64) float64 {
	confidence := base
	if !hasGasEstimate {
		confidence -= 0.1
	}
	if impactBps > 500 {
		confidence -= 0.2
	}
	if dustThresholdUSD > 0 && notionalUSD < dustThresholdUSD {
		confidence -= 0.1
	}
	if confidence < 0.1 {
		confidence = 0.1
	}
	return confidence
}
