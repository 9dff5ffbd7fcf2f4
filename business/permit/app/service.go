package app

import (
	"context"
	"fmt"
	"math/big"
	"regexp"
	"sync/atomic"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/signer/core/apitypes"

	"github.com/shivam-V8/defi-agent/business/permit/domain"
	"github.com/shivam-V8/defi-agent/business/permit/infra/eip2612"
	"github.com/shivam-V8/defi-agent/business/permit/infra/permit2"
	"github.com/shivam-V8/defi-agent/internal/apperror"
	"github.com/shivam-V8/defi-agent/internal/logger"
)

const (
	minTTLSeconds = 1
	maxTTLSeconds = 86400
)

var (
	addressPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)
	integerPattern = regexp.MustCompile(`^[0-9]+$`)

	// 1e24 smallest units; beyond this the amount is advisory-flagged.
	veryLargeAmount = new(big.Int).Exp(big.NewInt(10), big.NewInt(24), nil)
)

// HealthStatus is the aggregated builder availability report.
type HealthStatus struct {
	Status   string          `json:"status"` // healthy, degraded, unhealthy
	Builders map[string]bool `json:"builders"`
}

// Service is the unified facade over both permit builders.
type Service struct {
	permit2 *permit2.Builder
	eip2612 *eip2612.Builder
	ttl     atomic.Int64
	log     logger.LoggerInterface
}

// NewService creates the permit facade with the given default TTL in seconds.
func NewService(p2 *permit2.Builder, e2612 *eip2612.Builder, ttlSeconds int64, log logger.LoggerInterface) *Service {
	s := &Service{permit2: p2, eip2612: e2612, log: log}
	if ttlSeconds < minTTLSeconds || ttlSeconds > maxTTLSeconds {
		ttlSeconds = 3600
	}
	s.ttl.Store(ttlSeconds)
	return s
}

// TTL returns the current default TTL in seconds.
func (s *Service) TTL() int64 {
	return s.ttl.Load()
}

// UpdateTTL replaces the default TTL. Values outside [1, 86400] are rejected.
func (s *Service) UpdateTTL(seconds int64) error {
	if seconds < minTTLSeconds || seconds > maxTTLSeconds {
		return apperror.New(apperror.CodeInvalidTTL,
			apperror.WithContext(fmt.Sprintf("ttl must be in [%d, %d] seconds, got %d", minTTLSeconds, maxTTLSeconds, seconds)))
	}
	s.ttl.Store(seconds)
	return nil
}

// BuildPermit dispatches to the builder for the requested type and returns
// a complete signature request.
func (s *Service) BuildPermit(ctx context.Context, req domain.PermitRequest) (*domain.PermitResponse, error) {
	now := time.Now()
	ttl := s.effectiveTTL(req)
	if req.Deadline == 0 {
		req.Deadline = now.Unix() + ttl
	}

	if errs := s.validateFields(req, now, ttl); len(errs) > 0 {
		return nil, apperror.New(apperror.CodeInvalidPermitData,
			apperror.WithContext(errs[0]))
	}

	var (
		td  apitypes.TypedData
		err error
	)
	switch req.Type {
	case domain.PermitTypePermit2:
		td, err = s.permit2.Build(req)
	case domain.PermitTypeEIP2612:
		td, err = s.eip2612.Build(req)
	default:
		return nil, apperror.New(apperror.CodeUnsupportedPermitType,
			apperror.WithContext(fmt.Sprintf("Unsupported permit type: %s", req.Type)))
	}
	if err != nil {
		return nil, err
	}

	hash, _, err := apitypes.TypedDataAndHash(td)
	if err != nil {
		return nil, apperror.New(apperror.CodePermitBuildFailed,
			apperror.WithContext("hashing typed data"),
			apperror.WithCause(err))
	}

	resp := &domain.PermitResponse{
		Type:        req.Type,
		TypedData:   td,
		MessageHash: hexutil.Encode(hash),
		Nonce:       req.Nonce,
		Deadline:    req.Deadline,
		TTL:         ttl,
		ExpiresAt:   time.Unix(req.Deadline, 0).UTC(),
		CreatedAt:   now.UTC(),
		Warnings:    s.advisoryWarnings(req, now),
	}

	s.log.Debug(ctx, "permit built",
		"type", req.Type,
		"chain_id", req.ChainID,
		"token", req.Token,
		"deadline", req.Deadline,
	)

	return resp, nil
}

// ValidatePermit runs field validation plus the advisory warnings without
// building anything. Warnings never fail the result.
func (s *Service) ValidatePermit(req domain.PermitRequest) domain.ValidationResult {
	now := time.Now()
	ttl := s.effectiveTTL(req)
	if req.Deadline == 0 {
		req.Deadline = now.Unix() + ttl
	}

	errs := s.validateFields(req, now, ttl)
	if !req.Type.Valid() {
		errs = append(errs, fmt.Sprintf("Unsupported permit type: %s", req.Type))
	}

	return domain.ValidationResult{
		Valid:    len(errs) == 0,
		Errors:   errs,
		Warnings: s.advisoryWarnings(req, now),
	}
}

// RecommendedPermitType prefers the token's own permit extension when its
// EIP-712 domain is verified, falling back to Permit2 otherwise.
func (s *Service) RecommendedPermitType(chainID uint64, token string) domain.PermitType {
	if s.eip2612.Supported(chainID, token) {
		return domain.PermitTypeEIP2612
	}
	return domain.PermitTypePermit2
}

// HealthCheck exercises both builders with placeholder data. Both good is
// healthy, one good is degraded, none is unhealthy.
func (s *Service) HealthCheck(ctx context.Context) HealthStatus {
	probe := domain.PermitRequest{
		ChainID:  1,
		Token:    "0x0000000000000000000000000000000000000001",
		Owner:    "0x0000000000000000000000000000000000000002",
		Spender:  "0x0000000000000000000000000000000000000003",
		Amount:   "1",
		Nonce:    "0",
		Deadline: time.Now().Unix() + 60,
	}

	builders := map[string]bool{}

	_, err := s.permit2.Build(probe)
	builders[string(domain.PermitTypePermit2)] = err == nil

	_, err = s.eip2612.Build(probe)
	builders[string(domain.PermitTypeEIP2612)] = err == nil

	healthy := 0
	for _, ok := range builders {
		if ok {
			healthy++
		}
	}

	status := "unhealthy"
	switch healthy {
	case len(builders):
		status = "healthy"
	case 0:
	default:
		status = "degraded"
	}

	return HealthStatus{Status: status, Builders: builders}
}

func (s *Service) effectiveTTL(req domain.PermitRequest) int64 {
	ttl := req.TTLSeconds
	if ttl < minTTLSeconds || ttl > maxTTLSeconds {
		ttl = s.ttl.Load()
	}
	return ttl
}

func (s *Service) validateFields(req domain.PermitRequest, now time.Time, ttl int64) []string {
	var errs []string

	for name, addr := range map[string]string{
		"token":   req.Token,
		"owner":   req.Owner,
		"spender": req.Spender,
	} {
		if !addressPattern.MatchString(addr) {
			errs = append(errs, fmt.Sprintf("invalid %s address: %s", name, addr))
		}
	}

	if !integerPattern.MatchString(req.Amount) {
		errs = append(errs, fmt.Sprintf("amount must be a positive integer string: %s", req.Amount))
	} else if amt, ok := new(big.Int).SetString(req.Amount, 10); !ok || amt.Sign() <= 0 {
		errs = append(errs, fmt.Sprintf("amount must be positive: %s", req.Amount))
	}

	if !integerPattern.MatchString(req.Nonce) {
		errs = append(errs, fmt.Sprintf("nonce must be a non-negative integer string: %s", req.Nonce))
	}

	if req.Deadline <= now.Unix() {
		errs = append(errs, fmt.Sprintf("deadline must be in the future: %d", req.Deadline))
	} else if req.Deadline > now.Unix()+ttl {
		errs = append(errs, fmt.Sprintf("deadline exceeds maximum ttl of %d seconds", ttl))
	}

	return errs
}

func (s *Service) advisoryWarnings(req domain.PermitRequest, now time.Time) []string {
	var warnings []string

	if amt, ok := new(big.Int).SetString(req.Amount, 10); ok && amt.Cmp(veryLargeAmount) > 0 {
		warnings = append(warnings, "very large amount: exceeds 1e24 smallest units")
	}
	if req.Deadline > now.Add(24*time.Hour).Unix() {
		warnings = append(warnings, "far future deadline: more than 24 hours from now")
	}

	return warnings
}
