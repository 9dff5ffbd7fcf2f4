package app

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/shivam-V8/defi-agent/business/permit/domain"
	"github.com/shivam-V8/defi-agent/business/permit/infra/eip2612"
	"github.com/shivam-V8/defi-agent/business/permit/infra/permit2"
	"github.com/shivam-V8/defi-agent/internal/logger"
)

const (
	testUSDC    = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
	testOwner   = "0x1111111111111111111111111111111111111111"
	testSpender = "0x2222222222222222222222222222222222222222"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	log := logger.New(io.Discard, logger.LevelError, "permit-test", nil)
	return NewService(permit2.NewBuilder(nil), eip2612.NewBuilder(), 3600, log)
}

func validPermitRequest(typ domain.PermitType) domain.PermitRequest {
	return domain.PermitRequest{
		Type:    typ,
		ChainID: 1,
		Token:   testUSDC,
		Owner:   testOwner,
		Spender: testSpender,
		Amount:  "1000000000",
		Nonce:   "0",
	}
}

func TestBuildPermit_Deterministic(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for _, typ := range []domain.PermitType{domain.PermitTypePermit2, domain.PermitTypeEIP2612} {
		t.Run(string(typ), func(t *testing.T) {
			req := validPermitRequest(typ)
			req.Deadline = time.Now().Add(30 * time.Minute).Unix()

			first, err := svc.BuildPermit(ctx, req)
			if err != nil {
				t.Fatalf("BuildPermit() error = %v", err)
			}
			second, err := svc.BuildPermit(ctx, req)
			if err != nil {
				t.Fatalf("BuildPermit() error = %v", err)
			}

			if first.MessageHash == "" || !strings.HasPrefix(first.MessageHash, "0x") {
				t.Errorf("MessageHash = %q, want 0x-prefixed hash", first.MessageHash)
			}
			if first.MessageHash != second.MessageHash {
				t.Errorf("same request must hash identically: %q vs %q", first.MessageHash, second.MessageHash)
			}

			// Any field change must produce a different hash.
			changed := req
			changed.Amount = "2000000000"
			third, err := svc.BuildPermit(ctx, changed)
			if err != nil {
				t.Fatalf("BuildPermit() error = %v", err)
			}
			if third.MessageHash == first.MessageHash {
				t.Error("changing the amount must change the hash")
			}
		})
	}
}

func TestBuildPermit_DerivesDeadline(t *testing.T) {
	svc := newTestService(t)

	before := time.Now().Unix()
	resp, err := svc.BuildPermit(context.Background(), validPermitRequest(domain.PermitTypePermit2))
	if err != nil {
		t.Fatalf("BuildPermit() error = %v", err)
	}
	after := time.Now().Unix()

	if resp.Deadline < before+3600 || resp.Deadline > after+3600 {
		t.Errorf("Deadline = %d, want now+3600", resp.Deadline)
	}
	if resp.TTL != 3600 {
		t.Errorf("TTL = %d, want 3600", resp.TTL)
	}
}

func TestBuildPermit_Errors(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name   string
		mutate func(*domain.PermitRequest)
	}{
		{"unsupported_type", func(r *domain.PermitRequest) { r.Type = "PERMIT3" }},
		{"bad_token", func(r *domain.PermitRequest) { r.Token = "not-an-address" }},
		{"bad_owner", func(r *domain.PermitRequest) { r.Owner = "0x123" }},
		{"zero_amount", func(r *domain.PermitRequest) { r.Amount = "0" }},
		{"decimal_amount", func(r *domain.PermitRequest) { r.Amount = "1.5" }},
		{"negative_nonce", func(r *domain.PermitRequest) { r.Nonce = "-1" }},
		{"past_deadline", func(r *domain.PermitRequest) { r.Deadline = time.Now().Add(-time.Minute).Unix() }},
		{"deadline_beyond_ttl", func(r *domain.PermitRequest) { r.Deadline = time.Now().Add(2 * time.Hour).Unix() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validPermitRequest(domain.PermitTypePermit2)
			tt.mutate(&req)
			if _, err := svc.BuildPermit(ctx, req); err == nil {
				t.Error("expected an error")
			}
		})
	}
}

func TestUpdateTTL(t *testing.T) {
	svc := newTestService(t)

	if err := svc.UpdateTTL(600); err != nil {
		t.Fatalf("UpdateTTL(600) error = %v", err)
	}
	if got := svc.TTL(); got != 600 {
		t.Errorf("TTL() = %d, want 600", got)
	}

	for _, bad := range []int64{0, -1, 86401} {
		if err := svc.UpdateTTL(bad); err == nil {
			t.Errorf("UpdateTTL(%d) expected an error", bad)
		}
	}
}

func TestValidatePermit_Warnings(t *testing.T) {
	svc := newTestService(t)

	req := validPermitRequest(domain.PermitTypeEIP2612)
	req.Amount = "2000000000000000000000000" // 2e24
	req.Deadline = time.Now().Add(48 * time.Hour).Unix()

	result := svc.ValidatePermit(req)
	if result.Valid {
		t.Error("deadline beyond ttl must invalidate the request")
	}
	if len(result.Warnings) != 2 {
		t.Fatalf("Warnings = %v, want amount and deadline advisories", result.Warnings)
	}
	if !strings.Contains(result.Warnings[0], "very large amount") {
		t.Errorf("unexpected warning %q", result.Warnings[0])
	}
	if !strings.Contains(result.Warnings[1], "far future deadline") {
		t.Errorf("unexpected warning %q", result.Warnings[1])
	}
}

func TestRecommendedPermitType(t *testing.T) {
	svc := newTestService(t)

	if got := svc.RecommendedPermitType(1, testUSDC); got != domain.PermitTypeEIP2612 {
		t.Errorf("RecommendedPermitType(USDC) = %s, want EIP2612", got)
	}
	if got := svc.RecommendedPermitType(1, testSpender); got != domain.PermitTypePermit2 {
		t.Errorf("RecommendedPermitType(unknown) = %s, want PERMIT2", got)
	}
	// Known on mainnet only, not on an arbitrary chain.
	if got := svc.RecommendedPermitType(99999, testUSDC); got != domain.PermitTypePermit2 {
		t.Errorf("RecommendedPermitType(unknown chain) = %s, want PERMIT2", got)
	}
}

func TestHealthCheck(t *testing.T) {
	svc := newTestService(t)

	status := svc.HealthCheck(context.Background())
	if status.Status != "healthy" {
		t.Errorf("Status = %q, want healthy", status.Status)
	}
	for name, ok := range status.Builders {
		if !ok {
			t.Errorf("builder %s reported unhealthy", name)
		}
	}
}
