package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/questforge/platform-guard/internal/core/domain"
	"github.com/questforge/platform-guard/internal/repository"
)

type consumeCall struct {
	identifier string
	cfg        domain.LimiterConfig
	now        time.Time
}

type rateStoreMock struct {
	record  domain.RateRecord
	allowed bool
	err     error
	calls   []consumeCall
}

func (m *rateStoreMock) Consume(_ context.Context, identifier string, cfg domain.LimiterConfig, now time.Time) (domain.RateRecord, bool, error) {
	m.calls = append(m.calls, consumeCall{identifier: identifier, cfg: cfg, now: now})
	if m.err != nil {
		return domain.RateRecord{}, false, m.err
	}
	return m.record, m.allowed, nil
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestRateLimitService_Register_RejectsInvalidConfig(t *testing.T) {
	service := NewRateLimitService(&rateStoreMock{}, domain.FailurePolicyOpen, zaptest.NewLogger(t))

	tests := []struct {
		name string
		cfg  domain.LimiterConfig
	}{
		{"empty name", domain.LimiterConfig{Name: "  ", Window: time.Minute, MaxRequests: 5}},
		{"zero window", domain.LimiterConfig{Name: "auth", Window: 0, MaxRequests: 5}},
		{"negative window", domain.LimiterConfig{Name: "auth", Window: -time.Second, MaxRequests: 5}},
		{"zero max", domain.LimiterConfig{Name: "auth", Window: time.Minute, MaxRequests: 0}},
	}

	for _, tt := range tests {
		if err := service.Register(tt.cfg); !errors.Is(err, domain.ErrInvalidLimiterConfig) {
			t.Errorf("%s: expected ErrInvalidLimiterConfig, got %v", tt.name, err)
		}
	}
}

func TestRateLimitService_Register_RejectsDuplicateName(t *testing.T) {
	service := NewRateLimitService(&rateStoreMock{}, domain.FailurePolicyOpen, zaptest.NewLogger(t))

	cfg := domain.LimiterConfig{Name: "auth", Window: 15 * time.Minute, MaxRequests: 5}
	if err := service.Register(cfg); err != nil {
		t.Fatalf("first Register failed: %v", err)
	}

	if err := service.Register(cfg); !errors.Is(err, domain.ErrInvalidLimiterConfig) {
		t.Fatalf("expected ErrInvalidLimiterConfig for duplicate, got %v", err)
	}
}

func TestRateLimitService_CheckAndConsume_UnknownLimiter(t *testing.T) {
	service := NewRateLimitService(&rateStoreMock{}, domain.FailurePolicyOpen, zaptest.NewLogger(t))

	_, err := service.CheckAndConsume(context.Background(), "missing", "ip:1.2.3.4")
	if !errors.Is(err, domain.ErrLimiterNotRegistered) {
		t.Fatalf("expected ErrLimiterNotRegistered, got %v", err)
	}
}

func TestRateLimitService_CheckAndConsume_Allowed(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	resetAt := now.Add(10 * time.Minute)

	store := &rateStoreMock{
		record:  domain.RateRecord{Count: 3, WindowStart: now.Add(-5 * time.Minute), ResetAt: resetAt},
		allowed: true,
	}

	service := NewRateLimitService(store, domain.FailurePolicyOpen, zaptest.NewLogger(t)).WithClock(fixedClock(now))
	if err := service.Register(domain.LimiterConfig{Name: "auth", Window: 15 * time.Minute, MaxRequests: 5}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	decision, err := service.CheckAndConsume(context.Background(), "auth", "ip:1.2.3.4")
	if err != nil {
		t.Fatalf("CheckAndConsume failed: %v", err)
	}

	if !decision.Allowed {
		t.Fatal("expected request to be allowed")
	}
	if decision.Limit != 5 {
		t.Errorf("expected limit 5, got %d", decision.Limit)
	}
	if decision.Remaining != 2 {
		t.Errorf("expected remaining 2, got %d", decision.Remaining)
	}
	if !decision.ResetAt.Equal(resetAt) {
		t.Errorf("expected reset at %v, got %v", resetAt, decision.ResetAt)
	}

	if len(store.calls) != 1 {
		t.Fatalf("expected 1 store call, got %d", len(store.calls))
	}
	if store.calls[0].identifier != "ip:1.2.3.4" {
		t.Errorf("expected identifier ip:1.2.3.4, got %s", store.calls[0].identifier)
	}
	if !store.calls[0].now.Equal(now) {
		t.Errorf("expected store call at %v, got %v", now, store.calls[0].now)
	}
}

func TestRateLimitService_CheckAndConsume_DeniedComputesRetryAfter(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	resetAt := now.Add(42 * time.Second)

	store := &rateStoreMock{
		record:  domain.RateRecord{Count: 5, WindowStart: now.Add(-18 * time.Second), ResetAt: resetAt},
		allowed: false,
	}

	service := NewRateLimitService(store, domain.FailurePolicyOpen, zaptest.NewLogger(t)).WithClock(fixedClock(now))
	if err := service.Register(domain.LimiterConfig{Name: "votes", Window: time.Minute, MaxRequests: 5}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	decision, err := service.CheckAndConsume(context.Background(), "votes", "user:42")
	if err != nil {
		t.Fatalf("CheckAndConsume failed: %v", err)
	}

	if decision.Allowed {
		t.Fatal("expected request to be denied")
	}
	if decision.Remaining != 0 {
		t.Errorf("expected remaining 0, got %d", decision.Remaining)
	}
	if decision.RetryAfter != 42*time.Second {
		t.Errorf("expected retry after 42s, got %v", decision.RetryAfter)
	}
}

func TestRateLimitService_CheckAndConsume_FailOpen(t *testing.T) {
	store := &rateStoreMock{err: repository.ErrUnavailable}

	service := NewRateLimitService(store, domain.FailurePolicyOpen, zaptest.NewLogger(t))
	if err := service.Register(domain.LimiterConfig{Name: "auth", Window: 15 * time.Minute, MaxRequests: 5}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	decision, err := service.CheckAndConsume(context.Background(), "auth", "ip:1.2.3.4")
	if !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable to surface, got %v", err)
	}
	if !decision.Allowed {
		t.Fatal("expected fail-open to allow the request")
	}
}

func TestRateLimitService_CheckAndConsume_FailClosed(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	store := &rateStoreMock{err: repository.ErrUnavailable}

	service := NewRateLimitService(store, domain.FailurePolicyClosed, zaptest.NewLogger(t)).WithClock(fixedClock(now))
	if err := service.Register(domain.LimiterConfig{Name: "auth", Window: 15 * time.Minute, MaxRequests: 5}); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	decision, err := service.CheckAndConsume(context.Background(), "auth", "ip:1.2.3.4")
	if !errors.Is(err, repository.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable to surface, got %v", err)
	}
	if decision.Allowed {
		t.Fatal("expected fail-closed to deny the request")
	}
	if decision.RetryAfter != 15*time.Minute {
		t.Errorf("expected full window retry hint, got %v", decision.RetryAfter)
	}
	if !decision.ResetAt.Equal(now.Add(15 * time.Minute)) {
		t.Errorf("expected reset at %v, got %v", now.Add(15*time.Minute), decision.ResetAt)
	}
}

func TestRateLimitService_Config_ReturnsRegistered(t *testing.T) {
	service := NewRateLimitService(&rateStoreMock{}, domain.FailurePolicyOpen, zaptest.NewLogger(t))

	want := domain.LimiterConfig{Name: "comments", Window: time.Minute, MaxRequests: 10}
	if err := service.Register(want); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	got, err := service.Config("comments")
	if err != nil {
		t.Fatalf("Config failed: %v", err)
	}
	if got != want {
		t.Errorf("expected config %+v, got %+v", want, got)
	}
}
