package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"gorm.io/gorm"

	"github.com/tbourn/go-rag-backend/internal/config"
	"github.com/tbourn/go-rag-backend/internal/domain"
)

// fakeUsageRepo is an in-memory UsageRepo with scriptable failures.
type fakeUsageRepo struct {
	tier     domain.Tier
	tierErr  error
	counts   map[string]int
	incErr   error
	countErr error
}

func newFakeUsageRepo(tier domain.Tier) *fakeUsageRepo {
	return &fakeUsageRepo{tier: tier, counts: map[string]int{}}
}

func (f *fakeUsageRepo) GetTier(_ context.Context, _ *gorm.DB, _ string) (domain.Tier, error) {
	return f.tier, f.tierErr
}

func (f *fakeUsageRepo) IncrementUsage(_ context.Context, _ *gorm.DB, userID, date string, limit int) (int, bool, error) {
	if f.incErr != nil {
		return 0, false, f.incErr
	}
	key := userID + "|" + date
	if limit != domain.UnlimitedQueries && f.counts[key] >= limit {
		return f.counts[key], false, nil
	}
	f.counts[key]++
	return f.counts[key], true, nil
}

func (f *fakeUsageRepo) GetUsageCount(_ context.Context, _ *gorm.DB, userID, date string) (int, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.counts[userID+"|"+date], nil
}

func newGateService(repo UsageRepo, policy config.QuotaPolicy) *UsageService {
	svc := NewUsageService(nil, repo, policy)
	svc.Now = func() time.Time { return time.Date(2026, 8, 29, 12, 0, 0, 0, time.UTC) }
	return svc
}

func TestCheckAndIncrement_TierLimits(t *testing.T) {
	cases := []struct {
		tier  domain.Tier
		limit int
	}{
		{domain.TierFree, 25},
		{domain.TierBasic, 100},
		{domain.TierPro, 500},
	}
	for _, tc := range cases {
		t.Run(string(tc.tier), func(t *testing.T) {
			svc := newGateService(newFakeUsageRepo(tc.tier), config.QuotaFailClosed)
			ctx := context.Background()

			for i := 1; i <= tc.limit; i++ {
				st, err := svc.CheckAndIncrement(ctx, "u1")
				if err != nil {
					t.Fatalf("query %d: %v", i, err)
				}
				if !st.Allowed || st.Used != i || st.Remaining != tc.limit-i {
					t.Fatalf("query %d: unexpected state %+v", i, st)
				}
			}

			st, err := svc.CheckAndIncrement(ctx, "u1")
			if !errors.Is(err, ErrQuotaExceeded) {
				t.Fatalf("query %d: want ErrQuotaExceeded, got %v", tc.limit+1, err)
			}
			if st.Allowed || st.Used != tc.limit || st.Remaining != 0 {
				t.Fatalf("denied state: %+v", st)
			}
		})
	}
}

func TestCheckAndIncrement_UnlimitedTier(t *testing.T) {
	svc := newGateService(newFakeUsageRepo(domain.TierUnlimited), config.QuotaFailClosed)
	ctx := context.Background()

	for i := 0; i < 600; i++ {
		st, err := svc.CheckAndIncrement(ctx, "u1")
		if err != nil {
			t.Fatalf("query %d: %v", i, err)
		}
		if !st.Allowed || st.Limit != domain.UnlimitedQueries || st.Remaining != domain.UnlimitedQueries {
			t.Fatalf("query %d: unexpected state %+v", i, st)
		}
	}
}

func TestCheckAndIncrement_FailClosed(t *testing.T) {
	repo := newFakeUsageRepo(domain.TierFree)
	repo.incErr = errors.New("connection refused")
	svc := newGateService(repo, config.QuotaFailClosed)

	_, err := svc.CheckAndIncrement(context.Background(), "u1")
	if !errors.Is(err, ErrQuotaUnavailable) {
		t.Fatalf("want ErrQuotaUnavailable, got %v", err)
	}
}

func TestCheckAndIncrement_FailOpen(t *testing.T) {
	repo := newFakeUsageRepo(domain.TierFree)
	repo.tierErr = errors.New("connection refused")
	svc := newGateService(repo, config.QuotaFailOpen)

	st, err := svc.CheckAndIncrement(context.Background(), "u1")
	if err != nil {
		t.Fatalf("fail-open should admit: %v", err)
	}
	if !st.Allowed || !st.Degraded {
		t.Fatalf("want allowed degraded state, got %+v", st)
	}
}

func TestGetUsageState_ReadOnly(t *testing.T) {
	repo := newFakeUsageRepo(domain.TierFree)
	svc := newGateService(repo, config.QuotaFailClosed)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := svc.CheckAndIncrement(ctx, "u1"); err != nil {
			t.Fatalf("seed query %d: %v", i, err)
		}
	}

	st, err := svc.GetUsageState(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUsageState: %v", err)
	}
	if st.Used != 3 || st.Remaining != 22 || !st.Allowed {
		t.Fatalf("unexpected state: %+v", st)
	}

	// Reading must not consume quota.
	if again, _ := svc.GetUsageState(ctx, "u1"); again.Used != 3 {
		t.Fatalf("read consumed quota: %+v", again)
	}
}
