// UsageService
//
// This file implements the usage gate: the check-and-increment operation
// enforcing the per-user, per-day query quota. The gate's admission decision
// and its write happen in one conditional upsert at the repository layer, so
// concurrent requests from the same user cannot overshoot the limit, and a
// denied request performs no write at all.
//
// The behavior on accounting failure is a named policy (fail-open or
// fail-closed) chosen in configuration, not an implicit fallback.
package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-rag-backend/internal/config"
	"github.com/tbourn/go-rag-backend/internal/domain"
	"github.com/tbourn/go-rag-backend/internal/repo"
)

// UsageRepo defines the persistence contract required by UsageService.
type UsageRepo interface {
	// GetTier returns the user's tier, defaulting to free when absent.
	GetTier(ctx context.Context, db *gorm.DB, userID string) (domain.Tier, error)

	// IncrementUsage applies the atomic increment-if-under-limit upsert.
	IncrementUsage(ctx context.Context, db *gorm.DB, userID, date string, limit int) (count int, allowed bool, err error)

	// GetUsageCount returns the stored count for (user, date), 0 when absent.
	GetUsageCount(ctx context.Context, db *gorm.DB, userID, date string) (int, error)
}

// UsageState reports the gate's view of a user's quota for one day.
type UsageState struct {
	Tier      domain.Tier `json:"tier"`
	Used      int         `json:"used"`
	Limit     int         `json:"limit"`     // domain.UnlimitedQueries when unmetered
	Remaining int         `json:"remaining"` // domain.UnlimitedQueries when unmetered
	Allowed   bool        `json:"allowed"`
	// Degraded is true when the state was produced under the fail-open
	// policy after an accounting failure; Used/Remaining are then unknown.
	Degraded bool `json:"degraded,omitempty"`
}

// UsageService decides whether a user may issue another query today and
// records usage when they may.
type UsageService struct {
	DB   *gorm.DB
	Repo UsageRepo

	// Policy selects fail-open or fail-closed behavior on storage errors.
	Policy config.QuotaPolicy

	// Now is a seam for tests; defaults to time.Now.
	Now func() time.Time
}

// NewUsageService constructs a UsageService with the given failure policy.
func NewUsageService(db *gorm.DB, r UsageRepo, policy config.QuotaPolicy) *UsageService {
	return &UsageService{DB: db, Repo: r, Policy: policy, Now: time.Now}
}

// CheckAndIncrement admits or denies one query for userID today.
//
// On admission the stored counter has already been incremented; on denial
// nothing was written and ErrQuotaExceeded is returned together with the
// state. Accounting failures follow the configured policy: fail-closed
// returns ErrQuotaUnavailable, fail-open admits the request with a degraded
// state and a warn log.
func (s *UsageService) CheckAndIncrement(ctx context.Context, userID string) (UsageState, error) {
	tr := otel.Tracer("services/UsageService")
	ctx, span := tr.Start(ctx, "CheckAndIncrement",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	tier, err := s.Repo.GetTier(ctx, s.DB, userID)
	if err != nil {
		return s.accountingFailure(err, "tier lookup failed")
	}
	limit := tier.DailyLimit()
	date := domain.UsageDate(s.Now())

	count, allowed, err := s.Repo.IncrementUsage(ctx, s.DB, userID, date, limit)
	if err != nil {
		return s.accountingFailure(err, "usage increment failed")
	}

	st := stateFor(tier, limit, count)
	st.Allowed = allowed
	if !allowed {
		return st, ErrQuotaExceeded
	}
	return st, nil
}

// GetUsageState reports the current quota state without writing.
func (s *UsageService) GetUsageState(ctx context.Context, userID string) (UsageState, error) {
	tr := otel.Tracer("services/UsageService")
	ctx, span := tr.Start(ctx, "GetUsageState",
		trace.WithAttributes(attribute.String("user.id", userID)),
	)
	defer span.End()

	tier, err := s.Repo.GetTier(ctx, s.DB, userID)
	if err != nil {
		return UsageState{}, err
	}
	limit := tier.DailyLimit()

	count, err := s.Repo.GetUsageCount(ctx, s.DB, userID, domain.UsageDate(s.Now()))
	if err != nil {
		return UsageState{}, err
	}

	st := stateFor(tier, limit, count)
	st.Allowed = limit == domain.UnlimitedQueries || count < limit
	return st, nil
}

// accountingFailure applies the configured quota policy to a storage error.
func (s *UsageService) accountingFailure(err error, msg string) (UsageState, error) {
	if s.Policy == config.QuotaFailOpen {
		log.Warn().Err(err).Msg(msg + "; admitting request (fail-open quota policy)")
		return UsageState{
			Tier:      domain.TierFree,
			Limit:     domain.UnlimitedQueries,
			Remaining: domain.UnlimitedQueries,
			Allowed:   true,
			Degraded:  true,
		}, nil
	}
	log.Error().Err(err).Msg(msg + "; denying request (fail-closed quota policy)")
	return UsageState{}, ErrQuotaUnavailable
}

func stateFor(tier domain.Tier, limit, count int) UsageState {
	st := UsageState{Tier: tier, Used: count, Limit: limit}
	if limit == domain.UnlimitedQueries {
		st.Remaining = domain.UnlimitedQueries
		return st
	}
	if rem := limit - count; rem > 0 {
		st.Remaining = rem
	}
	return st
}

// usageRepoShim adapts the repo free functions to the UsageRepo interface,
// mirroring how the router wires services to repositories.
type usageRepoShim struct{}

// NewUsageRepo returns the production UsageRepo backed by package repo.
func NewUsageRepo() UsageRepo { return usageRepoShim{} }

func (usageRepoShim) GetTier(ctx context.Context, db *gorm.DB, userID string) (domain.Tier, error) {
	return repo.GetTier(ctx, db, userID)
}

func (usageRepoShim) IncrementUsage(ctx context.Context, db *gorm.DB, userID, date string, limit int) (int, bool, error) {
	return repo.IncrementUsage(ctx, db, userID, date, limit)
}

func (usageRepoShim) GetUsageCount(ctx context.Context, db *gorm.DB, userID, date string) (int, error) {
	return repo.GetUsageCount(ctx, db, userID, date)
}
