package services

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/tbourn/go-rag-backend/internal/domain"
	"github.com/tbourn/go-rag-backend/internal/repo"
)

// ProfileRepo defines the profile operations the service consumes.
type ProfileRepo interface {
	GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error)
	EnsureProfile(ctx context.Context, db *gorm.DB, userID string) error
	UpdateTier(ctx context.Context, db *gorm.DB, userID string, tier domain.Tier) error
}

// ProfileService manages user profiles and tier assignment.
type ProfileService struct {
	DB   *gorm.DB
	Repo ProfileRepo
}

// NewProfileService wires the service to the production repository.
func NewProfileService(db *gorm.DB) *ProfileService {
	return &ProfileService{DB: db, Repo: profileRepoShim{}}
}

// Ensure creates a free-tier profile for userID if one does not exist.
// Called on first authenticated request so JIT-provisioned users are metered.
func (s *ProfileService) Ensure(ctx context.Context, userID string) error {
	return s.Repo.EnsureProfile(ctx, s.DB, userID)
}

// SetTier updates a user's subscription tier.
func (s *ProfileService) SetTier(ctx context.Context, userID string, tier domain.Tier) error {
	if !tier.Valid() {
		return ErrInvalidTier
	}
	if err := s.Repo.UpdateTier(ctx, s.DB, userID, tier); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrProfileNotFound
		}
		return err
	}
	return nil
}

// profileRepoShim adapts the repo free functions to the ProfileRepo interface.
type profileRepoShim struct{}

func (profileRepoShim) GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	return repo.GetProfile(ctx, db, userID)
}

func (profileRepoShim) EnsureProfile(ctx context.Context, db *gorm.DB, userID string) error {
	return repo.EnsureProfile(ctx, db, userID)
}

func (profileRepoShim) UpdateTier(ctx context.Context, db *gorm.DB, userID string, tier domain.Tier) error {
	return repo.UpdateTier(ctx, db, userID, tier)
}
