// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the Profile
// model.
//
// The repository follows a "thin" approach: it performs persistence and simple
// query composition, leaving business rules to the services package.
package repo

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tbourn/go-rag-backend/internal/domain"
)

// GetProfile fetches a profile by user id. Returns gorm.ErrRecordNotFound
// when the user has no row yet.
func GetProfile(ctx context.Context, db *gorm.DB, userID string) (*domain.Profile, error) {
	var p domain.Profile
	if err := db.WithContext(ctx).Where("id = ?", userID).First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// GetTier returns the user's tier, defaulting to free when no profile row
// exists. Other database errors are propagated.
func GetTier(ctx context.Context, db *gorm.DB, userID string) (domain.Tier, error) {
	p, err := GetProfile(ctx, db, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TierFree, nil
		}
		return domain.TierFree, err
	}
	if !p.Tier.Valid() {
		return domain.TierFree, nil
	}
	return p.Tier, nil
}

// EnsureProfile creates a free-tier profile row if none exists. Called on
// the first authenticated request so every known user is metered.
func EnsureProfile(ctx context.Context, db *gorm.DB, userID string) error {
	p := domain.Profile{ID: userID, Tier: domain.TierFree, CreatedAt: time.Now().UTC()}
	return db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&p).Error
}

// UpdateTier sets the user's tier. Returns gorm.ErrRecordNotFound when the
// profile does not exist.
func UpdateTier(ctx context.Context, db *gorm.DB, userID string, tier domain.Tier) error {
	res := db.WithContext(ctx).
		Model(&domain.Profile{}).
		Where("id = ?", userID).
		Update("tier", tier)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
