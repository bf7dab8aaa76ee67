package services

import (
	"context"

	"gorm.io/gorm"

	"github.com/tbourn/go-rag-backend/internal/repo"
)

// RegulationService reports which regulations are indexed and how densely.
type RegulationService struct {
	DB *gorm.DB
}

// NewRegulationService constructs the service over the given database.
func NewRegulationService(db *gorm.DB) *RegulationService {
	return &RegulationService{DB: db}
}

// Counts returns per-regulation chunk counts, largest corpus first.
func (s *RegulationService) Counts(ctx context.Context, limit int) ([]repo.RegulationCount, error) {
	return repo.CountByRegulation(ctx, s.DB, limit)
}
