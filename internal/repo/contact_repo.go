// Package repo implements the data persistence layer for domain entities,
// backed by GORM. This file provides repository functions for the
// ContactSubmission model.
//
// Error semantics: raw gorm errors are propagated; the service layer decides
// how much detail reaches the client (for this table: none, submissions are
// write-only from the public internet).
package repo

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/tbourn/go-rag-backend/internal/domain"
)

// CreateContactSubmission inserts a contact row and returns it with its
// generated id. Status always starts as "new"; triage tooling owns it after
// that.
func CreateContactSubmission(ctx context.Context, db *gorm.DB, sub domain.ContactSubmission) (*domain.ContactSubmission, error) {
	sub.ID = uuid.NewString()
	sub.Status = "new"
	sub.CreatedAt = time.Now().UTC()
	if err := db.WithContext(ctx).Create(&sub).Error; err != nil {
		return nil, err
	}
	return &sub, nil
}
