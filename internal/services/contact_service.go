// ContactService
//
// Validates and persists unauthenticated contact submissions. Field and
// email-shape validation live here so the handler stays transport-thin;
// rate limiting stays in the HTTP layer where the client IP lives.
package services

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"gorm.io/gorm"

	"github.com/tbourn/go-rag-backend/internal/domain"
	"github.com/tbourn/go-rag-backend/internal/repo"
)

// ContactRepo defines the persistence contract required by ContactService.
type ContactRepo interface {
	CreateContactSubmission(ctx context.Context, db *gorm.DB, sub domain.ContactSubmission) (*domain.ContactSubmission, error)
}

// ContactService validates and stores contact submissions.
type ContactService struct {
	DB   *gorm.DB
	Repo ContactRepo

	// MaxMessageRunes caps the message body; 0 disables the cap.
	MaxMessageRunes int
}

// NewContactService constructs a ContactService with a sane message cap.
func NewContactService(db *gorm.DB) *ContactService {
	return &ContactService{DB: db, Repo: contactRepoShim{}, MaxMessageRunes: 10000}
}

// Submit validates sub and persists it. Validation failures return
// ErrMissingField or ErrInvalidEmail wrapped with the offending field;
// persistence failures propagate the raw error for the handler to mask.
func (s *ContactService) Submit(ctx context.Context, sub domain.ContactSubmission) (*domain.ContactSubmission, error) {
	sub.Name = strings.TrimSpace(sub.Name)
	sub.Email = strings.TrimSpace(sub.Email)
	sub.Company = strings.TrimSpace(sub.Company)
	sub.Subject = strings.TrimSpace(sub.Subject)
	sub.Message = strings.TrimSpace(sub.Message)

	for _, f := range []struct{ name, value string }{
		{"name", sub.Name},
		{"email", sub.Email},
		{"subject", sub.Subject},
		{"message", sub.Message},
	} {
		if f.value == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, f.name)
		}
	}
	if !validEmail(sub.Email) {
		return nil, ErrInvalidEmail
	}
	if s.MaxMessageRunes > 0 && len([]rune(sub.Message)) > s.MaxMessageRunes {
		sub.Message = string([]rune(sub.Message)[:s.MaxMessageRunes])
	}

	return s.Repo.CreateContactSubmission(ctx, s.DB, sub)
}

// validEmail applies net/mail parsing plus a domain-dot check; "a@b" parses
// but is not deliverable on the public internet.
func validEmail(s string) bool {
	addr, err := mail.ParseAddress(s)
	if err != nil || addr.Address != s {
		return false
	}
	at := strings.LastIndex(s, "@")
	return at > 0 && strings.Contains(s[at+1:], ".")
}

type contactRepoShim struct{}

func (contactRepoShim) CreateContactSubmission(ctx context.Context, db *gorm.DB, sub domain.ContactSubmission) (*domain.ContactSubmission, error) {
	return repo.CreateContactSubmission(ctx, db, sub)
}
