package handlers

import (
	"context"

	"github.com/tbourn/go-rag-backend/internal/auth"
	"github.com/tbourn/go-rag-backend/internal/domain"
	"github.com/tbourn/go-rag-backend/internal/repo"
)

//
// Remaining service contracts (context-aware). ChatService and UsageService
// live in chat_handler.go next to their endpoint.
//

// ContactService persists validated contact form submissions.
type ContactService interface {
	Submit(ctx context.Context, sub domain.ContactSubmission) (*domain.ContactSubmission, error)
}

// RegulationService reports the indexed regulation corpus.
type RegulationService interface {
	Counts(ctx context.Context, limit int) ([]repo.RegulationCount, error)
}

// AuthService proxies credential operations to the identity provider.
// *auth.ProviderClient satisfies this.
type AuthService interface {
	SignUp(ctx context.Context, email, password, redirectTo string) (*auth.Session, error)
	SignInWithPassword(ctx context.Context, email, password string) (*auth.Session, error)
	SendMagicLink(ctx context.Context, email, redirectTo string) error
	SignOut(ctx context.Context, accessToken string) error
}

// ProfileService manages subscription tiers.
type ProfileService interface {
	SetTier(ctx context.Context, userID string, tier domain.Tier) error
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints of the API. It depends on abstract
// service interfaces to keep transport concerns separate from business logic.
type Handlers struct {
	chatSvc    ChatService
	usageSvc   UsageService
	contactSvc ContactService
	regSvc     RegulationService
	authSvc    AuthService
	profileSvc ProfileService

	// serviceKey authorizes the admin tier endpoint; empty disables it.
	serviceKey string

	// siteURL is the default redirect target for signup and magic links.
	siteURL string
}

// Deps carries the services and settings a Handlers instance is bound to.
type Deps struct {
	Chat       ChatService
	Usage      UsageService
	Contact    ContactService
	Regulation RegulationService
	Auth       AuthService
	Profile    ProfileService
	ServiceKey string
	SiteURL    string
}

// New constructs and returns a Handlers instance bound to the given services.
func New(d Deps) *Handlers {
	return &Handlers{
		chatSvc:    d.Chat,
		usageSvc:   d.Usage,
		contactSvc: d.Contact,
		regSvc:     d.Regulation,
		authSvc:    d.Auth,
		profileSvc: d.Profile,
		serviceKey: d.ServiceKey,
		siteURL:    d.SiteURL,
	}
}

var _ AuthService = (*auth.ProviderClient)(nil)
