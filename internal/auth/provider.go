package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ProviderClient is a thin client for the managed auth provider's
// GoTrue-compatible REST API. The service never stores credentials; it
// forwards sign-in/sign-up/magic-link/sign-out calls and relays the result.
type ProviderClient struct {
	BaseURL string // e.g. https://<project>.supabase.co
	AnonKey string

	// HTTPClient is swappable for tests; a timeout-bound default is used
	// when nil.
	HTTPClient *http.Client
}

// Session is the token pair returned by password sign-in and sign-up.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
}

// ProviderError carries the upstream status so handlers can distinguish
// client mistakes (bad credentials) from provider outages.
type ProviderError struct {
	StatusCode int
	Message    string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return fmt.Sprintf("auth provider: %d %s", e.StatusCode, e.Message)
}

// NewProviderClient builds a client for the given provider URL and anon key.
func NewProviderClient(baseURL, anonKey string) (*ProviderClient, error) {
	if baseURL == "" || anonKey == "" {
		return nil, errors.New("auth provider URL and anon key must be set")
	}
	return &ProviderClient{
		BaseURL:    baseURL,
		AnonKey:    anonKey,
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// SignUp registers a new user with email and password. The provider-side
// signup trigger creates the free-tier profile row.
func (p *ProviderClient) SignUp(ctx context.Context, email, password, redirectTo string) (*Session, error) {
	body := map[string]any{"email": email, "password": password}
	if redirectTo != "" {
		body["options"] = map[string]any{"email_redirect_to": redirectTo}
	}
	var sess Session
	if err := p.post(ctx, "/auth/v1/signup", "", body, &sess); err != nil {
		return nil, err
	}
	return &sess, nil
}

// SignInWithPassword exchanges email+password for a session.
func (p *ProviderClient) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var sess Session
	err := p.post(ctx, "/auth/v1/token", "grant_type=password",
		map[string]any{"email": email, "password": password}, &sess)
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

// SendMagicLink asks the provider to email a one-time sign-in link.
func (p *ProviderClient) SendMagicLink(ctx context.Context, email, redirectTo string) error {
	body := map[string]any{"email": email}
	if redirectTo != "" {
		body["options"] = map[string]any{"email_redirect_to": redirectTo}
	}
	return p.post(ctx, "/auth/v1/magiclink", "", body, nil)
}

// SignOut revokes the caller's refresh tokens at the provider.
func (p *ProviderClient) SignOut(ctx context.Context, accessToken string) error {
	return p.do(ctx, http.MethodPost, "/auth/v1/logout", "", accessToken, nil, nil)
}

func (p *ProviderClient) post(ctx context.Context, path, query string, body, out any) error {
	return p.do(ctx, http.MethodPost, path, query, "", body, out)
}

func (p *ProviderClient) do(ctx context.Context, method, path, query, bearer string, body, out any) error {
	url := p.BaseURL + path
	if query != "" {
		url += "?" + query
	}

	var rdr io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rdr = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, rdr)
	if err != nil {
		return err
	}
	req.Header.Set("apikey", p.AnonKey)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	} else {
		req.Header.Set("Authorization", "Bearer "+p.AnonKey)
	}

	client := p.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return &ProviderError{StatusCode: resp.StatusCode, Message: readProviderError(resp.Body)}
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// readProviderError extracts a usable message from the several error shapes
// GoTrue responds with.
func readProviderError(r io.Reader) string {
	var payload struct {
		Message  string `json:"message"`
		Msg      string `json:"msg"`
		ErrorDsc string `json:"error_description"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 4<<10)).Decode(&payload); err != nil {
		return "request failed"
	}
	switch {
	case payload.Message != "":
		return payload.Message
	case payload.Msg != "":
		return payload.Msg
	case payload.ErrorDsc != "":
		return payload.ErrorDsc
	}
	return "request failed"
}
