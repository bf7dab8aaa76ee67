package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/tbourn/go-rag-backend/internal/auth"
	"github.com/tbourn/go-rag-backend/internal/domain"
	"github.com/tbourn/go-rag-backend/internal/llm"
	"github.com/tbourn/go-rag-backend/internal/repo"
	"github.com/tbourn/go-rag-backend/internal/services"
)

// ---------- fakes ----------

type fakeStream struct {
	chunks []string
	pos    int
	closed bool
}

func (s *fakeStream) Recv() (string, error) {
	if s.pos >= len(s.chunks) {
		return "", io.EOF
	}
	s.pos++
	return s.chunks[s.pos-1], nil
}

func (s *fakeStream) Close() error { s.closed = true; return nil }

type fakeChatSvc struct {
	answer *services.Answer
	err    error
}

func (f *fakeChatSvc) Ask(_ context.Context, _ string, _ []llm.Message) (*services.Answer, error) {
	return f.answer, f.err
}

type fakeUsageSvc struct {
	state services.UsageState
	err   error
}

func (f *fakeUsageSvc) GetUsageState(_ context.Context, _ string) (services.UsageState, error) {
	return f.state, f.err
}

type fakeContactSvc struct {
	saved *domain.ContactSubmission
	err   error
}

func (f *fakeContactSvc) Submit(_ context.Context, sub domain.ContactSubmission) (*domain.ContactSubmission, error) {
	if f.err != nil {
		return nil, f.err
	}
	sub.ID = "sub-1"
	sub.Status = "new"
	f.saved = &sub
	return &sub, nil
}

type fakeRegSvc struct {
	counts []repo.RegulationCount
	err    error
}

func (f *fakeRegSvc) Counts(_ context.Context, _ int) ([]repo.RegulationCount, error) {
	return f.counts, f.err
}

type fakeAuthSvc struct {
	session *auth.Session
	err     error
	signOut []string
}

func (f *fakeAuthSvc) SignUp(_ context.Context, _, _, _ string) (*auth.Session, error) {
	return f.session, f.err
}

func (f *fakeAuthSvc) SignInWithPassword(_ context.Context, _, _ string) (*auth.Session, error) {
	return f.session, f.err
}

func (f *fakeAuthSvc) SendMagicLink(_ context.Context, _, _ string) error { return f.err }

func (f *fakeAuthSvc) SignOut(_ context.Context, token string) error {
	f.signOut = append(f.signOut, token)
	return f.err
}

type fakeProfileSvc struct {
	lastUser string
	lastTier domain.Tier
	err      error
}

func (f *fakeProfileSvc) SetTier(_ context.Context, userID string, tier domain.Tier) error {
	if f.err != nil {
		return f.err
	}
	f.lastUser, f.lastTier = userID, tier
	return nil
}

// ---------- harness ----------

func asUser(userID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID != "" {
			c.Set(auth.ContextUserIDKey, userID)
		}
		c.Next()
	}
}

func newTestRouter(d Deps, userID string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := New(d)
	r := gin.New()
	api := r.Group("/api", asUser(userID))
	api.POST("/chat", h.Chat)
	api.GET("/usage", h.Usage)
	api.POST("/contact", h.Contact)
	api.GET("/regulations", h.ListRegulations)
	api.POST("/auth/signup", h.SignUp)
	api.POST("/auth/signin", h.SignIn)
	api.POST("/auth/magic-link", h.MagicLink)
	api.POST("/auth/signout", h.SignOut)
	api.PUT("/admin/users/:id/tier", h.UpdateTier)
	return r
}

func doJSON(t *testing.T, r *gin.Engine, method, path string, body any, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error envelope: %v (%s)", err, w.Body.String())
	}
	return resp.Code
}

func chatBody(text string) ChatRequest {
	return ChatRequest{Messages: []llm.Message{{Role: llm.RoleUser, Content: text}}}
}

// ---------- chat ----------

func TestChat_StreamsAnswerWithUsageHeaders(t *testing.T) {
	stream := &fakeStream{chunks: []string{"Part 820 ", "requires..."}}
	chat := &fakeChatSvc{answer: &services.Answer{
		Stream: stream,
		Usage:  services.UsageState{Tier: domain.TierFree, Used: 3, Limit: 25, Remaining: 22, Allowed: true},
	}}
	r := newTestRouter(Deps{Chat: chat, Usage: &fakeUsageSvc{}}, "u1")

	w := doJSON(t, r, http.MethodPost, "/api/chat", chatBody("What does Part 820 require?"), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if got := w.Body.String(); got != "Part 820 requires..." {
		t.Fatalf("body %q", got)
	}
	if w.Header().Get("X-Usage-Limit") != "25" || w.Header().Get("X-Usage-Remaining") != "22" {
		t.Fatalf("usage headers: %v", w.Header())
	}
	if w.Header().Get("X-Context-Degraded") != "" {
		t.Fatal("degraded header set on healthy answer")
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content type %q", ct)
	}
	if !stream.closed {
		t.Fatal("stream not closed")
	}
}

func TestChat_DegradedHeaderSet(t *testing.T) {
	chat := &fakeChatSvc{answer: &services.Answer{
		Stream:   &fakeStream{chunks: []string{"best effort"}},
		Usage:    services.UsageState{Limit: 25, Remaining: 24},
		Degraded: true,
	}}
	r := newTestRouter(Deps{Chat: chat, Usage: &fakeUsageSvc{}}, "u1")

	w := doJSON(t, r, http.MethodPost, "/api/chat", chatBody("q"), nil)
	if w.Header().Get("X-Context-Degraded") != "true" {
		t.Fatal("expected degraded header")
	}
}

func TestChat_ErrorMapping(t *testing.T) {
	cases := []struct {
		name     string
		err      error
		status   int
		code     string
	}{
		{"empty message", services.ErrEmptyMessage, http.StatusBadRequest, ErrCodeBadRequest},
		{"quota exceeded", services.ErrQuotaExceeded, http.StatusTooManyRequests, ErrCodeQuotaExceeded},
		{"quota unavailable", services.ErrQuotaUnavailable, http.StatusServiceUnavailable, ErrCodeQuotaUnavailable},
		{"no provider", llm.ErrNoProvider, http.StatusInternalServerError, ErrCodeProviderUnconfigured},
		{"upstream failure", errors.New("boom"), http.StatusInternalServerError, ErrCodeAnswerFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := newTestRouter(Deps{Chat: &fakeChatSvc{err: tc.err}, Usage: &fakeUsageSvc{
				state: services.UsageState{Tier: domain.TierFree},
			}}, "u1")
			w := doJSON(t, r, http.MethodPost, "/api/chat", chatBody("q"), nil)
			if w.Code != tc.status {
				t.Fatalf("status %d, want %d", w.Code, tc.status)
			}
			if code := errorCode(t, w); code != tc.code {
				t.Fatalf("code %q, want %q", code, tc.code)
			}
		})
	}
}

func TestChat_RequiresUserAndBody(t *testing.T) {
	r := newTestRouter(Deps{Chat: &fakeChatSvc{}, Usage: &fakeUsageSvc{}}, "")
	if w := doJSON(t, r, http.MethodPost, "/api/chat", chatBody("q"), nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous chat: %d", w.Code)
	}

	r = newTestRouter(Deps{Chat: &fakeChatSvc{}, Usage: &fakeUsageSvc{}}, "u1")
	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader("{not json"))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: %d", w.Code)
	}
}

// ---------- usage ----------

func TestUsage_ReturnsState(t *testing.T) {
	usage := &fakeUsageSvc{state: services.UsageState{
		Tier: domain.TierBasic, Used: 40, Limit: 100, Remaining: 60, Allowed: true,
	}}
	r := newTestRouter(Deps{Usage: usage}, "u1")

	w := doJSON(t, r, http.MethodGet, "/api/usage", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var st services.UsageState
	if err := json.Unmarshal(w.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.Tier != domain.TierBasic || st.Remaining != 60 {
		t.Fatalf("unexpected state: %+v", st)
	}
}

func TestUsage_Anonymous(t *testing.T) {
	r := newTestRouter(Deps{Usage: &fakeUsageSvc{}}, "")
	if w := doJSON(t, r, http.MethodGet, "/api/usage", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("status %d", w.Code)
	}
}

// ---------- contact ----------

func TestContact_Created(t *testing.T) {
	svc := &fakeContactSvc{}
	r := newTestRouter(Deps{Contact: svc}, "")

	w := doJSON(t, r, http.MethodPost, "/api/contact", ContactRequest{
		Name: "Jane", Email: "jane@example.com", Subject: "Q", Message: "Hello",
	}, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp ContactResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.ID == "" || resp.Status != "new" {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if svc.saved == nil || svc.saved.IPAddress == "" || svc.saved.UserAgent == "" {
		// httptest requests always carry a RemoteAddr; UserAgent comes from the header.
		if svc.saved == nil || svc.saved.IPAddress == "" {
			t.Fatalf("client metadata not captured: %+v", svc.saved)
		}
	}
}

func TestContact_ValidationRelayed(t *testing.T) {
	svc := &fakeContactSvc{err: services.ErrInvalidEmail}
	r := newTestRouter(Deps{Contact: svc}, "")

	w := doJSON(t, r, http.MethodPost, "/api/contact", ContactRequest{Email: "bad"}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodeBadRequest {
		t.Fatalf("code %q", code)
	}
}

func TestContact_StorageErrorMasked(t *testing.T) {
	svc := &fakeContactSvc{err: errors.New("pq: relation does not exist")}
	r := newTestRouter(Deps{Contact: svc}, "")

	w := doJSON(t, r, http.MethodPost, "/api/contact", ContactRequest{
		Name: "Jane", Email: "jane@example.com", Subject: "Q", Message: "Hello",
	}, nil)
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", w.Code)
	}
	if strings.Contains(w.Body.String(), "relation") {
		t.Fatalf("database error leaked to client: %s", w.Body.String())
	}
}

// ---------- regulations ----------

func TestListRegulations(t *testing.T) {
	svc := &fakeRegSvc{counts: []repo.RegulationCount{
		{Regulation: "far", Count: 1424},
		{Regulation: "osha-1910", Count: 311},
	}}
	r := newTestRouter(Deps{Regulation: svc}, "")

	w := doJSON(t, r, http.MethodGet, "/api/regulations", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d", w.Code)
	}
	var resp ListRegulationsResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Regulations) != 2 {
		t.Fatalf("want 2 regulations, got %d", len(resp.Regulations))
	}
	if resp.Regulations[1].DisplayName != "Osha 1910" {
		t.Fatalf("display name: %+v", resp.Regulations[1])
	}
}

func TestListRegulations_Error(t *testing.T) {
	r := newTestRouter(Deps{Regulation: &fakeRegSvc{err: errors.New("down")}}, "")
	if w := doJSON(t, r, http.MethodGet, "/api/regulations", nil, nil); w.Code != http.StatusInternalServerError {
		t.Fatalf("status %d", w.Code)
	}
}

// ---------- auth ----------

func TestSignIn_ReturnsSession(t *testing.T) {
	svc := &fakeAuthSvc{session: &auth.Session{
		AccessToken: "at", TokenType: "bearer", ExpiresIn: 3600, RefreshToken: "rt",
	}}
	r := newTestRouter(Deps{Auth: svc}, "")

	w := doJSON(t, r, http.MethodPost, "/api/auth/signin", CredentialsRequest{
		Email: "jane@example.com", Password: "hunter2hunter2",
	}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	var resp SessionResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AccessToken != "at" || resp.RefreshToken != "rt" {
		t.Fatalf("unexpected session: %+v", resp)
	}
}

func TestSignIn_ProviderRejectionRelayed(t *testing.T) {
	svc := &fakeAuthSvc{err: &auth.ProviderError{StatusCode: http.StatusBadRequest, Message: "Invalid login credentials"}}
	r := newTestRouter(Deps{Auth: svc}, "")

	w := doJSON(t, r, http.MethodPost, "/api/auth/signin", CredentialsRequest{
		Email: "jane@example.com", Password: "wrong",
	}, nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), "Invalid login credentials") {
		t.Fatalf("provider message dropped: %s", w.Body.String())
	}
}

func TestSignIn_ProviderOutageIsBadGateway(t *testing.T) {
	svc := &fakeAuthSvc{err: &auth.ProviderError{StatusCode: http.StatusInternalServerError, Message: "oops"}}
	r := newTestRouter(Deps{Auth: svc}, "")

	w := doJSON(t, r, http.MethodPost, "/api/auth/signin", CredentialsRequest{
		Email: "jane@example.com", Password: "pw",
	}, nil)
	if w.Code != http.StatusBadGateway {
		t.Fatalf("status %d", w.Code)
	}
	if code := errorCode(t, w); code != ErrCodeAuthProvider {
		t.Fatalf("code %q", code)
	}
}

func TestMagicLink_NoContent(t *testing.T) {
	r := newTestRouter(Deps{Auth: &fakeAuthSvc{}}, "")
	w := doJSON(t, r, http.MethodPost, "/api/auth/magic-link", MagicLinkRequest{Email: "jane@example.com"}, nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("status %d", w.Code)
	}
}

func TestSignOut_ForwardsBearerToken(t *testing.T) {
	svc := &fakeAuthSvc{}
	r := newTestRouter(Deps{Auth: svc}, "")

	w := doJSON(t, r, http.MethodPost, "/api/auth/signout", nil, map[string]string{
		"Authorization": "Bearer tok-123",
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status %d", w.Code)
	}
	if len(svc.signOut) != 1 || svc.signOut[0] != "tok-123" {
		t.Fatalf("token not forwarded: %v", svc.signOut)
	}

	if w := doJSON(t, r, http.MethodPost, "/api/auth/signout", nil, nil); w.Code != http.StatusUnauthorized {
		t.Fatalf("missing token: %d", w.Code)
	}
}

// ---------- admin ----------

const testServiceKey = "service-key-123"

func adminDeps(profile *fakeProfileSvc) Deps {
	return Deps{Profile: profile, ServiceKey: testServiceKey}
}

func TestUpdateTier_Success(t *testing.T) {
	profile := &fakeProfileSvc{}
	r := newTestRouter(adminDeps(profile), "")

	id := "8d7f2c4e-1b3a-4f5d-9e6c-0a1b2c3d4e5f"
	w := doJSON(t, r, http.MethodPut, "/api/admin/users/"+id+"/tier", UpdateTierRequest{Tier: "pro"}, map[string]string{
		"X-Service-Key": testServiceKey,
	})
	if w.Code != http.StatusNoContent {
		t.Fatalf("status %d: %s", w.Code, w.Body.String())
	}
	if profile.lastUser != id || profile.lastTier != domain.TierPro {
		t.Fatalf("service not called correctly: %q %q", profile.lastUser, profile.lastTier)
	}
}

func TestUpdateTier_Forbidden(t *testing.T) {
	r := newTestRouter(adminDeps(&fakeProfileSvc{}), "")
	id := "8d7f2c4e-1b3a-4f5d-9e6c-0a1b2c3d4e5f"

	for name, hdr := range map[string]map[string]string{
		"missing key": nil,
		"wrong key":   {"X-Service-Key": "nope"},
	} {
		w := doJSON(t, r, http.MethodPut, "/api/admin/users/"+id+"/tier", UpdateTierRequest{Tier: "pro"}, hdr)
		if w.Code != http.StatusForbidden {
			t.Fatalf("%s: status %d", name, w.Code)
		}
	}

	// An empty configured key disables the endpoint outright.
	r = newTestRouter(Deps{Profile: &fakeProfileSvc{}}, "")
	w := doJSON(t, r, http.MethodPut, "/api/admin/users/"+id+"/tier", UpdateTierRequest{Tier: "pro"}, map[string]string{
		"X-Service-Key": "",
	})
	if w.Code != http.StatusForbidden {
		t.Fatalf("unconfigured key: status %d", w.Code)
	}
}

func TestUpdateTier_Validation(t *testing.T) {
	key := map[string]string{"X-Service-Key": testServiceKey}
	id := "8d7f2c4e-1b3a-4f5d-9e6c-0a1b2c3d4e5f"

	r := newTestRouter(adminDeps(&fakeProfileSvc{}), "")
	if w := doJSON(t, r, http.MethodPut, "/api/admin/users/not-a-uuid/tier", UpdateTierRequest{Tier: "pro"}, key); w.Code != http.StatusBadRequest {
		t.Fatalf("bad uuid: %d", w.Code)
	}

	r = newTestRouter(adminDeps(&fakeProfileSvc{err: services.ErrInvalidTier}), "")
	if w := doJSON(t, r, http.MethodPut, "/api/admin/users/"+id+"/tier", UpdateTierRequest{Tier: "gold"}, key); w.Code != http.StatusBadRequest {
		t.Fatalf("invalid tier: %d", w.Code)
	}

	r = newTestRouter(adminDeps(&fakeProfileSvc{err: services.ErrProfileNotFound}), "")
	if w := doJSON(t, r, http.MethodPut, "/api/admin/users/"+id+"/tier", UpdateTierRequest{Tier: "pro"}, key); w.Code != http.StatusNotFound {
		t.Fatalf("missing profile: %d", w.Code)
	}
}
