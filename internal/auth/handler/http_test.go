package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	accountdomain "taskhub/backend/internal/account/domain"
	"taskhub/backend/internal/auth/service"
	"taskhub/backend/internal/security"
	sessiondomain "taskhub/backend/internal/session/domain"
	sessionrepo "taskhub/backend/internal/session/repository"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAccounts struct {
	byEmail map[string]*accountdomain.Account
}

func (r *fakeAccounts) GetByEmail(ctx context.Context, email string) (*accountdomain.Account, error) {
	return r.byEmail[email], nil
}

func (r *fakeAccounts) GetByID(ctx context.Context, id string) (*accountdomain.Account, error) {
	for _, a := range r.byEmail {
		if a.ID == id {
			return a, nil
		}
	}
	return nil, nil
}

type fakeSessions struct {
	mu   sync.Mutex
	rows map[string]*sessiondomain.Session
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{rows: map[string]*sessiondomain.Session{}}
}

func (r *fakeSessions) Create(ctx context.Context, s *sessiondomain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *s
	r.rows[s.ID] = &cp
	return nil
}

func (r *fakeSessions) GetByID(ctx context.Context, id string) (*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok {
		return nil, nil
	}
	cp := *s
	return &cp, nil
}

func (r *fakeSessions) ListActiveByUser(ctx context.Context, userID string) ([]*sessiondomain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*sessiondomain.Session
	for _, s := range r.rows {
		if s.UserID == userID && s.State == sessiondomain.StateActive {
			cp := *s
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *fakeSessions) Transition(ctx context.Context, id string, from, to sessiondomain.State, fields sessionrepo.TransitionFields) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.rows[id]
	if !ok || s.State != from {
		return sessionrepo.ErrConflict
	}
	s.State = to
	s.SuccessorID = fields.SuccessorID
	s.Reason = fields.Reason
	terminated := fields.TerminatedAt
	s.TerminatedAt = &terminated
	return nil
}

func (r *fakeSessions) UpdateLastUsed(ctx context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := r.rows[id]; ok {
		s.LastUsedAt = &at
	}
	return nil
}

type denyThrottle struct{}

func (denyThrottle) Allow(ctx context.Context, userID, ip string, now time.Time) (bool, time.Duration, error) {
	return false, 15 * time.Minute, nil
}

type env struct {
	router   *gin.Engine
	sessions *fakeSessions
}

func newEnv(t *testing.T, throttle service.LoginThrottle) *env {
	t.Helper()
	hasher := security.NewHasher(4)
	tokens, err := security.NewTestTokenProvider()
	if err != nil {
		t.Fatalf("test token provider: %v", err)
	}
	hash, err := hasher.Hash([]byte("hunter2-correct"))
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	accounts := &fakeAccounts{byEmail: map[string]*accountdomain.Account{
		"alice@example.com": {ID: "user-alice", Email: "alice@example.com", PasswordHash: hash, Role: "client", Verified: true},
		"bob@example.com":   {ID: "user-bob", Email: "bob@example.com", PasswordHash: hash, Role: "client", Verified: false},
	}}
	sessions := newFakeSessions()
	svc := service.NewAuthService(accounts, sessions, hasher, tokens, nil, nil, throttle, time.Hour, 5)

	r := gin.New()
	NewAuthHandler(svc).Register(r.Group("/v1/auth"), RequireAuth(tokens))
	return &env{router: r, sessions: sessions}
}

func (e *env) post(path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decodeTokens(t *testing.T, w *httptest.ResponseRecorder) (access, refresh string) {
	t.Helper()
	var body struct {
		AccessToken  string `json:"access_token"`
		RefreshToken string `json:"refresh_token"`
		SessionID    string `json:"session_id"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.AccessToken == "" || body.RefreshToken == "" || body.SessionID == "" {
		t.Fatalf("incomplete token response: %s", w.Body.String())
	}
	return body.AccessToken, body.RefreshToken
}

func TestLogin_Success(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post("/v1/auth/login", gin.H{"email": "alice@example.com", "password": "hunter2-correct"}, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", w.Code, w.Body.String())
	}
	decodeTokens(t, w)
}

func TestLogin_WrongPasswordAndUnknownAccountLookAlike(t *testing.T) {
	e := newEnv(t, nil)
	wrong := e.post("/v1/auth/login", gin.H{"email": "alice@example.com", "password": "nope"}, nil)
	unknown := e.post("/v1/auth/login", gin.H{"email": "ghost@example.com", "password": "nope"}, nil)

	if wrong.Code != http.StatusUnauthorized || unknown.Code != http.StatusUnauthorized {
		t.Fatalf("statuses = %d, %d, want 401, 401", wrong.Code, unknown.Code)
	}
	if wrong.Body.String() != unknown.Body.String() {
		t.Errorf("responses differ: %q vs %q", wrong.Body.String(), unknown.Body.String())
	}
}

func TestLogin_UnverifiedAccountForbidden(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post("/v1/auth/login", gin.H{"email": "bob@example.com", "password": "hunter2-correct"}, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", w.Code)
	}
}

func TestLogin_ThrottledReturnsRetryAfter(t *testing.T) {
	e := newEnv(t, denyThrottle{})
	w := e.post("/v1/auth/login", gin.H{"email": "alice@example.com", "password": "hunter2-correct"}, nil)
	if w.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", w.Code)
	}
	if w.Header().Get("Retry-After") == "" {
		t.Error("Retry-After header should be set")
	}
}

func TestRefresh_RotatesThenReplayIsContained(t *testing.T) {
	e := newEnv(t, nil)
	login := e.post("/v1/auth/login", gin.H{"email": "alice@example.com", "password": "hunter2-correct"}, nil)
	_, refresh1 := decodeTokens(t, login)

	first := e.post("/v1/auth/refresh", gin.H{"refresh_token": refresh1}, nil)
	if first.Code != http.StatusOK {
		t.Fatalf("first refresh status = %d: %s", first.Code, first.Body.String())
	}
	_, refresh2 := decodeTokens(t, first)
	if refresh2 == refresh1 {
		t.Fatal("rotation should issue a new refresh token")
	}

	replay := e.post("/v1/auth/refresh", gin.H{"refresh_token": refresh1}, nil)
	if replay.Code != http.StatusUnauthorized {
		t.Fatalf("replay status = %d, want 401", replay.Code)
	}
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(replay.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Error != "session invalidated, please log in again" {
		t.Errorf("replay error = %q", body.Error)
	}

	// Cascade revocation killed the successor too.
	after := e.post("/v1/auth/refresh", gin.H{"refresh_token": refresh2}, nil)
	if after.Code != http.StatusUnauthorized {
		t.Fatalf("post-cascade refresh status = %d, want 401", after.Code)
	}
}

func TestRefresh_MalformedTokenRejected(t *testing.T) {
	e := newEnv(t, nil)
	w := e.post("/v1/auth/refresh", gin.H{"refresh_token": "no-dot-here"}, nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", w.Code)
	}
}

func TestLogout_RevokesSession(t *testing.T) {
	e := newEnv(t, nil)
	login := e.post("/v1/auth/login", gin.H{"email": "alice@example.com", "password": "hunter2-correct"}, nil)
	access, refresh := decodeTokens(t, login)

	w := e.post("/v1/auth/logout", gin.H{"refresh_token": refresh},
		map[string]string{"Authorization": "Bearer " + access})
	if w.Code != http.StatusOK {
		t.Fatalf("logout status = %d: %s", w.Code, w.Body.String())
	}

	reuse := e.post("/v1/auth/refresh", gin.H{"refresh_token": refresh}, nil)
	if reuse.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after logout status = %d, want 401", reuse.Code)
	}
}

func TestRevokeAll_KillsEverySession(t *testing.T) {
	e := newEnv(t, nil)
	login1 := e.post("/v1/auth/login", gin.H{"email": "alice@example.com", "password": "hunter2-correct", "device_key": "laptop"}, nil)
	access, _ := decodeTokens(t, login1)
	login2 := e.post("/v1/auth/login", gin.H{"email": "alice@example.com", "password": "hunter2-correct", "device_key": "phone"}, nil)
	_, refresh2 := decodeTokens(t, login2)

	w := e.post("/v1/auth/revoke-all", nil, map[string]string{"Authorization": "Bearer " + access})
	if w.Code != http.StatusOK {
		t.Fatalf("revoke-all status = %d: %s", w.Code, w.Body.String())
	}

	active, _ := e.sessions.ListActiveByUser(context.Background(), "user-alice")
	if len(active) != 0 {
		t.Errorf("active sessions after revoke-all = %d, want 0", len(active))
	}
	reuse := e.post("/v1/auth/refresh", gin.H{"refresh_token": refresh2}, nil)
	if reuse.Code != http.StatusUnauthorized {
		t.Fatalf("refresh after revoke-all status = %d, want 401", reuse.Code)
	}
}

func TestDeriveDeviceKey(t *testing.T) {
	if deriveDeviceKey("") != "unknown-device" {
		t.Error("empty user agent should map to unknown-device")
	}
	a := deriveDeviceKey("Mozilla/5.0")
	b := deriveDeviceKey("Mozilla/5.0")
	c := deriveDeviceKey("curl/8.0")
	if a != b {
		t.Error("same user agent should derive the same key")
	}
	if a == c {
		t.Error("different user agents should derive different keys")
	}
	if len(a) != 32 {
		t.Errorf("derived key length = %d, want 32", len(a))
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"Bearer abc":  "abc",
		"bearer abc":  "abc",
		"Bearer  abc": "abc",
		"Basic abc":   "",
		"Bearer":      "",
		"":            "",
	}
	for header, want := range cases {
		if got := bearerToken(header); got != want {
			t.Errorf("bearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
