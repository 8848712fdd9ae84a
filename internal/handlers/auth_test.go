package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/podwave/backend/internal/auth"
	"github.com/podwave/backend/internal/models"
	"github.com/podwave/backend/internal/repositories"
)

type inMemoryUserStore struct {
	users map[string]models.User
}

func newInMemoryUserStore() *inMemoryUserStore {
	return &inMemoryUserStore{users: make(map[string]models.User)}
}

func (s *inMemoryUserStore) Create(_ context.Context, user models.User) error {
	if _, exists := s.users[user.Email]; exists {
		return repositories.ErrConflict
	}
	s.users[user.Email] = user
	return nil
}

func (s *inMemoryUserStore) FindByEmail(_ context.Context, email string) (models.User, error) {
	user, ok := s.users[email]
	if !ok {
		return models.User{}, repositories.ErrNotFound
	}
	return user, nil
}

func (s *inMemoryUserStore) FindByID(_ context.Context, id string) (models.User, error) {
	for _, user := range s.users {
		if user.ID == id {
			return user, nil
		}
	}
	return models.User{}, repositories.ErrNotFound
}

func newTestTokenManager(t *testing.T) *auth.TokenManager {
	t.Helper()
	return auth.NewTokenManager("test-secret", time.Hour)
}

func TestAuthHandlerRegister(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Tokens: newTestTokenManager(t)}

	body, err := json.Marshal(registerRequest{Email: "Test@Example.com", Password: "supersafe"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body))
	rec := httptest.NewRecorder()

	handler.Register(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d got %d", http.StatusCreated, rec.Code)
	}

	var resp registerResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.User.Email != "test@example.com" {
		t.Fatalf("expected normalized email, got %q", resp.User.Email)
	}
	if resp.User.ID == "" {
		t.Fatal("expected a user id in the response")
	}
	if strings.Contains(rec.Body.String(), "password") {
		t.Fatalf("response must not contain password material: %s", rec.Body.String())
	}

	stored, err := store.FindByEmail(context.Background(), "test@example.com")
	if err != nil {
		t.Fatalf("expected user to be stored: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("supersafe")) != nil {
		t.Fatal("stored password is not hashed")
	}
}

func TestAuthHandlerRegisterDuplicate(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Tokens: newTestTokenManager(t)}

	payload, err := json.Marshal(registerRequest{Email: "dupe@example.com", Password: "supersafe"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	first := httptest.NewRecorder()
	handler.Register(first, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(payload)))
	if first.Code != http.StatusCreated {
		t.Fatalf("expected first registration to succeed, got %d", first.Code)
	}

	second := httptest.NewRecorder()
	handler.Register(second, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(payload)))
	if second.Code != http.StatusConflict {
		t.Fatalf("expected status %d got %d", http.StatusConflict, second.Code)
	}
	if len(store.users) != 1 {
		t.Fatalf("expected one stored user, got %d", len(store.users))
	}
}

func TestAuthHandlerRegisterInvalidEmail(t *testing.T) {
	handler := AuthHandler{Users: newInMemoryUserStore(), Tokens: newTestTokenManager(t)}

	body, err := json.Marshal(registerRequest{Email: "not-an-email", Password: "supersafe"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.Register(rec, httptest.NewRequest(http.MethodPost, "/auth/register", bytes.NewReader(body)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestAuthHandlerLogin(t *testing.T) {
	store := newInMemoryUserStore()
	manager := newTestTokenManager(t)
	handler := AuthHandler{Users: store, Tokens: manager}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	store.users["login@example.com"] = models.User{ID: "user-1", Email: "login@example.com", Password: string(hashed)}

	body, err := json.Marshal(loginRequest{Email: "login@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp loginResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatal("expected a token to be issued")
	}

	userID, err := manager.Verify(resp.Token)
	if err != nil {
		t.Fatalf("issued token failed verification: %v", err)
	}
	if userID != "user-1" {
		t.Fatalf("expected token subject user-1, got %q", userID)
	}
}

func TestAuthHandlerLoginUnknownUser(t *testing.T) {
	handler := AuthHandler{Users: newInMemoryUserStore(), Tokens: newTestTokenManager(t)}

	body, err := json.Marshal(loginRequest{Email: "missing@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d got %d", http.StatusNotFound, rec.Code)
	}
}

func TestAuthHandlerLoginWrongPassword(t *testing.T) {
	store := newInMemoryUserStore()
	handler := AuthHandler{Users: store, Tokens: newTestTokenManager(t)}

	hashed, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	store.users["login@example.com"] = models.User{ID: "user-1", Email: "login@example.com", Password: string(hashed)}

	body, err := json.Marshal(loginRequest{Email: "login@example.com", Password: "wrong"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d got %d", http.StatusUnauthorized, rec.Code)
	}
}

type denyAllLimiter struct{}

func (denyAllLimiter) Allow(string) bool { return false }

func TestAuthHandlerLoginRateLimited(t *testing.T) {
	handler := AuthHandler{Users: newInMemoryUserStore(), Tokens: newTestTokenManager(t), Limiter: denyAllLimiter{}}

	body, err := json.Marshal(loginRequest{Email: "login@example.com", Password: "password123"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	rec := httptest.NewRecorder()
	handler.Login(rec, httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(body)))

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected status %d got %d", http.StatusTooManyRequests, rec.Code)
	}
}

func TestAuthHandlerMe(t *testing.T) {
	store := newInMemoryUserStore()
	manager := newTestTokenManager(t)
	store.users["me@example.com"] = models.User{ID: "user-9", Email: "me@example.com", Password: "hashed"}
	handler := AuthHandler{Users: store, Tokens: manager}

	token, err := manager.Issue("user-9")
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	RequireAuth(manager, handler.Me)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d got %d", http.StatusOK, rec.Code)
	}

	var resp meResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.User.ID != "user-9" || resp.User.Email != "me@example.com" {
		t.Fatalf("unexpected user payload: %+v", resp.User)
	}
}

func TestRequireAuthRejectsMissingAndInvalidTokens(t *testing.T) {
	manager := newTestTokenManager(t)
	next := func(http.ResponseWriter, *http.Request) {
		t.Fatal("next handler must not run")
	}

	rec := httptest.NewRecorder()
	RequireAuth(manager, next)(rec, httptest.NewRequest(http.MethodGet, "/auth/me", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d for missing header, got %d", http.StatusUnauthorized, rec.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/auth/me", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec = httptest.NewRecorder()
	RequireAuth(manager, next)(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d for invalid token, got %d", http.StatusUnauthorized, rec.Code)
	}
}
