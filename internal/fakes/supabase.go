// Package fakes serves an in-process stand-in for the hosted identity
// provider and its verification-code functions, for tests.
package fakes

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	AnonKey = "anon-test-key"
	// IssuedCode is the one-time code every send delivers.
	IssuedCode = "111111"
)

// Account is a registered user of the fake provider.
type Account struct {
	ID        string
	Email     string
	Password  string
	FullName  string
	Phone     string
	Confirmed bool
	CreatedAt time.Time
}

// Supabase is an httptest server speaking the auth REST API and the
// send-verification-code / verify-code functions.
type Supabase struct {
	mu       sync.Mutex
	srv      *httptest.Server
	accounts map[string]*Account
	access   map[string]string
	refresh  map[string]string
	issued   map[string]string

	sendStatus int
	sends      int
	verifies   int
	logouts    int
}

// NewSupabase starts a server that is closed when t finishes.
func NewSupabase(t testing.TB) *Supabase {
	t.Helper()
	s := &Supabase{
		accounts: map[string]*Account{},
		access:   map[string]string{},
		refresh:  map[string]string{},
		issued:   map[string]string{},
	}
	s.srv = httptest.NewServer(s.routes())
	t.Cleanup(s.srv.Close)
	return s
}

func (s *Supabase) URL() string { return s.srv.URL }

// FailSends makes every later send call answer with status. Zero restores
// normal behaviour.
func (s *Supabase) FailSends(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sendStatus = status
}

// Sends counts send-verification-code calls.
func (s *Supabase) Sends() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sends
}

func (s *Supabase) Verifies() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.verifies
}

func (s *Supabase) Logouts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.logouts
}

// AddAccount registers a. An empty ID gets a random UUID.
func (s *Supabase) AddAccount(a Account) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}
	acc := a
	s.accounts[strings.ToLower(a.Email)] = &acc
	return &acc
}

// Account returns the account registered under email, or nil.
func (s *Supabase) Account(email string) *Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return nil
	}
	cp := *acc
	return &cp
}

func (s *Supabase) Confirm(email string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if acc, ok := s.accounts[strings.ToLower(email)]; ok {
		acc.Confirmed = true
	}
}

// IssueTokens creates a session for the account, as a confirmation link does.
func (s *Supabase) IssueTokens(email string) (access, refresh string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return "", ""
	}
	return s.issueLocked(acc.ID)
}

func (s *Supabase) issueLocked(userID string) (string, string) {
	access, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": userID,
		"exp": time.Now().Add(time.Hour).Unix(),
		"jti": uuid.NewString(),
	}).SignedString([]byte("fake-signing-key"))
	if err != nil {
		panic(err)
	}
	refresh := uuid.NewString()
	s.access[access] = userID
	s.refresh[refresh] = userID
	return access, refresh
}

func (s *Supabase) byID(id string) *Account {
	for _, acc := range s.accounts {
		if acc.ID == id {
			return acc
		}
	}
	return nil
}

func (s *Supabase) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /auth/v1/token", s.token)
	mux.HandleFunc("GET /auth/v1/user", s.user)
	mux.HandleFunc("POST /auth/v1/signup", s.signup)
	mux.HandleFunc("POST /auth/v1/logout", s.logout)
	mux.HandleFunc("POST /functions/v1/send-verification-code", s.sendCode)
	mux.HandleFunc("POST /functions/v1/verify-code", s.verifyCode)
	return mux
}

func (s *Supabase) token(w http.ResponseWriter, r *http.Request) {
	if r.Header.Get("apikey") != AnonKey {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Invalid API key"})
		return
	}
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)

	s.mu.Lock()
	defer s.mu.Unlock()

	var acc *Account
	switch r.URL.Query().Get("grant_type") {
	case "password":
		acc = s.accounts[strings.ToLower(body["email"])]
		if acc == nil || acc.Password != body["password"] {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":             "invalid_grant",
				"error_description": "Invalid login credentials",
			})
			return
		}
		if !acc.Confirmed {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":             "invalid_grant",
				"error_description": "Email not confirmed",
			})
			return
		}
	case "refresh_token":
		id, ok := s.refresh[body["refresh_token"]]
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]any{"msg": "Invalid Refresh Token: Refresh Token Not Found"})
			return
		}
		delete(s.refresh, body["refresh_token"])
		acc = s.byID(id)
	default:
		writeJSON(w, http.StatusBadRequest, map[string]any{"msg": "unsupported grant_type"})
		return
	}

	now := time.Now()
	last := now.UTC()
	access, refresh := s.issueLocked(acc.ID)
	user := userJSON(acc)
	user["last_sign_in_at"] = last
	writeJSON(w, http.StatusOK, map[string]any{
		"access_token":  access,
		"token_type":    "bearer",
		"expires_in":    3600,
		"expires_at":    now.Add(time.Hour).Unix(),
		"refresh_token": refresh,
		"user":          user,
	})
}

func (s *Supabase) user(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc := s.bearerLocked(r)
	if acc == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"code": 401, "msg": "invalid JWT"})
		return
	}
	writeJSON(w, http.StatusOK, userJSON(acc))
}

func (s *Supabase) signup(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Email    string            `json:"email"`
		Password string            `json:"password"`
		Data     map[string]string `json:"data"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"msg": "bad body"})
		return
	}
	if len(body.Password) < 6 {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"msg": "Password should be at least 6 characters."})
		return
	}
	if s.Account(body.Email) != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"msg": "User already registered"})
		return
	}
	acc := s.AddAccount(Account{
		Email:    body.Email,
		Password: body.Password,
		FullName: body.Data["full_name"],
		Phone:    body.Data["phone_number"],
	})
	writeJSON(w, http.StatusOK, userJSON(acc))
}

func (s *Supabase) logout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logouts++
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	delete(s.access, token)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Supabase) sendCode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sends++
	if s.bearerLocked(r) == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
		return
	}
	if s.sendStatus != 0 {
		w.Header().Set("Content-Type", "text/plain")
		w.WriteHeader(s.sendStatus)
		_, _ = w.Write([]byte("upstream sms gateway error"))
		return
	}
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	s.issued[body["phone"]] = IssuedCode
	writeJSON(w, http.StatusOK, map[string]any{"success": true})
}

func (s *Supabase) verifyCode(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.verifies++
	if s.bearerLocked(r) == nil {
		writeJSON(w, http.StatusUnauthorized, map[string]any{"error": "Unauthorized"})
		return
	}
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	code, ok := s.issued[body["phone"]]
	if !ok || code != body["code"] {
		writeJSON(w, http.StatusBadRequest, map[string]any{"error": "Invalid verification code"})
		return
	}
	delete(s.issued, body["phone"])
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "verified": true})
}

func (s *Supabase) bearerLocked(r *http.Request) *Account {
	token := strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	id, ok := s.access[token]
	if !ok {
		return nil
	}
	return s.byID(id)
}

func userJSON(acc *Account) map[string]any {
	out := map[string]any{
		"id":         acc.ID,
		"email":      acc.Email,
		"created_at": acc.CreatedAt,
		"updated_at": acc.CreatedAt,
		"user_metadata": map[string]any{
			"full_name":    acc.FullName,
			"phone_number": acc.Phone,
		},
	}
	if acc.Confirmed {
		at := acc.CreatedAt.Add(time.Minute)
		out["email_confirmed_at"] = at
		out["confirmed_at"] = at
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
