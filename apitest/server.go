// Package apitest runs an in-process stand-in for the remote schools API so
// the client, loader and web layers can be tested end to end.
package apitest

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/zalepa/escolas/school"
)

var signingKey = []byte("apitest-secret")

// Server is a fake API. Users registered through /auth/register (or seeded
// with AddUser) can log in; /schools requires a Bearer token it issued.
type Server struct {
	*httptest.Server

	mu            sync.Mutex
	users         map[string]string
	schools       []school.School
	schoolsBody   string
	schoolsStatus int
	delay         time.Duration

	requests       atomic.Int64
	schoolRequests atomic.Int64
	lastAuth       atomic.Value
}

// New starts a fake API serving schools.
func New(schools []school.School) *Server {
	s := &Server{
		users:   make(map[string]string),
		schools: schools,
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/auth/login", s.login)
	mux.HandleFunc("/auth/register", s.register)
	mux.HandleFunc("/schools", s.listSchools)
	s.Server = httptest.NewServer(s.count(mux))
	return s
}

// AddUser seeds an account.
func (s *Server) AddUser(email, password string) {
	s.mu.Lock()
	s.users[email] = password
	s.mu.Unlock()
}

// HasUser reports whether email is registered.
func (s *Server) HasUser(email string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.users[email]
	return ok
}

// SetSchoolsBody makes /schools write body verbatim instead of the schools
// slice. An empty body restores the default.
func (s *Server) SetSchoolsBody(body string) {
	s.mu.Lock()
	s.schoolsBody = body
	s.mu.Unlock()
}

// SetSchoolsStatus makes /schools fail with status. Zero restores 200.
func (s *Server) SetSchoolsStatus(status int) {
	s.mu.Lock()
	s.schoolsStatus = status
	s.mu.Unlock()
}

// SetDelay makes /schools wait d before answering, or until the request is
// cancelled.
func (s *Server) SetDelay(d time.Duration) {
	s.mu.Lock()
	s.delay = d
	s.mu.Unlock()
}

// Requests is the number of requests served on any path.
func (s *Server) Requests() int64 { return s.requests.Load() }

// SchoolRequests is the number of requests made to /schools.
func (s *Server) SchoolRequests() int64 { return s.schoolRequests.Load() }

// LastAuthorization is the Authorization header of the latest request.
func (s *Server) LastAuthorization() string {
	v, _ := s.lastAuth.Load().(string)
	return v
}

// Token issues a valid token for email, as /auth/login would.
func (s *Server) Token(email string) string {
	claims := jwt.RegisteredClaims{
		Subject:   email,
		IssuedAt:  jwt.NewNumericDate(time.Now()),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey)
	if err != nil {
		panic(err)
	}
	return tok
}

func (s *Server) count(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.requests.Add(1)
		s.lastAuth.Store(r.Header.Get("Authorization"))
		next.ServeHTTP(w, r)
	})
}

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	pw, ok := s.users[c.Email]
	s.mu.Unlock()
	if !ok || pw != c.Password {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid credentials"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": s.Token(c.Email)})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var c credentials
	if err := json.NewDecoder(r.Body).Decode(&c); err != nil || c.Email == "" {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	s.mu.Lock()
	_, exists := s.users[c.Email]
	if !exists {
		s.users[c.Email] = c.Password
	}
	s.mu.Unlock()
	if exists {
		writeJSON(w, http.StatusConflict, map[string]string{"error": "email already registered"})
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"email": c.Email})
}

func (s *Server) listSchools(w http.ResponseWriter, r *http.Request) {
	s.schoolRequests.Add(1)

	auth := r.Header.Get("Authorization")
	raw, ok := strings.CutPrefix(auth, "Bearer ")
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
		return
	}
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (any, error) {
		return signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil || !tok.Valid {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		return
	}

	s.mu.Lock()
	delay, status, body, out := s.delay, s.schoolsStatus, s.schoolsBody, s.schools
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-r.Context().Done():
			return
		}
	}

	if status != 0 {
		writeJSON(w, status, map[string]string{"error": "upstream failure"})
		return
	}
	if body != "" {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
		return
	}
	writeJSON(w, http.StatusOK, out)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
