// Package fakebackend is an in-process stand-in for the validator backend's
// auth routes. Tests use it to drive the client end to end, including
// scripted failures that imitate a cold-starting server.
package fakebackend

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/me/startupval/pkg/model"
)

// Hang is a scripted status that holds the request open until the client
// gives up or the backend closes.
const Hang = 0

const tokenTTL = 30 * 24 * time.Hour

type account struct {
	user model.User
	hash []byte
}

// Backend is a running fake server.
type Backend struct {
	URL string

	server *httptest.Server
	secret []byte
	closed chan struct{}

	mu       sync.Mutex
	accounts map[string]*account
	faults   map[string][]int
	hits     map[string]int
	probes   int
	lastAuth map[string]string
}

// Start launches a Backend on a loopback port.
func Start() *Backend {
	b := &Backend{
		secret:   []byte(uuid.NewString()),
		closed:   make(chan struct{}),
		accounts: make(map[string]*account),
		faults:   make(map[string][]int),
		hits:     make(map[string]int),
		lastAuth: make(map[string]string),
	}
	b.server = httptest.NewServer(b.routes())
	b.URL = b.server.URL
	return b
}

// Close releases hanging requests and shuts the server down.
func (b *Backend) Close() {
	close(b.closed)
	b.server.Close()
}

// Fail queues statuses to answer the next requests to path with, before
// normal handling resumes. Use Hang to simulate a timeout.
func (b *Backend) Fail(path string, statuses ...int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.faults[path] = append(b.faults[path], statuses...)
}

// Hits returns how many requests reached path, scripted failures included.
func (b *Backend) Hits(path string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.hits[path]
}

// Probes returns how many wake probes (GET /) were received.
func (b *Backend) Probes() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.probes
}

// LastAuthorization returns the Authorization header of the last request to path.
func (b *Backend) LastAuthorization(path string) string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAuth[path]
}

// AddUser registers an account directly, bypassing HTTP.
func (b *Backend) AddUser(name, email, password string, role model.Role) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.accounts[strings.ToLower(email)] = &account{
		user: model.User{ID: uuid.NewString(), Name: name, Email: email, Role: role},
		hash: hash,
	}
	return nil
}

func (b *Backend) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(b.record, b.faultInjector)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("Startup Idea Validator API is running..."))
	})
	r.Route("/api/auth", func(r chi.Router) {
		r.Post("/register", b.handleRegister)
		r.Post("/login", b.handleLogin)
		r.Get("/me", b.handleMe)
	})
	return r
}

func (b *Backend) record(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.hits[r.URL.Path]++
		b.lastAuth[r.URL.Path] = r.Header.Get("Authorization")
		if r.URL.Path == "/" {
			b.probes++
		}
		b.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func (b *Backend) faultInjector(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		queue := b.faults[r.URL.Path]
		status, scripted := -1, len(queue) > 0
		if scripted {
			status = queue[0]
			b.faults[r.URL.Path] = queue[1:]
		}
		b.mu.Unlock()

		switch {
		case !scripted:
			next.ServeHTTP(w, r)
		case status == Hang:
			select {
			case <-r.Context().Done():
			case <-b.closed:
			}
		default:
			writeError(w, status, http.StatusText(status))
		}
	})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req model.Registration
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Please provide name, email and password")
		return
	}
	role := req.Role
	if role == "" {
		role = model.RoleUser
	}

	b.mu.Lock()
	_, exists := b.accounts[strings.ToLower(req.Email)]
	b.mu.Unlock()
	if exists {
		writeError(w, http.StatusConflict, "User already exists")
		return
	}
	if err := b.AddUser(req.Name, req.Email, req.Password, role); err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	b.writeSession(w, http.StatusCreated, req.Email)
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req model.Credentials
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	b.mu.Lock()
	acct := b.accounts[strings.ToLower(req.Email)]
	b.mu.Unlock()
	if acct == nil || bcrypt.CompareHashAndPassword(acct.hash, []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	b.writeSession(w, http.StatusOK, req.Email)
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		writeError(w, http.StatusUnauthorized, "Not authorized, no token")
		return
	}
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return b.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authorized, token failed")
		return
	}

	b.mu.Lock()
	var user *model.User
	for _, acct := range b.accounts {
		if acct.user.ID == claims.Subject {
			u := acct.user
			user = &u
		}
	}
	b.mu.Unlock()
	if user == nil {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (b *Backend) writeSession(w http.ResponseWriter, status int, email string) {
	b.mu.Lock()
	user := b.accounts[strings.ToLower(email)].user
	b.mu.Unlock()

	now := time.Now()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   user.ID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
	}).SignedString(b.secret)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Server error")
		return
	}

	writeJSON(w, status, model.Session{User: user, Token: token})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, model.ErrorBody{Message: message})
}
