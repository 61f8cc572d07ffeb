package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultPort       = "8081"
	defaultSigningKey = "user-backend-signing-key"
	defaultTokenTTL   = "3600"
	defaultLatencyMs  = "0"
)

var (
	signingKey = []byte(getEnv("SIGNING_KEY", defaultSigningKey))
	tokenTTL   = time.Duration(getEnvInt("TOKEN_TTL_SECONDS", defaultTokenTTL)) * time.Second
	latencyMs  = getEnvInt("LATENCY_MS", defaultLatencyMs)
)

// User is the record the console receives. Roles mirrors role the way the
// Spring backend sends both.
type User struct {
	ID        int64    `json:"userId"`
	Username  string   `json:"username"`
	FullName  string   `json:"fullName"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone,omitempty"`
	Role      string   `json:"role"`
	Roles     []string `json:"roles"`
	Status    string   `json:"status"`
	CreatedAt string   `json:"createdAt"`
	password  string
}

// Envelope wraps every response.
type Envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Data    any    `json:"data,omitempty"`
}

type LoginResponse struct {
	Token     string `json:"token"`
	TokenType string `json:"tokenType"`
	ExpiresIn int64  `json:"expiresIn"`
	User      User   `json:"user"`
}

type store struct {
	mu     sync.Mutex
	users  map[int64]*User
	nextID int64
}

func newStore() *store {
	created := time.Now().UTC().Format("2006-01-02T15:04:05")
	return &store{
		users: map[int64]*User{
			1: {ID: 1, Username: "admin", FullName: "System Administrator", Email: "admin@example.com", Role: "ADMIN", Roles: []string{"ROLE_ADMIN"}, Status: "ACTIVE", CreatedAt: created, password: "admin123"},
			2: {ID: 2, Username: "user1", FullName: "John Doe", Email: "john@example.com", Role: "USER", Roles: []string{"ROLE_USER"}, Status: "ACTIVE", CreatedAt: created, password: "password123"},
			3: {ID: 3, Username: "user2", FullName: "Jane Smith", Email: "jane@example.com", Role: "USER", Roles: []string{"ROLE_USER"}, Status: "INACTIVE", CreatedAt: created, password: "password123"},
		},
		nextID: 4,
	}
}

func (s *store) byUsername(name string) *User {
	for _, u := range s.users {
		if u.Username == name {
			return u
		}
	}
	return nil
}

func (s *store) emailTaken(email string, except int64) bool {
	for _, u := range s.users {
		if u.ID != except && strings.EqualFold(u.Email, email) {
			return true
		}
	}
	return false
}

func (s *store) sorted() []User {
	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		out = append(out, *u)
	}
	slices.SortFunc(out, func(a, b User) int { return int(a.ID - b.ID) })
	return out
}

func main() {
	port := getEnv("PORT", defaultPort)
	s := newStore()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", handleHealth)
	mux.HandleFunc("POST /api/v1/auth/register", s.handleRegister)
	mux.HandleFunc("POST /api/v1/auth/login", s.handleLogin)
	mux.HandleFunc("GET /api/v1/users/me", s.authenticated("", s.handleMe))
	mux.HandleFunc("PUT /api/users/profile", s.authenticated("", s.handleUpdateProfile))
	mux.HandleFunc("GET /api/v1/users", s.authenticated("ADMIN", s.handleList))
	mux.HandleFunc("GET /api/v1/users/{id}", s.authenticated("ADMIN", s.handleGet))
	mux.HandleFunc("PUT /api/v1/users/{id}", s.authenticated("ADMIN", s.handleUpdate))
	mux.HandleFunc("DELETE /api/v1/users/{id}", s.authenticated("ADMIN", s.handleDelete))
	mux.HandleFunc("PATCH /api/v1/users/{id}/toggle-status", s.authenticated("ADMIN", s.handleToggle))

	log.Printf("Mock user backend starting on port %s", port)
	log.Printf("Seeded accounts: admin/admin123, user1/password123, user2/password123 (inactive)")
	log.Printf("Token TTL: %s, simulated latency: %dms", tokenTTL, latencyMs)

	if err := http.ListenAndServe(":"+port, withLatency(mux)); err != nil {
		log.Fatal(err)
	}
}

func withLatency(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if latencyMs > 0 {
			time.Sleep(time.Duration(latencyMs) * time.Millisecond)
		}
		log.Printf("%s %s", r.Method, r.URL.Path)
		next.ServeHTTP(w, r)
	})
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":  "healthy",
		"service": "user-backend",
		"version": "1.0.0",
	})
}

// authenticated checks the bearer token and, when role is set, the caller's
// current role.
func (s *store) authenticated(role string, next func(http.ResponseWriter, *http.Request, *User)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !ok || raw == "" {
			sendError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Full authentication is required to access this resource")
			return
		}
		id, err := verifyToken(raw)
		if err != nil {
			sendError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Your session has expired. Please log in again.")
			return
		}
		s.mu.Lock()
		defer s.mu.Unlock()
		caller, ok := s.users[id]
		if !ok || caller.Status != "ACTIVE" {
			sendError(w, http.StatusUnauthorized, "INVALID_TOKEN", "Your session has expired. Please log in again.")
			return
		}
		if role != "" && caller.Role != role {
			sendError(w, http.StatusForbidden, "ACCESS_DENIED", "Access denied")
			return
		}
		next(w, r, caller)
	}
}

func (s *store) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Email    string `json:"email"`
		FullName string `json:"fullName"`
		Phone    string `json:"phone"`
	}
	if !decode(w, r, &req) {
		return
	}
	switch {
	case len(req.Username) < 3 || len(req.Username) > 50:
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Username must be between 3 and 50 characters")
		return
	case len(req.Password) < 6:
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Password must be at least 6 characters")
		return
	case !strings.Contains(req.Email, "@"):
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Email should be valid")
		return
	case strings.TrimSpace(req.FullName) == "":
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Full name is required")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.byUsername(req.Username) != nil {
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Username already exists")
		return
	}
	if s.emailTaken(req.Email, 0) {
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Email already exists")
		return
	}
	u := &User{
		ID:        s.nextID,
		Username:  req.Username,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      "USER",
		Roles:     []string{"ROLE_USER"},
		Status:    "ACTIVE",
		CreatedAt: time.Now().UTC().Format("2006-01-02T15:04:05"),
		password:  req.Password,
	}
	s.users[u.ID] = u
	s.nextID++
	writeJSON(w, http.StatusCreated, Envelope{Success: true, Message: "User registered successfully", Data: *u})
}

func (s *store) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if !decode(w, r, &req) {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	u := s.byUsername(req.Username)
	if u == nil || !hmac.Equal([]byte(u.password), []byte(req.Password)) {
		sendError(w, http.StatusUnauthorized, "AUTHENTICATION_FAILED", "Invalid username or password")
		return
	}
	if u.Status != "ACTIVE" {
		sendError(w, http.StatusForbidden, "ACCOUNT_DISABLED", "Account is disabled")
		return
	}
	writeJSON(w, http.StatusOK, Envelope{
		Success: true,
		Message: "Login successful",
		Data: LoginResponse{
			Token:     issueToken(u.ID),
			TokenType: "Bearer",
			ExpiresIn: int64(tokenTTL / time.Second),
			User:      *u,
		},
	})
}

func (s *store) handleMe(w http.ResponseWriter, _ *http.Request, caller *User) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: *caller})
}

func (s *store) handleUpdateProfile(w http.ResponseWriter, r *http.Request, caller *User) {
	var req struct {
		FullName string `json:"fullName"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
	}
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.FullName) == "" || !strings.Contains(req.Email, "@") {
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Full name and a valid email are required")
		return
	}
	if s.emailTaken(req.Email, caller.ID) {
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Email already in use")
		return
	}
	caller.FullName = req.FullName
	caller.Email = req.Email
	caller.Phone = req.Phone
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "Profile updated successfully", Data: *caller})
}

func (s *store) handleList(w http.ResponseWriter, _ *http.Request, _ *User) {
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: s.sorted()})
}

// target resolves {id}, answering 400 or 404 itself.
func (s *store) target(w http.ResponseWriter, r *http.Request) (*User, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid user id")
		return nil, false
	}
	u, ok := s.users[id]
	if !ok {
		sendError(w, http.StatusNotFound, "NOT_FOUND", "User not found")
		return nil, false
	}
	return u, true
}

func (s *store) handleGet(w http.ResponseWriter, r *http.Request, _ *User) {
	u, ok := s.target(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Data: *u})
}

func (s *store) handleUpdate(w http.ResponseWriter, r *http.Request, _ *User) {
	u, ok := s.target(w, r)
	if !ok {
		return
	}
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		FullName string `json:"fullName"`
		Role     string `json:"role"`
		Status   string `json:"status"`
	}
	if !decode(w, r, &req) {
		return
	}
	if req.Role != "" && req.Role != "USER" && req.Role != "ADMIN" {
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Role must be USER or ADMIN")
		return
	}
	if req.Status != "" && req.Status != "ACTIVE" && req.Status != "INACTIVE" {
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Status must be ACTIVE or INACTIVE")
		return
	}
	if req.Username != "" && req.Username != u.Username && s.byUsername(req.Username) != nil {
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Username already exists")
		return
	}
	if req.Email != "" && s.emailTaken(req.Email, u.ID) {
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Email already in use")
		return
	}
	if req.Username != "" {
		u.Username = req.Username
	}
	if req.Email != "" {
		u.Email = req.Email
	}
	if req.FullName != "" {
		u.FullName = req.FullName
	}
	if req.Role != "" {
		u.Role = req.Role
		u.Roles = []string{"ROLE_" + req.Role}
	}
	if req.Status != "" {
		u.Status = req.Status
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "User updated successfully", Data: *u})
}

func (s *store) handleDelete(w http.ResponseWriter, r *http.Request, caller *User) {
	u, ok := s.target(w, r)
	if !ok {
		return
	}
	if u.ID == caller.ID {
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "You cannot delete your own account")
		return
	}
	delete(s.users, u.ID)
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "User deleted successfully"})
}

func (s *store) handleToggle(w http.ResponseWriter, r *http.Request, caller *User) {
	u, ok := s.target(w, r)
	if !ok {
		return
	}
	if u.ID == caller.ID {
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "You cannot change the status of your own account")
		return
	}
	if u.Status == "ACTIVE" {
		u.Status = "INACTIVE"
	} else {
		u.Status = "ACTIVE"
	}
	writeJSON(w, http.StatusOK, Envelope{Success: true, Message: "User status updated successfully", Data: *u})
}

// Tokens are HS256 JWTs with sub and exp claims.

var b64 = base64.RawURLEncoding

type claims struct {
	Sub string `json:"sub"`
	Iat int64  `json:"iat"`
	Exp int64  `json:"exp"`
}

func issueToken(id int64) string {
	now := time.Now()
	header := b64.EncodeToString([]byte(`{"alg":"HS256","typ":"JWT"}`))
	payload, _ := json.Marshal(claims{
		Sub: strconv.FormatInt(id, 10),
		Iat: now.Unix(),
		Exp: now.Add(tokenTTL).Unix(),
	})
	unsigned := header + "." + b64.EncodeToString(payload)
	return unsigned + "." + sign(unsigned)
}

func sign(unsigned string) string {
	mac := hmac.New(sha256.New, signingKey)
	mac.Write([]byte(unsigned))
	return b64.EncodeToString(mac.Sum(nil))
}

func verifyToken(token string) (int64, error) {
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return 0, errors.New("malformed token")
	}
	if !hmac.Equal([]byte(sign(parts[0]+"."+parts[1])), []byte(parts[2])) {
		return 0, errors.New("bad signature")
	}
	raw, err := b64.DecodeString(parts[1])
	if err != nil {
		return 0, err
	}
	var c claims
	if err := json.Unmarshal(raw, &c); err != nil {
		return 0, err
	}
	if time.Now().Unix() >= c.Exp {
		return 0, errors.New("token expired")
	}
	return strconv.ParseInt(c.Sub, 10, 64)
}

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(dst); err != nil {
		sendError(w, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode response: %v", err)
	}
}

func sendError(w http.ResponseWriter, code int, kind, message string) {
	writeJSON(w, code, Envelope{Error: kind, Message: message})
	log.Printf("error response: %d %s - %s", code, kind, message)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key, defaultValue string) int {
	value := getEnv(key, defaultValue)
	intValue, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("invalid integer value for %s, using default: %s", key, defaultValue)
		intValue, _ = strconv.Atoi(defaultValue)
	}
	return intValue
}
