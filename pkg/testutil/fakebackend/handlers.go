package fakebackend

import (
	"net/http"
	"strings"
	"time"
)

type registerRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone"`
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResponse struct {
	Token     string  `json:"token"`
	TokenType string  `json:"tokenType"`
	ExpiresIn int64   `json:"expiresIn"`
	User      Account `json:"user"`
}

type profileRequest struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

type updateRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     string `json:"role"`
	Status   string `json:"status"`
}

func badRequest(w http.ResponseWriter, msg string) {
	writeEnvelope(w, http.StatusBadRequest, envelope{Error: "VALIDATION_ERROR", Message: msg})
}

func notFound(w http.ResponseWriter) {
	writeEnvelope(w, http.StatusNotFound, envelope{Error: "NOT_FOUND", Message: "User not found"})
}

func (b *Backend) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	switch {
	case len(req.Username) < 3 || len(req.Username) > 50:
		badRequest(w, "Username must be between 3 and 50 characters")
		return
	case len(req.Password) < 6:
		badRequest(w, "Password must be at least 6 characters")
		return
	case !strings.Contains(req.Email, "@"):
		badRequest(w, "Email should be valid")
		return
	case strings.TrimSpace(req.FullName) == "":
		badRequest(w, "Full name is required")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.findByUsername(req.Username) != nil {
		badRequest(w, "Username already exists")
		return
	}
	if b.emailTaken(req.Email, 0) {
		badRequest(w, "Email already exists")
		return
	}
	a := &Account{
		ID:        b.nextID,
		Username:  req.Username,
		FullName:  req.FullName,
		Email:     req.Email,
		Phone:     req.Phone,
		Role:      "USER",
		Roles:     []string{"ROLE_USER"},
		Status:    "ACTIVE",
		CreatedAt: b.now().UTC().Format("2006-01-02T15:04:05"),
		password:  req.Password,
	}
	b.accounts[a.ID] = a
	b.nextID++
	writeEnvelope(w, http.StatusCreated, envelope{Message: "User registered successfully", Data: *a})
}

func (b *Backend) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !decode(w, r, &req) {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a := b.findByUsername(req.Username)
	if a == nil || a.password != req.Password {
		writeEnvelope(w, http.StatusUnauthorized, envelope{Error: "AUTHENTICATION_FAILED", Message: "Invalid username or password"})
		return
	}
	if a.Status != "ACTIVE" {
		writeEnvelope(w, http.StatusForbidden, envelope{Error: "ACCOUNT_DISABLED", Message: "Account is disabled"})
		return
	}
	writeEnvelope(w, http.StatusOK, envelope{
		Message: "Login successful",
		Data: loginResponse{
			Token:     b.issue(a),
			TokenType: "Bearer",
			ExpiresIn: int64(b.tokenTTL / time.Second),
			User:      *a,
		},
	})
}

func (b *Backend) handleMe(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[b.caller(r)]
	if !ok {
		notFound(w)
		return
	}
	writeEnvelope(w, http.StatusOK, envelope{Data: *a})
}

func (b *Backend) handleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req profileRequest
	if !decode(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.FullName) == "" || !strings.Contains(req.Email, "@") {
		badRequest(w, "Full name and a valid email are required")
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[b.caller(r)]
	if !ok {
		notFound(w)
		return
	}
	if b.emailTaken(req.Email, a.ID) {
		badRequest(w, "Email already in use")
		return
	}
	a.FullName = req.FullName
	a.Email = req.Email
	a.Phone = req.Phone
	writeEnvelope(w, http.StatusOK, envelope{Message: "Profile updated successfully", Data: *a})
}

func (b *Backend) handleList(w http.ResponseWriter, _ *http.Request) {
	b.mu.Lock()
	defer b.mu.Unlock()
	writeEnvelope(w, http.StatusOK, envelope{Data: b.sorted()})
}

func (b *Backend) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[id]
	if !ok {
		notFound(w)
		return
	}
	writeEnvelope(w, http.StatusOK, envelope{Data: *a})
}

func (b *Backend) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Role != "" && req.Role != "USER" && req.Role != "ADMIN" {
		badRequest(w, "Role must be USER or ADMIN")
		return
	}
	if req.Status != "" && req.Status != "ACTIVE" && req.Status != "INACTIVE" {
		badRequest(w, "Status must be ACTIVE or INACTIVE")
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	a, ok := b.accounts[id]
	if !ok {
		notFound(w)
		return
	}
	if req.Username != "" && req.Username != a.Username && b.findByUsername(req.Username) != nil {
		badRequest(w, "Username already exists")
		return
	}
	if req.Email != "" && b.emailTaken(req.Email, id) {
		badRequest(w, "Email already in use")
		return
	}
	if req.Username != "" {
		a.Username = req.Username
	}
	if req.Email != "" {
		a.Email = req.Email
	}
	if req.FullName != "" {
		a.FullName = req.FullName
	}
	if req.Role != "" {
		a.Role = req.Role
		a.Roles = []string{"ROLE_" + req.Role}
	}
	if req.Status != "" {
		a.Status = req.Status
	}
	writeEnvelope(w, http.StatusOK, envelope{Message: "User updated successfully", Data: *a})
}

func (b *Backend) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if id == b.caller(r) {
		badRequest(w, "You cannot delete your own account")
		return
	}
	if _, ok := b.accounts[id]; !ok {
		notFound(w)
		return
	}
	delete(b.accounts, id)
	writeEnvelope(w, http.StatusOK, envelope{Message: "User deleted successfully"})
}

func (b *Backend) handleToggle(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if id == b.caller(r) {
		badRequest(w, "You cannot change the status of your own account")
		return
	}
	a, ok := b.accounts[id]
	if !ok {
		notFound(w)
		return
	}
	if a.Status == "ACTIVE" {
		a.Status = "INACTIVE"
	} else {
		a.Status = "ACTIVE"
	}
	writeEnvelope(w, http.StatusOK, envelope{Message: "User status updated successfully", Data: *a})
}
