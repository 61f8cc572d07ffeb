// Package models holds the user record shared by the session store, the API
// client and the views.
package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Role is the single canonical role value of a user.
type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

// Status of an account.
type Status string

const (
	StatusActive   Status = "ACTIVE"
	StatusInactive Status = "INACTIVE"
)

// User is the cached identity record. The JSON form is what the session
// store persists under the "user" key, so marshalling must stay stable:
// unmarshal(marshal(u)) == u.
type User struct {
	ID        int64    `json:"userId"`
	Username  string   `json:"username"`
	FullName  string   `json:"fullName,omitempty"`
	Email     string   `json:"email,omitempty"`
	Phone     string   `json:"phone,omitempty"`
	Role      Role     `json:"role"`
	Roles     []string `json:"roles,omitempty"`
	Status    Status   `json:"status,omitempty"`
	CreatedAt string   `json:"createdAt,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// wireUser accepts every shape the backend has been seen to send: roles as
// strings or as {"authority": "ROLE_X"} objects, "id" instead of "userId",
// and the legacy isActive flag.
type wireUser struct {
	ID        *int64            `json:"userId"`
	LegacyID  *int64            `json:"id"`
	Username  string            `json:"username"`
	FullName  string            `json:"fullName"`
	Email     string            `json:"email"`
	Phone     string            `json:"phone"`
	Role      string            `json:"role"`
	Roles     []json.RawMessage `json:"roles"`
	Status    string            `json:"status"`
	IsActive  *bool             `json:"isActive"`
	CreatedAt json.RawMessage   `json:"createdAt"`
	UpdatedAt json.RawMessage   `json:"updatedAt"`
}

func (u *User) UnmarshalJSON(data []byte) error {
	var w wireUser
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	roles := make([]string, 0, len(w.Roles))
	for _, raw := range w.Roles {
		name, err := decodeRoleEntry(raw)
		if err != nil {
			return fmt.Errorf("decode roles: %w", err)
		}
		if name != "" {
			roles = append(roles, name)
		}
	}
	if len(roles) == 0 {
		roles = nil
	}

	*u = User{
		Username:  w.Username,
		FullName:  w.FullName,
		Email:     w.Email,
		Phone:     w.Phone,
		Roles:     roles,
		Role:      UnifyRole(w.Role, roles),
		Status:    unifyStatus(w.Status, w.IsActive),
		CreatedAt: decodeTimestamp(w.CreatedAt),
		UpdatedAt: decodeTimestamp(w.UpdatedAt),
	}
	switch {
	case w.ID != nil:
		u.ID = *w.ID
	case w.LegacyID != nil:
		u.ID = *w.LegacyID
	}
	return nil
}

func decodeRoleEntry(raw json.RawMessage) (string, error) {
	var name string
	if err := json.Unmarshal(raw, &name); err == nil {
		return name, nil
	}
	var authority struct {
		Authority string `json:"authority"`
	}
	if err := json.Unmarshal(raw, &authority); err != nil {
		return "", err
	}
	return authority.Authority, nil
}

// decodeTimestamp keeps strings as sent and renders Jackson's array form
// ([2024,1,15,10,30,0]) as an ISO local date-time.
func decodeTimestamp(raw json.RawMessage) string {
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var parts []int
	if err := json.Unmarshal(raw, &parts); err != nil || len(parts) < 3 {
		return ""
	}
	for len(parts) < 6 {
		parts = append(parts, 0)
	}
	t := time.Date(parts[0], time.Month(parts[1]), parts[2], parts[3], parts[4], parts[5], 0, time.UTC)
	return t.Format("2006-01-02T15:04:05")
}

// NormalizeRole trims the ROLE_ prefix and upper-cases.
func NormalizeRole(name string) Role {
	name = strings.ToUpper(strings.TrimSpace(name))
	return Role(strings.TrimPrefix(name, "ROLE_"))
}

// UnifyRole picks the canonical role: the explicit role when present, else
// ADMIN if any roles entry is admin, else the first entry, else USER.
func UnifyRole(explicit string, roles []string) Role {
	if r := NormalizeRole(explicit); r != "" {
		return r
	}
	var first Role
	for _, name := range roles {
		r := NormalizeRole(name)
		if r == RoleAdmin {
			return RoleAdmin
		}
		if first == "" {
			first = r
		}
	}
	if first != "" {
		return first
	}
	return RoleUser
}

func unifyStatus(status string, isActive *bool) Status {
	switch Status(strings.ToUpper(strings.TrimSpace(status))) {
	case StatusActive:
		return StatusActive
	case StatusInactive:
		return StatusInactive
	}
	if isActive != nil {
		if *isActive {
			return StatusActive
		}
		return StatusInactive
	}
	return ""
}

// IsAdmin reports whether the canonical role is ADMIN.
func (u User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Active treats an unknown status as active, the backend default for new
// accounts.
func (u User) Active() bool {
	return u.Status != StatusInactive
}

// DisplayName is the full name, falling back to the username.
func (u User) DisplayName() string {
	if strings.TrimSpace(u.FullName) != "" {
		return u.FullName
	}
	return u.Username
}

// Initial is the upper-cased first letter of the display name, for avatars.
func (u User) Initial() string {
	for _, r := range u.DisplayName() {
		return strings.ToUpper(string(r))
	}
	return "?"
}

// CreatedDate formats CreatedAt as a calendar date, or "-" when unknown.
func (u User) CreatedDate() string {
	if u.CreatedAt == "" {
		return "-"
	}
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999999", "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, u.CreatedAt); err == nil {
			return t.Format("2006-01-02")
		}
	}
	return u.CreatedAt
}
