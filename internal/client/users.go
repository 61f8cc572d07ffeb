package client

import (
	"context"
	"net/http"
	"strconv"

	"userconsole/internal/models"
)

// Users covers the current user's profile and admin user management.
type Users interface {
	Me(ctx context.Context) (*models.User, error)
	// UpdateProfile returns the saved record, or nil when the backend does
	// not echo it.
	UpdateProfile(ctx context.Context, req ProfileUpdate) (*models.User, error)
	List(ctx context.Context) ([]models.User, error)
	Get(ctx context.Context, id int64) (*models.User, error)
	Update(ctx context.Context, id int64, req UserUpdate) (*models.User, error)
	Delete(ctx context.Context, id int64) (string, error)
	ToggleStatus(ctx context.Context, id int64) (*models.User, error)
}

type ProfileUpdate struct {
	FullName string `json:"fullName"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

// UserUpdate carries admin edits; empty fields are left unchanged.
type UserUpdate struct {
	Username string        `json:"username,omitempty"`
	Email    string        `json:"email,omitempty"`
	FullName string        `json:"fullName,omitempty"`
	Role     models.Role   `json:"role,omitempty"`
	Status   models.Status `json:"status,omitempty"`
}

type usersClient struct {
	client *BaseClient
}

func NewUsers(client *BaseClient) Users {
	return &usersClient{client: client}
}

func userPath(id int64) string {
	return "/v1/users/" + strconv.FormatInt(id, 10)
}

func (c *usersClient) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if _, err := c.client.Do(ctx, Request{
		Operation: "users.me",
		Method:    http.MethodGet,
		Path:      "/v1/users/me",
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *usersClient) UpdateProfile(ctx context.Context, req ProfileUpdate) (*models.User, error) {
	var user *models.User
	if _, err := c.client.Do(ctx, Request{
		Operation: "users.update_profile",
		Method:    http.MethodPut,
		Path:      "/users/profile",
		Body:      req,
	}, &user); err != nil {
		return nil, err
	}
	return user, nil
}

func (c *usersClient) List(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	if _, err := c.client.Do(ctx, Request{
		Operation: "users.list",
		Method:    http.MethodGet,
		Path:      "/v1/users",
	}, &users); err != nil {
		return nil, err
	}
	return users, nil
}

func (c *usersClient) Get(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if _, err := c.client.Do(ctx, Request{
		Operation: "users.get",
		Method:    http.MethodGet,
		Path:      userPath(id),
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *usersClient) Update(ctx context.Context, id int64, req UserUpdate) (*models.User, error) {
	var user models.User
	if _, err := c.client.Do(ctx, Request{
		Operation: "users.update",
		Method:    http.MethodPut,
		Path:      userPath(id),
		Body:      req,
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// Delete returns the backend's confirmation message.
func (c *usersClient) Delete(ctx context.Context, id int64) (string, error) {
	return c.client.Do(ctx, Request{
		Operation: "users.delete",
		Method:    http.MethodDelete,
		Path:      userPath(id),
	}, nil)
}

func (c *usersClient) ToggleStatus(ctx context.Context, id int64) (*models.User, error) {
	var user models.User
	if _, err := c.client.Do(ctx, Request{
		Operation: "users.toggle_status",
		Method:    http.MethodPatch,
		Path:      userPath(id) + "/toggle-status",
	}, &user); err != nil {
		return nil, err
	}
	return &user, nil
}
