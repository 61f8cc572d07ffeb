package client

import (
	"context"
	"errors"
	"net/http"

	"userconsole/internal/models"
)

var errMissingToken = errors.New("login response carried no token")

// Auth covers registration, login and logout.
type Auth interface {
	Register(ctx context.Context, req RegisterRequest) (string, error)
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	Logout(ctx context.Context) error
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Phone    string `json:"phone,omitempty"`
}

// LoginResult is the data of a successful login.
type LoginResult struct {
	Token     string      `json:"token"`
	TokenType string      `json:"tokenType"`
	ExpiresIn int64       `json:"expiresIn"`
	User      models.User `json:"user"`
}

type authClient struct {
	client *BaseClient
}

func NewAuth(client *BaseClient) Auth {
	return &authClient{client: client}
}

// Register returns the backend's confirmation message.
func (c *authClient) Register(ctx context.Context, req RegisterRequest) (string, error) {
	return c.client.Do(ctx, Request{
		Operation: "auth.register",
		Method:    http.MethodPost,
		Path:      "/v1/auth/register",
		Body:      req,
	}, nil)
}

// Login does not touch the session store; the caller persists the result.
func (c *authClient) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	var result LoginResult
	if _, err := c.client.Do(ctx, Request{
		Operation: "auth.login",
		Method:    http.MethodPost,
		Path:      "/v1/auth/login",
		Body:      req,
	}, &result); err != nil {
		return nil, err
	}
	if result.Token == "" {
		return nil, &Error{Kind: KindTransport, Operation: "auth.login", Message: GenericMessage, Err: errMissingToken}
	}
	return &result, nil
}

// Logout is local: the backend keeps no session state for bearer tokens.
func (c *authClient) Logout(ctx context.Context) error {
	return c.client.store.Clear(ctx)
}
