package console

import (
	"context"
	"fmt"

	"userconsole/internal/client"
	"userconsole/internal/session"
	"userconsole/pkg/validation"
)

// RegisteredNotice is shown after a successful registration, when the page
// switches back to login mode.
const RegisteredNotice = "Registration successful! Please login."

// AuthView is the login/register page.
type AuthView struct {
	Register bool
	Login    LoginForm
	Signup   RegisterForm
	Errors   validation.FieldErrors
	Error    string
	Notice   string
}

// LoginPage is the empty auth page in the requested mode.
func LoginPage(register bool) *AuthView {
	return &AuthView{Register: register}
}

// Login authenticates and stores the token and user together. A failed
// login returns the page with an inline message and nil error; only store
// failures are returned as errors.
func (c *Console) Login(ctx context.Context, form LoginForm) (*session.Session, *AuthView, error) {
	form.normalize()
	view := &AuthView{Login: LoginForm{Username: form.Username}}

	fe, err := fieldErrors(form)
	if err != nil {
		return nil, nil, err
	}
	if fe != nil {
		c.metrics.IncrementLogins("invalid")
		view.Errors = fe
		return nil, view, nil
	}

	key := submissionKey(c.store.Namespace(), "login", form)
	sess, err := collapse(ctx, c.flights, key, func() (*session.Session, error) {
		result, err := c.auth.Login(ctx, client.LoginRequest{Username: form.Username, Password: form.Password})
		if err != nil {
			return nil, err
		}
		sess := session.Session{Token: result.Token, User: &result.User}
		if err := c.store.Set(ctx, sess); err != nil {
			return nil, fmt.Errorf("store session: %w", err)
		}
		return &sess, nil
	})
	c.metrics.IncrementLogins(outcome(err))
	if err != nil {
		if client.KindOf(err) == "" {
			return nil, nil, err
		}
		view.Error = client.Message(err)
		return nil, view, nil
	}

	c.logger.InfoContext(ctx, "user logged in",
		"user_id", sess.User.ID,
		"role", sess.User.Role,
	)
	return sess, nil, nil
}

// Register creates an account. On success the returned view is the login
// mode with RegisteredNotice and the username carried over.
func (c *Console) Register(ctx context.Context, form RegisterForm) (*AuthView, error) {
	form.normalize()
	failed := &AuthView{
		Register: true,
		Signup:   RegisterForm{Username: form.Username, FullName: form.FullName, Email: form.Email, Phone: form.Phone},
	}

	fe, err := fieldErrors(form)
	if err != nil {
		return nil, err
	}
	if fe != nil {
		failed.Errors = fe
		return failed, nil
	}

	key := submissionKey(c.store.Namespace(), "register", form)
	_, err = collapse(ctx, c.flights, key, func() (string, error) {
		return c.auth.Register(ctx, client.RegisterRequest{
			Username: form.Username,
			Password: form.Password,
			Email:    form.Email,
			FullName: form.FullName,
			Phone:    form.Phone,
		})
	})
	c.metrics.IncrementUserAction("register", outcome(err))
	if err != nil {
		if client.KindOf(err) == "" {
			return nil, err
		}
		failed.Error = client.Message(err)
		return failed, nil
	}

	c.logger.InfoContext(ctx, "user registered", "username", form.Username)
	return &AuthView{Login: LoginForm{Username: form.Username}, Notice: RegisteredNotice}, nil
}

// Logout clears the session. It is safe without a session.
func (c *Console) Logout(ctx context.Context) error {
	if err := c.auth.Logout(ctx); err != nil {
		return fmt.Errorf("logout: %w", err)
	}
	c.metrics.IncrementLogouts()
	c.logger.InfoContext(ctx, "user logged out")
	return nil
}
