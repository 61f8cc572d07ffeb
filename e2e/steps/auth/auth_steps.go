//go:build e2e

package auth

import (
	"context"
	"net/url"

	"github.com/cucumber/godog"

	"userconsole/pkg/testutil/fakebackend"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POSTForm(path string, form url.Values) error
	GetBackend() *fakebackend.Backend
}

// RegisterSteps registers login, registration and logout steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &authSteps{tc: tc}

	ctx.Step(`^I log in as "([^"]*)" with password "([^"]*)"$`, steps.logIn)
	ctx.Step(`^I log in as the administrator$`, steps.logInAsAdmin)
	ctx.Step(`^I log in as a regular user$`, steps.logInAsUser)
	ctx.Step(`^I register "([^"]*)" named "([^"]*)" with email "([^"]*)" and password "([^"]*)"$`, steps.register)
	ctx.Step(`^I log out$`, steps.logOut)
	ctx.Step(`^the backend revokes every issued token$`, steps.revokeAll)
}

type authSteps struct {
	tc TestContext
}

func (s *authSteps) logIn(ctx context.Context, username, password string) error {
	return s.tc.POSTForm("/login", url.Values{
		"username": {username},
		"password": {password},
	})
}

func (s *authSteps) logInAsAdmin(ctx context.Context) error {
	return s.logIn(ctx, "admin", fakebackend.AdminPassword)
}

func (s *authSteps) logInAsUser(ctx context.Context) error {
	return s.logIn(ctx, "user1", fakebackend.UserPassword)
}

func (s *authSteps) register(ctx context.Context, username, fullName, email, password string) error {
	return s.tc.POSTForm("/register", url.Values{
		"username": {username},
		"fullName": {fullName},
		"email":    {email},
		"password": {password},
	})
}

func (s *authSteps) logOut(ctx context.Context) error {
	return s.tc.POSTForm("/logout", url.Values{})
}

func (s *authSteps) revokeAll(ctx context.Context) error {
	s.tc.GetBackend().RevokeAll()
	return nil
}
