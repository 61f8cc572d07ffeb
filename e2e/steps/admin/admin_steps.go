//go:build e2e

package admin

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/cucumber/godog"

	"userconsole/pkg/testutil/fakebackend"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POSTForm(path string, form url.Values) error
	GetBackend() *fakebackend.Backend
}

// RegisterSteps registers user administration steps
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &adminSteps{tc: tc}

	ctx.Step(`^I search users for "([^"]*)" with role "([^"]*)"$`, steps.searchUsers)
	ctx.Step(`^I toggle the status of user (\d+)$`, steps.toggleStatus)
	ctx.Step(`^I delete user (\d+)$`, steps.deleteUser)
	ctx.Step(`^I change user (\d+) to role "([^"]*)"$`, steps.changeRole)
	ctx.Step(`^the backend changes user (\d+) to role "([^"]*)"$`, steps.backendSetsRole)
	ctx.Step(`^user (\d+) should be "([^"]*)" in the backend$`, steps.userShouldHaveStatus)
	ctx.Step(`^user (\d+) should no longer exist in the backend$`, steps.userShouldBeGone)
}

type adminSteps struct {
	tc TestContext
}

func (s *adminSteps) searchUsers(ctx context.Context, query, role string) error {
	q := url.Values{"q": {query}, "role": {role}}
	return s.tc.GET("/users?" + q.Encode())
}

func (s *adminSteps) toggleStatus(ctx context.Context, id int64) error {
	return s.tc.POSTForm(fmt.Sprintf("/users/%d/toggle-status", id), url.Values{})
}

func (s *adminSteps) deleteUser(ctx context.Context, id int64) error {
	return s.tc.POSTForm(fmt.Sprintf("/users/%d/delete", id), url.Values{})
}

// changeRole submits the edit form the way the page renders it, with the
// untouched fields carried over from the backend record.
func (s *adminSteps) changeRole(ctx context.Context, id int64, role string) error {
	acct, ok := s.tc.GetBackend().Account(id)
	if !ok {
		return fmt.Errorf("user %d does not exist", id)
	}
	form := url.Values{
		"username":      {acct.Username},
		"email":         {acct.Email},
		"fullName":      {acct.FullName},
		"role":          {strings.ToUpper(role)},
		"status":        {acct.Status},
		"orig.username": {acct.Username},
		"orig.email":    {acct.Email},
		"orig.fullName": {acct.FullName},
		"orig.role":     {acct.Role},
		"orig.status":   {acct.Status},
	}
	return s.tc.POSTForm(fmt.Sprintf("/users/%d", id), form)
}

func (s *adminSteps) backendSetsRole(ctx context.Context, id int64, role string) error {
	s.tc.GetBackend().SetRole(id, role)
	return nil
}

func (s *adminSteps) userShouldHaveStatus(ctx context.Context, id int64, status string) error {
	acct, ok := s.tc.GetBackend().Account(id)
	if !ok {
		return fmt.Errorf("user %d does not exist", id)
	}
	if acct.Status != status {
		return fmt.Errorf("expected user %d to be %s but was %s", id, status, acct.Status)
	}
	return nil
}

func (s *adminSteps) userShouldBeGone(ctx context.Context, id int64) error {
	if _, ok := s.tc.GetBackend().Account(id); ok {
		return fmt.Errorf("user %d still exists", id)
	}
	return nil
}
