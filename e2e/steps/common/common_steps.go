//go:build e2e

package common

import (
	"context"
	"fmt"
	"regexp"
	"strconv"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	FollowRedirect() error
	ResponseContains(text string) bool
	RedirectLocation() string
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background steps
	ctx.Step(`^the user console is running$`, steps.consoleIsRunning)

	// Navigation steps
	ctx.Step(`^I visit "([^"]*)"$`, steps.visit)
	ctx.Step(`^I follow the redirect$`, steps.followRedirect)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^I should be redirected to "([^"]*)"$`, steps.shouldBeRedirectedTo)
	ctx.Step(`^the page should contain "([^"]*)"$`, steps.pageShouldContain)
	ctx.Step(`^the page should not contain "([^"]*)"$`, steps.pageShouldNotContain)
	ctx.Step(`^the (total|active|inactive) user count should be (\d+)$`, steps.userCountShouldBe)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) consoleIsRunning(ctx context.Context) error {
	return nil
}

func (s *commonSteps) visit(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) followRedirect(ctx context.Context) error {
	return s.tc.FollowRedirect()
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := s.tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d", expectedStatus, actualStatus)
	}
	return nil
}

func (s *commonSteps) shouldBeRedirectedTo(ctx context.Context, location string) error {
	actual := s.tc.RedirectLocation()
	if actual != location {
		return fmt.Errorf("expected redirect to %q but got %q (status %d)", location, actual, s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *commonSteps) pageShouldContain(ctx context.Context, text string) error {
	if !s.tc.ResponseContains(text) {
		return fmt.Errorf("page does not contain %q\nResponse: %s", text, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) pageShouldNotContain(ctx context.Context, text string) error {
	if s.tc.ResponseContains(text) {
		return fmt.Errorf("page unexpectedly contains %q", text)
	}
	return nil
}

var statPattern = regexp.MustCompile(`class="stat-(total|active|inactive)">[A-Za-z]+ <strong>(\d+)</strong>`)

func (s *commonSteps) userCountShouldBe(ctx context.Context, stat string, expected int) error {
	for _, m := range statPattern.FindAllSubmatch(s.tc.GetLastResponseBody(), -1) {
		if string(m[1]) != stat {
			continue
		}
		actual, err := strconv.Atoi(string(m[2]))
		if err != nil {
			return err
		}
		if actual != expected {
			return fmt.Errorf("expected %s count %d but got %d", stat, expected, actual)
		}
		return nil
	}
	return fmt.Errorf("page shows no %s count", stat)
}
