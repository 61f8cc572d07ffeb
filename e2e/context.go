//go:build e2e

package e2e

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"userconsole/internal/client"
	"userconsole/internal/console"
	"userconsole/internal/guard"
	"userconsole/internal/platform/health"
	"userconsole/internal/platform/metrics"
	"userconsole/internal/session"
	httptransport "userconsole/internal/transport/http"
	"userconsole/pkg/testutil/fakebackend"
)

// TestContext holds state between test steps
type TestContext struct {
	Backend          *fakebackend.Backend
	HTTPClient       *http.Client
	LastResponse     *http.Response
	LastResponseBody []byte

	api     *httptest.Server
	console *httptest.Server
}

// NewTestContext creates a new, unstarted test context
func NewTestContext() *TestContext {
	return &TestContext{}
}

// Start brings up a fake user backend and a console in front of it, and
// gives the scenario a fresh browser.
func (tc *TestContext) Start() error {
	tc.Backend = fakebackend.New()
	tc.api = httptest.NewServer(tc.Backend.Handler())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	deps := httptransport.Deps{
		Sessions: session.NewMemoryBackend(),
		Client: client.Config{
			BaseURL: tc.api.URL + "/api",
			Timeout: 5 * time.Second,
			Metrics: m,
			Logger:  logger,
		},
		Guard:    guard.New(m, logger),
		Flights:  console.NewFlights(),
		Metrics:  m,
		Health:   health.New("e2e"),
		Gatherer: reg,
		Logger:   logger,
	}
	h, err := httptransport.NewHandler(deps)
	if err != nil {
		tc.api.Close()
		return fmt.Errorf("failed to build console: %w", err)
	}
	tc.console = httptest.NewServer(httptransport.NewRouter(h, deps))

	jar, err := cookiejar.New(nil)
	if err != nil {
		tc.Close()
		return err
	}
	tc.HTTPClient = &http.Client{
		Jar:     jar,
		Timeout: 10 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	tc.LastResponse = nil
	tc.LastResponseBody = nil
	return nil
}

// Close stops both servers.
func (tc *TestContext) Close() {
	if tc.console != nil {
		tc.console.Close()
	}
	if tc.api != nil {
		tc.api.Close()
	}
}

// GET makes a GET request and stores the response
func (tc *TestContext) GET(path string) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, tc.console.URL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	return tc.do(req)
}

// POSTForm submits a form the way a browser does and stores the response
func (tc *TestContext) POSTForm(path string, form url.Values) error {
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, tc.console.URL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return tc.do(req)
}

// FollowRedirect loads the page the last response redirected to.
func (tc *TestContext) FollowRedirect() error {
	location := tc.RedirectLocation()
	if location == "" {
		return fmt.Errorf("expected a redirect but got status %d", tc.GetLastResponseStatus())
	}
	return tc.GET(location)
}

func (tc *TestContext) do(req *http.Request) error {
	resp, err := tc.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}

	tc.LastResponse = resp
	tc.LastResponseBody, err = io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	return nil
}

// ResponseContains checks if the page contains the text
func (tc *TestContext) ResponseContains(text string) bool {
	return strings.Contains(string(tc.LastResponseBody), text)
}

// RedirectLocation is the Location of a 3xx response, or "".
func (tc *TestContext) RedirectLocation() string {
	if tc.LastResponse == nil || tc.LastResponse.StatusCode < 300 || tc.LastResponse.StatusCode >= 400 {
		return ""
	}
	return tc.LastResponse.Header.Get("Location")
}

func (tc *TestContext) GetBackend() *fakebackend.Backend {
	return tc.Backend
}

func (tc *TestContext) GetLastResponseStatus() int {
	if tc.LastResponse == nil {
		return 0
	}
	return tc.LastResponse.StatusCode
}

func (tc *TestContext) GetLastResponseBody() []byte {
	return tc.LastResponseBody
}
