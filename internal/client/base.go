// Package client talks to the user-management REST backend. Every call goes
// through BaseClient, which attaches the session's bearer token, decodes the
// response envelope once, and de-authenticates the session on 401/403.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"userconsole/internal/platform/tracer"
	"userconsole/internal/session"
	"userconsole/pkg/platform/circuit"
	"userconsole/pkg/platform/privacy"
	"userconsole/pkg/requestcontext"
)

const maxResponseBytes = 1 << 20

// Outcome labels for metrics and spans.
const (
	OutcomeSuccess      = "success"
	OutcomeBusiness     = "business_error"
	OutcomeUnauthorized = "unauthorized"
	OutcomeTransport    = "transport_error"
)

// HTTPDoer is the subset of *http.Client the client needs.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// SessionStore is the part of the session store the client reads and clears.
type SessionStore interface {
	Get(ctx context.Context) (*session.Session, error)
	Clear(ctx context.Context) error
}

// Navigator moves the user to the login view after a forced logout.
type Navigator interface {
	ToLogin(ctx context.Context, reason string)
}

// NavigatorFunc adapts a function to Navigator.
type NavigatorFunc func(ctx context.Context, reason string)

func (f NavigatorFunc) ToLogin(ctx context.Context, reason string) {
	f(ctx, reason)
}

// Metrics records backend call outcomes.
type Metrics interface {
	ObserveBackendCall(operation, outcome string, durationSeconds float64)
	IncrementForcedLogouts()
}

// Config is shared by every BaseClient built for the same backend.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient HTTPDoer
	Tracer     tracer.Tracer
	Metrics    Metrics
	Breaker    *circuit.Breaker
	Logger     *slog.Logger
	UserAgent  string
}

// BaseClient is bound to one session store and one navigator.
type BaseClient struct {
	baseURL   string
	timeout   time.Duration
	http      HTTPDoer
	store     SessionStore
	nav       Navigator
	tracer    tracer.Tracer
	metrics   Metrics
	breaker   *circuit.Breaker
	logger    *slog.Logger
	userAgent string
}

func NewBaseClient(cfg Config, store SessionStore, nav Navigator) *BaseClient {
	c := &BaseClient{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		timeout:   cfg.Timeout,
		http:      cfg.HTTPClient,
		store:     store,
		nav:       nav,
		tracer:    cfg.Tracer,
		metrics:   cfg.Metrics,
		breaker:   cfg.Breaker,
		logger:    cfg.Logger,
		userAgent: cfg.UserAgent,
	}
	if c.http == nil {
		c.http = &http.Client{}
	}
	if c.tracer == nil {
		c.tracer = tracer.NewNoop()
	}
	if c.logger == nil {
		c.logger = slog.New(slog.DiscardHandler)
	}
	if c.userAgent == "" {
		c.userAgent = "userconsole"
	}
	return c
}

// Request describes one backend call.
type Request struct {
	Operation string
	Method    string
	Path      string
	Body      any
}

// Do performs the call and decodes envelope data into out (which may be nil).
// It returns the envelope message on success.
func (c *BaseClient) Do(ctx context.Context, req Request, out any) (string, error) {
	start := time.Now()
	ctx, span := c.tracer.Start(ctx, tracer.SpanBackendPrefix+req.Operation,
		tracer.String(tracer.AttrHTTPMethod, req.Method),
		tracer.String(tracer.AttrHTTPPath, req.Path),
	)

	msg, status, err := c.do(ctx, req, out, span)

	outcome := outcomeOf(err)
	span.SetAttributes(tracer.String(tracer.AttrOutcome, outcome))
	if status != 0 {
		span.SetAttributes(tracer.Int(tracer.AttrHTTPStatus, status))
	}
	span.End(err)
	if c.metrics != nil {
		c.metrics.ObserveBackendCall(req.Operation, outcome, time.Since(start).Seconds())
	}
	return msg, err
}

func (c *BaseClient) do(ctx context.Context, req Request, out any, span tracer.Span) (string, int, error) {
	if c.breaker != nil && !c.breaker.Allow() {
		span.SetAttributes(tracer.Bool(tracer.AttrBreakerRejects, true))
		return "", 0, c.transportError(req.Operation, 0, ErrBackendUnavailable)
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		if c.breaker != nil {
			c.breaker.Release()
		}
		return "", 0, c.transportError(req.Operation, 0, err)
	}
	span.SetAttributes(tracer.Bool(tracer.AttrAuthenticated, httpReq.Header.Get("Authorization") != ""))

	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.recordTransport(ctx, false)
		return "", 0, c.transportError(req.Operation, 0, fmt.Errorf("%s %s: %w", req.Method, req.Path, err))
	}
	defer resp.Body.Close() //nolint:errcheck // read-only body

	body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))

	// A rejection de-authenticates even when its body is unreadable.
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		c.recordTransport(ctx, true)
		if readErr != nil {
			body = nil
		}
		span.AddEvent(tracer.EventSessionCleared)
		return "", resp.StatusCode, c.deauthorize(ctx, req.Operation, resp.StatusCode, body)
	}

	if readErr != nil {
		c.recordTransport(ctx, false)
		return "", resp.StatusCode, c.transportError(req.Operation, resp.StatusCode, fmt.Errorf("read response: %w", readErr))
	}
	c.recordTransport(ctx, resp.StatusCode < http.StatusInternalServerError)

	env, ok := parseEnvelope(body)
	if !ok {
		return "", resp.StatusCode, c.transportError(req.Operation, resp.StatusCode,
			fmt.Errorf("unexpected %s response body", http.StatusText(resp.StatusCode)))
	}

	if !env.succeeded() || resp.StatusCode >= http.StatusBadRequest {
		return "", resp.StatusCode, &Error{
			Kind:      KindBusiness,
			Operation: req.Operation,
			Status:    resp.StatusCode,
			Code:      env.code(),
			Message:   env.userMessage(),
		}
	}

	if out != nil && env.hasData() {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return "", resp.StatusCode, c.transportError(req.Operation, resp.StatusCode, fmt.Errorf("decode data: %w", err))
		}
	}
	return env.Message, resp.StatusCode, nil
}

func (c *BaseClient) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if id := requestcontext.RequestID(ctx); id != "" {
		httpReq.Header.Set("X-Request-ID", id)
	}
	if token := c.token(ctx); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}
	return httpReq, nil
}

// token returns the stored bearer token, or "" to proceed unauthenticated.
func (c *BaseClient) token(ctx context.Context) string {
	sess, err := c.store.Get(ctx)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			c.logger.WarnContext(ctx, "session read failed, calling backend unauthenticated",
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
		}
		return ""
	}
	return sess.Token
}

// deauthorize is the global 401/403 handler: clear the session, send the
// user to login, and report KindUnauthorized.
func (c *BaseClient) deauthorize(ctx context.Context, op string, status int, body []byte) error {
	var fingerprint string
	if sess, err := c.store.Get(ctx); err == nil {
		fingerprint = privacy.TokenFingerprint(sess.Token)
	}
	if err := c.store.Clear(ctx); err != nil {
		c.logger.ErrorContext(ctx, "failed to clear session after rejection",
			"operation", op,
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
	}
	if c.metrics != nil {
		c.metrics.IncrementForcedLogouts()
	}

	reason := SessionExpiredMessage
	code := ""
	if env, ok := parseEnvelope(body); ok {
		if msg := env.userMessage(); msg != GenericMessage {
			reason = msg
		}
		code = env.code()
	}

	c.logger.InfoContext(ctx, "backend rejected session, forcing login",
		"operation", op,
		"status", status,
		"token_fp", fingerprint,
		"request_id", requestcontext.RequestID(ctx),
	)
	if c.nav != nil {
		c.nav.ToLogin(ctx, reason)
	}
	return &Error{
		Kind:      KindUnauthorized,
		Operation: op,
		Status:    status,
		Code:      code,
		Message:   reason,
	}
}

func (c *BaseClient) transportError(op string, status int, err error) error {
	return &Error{
		Kind:      KindTransport,
		Operation: op,
		Status:    status,
		Message:   GenericMessage,
		Err:       err,
	}
}

// recordTransport feeds the breaker: network failures and 5xx count against
// the backend, anything it answered sensibly counts for it.
func (c *BaseClient) recordTransport(ctx context.Context, healthy bool) {
	if c.breaker == nil {
		return
	}
	if healthy {
		if change := c.breaker.RecordSuccess(); change.Closed {
			c.logger.InfoContext(ctx, "backend circuit closed", "breaker", c.breaker.Name())
			c.setBreakerGauge(false)
		}
		return
	}
	if change := c.breaker.RecordFailure(); change.Opened {
		c.logger.WarnContext(ctx, "backend circuit opened", "breaker", c.breaker.Name())
		c.setBreakerGauge(true)
	}
}

type breakerGauge interface {
	SetBreakerOpen(open bool)
}

func (c *BaseClient) setBreakerGauge(open bool) {
	if g, ok := c.metrics.(breakerGauge); ok {
		g.SetBreakerOpen(open)
	}
}

func outcomeOf(err error) string {
	switch KindOf(err) {
	case "":
		if err != nil {
			return OutcomeTransport
		}
		return OutcomeSuccess
	case KindUnauthorized:
		return OutcomeUnauthorized
	case KindBusiness:
		return OutcomeBusiness
	default:
		return OutcomeTransport
	}
}
