// Package rest is the HTTP request wrapper shared by every connector.
//
// A Client joins a vendor base URL with an operation path, sends JSON,
// returns the raw JSON body on 2xx, and turns anything else into an
// *APIError. Responses with status 429 are retried with exponential
// backoff; every other failure surfaces immediately.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"golang.org/x/oauth2"

	"github.com/gorewood/patchbay/internal/output"
)

// maxResponseBody caps how much of a response is read.
const maxResponseBody = 32 << 20

// HTTPDoer defines the HTTP operations required by Client.
// This allows injection of test doubles for testing.
type HTTPDoer interface {
	Do(*http.Request) (*http.Response, error)
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	HTTPClient HTTPDoer
	Headers    map[string]string
	UserAgent  string
	Retry      RetryPolicy

	// Timer drives retry waits. Nil uses a real timer.
	Timer  backoff.Timer
	Logger zerolog.Logger

	// NotFoundCodes are vendor error codes that mean "not found" even when
	// the HTTP status is not 404.
	NotFoundCodes []string
}

// Client issues JSON requests against one vendor API.
type Client struct {
	base   string
	cfg    Config
	logger zerolog.Logger
}

// NewClient validates cfg and returns a Client.
func NewClient(cfg Config) (*Client, error) {
	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, output.NewConfigError(fmt.Sprintf("invalid base URL %q", cfg.BaseURL), err)
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	cfg.Retry = cfg.Retry.withDefaults()

	return &Client{
		base:   strings.TrimRight(cfg.BaseURL, "/"),
		cfg:    cfg,
		logger: cfg.Logger,
	}, nil
}

// BaseURL returns the vendor base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.base
}

// Request is one REST call.
type Request struct {
	Method string
	Path   string
	Query  url.Values

	// Body is JSON-encoded unless it is already json.RawMessage or []byte.
	Body any
}

// Response is a 2xx vendor response.
type Response struct {
	Status int
	Header http.Header
	Body   json.RawMessage
}

// Empty reports whether the response carried no body.
func (r *Response) Empty() bool {
	return len(bytes.TrimSpace(r.Body)) == 0
}

// Do performs req, retrying on HTTP 429 until the retry budget is spent.
// The final 429 is returned unchanged when retries run out.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	payload, err := encodeBody(req.Body)
	if err != nil {
		return nil, output.NewUserError(fmt.Sprintf("encoding request body: %v", err))
	}

	policy := c.cfg.Retry
	rl := newRateLimitBackOff(policy)
	b := backoff.WithContext(backoff.WithMaxRetries(rl, uint64(policy.MaxRetries)), ctx)

	attempt := 0
	var resp *Response
	operation := func() error {
		attempt++
		r, err := c.once(ctx, req, payload)
		if err == nil {
			resp = r
			return nil
		}
		var apiErr *APIError
		if errors.As(err, &apiErr) && errors.Is(apiErr, ErrRateLimited) {
			rl.observe(apiErr.RetryAfter)
			return err
		}
		return backoff.Permanent(err)
	}
	notify := func(err error, delay time.Duration) {
		c.logger.Warn().
			Int("attempt", attempt).
			Dur("delay", delay).
			Str("method", req.Method).
			Str("path", req.Path).
			Msg("rate limited, retrying")
	}

	if err := backoff.RetryNotifyWithTimer(operation, b, notify, c.cfg.Timer); err != nil {
		var coder output.ExitCoder
		if !errors.As(err, &coder) {
			// Context cancelled or deadline hit while waiting.
			return nil, output.NewSystemErrorWithCause(fmt.Sprintf("%s %s: %v", req.Method, req.Path, err), err)
		}
		return nil, err
	}
	return resp, nil
}

// Get is shorthand for a GET request.
func (c *Client) Get(ctx context.Context, path string, query url.Values) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query})
}

func (c *Client) once(ctx context.Context, req Request, payload []byte) (*Response, error) {
	target := c.base + req.Path
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to create request", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		httpReq.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	for key, value := range c.cfg.Headers {
		httpReq.Header.Set(key, value)
	}

	start := time.Now()
	httpResp, err := c.cfg.HTTPClient.Do(httpReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// The token endpoint answered; report it as a vendor response.
		var tokenErr *oauth2.RetrieveError
		if errors.As(err, &tokenErr) && tokenErr.Response != nil {
			return nil, c.newTokenError(req, tokenErr)
		}
		return nil, output.NewSystemErrorWithCause(fmt.Sprintf("%s %s: request failed: %v", req.Method, req.Path, err), err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to read response", err)
	}

	c.logger.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Int("status", httpResp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("request")

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		return nil, c.newAPIError(req, httpResp.StatusCode, httpResp.Header, respBody)
	}

	return &Response{
		Status: httpResp.StatusCode,
		Header: httpResp.Header,
		Body:   json.RawMessage(respBody),
	}, nil
}

func (c *Client) newAPIError(req Request, status int, header http.Header, body []byte) *APIError {
	code, message := parseErrorPayload(body)
	apiErr := &APIError{
		Method:        req.Method,
		Path:          req.Path,
		Status:        status,
		Code:          code,
		Message:       message,
		notFoundCodes: c.cfg.NotFoundCodes,
	}
	if message == "" {
		// Truncate error body to prevent sensitive data leakage and memory issues
		apiErr.Body = truncate(strings.TrimSpace(string(body)), maxErrorBody)
	}
	if status == http.StatusTooManyRequests {
		apiErr.RetryAfter = parseRetryAfter(header, time.Now())
	}
	return apiErr
}

// newTokenError turns an OAuth token endpoint rejection into an APIError
// for the call that needed the token.
func (c *Client) newTokenError(req Request, tokenErr *oauth2.RetrieveError) *APIError {
	resp := tokenErr.Response
	apiErr := c.newAPIError(req, resp.StatusCode, resp.Header, tokenErr.Body)
	if tokenErr.ErrorCode != "" {
		apiErr.Code = tokenErr.ErrorCode
	}
	detail := apiErr.Message
	if tokenErr.ErrorDescription != "" {
		detail = tokenErr.ErrorDescription
	}
	if detail == "" {
		detail = apiErr.Body
	}
	apiErr.Message = "access token request failed"
	if detail != "" {
		apiErr.Message += ": " + detail
	}
	apiErr.Body = ""
	return apiErr
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case json.RawMessage:
		if len(b) == 0 {
			return nil, nil
		}
		return b, nil
	case []byte:
		if len(b) == 0 {
			return nil, nil
		}
		return b, nil
	default:
		return json.Marshal(b)
	}
}
