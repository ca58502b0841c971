package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/gorewood/patchbay/internal/output"
	"github.com/gorewood/patchbay/internal/rest/resttest"
)

func newTestClient(t *testing.T, srv *httptest.Server, timer *resttest.Timer, policy RetryPolicy) *Client {
	t.Helper()
	c, err := NewClient(Config{
		BaseURL:       srv.URL + "/api/v2",
		HTTPClient:    srv.Client(),
		UserAgent:     "patchbay/test",
		Headers:       map[string]string{"X-Restli-Protocol-Version": "2.0.0"},
		Retry:         policy,
		Timer:         timer,
		Logger:        zerolog.Nop(),
		NotFoundCodes: []string{"ITEM_017"},
	})
	require.NoError(t, err)
	return c
}

func TestDo_Success(t *testing.T) {
	var gotReq *http.Request
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotReq = r.Clone(context.Background())
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"86abc","name":"Write release notes"}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, resttest.NewTimer(), DefaultRetryPolicy())
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPost,
		Path:   "/list/901/task",
		Query:  url.Values{"custom_task_ids": {"true"}},
		Body:   map[string]any{"name": "Write release notes"},
	})
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.Status)
	assert.JSONEq(t, `{"id":"86abc","name":"Write release notes"}`, string(resp.Body))
	assert.False(t, resp.Empty())

	assert.Equal(t, "/api/v2/list/901/task", gotReq.URL.Path)
	assert.Equal(t, "true", gotReq.URL.Query().Get("custom_task_ids"))
	assert.Equal(t, "application/json", gotReq.Header.Get("Content-Type"))
	assert.Equal(t, "application/json", gotReq.Header.Get("Accept"))
	assert.Equal(t, "patchbay/test", gotReq.Header.Get("User-Agent"))
	assert.Equal(t, "2.0.0", gotReq.Header.Get("X-Restli-Protocol-Version"))
	assert.JSONEq(t, `{"name":"Write release notes"}`, string(gotBody))
}

func TestDo_RawBodyPassesThrough(t *testing.T) {
	var gotBody []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, resttest.NewTimer(), DefaultRetryPolicy())
	resp, err := c.Do(context.Background(), Request{
		Method: http.MethodPatch,
		Path:   "/crm/v3/objects/contacts/1",
		Body:   json.RawMessage(`{"properties":{"firstname":"Ada"}}`),
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.Status)
	assert.True(t, resp.Empty())
	assert.Equal(t, `{"properties":{"firstname":"Ada"}}`, string(gotBody))
}

func TestDo_NoBodyOmitsContentType(t *testing.T) {
	var contentType string
	var length int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentType = r.Header.Get("Content-Type")
		length = r.ContentLength
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, resttest.NewTimer(), DefaultRetryPolicy())
	_, err := c.Get(context.Background(), "/team", nil)
	require.NoError(t, err)
	assert.Empty(t, contentType)
	assert.Zero(t, length)
}

func TestDo_VendorErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		wantCode    string
		wantMessage string
		notFound    bool
		unauth      bool
	}{
		{
			name:        "clickup not found with 404",
			status:      http.StatusNotFound,
			body:        `{"err":"Task not found, deleted","ECODE":"ITEM_017"}`,
			wantCode:    "ITEM_017",
			wantMessage: "Task not found, deleted",
			notFound:    true,
		},
		{
			name:        "clickup not found code on a 401",
			status:      http.StatusUnauthorized,
			body:        `{"err":"Team not authorized","ECODE":"ITEM_017"}`,
			wantCode:    "ITEM_017",
			wantMessage: "Team not authorized",
			notFound:    true,
			unauth:      true,
		},
		{
			name:        "hubspot category",
			status:      http.StatusBadRequest,
			body:        `{"status":"error","message":"Property values were not valid","category":"VALIDATION_ERROR"}`,
			wantCode:    "VALIDATION_ERROR",
			wantMessage: "Property values were not valid",
		},
		{
			name:        "zoom numeric code",
			status:      http.StatusNotFound,
			body:        `{"code":3001,"message":"Meeting does not exist: 123."}`,
			wantCode:    "3001",
			wantMessage: "Meeting does not exist: 123.",
			notFound:    true,
		},
		{
			name:        "x problem detail",
			status:      http.StatusForbidden,
			body:        `{"title":"Forbidden","detail":"You are not permitted to perform this action.","type":"about:blank"}`,
			wantCode:    "about:blank",
			wantMessage: "You are not permitted to perform this action.",
			unauth:      true,
		},
		{
			name:        "x errors array",
			status:      http.StatusBadRequest,
			body:        `{"errors":[{"message":"Invalid query"}]}`,
			wantMessage: "Invalid query",
		},
		{
			name:        "linkedin service code",
			status:      http.StatusUnauthorized,
			body:        `{"serviceErrorCode":65600,"message":"Invalid access token","status":401}`,
			wantCode:    "65600",
			wantMessage: "Invalid access token",
			unauth:      true,
		},
		{
			name:        "oauth error",
			status:      http.StatusBadRequest,
			body:        `{"error":"invalid_client","error_description":"Invalid client_id or client_secret"}`,
			wantMessage: "Invalid client_id or client_secret",
		},
		{
			name:   "non-json body",
			status: http.StatusBadGateway,
			body:   `<html>bad gateway</html>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			timer := resttest.NewTimer()
			c := newTestClient(t, srv, timer, DefaultRetryPolicy())
			_, err := c.Get(context.Background(), "/task/missing", nil)
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.Status)
			assert.Equal(t, tt.wantCode, apiErr.Code)
			assert.Equal(t, tt.wantMessage, apiErr.Message)
			if tt.wantMessage == "" {
				assert.Equal(t, tt.body, apiErr.Body)
			}
			assert.Equal(t, tt.notFound, errors.Is(err, ErrNotFound))
			assert.Equal(t, tt.unauth, errors.Is(err, ErrUnauthorized))
			assert.False(t, errors.Is(err, ErrRateLimited))
			assert.Equal(t, output.ExitVendorError, output.GetExitCode(err))

			assert.Equal(t, int32(1), calls.Load(), "permanent errors are not retried")
			assert.Empty(t, timer.Delays())
		})
	}
}

func TestDo_ErrorBodyTruncated(t *testing.T) {
	long := bytes.Repeat([]byte("x"), 2000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write(long)
	}))
	defer srv.Close()

	c := newTestClient(t, srv, resttest.NewTimer(), DefaultRetryPolicy())
	_, err := c.Get(context.Background(), "/team", nil)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Len(t, apiErr.Body, maxErrorBody+len("..."))
}

func TestDo_RetriesRateLimitWithIncreasingDelays(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"err":"Rate limit reached","ECODE":"APP_002"}`))
			return
		}
		_, _ = w.Write([]byte(`{"teams":[]}`))
	}))
	defer srv.Close()

	timer := resttest.NewTimer()
	c := newTestClient(t, srv, timer, DefaultRetryPolicy())
	resp, err := c.Get(context.Background(), "/team", nil)
	require.NoError(t, err)

	assert.JSONEq(t, `{"teams":[]}`, string(resp.Body))
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, timer.Delays())
}

func TestDo_RateLimitBudgetExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"message":"You have reached the maximum per-second rate limit."}`))
	}))
	defer srv.Close()

	timer := resttest.NewTimer()
	c := newTestClient(t, srv, timer, DefaultRetryPolicy())
	_, err := c.Get(context.Background(), "/crm/v3/objects/contacts", nil)
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, output.ExitVendorError, output.GetExitCode(err))

	assert.Equal(t, int32(4), calls.Load(), "one call plus three retries")
	delays := timer.Delays()
	require.Len(t, delays, 3)
	for i := 1; i < len(delays); i++ {
		assert.Greater(t, delays[i], delays[i-1], "delays must strictly increase")
	}
}

func TestDo_ZeroRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	timer := resttest.NewTimer()
	policy := DefaultRetryPolicy()
	policy.MaxRetries = 0
	c := newTestClient(t, srv, timer, policy)

	_, err := c.Get(context.Background(), "/team", nil)
	assert.True(t, errors.Is(err, ErrRateLimited))
	assert.Equal(t, int32(1), calls.Load())
	assert.Empty(t, timer.Delays())
}

func TestDo_RetryAfterRaisesDelay(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "10")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	timer := resttest.NewTimer()
	c := newTestClient(t, srv, timer, DefaultRetryPolicy())
	_, err := c.Get(context.Background(), "/users/me", nil)
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{10 * time.Second}, timer.Delays())
}

func TestDo_BodyResentOnRetry(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		if len(bodies) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"id":"1"}}`))
	}))
	defer srv.Close()

	c := newTestClient(t, srv, resttest.NewTimer(), DefaultRetryPolicy())
	resp, err := c.Do(context.Background(), Request{Method: http.MethodPost, Path: "/tweets", Body: map[string]string{"text": "hi"}})
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	assert.Equal(t, []string{`{"text":"hi"}`, `{"text":"hi"}`}, bodies)
}

// failingDoer is an HTTPDoer that always fails at the transport layer.
type failingDoer struct{ calls int }

func (f *failingDoer) Do(*http.Request) (*http.Response, error) {
	f.calls++
	return nil, errors.New("connection refused")
}

func TestDo_TransportErrorIsSystemError(t *testing.T) {
	doer := &failingDoer{}
	c, err := NewClient(Config{BaseURL: "https://api.clickup.com/api/v2", HTTPClient: doer, Timer: resttest.NewTimer()})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/team", nil)
	require.Error(t, err)
	assert.Equal(t, output.ExitSystemError, output.GetExitCode(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, 1, doer.calls, "transport errors are not retried")
}

// tokenDoer fails like an oauth2 client whose token endpoint rejected
// the credentials.
type tokenDoer struct {
	calls int
	err   *oauth2.RetrieveError
}

func (d *tokenDoer) Do(req *http.Request) (*http.Response, error) {
	d.calls++
	return nil, &url.Error{Op: req.Method, URL: req.URL.String(), Err: d.err}
}

func TestDo_TokenRejectionIsVendorError(t *testing.T) {
	doer := &tokenDoer{err: &oauth2.RetrieveError{
		Response:  &http.Response{StatusCode: http.StatusUnauthorized, Header: http.Header{}},
		Body:      []byte(`{"reason":"Invalid client_id or client_secret","error":"invalid_client"}`),
		ErrorCode: "invalid_client",
	}}
	c, err := NewClient(Config{BaseURL: "https://api.zoom.us/v2", HTTPClient: doer, Timer: resttest.NewTimer()})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/users/me", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, output.ExitVendorError, output.GetExitCode(err))

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "invalid_client", apiErr.Code)
	assert.Equal(t, "/users/me", apiErr.Path)
	assert.Contains(t, apiErr.Message, "access token request failed")
	assert.Equal(t, 1, doer.calls, "rejected credentials are not retried")
}

func TestDo_TokenRateLimitIsRetried(t *testing.T) {
	header := http.Header{}
	header.Set("Retry-After", "5")
	doer := &tokenDoer{err: &oauth2.RetrieveError{
		Response:         &http.Response{StatusCode: http.StatusTooManyRequests, Header: header},
		ErrorDescription: "too many token requests",
	}}
	timer := resttest.NewTimer()
	c, err := NewClient(Config{BaseURL: "https://api.zoom.us/v2", HTTPClient: doer, Timer: timer, Retry: RetryPolicy{
		MaxRetries:      2,
		InitialInterval: time.Second,
		MaxInterval:     30 * time.Second,
		Multiplier:      2,
	}})
	require.NoError(t, err)

	_, err = c.Get(context.Background(), "/users/me", nil)
	assert.ErrorIs(t, err, ErrRateLimited)
	assert.Equal(t, 3, doer.calls)
	assert.Equal(t, []time.Duration{5 * time.Second, 6 * time.Second}, timer.Delays())
}

func TestDo_CancelledContext(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newTestClient(t, srv, resttest.NewTimer(), DefaultRetryPolicy())
	_, err := c.Get(ctx, "/team", nil)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, output.ExitSystemError, output.GetExitCode(err))
}

func TestNewClient_InvalidBaseURL(t *testing.T) {
	_, err := NewClient(Config{BaseURL: "not a url"})
	require.Error(t, err)
	assert.Equal(t, output.ExitConfigError, output.GetExitCode(err))
}

func TestParseRetryAfter(t *testing.T) {
	now := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"absent", "", 0},
		{"seconds", "3", 3 * time.Second},
		{"zero", "0", 0},
		{"http date", now.Add(5 * time.Second).Format(http.TimeFormat), 5 * time.Second},
		{"past date", now.Add(-time.Minute).Format(http.TimeFormat), 0},
		{"garbage", "soon", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := http.Header{}
			if tt.value != "" {
				h.Set("Retry-After", tt.value)
			}
			assert.Equal(t, tt.want, parseRetryAfter(h, now))
		})
	}
}

func TestRateLimitBackOff(t *testing.T) {
	b := newRateLimitBackOff(RetryPolicy{
		MaxRetries:      5,
		InitialInterval: time.Second,
		MaxInterval:     4 * time.Second,
		Multiplier:      2,
	})

	var got []time.Duration
	for range 5 {
		got = append(got, b.NextBackOff())
	}
	assert.Equal(t, []time.Duration{
		1 * time.Second,
		2 * time.Second,
		4 * time.Second,
		5 * time.Second,
		6 * time.Second,
	}, got)

	b.Reset()
	b.observe(time.Hour)
	assert.Equal(t, 4*time.Second, b.NextBackOff(), "hint is capped at the max interval")
	assert.Equal(t, 5*time.Second, b.NextBackOff())
}
