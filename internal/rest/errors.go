package rest

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gorewood/patchbay/internal/output"
)

// Sentinel errors matched by APIError.Is.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrRateLimited  = errors.New("rate limited")
)

// maxErrorBody bounds how much of a vendor error body is kept.
const maxErrorBody = 500

// APIError is a non-2xx vendor response.
type APIError struct {
	Method  string
	Path    string
	Status  int
	Code    string
	Message string
	Body    string

	// RetryAfter is the vendor's Retry-After hint, zero if absent.
	RetryAfter time.Duration

	notFoundCodes []string
}

func (e *APIError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s: HTTP %d", e.Method, e.Path, e.Status)
	if e.Code != "" {
		b.WriteString(" " + e.Code)
	}
	switch {
	case e.Message != "":
		b.WriteString(": " + e.Message)
	case e.Body != "":
		b.WriteString(": " + e.Body)
	}
	return b.String()
}

// ExitCode implements output.ExitCoder.
func (e *APIError) ExitCode() int {
	return output.ExitVendorError
}

// Is supports errors.Is against ErrNotFound, ErrUnauthorized and
// ErrRateLimited.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Status == http.StatusNotFound || (e.Code != "" && slices.Contains(e.notFoundCodes, e.Code))
	case ErrUnauthorized:
		return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

var (
	messageKeys = []string{"message", "err", "detail", "title", "error_description", "error"}
	codeKeys    = []string{"ECODE", "code", "category", "serviceErrorCode", "type"}
)

// parseErrorPayload extracts a code and message from the common vendor
// error shapes. Unknown shapes yield empty strings.
func parseErrorPayload(body []byte) (code, message string) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", ""
	}

	for _, key := range messageKeys {
		if message = scalar(payload[key]); message != "" {
			break
		}
		if nested, ok := payload[key].(map[string]any); ok {
			if message = scalar(nested["message"]); message != "" {
				if code == "" {
					code = scalar(nested["code"])
				}
				break
			}
		}
	}
	if message == "" {
		if list, ok := payload["errors"].([]any); ok && len(list) > 0 {
			if first, ok := list[0].(map[string]any); ok {
				message = scalar(first["message"])
				if message == "" {
					message = scalar(first["detail"])
				}
			}
		}
	}

	for _, key := range codeKeys {
		if v := scalar(payload[key]); v != "" {
			code = v
			break
		}
	}
	return code, truncate(message, maxErrorBody)
}

// scalar renders strings and numbers; anything else is "".
func scalar(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return fmt.Sprintf("%v", val)
	case json.Number:
		return val.String()
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
