package httpclient

import (
	"errors"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// detailPaths are the error body fields, in order of preference, that carry
// a human-readable explanation
var detailPaths = []string{"detail", "error", "message"}

// HTTPError represents an HTTP error
type HTTPError struct {
	StatusCode int
	Message    string
	URL        string
	// Detail is the server's explanation, when the error body carried one
	Detail string
}

// Error returns the error message
func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d for URL %s: %s", e.StatusCode, e.URL, e.Message)
}

// UserMessage returns a message suitable for showing to the user
func (e *HTTPError) UserMessage() string {
	if e.Detail != "" {
		return e.Detail
	}
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		return fmt.Sprintf("HTTP %d", e.StatusCode)
	}
	if strings.HasPrefix(msg, fmt.Sprintf("%d", e.StatusCode)) {
		return "HTTP " + msg
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, msg)
}

// Temporary reports whether retrying the request could succeed
func (e *HTTPError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429 || e.StatusCode == 408
}

// NewHTTPError creates a new HTTP error
func NewHTTPError(statusCode int, url, message string) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
	}
}

// NewHTTPErrorWithBody creates a new HTTP error, extracting a detail message
// from body when it is a JSON document
func NewHTTPErrorWithBody(statusCode int, url, message string, body []byte) error {
	return &HTTPError{
		StatusCode: statusCode,
		URL:        url,
		Message:    message,
		Detail:     extractDetail(body),
	}
}

// AsHTTPError returns the HTTPError wrapped in err, if any
func AsHTTPError(err error) (*HTTPError, bool) {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr, true
	}
	return nil, false
}

func extractDetail(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return ""
	}
	for _, path := range detailPaths {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.String() != "" {
			return r.String()
		}
	}
	return ""
}
