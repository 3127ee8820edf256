package github

import (
	"fmt"
	"net/http"
)

// AuthError is returned when GitHub rejects a token.
type AuthError struct {
	Status  int
	Message string
}

func (e *AuthError) Error() string {
	return e.Message
}

// APIError is a non-success response from the API.
type APIError struct {
	Status  int
	Message string

	// RetryAfterSec is set when the response was a rate limit rejection.
	RetryAfterSec int
}

func (e *APIError) Error() string {
	return e.Message
}

// RateLimited reports whether the request was rejected by rate limiting.
func (e *APIError) RateLimited() bool {
	return e.RetryAfterSec > 0
}

// NetworkError wraps a transport-level failure.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

func newAPIError(op string, resp *http.Response) *APIError {
	apiErr := &APIError{
		Status:  resp.StatusCode,
		Message: bodyMessage(resp.Body, fmt.Sprintf("%s failed (%d)", op, resp.StatusCode)),
	}
	limited := resp.StatusCode == http.StatusTooManyRequests ||
		(resp.StatusCode == http.StatusForbidden && resp.Header.Get("X-RateLimit-Remaining") == "0")
	if limited {
		apiErr.RetryAfterSec = parseRetryAfter(resp)
	}
	return apiErr
}
