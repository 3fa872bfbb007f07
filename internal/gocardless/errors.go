package gocardless

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors returned by the GoCardless client.
var (
	// ErrNotFound indicates the resource was not found.
	ErrNotFound = errors.New("not found in GoCardless")

	// ErrAuthError indicates rejected credentials or tokens.
	ErrAuthError = errors.New("GoCardless authentication error")

	// ErrRateLimited indicates the rate limit has been exceeded.
	ErrRateLimited = errors.New("GoCardless rate limit exceeded")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = errors.New("network error communicating with GoCardless")

	// ErrInvalidResponse indicates an unexpected API response.
	ErrInvalidResponse = errors.New("invalid response from GoCardless")

	// ErrNoBalances indicates the account returned an empty balance list.
	ErrNoBalances = errors.New("no balances returned")
)

// APIError is an error response from the Bank Account Data API.
type APIError struct {
	StatusCode int
	Summary    string
	Detail     string
	Path       string
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("GoCardless API error (status %d) on %s", e.StatusCode, e.Path)
	if e.Summary != "" {
		msg += ": " + e.Summary
	}
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// Is lets errors.Is match an APIError against the sentinel for its status.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	case ErrAuthError:
		return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
	case ErrRateLimited:
		return e.StatusCode == http.StatusTooManyRequests
	}
	return false
}

// IsNotFound returns true if the error indicates a resource was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAuthError returns true if the error indicates an authentication problem.
func IsAuthError(err error) bool {
	return errors.Is(err, ErrAuthError)
}

// IsRateLimited returns true if the error indicates rate limiting.
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}
