package giterror

import (
	"context"
	"errors"
	"fmt"
	"strings"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
)

// Failure categories reported by Classify. They double as metric label values.
const (
	CategoryNone      = "none"
	CategoryAuth      = "auth"
	CategoryNotFound  = "not_found"
	CategoryRateLimit = "rate_limit"
	CategoryQuota     = "quota"
	CategoryNetwork   = "transport"
	CategoryStatus    = "status"
	CategoryMalformed = "malformed"
	CategoryNotify    = "notify"
	CategoryUnknown   = "unknown"
)

// Inspector provides methods for analyzing GitHub API errors.
type Inspector interface {
	// IsAuthError returns true if the error represents an authentication or authorization failure.
	IsAuthError(err error) bool

	// IsNotFoundError returns true if the error represents a resource not found error.
	IsNotFoundError(err error) bool

	// IsRateLimitError returns true if the error represents a rate limit error.
	IsRateLimitError(err error) bool

	// IsMalformedError returns true if the error represents an undecodable response body.
	IsMalformedError(err error) bool

	// IsNetworkError returns true if the error represents a network connectivity error.
	IsNetworkError(err error) bool
}

// GitHubErrorInspector implements the Inspector interface for GitHub API errors.
type GitHubErrorInspector struct{}

// NewInspector creates a new GitHubErrorInspector.
func NewInspector() Inspector {
	return &GitHubErrorInspector{}
}

// IsAuthError checks if the error is an authentication or authorization error.
func (i *GitHubErrorInspector) IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "401") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "bad credentials") ||
		strings.Contains(errStr, "authentication")
}

// IsNotFoundError checks if the error is a not found error.
func (i *GitHubErrorInspector) IsNotFoundError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "404") ||
		strings.Contains(errStr, "not found") ||
		strings.Contains(errStr, "could not resolve to a repository")
}

// IsRateLimitError checks if the error is a rate limit error.
func (i *GitHubErrorInspector) IsRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "rate limit") ||
		strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "abuse detection")
}

// IsMalformedError checks if the error came from decoding a response body.
func (i *GitHubErrorInspector) IsMalformedError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "invalid character") ||
		strings.Contains(errStr, "unexpected end of json") ||
		strings.Contains(errStr, "cannot unmarshal")
}

// IsNetworkError checks if the error is a network connectivity error.
func (i *GitHubErrorInspector) IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "temporary failure") ||
		strings.Contains(errStr, "dial tcp") ||
		strings.Contains(errStr, "tls handshake") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "eof")
}

// ErrorChainInspector wraps a base inspector and adds support for checking errors
// in the error chain using errors.Is and errors.As.
type ErrorChainInspector struct {
	base Inspector
}

// NewErrorChainInspector creates a new ErrorChainInspector that checks both
// the error chain and falls back to string-based inspection.
func NewErrorChainInspector(base Inspector) Inspector {
	return &ErrorChainInspector{base: base}
}

// IsAuthError checks the error chain first, then falls back to base inspector.
func (e *ErrorChainInspector) IsAuthError(err error) bool {
	if errors.Is(err, watcherrors.ErrInvalidToken) {
		return true
	}
	var authErr interface{ IsAuthError() bool }
	if errors.As(err, &authErr) && authErr.IsAuthError() {
		return true
	}
	return e.base.IsAuthError(err)
}

// IsNotFoundError checks the error chain first, then falls back to base inspector.
func (e *ErrorChainInspector) IsNotFoundError(err error) bool {
	if errors.Is(err, watcherrors.ErrRepoNotFound) {
		return true
	}
	var notFoundErr interface{ IsNotFoundError() bool }
	if errors.As(err, &notFoundErr) && notFoundErr.IsNotFoundError() {
		return true
	}
	return e.base.IsNotFoundError(err)
}

// IsRateLimitError checks the error chain first, then falls back to base inspector.
func (e *ErrorChainInspector) IsRateLimitError(err error) bool {
	if errors.Is(err, watcherrors.ErrRateLimit) {
		return true
	}
	var rateLimitErr interface{ IsRateLimitError() bool }
	if errors.As(err, &rateLimitErr) && rateLimitErr.IsRateLimitError() {
		return true
	}
	return e.base.IsRateLimitError(err)
}

// IsMalformedError checks the error chain first, then falls back to base inspector.
func (e *ErrorChainInspector) IsMalformedError(err error) bool {
	if errors.Is(err, watcherrors.ErrMalformedResponse) {
		return true
	}
	return e.base.IsMalformedError(err)
}

// IsNetworkError checks the error chain first, then falls back to base inspector.
func (e *ErrorChainInspector) IsNetworkError(err error) bool {
	if errors.Is(err, watcherrors.ErrNetworkFailure) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var networkErr interface{ IsNetworkError() bool }
	if errors.As(err, &networkErr) && networkErr.IsNetworkError() {
		return true
	}
	return e.base.IsNetworkError(err)
}

// Classify maps an error to one of the Category constants. Sentinels and
// typed errors in the chain win over string inspection, so a URL inside an
// error message cannot change the category.
func Classify(err error) string {
	if err == nil {
		return CategoryNone
	}
	switch {
	case errors.Is(err, watcherrors.ErrQuotaReserve):
		return CategoryQuota
	case errors.Is(err, watcherrors.ErrNotify):
		return CategoryNotify
	case errors.Is(err, watcherrors.ErrNetworkFailure),
		errors.Is(err, context.DeadlineExceeded):
		return CategoryNetwork
	case errors.Is(err, watcherrors.ErrMalformedResponse):
		return CategoryMalformed
	}

	inspector := NewErrorChainInspector(NewInspector())
	switch {
	case inspector.IsRateLimitError(err):
		return CategoryRateLimit
	case inspector.IsAuthError(err):
		return CategoryAuth
	case inspector.IsNotFoundError(err):
		return CategoryNotFound
	case errors.Is(err, watcherrors.ErrUnexpectedStatus):
		return CategoryStatus
	case inspector.IsMalformedError(err):
		return CategoryMalformed
	case inspector.IsNetworkError(err):
		return CategoryNetwork
	default:
		return CategoryUnknown
	}
}

// retryError annotates an error with the attempt it failed on.
type retryError struct {
	err         error
	attempt     int
	maxAttempts int
}

func (r *retryError) Error() string {
	return fmt.Sprintf("%v (attempt %d/%d)", r.err, r.attempt, r.maxAttempts)
}

func (r *retryError) Unwrap() error { return r.err }

// WithRetryInfo wraps err with the attempt number and attempt budget.
func WithRetryInfo(err error, attempt, maxAttempts int) error {
	if err == nil {
		return nil
	}
	return &retryError{err: err, attempt: attempt, maxAttempts: maxAttempts}
}

// userActionError pairs an error with a hint for the operator.
type userActionError struct {
	err    error
	action string
}

func (u *userActionError) Error() string {
	return fmt.Sprintf("%v. %s", u.err, u.action)
}

func (u *userActionError) Unwrap() error { return u.err }

// WithUserAction wraps err with an actionable hint shown in logs.
func WithUserAction(err error, action string) error {
	if err == nil {
		return nil
	}
	return &userActionError{err: err, action: action}
}
