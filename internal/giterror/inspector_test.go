package giterror

import (
	"context"
	"errors"
	"fmt"
	"testing"

	watcherrors "github.com/sirseerhq/sirseer-watch/internal/errors"
)

func TestGitHubErrorInspector_IsAuthError(t *testing.T) {
	inspector := NewInspector()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "401 unauthorized",
			err:  errors.New("401 Unauthorized"),
			want: true,
		},
		{
			name: "bad credentials",
			err:  errors.New("Bad credentials"),
			want: true,
		},
		{
			name: "wrapped auth error",
			err:  fmt.Errorf("failed to query: %w", errors.New("401 Unauthorized")),
			want: true,
		},
		{
			name: "not an auth error",
			err:  errors.New("something went wrong"),
			want: false,
		},
		{
			name: "nil error",
			err:  nil,
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inspector.IsAuthError(tt.err); got != tt.want {
				t.Errorf("IsAuthError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGitHubErrorInspector_IsRateLimitError(t *testing.T) {
	inspector := NewInspector()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"primary limit", errors.New("github: HTTP 403: API rate limit exceeded for 10.0.0.1"), true},
		{"secondary limit", errors.New("HTTP 429 Too Many Requests"), true},
		{"abuse detection", errors.New("You have triggered an abuse detection mechanism"), true},
		{"permission 403", errors.New("HTTP 403: Resource not accessible by integration"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inspector.IsRateLimitError(tt.err); got != tt.want {
				t.Errorf("IsRateLimitError() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestGitHubErrorInspector_IsNetworkError(t *testing.T) {
	inspector := NewInspector()

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"connection refused", errors.New("dial tcp 127.0.0.1:443: connect: connection refused"), true},
		{"no such host", errors.New("dial tcp: lookup api.github.com: no such host"), true},
		{"client timeout", errors.New("Client.Timeout exceeded while awaiting headers"), true},
		{"tls handshake", errors.New("net/http: TLS handshake timeout"), true},
		{"plain status error", errors.New("HTTP 500"), false},
		{"nil error", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := inspector.IsNetworkError(tt.err); got != tt.want {
				t.Errorf("IsNetworkError() = %v, want %v", got, tt.want)
			}
		})
	}
}

// Custom error types for testing ErrorChainInspector
type authError struct{}

func (authError) Error() string     { return "custom auth error" }
func (authError) IsAuthError() bool { return true }

type rateLimitError struct{}

func (rateLimitError) Error() string          { return "custom rate limit error" }
func (rateLimitError) IsRateLimitError() bool { return true }

func TestErrorChainInspector(t *testing.T) {
	chainInspector := NewErrorChainInspector(NewInspector())

	tests := []struct {
		name   string
		err    error
		method string
		want   bool
	}{
		{
			name:   "custom auth error type",
			err:    authError{},
			method: "auth",
			want:   true,
		},
		{
			name:   "wrapped custom auth error",
			err:    fmt.Errorf("operation failed: %w", authError{}),
			method: "auth",
			want:   true,
		},
		{
			name:   "sentinel invalid token",
			err:    fmt.Errorf("discord: %w", watcherrors.ErrInvalidToken),
			method: "auth",
			want:   true,
		},
		{
			name:   "custom rate limit error type",
			err:    rateLimitError{},
			method: "ratelimit",
			want:   true,
		},
		{
			name:   "deadline exceeded is network",
			err:    fmt.Errorf("fetch events: %w", context.DeadlineExceeded),
			method: "network",
			want:   true,
		},
		{
			name:   "falls back to string checking",
			err:    errors.New("401 Unauthorized"),
			method: "auth",
			want:   true,
		},
		{
			name:   "no match in chain or string",
			err:    errors.New("some other error"),
			method: "auth",
			want:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got bool
			switch tt.method {
			case "auth":
				got = chainInspector.IsAuthError(tt.err)
			case "ratelimit":
				got = chainInspector.IsRateLimitError(tt.err)
			case "network":
				got = chainInspector.IsNetworkError(tt.err)
			}
			if got != tt.want {
				t.Errorf("ErrorChainInspector.%s() = %v, want %v", tt.method, got, tt.want)
			}
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, CategoryNone},
		{"quota reserve", fmt.Errorf("8 left: %w", watcherrors.ErrQuotaReserve), CategoryQuota},
		{"notify", fmt.Errorf("discord: %w", watcherrors.ErrNotify), CategoryNotify},
		{"malformed", fmt.Errorf("decode events: %w", watcherrors.ErrMalformedResponse), CategoryMalformed},
		{"status", fmt.Errorf("HTTP 500: %w", watcherrors.ErrUnexpectedStatus), CategoryStatus},
		{"network", fmt.Errorf("get: %w", watcherrors.ErrNetworkFailure), CategoryNetwork},
		{"network with status-like port", fmt.Errorf("GET http://127.0.0.1:40401/x: %w", watcherrors.ErrNetworkFailure), CategoryNetwork},
		{"rate limit string", errors.New("API rate limit exceeded"), CategoryRateLimit},
		{"unknown", errors.New("boom"), CategoryUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestWithRetryInfo(t *testing.T) {
	base := errors.New("received status 503")
	err := WithRetryInfo(base, 2, 3)

	if !errors.Is(err, base) {
		t.Fatal("WithRetryInfo should keep the wrapped error in the chain")
	}
	if got := err.Error(); got != "received status 503 (attempt 2/3)" {
		t.Errorf("Error() = %q", got)
	}
	if WithRetryInfo(nil, 1, 1) != nil {
		t.Error("WithRetryInfo(nil) should be nil")
	}
}

func TestWithUserAction(t *testing.T) {
	err := WithUserAction(watcherrors.ErrNetworkFailure, "Check your connection")
	if !errors.Is(err, watcherrors.ErrNetworkFailure) {
		t.Fatal("WithUserAction should keep the wrapped error in the chain")
	}
	if got := err.Error(); got != "network connection failed. Check your connection" {
		t.Errorf("Error() = %q", got)
	}
}
