package transfer

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/putioarr/putioarr/internal/putio"
)

// ErrorType represents different classes of errors for retry strategy
type ErrorType int

const (
	// ErrorTypeSuccess indicates the operation succeeded
	ErrorTypeSuccess ErrorType = iota
	// ErrorTypeCredential indicates rejected credentials (401, 403)
	ErrorTypeCredential
	// ErrorTypeNetwork indicates connection issues (timeouts, resets, stalls)
	ErrorTypeNetwork
	// ErrorTypeRetryable indicates server errors worth retrying (5xx, 429)
	ErrorTypeRetryable
	// ErrorTypeFatal indicates errors that won't improve on retry
	ErrorTypeFatal
)

// RetryConfig holds retry parameters for ExecuteWithRetry
type RetryConfig struct {
	// MaxAttempts is the total number of attempts (default: 5)
	MaxAttempts int
	// InitialDelay is the base delay for exponential backoff (default: 1s)
	InitialDelay time.Duration
	// MaxDelay caps the delay between attempts (default: 30s)
	MaxDelay time.Duration
	// OnRetry is an optional callback invoked before each retry attempt
	OnRetry func(attempt int, err error, errType ErrorType)
}

// DefaultRetryConfig returns the download retry parameters.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts:  5,
		InitialDelay: 1 * time.Second,
		MaxDelay:     30 * time.Second,
	}
}

// ClassifyError determines the error type for retry strategy.
func ClassifyError(err error) ErrorType {
	if err == nil {
		return ErrorTypeSuccess
	}

	switch {
	case putio.IsAuthError(err):
		return ErrorTypeCredential
	case putio.IsTransient(err):
		return ErrorTypeRetryable
	case putio.IsNotFound(err):
		return ErrorTypeFatal
	}

	errStr := strings.ToLower(err.Error())
	networkIndicators := []string{
		"connection reset",
		"connection refused",
		"broken pipe",
		"i/o timeout",
		"tls handshake timeout",
		"timeout",
		"stalled",
		"eof",
		"context deadline exceeded",
	}
	for _, indicator := range networkIndicators {
		if strings.Contains(errStr, indicator) {
			return ErrorTypeNetwork
		}
	}

	return ErrorTypeFatal
}

// CalculateBackoff returns exponential backoff duration with full jitter:
// random(0, min(maxDelay, initialDelay * 2^attempt)). The jitter spreads
// out simultaneous retries.
func CalculateBackoff(attempt int, initialDelay, maxDelay time.Duration) time.Duration {
	if attempt <= 0 {
		return 0
	}

	base := time.Duration(1<<uint(attempt)) * initialDelay
	if base > maxDelay {
		base = maxDelay
	}

	return time.Duration(rand.Int63n(int64(base)))
}

// ExecuteWithRetry runs an operation, retrying network and server errors
// with exponential backoff. Credential and fatal errors return immediately,
// as does context cancellation.
func ExecuteWithRetry(ctx context.Context, config RetryConfig, operation func() error) error {
	var lastErr error

	for attempt := 0; attempt < config.MaxAttempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		err := operation()
		if err == nil {
			return nil
		}
		lastErr = err

		errType := ClassifyError(err)
		switch errType {
		case ErrorTypeCredential, ErrorTypeFatal:
			return err

		case ErrorTypeNetwork, ErrorTypeRetryable:
			if attempt < config.MaxAttempts-1 {
				if config.OnRetry != nil {
					config.OnRetry(attempt+1, err, errType)
				}
				backoff := CalculateBackoff(attempt+1, config.InitialDelay, config.MaxDelay)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(backoff):
				}
			}
		}
	}

	return fmt.Errorf("operation failed after %d attempts: %w", config.MaxAttempts, lastErr)
}

// ErrorTypeName returns a human-readable name for an ErrorType.
func ErrorTypeName(errType ErrorType) string {
	switch errType {
	case ErrorTypeSuccess:
		return "success"
	case ErrorTypeCredential:
		return "credential"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeRetryable:
		return "retryable"
	case ErrorTypeFatal:
		return "fatal"
	default:
		return "unknown"
	}
}
