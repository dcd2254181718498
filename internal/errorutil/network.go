package errorutil

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
)

// NetworkError represents a transport or HTTP status failure with request context
type NetworkError struct {
	Operation  string        // e.g. "direct geocoding", "ip lookup"
	URL        string        // request URL, without query credentials
	StatusCode int           // HTTP status, 0 for transport failures
	Timeout    time.Duration // client timeout in effect, when the failure was a timeout
	Underlying error
	Retryable  bool
}

func (e *NetworkError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("%s failed for %s: HTTP %d: %v", e.Operation, e.URL, e.StatusCode, e.Underlying)
	}
	return fmt.Sprintf("%s failed for %s: %v", e.Operation, e.URL, e.Underlying)
}

func (e *NetworkError) Unwrap() error {
	return e.Underlying
}

// IsRetryable reports whether the failure looks transient.
// Nothing in this module retries; the flag only drives the log level.
func (e *NetworkError) IsRetryable() bool {
	return e.Retryable
}

// NewNetworkError wraps a transport error
func NewNetworkError(operation, url string, err error) *NetworkError {
	return &NetworkError{
		Operation:  operation,
		URL:        url,
		Underlying: err,
		Retryable:  isRetryableError(err),
	}
}

// NewHTTPStatusError wraps a non-2xx response
func NewHTTPStatusError(operation, url string, statusCode int, err error) *NetworkError {
	return &NetworkError{
		Operation:  operation,
		URL:        url,
		StatusCode: statusCode,
		Underlying: err,
		Retryable:  isRetryableStatus(statusCode),
	}
}

// WithTimeout records the client timeout when the failure was a timeout
func (e *NetworkError) WithTimeout(timeout time.Duration) *NetworkError {
	if IsTimeout(e.Underlying) {
		e.Timeout = timeout
	}
	return e
}

// LogNetworkError logs a network error. Retryable failures log at warn, the rest at error.
func LogNetworkError(logger *slog.Logger, netErr *NetworkError) *NetworkError {
	if logger == nil {
		return netErr
	}

	attrs := []slog.Attr{
		slog.String("operation", netErr.Operation),
		slog.String("url", netErr.URL),
		slog.String("error", netErr.Underlying.Error()),
		slog.Bool("retryable", netErr.IsRetryable()),
	}
	if netErr.StatusCode > 0 {
		attrs = append(attrs, slog.Int("status_code", netErr.StatusCode))
	}
	if netErr.Timeout > 0 {
		attrs = append(attrs, slog.Duration("timeout", netErr.Timeout))
	}

	level := slog.LevelError
	if netErr.IsRetryable() {
		level = slog.LevelWarn
	}

	logger.Log(context.Background(), level, "Network operation failed", toAny(attrs)...)
	return netErr
}

// IsTimeout reports whether err is a deadline or network timeout
func IsTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	if IsTimeout(err) || isDNSError(err) || isConnectionRefused(err) {
		return true
	}
	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return isRetryableStatus(netErr.StatusCode)
	}
	return false
}

func isRetryableStatus(statusCode int) bool {
	switch statusCode {
	case http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	}
	return false
}

func isDNSError(err error) bool {
	var dnsErr *net.DNSError
	return errors.As(err, &dnsErr)
}

func isConnectionRefused(err error) bool {
	if errors.Is(err, syscall.ECONNREFUSED) {
		return true
	}
	return strings.Contains(err.Error(), "connection refused")
}
