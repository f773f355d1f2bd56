package remote

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
)

// ErrorClass classifies remote tier failures. Only connectivity failures
// are eligible for the offline queue; everything else is dropped after
// logging because a replay would fail the same way.
type ErrorClass string

const (
	// ErrorClassConnectivity covers network-level failures: refused or
	// reset connections, timeouts, DNS errors. These are expected to heal.
	ErrorClassConnectivity ErrorClass = "connectivity"

	// ErrorClassBackend covers errors reported by a reachable backend,
	// e.g. a Redis command error.
	ErrorClassBackend ErrorClass = "backend"

	// ErrorClassMiss is a plain not-found outcome.
	ErrorClassMiss ErrorClass = "miss"
)

// Classify maps an adapter error to its class.
func Classify(err error) ErrorClass {
	if errors.Is(err, ErrNotFound) {
		return ErrorClassMiss
	}
	if IsConnectivity(err) {
		return ErrorClassConnectivity
	}
	return ErrorClassBackend
}

// IsConnectivity reports whether an error is attributable to connectivity
// loss rather than a backend-level failure.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	// go-redis wraps pool/dial failures in plain errors in some paths.
	msg := err.Error()
	return strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "connection pool timeout") ||
		strings.Contains(msg, "i/o timeout")
}
