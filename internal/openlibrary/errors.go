package openlibrary

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"syscall"
)

// ErrNotFound indicates the requested user, work or edition does not exist.
var ErrNotFound = errors.New("openlibrary: not found")

// ServerError represents a 5xx response from OpenLibrary.
type ServerError struct {
	StatusCode int
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("openlibrary server error: HTTP %d", e.StatusCode)
}

// IsConnectivity reports whether err looks like total loss of connectivity:
// DNS failure, no route to host, refused connection or a timeout. Used by
// callers to choose an "offline" message over a generic network error.
func IsConnectivity(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}

	if errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.EHOSTUNREACH) ||
		errors.Is(err, syscall.ENETUNREACH) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return true
	}

	return false
}

// IsNetwork reports whether err is any network-level I/O failure, including
// the connectivity cases above.
func IsNetwork(err error) bool {
	if err == nil {
		return false
	}
	if IsConnectivity(err) {
		return true
	}

	var srvErr *ServerError
	if errors.As(err, &srvErr) {
		return true
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return true
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}

	var sysErr *os.SyscallError
	return errors.As(err, &sysErr)
}
