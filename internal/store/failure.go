package store

import (
	"errors"
	"io"
	"net"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
)

// ClassifyFailure maps a client error to the failure type reported in
// connectivity events.
func ClassifyFailure(err error) FailureType {
	if err == nil || errors.Is(err, redis.Nil) {
		return FailureNone
	}

	if errors.Is(err, redis.ErrClosed) {
		return FailureConnectionDisposed
	}

	msg := err.Error()
	switch {
	case strings.HasPrefix(msg, "NOAUTH"), strings.HasPrefix(msg, "WRONGPASS"),
		strings.Contains(msg, "invalid password"):
		return FailureAuthentication
	case strings.HasPrefix(msg, "LOADING"):
		return FailureLoading
	}

	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNRESET) || errors.Is(err, net.ErrClosed) {
		return FailureSocketClosed
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) && opErr.Op == "dial" {
		return FailureUnableToConnect
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) || errors.Is(err, syscall.ECONNREFUSED) {
		return FailureUnableToConnect
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return FailureSocketFailure
	}

	return FailureInternal
}
