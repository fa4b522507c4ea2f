package conn

import (
	"context"
	"errors"
	"fmt"
	"net"
	"syscall"
)

// Reason narrows down why a connection could not be established
type Reason int

const (
	ReasonOther Reason = iota
	ReasonRefused
	ReasonTimeout
	ReasonDNS
)

func (r Reason) String() string {
	switch r {
	case ReasonRefused:
		return "refused"
	case ReasonTimeout:
		return "timeout"
	case ReasonDNS:
		return "dns"
	}
	return "other"
}

// ConnectionError reports a failure to establish the TCP link
type ConnectionError struct {
	Addr   string
	Reason Reason
	Err    error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect %s (%s): %v", e.Addr, e.Reason, e.Err)
}

func (e *ConnectionError) Unwrap() error {
	return e.Err
}

// IOError reports a transport failure on an established connection
type IOError struct {
	Op  string // "read", "write" or "close"
	Err error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *IOError) Unwrap() error {
	return e.Err
}

// Timeout reports whether the failure was a deadline expiry
func (e *IOError) Timeout() bool {
	var netErr net.Error
	return errors.As(e.Err, &netErr) && netErr.Timeout()
}

func classifyDial(addr string, err error) *ConnectionError {
	ce := &ConnectionError{Addr: addr, Reason: ReasonOther, Err: err}

	var dnsErr *net.DNSError
	var netErr net.Error
	switch {
	case errors.As(err, &dnsErr):
		ce.Reason = ReasonDNS
		if dnsErr.IsTimeout {
			ce.Reason = ReasonTimeout
		}
	case errors.Is(err, syscall.ECONNREFUSED):
		ce.Reason = ReasonRefused
	case errors.Is(err, context.DeadlineExceeded):
		ce.Reason = ReasonTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		ce.Reason = ReasonTimeout
	}

	return ce
}
