package client

import (
	"context"
	"errors"
	"strings"

	"github.com/eternalApril/moonwire/internal/conn"
	"github.com/eternalApril/moonwire/internal/resp"
)

type (
	// ConnectionError means the TCP link could not be established
	ConnectionError = conn.ConnectionError
	// IOError means the transport failed mid-operation
	IOError = conn.IOError
	// ProtocolError means malformed RESP, or a call not allowed in the current mode
	ProtocolError = resp.ProtocolError
)

var (
	ErrSubscribed    = errors.New("connection is in subscription mode")
	ErrNotSubscribed = errors.New("connection is not in subscription mode")
	ErrBusy          = errors.New("another request is in flight")
	ErrNoChannels    = errors.New("at least one channel is required")
)

// ServerError is a well-formed error reply from the server
type ServerError struct {
	Msg string
}

func (e *ServerError) Error() string {
	return e.Msg
}

// Prefix is the error code the server puts first, e.g. ERR or WRONGTYPE
func (e *ServerError) Prefix() string {
	prefix, _, _ := strings.Cut(e.Msg, " ")
	return prefix
}

// ErrorKind groups errors by what a caller should do about them
type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindConnection
	KindIO
	KindProtocol
	KindServer
	KindCanceled
)

func (k ErrorKind) String() string {
	switch k {
	case KindConnection:
		return "connection"
	case KindIO:
		return "io"
	case KindProtocol:
		return "protocol"
	case KindServer:
		return "server"
	case KindCanceled:
		return "canceled"
	}
	return "unknown"
}

// canceledError is returned when the caller's ctx ended an operation.
// It wraps both ctx.Err() and the transport error the expired deadline caused
type canceledError struct {
	ctxErr error
	err    error
}

func (e *canceledError) Error() string {
	return e.ctxErr.Error() + ": " + e.err.Error()
}

func (e *canceledError) Unwrap() []error {
	return []error{e.ctxErr, e.err}
}

// Kind classifies err. Only the caller's own cancellation is KindCanceled:
// a dial or socket timeout matches context.DeadlineExceeded too, but it is a
// transport failure worth reconnecting over
func Kind(err error) ErrorKind {
	var (
		canceledErr *canceledError
		serverErr   *ServerError
		protocolErr *ProtocolError
		connErr     *ConnectionError
		ioErr       *IOError
	)

	switch {
	case err == nil:
		return KindUnknown
	case errors.As(err, &canceledErr):
		return KindCanceled
	case errors.As(err, &serverErr):
		return KindServer
	case errors.As(err, &protocolErr):
		return KindProtocol
	case errors.As(err, &connErr):
		return KindConnection
	case errors.As(err, &ioErr):
		return KindIO
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCanceled
	}
	return KindUnknown
}
