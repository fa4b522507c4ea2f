package resp

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidEnding = errors.New("invalid line ending")
	ErrUnknownType   = errors.New("unknown type byte")
	ErrBadLength     = errors.New("invalid length")
	ErrTooDeep       = errors.New("nesting too deep")
	ErrEmptyCommand  = errors.New("empty command")
)

// ProtocolError reports malformed or unexpected RESP data, or a call that
// is not legal in the client's current mode
type ProtocolError struct {
	Op  string
	Err error
}

func (e *ProtocolError) Error() string {
	return fmt.Sprintf("protocol error: %s: %v", e.Op, e.Err)
}

func (e *ProtocolError) Unwrap() error {
	return e.Err
}

// EncodeError reports a command that cannot be put on the wire
type EncodeError struct {
	Err error
}

func (e *EncodeError) Error() string {
	return "encode: " + e.Err.Error()
}

func (e *EncodeError) Unwrap() error {
	return e.Err
}

func protocolErr(op string, err error) error {
	return &ProtocolError{Op: op, Err: err}
}
