package resp

import (
	"bytes"
)

// EncodeCommand renders args as a RESP request frame:
// *<argc>\r\n followed by $<len>\r\n<arg>\r\n per argument
func EncodeCommand(args ...string) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	if err := enc.WriteCommand(args...); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, &EncodeError{Err: err}
	}

	return buf.Bytes(), nil
}

// Encode serializes a single Value into a fresh byte slice
func Encode(v Value) ([]byte, error) {
	var buf bytes.Buffer
	enc := NewEncoder(&buf)

	if err := enc.Write(v); err != nil {
		return nil, err
	}
	if err := enc.Flush(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
