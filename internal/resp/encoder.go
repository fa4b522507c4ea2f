package resp

import (
	"bufio"
	"io"
	"strconv"
)

// Encoder handles the serialization of RESP Value objects into an output stream
type Encoder struct {
	writer *bufio.Writer
}

// NewEncoder initializes an Encoder with a buffered writer
func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{
		writer: bufio.NewWriter(w)}
}

// Write serializes a RESP Value into the buffer. Call Flush to push it out
func (e *Encoder) Write(v Value) error {
	var err error

	switch v.kind {
	case KindInteger:
		err = e.writeHeader(':', v.num)

	case KindSimpleString:
		err = e.writeRaw('+', v.str)

	case KindError:
		err = e.writeRaw('-', v.str)

	case KindBulkString:
		if v.null {
			_, err = e.writer.WriteString("$-1\r\n")
		} else {
			err = e.writeBulk(v.str)
		}

	case KindArray:
		if v.null {
			_, err = e.writer.WriteString("*-1\r\n")
		} else {
			if err = e.writeHeader('*', int64(len(v.arr))); err == nil {
				for _, el := range v.arr {
					if err = e.Write(el); err != nil {
						break
					}
				}
			}
		}

	default:
		err = &EncodeError{Err: &TypeError{Want: KindBulkString, Got: v.kind}}
	}

	return err
}

// WriteCommand writes args as an array of bulk strings, the shape Redis expects requests in
func (e *Encoder) WriteCommand(args ...string) error {
	if len(args) == 0 {
		return &EncodeError{Err: ErrEmptyCommand}
	}
	if err := e.writeHeader('*', int64(len(args))); err != nil {
		return err
	}
	for _, arg := range args {
		if err := e.writeBulkString(arg); err != nil {
			return err
		}
	}
	return nil
}

// Flush sends buffered data to the underlying writer
func (e *Encoder) Flush() error {
	return e.writer.Flush()
}

// writeHeader writes the type prefix, numeric value, and CRLF
func (e *Encoder) writeHeader(prefix byte, n int64) error {
	if err := e.writer.WriteByte(prefix); err != nil {
		return err
	}
	e.appendInt(n)
	_, err := e.writer.WriteString("\r\n")
	return err
}

// writeRaw writes the type prefix, raw bytes, and CRLF (for SimpleString and Error)
func (e *Encoder) writeRaw(prefix byte, b []byte) error {
	if err := e.writer.WriteByte(prefix); err != nil {
		return err
	}
	if _, err := e.writer.Write(b); err != nil {
		return err
	}
	_, err := e.writer.WriteString("\r\n")
	return err
}

func (e *Encoder) writeBulk(b []byte) error {
	if err := e.writeHeader('$', int64(len(b))); err != nil {
		return err
	}
	if _, err := e.writer.Write(b); err != nil {
		return err
	}
	_, err := e.writer.WriteString("\r\n")
	return err
}

func (e *Encoder) writeBulkString(s string) error {
	if err := e.writeHeader('$', int64(len(s))); err != nil {
		return err
	}
	if _, err := e.writer.WriteString(s); err != nil {
		return err
	}
	_, err := e.writer.WriteString("\r\n")
	return err
}

// appendInt converts an integer to a string and writes it to the buffer
func (e *Encoder) appendInt(n int64) {
	b := e.writer.AvailableBuffer()
	b = strconv.AppendInt(b, n, 10)
	e.writer.Write(b) //nolint:errcheck
}
