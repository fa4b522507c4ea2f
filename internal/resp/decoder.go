package resp

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
	"strconv"
)

const (
	maxBulkLen   = 512 << 20 // same ceiling redis-server enforces for proto-max-bulk-len
	maxArrayLen  = math.MaxInt32
	maxDepth     = 64
	smallBulkLen = 64 << 10
	maxLineLen   = 64 << 10 // longest simple string, error or header line
	typeNull     = '_'      // RESP3 null
)

// Decoder reads RESP values from a byte stream, one complete frame per Read
type Decoder struct {
	rd *bufio.Reader
}

// NewDecoder wraps rd in a bufio.Reader unless it already is one
func NewDecoder(rd io.Reader) *Decoder {
	return &Decoder{rd: bufio.NewReader(rd)}
}

// Read decodes exactly one RESP value.
// io.EOF is returned untouched when the stream ends cleanly between frames.
// A frame cut short yields a ProtocolError wrapping io.ErrUnexpectedEOF.
// Other read errors from the source are passed through as-is
func (d *Decoder) Read() (Value, error) {
	return d.read(0)
}

func (d *Decoder) read(depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, protocolErr("read", ErrTooDeep)
	}

	t, err := d.rd.ReadByte()
	if err != nil {
		if depth > 0 {
			return Value{}, truncated(err)
		}
		return Value{}, err
	}

	switch Kind(t) {
	case KindSimpleString, KindError:
		line, err := d.readLine()
		if err != nil {
			return Value{}, err
		}
		return Value{kind: Kind(t), str: line}, nil

	case KindInteger:
		n, err := d.readInteger()
		if err != nil {
			return Value{}, err
		}
		return Integer(n), nil

	case KindBulkString:
		return d.readBulkString()

	case KindArray:
		return d.readArray(depth)
	}

	if t == typeNull {
		line, err := d.readLine()
		if err != nil {
			return Value{}, err
		}
		if len(line) != 0 {
			return Value{}, protocolErr("read null", ErrInvalidEnding)
		}
		return NullBulkString(), nil
	}

	return Value{}, protocolErr("read", fmt.Errorf("%w %q", ErrUnknownType, t))
}

// readLine reads up to CRLF and returns the line without the terminator
func (d *Decoder) readLine() ([]byte, error) {
	var line []byte
	for {
		frag, err := d.rd.ReadSlice('\n')
		line = append(line, frag...)
		if err == nil {
			break
		}
		if err != bufio.ErrBufferFull { //nolint:errorlint
			return nil, truncated(err)
		}
		if len(line) > maxLineLen {
			return nil, protocolErr("read line", ErrBadLength)
		}
	}
	if len(line) > maxLineLen+2 {
		return nil, protocolErr("read line", ErrBadLength)
	}

	if len(line) < 2 || line[len(line)-2] != '\r' {
		return nil, protocolErr("read line", ErrInvalidEnding)
	}

	return line[:len(line)-2], nil
}

func (d *Decoder) readInteger() (int64, error) {
	line, err := d.readLine()
	if err != nil {
		return 0, err
	}

	// Command with integer cant be empty
	if len(line) == 0 {
		return 0, protocolErr("read integer", ErrInvalidEnding)
	}

	num, err := strconv.ParseInt(string(line), 10, 64)
	if err != nil {
		return 0, protocolErr("read integer", err)
	}

	return num, nil
}

// readLength parses a bulk or array header. -1 means null
func (d *Decoder) readLength(limit int64) (int64, error) {
	n, err := d.readInteger()
	if err != nil {
		return 0, err
	}
	if n < -1 || n > limit {
		return 0, protocolErr("read length", fmt.Errorf("%w %d", ErrBadLength, n))
	}
	return n, nil
}

func (d *Decoder) readBulkString() (Value, error) {
	n, err := d.readLength(maxBulkLen)
	if err != nil {
		return Value{}, err
	}
	if n == -1 {
		return NullBulkString(), nil
	}

	var buf []byte
	if n <= smallBulkLen {
		buf = make([]byte, n+2)
		if _, err := io.ReadFull(d.rd, buf); err != nil {
			return Value{}, truncated(err)
		}
	} else {
		// grow with the data actually received rather than the declared length
		var bb bytes.Buffer
		if _, err := io.CopyN(&bb, d.rd, n+2); err != nil {
			return Value{}, truncated(err)
		}
		buf = bb.Bytes()
	}
	if buf[n] != '\r' || buf[n+1] != '\n' {
		return Value{}, protocolErr("read bulk string", ErrInvalidEnding)
	}

	return Value{kind: KindBulkString, str: buf[:n:n]}, nil
}

func (d *Decoder) readArray(depth int) (Value, error) {
	n, err := d.readLength(maxArrayLen)
	if err != nil {
		return Value{}, err
	}
	if n == -1 {
		return NullArray(), nil
	}

	// the header is untrusted, don't let it size the allocation
	elems := make([]Value, 0, min(n, 1024))
	for i := int64(0); i < n; i++ {
		el, err := d.read(depth + 1)
		if err != nil {
			return Value{}, err
		}
		elems = append(elems, el)
	}

	return Value{kind: KindArray, arr: elems}, nil
}

// truncated turns a clean end of input inside a frame into a ProtocolError.
// Anything else came from the transport and is returned unchanged, including
// transport errors that merely wrap io.EOF
func truncated(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF { //nolint:errorlint
		return protocolErr("read", io.ErrUnexpectedEOF)
	}
	return err
}
