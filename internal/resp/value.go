package resp

import (
	"errors"
	"fmt"
	"slices"
)

// Kind tags the variant held by a Value. The tag bytes are the RESP type prefixes
type Kind byte

const (
	KindSimpleString Kind = '+'
	KindError        Kind = '-'
	KindInteger      Kind = ':'
	KindBulkString   Kind = '$'
	KindArray        Kind = '*'
)

func (k Kind) String() string {
	switch k {
	case KindSimpleString:
		return "simple string"
	case KindError:
		return "error"
	case KindInteger:
		return "integer"
	case KindBulkString:
		return "bulk string"
	case KindArray:
		return "array"
	}
	return fmt.Sprintf("kind(%q)", byte(k))
}

// ErrNull is returned by accessors called on a null bulk string or null array
var ErrNull = errors.New("resp: null value")

// TypeError is returned when an accessor is called on a Value of another kind
type TypeError struct {
	Want Kind
	Got  Kind
}

func (e *TypeError) Error() string {
	return fmt.Sprintf("resp: value is %s, not %s", e.Got, e.Want)
}

// Value is one decoded RESP reply. It is immutable: accessors hand out copies
type Value struct {
	str  []byte  // SimpleString, Error, BulkString
	arr  []Value // Array
	num  int64   // Integer
	kind Kind
	null bool // nil BulkString and nil Array
}

// Kind returns the variant tag
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether v is a null bulk string or a null array
func (v Value) IsNull() bool {
	return v.null
}

// Int returns the value of an Integer
func (v Value) Int() (int64, error) {
	if v.kind != KindInteger {
		return 0, &TypeError{Want: KindInteger, Got: v.kind}
	}
	return v.num, nil
}

// Text returns the payload of a SimpleString, Error or BulkString as a string
func (v Value) Text() (string, error) {
	switch v.kind {
	case KindSimpleString, KindError:
		return string(v.str), nil
	case KindBulkString:
		if v.null {
			return "", ErrNull
		}
		return string(v.str), nil
	}
	return "", &TypeError{Want: KindBulkString, Got: v.kind}
}

// Bytes returns a copy of the string payload. ok is false for null or non-string values
func (v Value) Bytes() (b []byte, ok bool) {
	switch v.kind {
	case KindSimpleString, KindError, KindBulkString:
		if v.null {
			return nil, false
		}
		return slices.Clone(v.str), true
	}
	return nil, false
}

// Array returns a copy of the elements. ok is false for null arrays and other kinds
func (v Value) Array() (elems []Value, ok bool) {
	if v.kind != KindArray || v.null {
		return nil, false
	}
	return slices.Clone(v.arr), true
}

// Len is the element count of an array, or the payload length of a string kind
func (v Value) Len() int {
	if v.kind == KindArray {
		return len(v.arr)
	}
	return len(v.str)
}

// Index returns the i-th element of an array
func (v Value) Index(i int) (Value, error) {
	if v.kind != KindArray {
		return Value{}, &TypeError{Want: KindArray, Got: v.kind}
	}
	if v.null {
		return Value{}, ErrNull
	}
	if i < 0 || i >= len(v.arr) {
		return Value{}, fmt.Errorf("resp: index %d out of range [0,%d)", i, len(v.arr))
	}
	return v.arr[i], nil
}

// Equal reports whether two values hold the same variant and contents
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind || v.null != o.null || v.num != o.num {
		return false
	}
	if string(v.str) != string(o.str) || len(v.arr) != len(o.arr) {
		return false
	}
	for i := range v.arr {
		if !v.arr[i].Equal(o.arr[i]) {
			return false
		}
	}
	return true
}
