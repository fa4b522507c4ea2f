package resp

import "slices"

// SimpleString construct SimpleString Value from string
func SimpleString(s string) Value {
	return Value{
		kind: KindSimpleString,
		str:  []byte(s),
	}
}

// Error construct Error Value from string
func Error(s string) Value {
	return Value{
		kind: KindError,
		str:  []byte(s),
	}
}

// BulkString construct BulkString Value from string
func BulkString(s string) Value {
	return Value{
		kind: KindBulkString,
		str:  []byte(s),
	}
}

// BulkBytes construct BulkString Value from a copy of b
func BulkBytes(b []byte) Value {
	if b == nil {
		b = []byte{}
	}
	return Value{
		kind: KindBulkString,
		str:  slices.Clone(b),
	}
}

// NullBulkString construct nil BulkString Value
func NullBulkString() Value {
	return Value{
		kind: KindBulkString,
		null: true,
	}
}

// Integer construct Integer Value from int64
func Integer(n int64) Value {
	return Value{
		kind: KindInteger,
		num:  n,
	}
}

// Array creates a RESP array containing the provided elements
func Array(values ...Value) Value {
	return Value{
		kind: KindArray,
		arr:  slices.Clone(values),
	}
}

// NullArray construct nil Array Value
func NullArray() Value {
	return Value{
		kind: KindArray,
		null: true,
	}
}
