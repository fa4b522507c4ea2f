package resp

// Reader yields decoded values one frame at a time
type Reader interface {
	Read() (Value, error)
}

// Writer buffers encoded values until Flush
type Writer interface {
	Write(v Value) error
	Flush() error
}

var (
	_ Reader = (*Decoder)(nil)
	_ Writer = (*Encoder)(nil)
)
