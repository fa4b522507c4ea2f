package conn

import (
	"bufio"
	"context"
	"io"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const (
	defaultDialTimeout = 5 * time.Second
	defaultKeepAlive   = 30 * time.Second
)

// aLongTimeAgo is a deadline in the past, used to kick blocked reads and writes
var aLongTimeAgo = time.Unix(1, 0)

type options struct {
	dialTimeout time.Duration
	keepAlive   time.Duration
	logger      *zap.Logger
}

// Option tunes Dial and New
type Option func(*options)

// WithDialTimeout bounds the TCP handshake. Zero means no limit beyond ctx
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.dialTimeout = d }
}

// WithKeepAlive sets the TCP keep-alive period. Negative disables it
func WithKeepAlive(d time.Duration) Option {
	return func(o *options) { o.keepAlive = d }
}

// WithLogger attaches a logger for connection lifecycle events
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

func buildOptions(opts []Option) options {
	o := options{
		dialTimeout: defaultDialTimeout,
		keepAlive:   defaultKeepAlive,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Conn owns one TCP socket to the server and offers ordered, blocking byte exchange.
// It is not safe for concurrent Send or concurrent reads; Close may be called from any goroutine
type Conn struct {
	netConn net.Conn
	reader  *bufio.Reader
	logger  *zap.Logger

	closed    atomic.Bool
	closeOnce sync.Once
	closeErr  error
}

// Dial opens a TCP connection to host:port
func Dial(ctx context.Context, host, port string, opts ...Option) (*Conn, error) {
	o := buildOptions(opts)
	addr := net.JoinHostPort(host, port)

	dialer := net.Dialer{
		Timeout:   o.dialTimeout,
		KeepAlive: o.keepAlive,
	}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, classifyDial(addr, err)
	}

	c := newConn(netConn, o)
	if c.logger.Core().Enabled(zap.DebugLevel) {
		c.logger.Debug("connected",
			zap.String("addr", addr),
			zap.String("local", netConn.LocalAddr().String()),
		)
	}
	return c, nil
}

// New wraps an established net.Conn. Read and Write must not be called on it afterwards
func New(netConn net.Conn, opts ...Option) *Conn {
	return newConn(netConn, buildOptions(opts))
}

func newConn(netConn net.Conn, o options) *Conn {
	c := &Conn{
		netConn: netConn,
		logger:  o.logger,
	}
	c.reader = bufio.NewReader(sourceReader{c: c})
	return c
}

// Send writes all of b, looping over short writes
func (c *Conn) Send(b []byte) error {
	if c.closed.Load() {
		return &IOError{Op: "write", Err: net.ErrClosed}
	}

	for len(b) > 0 {
		n, err := c.netConn.Write(b)
		if err != nil {
			return &IOError{Op: "write", Err: err}
		}
		if n == 0 {
			return &IOError{Op: "write", Err: io.ErrShortWrite}
		}
		b = b[n:]
	}
	return nil
}

// Reader is the ordered byte source replies are decoded from.
// Socket failures, a peer hang-up included, surface as *IOError
func (c *Conn) Reader() *bufio.Reader {
	return c.reader
}

// Watch expires the socket deadline once ctx is done so a blocked Send or
// read returns. The returned stop must be called when the operation ends;
// it clears the deadline again if ctx fired in the meantime
func (c *Conn) Watch(ctx context.Context) (stop func()) {
	if ctx.Done() == nil {
		return func() {}
	}

	fired := make(chan struct{})
	stopAfter := context.AfterFunc(ctx, func() {
		c.netConn.SetDeadline(aLongTimeAgo) //nolint:errcheck
		close(fired)
	})

	return func() {
		if !stopAfter() {
			<-fired
			c.netConn.SetDeadline(time.Time{}) //nolint:errcheck
		}
	}
}

// Close releases the socket. It is idempotent and unblocks pending reads and writes
func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		c.closed.Store(true)
		if err := c.netConn.Close(); err != nil {
			c.closeErr = &IOError{Op: "close", Err: err}
		}
		if c.logger.Core().Enabled(zap.DebugLevel) {
			c.logger.Debug("connection closed", zap.String("addr", c.RemoteAddr()))
		}
	})
	return c.closeErr
}

// Closed reports whether Close has been called
func (c *Conn) Closed() bool {
	return c.closed.Load()
}

// RemoteAddr returns the server address
func (c *Conn) RemoteAddr() string {
	if addr := c.netConn.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// sourceReader tags socket read errors so they stay distinguishable from codec errors
type sourceReader struct {
	c *Conn
}

func (s sourceReader) Read(p []byte) (int, error) {
	n, err := s.c.netConn.Read(p)
	if err != nil {
		if s.c.closed.Load() {
			err = net.ErrClosed
		}
		return n, &IOError{Op: "read", Err: err}
	}
	return n, nil
}
