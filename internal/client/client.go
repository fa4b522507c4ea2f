package client

import (
	"context"
	"fmt"
	"io"
	"net"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/eternalApril/moonwire/internal/conn"
	"github.com/eternalApril/moonwire/internal/metrics"
	"github.com/eternalApril/moonwire/internal/resp"
)

// State is the position of a Client in its request/subscription lifecycle
type State int32

const (
	StateIdle State = iota
	StateAwaitingReply
	StateSubscribed
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingReply:
		return "awaiting-reply"
	case StateSubscribed:
		return "subscribed"
	case StateClosed:
		return "closed"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

type options struct {
	logger   *zap.Logger
	metrics  *metrics.Collector
	connOpts []conn.Option
}

// Option configures a Client
type Option func(*options)

// WithLogger sets the logger used for lifecycle events
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics records commands, errors and push frames into m
func WithMetrics(m *metrics.Collector) Option {
	return func(o *options) { o.metrics = m }
}

// WithDialTimeout bounds the TCP handshake in Dial
func WithDialTimeout(d time.Duration) Option {
	return func(o *options) { o.connOpts = append(o.connOpts, conn.WithDialTimeout(d)) }
}

func buildOptions(opts []Option) options {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Client issues commands over a single connection, one request at a time.
//
// Idle -> AwaitingReply on Execute, back to Idle once the reply is decoded.
// A successful SUBSCRIBE, PSUBSCRIBE or SSUBSCRIBE moves it to Subscribed
// for good: from then on only ReadFrame is allowed. Any transport or
// protocol failure closes the connection.
type Client struct {
	conn    *conn.Conn
	decoder *resp.Decoder
	state   atomic.Int32
	logger  *zap.Logger
	metrics *metrics.Collector
}

// Dial connects to host:port and returns an idle Client
func Dial(ctx context.Context, host, port string, opts ...Option) (*Client, error) {
	o := buildOptions(opts)

	c, err := conn.Dial(ctx, host, port, append(o.connOpts, conn.WithLogger(o.logger))...)
	if err != nil {
		o.metrics.ObserveError(Kind(err).String())
		return nil, err
	}

	return newClient(c, o), nil
}

// New builds a Client on top of an existing connection
func New(c *conn.Conn, opts ...Option) *Client {
	return newClient(c, buildOptions(opts))
}

func newClient(c *conn.Conn, o options) *Client {
	return &Client{
		conn:    c,
		decoder: resp.NewDecoder(c.Reader()),
		logger:  o.logger,
		metrics: o.metrics,
	}
}

// Execute sends one command and blocks for its reply.
// A null reply (e.g. XREAD timing out) is returned as a null Value, not an error.
// An error reply is returned as *ServerError and leaves the connection usable
func (c *Client) Execute(ctx context.Context, name string, args ...string) (resp.Value, error) {
	if err := c.begin(StateIdle, "execute"); err != nil {
		return resp.Value{}, c.observe(err)
	}

	frame, err := resp.EncodeCommand(append([]string{name}, args...)...)
	if err != nil {
		c.finish(StateIdle)
		return resp.Value{}, c.observe(err)
	}

	start := time.Now()
	stop := c.conn.Watch(ctx)
	err = c.conn.Send(frame)
	var v resp.Value
	if err == nil {
		v, err = c.decoder.Read()
	}
	stop()

	if err != nil {
		return resp.Value{}, c.observe(c.abort(ctx, err))
	}
	c.metrics.ObserveCommand(name, time.Since(start))

	if v.Kind() == resp.KindError {
		c.finish(StateIdle)
		msg, _ := v.Text()
		return resp.Value{}, c.observe(&ServerError{Msg: msg})
	}

	next := StateIdle
	if isSubscribe(name) {
		next = StateSubscribed
		if c.logger.Core().Enabled(zap.DebugLevel) {
			c.logger.Debug("entered subscription mode",
				zap.String("cmd", strings.ToUpper(name)),
				zap.Strings("channels", args),
			)
		}
	}
	c.finish(next)

	return v, nil
}

// ReadFrame blocks for exactly one push frame. Only legal while Subscribed.
// There is no built-in timeout: cancel ctx or Close the client to stop waiting
func (c *Client) ReadFrame(ctx context.Context) (resp.Value, error) {
	if err := c.begin(StateSubscribed, "read frame"); err != nil {
		return resp.Value{}, c.observe(err)
	}

	stop := c.conn.Watch(ctx)
	v, err := c.decoder.Read()
	stop()

	if err != nil {
		return resp.Value{}, c.observe(c.abort(ctx, err))
	}
	c.metrics.ObservePushFrame()
	c.finish(StateSubscribed)

	if v.Kind() == resp.KindError {
		msg, _ := v.Text()
		return resp.Value{}, c.observe(&ServerError{Msg: msg})
	}

	return v, nil
}

// Subscribe subscribes to channels and returns one confirmation frame per channel
func (c *Client) Subscribe(ctx context.Context, channels ...string) ([]resp.Value, error) {
	if len(channels) == 0 {
		return nil, &ProtocolError{Op: "subscribe", Err: ErrNoChannels}
	}

	first, err := c.Execute(ctx, "SUBSCRIBE", channels...)
	if err != nil {
		return nil, err
	}

	confirmations := make([]resp.Value, 0, len(channels))
	confirmations = append(confirmations, first)
	for len(confirmations) < len(channels) {
		v, err := c.ReadFrame(ctx)
		if err != nil {
			return confirmations, err
		}
		confirmations = append(confirmations, v)
	}

	return confirmations, nil
}

// State reports the current lifecycle state
func (c *Client) State() State {
	return State(c.state.Load())
}

// Close releases the connection. Safe to call from another goroutine to
// unblock a pending Execute or ReadFrame
func (c *Client) Close() error {
	c.state.Store(int32(StateClosed))
	return c.conn.Close()
}

// begin claims the connection for one operation, which must start in from
func (c *Client) begin(from State, op string) error {
	if c.state.CompareAndSwap(int32(from), int32(StateAwaitingReply)) {
		return nil
	}

	switch c.State() {
	case StateSubscribed:
		return &ProtocolError{Op: op, Err: ErrSubscribed}
	case StateAwaitingReply:
		return &ProtocolError{Op: op, Err: ErrBusy}
	case StateClosed:
		return &IOError{Op: op, Err: net.ErrClosed}
	default:
		return &ProtocolError{Op: op, Err: ErrNotSubscribed}
	}
}

// finish leaves AwaitingReply unless a concurrent Close got there first
func (c *Client) finish(next State) {
	c.state.CompareAndSwap(int32(StateAwaitingReply), int32(next))
}

// abort closes the connection after a failure that leaves the stream unusable
func (c *Client) abort(ctx context.Context, err error) error {
	if err == io.EOF { //nolint:errorlint
		err = &IOError{Op: "read", Err: io.EOF}
	}

	if c.logger.Core().Enabled(zap.DebugLevel) {
		c.logger.Debug("dropping connection",
			zap.String("addr", c.conn.RemoteAddr()),
			zap.Error(err),
		)
	}
	c.Close() //nolint:errcheck

	if ctxErr := ctx.Err(); ctxErr != nil {
		return &canceledError{ctxErr: ctxErr, err: err}
	}
	return err
}

func (c *Client) observe(err error) error {
	c.metrics.ObserveError(Kind(err).String())
	return err
}

func isSubscribe(name string) bool {
	return strings.EqualFold(name, "SUBSCRIBE") ||
		strings.EqualFold(name, "PSUBSCRIBE") ||
		strings.EqualFold(name, "SSUBSCRIBE")
}
