package client

import (
	"context"
	"errors"
	"io"
	"net"
	"os"
	"slices"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/redcon"

	"github.com/eternalApril/moonwire/internal/conn"
	"github.com/eternalApril/moonwire/internal/metrics"
	"github.com/eternalApril/moonwire/internal/redisstub"
	"github.com/eternalApril/moonwire/internal/resp"
)

const (
	subscribeNotify = "*3\r\n$9\r\nsubscribe\r\n$6\r\nnotify\r\n:1\r\n"
	messageHello    = "*3\r\n$7\r\nmessage\r\n$6\r\nnotify\r\n$5\r\nhello\r\n"
)

type step struct {
	expect []string // nil means don't read a request first
	reply  string
}

// scripted returns a Client talking to a fake server over net.Pipe that
// checks each request and answers with the scripted bytes
func scripted(t *testing.T, steps ...step) *Client {
	t.Helper()

	clientSide, serverSide := net.Pipe()
	go func() {
		defer serverSide.Close() //nolint:errcheck
		dec := resp.NewDecoder(serverSide)
		for _, s := range steps {
			if s.expect != nil {
				v, err := dec.Read()
				if err != nil {
					return
				}
				if got := commandArgs(v); !slices.Equal(got, s.expect) {
					t.Errorf("server got %q, want %q", got, s.expect)
					return
				}
			}
			if s.reply == "" {
				continue
			}
			if _, err := serverSide.Write([]byte(s.reply)); err != nil {
				return
			}
		}
		io.Copy(io.Discard, serverSide) //nolint:errcheck
	}()

	c := New(conn.New(clientSide))
	t.Cleanup(func() {
		c.Close() //nolint:errcheck
	})
	return c
}

func commandArgs(v resp.Value) []string {
	elems, _ := v.Array()
	out := make([]string, len(elems))
	for i, el := range elems {
		out[i], _ = el.Text()
	}
	return out
}

func dialStub(t *testing.T, handler redisstub.Handler, opts ...Option) (*Client, *redisstub.Server) {
	t.Helper()
	srv := redisstub.Start(t, handler)
	c, err := Dial(context.Background(), srv.Host, srv.Port, opts...)
	require.NoError(t, err)
	t.Cleanup(func() {
		c.Close() //nolint:errcheck
	})
	return c, srv
}

func TestExecuteIncr(t *testing.T) {
	c, srv := dialStub(t, redisstub.Script(":1\r\n", ":2\r\n"))
	ctx := context.Background()

	for want := int64(1); want <= 2; want++ {
		v, err := c.Execute(ctx, "INCR", "counter")
		require.NoError(t, err)
		n, err := v.Int()
		require.NoError(t, err)
		assert.Equal(t, want, n)
		assert.Equal(t, StateIdle, c.State())
	}

	assert.Equal(t, [][]string{{"INCR", "counter"}, {"INCR", "counter"}}, srv.Commands())
}

func TestExecuteNullArrayIsNotAnError(t *testing.T) {
	c := scripted(t,
		step{expect: []string{"XREAD", "BLOCK", "100", "STREAMS", "s", "$"}, reply: "*-1\r\n"},
		step{expect: []string{"XREAD", "BLOCK", "100", "STREAMS", "s", "$"}, reply: "*-1\r\n"},
	)

	for i := 0; i < 2; i++ {
		v, err := c.Execute(context.Background(), "XREAD", "BLOCK", "100", "STREAMS", "s", "$")
		require.NoError(t, err)
		assert.Equal(t, resp.KindArray, v.Kind())
		assert.True(t, v.IsNull())
		assert.Equal(t, StateIdle, c.State())
	}
}

func TestExecuteServerError(t *testing.T) {
	c, _ := dialStub(t, redisstub.Route(map[string]redisstub.Handler{
		"INCR": func(conn redcon.Conn, _ []string) {
			conn.WriteError("WRONGTYPE Operation against a key holding the wrong kind of value")
		},
		"PING": redisstub.Raw("+PONG\r\n"),
	}))

	_, err := c.Execute(context.Background(), "INCR", "k")
	var serverErr *ServerError
	require.True(t, errors.As(err, &serverErr), "got %v", err)
	assert.Equal(t, "WRONGTYPE", serverErr.Prefix())
	assert.Equal(t, KindServer, Kind(err))

	// the connection survives a server error
	v, err := c.Execute(context.Background(), "PING")
	require.NoError(t, err)
	s, _ := v.Text()
	assert.Equal(t, "PONG", s)
}

func TestExecuteAfterSubscribeFails(t *testing.T) {
	c := scripted(t,
		step{expect: []string{"subscribe", "notify"}, reply: subscribeNotify},
	)

	v, err := c.Execute(context.Background(), "subscribe", "notify")
	require.NoError(t, err)
	assert.Equal(t, 3, v.Len())
	assert.Equal(t, StateSubscribed, c.State())

	_, err = c.Execute(context.Background(), "PING")
	var protoErr *ProtocolError
	require.True(t, errors.As(err, &protoErr), "got %v", err)
	assert.ErrorIs(t, err, ErrSubscribed)
	assert.Equal(t, KindProtocol, Kind(err))
	assert.Equal(t, StateSubscribed, c.State(), "a rejected call must not change state")
}

func TestReadFrame(t *testing.T) {
	c := scripted(t,
		step{expect: []string{"SUBSCRIBE", "notify"}, reply: subscribeNotify},
		step{reply: messageHello},
	)
	ctx := context.Background()

	_, err := c.Execute(ctx, "SUBSCRIBE", "notify")
	require.NoError(t, err)

	frame, err := c.ReadFrame(ctx)
	require.NoError(t, err)
	require.Equal(t, 3, frame.Len())

	channel, _ := frame.Index(1)
	payload, _ := frame.Index(2)
	ch, _ := channel.Text()
	msg, _ := payload.Text()
	assert.Equal(t, "notify", ch)
	assert.Equal(t, "hello", msg)
	assert.Equal(t, StateSubscribed, c.State())
}

func TestReadFrameRequiresSubscription(t *testing.T) {
	c := scripted(t)

	_, err := c.ReadFrame(context.Background())
	assert.ErrorIs(t, err, ErrNotSubscribed)
	assert.Equal(t, StateIdle, c.State())
}

func TestSubscribeMultipleChannels(t *testing.T) {
	c, _ := dialStub(t, redisstub.Raw(
		"*3\r\n$9\r\nsubscribe\r\n$1\r\na\r\n:1\r\n"+
			"*3\r\n$9\r\nsubscribe\r\n$1\r\nb\r\n:2\r\n"+
			"*3\r\n$7\r\nmessage\r\n$1\r\nb\r\n$2\r\nhi\r\n",
	))
	ctx := context.Background()

	confirmations, err := c.Subscribe(ctx, "a", "b")
	require.NoError(t, err)
	require.Len(t, confirmations, 2)
	last, _ := confirmations[1].Index(2)
	n, _ := last.Int()
	assert.Equal(t, int64(2), n)

	frame, err := c.ReadFrame(ctx)
	require.NoError(t, err)
	kind, _ := frame.Index(0)
	s, _ := kind.Text()
	assert.Equal(t, "message", s)

	_, err = c.Subscribe(ctx)
	assert.ErrorIs(t, err, ErrNoChannels)
}

func TestReadFrameCanceled(t *testing.T) {
	c := scripted(t,
		step{expect: []string{"SUBSCRIBE", "notify"}, reply: subscribeNotify},
	)

	_, err := c.Execute(context.Background(), "SUBSCRIBE", "notify")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	_, err = c.ReadFrame(ctx)
	require.Error(t, err)
	assert.Equal(t, KindCanceled, Kind(err))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateClosed, c.State())
}

func TestCloseUnblocksReadFrame(t *testing.T) {
	c := scripted(t,
		step{expect: []string{"SUBSCRIBE", "notify"}, reply: subscribeNotify},
	)
	_, err := c.Execute(context.Background(), "SUBSCRIBE", "notify")
	require.NoError(t, err)

	go func() {
		time.Sleep(20 * time.Millisecond)
		c.Close() //nolint:errcheck
	}()

	_, err = c.ReadFrame(context.Background())
	assert.Equal(t, KindIO, Kind(err))
	assert.ErrorIs(t, err, net.ErrClosed)
}

func TestPeerHangupIsIOError(t *testing.T) {
	clientSide, serverSide := net.Pipe()
	serverSide.Close() //nolint:errcheck
	c := New(conn.New(clientSide))

	_, err := c.Execute(context.Background(), "PING")
	var ioErr *IOError
	require.True(t, errors.As(err, &ioErr), "got %T %v", err, err)
	assert.Equal(t, StateClosed, c.State())

	_, err = c.Execute(context.Background(), "PING")
	assert.ErrorIs(t, err, net.ErrClosed)
	assert.Equal(t, KindIO, Kind(err))
}

func TestMalformedReplyClosesConnection(t *testing.T) {
	c := scripted(t,
		step{expect: []string{"PING"}, reply: "!bogus\r\n"},
	)

	_, err := c.Execute(context.Background(), "PING")
	assert.ErrorIs(t, err, resp.ErrUnknownType)
	assert.Equal(t, KindProtocol, Kind(err))
	assert.Equal(t, StateClosed, c.State())
}

func TestConcurrentExecuteIsBusy(t *testing.T) {
	c := scripted(t,
		step{expect: []string{"XREAD", "BLOCK", "0", "STREAMS", "s", "$"}},
	)

	done := make(chan error, 1)
	go func() {
		_, err := c.Execute(context.Background(), "XREAD", "BLOCK", "0", "STREAMS", "s", "$")
		done <- err
	}()

	require.Eventually(t, func() bool { return c.State() == StateAwaitingReply },
		time.Second, 5*time.Millisecond)

	_, err := c.Execute(context.Background(), "PING")
	assert.ErrorIs(t, err, ErrBusy)

	c.Close() //nolint:errcheck
	assert.Error(t, <-done)
}

func TestDialRefused(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	host, port, _ := net.SplitHostPort(ln.Addr().String())
	ln.Close() //nolint:errcheck

	_, err = Dial(context.Background(), host, port, WithDialTimeout(time.Second))
	var connErr *ConnectionError
	require.True(t, errors.As(err, &connErr))
	assert.Equal(t, conn.ReasonRefused, connErr.Reason)
	assert.Equal(t, KindConnection, Kind(err))
}

func TestDialTimeoutIsConnectionKind(t *testing.T) {
	_, err := Dial(context.Background(), "127.0.0.1", "1", WithDialTimeout(time.Nanosecond))
	require.Error(t, err)

	var connErr *ConnectionError
	require.ErrorAs(t, err, &connErr)
	assert.Equal(t, conn.ReasonTimeout, connErr.Reason)
	assert.Equal(t, KindConnection, Kind(err))
}

func TestMetricsRecorded(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.New(reg)
	require.NoError(t, err)

	c, _ := dialStub(t, redisstub.Script(":1\r\n", "-ERR boom\r\n"), WithMetrics(m))

	_, err = c.Execute(context.Background(), "INCR", "x")
	require.NoError(t, err)
	_, err = c.Execute(context.Background(), "INCR", "x")
	require.Error(t, err)

	n, err := testutil.GatherAndCount(reg, "moonwire_commands_total", "moonwire_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestKind(t *testing.T) {
	tests := []struct {
		err  error
		want ErrorKind
	}{
		{nil, KindUnknown},
		{errors.New("x"), KindUnknown},
		{&ServerError{Msg: "ERR x"}, KindServer},
		{&ProtocolError{Op: "read", Err: io.ErrUnexpectedEOF}, KindProtocol},
		{&IOError{Op: "read", Err: io.EOF}, KindIO},
		{&ConnectionError{Addr: "a:1", Err: errors.New("x")}, KindConnection},
		{&ConnectionError{Addr: "a:1", Reason: conn.ReasonTimeout, Err: context.DeadlineExceeded}, KindConnection},
		{&IOError{Op: "read", Err: os.ErrDeadlineExceeded}, KindIO},
		{&canceledError{ctxErr: context.Canceled, err: &IOError{Op: "read", Err: os.ErrDeadlineExceeded}}, KindCanceled},
		{context.Canceled, KindCanceled},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Kind(tt.err), "%v", tt.err)
	}
	assert.Equal(t, "server", KindServer.String())
}
