// Package runner holds the long-running loops behind the example programs.
// Each loop owns one client at a time and redials with backoff when the
// connection breaks
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/eternalApril/moonwire/internal/client"
)

// Dialer opens a fresh client
type Dialer func(ctx context.Context) (*client.Client, error)

// DialerFor returns a Dialer for host:port
func DialerFor(host, port string, opts ...client.Option) Dialer {
	return func(ctx context.Context) (*client.Client, error) {
		return client.Dial(ctx, host, port, opts...)
	}
}

// Options are shared by every runner
type Options struct {
	Dial    Dialer
	Out     io.Writer       // console sink for decoded replies
	Logger  *zap.Logger     // defaults to a no-op logger
	Backoff backoff.BackOff // defaults to backoff.NewExponentialBackOff
}

// session runs on one connection until it fails. progress is called after
// every successful exchange
type session func(ctx context.Context, c *client.Client, progress func()) error

// run drives s across reconnects. Transport and protocol failures are retried,
// anything else ends the loop. Cancellation is a clean exit
func (o *Options) run(ctx context.Context, name string, s session) error {
	log := o.log()
	policy := o.Backoff
	if policy == nil {
		policy = backoff.NewExponentialBackOff()
	}
	b := backoff.WithContext(policy, ctx)

	attempt := func() error {
		c, err := o.Dial(ctx)
		if err == nil {
			if log.Core().Enabled(zap.DebugLevel) {
				log.Debug("connected", zap.String("runner", name))
			}
			err = s(ctx, c, b.Reset)
			c.Close() //nolint:errcheck
		}
		if err == nil {
			return nil
		}

		switch client.Kind(err) {
		case client.KindConnection, client.KindIO, client.KindProtocol:
			return err
		default:
			return backoff.Permanent(err)
		}
	}

	notify := func(err error, wait time.Duration) {
		log.Warn("connection lost, retrying",
			zap.String("runner", name),
			zap.Duration("in", wait),
			zap.Error(err),
		)
	}

	err := backoff.RetryNotify(attempt, b, notify)
	if err == nil || ctx.Err() != nil || client.Kind(err) == client.KindCanceled {
		return nil
	}
	return fmt.Errorf("%s: %w", name, err)
}

func (o *Options) log() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

// sleep waits for d or until ctx is done
func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// protocol marks a reply the runner could not make sense of, so the
// connection is treated as out of sync and redialed
func protocol(op string, err error) error {
	var pe *client.ProtocolError
	if errors.As(err, &pe) {
		return err
	}
	return &client.ProtocolError{Op: op, Err: err}
}
