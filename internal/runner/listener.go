package runner

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/eternalApril/moonwire/internal/client"
	"github.com/eternalApril/moonwire/internal/pubsub"
)

// Listener subscribes to a set of channels and prints every message.
// Subscription mode is one-way, so a reconnect always starts a new subscription
type Listener struct {
	Options
	Channels []string
}

// Run blocks until ctx is done or the server refuses the subscription
func (r *Listener) Run(ctx context.Context) error {
	return r.run(ctx, "listener", r.session)
}

func (r *Listener) session(ctx context.Context, c *client.Client, progress func()) error {
	if _, err := c.Subscribe(ctx, r.Channels...); err != nil {
		return err
	}
	progress()
	r.log().Info("subscribed", zap.Strings("channels", r.Channels))

	for {
		v, err := c.ReadFrame(ctx)
		if err != nil {
			return err
		}
		progress()

		msg, err := pubsub.ParseMessage(v)
		if err != nil {
			return protocol("read push frame", err)
		}
		if !msg.IsMessage() {
			continue
		}

		if _, err := fmt.Fprintf(r.Out, "[%s] %s\n", msg.Channel, msg.Payload); err != nil {
			return err
		}
	}
}
