package runner

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/eternalApril/moonwire/internal/client"
	"github.com/eternalApril/moonwire/internal/stream"
)

// StreamConsumer tails one stream with bounded XREADs. The Poller, and with it
// the cursor, outlives individual connections
type StreamConsumer struct {
	Options
	Poller *stream.Poller
}

// Run blocks until ctx is done or the server rejects XREAD
func (r *StreamConsumer) Run(ctx context.Context) error {
	return r.run(ctx, "stream", r.session)
}

func (r *StreamConsumer) session(ctx context.Context, c *client.Client, progress func()) error {
	for {
		entries, err := r.Poller.Poll(ctx, c)
		switch {
		case errors.Is(err, stream.ErrCursorSave):
			r.log().Warn("stream cursor not persisted",
				zap.String("cursor", r.Poller.Cursor()),
				zap.Error(err),
			)
		case errors.Is(err, stream.ErrMalformedReply):
			return protocol("xread", err)
		case err != nil:
			return err
		}
		progress()

		for _, e := range entries {
			if _, err := fmt.Fprintln(r.Out, e); err != nil {
				return err
			}
		}
	}
}
