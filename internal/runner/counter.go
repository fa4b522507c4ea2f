package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/eternalApril/moonwire/internal/client"
)

// Counter increments one key on an interval and prints each new value
type Counter struct {
	Options
	Key      string
	Interval time.Duration
	Limit    int // 0 runs until ctx is done

	done int
}

// Run blocks until ctx is done, Limit increments were printed, or the server
// rejects INCR
func (r *Counter) Run(ctx context.Context) error {
	return r.run(ctx, "counter", r.session)
}

func (r *Counter) session(ctx context.Context, c *client.Client, progress func()) error {
	for r.Limit == 0 || r.done < r.Limit {
		v, err := c.Execute(ctx, "INCR", r.Key)
		if err != nil {
			return err
		}
		progress()
		r.done++

		if _, err := fmt.Fprintln(r.Out, v); err != nil {
			return err
		}

		if r.Limit != 0 && r.done >= r.Limit {
			break
		}
		if err := sleep(ctx, r.Interval); err != nil {
			return err
		}
	}
	return nil
}
