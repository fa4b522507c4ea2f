package pubsub

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/eternalApril/moonwire/internal/resp"
)

// Executor runs one command and returns its reply
type Executor interface {
	Execute(ctx context.Context, name string, args ...string) (resp.Value, error)
}

var ErrMalformedFrame = errors.New("malformed push frame")

// Message is a decoded push frame
type Message struct {
	Kind    string // "message", "pmessage", "subscribe", "unsubscribe", ...
	Pattern string // set for "pmessage"
	Channel string
	Payload string // message body, or the subscription count for (un)subscribe frames
}

// IsMessage reports whether m carries published data rather than a confirmation
func (m Message) IsMessage() bool {
	return m.Kind == "message" || m.Kind == "pmessage" || m.Kind == "smessage"
}

// ParseMessage decodes [kind, channel, payload] or [pmessage, pattern, channel, payload]
func ParseMessage(v resp.Value) (Message, error) {
	elems, ok := v.Array()
	if !ok || len(elems) < 3 {
		return Message{}, fmt.Errorf("%w: %s", ErrMalformedFrame, describe(v))
	}

	kind, err := elems[0].Text()
	if err != nil {
		return Message{}, fmt.Errorf("%w: kind: %w", ErrMalformedFrame, err)
	}

	m := Message{Kind: kind}
	rest := elems[1:]

	if kind == "pmessage" {
		if len(elems) != 4 {
			return Message{}, fmt.Errorf("%w: pmessage with %d elements", ErrMalformedFrame, len(elems))
		}
		if m.Pattern, err = elems[1].Text(); err != nil {
			return Message{}, fmt.Errorf("%w: pattern: %w", ErrMalformedFrame, err)
		}
		rest = elems[2:]
	} else if len(elems) != 3 {
		return Message{}, fmt.Errorf("%w: %s with %d elements", ErrMalformedFrame, kind, len(elems))
	}

	// unsubscribe from everything replies with a null channel
	if !rest[0].IsNull() {
		if m.Channel, err = rest[0].Text(); err != nil {
			return Message{}, fmt.Errorf("%w: channel: %w", ErrMalformedFrame, err)
		}
	}

	switch rest[1].Kind() {
	case resp.KindInteger:
		n, _ := rest[1].Int()
		m.Payload = strconv.FormatInt(n, 10)
	default:
		if m.Payload, err = rest[1].Text(); err != nil {
			return Message{}, fmt.Errorf("%w: payload: %w", ErrMalformedFrame, err)
		}
	}

	return m, nil
}

// Publish posts message on channel and returns how many subscribers received it
func Publish(ctx context.Context, exec Executor, channel, message string) (int64, error) {
	v, err := exec.Execute(ctx, "PUBLISH", channel, message)
	if err != nil {
		return 0, err
	}
	return v.Int()
}

func describe(v resp.Value) string {
	if v.IsNull() {
		return "null " + v.Kind().String()
	}
	return fmt.Sprintf("%s of length %d", v.Kind(), v.Len())
}
