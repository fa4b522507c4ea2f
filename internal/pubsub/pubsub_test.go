package pubsub

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eternalApril/moonwire/internal/client"
	"github.com/eternalApril/moonwire/internal/redisstub"
	"github.com/eternalApril/moonwire/internal/resp"
)

func decode(t *testing.T, raw string) resp.Value {
	t.Helper()
	v, err := resp.NewDecoder(strings.NewReader(raw)).Read()
	require.NoError(t, err)
	return v
}

func TestParseMessage(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Message
	}{
		{
			name: "message",
			raw:  "*3\r\n$7\r\nmessage\r\n$6\r\nnotify\r\n$5\r\nhello\r\n",
			want: Message{Kind: "message", Channel: "notify", Payload: "hello"},
		},
		{
			name: "subscribe confirmation",
			raw:  "*3\r\n$9\r\nsubscribe\r\n$6\r\nnotify\r\n:1\r\n",
			want: Message{Kind: "subscribe", Channel: "notify", Payload: "1"},
		},
		{
			name: "pmessage",
			raw:  "*4\r\n$8\r\npmessage\r\n$2\r\nn*\r\n$6\r\nnotify\r\n$2\r\nhi\r\n",
			want: Message{Kind: "pmessage", Pattern: "n*", Channel: "notify", Payload: "hi"},
		},
		{
			name: "unsubscribe all",
			raw:  "*3\r\n$11\r\nunsubscribe\r\n$-1\r\n:0\r\n",
			want: Message{Kind: "unsubscribe", Payload: "0"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseMessage(decode(t, tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseMessageMalformed(t *testing.T) {
	tests := []string{
		":1\r\n",
		"*-1\r\n",
		"*2\r\n$7\r\nmessage\r\n$1\r\na\r\n",
		"*4\r\n$7\r\nmessage\r\n$1\r\na\r\n$1\r\nb\r\n$1\r\nc\r\n",
		"*3\r\n:1\r\n$1\r\na\r\n$1\r\nb\r\n",
		"*3\r\n$7\r\nmessage\r\n$1\r\na\r\n*0\r\n",
	}

	for _, raw := range tests {
		_, err := ParseMessage(decode(t, raw))
		assert.ErrorIs(t, err, ErrMalformedFrame, "input %q", raw)
	}
}

func TestIsMessage(t *testing.T) {
	assert.True(t, Message{Kind: "message"}.IsMessage())
	assert.True(t, Message{Kind: "pmessage"}.IsMessage())
	assert.False(t, Message{Kind: "subscribe"}.IsMessage())
}

func TestPublish(t *testing.T) {
	srv := redisstub.Start(t, redisstub.Raw(":3\r\n"))
	c, err := client.Dial(context.Background(), srv.Host, srv.Port)
	require.NoError(t, err)
	defer c.Close() //nolint:errcheck

	n, err := Publish(context.Background(), c, "notify", "hello")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)
	assert.Equal(t, [][]string{{"PUBLISH", "notify", "hello"}}, srv.Commands())
}
