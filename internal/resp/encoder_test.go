package resp_test

import (
	"bytes"
	"errors"
	"io"
	"testing"

	"github.com/eternalApril/moonwire/internal/resp"
)

func TestEncoder_Write(t *testing.T) {
	tests := []struct {
		name     string
		input    resp.Value
		expected string
	}{
		{
			name:     "Integer positive",
			input:    resp.Integer(100),
			expected: ":100\r\n",
		},
		{
			name:     "Integer negative",
			input:    resp.Integer(-42),
			expected: ":-42\r\n",
		},
		{
			name:     "Simple String",
			input:    resp.SimpleString("OK"),
			expected: "+OK\r\n",
		},
		{
			name:     "Error",
			input:    resp.Error("Error message"),
			expected: "-Error message\r\n",
		},
		{
			name:     "Bulk String",
			input:    resp.BulkString("hello"),
			expected: "$5\r\nhello\r\n",
		},
		{
			name:     "Bulk String Empty",
			input:    resp.BulkString(""),
			expected: "$0\r\n\r\n",
		},
		{
			name:     "Bulk String Null",
			input:    resp.NullBulkString(),
			expected: "$-1\r\n",
		},
		{
			name: "Array of Strings",
			input: resp.Array(
				resp.BulkString("fff"),
				resp.BulkString("ttt"),
			),
			expected: "*2\r\n$3\r\nfff\r\n$3\r\nttt\r\n",
		},
		{
			name:     "Array Null",
			input:    resp.NullArray(),
			expected: "*-1\r\n",
		},
		{
			name:     "Array Empty",
			input:    resp.Array(),
			expected: "*0\r\n",
		},
		{
			name: "Mixed Array",
			input: resp.Array(
				resp.Integer(1),
				resp.Array(resp.SimpleString("inner")),
			),
			expected: "*2\r\n:1\r\n*1\r\n+inner\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			enc := resp.NewEncoder(&buf)

			err := enc.Write(tt.input)
			if err != nil {
				t.Fatalf("Write() failed: %v", err)
			}

			err = enc.Flush()
			if err != nil {
				t.Fatalf("Flush() failed: %v", err)
			}

			if buf.String() != tt.expected {
				t.Errorf("Write() got = %q, want %q", buf.String(), tt.expected)
			}
		})
	}
}

func TestEncodeCommand(t *testing.T) {
	tests := []struct {
		name     string
		args     []string
		expected string
	}{
		{"INCR", []string{"INCR", "counter"}, "*2\r\n$4\r\nINCR\r\n$7\r\ncounter\r\n"},
		{"Empty argument", []string{"SET", "k", ""}, "*3\r\n$3\r\nSET\r\n$1\r\nk\r\n$0\r\n\r\n"},
		{"Multibyte", []string{"PUBLISH", "ch", "héllo"}, "*3\r\n$7\r\nPUBLISH\r\n$2\r\nch\r\n$6\r\nhéllo\r\n"},
		{
			"XREAD",
			[]string{"XREAD", "BLOCK", "5000", "STREAMS", "mystream", "$"},
			"*6\r\n$5\r\nXREAD\r\n$5\r\nBLOCK\r\n$4\r\n5000\r\n$7\r\nSTREAMS\r\n$8\r\nmystream\r\n$1\r\n$\r\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resp.EncodeCommand(tt.args...)
			if err != nil {
				t.Fatalf("EncodeCommand() failed: %v", err)
			}
			if string(got) != tt.expected {
				t.Errorf("EncodeCommand() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestEncodeCommandEmpty(t *testing.T) {
	_, err := resp.EncodeCommand()
	var encErr *resp.EncodeError
	if !errors.As(err, &encErr) || !errors.Is(err, resp.ErrEmptyCommand) {
		t.Fatalf("EncodeCommand() error = %v, want EncodeError(ErrEmptyCommand)", err)
	}
}

func TestEncoder_WriteError(t *testing.T) {
	errWriter := &errorWriter{}
	enc := resp.NewEncoder(errWriter)

	err := enc.Write(resp.SimpleString("test"))
	if err != nil {
		t.Fatalf("Write() failed: %v", err)
	}

	err = enc.Flush()
	if err == nil {
		t.Error("Expected error from Flush(), but got nil")
	}
}

type errorWriter struct{}

func (e *errorWriter) Write(_ []byte) (n int, err error) {
	return 0, io.ErrClosedPipe
}
