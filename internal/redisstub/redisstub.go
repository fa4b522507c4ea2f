// Package redisstub runs an in-process RESP server for tests. Handlers answer
// with hand-built fixtures so client behaviour can be checked byte for byte
package redisstub

import (
	"net"
	"strings"
	"sync"
	"testing"

	"github.com/tidwall/redcon"
)

// Handler answers one command. args[0] is the command name as sent
type Handler func(conn redcon.Conn, args []string)

// Server is a running stub
type Server struct {
	Host string
	Port string

	mu       sync.Mutex
	commands [][]string
	ln       net.Listener
}

// Start listens on a random loopback port and serves until the test ends
func Start(t testing.TB, handler Handler) *Server {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("stub listen: %v", err)
	}

	host, port, _ := net.SplitHostPort(ln.Addr().String())
	s := &Server{Host: host, Port: port, ln: ln}

	go redcon.Serve(ln, //nolint:errcheck
		func(conn redcon.Conn, cmd redcon.Command) {
			args := make([]string, len(cmd.Args))
			for i, a := range cmd.Args {
				args[i] = string(a)
			}
			s.record(args)
			handler(conn, args)
		},
		nil,
		nil,
	)

	t.Cleanup(func() {
		s.Close() //nolint:errcheck
	})
	return s
}

// Addr is host:port of the stub
func (s *Server) Addr() string {
	return net.JoinHostPort(s.Host, s.Port)
}

// Commands returns every command received so far
func (s *Server) Commands() [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([][]string, len(s.commands))
	copy(out, s.commands)
	return out
}

// Close stops accepting connections
func (s *Server) Close() error {
	return s.ln.Close()
}

func (s *Server) record(args []string) {
	s.mu.Lock()
	s.commands = append(s.commands, args)
	s.mu.Unlock()
}

// Script replies to each command with the next raw fixture, in order.
// Commands past the end of the script get an error reply
func Script(replies ...string) Handler {
	var mu sync.Mutex
	next := 0
	return func(conn redcon.Conn, _ []string) {
		mu.Lock()
		defer mu.Unlock()
		if next >= len(replies) {
			conn.WriteError("ERR script exhausted")
			return
		}
		conn.WriteRaw([]byte(replies[next]))
		next++
	}
}

// Route dispatches on the upper-cased command name
func Route(routes map[string]Handler) Handler {
	return func(conn redcon.Conn, args []string) {
		if h, ok := routes[strings.ToUpper(args[0])]; ok {
			h(conn, args)
			return
		}
		conn.WriteError("ERR unknown command '" + args[0] + "'")
	}
}

// Raw always answers with the same fixture
func Raw(reply string) Handler {
	return func(conn redcon.Conn, _ []string) {
		conn.WriteRaw([]byte(reply))
	}
}
