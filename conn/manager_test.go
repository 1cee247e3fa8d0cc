package conn

import (
	"bufio"
	"context"
	"net"
	"testing"
	"time"

	denet "github.com/hlandau/goutils/net"
	"github.com/ternbot/tern/wire"
)

// mockServer reads handshake lines off one end of a net.Pipe and lets the
// test script back responses, standing in for a real IRC server — grounded
// on Travis-Britz-irc/irctest.Server's mock duplex connection, using
// net.Pipe instead of a double io.Pipe for the same effect.
type mockServer struct {
	conn net.Conn
	r    *bufio.Reader
}

func newMockServer(conn net.Conn) *mockServer {
	return &mockServer{conn: conn, r: bufio.NewReader(conn)}
}

func (s *mockServer) readLine(t *testing.T) string {
	t.Helper()
	line, err := s.r.ReadString('\n')
	if err != nil {
		t.Fatalf("mock server read error: %v", err)
	}
	return line
}

func (s *mockServer) send(t *testing.T, line string) {
	t.Helper()
	if _, err := s.conn.Write([]byte(line)); err != nil {
		t.Fatalf("mock server write error: %v", err)
	}
}

func TestManagerHandshakeAndReconnectSurvival(t *testing.T) {
	client, server := net.Pipe()
	mock := newMockServer(server)

	dials := 0
	m := New(Config{
		Nick:    "bot",
		User:    "bot",
		Backoff: denet.Backoff{},
	})
	m.cfg.dialOverride = func() (net.Conn, error) {
		dials++
		if dials == 1 {
			return client, nil
		}
		c2, s2 := net.Pipe()
		go serveSecondConnection(t, s2)
		return c2, nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runErr := make(chan error, 1)
	go func() { runErr <- m.Run(ctx) }()

	if got := mock.readLine(t); got != "USER bot 8 * :bot\r\n" {
		t.Fatalf("handshake USER line = %q", got)
	}
	if got := mock.readLine(t); got != "NICK bot \r\n" {
		t.Fatalf("handshake NICK line = %q", got)
	}

	mock.send(t, ":irc.example 001 bot :welcome\r\n")

	select {
	case msg := <-m.Messages():
		if msg.Command != "001" {
			t.Fatalf("first inbound message command = %q, want 001", msg.Command)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for 001")
	}

	// Simulate the first connection dying; Run should reconnect.
	server.Close()

	// The zero-value Backoff's first retry delay is an external library
	// default; give reconnection a generous window to complete.
	select {
	case msg := <-m.Messages():
		if msg.Command != "001" {
			t.Fatalf("post-reconnect message command = %q, want 001", msg.Command)
		}
	case <-time.After(10 * time.Second):
		t.Fatal("manager did not survive reconnect within deadline")
	}

	m.Close()
	select {
	case <-runErr:
	case <-time.After(time.Second):
		t.Fatal("Run() did not return after Close()")
	}
}

func serveSecondConnection(t *testing.T, s net.Conn) {
	mock := newMockServer(s)
	mock.readLine(t)
	mock.readLine(t)
	mock.send(t, ":irc.example 001 bot :welcome back\r\n")
}

func TestManagerSendRequiresConnection(t *testing.T) {
	m := New(Config{Nick: "bot", User: "bot"})
	if err := m.Send(&wire.Message{Command: "PING"}); err == nil {
		t.Fatal("expected Send() to fail with no live connection")
	}
}
