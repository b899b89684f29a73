package tcp

import (
	"bufio"
	"context"
	"net"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/vovakirdan/linechat-server/internal/command"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/session"
)

func startServer(t *testing.T, handler Handler, shutdown time.Duration) (*Server, context.CancelFunc, chan error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	srv := NewServer("", handler, shutdown, nil)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ctx, ln) }()
	t.Cleanup(cancel)
	return srv, cancel, errCh
}

func readLine(t *testing.T, r *bufio.Reader) string {
	t.Helper()
	line, err := r.ReadString('\n')
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	return strings.TrimRight(line, "\r\n")
}

func TestServerRunsChatSessions(t *testing.T) {
	hub := core.NewHub(nil)
	d := command.NewDispatcher(nil, nil)
	command.RegisterBuiltins(d, hub)
	sessions := session.NewServer(hub, d, session.Options{}, nil, nil)

	srv, cancel, errCh := startServer(t, sessions, time.Second)

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetDeadline(time.Now().Add(5 * time.Second))
	r := bufio.NewReader(conn)

	for _, step := range []struct{ send, want string }{
		{want: "Welcome to the chat server!"},
		{want: "Use rich terminal output? [Y/n]"},
		{send: "n", want: "Enter Username:"},
		{send: "dave", want: "Welcome, dave!"},
		{want: "You joined room: LOBBY"},
		{want: "* dave joined the room."},
		{send: "/rooms", want: "Active Rooms: LOBBY (1)"},
	} {
		if step.send != "" {
			if _, err := conn.Write([]byte(step.send + "\r\n")); err != nil {
				t.Fatalf("write: %v", err)
			}
		}
		if got := readLine(t, r); got != step.want {
			t.Fatalf("got %q, want %q", got, step.want)
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if err != nil {
			t.Fatalf("serve returned %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("server did not stop")
	}

	if _, err := r.ReadString('\n'); err == nil {
		t.Fatal("session should be closed after shutdown")
	}
	if hub.ClientCount() != 0 {
		t.Fatalf("registry not empty after shutdown: %d", hub.ClientCount())
	}
}

type stubbornHandler struct {
	served atomic.Int32
	block  chan struct{}
}

func (h *stubbornHandler) Serve(_ context.Context, conn net.Conn) {
	defer conn.Close()
	h.served.Add(1)
	<-h.block
}

func TestServerShutdownTimeout(t *testing.T) {
	h := &stubbornHandler{block: make(chan struct{})}
	defer close(h.block)

	srv, cancel, errCh := startServer(t, h, 50*time.Millisecond)

	conn, err := net.Dial("tcp", srv.Addr().String())
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for h.served.Load() == 0 {
		if time.Now().After(deadline) {
			t.Fatal("connection never reached the handler")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	select {
	case <-errCh:
	case <-time.After(2 * time.Second):
		t.Fatal("serve blocked past the shutdown timeout")
	}
}

func TestListenAndServeBadAddr(t *testing.T) {
	srv := NewServer("256.0.0.1:bad", &stubbornHandler{}, 0, nil)
	if err := srv.ListenAndServe(context.Background()); err == nil {
		t.Fatal("expected listen error")
	}

	got := make(chan net.Addr, 1)
	go func() { got <- srv.Addr() }()
	select {
	case addr := <-got:
		if addr != nil {
			t.Fatalf("expected nil address after failed bind, got %v", addr)
		}
	case <-time.After(time.Second):
		t.Fatal("Addr blocked after failed bind")
	}
}

func TestNextBackoff(t *testing.T) {
	d := nextBackoff(0)
	if d != 5*time.Millisecond {
		t.Fatalf("first backoff = %s", d)
	}
	for range 20 {
		d = nextBackoff(d)
	}
	if d != time.Second {
		t.Fatalf("backoff must cap at 1s, got %s", d)
	}
}
