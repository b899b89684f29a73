package command

import (
	"errors"
	"slices"
	"sync"
	"testing"

	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/metrics"
)

type fakeCaller struct {
	client *core.Client

	mu           sync.Mutex
	lines        []string
	disconnected bool
}

func (f *fakeCaller) Client() *core.Client { return f.client }

func (f *fakeCaller) SendLine(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lines = append(f.lines, text)
}

func (f *fakeCaller) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.disconnected = true
}

func (f *fakeCaller) take() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := f.lines
	f.lines = nil
	return out
}

func newCaller(t *testing.T, hub *core.Hub, name string) *fakeCaller {
	t.Helper()

	f := &fakeCaller{}
	f.client = core.NewClient(name+"-id", f)
	if err := hub.Claim(f.client, name); err != nil {
		t.Fatalf("claim %s: %v", name, err)
	}
	if err := hub.Join(f.client, core.DefaultRoom); err != nil {
		t.Fatalf("join %s: %v", name, err)
	}
	f.take()
	return f
}

func newTestDispatcher(t *testing.T) (*Dispatcher, *core.Hub, *metrics.Collector) {
	t.Helper()

	hub := core.NewHub(nil)
	m := metrics.New()
	d := NewDispatcher(nil, m)
	RegisterBuiltins(d, hub)
	return d, hub, m
}

func mustLines(t *testing.T, f *fakeCaller, want ...string) {
	t.Helper()

	got := f.take()
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected lines:\n got: %q\nwant: %q", got, want)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		line     string
		wantName string
		wantArgs string
	}{
		{line: "/JOIN testroom", wantName: "join", wantArgs: "testroom"},
		{line: "/who", wantName: "who", wantArgs: ""},
		{line: "/Join  two spaces", wantName: "join", wantArgs: " two spaces"},
		{line: "/", wantName: "", wantArgs: ""},
	}

	for _, tt := range tests {
		name, args := Parse(tt.line)
		if name != tt.wantName || args != tt.wantArgs {
			t.Fatalf("Parse(%q) = (%q, %q), want (%q, %q)", tt.line, name, args, tt.wantName, tt.wantArgs)
		}
	}
}

func TestUnknownCommand(t *testing.T) {
	d, hub, _ := newTestDispatcher(t)
	alice := newCaller(t, hub, "alice")

	d.Dispatch(alice, "/foo bar")

	mustLines(t, alice, "Unknown command: FOO")
	if hub.RoomOf(alice.client) != core.DefaultRoom {
		t.Fatalf("unknown command must not change state")
	}
}

func TestJoinCommand(t *testing.T) {
	d, hub, _ := newTestDispatcher(t)
	alice := newCaller(t, hub, "alice")
	bob := newCaller(t, hub, "bob")
	alice.take()

	d.Dispatch(alice, "/JOIN testroom")
	mustLines(t, alice, "You joined room: TESTROOM", "* alice joined the room.")
	mustLines(t, bob, "* alice left the room.")

	d.Dispatch(bob, "/ROOMS")
	mustLines(t, bob, "Active Rooms: LOBBY (1), TESTROOM (1)")
}

func TestJoinCommandRejectsBadArgs(t *testing.T) {
	d, hub, _ := newTestDispatcher(t)
	alice := newCaller(t, hub, "alice")

	for _, line := range []string{"/JOIN", "/JOIN ", "/JOIN two words", "/JOIN room!"} {
		d.Dispatch(alice, line)
		mustLines(t, alice, "Usage: /JOIN <room_name>")
	}
	if hub.RoomOf(alice.client) != core.DefaultRoom {
		t.Fatalf("usage errors must not change the room")
	}
}

func TestWhoCommand(t *testing.T) {
	d, hub, _ := newTestDispatcher(t)
	bob := newCaller(t, hub, "bob")
	newCaller(t, hub, "alice")
	bob.take()

	d.Dispatch(bob, "/who")
	mustLines(t, bob, "Users in LOBBY: alice, bob")

	lonely := &fakeCaller{}
	lonely.client = core.NewClient("x", lonely)
	d.Dispatch(lonely, "/WHO")
	mustLines(t, lonely)
}

func TestHelpCommand(t *testing.T) {
	d, hub, _ := newTestDispatcher(t)
	alice := newCaller(t, hub, "alice")

	d.Dispatch(alice, "/HELP")
	mustLines(t, alice, "Available commands: /HELP, /JOIN, /QUIT, /ROOMS, /WHO")
}

func TestQuitCommand(t *testing.T) {
	d, hub, _ := newTestDispatcher(t)
	alice := newCaller(t, hub, "alice")

	d.Dispatch(alice, "/quit")
	mustLines(t, alice, "Goodbye!")
	if !alice.disconnected {
		t.Fatalf("quit must disconnect the caller")
	}
}

func TestHandlerFailuresAreContained(t *testing.T) {
	d, hub, m := newTestDispatcher(t)
	alice := newCaller(t, hub, "alice")

	d.Register("boom", "/BOOM", func(Caller, string) error {
		panic("kaboom")
	})
	d.Register("fail", "/FAIL", func(Caller, string) error {
		return errors.New("broken")
	})

	d.Dispatch(alice, "/boom")
	mustLines(t, alice, "Error executing command.")

	d.Dispatch(alice, "/FAIL now")
	mustLines(t, alice, "Error executing command.")

	if s := m.Snapshot(); s.CommandErrors != 2 {
		t.Fatalf("expected 2 command errors, got %d", s.CommandErrors)
	}
}

func TestRegisterDuplicatePanics(t *testing.T) {
	d, _, _ := newTestDispatcher(t)

	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic on duplicate registration")
		}
	}()
	d.Register("JOIN", "/JOIN", func(Caller, string) error { return nil })
}

func TestIsCommand(t *testing.T) {
	if !IsCommand("/who") || IsCommand("hello /who") {
		t.Fatalf("unexpected IsCommand result")
	}
}
