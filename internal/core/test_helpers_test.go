package core

import (
	"slices"
	"strings"
	"sync"
	"testing"
)

// recorder is a Sender that keeps every line it receives.
type recorder struct {
	mu    sync.Mutex
	lines []string
}

func (r *recorder) SendLine(text string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lines = append(r.lines, text)
}

func (r *recorder) take() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.lines
	r.lines = nil
	return out
}

func (r *recorder) has(line string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Contains(r.lines, line)
}

func newNamedClient(t *testing.T, hub *Hub, id, name string) (*Client, *recorder) {
	t.Helper()

	rec := &recorder{}
	c := NewClient(id, rec)
	if err := hub.Claim(c, name); err != nil {
		t.Fatalf("claim %q: %v", name, err)
	}
	return c, rec
}

func mustLines(t *testing.T, rec *recorder, want ...string) {
	t.Helper()

	got := rec.take()
	if !slices.Equal(got, want) {
		t.Fatalf("unexpected lines:\n got: %q\nwant: %q", got, want)
	}
}

// checkInvariants verifies the registry invariants under the hub lock.
func checkInvariants(t *testing.T, h *Hub) {
	t.Helper()

	h.mu.Lock()
	defer h.mu.Unlock()

	for name, room := range h.rooms {
		if room.Empty() {
			t.Fatalf("room %s is registered but empty", name)
		}
		for c := range room.clients {
			if c.room != name {
				t.Fatalf("client %s is in room %s but records room %q", c.name, name, c.room)
			}
		}
	}

	seen := make(map[string]struct{})
	for c := range h.clients {
		if c.room != "" {
			room, ok := h.rooms[c.room]
			if !ok || !room.Has(c) {
				t.Fatalf("client %s records room %s but is not a member", c.name, c.room)
			}
		}
		memberships := 0
		for _, room := range h.rooms {
			if room.Has(c) {
				memberships++
			}
		}
		if memberships > 1 {
			t.Fatalf("client %s is a member of %d rooms", c.name, memberships)
		}
		key := strings.ToLower(c.name)
		if _, dup := seen[key]; dup {
			t.Fatalf("duplicate name %s", c.name)
		}
		seen[key] = struct{}{}
	}
}
