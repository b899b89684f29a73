package metrics

import (
	"sync"
	"testing"
)

func TestCollector_Sessions(t *testing.T) {
	c := New()

	c.SessionOpened()
	c.SessionOpened()
	if c.ActiveSessions() != 2 {
		t.Errorf("active = %d, want 2", c.ActiveSessions())
	}

	c.SessionClosed()
	s := c.Snapshot()
	if s.SessionsActive != 1 {
		t.Errorf("active = %d, want 1", s.SessionsActive)
	}
	if s.SessionsTotal != 2 {
		t.Errorf("total should remain 2, got %d", s.SessionsTotal)
	}
}

func TestCollector_Counters(t *testing.T) {
	c := New()

	c.NameRejected()
	c.ChatMessage()
	c.ChatMessage()
	c.CommandExecuted()
	c.CommandFailed()
	c.LineDropped()

	s := c.Snapshot()
	if s.NamesRejected != 1 || s.ChatMessages != 2 || s.Commands != 1 || s.CommandErrors != 1 || s.LinesDropped != 1 {
		t.Errorf("unexpected snapshot: %+v", s)
	}
}

func TestCollector_Errors(t *testing.T) {
	c := New()

	c.RecordError("first error")
	c.RecordError("second error")

	s := c.Snapshot()
	if s.ErrorsTotal != 2 {
		t.Errorf("errors = %d, want 2", s.ErrorsTotal)
	}
	if s.LastErrorMessage != "second error" {
		t.Errorf("last error = %q, want %q", s.LastErrorMessage, "second error")
	}
	if s.LastError == "" {
		t.Error("last error timestamp should be set")
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	c.SessionOpened()
	c.SessionClosed()
	c.NameRejected()
	c.ChatMessage()
	c.CommandExecuted()
	c.CommandFailed()
	c.LineDropped()
	c.RecordError("ignored")

	if c.ActiveSessions() != 0 {
		t.Error("nil collector should report zero")
	}
	if s := c.Snapshot(); s != (Snapshot{}) {
		t.Errorf("nil collector snapshot = %+v", s)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := New()

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.SessionOpened()
			c.ChatMessage()
			c.SessionClosed()
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.SessionsActive != 0 || s.SessionsTotal != 50 || s.ChatMessages != 50 {
		t.Errorf("unexpected snapshot after concurrent use: %+v", s)
	}
}
