// Package metrics provides lock-free counters for the chat server.
//
// All methods are safe for concurrent use. A nil *Collector is a valid
// no-op receiver, so callers never need to nil-check.
package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector tracks runtime statistics of the server.
type Collector struct {
	sessionsActive atomic.Int64
	sessionsTotal  atomic.Int64
	namesRejected  atomic.Int64
	chatMessages   atomic.Int64
	commands       atomic.Int64
	commandErrors  atomic.Int64
	linesDropped   atomic.Int64
	errorsTotal    atomic.Int64

	mu           sync.RWMutex
	startTime    time.Time
	lastError    time.Time
	lastErrorMsg string
}

// New creates a collector with the start time set to now.
func New() *Collector {
	return &Collector{startTime: time.Now()}
}

// SessionOpened increments both the active and total session counters.
func (c *Collector) SessionOpened() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(1)
	c.sessionsTotal.Add(1)
}

// SessionClosed decrements the active session counter.
func (c *Collector) SessionClosed() {
	if c == nil {
		return
	}
	c.sessionsActive.Add(-1)
}

// ActiveSessions returns the number of open sessions.
func (c *Collector) ActiveSessions() int64 {
	if c == nil {
		return 0
	}
	return c.sessionsActive.Load()
}

// NameRejected records a refused display name.
func (c *Collector) NameRejected() {
	if c == nil {
		return
	}
	c.namesRejected.Add(1)
}

// ChatMessage records one chat line broadcast to a room.
func (c *Collector) ChatMessage() {
	if c == nil {
		return
	}
	c.chatMessages.Add(1)
}

// CommandExecuted records one dispatched command.
func (c *Collector) CommandExecuted() {
	if c == nil {
		return
	}
	c.commands.Add(1)
}

// CommandFailed records a command whose handler failed.
func (c *Collector) CommandFailed() {
	if c == nil {
		return
	}
	c.commandErrors.Add(1)
}

// LineDropped records an outbound line discarded for a slow recipient.
func (c *Collector) LineDropped() {
	if c == nil {
		return
	}
	c.linesDropped.Add(1)
}

// RecordError increments the error counter and stores the message.
func (c *Collector) RecordError(msg string) {
	if c == nil {
		return
	}
	c.errorsTotal.Add(1)
	c.mu.Lock()
	c.lastError = time.Now()
	c.lastErrorMsg = msg
	c.mu.Unlock()
}

// Snapshot is a point-in-time view of all metrics.
type Snapshot struct {
	Uptime           string `json:"uptime"`
	SessionsActive   int64  `json:"sessions_active"`
	SessionsTotal    int64  `json:"sessions_total"`
	NamesRejected    int64  `json:"names_rejected"`
	ChatMessages     int64  `json:"chat_messages"`
	Commands         int64  `json:"commands"`
	CommandErrors    int64  `json:"command_errors"`
	LinesDropped     int64  `json:"lines_dropped"`
	ErrorsTotal      int64  `json:"errors_total"`
	LastError        string `json:"last_error,omitempty"`
	LastErrorMessage string `json:"last_error_message,omitempty"`
}

// Snapshot returns a copy of all current metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	s := Snapshot{
		Uptime:         time.Since(c.startTime).Truncate(time.Second).String(),
		SessionsActive: c.sessionsActive.Load(),
		SessionsTotal:  c.sessionsTotal.Load(),
		NamesRejected:  c.namesRejected.Load(),
		ChatMessages:   c.chatMessages.Load(),
		Commands:       c.commands.Load(),
		CommandErrors:  c.commandErrors.Load(),
		LinesDropped:   c.linesDropped.Load(),
		ErrorsTotal:    c.errorsTotal.Load(),
	}
	if !c.lastError.IsZero() {
		s.LastError = c.lastError.Format(time.RFC3339)
		s.LastErrorMessage = c.lastErrorMsg
	}
	return s
}
