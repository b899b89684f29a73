package session

import (
	"bufio"
	"errors"
	"io"
	"net"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/metrics"
)

// Mode selects how outbound lines are framed.
type Mode int32

const (
	// ModePlain writes the text followed by CRLF.
	ModePlain Mode = iota
	// ModeRich inserts the text above the peer's input line using VT100 escapes.
	ModeRich
)

func (m Mode) String() string {
	if m == ModeRich {
		return "rich"
	}
	return "plain"
}

const (
	defaultQueueSize    = 64
	defaultMaxLineBytes = 4096
	defaultFlushTimeout = time.Second
)

// ConnOptions tunes a Conn. Zero values select defaults.
type ConnOptions struct {
	QueueSize    int
	MaxLineBytes int
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Conn wraps a stream connection into a line-oriented reader and a
// non-blocking, ordered line writer.
type Conn struct {
	raw     net.Conn
	scanner *bufio.Scanner
	mode    atomic.Int32

	writeTimeout time.Duration
	idleTimeout  time.Duration
	flushTimeout time.Duration

	mu      sync.Mutex
	closing bool
	stalled bool
	out     chan string

	writerDone chan struct{}
	closeOnce  sync.Once

	log     *zerolog.Logger
	metrics *metrics.Collector
}

// NewConn starts the writer goroutine for raw. The caller must call Close.
func NewConn(raw net.Conn, opts ConnOptions, logger *zerolog.Logger, m *metrics.Collector) *Conn {
	if opts.QueueSize <= 0 {
		opts.QueueSize = defaultQueueSize
	}
	if opts.MaxLineBytes <= 0 {
		opts.MaxLineBytes = defaultMaxLineBytes
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	scanner := bufio.NewScanner(raw)
	scanner.Buffer(make([]byte, 0, min(opts.MaxLineBytes, 512)), opts.MaxLineBytes)

	flush := opts.WriteTimeout
	if flush <= 0 {
		flush = defaultFlushTimeout
	}

	c := &Conn{
		raw:          raw,
		scanner:      scanner,
		writeTimeout: opts.WriteTimeout,
		idleTimeout:  opts.IdleTimeout,
		flushTimeout: flush,
		out:          make(chan string, opts.QueueSize),
		writerDone:   make(chan struct{}),
		log:          logger,
		metrics:      m,
	}
	go c.writeLoop()
	return c
}

// SetMode selects the output framing for subsequent lines.
func (c *Conn) SetMode(m Mode) {
	c.mode.Store(int32(m))
}

// Mode returns the current output framing.
func (c *Conn) Mode() Mode {
	return Mode(c.mode.Load())
}

// SendLine queues one line for delivery. It never blocks: when the queue is
// full the line is dropped, and once the connection is closing it is a no-op.
// A stall is logged once, on its first dropped line; every drop is counted.
func (c *Conn) SendLine(text string) {
	frame := c.frame(strings.TrimRight(text, " \t\r\n"))

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closing {
		return
	}
	select {
	case c.out <- frame:
		c.stalled = false
	default:
		// Drop if slow consumer.
		c.metrics.LineDropped()
		if !c.stalled {
			c.stalled = true
			c.log.Warn().Str("remote_addr", c.RemoteAddr()).Msg("send queue full, dropping lines")
		}
	}
}

// ReadLine returns the next input line without its terminator. Invalid UTF-8
// is replaced. io.EOF is returned when the peer closes the stream.
func (c *Conn) ReadLine() (string, error) {
	if c.idleTimeout > 0 {
		if err := c.raw.SetReadDeadline(time.Now().Add(c.idleTimeout)); err != nil {
			return "", err
		}
	}
	if !c.scanner.Scan() {
		if err := c.scanner.Err(); err != nil {
			return "", err
		}
		return "", io.EOF
	}
	return strings.ToValidUTF8(c.scanner.Text(), "\uFFFD"), nil
}

// Closing reports whether the connection stopped accepting lines.
func (c *Conn) Closing() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closing
}

// RemoteAddr returns the peer address, or "" if unknown.
func (c *Conn) RemoteAddr() string {
	if addr := c.raw.RemoteAddr(); addr != nil {
		return addr.String()
	}
	return ""
}

// Close flushes queued lines for up to the flush timeout and closes the
// connection. Close errors are logged, never returned. Safe to call twice.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closing = true
		close(c.out)
		c.mu.Unlock()

		select {
		case <-c.writerDone:
		case <-time.After(c.flushTimeout):
			c.log.Debug().Str("remote_addr", c.RemoteAddr()).Msg("flush timed out")
		}

		if err := c.raw.Close(); err != nil && !IsDisconnect(err) {
			c.log.Warn().Err(err).Str("remote_addr", c.RemoteAddr()).Msg("error closing connection")
		}
	})
}

func (c *Conn) writeLoop() {
	defer close(c.writerDone)

	failed := false
	for frame := range c.out {
		if failed {
			continue
		}
		if c.writeTimeout > 0 {
			_ = c.raw.SetWriteDeadline(time.Now().Add(c.writeTimeout))
		}
		if _, err := io.WriteString(c.raw, frame); err != nil {
			failed = true
			c.markClosing()
			if !IsDisconnect(err) {
				c.log.Warn().Err(err).Str("remote_addr", c.RemoteAddr()).Msg("write failed")
			}
		}
	}
}

func (c *Conn) markClosing() {
	c.mu.Lock()
	c.closing = true
	c.mu.Unlock()
}

func (c *Conn) frame(text string) string {
	if c.Mode() == ModeRich {
		// save cursor, insert a line above, write, restore, move down
		return "\x1b7\x1b[1L\r" + text + "\x1b8\x1b[1B"
	}
	return text + "\r\n"
}

// IsDisconnect reports whether err is an ordinary end of a connection:
// EOF, a closed or reset connection, a broken pipe, an expired deadline or an
// over-long line.
func IsDisconnect(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, io.EOF) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, net.ErrClosed) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) ||
		errors.Is(err, io.ErrClosedPipe) ||
		errors.Is(err, bufio.ErrTooLong) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
