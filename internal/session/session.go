// Package session drives one client connection from the handshake through
// the chat loop to cleanup.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/command"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/metrics"
	"github.com/vovakirdan/linechat-server/internal/utils"
)

// Options configures every session created by a Server.
type Options struct {
	Conn          ConnOptions
	MaxNameLength int
	DefaultRoom   string
}

// Server creates sessions for accepted connections.
type Server struct {
	hub        *core.Hub
	dispatcher *command.Dispatcher
	opts       Options
	log        *zerolog.Logger
	metrics    *metrics.Collector
}

// NewServer builds a session server sharing hub and dispatcher.
func NewServer(hub *core.Hub, dispatcher *command.Dispatcher, opts Options, logger *zerolog.Logger, m *metrics.Collector) *Server {
	if opts.MaxNameLength <= 0 {
		opts.MaxNameLength = core.MaxNameLength
	}
	if opts.DefaultRoom == "" {
		opts.DefaultRoom = core.DefaultRoom
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{
		hub:        hub,
		dispatcher: dispatcher,
		opts:       opts,
		log:        logger,
		metrics:    m,
	}
}

// Serve runs a session on raw and blocks until it is closed.
func (srv *Server) Serve(ctx context.Context, raw net.Conn) {
	srv.NewSession(raw).Run(ctx)
}

// NewSession wraps raw without starting the handshake.
func (srv *Server) NewSession(raw net.Conn) *Session {
	id := utils.NewID()
	conn := NewConn(raw, srv.opts.Conn, srv.log, srv.metrics)

	logger := srv.log.With().Str("session_id", id).Str("remote_addr", conn.RemoteAddr()).Logger()

	s := &Session{
		conn:       conn,
		hub:        srv.hub,
		dispatcher: srv.dispatcher,
		opts:       srv.opts,
		log:        &logger,
		metrics:    srv.metrics,
	}
	s.client = core.NewClient(id, conn)
	return s
}

// Session is the state machine of one connection.
type Session struct {
	conn       *Conn
	client     *core.Client
	hub        *core.Hub
	dispatcher *command.Dispatcher
	opts       Options
	log        *zerolog.Logger
	metrics    *metrics.Collector

	state       atomic.Int32
	cleanupOnce sync.Once
}

// Client returns the registry view of the session.
func (s *Session) Client() *core.Client {
	return s.client
}

// SendLine queues a line for the peer.
func (s *Session) SendLine(text string) {
	s.conn.SendLine(text)
}

// Disconnect closes the transport. The chat loop notices and cleans up.
func (s *Session) Disconnect() {
	s.conn.Close()
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	return State(s.state.Load())
}

func (s *Session) setState(st State) {
	s.state.Store(int32(st))
}

// Run performs the handshake, joins the default room and serves chat lines
// until the peer leaves or ctx is cancelled. Cleanup runs exactly once on
// every exit path.
func (s *Session) Run(ctx context.Context) {
	s.metrics.SessionOpened()
	s.log.Info().Msg("new connection")

	stop := context.AfterFunc(ctx, s.conn.Close)
	defer stop()
	defer s.cleanup()
	defer func() {
		if r := recover(); r != nil {
			s.metrics.RecordError(fmt.Sprint(r))
			s.log.Error().Interface("panic", r).Bytes("stack", debug.Stack()).Msg("session panic")
		}
	}()

	s.finish(s.serve())
}

func (s *Session) serve() error {
	if err := s.handshake(); err != nil {
		return err
	}

	if err := s.hub.Join(s.client, s.opts.DefaultRoom); err != nil {
		return fmt.Errorf("join default room: %w", err)
	}
	s.setState(StateActive)
	s.log.Info().Str("user", s.client.DisplayName()).Str("room", s.opts.DefaultRoom).Msg("logged in")

	return s.loop()
}

func (s *Session) loop() error {
	for {
		line, err := s.conn.ReadLine()
		if err != nil {
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if command.IsCommand(line) {
			s.dispatcher.Dispatch(s, line)
			if s.conn.Closing() {
				return nil
			}
			continue
		}

		s.hub.Broadcast(s.client, line)
		s.metrics.ChatMessage()
		s.log.Info().Str("user", s.client.DisplayName()).Str("text", line).Msg("chat")
	}
}

func (s *Session) finish(err error) {
	switch {
	case err == nil:
	case IsDisconnect(err), errors.Is(err, errHandshakeAborted):
		s.log.Debug().Err(err).Msg("client disconnected")
	default:
		s.metrics.RecordError(err.Error())
		s.log.Error().Err(err).Msg("error handling client")
	}
}

func (s *Session) cleanup() {
	s.cleanupOnce.Do(func() {
		s.setState(StateClosed)
		s.hub.Unregister(s.client)
		s.conn.Close()
		s.metrics.SessionClosed()
		s.log.Info().Msg("connection closed")
	})
}
