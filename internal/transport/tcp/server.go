// Package tcp accepts raw line-oriented chat connections.
package tcp

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Handler serves one accepted connection until it ends.
type Handler interface {
	Serve(ctx context.Context, conn net.Conn)
}

// Server runs the accept loop and tracks live connections.
type Server struct {
	addr            string
	handler         Handler
	shutdownTimeout time.Duration
	log             *zerolog.Logger

	mu        sync.Mutex
	ln        net.Listener
	ready     chan struct{}
	readyOnce sync.Once
	conns     sync.WaitGroup
}

// NewServer builds a server that will listen on addr.
func NewServer(addr string, handler Handler, shutdownTimeout time.Duration, logger *zerolog.Logger) *Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Server{
		addr:            addr,
		handler:         handler,
		shutdownTimeout: shutdownTimeout,
		log:             logger,
		ready:           make(chan struct{}),
	}
}

// ListenAndServe binds the configured address and serves until ctx is done.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.addr)
	if err != nil {
		s.markReady()
		return fmt.Errorf("listen on %s: %w", s.addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts on ln until ctx is done, then waits up to the shutdown
// timeout for open sessions to finish.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.mu.Lock()
	s.ln = ln
	s.mu.Unlock()
	s.markReady()

	s.log.Info().Str("addr", ln.Addr().String()).Msg("chat listener started")

	stop := context.AfterFunc(ctx, func() { _ = ln.Close() })
	defer stop()

	err := s.acceptLoop(ctx, ln)
	_ = ln.Close()
	s.drain()
	return err
}

// Addr blocks until the server either bound its listener or failed to, and
// returns the bound address. It is nil when binding failed.
func (s *Server) Addr() net.Addr {
	<-s.ready
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return nil
	}
	return s.ln.Addr()
}

func (s *Server) markReady() {
	s.readyOnce.Do(func() { close(s.ready) })
}

func (s *Server) acceptLoop(ctx context.Context, ln net.Listener) error {
	var backoff time.Duration
	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return fmt.Errorf("accept: %w", err)
			}
			// transient failures such as EMFILE
			backoff = nextBackoff(backoff)
			s.log.Warn().Err(err).Dur("retry_in", backoff).Msg("accept failed")
			select {
			case <-time.After(backoff):
				continue
			case <-ctx.Done():
				return nil
			}
		}
		backoff = 0

		s.conns.Add(1)
		go func() {
			defer s.conns.Done()
			s.handler.Serve(ctx, conn)
		}()
	}
}

func (s *Server) drain() {
	done := make(chan struct{})
	go func() {
		s.conns.Wait()
		close(done)
	}()

	if s.shutdownTimeout <= 0 {
		<-done
		return
	}
	select {
	case <-done:
		s.log.Info().Msg("all sessions closed")
	case <-time.After(s.shutdownTimeout):
		s.log.Warn().Dur("timeout", s.shutdownTimeout).Msg("shutdown timeout reached with sessions still open")
	}
}

func nextBackoff(d time.Duration) time.Duration {
	if d == 0 {
		return 5 * time.Millisecond
	}
	d *= 2
	if d > time.Second {
		d = time.Second
	}
	return d
}
