// Package app wires the chat core to its listeners.
package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/command"
	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/metrics"
	"github.com/vovakirdan/linechat-server/internal/session"
	transporthttp "github.com/vovakirdan/linechat-server/internal/transport/http"
	"github.com/vovakirdan/linechat-server/internal/transport/tcp"
)

// App wires together core and transport layers.
type App struct {
	cfg      config.Config
	hub      *core.Hub
	sessions *session.Server
	chat     *tcp.Server
	metrics  *metrics.Collector
	log      *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	m := metrics.New()
	hub := core.NewHub(logger)

	dispatcher := command.NewDispatcher(logger, m)
	command.RegisterBuiltins(dispatcher, hub)

	sessions := session.NewServer(hub, dispatcher, session.Options{
		Conn: session.ConnOptions{
			QueueSize:    cfg.SendQueue,
			MaxLineBytes: cfg.MaxLineBytes,
			WriteTimeout: cfg.WriteTimeout,
			IdleTimeout:  cfg.IdleTimeout,
		},
		MaxNameLength: cfg.MaxNameLength,
		DefaultRoom:   core.NormalizeRoomName(cfg.DefaultRoom),
	}, logger, m)

	return &App{
		cfg:      *cfg,
		hub:      hub,
		sessions: sessions,
		chat:     tcp.NewServer(cfg.Addr(), sessions, cfg.ShutdownTimeout, logger),
		metrics:  m,
		log:      logger,
	}, nil
}

// Hub exposes the registry, mainly for tests.
func (a *App) Hub() *core.Hub { return a.hub }

// ChatAddr blocks until the chat listener is bound and returns its address.
// It returns nil if the listener could not bind.
func (a *App) ChatAddr() net.Addr { return a.chat.Addr() }

// Run starts the chat listener and, when configured, the admin server.
// It blocks until ctx is cancelled or a listener fails.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	chatErr := make(chan error, 1)
	go func() {
		chatErr <- a.chat.ListenAndServe(ctx)
	}()

	var admin *stdhttp.Server
	adminErr := make(chan error, 1)
	if a.cfg.AdminAddr != "" {
		admin = transporthttp.NewServer(ctx, a.hub, a.sessions, a.metrics, &a.cfg, a.log)
		go func() {
			a.log.Info().Str("addr", admin.Addr).Msg("admin server started")
			if err := admin.ListenAndServe(); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
				adminErr <- fmt.Errorf("admin server: %w", err)
				return
			}
			adminErr <- nil
		}()
	}

	var runErr error
	select {
	case runErr = <-chatErr:
		cancel()
	case err := <-adminErr:
		runErr = err
		admin = nil
		cancel()
		<-chatErr
	case <-ctx.Done():
		runErr = <-chatErr
	}

	if admin != nil {
		shutdownCtx, stop := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
		defer stop()

		a.log.Info().Msg("shutting down admin server")
		if err := admin.Shutdown(shutdownCtx); err != nil && runErr == nil {
			runErr = fmt.Errorf("admin shutdown: %w", err)
		}
	}

	snap := a.metrics.Snapshot()
	a.log.Info().
		Int64("sessions_total", snap.SessionsTotal).
		Int64("chat_messages", snap.ChatMessages).
		Str("uptime", snap.Uptime).
		Msg("server stopped")
	return runErr
}
