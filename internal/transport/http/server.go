// Package http exposes the admin surface (health, registry listings and
// counters) plus a WebSocket bridge into the chat session machine.
package http

import (
	"context"
	stdhttp "net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/linechat-server/internal/config"
	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/metrics"
)

const readHeaderTimeout = 5 * time.Second

// NewServer builds the admin HTTP server listening on cfg.AdminAddr.
// WebSocket sessions live until ctx is cancelled or the peer leaves.
func NewServer(ctx context.Context, hub *core.Hub, sessions SessionServer, m *metrics.Collector, cfg *config.Config, logger *zerolog.Logger) *stdhttp.Server {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	// /ws bypasses gin so the upgrade can hijack the raw connection.
	mux := stdhttp.NewServeMux()
	mux.Handle("GET /ws", NewWSHandler(ctx, sessions, logger))
	mux.Handle("/", NewRouter(hub, m, logger))

	return &stdhttp.Server{
		Addr:              cfg.AdminAddr,
		Handler:           mux,
		ReadHeaderTimeout: readHeaderTimeout,
	}
}

// NewRouter registers the read-only admin routes on a fresh gin engine.
func NewRouter(hub *core.Hub, m *metrics.Collector, logger *zerolog.Logger) *gin.Engine {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(RecoveryMiddleware(logger), LoggerMiddleware(logger))

	admin := NewAdminHandlers(hub, m, logger)
	router.GET("/health", admin.Health)
	router.GET("/rooms", admin.ListRooms)
	router.GET("/rooms/:name", admin.GetRoom)
	router.GET("/stats", admin.Stats)

	return router
}
