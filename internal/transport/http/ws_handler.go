package http

import (
	"context"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
)

// SessionServer runs a chat session over a byte stream.
type SessionServer interface {
	Serve(ctx context.Context, conn net.Conn)
}

// WSHandler upgrades HTTP connections and hands them to the session server
// as plain text streams. It must receive the raw ResponseWriter: gin's
// wrapper refuses to hijack once the upgrade headers are staged.
type WSHandler struct {
	ctx      context.Context
	sessions SessionServer
	log      *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. Sessions are bound to ctx.
func NewWSHandler(ctx context.Context, sessions SessionServer, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{ctx: ctx, sessions: sessions, log: logger}
}

// ServeHTTP serves GET /ws.
func (h *WSHandler) ServeHTTP(w stdhttp.ResponseWriter, r *stdhttp.Request) {
	start := time.Now()

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}

	h.log.Debug().Str("remote_addr", r.RemoteAddr).Msg("ws upgraded")

	// NetConn closes the websocket when the request context ends, which only
	// happens after Serve returns.
	stream := websocket.NetConn(r.Context(), conn, websocket.MessageText)
	h.sessions.Serve(h.ctx, stream)

	h.log.Info().
		Str("method", r.Method).
		Str("path", r.URL.Path).
		Dur("duration", time.Since(start)).
		Msg("ws session ended")
}
