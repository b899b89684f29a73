package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"github.com/vovakirdan/linechat-server/internal/core"
	"github.com/vovakirdan/linechat-server/internal/metrics"
)

// AdminHandlers serves read-only views of the running server.
type AdminHandlers struct {
	hub     *core.Hub
	metrics *metrics.Collector
	log     *zerolog.Logger
}

// NewAdminHandlers creates a new admin handlers instance.
func NewAdminHandlers(hub *core.Hub, m *metrics.Collector, logger *zerolog.Logger) *AdminHandlers {
	return &AdminHandlers{
		hub:     hub,
		metrics: m,
		log:     logger,
	}
}

// ErrorResponse represents an error response body.
type ErrorResponse struct {
	Error string `json:"error"`
}

// StatsResponse combines counters with the live registry size.
type StatsResponse struct {
	metrics.Snapshot
	Clients int `json:"clients"`
	Rooms   int `json:"rooms"`
}

// Health reports liveness.
// GET /health
func (h *AdminHandlers) Health(c *gin.Context) {
	c.String(http.StatusOK, "ok")
}

// ListRooms returns every active room with its members.
// GET /rooms
func (h *AdminHandlers) ListRooms(c *gin.Context) {
	c.JSON(http.StatusOK, h.hub.Snapshot())
}

// GetRoom returns one room by name. Lookup is case-insensitive.
// GET /rooms/:name
func (h *AdminHandlers) GetRoom(c *gin.Context) {
	name := core.NormalizeRoomName(c.Param("name"))
	if !core.IsAlnum(name) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid room name"})
		return
	}

	room, ok := lo.Find(h.hub.Snapshot(), func(r core.RoomInfo) bool {
		return r.Name == name
	})
	if !ok {
		h.log.Debug().Str("room", name).Msg("room not found")
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "room not found"})
		return
	}
	c.JSON(http.StatusOK, room)
}

// Stats returns the metrics snapshot.
// GET /stats
func (h *AdminHandlers) Stats(c *gin.Context) {
	c.JSON(http.StatusOK, StatsResponse{
		Snapshot: h.metrics.Snapshot(),
		Clients:  h.hub.ClientCount(),
		Rooms:    len(h.hub.Rooms()),
	})
}
