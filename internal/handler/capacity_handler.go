package handler

import (
	"net/http"
	"time"

	"github.com/dkhp/registration-backend/internal/logger"
	"github.com/dkhp/registration-backend/internal/stream"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
)

const (
	keepAliveInterval = 30 * time.Second
	// sseBuffer is how many undelivered snapshots an SSE client may fall behind by.
	sseBuffer = 2
)

// CapacityHandler attaches live capacity subscribers to the broadcaster's registry.
type CapacityHandler struct {
	registry *stream.Registry
	expiry   time.Duration
	upgrader websocket.Upgrader
	log      zerolog.Logger
}

func NewCapacityHandler(registry *stream.Registry, expiry time.Duration, allowedOrigins []string, log zerolog.Logger) *CapacityHandler {
	return &CapacityHandler{
		registry: registry,
		expiry:   expiry,
		upgrader: buildUpgrader(allowedOrigins),
		log:      logger.Component(log, "capacity_handler"),
	}
}

// StreamSSE godoc
// GET /api/v1/courses/capacity/stream
func (h *CapacityHandler) StreamSSE(c *gin.Context) {
	sub := stream.NewSSESubscriber(sseBuffer)
	h.registry.Add(sub)
	defer h.registry.Remove(sub.ID())

	reqCtx := c.Request.Context()
	subLog := h.log.With().Str("subscriber_id", sub.ID()).Logger()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Writer.WriteHeader(http.StatusOK)
	c.Writer.Flush()

	subLog.Debug().Msg("SSE subscriber attached")

	expiry := time.NewTimer(h.expiry)
	defer expiry.Stop()

	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()

	for {
		select {
		case <-reqCtx.Done():
			subLog.Debug().Msg("SSE subscriber disconnected")
			return
		case <-sub.Done():
			subLog.Debug().Msg("SSE subscriber evicted")
			return
		case <-expiry.C:
			subLog.Debug().Msg("SSE subscriber expired")
			return
		case frame := <-sub.Frames():
			c.Writer.Write([]byte("data: "))
			c.Writer.Write(frame)
			c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-keepAlive.C:
			c.Writer.Write([]byte(": keep-alive\n\n"))
			c.Writer.Flush()
		}
	}
}
