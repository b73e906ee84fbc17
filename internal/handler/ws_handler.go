package handler

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/dkhp/registration-backend/internal/stream"
	ws "github.com/dkhp/registration-backend/internal/websocket"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

// pingPeriod keeps idle capacity sockets alive within ws.PongWait.
const pingPeriod = ws.PongWait * 9 / 10

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

// StreamWS godoc
// WS /ws/v1/courses/capacity?token=
// Upgrades to WebSocket and pushes a capacity event on every broadcaster tick.
func (h *CapacityHandler) StreamWS(c *gin.Context) {
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	sub := stream.NewWSSubscriber(conn)
	h.registry.Add(sub)
	defer h.registry.Remove(sub.ID())

	wsLog := h.log.With().Str("subscriber_id", sub.ID()).Logger()
	wsLog.Debug().Msg("WebSocket subscriber attached")

	conn.SetReadLimit(512)
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(ws.PongWait))
	})

	go h.keepAlive(sub, conn)

	for {
		var raw json.RawMessage
		if err := ws.ReadJSON(conn, &raw); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var msg ws.RequestEnvelope
		if err := json.Unmarshal(raw, &msg); err != nil {
			_ = sub.Write(ws.ErrorResponse{Event: ws.EventError, Error: "invalid message"})
			continue
		}

		switch msg.Action {
		case ws.ActionPing:
			_ = sub.Write(ws.PongResponse{Event: ws.EventPong})
		default:
			_ = sub.Write(ws.ErrorResponse{Event: ws.EventError, Error: "unknown action: " + string(msg.Action)})
		}
	}
}

// keepAlive pings the client and closes the subscriber once it expires.
// Closing the connection unblocks the read loop.
func (h *CapacityHandler) keepAlive(sub *stream.WSSubscriber, conn *websocket.Conn) {
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	expiry := time.NewTimer(h.expiry)
	defer expiry.Stop()

	for {
		select {
		case <-sub.Done():
			return
		case <-expiry.C:
			h.registry.Remove(sub.ID())
			return
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(10*time.Second)); err != nil {
				h.registry.Remove(sub.ID())
				return
			}
		}
	}
}
