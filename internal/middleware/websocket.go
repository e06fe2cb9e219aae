package middleware

import (
	"fmt"
	"net/http"
	"time"

	"sysscope/internal/broadcast"
	"sysscope/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 50 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// StreamHub serves live metric streams. Each connection is attached to the
// registry for as long as it stays open.
type StreamHub struct {
	registry *broadcast.Registry
	logger   *utils.Logger
}

func NewStreamHub(registry *broadcast.Registry, logger *utils.Logger) *StreamHub {
	return &StreamHub{registry: registry, logger: logger}
}

// ClientCount returns the number of attached stream sessions.
func (h *StreamHub) ClientCount() int {
	return h.registry.Len()
}

// HandleWebSocket upgrades the request and pushes one JSON frame per sample
// until the peer disconnects or the subscriber is dropped.
func (h *StreamHub) HandleWebSocket() gin.HandlerFunc {
	return func(c *gin.Context) {
		conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
		if err != nil {
			h.logf("WebSocket upgrade error: %v", err)
			return
		}
		defer conn.Close()

		sub := h.registry.Attach()
		defer h.registry.Detach(sub)
		h.logf("WebSocket client %s connected from %s", sub.ID(), c.ClientIP())

		conn.SetReadLimit(1024)
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(pongWait))
		})

		closed := make(chan struct{})
		go func() {
			defer close(closed)
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNoStatusReceived) {
						h.logf("WebSocket error: %v", err)
					}
					return
				}
			}
		}()

		pingTicker := time.NewTicker(pingPeriod)
		defer pingTicker.Stop()

		for {
			select {
			case sample, ok := <-sub.C():
				if !ok {
					deadline := time.Now().Add(writeWait)
					_ = conn.WriteControl(websocket.CloseMessage,
						websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscriber detached"), deadline)
					h.logf("WebSocket client %s detached by server", sub.ID())
					return
				}
				if err := conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
					h.logf("WebSocket set write deadline error: %v", err)
				}
				if err := conn.WriteJSON(sample.StreamMessage()); err != nil {
					h.logf("WebSocket write error: %v", err)
					return
				}
			case <-pingTicker.C:
				if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
					h.logf("WebSocket ping error: %v", err)
					return
				}
			case <-closed:
				h.logf("WebSocket client %s disconnected", sub.ID())
				return
			}
		}
	}
}

func (h *StreamHub) logf(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if h.logger != nil {
		h.logger.Write(msg)
	}
}
