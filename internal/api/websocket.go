package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/miradorstack/mirador-thermal/internal/hub"
)

const wsWriteTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// handleWebSocket upgrades to WebSocket and streams snapshots of the feed
// named by ?feed= (page or table, default page).
func (s *HTTPServer) handleWebSocket(c *gin.Context) {
	var h *hub.Hub
	switch feed := c.DefaultQuery("feed", "page"); feed {
	case "page":
		h = s.page
	case "table":
		h = s.table
	default:
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "unknown feed " + feed})
		return
	}
	if h == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "feed not running"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}
	defer conn.Close()

	snaps, unsubscribe := h.Subscribe()
	defer unsubscribe()

	// Read pump: detect client disconnect.
	gone := make(chan struct{})
	go func() {
		defer close(gone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-gone:
			return
		case snap, ok := <-snaps:
			if !ok {
				_ = conn.WriteControl(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), time.Now().Add(time.Second))
				return
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
			if err := conn.WriteJSON(snap); err != nil {
				s.logger.Debug("websocket write failed", slog.Any("error", err))
				return
			}
		}
	}
}
