package handler

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/deniz/checklens/internal/api/middleware"
	"github.com/deniz/checklens/internal/progress"
)

// ProgressHandler exposes session progress as a snapshot, an SSE stream,
// and a websocket stream.
type ProgressHandler struct {
	store    *progress.Store
	upgrader websocket.Upgrader
}

// NewProgressHandler creates a new progress handler.
// Parameters:
//   - store: progress store sessions are tracked in.
// Returns:
//   - *ProgressHandler: initialized handler.
func NewProgressHandler(store *progress.Store) *ProgressHandler {
	return &ProgressHandler{
		store: store,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Browser clients connect cross-origin; access control is
			// handled by the CORS layer.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// GetProgress handles GET /api/v1/analyze/progress/:session_id and returns
// the full session snapshot.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *ProgressHandler) GetProgress(c *gin.Context) {
	sess, ok := h.store.Snapshot(c.Param("session_id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
		return
	}
	c.JSON(http.StatusOK, sess)
}

// StreamProgress handles GET /api/v1/analyze/progress/:session_id/stream.
// Emits one SSE data event per log entry, then a final status event, and
// closes. An unknown session produces a single error event.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes SSE stream).
func (h *ProgressHandler) StreamProgress(c *gin.Context) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Streaming is not supported"})
		return
	}

	events := progress.Watch(c.Request.Context(), h.store, c.Param("session_id"), progress.DefaultWatchInterval)
	for ev := range events {
		payload, err := json.Marshal(ev.Payload())
		if err != nil {
			continue
		}
		fmt.Fprintf(c.Writer, "data: %s\n\n", payload)
		flusher.Flush()
	}
}

// StreamProgressWS handles GET /api/v1/analyze/progress/:session_id/ws.
// Same event sequence as the SSE stream, one JSON message per event; the
// connection closes after the final event.
// Parameters:
//   - c: Gin request context.
// Returns: none (upgrades to websocket).
func (h *ProgressHandler) StreamProgressWS(c *gin.Context) {
	log := middleware.GetLogger(c)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.WithError(err).Warn("websocket upgrade failed")
		return
	}
	defer conn.Close()

	events := progress.Watch(c.Request.Context(), h.store, c.Param("session_id"), progress.DefaultWatchInterval)
	for ev := range events {
		if err := conn.WriteJSON(ev.Payload()); err != nil {
			log.WithError(err).Debug("websocket client gone")
			return
		}
	}

	_ = conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}
