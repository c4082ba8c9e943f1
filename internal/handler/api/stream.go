package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"cafesync/internal/event"
	"cafesync/internal/handler/httperr"
	"cafesync/internal/hub"
	"cafesync/internal/pkg/errs"

	"github.com/gin-gonic/gin"
)

// StreamHandler serves the event channel: a session joins a room by opening
// the SSE endpoint and stays subscribed for the life of the connection.
// Reconnecting creates a fresh subscription; the client is expected to resync
// before trusting incremental notifications again.
type StreamHandler struct {
	hub               *hub.Hub
	heartbeatInterval time.Duration
	logger            *slog.Logger
}

func NewStreamHandler(h *hub.Hub, heartbeatInterval time.Duration, logger *slog.Logger) *StreamHandler {
	return &StreamHandler{
		hub:               h,
		heartbeatInterval: heartbeatInterval,
		logger:            logger,
	}
}

func (h *StreamHandler) StreamEvents(c *gin.Context) {
	room := event.Room(c.Param("room"))
	if !room.IsValid() {
		httperr.AbortWithError(c, http.StatusNotFound, errs.New("unknown room"), httperr.CodeBadRequest, "Unknown room", nil)
		return
	}

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		httperr.AbortWithError(c, http.StatusInternalServerError, errs.New("streaming unsupported"), httperr.CodeInternal, "Streaming unsupported", nil)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	flusher.Flush()

	sub := h.hub.Join(room)
	defer sub.Close()
	h.logger.Info("session joined room", "room", string(room), "client_ip", c.ClientIP())

	heartbeat := time.NewTicker(h.heartbeatInterval)
	defer heartbeat.Stop()

	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-heartbeat.C:
			// Comment line keeps intermediaries from timing out idle streams.
			fmt.Fprint(c.Writer, ": heartbeat\n\n")
			flusher.Flush()
		case n, ok := <-sub.C:
			if !ok {
				return
			}
			payload, err := json.Marshal(n)
			if err != nil {
				h.logger.Error("marshal notification", "error", err)
				continue
			}
			fmt.Fprintf(c.Writer, "id: %s\nevent: %s\ndata: %s\n\n", n.EventID, n.Topic, payload)
			flusher.Flush()
		}
	}
}
