package handlers

import (
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/eun-legal/backend/internal/ingest/progress"
	"github.com/eun-legal/backend/pkg/logger"
)

type ProgressHandler struct {
	broadcaster *progress.Broadcaster
}

func NewProgressHandler(broadcaster *progress.Broadcaster) *ProgressHandler {
	return &ProgressHandler{broadcaster: broadcaster}
}

// HandleConnection streams import progress events to a websocket client
// until the client disconnects.
func (h *ProgressHandler) HandleConnection(c *websocket.Conn) {
	logger.Info("Progress stream connected")

	events, cancel := h.broadcaster.Subscribe()
	defer func() {
		cancel()
		c.Close()
		logger.Info("Progress stream closed")
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := c.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-events:
			if !ok {
				return
			}
			if err := c.WriteJSON(ev); err != nil {
				logger.Debug("Failed to write progress event", zap.Error(err))
				return
			}
		case <-done:
			return
		}
	}
}
