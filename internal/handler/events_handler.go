package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"pulse/internal/events"
)

const watchBuffer = 64

type EventsHandler struct {
	bus *events.Bus
}

func NewEventsHandler(bus *events.Bus) *EventsHandler {
	return &EventsHandler{bus: bus}
}

// Stream forwards bus events as server-sent events until the client leaves.
func (h *EventsHandler) Stream(c *gin.Context) {
	ch, cancel := h.bus.Watch(watchBuffer)
	defer cancel()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case e, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(string(e.Kind), e)
			return true
		}
	})
}
