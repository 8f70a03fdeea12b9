package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pulse/internal/service"
)

type SchedulerHandler struct {
	scheduler *service.PromptScheduler
}

func NewSchedulerHandler(scheduler *service.PromptScheduler) *SchedulerHandler {
	return &SchedulerHandler{scheduler: scheduler}
}

func (h *SchedulerHandler) Start(c *gin.Context) {
	h.scheduler.Start()
	h.status(c)
}

func (h *SchedulerHandler) Stop(c *gin.Context) {
	h.scheduler.Stop()
	h.status(c)
}

func (h *SchedulerHandler) status(c *gin.Context) {
	body := gin.H{"running": h.scheduler.Running()}
	if next, prompt, ok := h.scheduler.NextFire(); ok {
		body["nextFireAt"] = next
		body["nextFirePrompts"] = prompt
	}
	c.JSON(http.StatusOK, gin.H{"scheduler": body})
}
