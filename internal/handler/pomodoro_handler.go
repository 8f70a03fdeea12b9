package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "pulse/internal/errors"
	"pulse/internal/service"
)

type PomodoroHandler struct {
	engine    *service.PomodoroEngine
	scheduler *service.PromptScheduler
}

type startWorkRequest struct {
	Task string `json:"task"`
}

type startBreakRequest struct {
	Long *bool `json:"long"`
}

func NewPomodoroHandler(engine *service.PomodoroEngine, scheduler *service.PromptScheduler) *PomodoroHandler {
	return &PomodoroHandler{engine: engine, scheduler: scheduler}
}

func (h *PomodoroHandler) GetState(c *gin.Context) {
	scheduler := gin.H{"running": h.scheduler.Running()}
	if next, prompt, ok := h.scheduler.NextFire(); ok {
		scheduler["nextFireAt"] = next
		scheduler["nextFirePrompts"] = prompt
	}
	c.JSON(http.StatusOK, gin.H{
		"state":     h.engine.State(),
		"scheduler": scheduler,
	})
}

func (h *PomodoroHandler) StartWork(c *gin.Context) {
	var req startWorkRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	h.respond(c, h.engine.StartWork(req.Task))
}

func (h *PomodoroHandler) Abandon(c *gin.Context) {
	h.respond(c, h.engine.Abandon())
}

func (h *PomodoroHandler) StartBreak(c *gin.Context) {
	var req startBreakRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	long := h.engine.IsLongBreakDue()
	if req.Long != nil {
		long = *req.Long
	}
	h.respond(c, h.engine.StartBreak(long))
}

func (h *PomodoroHandler) Snooze(c *gin.Context) {
	h.respond(c, h.engine.ScheduleSnooze())
}

func (h *PomodoroHandler) BreakSnooze(c *gin.Context) {
	h.respond(c, h.engine.ScheduleBreakSnooze())
}

func (h *PomodoroHandler) respond(c *gin.Context, err error) {
	if err != nil {
		if errors.Is(err, service.ErrInvalidTransition) {
			writeError(c, apperrors.InvalidTransition(err, h.engine.State()))
			return
		}
		writeError(c, apperrors.Internal("", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"state": h.engine.State()})
}
