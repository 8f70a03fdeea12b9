package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "pulse/internal/errors"
	"pulse/internal/service"
	"pulse/internal/wake"
)

type DayHandler struct {
	detector *service.DayDetector
	wake     *wake.Manual
}

type wakeRequest struct {
	Reason string `json:"reason"`
}

func NewDayHandler(detector *service.DayDetector, manual *wake.Manual) *DayHandler {
	return &DayHandler{detector: detector, wake: manual}
}

func (h *DayHandler) Check(c *gin.Context) {
	newDay := h.detector.CheckForNewDay()
	c.JSON(http.StatusOK, gin.H{"newDay": newDay})
}

func (h *DayHandler) Reset(c *gin.Context) {
	if err := h.detector.Reset(c.Request.Context()); err != nil {
		writeError(c, apperrors.Internal("failed to reset day marker", err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"reset": true})
}

func (h *DayHandler) Status(c *gin.Context) {
	last, ok, err := h.detector.LastPrompted(c.Request.Context())
	if err != nil {
		writeError(c, apperrors.Internal("failed to read day marker", err))
		return
	}
	body := gin.H{"prompted": ok}
	if ok {
		body["lastPromptedAt"] = last
	}
	c.JSON(http.StatusOK, body)
}

// Wake is called by OS sleep hooks after resume.
func (h *DayHandler) Wake(c *gin.Context) {
	var req wakeRequest
	if !bindOptionalJSON(c, &req) {
		return
	}
	if req.Reason == "" {
		req.Reason = "api"
	}
	accepted := h.wake.Trigger(req.Reason)
	c.JSON(http.StatusAccepted, gin.H{"accepted": accepted})
}
