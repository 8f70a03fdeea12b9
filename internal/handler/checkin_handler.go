package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pulse/internal/model"
	"pulse/internal/service"
)

type CheckInHandler struct {
	responses *service.ResponseService
}

type submitResponseRequest struct {
	Kind       string `json:"kind"`
	Excitement int    `json:"excitement"`
	Activity   string `json:"activity"`
}

func NewCheckInHandler(responses *service.ResponseService) *CheckInHandler {
	return &CheckInHandler{responses: responses}
}

func (h *CheckInHandler) Submit(c *gin.Context) {
	var req submitResponseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeInvalidJSON(c)
		return
	}

	response, apiErr := h.responses.Submit(c.Request.Context(), service.SubmitResponseInput{
		Kind:       model.ResponseKind(req.Kind),
		Excitement: req.Excitement,
		Activity:   req.Activity,
	})
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"response": response})
}

func (h *CheckInHandler) ListResponses(c *gin.Context) {
	responses, apiErr := h.responses.ListResponses(c.Request.Context(), queryLimit(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"responses": responses})
}

func (h *CheckInHandler) ListSessions(c *gin.Context) {
	sessions, apiErr := h.responses.ListSessions(c.Request.Context(), queryLimit(c))
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

func (h *CheckInHandler) Today(c *gin.Context) {
	stats, apiErr := h.responses.Today(c.Request.Context())
	if apiErr != nil {
		writeError(c, apiErr)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}
