package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	apperrors "pulse/internal/errors"
)

func writeError(c *gin.Context, apiErr *apperrors.APIError) {
	if apiErr == nil {
		apiErr = apperrors.Internal("", nil)
	}
	if apiErr.Cause != nil {
		_ = c.Error(apiErr)
	}
	c.JSON(apiErr.Status, apiErr.Envelope())
}

func writeInvalidJSON(c *gin.Context) {
	writeError(c, apperrors.InvalidJSON())
}

// bindOptionalJSON accepts an empty body and leaves dest untouched.
func bindOptionalJSON(c *gin.Context, dest interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	if err := c.ShouldBindJSON(dest); err != nil {
		writeInvalidJSON(c)
		return false
	}
	return true
}

func queryLimit(c *gin.Context) int {
	limit := 0
	rawLimit := c.Query("limit")
	if rawLimit != "" {
		if parsed, err := strconv.Atoi(rawLimit); err == nil {
			limit = parsed
		}
	}
	return limit
}
