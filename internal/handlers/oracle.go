package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"minevault-backend/internal/models"
	"minevault-backend/internal/services"
)

// OracleHandler receives out-of-band randomness fulfillment from the
// gateway's infrastructure, correlated by the request id issued at start.
type OracleHandler struct {
	engine *services.GameEngine
}

func NewOracleHandler(engine *services.GameEngine) *OracleHandler {
	return &OracleHandler{engine: engine}
}

func (h *OracleHandler) Fulfill(c *gin.Context) {
	var req models.FulfillRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := h.engine.OnRandomness(req.RequestID, req.Value); err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Fulfillment rejected",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"request_id": req.RequestID,
	})
}
