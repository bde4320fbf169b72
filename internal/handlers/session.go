package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"minevault-backend/internal/models"
	"minevault-backend/internal/services"
)

type SessionHandler struct {
	delegates *services.DelegateRegistry
}

func NewSessionHandler(delegates *services.DelegateRegistry) *SessionHandler {
	return &SessionHandler{delegates: delegates}
}

func (h *SessionHandler) RegisterDelegate(c *gin.Context) {
	address := c.GetString("address")

	var req models.DelegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := h.delegates.Register(address, req.Delegate); err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to register delegate",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":   true,
		"principal": address,
		"delegate":  req.Delegate,
	})
}

func (h *SessionHandler) RevokeDelegate(c *gin.Context) {
	address := c.GetString("address")

	var req models.DelegateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := h.delegates.Revoke(address, req.Delegate); err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to revoke delegate",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"delegate": req.Delegate,
	})
}
