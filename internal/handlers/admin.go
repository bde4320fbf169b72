package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"minevault-backend/internal/ledger"
	"minevault-backend/internal/models"
	"minevault-backend/internal/services"
)

type AdminHandler struct {
	governor *services.Governor
	ledger   *ledger.Service
}

func NewAdminHandler(governor *services.Governor, ledgerService *ledger.Service) *AdminHandler {
	return &AdminHandler{
		governor: governor,
		ledger:   ledgerService,
	}
}

func (h *AdminHandler) Propose(c *gin.Context) {
	address := c.GetString("address")

	var req models.ParamProposal
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := h.governor.Propose(address, services.Param(req.Param), req.Value); err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to propose change",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"param":   req.Param,
		"value":   req.Value,
	})
}

func (h *AdminHandler) Execute(c *gin.Context) {
	address := c.GetString("address")

	var req models.ParamAction
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := h.governor.Execute(address, services.Param(req.Param)); err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to execute change",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"param":   req.Param,
	})
}

func (h *AdminHandler) Cancel(c *gin.Context) {
	address := c.GetString("address")

	var req models.ParamAction
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if err := h.governor.Cancel(address, services.Param(req.Param)); err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to cancel change",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"param":   req.Param,
	})
}

func (h *AdminHandler) GetParams(c *gin.Context) {
	pending := gin.H{}
	for param, change := range h.governor.Pending() {
		pending[string(param)] = gin.H{
			"value":        change.Value,
			"effective_at": change.EffectiveAt,
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"params": gin.H{
			"mine_probability":  h.governor.MineProbability(),
			"reward_multiplier": h.governor.RewardMultiplier(),
		},
		"pending": pending,
	})
}

func (h *AdminHandler) GetLedger(c *gin.Context) {
	limitStr := c.DefaultQuery("limit", "100")
	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		limit = 100
	}

	rows, err := h.ledger.RecentSettlements(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to read ledger",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":     true,
		"settlements": rows,
		"count":       len(rows),
	})
}
