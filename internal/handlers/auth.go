package handlers

import (
	"net/http"
	"regexp"

	"github.com/gin-gonic/gin"

	"minevault-backend/internal/services"
)

type AuthHandler struct {
	jwtService   *services.JWTService
	redisService *services.RedisService
}

func NewAuthHandler(jwtService *services.JWTService, redisService *services.RedisService) *AuthHandler {
	return &AuthHandler{
		jwtService:   jwtService,
		redisService: redisService,
	}
}

var addressPattern = regexp.MustCompile(`^[0-9a-f]{8,64}$`)

// IssueToken mints a session token for an address. Wallet ownership proof
// (signature challenge) lives in the external wallet layer; this endpoint
// stands in for it in development deployments.
func (h *AuthHandler) IssueToken(c *gin.Context) {
	var req struct {
		Address string `json:"address" binding:"required"`
	}

	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	if !addressPattern.MatchString(req.Address) {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Address must be lowercase hex",
		})
		return
	}

	token, err := h.jwtService.GenerateToken(req.Address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to issue token",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"token":   token,
		"address": req.Address,
	})
}

func (h *AuthHandler) Me(c *gin.Context) {
	address := c.GetString("address")
	if address == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Not authenticated"})
		return
	}

	wallet, err := h.redisService.GetWallet(address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get wallet",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"address": address,
		"wallet": gin.H{
			"balance":       wallet.Balance,
			"total_wagered": wallet.TotalWagered,
			"total_won":     wallet.TotalWon,
		},
	})
}
