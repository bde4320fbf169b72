package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"minevault-backend/internal/models"
	"minevault-backend/internal/services"
)

type GameHandler struct {
	engine       *services.GameEngine
	redisService *services.RedisService
	governor     *services.Governor
}

func NewGameHandler(engine *services.GameEngine, redisService *services.RedisService, governor *services.Governor) *GameHandler {
	return &GameHandler{
		engine:       engine,
		redisService: redisService,
		governor:     governor,
	}
}

func (h *GameHandler) Start(c *gin.Context) {
	address := c.GetString("address")

	var req models.StartGameRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	game, err := h.engine.Start(address, req.Commitment, req.Amount)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to start game",
			"details": err.Error(),
		})
		return
	}

	h.redisService.SaveTransaction(&models.Transaction{
		ID:          models.GenerateTransactionID(),
		Address:     address,
		Type:        models.TransactionTypeWager,
		Amount:      req.Amount,
		GameID:      game.ID,
		Description: "Placed wager",
		CreatedAt:   time.Now(),
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game": gin.H{
			"id":         game.ID,
			"principal":  game.Principal,
			"wager":      game.Wager,
			"pot":        game.Pot,
			"commitment": game.Commitment,
			"status":     game.Status(),
			"created_at": game.CreatedAt,
		},
	})
}

func (h *GameHandler) Reveal(c *gin.Context) {
	address := c.GetString("address")

	var req models.RevealCellRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	result, err := h.engine.RevealCell(address, req.GameID, *req.X, *req.Y, req.Secret)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to reveal cell",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func (h *GameHandler) Cashout(c *gin.Context) {
	address := c.GetString("address")

	var req models.CashoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	result, err := h.engine.CashOut(address, req.GameID)
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to cashout",
			"details": err.Error(),
		})
		return
	}

	h.redisService.SaveTransaction(&models.Transaction{
		ID:          models.GenerateTransactionID(),
		Address:     result.Principal,
		Type:        models.TransactionTypePayout,
		Amount:      result.Payout,
		GameID:      result.GameID,
		Description: "Cashed out",
		CreatedAt:   time.Now(),
	})

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"result":  result,
	})
}

func (h *GameHandler) GetGame(c *gin.Context) {
	summary, err := h.engine.Summary(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to get game",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"game":    summary,
	})
}

func (h *GameHandler) GetSafeCells(c *gin.Context) {
	cells, err := h.engine.RevealedSafeCells(c.Param("id"))
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to get cells",
			"details": err.Error(),
		})
		return
	}

	response := make([]gin.H, 0, len(cells))
	for _, cell := range cells {
		response = append(response, gin.H{"x": cell[0], "y": cell[1]})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"cells":   response,
		"count":   len(response),
	})
}

func (h *GameHandler) GetCellStatus(c *gin.Context) {
	x, errX := strconv.ParseUint(c.Param("x"), 10, 8)
	y, errY := strconv.ParseUint(c.Param("y"), 10, 8)
	if errX != nil || errY != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid coordinates"})
		return
	}

	revealed, err := h.engine.CellStatus(c.Param("id"), byte(x), byte(y))
	if err != nil {
		c.JSON(statusFor(err), gin.H{
			"error":   "Failed to get cell status",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"x":        x,
		"y":        y,
		"revealed": revealed,
	})
}

func (h *GameHandler) GetActiveGames(c *gin.Context) {
	address := c.GetString("address")

	games := h.engine.ActiveGames(address)

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"games":   games,
		"count":   len(games),
	})
}

func (h *GameHandler) GetGameHistory(c *gin.Context) {
	address := c.GetString("address")

	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.ParseInt(limitStr, 10, 64)
	if err != nil || limit <= 0 || limit > 100 {
		limit = 50
	}

	games, err := h.redisService.GetGameHistory(address, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get game history",
			"details": err.Error(),
		})
		return
	}

	var response []gin.H
	for _, game := range games {
		result := "loss"
		if !game.Lost {
			result = "win"
		}

		response = append(response, gin.H{
			"id":         game.ID,
			"wager":      game.Wager,
			"pot":        game.Pot,
			"result":     result,
			"status":     game.Status(),
			"seed":       game.Seed,
			"created_at": game.CreatedAt,
			"ended_at":   game.EndedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"games":   response,
		"count":   len(response),
	})
}

func (h *GameHandler) GetBalance(c *gin.Context) {
	address := c.GetString("address")

	wallet, err := h.redisService.GetWallet(address)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to get wallet",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"balance": gin.H{
			"balance":       wallet.Balance,
			"total_wagered": wallet.TotalWagered,
			"total_won":     wallet.TotalWon,
		},
	})
}

// Verify recomputes the seed and, optionally, one cell verdict from
// revealed material so players can audit a finished game offline.
func (h *GameHandler) Verify(c *gin.Context) {
	var req models.VerifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	commitment, err := services.CommitmentFor(req.Secret)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Verification failed",
			"details": err.Error(),
		})
		return
	}

	seed, err := services.DeriveSeed(req.ExternalRandom, req.Secret, req.Principal)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Verification failed",
			"details": err.Error(),
		})
		return
	}

	verification := gin.H{
		"commitment": commitment,
		"seed":       seed,
	}

	if req.X != nil && req.Y != nil {
		threshold := req.Threshold
		if threshold == 0 {
			threshold = h.governor.MineProbability()
		}
		isMine, err := services.CellIsMine(seed, *req.X, *req.Y, threshold)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Verification failed",
				"details": err.Error(),
			})
			return
		}
		verification["x"] = *req.X
		verification["y"] = *req.Y
		verification["threshold"] = threshold
		verification["is_mine"] = isMine
	}

	c.JSON(http.StatusOK, gin.H{
		"success":      true,
		"verification": verification,
	})
}
