package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"minevault-backend/internal/config"
	"minevault-backend/internal/event"
	"minevault-backend/internal/handlers"
	"minevault-backend/internal/ledger"
	"minevault-backend/internal/middleware"
	"minevault-backend/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	redisService, err := services.NewRedisService(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisService.Close()

	ledgerService, err := ledger.Open(cfg.LedgerPath)
	if err != nil {
		log.Fatalf("Failed to open ledger: %v", err)
	}
	defer ledgerService.Close()

	bus := event.NewBus()
	ledger.RegisterConsumers(bus, ledgerService)

	jwtService := services.NewJWTService(cfg)
	delegates := services.NewDelegateRegistry(bus)
	governor := services.NewGovernor(cfg.GovernorAddress, bus)
	source := services.NewLocalSource(cfg.GatewayFee, cfg.FulfillDelay)

	engine := services.NewGameEngine(source, redisService, redisService, delegates, governor, bus)
	source.SetFulfiller(engine.OnRandomness)

	authHandler := handlers.NewAuthHandler(jwtService, redisService)
	gameHandler := handlers.NewGameHandler(engine, redisService, governor)
	sessionHandler := handlers.NewSessionHandler(delegates)
	adminHandler := handlers.NewAdminHandler(governor, ledgerService)
	oracleHandler := handlers.NewOracleHandler(engine)
	wsHandler := handlers.NewWebSocketHandler(redisService, bus)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.POST("/auth/token", authHandler.IssueToken)

	// Fulfillment callback, invoked by the randomness gateway's own
	// infrastructure. Deploy behind network isolation.
	router.POST("/internal/randomness/fulfill", oracleHandler.Fulfill)

	protected := router.Group("/api")
	protected.Use(middleware.AuthMiddleware(jwtService))
	protected.Use(middleware.RateLimitMiddleware(redisService))
	{
		protected.GET("/me", authHandler.Me)
		protected.GET("/ws", wsHandler.HandleWebSocket)
		protected.GET("/balance", gameHandler.GetBalance)

		games := protected.Group("/games")
		{
			games.POST("/start", gameHandler.Start)
			games.POST("/reveal", gameHandler.Reveal)
			games.POST("/cashout", gameHandler.Cashout)
			games.GET("/active", gameHandler.GetActiveGames)
			games.GET("/history", gameHandler.GetGameHistory)
			games.POST("/verify", gameHandler.Verify)
			games.GET("/:id", gameHandler.GetGame)
			games.GET("/:id/cells", gameHandler.GetSafeCells)
			games.GET("/:id/cells/:x/:y", gameHandler.GetCellStatus)
		}

		session := protected.Group("/session")
		{
			session.POST("/delegate", sessionHandler.RegisterDelegate)
			session.DELETE("/delegate", sessionHandler.RevokeDelegate)
		}
	}

	admin := router.Group("/admin")
	admin.Use(middleware.AuthMiddleware(jwtService))
	admin.Use(governorOnly(cfg.GovernorAddress))
	{
		admin.POST("/params/propose", adminHandler.Propose)
		admin.POST("/params/execute", adminHandler.Execute)
		admin.POST("/params/cancel", adminHandler.Cancel)
		admin.GET("/params", adminHandler.GetParams)
		admin.GET("/ledger", adminHandler.GetLedger)
	}

	log.Printf("Server starting on port %s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

func governorOnly(governorAddress string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString("address") != governorAddress {
			c.JSON(http.StatusForbidden, gin.H{"error": "Governing authority only"})
			c.Abort()
			return
		}
		c.Next()
	}
}
