package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/DheeruBhaiAmbani/kisan-ai/config"
	"github.com/DheeruBhaiAmbani/kisan-ai/database"
	"github.com/DheeruBhaiAmbani/kisan-ai/internal/api"
	"github.com/DheeruBhaiAmbani/kisan-ai/internal/middleware"
	"github.com/DheeruBhaiAmbani/kisan-ai/internal/services"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("Invalid configuration:", err)
	}

	db, err := database.Initialize(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to initialize database:", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatal("Failed to run migrations:", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Services
	authService := services.NewAuthService(cfg.JWTSecret, cfg.JWTExpiration)
	userService := services.NewUserService(db)
	listingService := services.NewListingService(db)

	wsService := services.NewWebSocketService(authService, func(r *http.Request) bool {
		if cfg.AllowAllOrigins {
			return true
		}
		origin := r.Header.Get("Origin")
		for _, allowed := range cfg.AllowedOrigins {
			if origin == allowed {
				return true
			}
		}
		return false
	})
	notificationService := services.NewNotificationService(db, wsService)

	var embedder services.Embedder
	if cfg.GeminiAPIKey != "" {
		embeddingService, err := services.NewEmbeddingService(cfg.GeminiAPIKey, cfg.GeminiEmbeddingModel)
		if err != nil {
			log.Printf("Warning: embeddings disabled: %v", err)
		} else {
			embedder = embeddingService
		}
	} else {
		log.Println("Warning: GEMINI_API_KEY not set, listings will be grouped without embeddings")
	}

	groupingService := services.NewGroupingService(db, listingService, embedder, notificationService, cfg.PinCodeProximity)
	offerService := services.NewOfferService(db, notificationService)

	var planner services.RoutePlanner
	if cfg.RoutePlannerURL != "" {
		planner = services.NewRoutingClient(cfg.RoutePlannerURL, cfg.RoutePlannerTimeout)
	} else {
		log.Println("Warning: ROUTE_PLANNER_URL not set, logistics optimization disabled")
	}
	logisticsService := services.NewLogisticsService(db, planner, notificationService)
	voteService := services.NewVoteService(db, notificationService, logisticsService, cfg.AcceptThreshold)

	var assistantService *services.AssistantService
	if cfg.GeminiAPIKey != "" {
		weatherService := services.NewWeatherService(cfg.OpenWeatherAPIKey)
		assistantService, err = services.NewAssistantService(cfg.GeminiAPIKey, cfg.GeminiChatModel, weatherService)
		if err != nil {
			log.Printf("Warning: assistant disabled: %v", err)
		}
	}

	schedulerService := services.NewSchedulerService(groupingService, listingService)

	// Handlers
	authHandlers := api.NewAuthHandlers(userService, authService)
	listingHandlers := api.NewListingHandlers(listingService)
	groupHandlers := api.NewGroupHandlers(groupingService, listingService)
	offerHandlers := api.NewOfferHandlers(offerService, voteService)
	logisticsHandlers := api.NewLogisticsHandlers(logisticsService)
	notificationHandlers := api.NewNotificationHandlers(notificationService)
	assistantHandlers := api.NewAssistantHandlers(assistantService, userService)

	authMiddleware := middleware.NewAuthMiddleware(authService)

	router := gin.New()
	router.Use(gin.Logger())
	router.Use(gin.Recovery())
	router.Use(corsMiddleware(cfg))
	router.Use(middleware.SecurityMiddleware(&middleware.SecurityConfig{
		MaxRequestSize:    10 * 1024 * 1024,
		RateLimitRequests: cfg.RateLimitRequests,
		RateLimitWindow:   time.Duration(cfg.RateLimitWindow) * time.Second,
	}))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	})

	apiGroup := router.Group("/api/v1")
	{
		auth := apiGroup.Group("/auth")
		{
			auth.POST("/register", authHandlers.Register)
			auth.POST("/login", authHandlers.Login)
		}

		apiGroup.GET("/ws", wsService.HandleWebSocket)

		protected := apiGroup.Group("/")
		protected.Use(authMiddleware.AuthRequired())
		{
			protected.POST("/auth/logout", authHandlers.Logout)
			protected.POST("/auth/refresh", authHandlers.RefreshToken)
			protected.GET("/profile", authHandlers.GetProfile)
			protected.PUT("/profile", authHandlers.UpdateProfile)

			listings := protected.Group("/listings")
			{
				listings.POST("", authMiddleware.RequireUserType("farmer"), listingHandlers.CreateListing)
				listings.GET("", listingHandlers.BrowseListings)
				listings.GET("/mine", authMiddleware.RequireUserType("farmer"), listingHandlers.GetMyListings)
				listings.GET("/:id", listingHandlers.GetListing)
			}

			groups := protected.Group("/groups")
			{
				groups.GET("", groupHandlers.GetActiveGroups)
				groups.GET("/:id", groupHandlers.GetGroup)
				groups.POST("/run-grouping", groupHandlers.RunGrouping)
				groups.POST("/:id/offers", authMiddleware.RequireUserType("buyer"), offerHandlers.SubmitOffer)
				groups.GET("/:id/offers", offerHandlers.GetGroupOffers)
			}

			offers := protected.Group("/offers")
			{
				offers.GET("/mine", authMiddleware.RequireUserType("buyer"), offerHandlers.GetMyOffers)
				offers.GET("/:id", offerHandlers.GetOffer)
				offers.POST("/:id/votes", authMiddleware.RequireUserType("farmer"), offerHandlers.CastVote)
				offers.GET("/:id/votes", offerHandlers.GetOfferVotes)
				offers.POST("/:id/logistics", logisticsHandlers.OptimizeLogistics)
				offers.GET("/:id/logistics", logisticsHandlers.GetLogistics)
			}

			notifications := protected.Group("/notifications")
			{
				notifications.GET("", notificationHandlers.GetNotifications)
				notifications.GET("/unread-count", notificationHandlers.GetUnreadCount)
				notifications.PUT("/:id/read", notificationHandlers.MarkAsRead)
				notifications.PUT("/read-all", notificationHandlers.MarkAllAsRead)
			}

			assistant := protected.Group("/assistant")
			{
				assistant.POST("/query", assistantHandlers.Query)
				assistant.POST("/diagnose", assistantHandlers.DiagnoseCrop)
			}
		}
	}

	logisticsService.Start()
	schedulerService.Start(cfg.GroupingInterval)

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Printf("Server starting on port %s (%s)", cfg.Port, cfg.Environment)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("Failed to start server:", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	schedulerService.Stop()
	logisticsService.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Fatal("Server forced to shutdown:", err)
	}

	log.Println("Server exited")
}

// corsMiddleware applies the configured origin policy
func corsMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		allowed := cfg.AllowAllOrigins
		if !allowed {
			for _, o := range cfg.AllowedOrigins {
				if origin == o {
					allowed = true
					break
				}
			}
		}

		if allowed && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
			c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept, Authorization")
		}

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
