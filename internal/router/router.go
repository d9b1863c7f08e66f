package router

import (
	"github.com/gin-gonic/gin"
	"github.com/nearify/nearify-backend/config"
	"github.com/nearify/nearify-backend/internal/app/controller"
	"github.com/nearify/nearify-backend/internal/middleware"
)

type Router struct {
	authController      *controller.AuthController
	searchController    *controller.SearchController
	listingController   *controller.ListingController
	claimController     *controller.ClaimController
	promotionController *controller.PromotionController
	uploadController    *controller.UploadController
	authMiddleware      *middleware.AuthMiddleware
	config              *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	searchController *controller.SearchController,
	listingController *controller.ListingController,
	claimController *controller.ClaimController,
	promotionController *controller.PromotionController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:      authController,
		searchController:    searchController,
		listingController:   listingController,
		claimController:     claimController,
		promotionController: promotionController,
		uploadController:    uploadController,
		authMiddleware:      authMiddleware,
		config:              cfg,
	}
}

func (r *Router) Setup() *gin.Engine {
	gin.SetMode(r.config.Server.GinMode)

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware())
	router.Use(corsMiddleware(r.config.CORS.AllowedOrigins))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"message": "Nearify API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
		}

		v1.GET("/search", r.searchController.Search)

		listings := v1.Group("/listings")
		{
			listings.GET("/:id", r.listingController.GetListing)
			listings.POST("/:id/click", r.listingController.TrackClick)

			listings.POST("", r.authMiddleware.Authenticate(), r.listingController.CreateListing)
			listings.PUT("/:id", r.authMiddleware.Authenticate(), r.listingController.UpdateListing)
			listings.DELETE("/:id", r.authMiddleware.Authenticate(), r.listingController.DeleteListing)
			listings.POST("/import", r.authMiddleware.Authenticate(), r.listingController.ImportExternal)
			listings.PUT("/:id/holiday", r.authMiddleware.Authenticate(), r.listingController.ToggleHoliday)

			listings.POST("/:id/claim", r.authMiddleware.Authenticate(), r.claimController.StartClaim)
			listings.POST("/:id/promote", r.authMiddleware.Authenticate(), r.promotionController.CreateCheckout)
		}

		claims := v1.Group("/claims")
		claims.Use(r.authMiddleware.Authenticate())
		{
			claims.GET("/:id", r.claimController.GetClaim)
			claims.POST("/:id/resend", r.claimController.ResendCode)
			claims.POST("/:id/verify", r.claimController.VerifyClaim)
		}

		dashboard := v1.Group("/dashboard")
		dashboard.Use(r.authMiddleware.Authenticate())
		{
			dashboard.GET("", r.listingController.Dashboard)
			dashboard.GET("/export", r.listingController.ExportAnalytics)
		}

		upload := v1.Group("/upload")
		upload.Use(r.authMiddleware.Authenticate())
		{
			upload.POST("/presigned-url", r.uploadController.GeneratePresignedURL)
		}

		// Stripe calls this endpoint directly; it authenticates via the
		// signature header, not a bearer token.
		v1.POST("/webhooks/stripe", r.promotionController.Webhook)
	}

	return router
}

func corsMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		allowed := false
		for _, allowedOrigin := range allowedOrigins {
			if origin == allowedOrigin || allowedOrigin == "*" {
				allowed = true
				break
			}
		}

		if allowed {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
			c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
