package router

import (
	"github.com/gin-gonic/gin"
	"github.com/hyerin/maplecart-backend/config"
	"github.com/hyerin/maplecart-backend/internal/app/controller"
	"github.com/hyerin/maplecart-backend/internal/middleware"
)

type Router struct {
	authController       *controller.AuthController
	productController    *controller.ProductController
	cartController       *controller.CartController
	cartSyncController   *controller.CartSyncController
	orderController      *controller.OrderController
	membershipController *controller.MembershipController
	promotionController  *controller.PromotionController
	uploadController     *controller.UploadController
	authMiddleware       *middleware.AuthMiddleware
	config               *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	productController *controller.ProductController,
	cartController *controller.CartController,
	cartSyncController *controller.CartSyncController,
	orderController *controller.OrderController,
	membershipController *controller.MembershipController,
	promotionController *controller.PromotionController,
	uploadController *controller.UploadController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:       authController,
		productController:    productController,
		cartController:       cartController,
		cartSyncController:   cartSyncController,
		orderController:      orderController,
		membershipController: membershipController,
		promotionController:  promotionController,
		uploadController:     uploadController,
		authMiddleware:       authMiddleware,
		config:               cfg,
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
			"message": "MapleCart API is running",
		})
	})

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/register", r.authController.Register)
			auth.POST("/login", r.authController.Login)
			auth.POST("/refresh", r.authController.Refresh)
			auth.POST("/logout", r.authMiddleware.Authenticate(), r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.Profile)
		}

		products := v1.Group("/products")
		{
			products.GET("", r.authMiddleware.OptionalAuthenticate(), r.productController.ListProducts)
			products.GET("/:id", r.productController.GetProduct)

			products.POST("",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin"),
				r.productController.CreateProduct,
			)
			products.PUT("/:id",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin"),
				r.productController.UpdateProduct,
			)
			products.DELETE("/:id",
				r.authMiddleware.Authenticate(),
				r.authMiddleware.RequireRole("admin"),
				r.productController.DeactivateProduct,
			)
		}

		v1.GET("/categories", r.productController.ListCategories)

		cart := v1.Group("/cart")
		cart.Use(r.authMiddleware.Authenticate())
		{
			cart.GET("", r.cartController.GetCart)
			cart.POST("", r.cartController.AddToCart)
			cart.DELETE("", r.cartController.ClearCart)
			cart.PUT("/items/:productId", r.cartController.UpdateCartItem)
			cart.DELETE("/items/:productId", r.cartController.RemoveFromCart)
			cart.POST("/refresh", r.cartController.RefreshPrices)
			cart.POST("/promotion", r.cartController.ApplyPromotion)
			cart.DELETE("/promotion", r.cartController.RemovePromotion)
			cart.GET("/ws", r.cartSyncController.WebSocketHandler)
		}

		orders := v1.Group("/orders")
		orders.Use(r.authMiddleware.Authenticate())
		{
			orders.GET("", r.orderController.ListOrders)
			orders.GET("/:id", r.orderController.GetOrder)
			orders.POST("", r.orderController.Checkout)
		}

		memberships := v1.Group("/memberships")
		{
			memberships.GET("/plans", r.membershipController.ListPlans)
			memberships.GET("/me", r.authMiddleware.Authenticate(), r.membershipController.GetMembership)
			memberships.POST("", r.authMiddleware.Authenticate(), r.membershipController.Subscribe)
			memberships.DELETE("/me", r.authMiddleware.Authenticate(), r.membershipController.Cancel)
		}

		promotions := v1.Group("/promotions")
		promotions.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole("admin"))
		{
			promotions.GET("", r.promotionController.ListPromotions)
			promotions.POST("", r.promotionController.CreatePromotion)
			promotions.DELETE("/:id", r.promotionController.DeactivatePromotion)
		}

		upload := v1.Group("/upload")
		upload.Use(r.authMiddleware.Authenticate(), r.authMiddleware.RequireRole("admin"))
		{
			upload.POST("/presigned-url", r.uploadController.GeneratePresignedURL)
		}
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
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Session-ID")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
