package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/townmarket/townmarket-backend/config"
	"github.com/townmarket/townmarket-backend/internal/app/controller"
	"github.com/townmarket/townmarket-backend/internal/app/model"
	"github.com/townmarket/townmarket-backend/internal/middleware"
)

type Router struct {
	authController      *controller.AuthController
	placeController     *controller.EntityController
	productController   *controller.EntityController
	userController      *controller.UserController
	dashboardController *controller.DashboardController
	landingController   *controller.LandingController
	authMiddleware      *middleware.AuthMiddleware
	config              *config.Config
}

func NewRouter(
	authController *controller.AuthController,
	placeController *controller.EntityController,
	productController *controller.EntityController,
	userController *controller.UserController,
	dashboardController *controller.DashboardController,
	landingController *controller.LandingController,
	authMiddleware *middleware.AuthMiddleware,
	cfg *config.Config,
) *Router {
	return &Router{
		authController:      authController,
		placeController:     placeController,
		productController:   productController,
		userController:      userController,
		dashboardController: dashboardController,
		landingController:   landingController,
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
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"message": "Town Market API is running",
		})
	})

	// Blobs of the local driver are served under the public base path
	if r.config.Storage.Driver == "local" {
		router.Static("/storage", r.config.Storage.LocalDir)
	}

	router.GET(r.config.Server.LoginPath, func(c *gin.Context) {
		c.JSON(http.StatusUnauthorized, gin.H{
			"message": "Please log in to continue",
			"login":   "/api/v1/auth/login",
		})
	})
	router.GET("/dashboard", r.authMiddleware.DashboardRedirect())

	v1 := router.Group("/api/v1")
	{
		auth := v1.Group("/auth")
		{
			auth.POST("/login", r.authController.Login)
			auth.POST("/logout", r.authController.Logout)
			auth.GET("/me", r.authMiddleware.Authenticate(), r.authController.GetMe)
		}

		v1.GET("/landing", r.landingController.Landing)
		v1.GET("/towns/:town_code", r.landingController.Town)
	}

	admin := router.Group("/admin")
	admin.Use(r.authMiddleware.RoleGate(model.RoleAdmin))
	{
		admin.GET("/dashboard", r.dashboardController.Admin)

		registerEntityRoutes(admin.Group("/places"), r.placeController)
		registerEntityRoutes(admin.Group("/products"), r.productController)

		users := admin.Group("/users")
		{
			users.GET("", r.userController.List)
			users.POST("", r.userController.Create)
			users.GET("/:id", r.userController.Get)
			users.PUT("/:id", r.userController.Update)
			users.DELETE("/:id", r.userController.Delete)
		}
	}

	router.GET("/publisher/dashboard",
		r.authMiddleware.RoleGate(model.RolePublisher),
		r.dashboardController.Catalog,
	)
	router.GET("/viewer/dashboard",
		r.authMiddleware.RoleGate(model.RoleViewer),
		r.dashboardController.Catalog,
	)

	return router
}

func registerEntityRoutes(group *gin.RouterGroup, ctrl *controller.EntityController) {
	group.GET("", ctrl.List)
	group.POST("", ctrl.Create)
	group.GET("/:id", ctrl.Get)
	group.PUT("/:id", ctrl.Update)
	group.POST("/:id", ctrl.Update)
	group.POST("/:id/delete-image", ctrl.DeleteImage)
	group.DELETE("/:id", ctrl.Delete)
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
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, X-Request-ID, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
