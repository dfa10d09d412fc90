package router

import (
	"github.com/JonCoulter/whenly/core/middleware"
	"github.com/JonCoulter/whenly/modules/auth/controller"

	"github.com/labstack/echo/v4"
)

// AuthRouter handles authentication routes
type AuthRouter struct {
	AuthController *controller.AuthController
}

// NewAuthRouter creates a new router
func NewAuthRouter(authController *controller.AuthController) *AuthRouter {
	return &AuthRouter{
		AuthController: authController,
	}
}

// Setup registers authentication routes
func (r *AuthRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	auth := e.Group("/api/auth")

	auth.GET("/google", r.AuthController.GoogleLogin)
	auth.GET("/google/callback", r.AuthController.GoogleCallback)
	auth.POST("/refresh", r.AuthController.RefreshToken)

	auth.GET("/me", r.AuthController.GetMe, mw.AuthMiddleware())
	auth.POST("/logout", r.AuthController.Logout, mw.AuthMiddleware())
}
