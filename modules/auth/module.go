package auth

import (
	"github.com/JonCoulter/whenly/core/cache"
	"github.com/JonCoulter/whenly/core/database"
	"github.com/JonCoulter/whenly/core/middleware"
	"github.com/JonCoulter/whenly/modules/auth/controller"
	"github.com/JonCoulter/whenly/modules/auth/repository"
	"github.com/JonCoulter/whenly/modules/auth/router"
	"github.com/JonCoulter/whenly/modules/auth/service"
	calendarService "github.com/JonCoulter/whenly/modules/calendar/service"

	"github.com/labstack/echo/v4"
)

// Init initializes the auth module and registers routes
func Init(e *echo.Echo, db database.IDatabase, c cache.Cache, mw *middleware.Middleware, calendarSvc calendarService.CalendarServiceInterface) {
	repo := repository.NewAuthRepository(db)
	svc := service.NewAuthService(repo, c, calendarSvc)
	ctrl := controller.NewAuthController(svc)
	rtr := router.NewAuthRouter(ctrl)

	rtr.Setup(e, mw)
}
