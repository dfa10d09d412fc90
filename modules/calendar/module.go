package calendar

import (
	"github.com/JonCoulter/whenly/core/cache"
	"github.com/JonCoulter/whenly/core/database"
	"github.com/JonCoulter/whenly/core/middleware"
	"github.com/JonCoulter/whenly/modules/calendar/controller"
	"github.com/JonCoulter/whenly/modules/calendar/repository"
	"github.com/JonCoulter/whenly/modules/calendar/router"
	"github.com/JonCoulter/whenly/modules/calendar/service"

	"github.com/labstack/echo/v4"
)

// Init initializes the calendar module and registers routes. The returned
// service is shared with the auth module, which stores Google token handles
// after the OAuth callback.
func Init(e *echo.Echo, db database.IDatabase, c cache.Cache, mw *middleware.Middleware) service.CalendarServiceInterface {
	repo := repository.NewCalendarRepository(db)
	svc := service.NewCalendarService(repo, c, service.NewMergeService())
	ctrl := controller.NewCalendarController(svc)
	rtr := router.NewCalendarRouter(ctrl)

	rtr.Setup(e, mw)
	return svc
}
