package router

import (
	"github.com/JonCoulter/whenly/core/middleware"
	"github.com/JonCoulter/whenly/modules/calendar/controller"

	"github.com/labstack/echo/v4"
)

// CalendarRouter handles calendar routes
type CalendarRouter struct {
	CalendarController *controller.CalendarController
}

// NewCalendarRouter creates a new router
func NewCalendarRouter(calendarController *controller.CalendarController) *CalendarRouter {
	return &CalendarRouter{
		CalendarController: calendarController,
	}
}

// Setup registers calendar routes. All of them require a signed-in user.
func (r *CalendarRouter) Setup(e *echo.Echo, mw *middleware.Middleware) {
	calendar := e.Group("/api/calendar", mw.AuthMiddleware())

	calendar.GET("/merged", r.CalendarController.GetMergedCalendar)

	calendar.GET("/connections", r.CalendarController.GetConnections)
	calendar.DELETE("/connections/google", r.CalendarController.DisconnectCalendar)

	calendar.POST("/subscriptions", r.CalendarController.AddICSSubscription)
	calendar.GET("/subscriptions", r.CalendarController.ListICSSubscriptions)
	calendar.DELETE("/subscriptions/:id", r.CalendarController.RemoveICSSubscription)
}
